package check

import (
	"fmt"
	"time"

	"github.com/o2r-project/erc-checker/pkg/collect"
	"github.com/o2r-project/erc-checker/pkg/models"
)

// TaskKind identifies the comparator a task runs
type TaskKind string

const (
	// TaskText compares the visible text of one document pair
	TaskText TaskKind = "text"
	// TaskImage compares one matched image pair
	TaskImage TaskKind = "image"
)

// TaskStatus represents the status of a comparison task
type TaskStatus string

const (
	// TaskPending indicates the task has not been dispatched
	TaskPending TaskStatus = "pending"
	// TaskProcessing indicates the task is running
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted indicates the task produced a result
	TaskCompleted TaskStatus = "completed"
	// TaskError indicates the task failed
	TaskError TaskStatus = "error"
)

// Task is one independent comparison unit of a check
type Task struct {
	Kind TaskKind

	// Unit is the index of the ComparisonUnit the task belongs to
	Unit int

	// Pair is the index into the unit's images, -1 for text tasks
	Pair int

	// Name identifies the task in logs and progress output
	Name string

	Status   TaskStatus
	Errors   []*models.CheckError
	Duration time.Duration
}

// newTasks lists the tasks of a set: per unit the text task, then one task per image pair
func newTasks(set *collect.Set) []*Task {
	tasks := make([]*Task, 0, len(set.Units)+set.Pairs())
	for u, unit := range set.Units {
		tasks = append(tasks, &Task{Kind: TaskText, Unit: u, Pair: -1, Name: unit.Name, Status: TaskPending})
		for p, pair := range unit.Images {
			tasks = append(tasks, &Task{
				Kind:   TaskImage,
				Unit:   u,
				Pair:   p,
				Name:   fmt.Sprintf("%s#%d", unit.Name, pair.Index),
				Status: TaskPending,
			})
		}
	}
	return tasks
}

// MarkProcessing marks the task as running
func (t *Task) MarkProcessing() {
	t.Status = TaskProcessing
}

// MarkCompleted marks the task as successfully completed
func (t *Task) MarkCompleted(duration time.Duration) {
	t.Status = TaskCompleted
	t.Duration = duration
}

// MarkError marks the task as failed
func (t *Task) MarkError(errs []*models.CheckError, duration time.Duration) {
	t.Status = TaskError
	t.Errors = errs
	t.Duration = duration
}
