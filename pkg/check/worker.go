package check

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/o2r-project/erc-checker/pkg/collect"
	"github.com/o2r-project/erc-checker/pkg/compare"
	"github.com/o2r-project/erc-checker/pkg/logging"
	"github.com/o2r-project/erc-checker/pkg/models"
)

// results holds comparator outputs slotted by unit and pair index
type results struct {
	texts  []*compare.TextCompareResult
	images [][]*compare.ImageCompareResult
}

func newResults(set *collect.Set) *results {
	r := &results{
		texts:  make([]*compare.TextCompareResult, len(set.Units)),
		images: make([][]*compare.ImageCompareResult, len(set.Units)),
	}
	for i, unit := range set.Units {
		r.images[i] = make([]*compare.ImageCompareResult, len(unit.Images))
	}
	return r
}

// Worker runs the comparison tasks of one check in parallel
type Worker struct {
	text       compare.TextComparer
	image      compare.ImageComparer
	loader     *compare.Loader
	maxWorkers int
	observer   Observer
	logger     logging.Logger
}

// Execute dispatches every task of set and waits for all dispatched tasks.
// After the first failure no further tasks are dispatched. Errors are
// returned in task order; a cancelled context yields one CanceledError.
func (w *Worker) Execute(ctx context.Context, set *collect.Set) (*results, []*models.CheckError) {
	tasks := newTasks(set)
	res := newResults(set)
	w.observer.UnitsDispatched(len(tasks))

	maxWorkers := w.maxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(maxWorkers)

	var failed atomic.Bool
	dispatched := 0
	for _, task := range tasks {
		if failed.Load() || ctx.Err() != nil {
			break
		}
		dispatched++

		task := task
		g.Go(func() error {
			startTime := time.Now()
			task.MarkProcessing()

			err := w.run(ctx, set, task, res)
			if err != nil {
				failed.Store(true)
				task.MarkError(models.AsCheckErrors(err, kindOf(task), ""), time.Since(startTime))
				w.logger.Debug(ctx, "comparison failed", logging.Fields{"task": task.Name, "error": err.Error()})
			} else {
				task.MarkCompleted(time.Since(startTime))
			}

			w.observer.UnitDone(task.Name, err)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, []*models.CheckError{canceled(err)}
	}

	w.logger.Debug(ctx, "comparisons finished", logging.Fields{
		"tasks":         dispatched,
		"images_cached": w.loader.Cached(),
	})

	var errs []*models.CheckError
	for _, task := range tasks {
		if task.Status == TaskError {
			errs = append(errs, task.Errors...)
		}
	}
	if len(errs) > 0 {
		w.logger.Debug(ctx, "dispatch stopped", logging.Fields{
			"tasks":      len(tasks),
			"dispatched": dispatched,
			"failed":     len(errs),
		})
		return nil, errs
	}
	return res, nil
}

// run executes one task and stores its result in its slot
func (w *Worker) run(ctx context.Context, set *collect.Set, task *Task, res *results) error {
	unit := set.Units[task.Unit]

	if task.Kind == TaskText {
		bodies := set.Bodies[task.Unit]
		result, err := w.text.Compare(ctx, bodies.Original, bodies.Reproduced)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return models.NewCheckError(models.KindTextCompare,
				fmt.Sprintf("cannot compare text of %s: %v", unit.Name, err), unit.OriginalDocument)
		}
		res.texts[task.Unit] = result
		return nil
	}

	pair := unit.Images[task.Pair]
	original, err := w.loader.Load(ctx, pair.Original)
	if err != nil {
		return err
	}
	reproduced, err := w.loader.Load(ctx, pair.Reproduced)
	if err != nil {
		return err
	}

	result, err := w.image.Compare(ctx, original, reproduced)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return models.NewCheckError(models.KindImageLoad,
			fmt.Sprintf("cannot compare image %d of %s: %v", pair.Index, unit.Name, err), pair.Reproduced.Src)
	}
	res.images[task.Unit][task.Pair] = result
	return nil
}

func kindOf(task *Task) models.ErrorKind {
	if task.Kind == TaskText {
		return models.KindTextCompare
	}
	return models.KindImageLoad
}

func canceled(err error) *models.CheckError {
	return models.NewCheckError(models.KindCanceled, fmt.Sprintf("check interrupted: %v", err), "")
}
