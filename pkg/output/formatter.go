package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// ProgressUpdate represents a progress notification during a check
type ProgressUpdate struct {
	Type    string // "state", "units", "unit_done"
	State   models.CheckState
	Unit    string
	Current int
	Total   int
	Error   error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new check
	Start(writer io.Writer, req models.CheckRequest) error

	// Progress reports progress during the check
	Progress(update ProgressUpdate) error

	// Complete displays the result of a resolved check
	Complete(result *models.Metadata) error

	// Error reports a rejected check
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for format ("human" or "json").
// With progress set, human output on a terminal gets a progress bar.
func New(format string, progress bool, writer io.Writer) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(), nil
	case "human", "":
		if progress && isTerminal(writer) {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// Observer forwards engine notifications to a formatter.
// It is safe for concurrent use.
type Observer struct {
	formatter Formatter

	mu    sync.Mutex
	done  int
	total int
}

// NewObserver creates an observer feeding f
func NewObserver(f Formatter) *Observer {
	return &Observer{formatter: f}
}

// StateChanged reports a state transition
func (o *Observer) StateChanged(from, to models.CheckState) {
	o.formatter.Progress(ProgressUpdate{Type: "state", State: to})
}

// UnitsDispatched reports the number of comparison units of the check
func (o *Observer) UnitsDispatched(total int) {
	o.mu.Lock()
	o.total = total
	o.done = 0
	o.mu.Unlock()
	o.formatter.Progress(ProgressUpdate{Type: "units", Total: total})
}

// UnitDone reports a finished comparison unit
func (o *Observer) UnitDone(unit string, err error) {
	o.mu.Lock()
	o.done++
	update := ProgressUpdate{Type: "unit_done", Unit: unit, Current: o.done, Total: o.total, Error: err}
	o.mu.Unlock()
	o.formatter.Progress(update)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && termCheck(int(file.Fd()))
}
