package output

import (
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/o2r-project/erc-checker/pkg/models"
)

const progressTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{etime . }}`

// termCheck reports whether fd is a terminal
var termCheck = term.IsTerminal

// getRefreshRate returns the bar refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences
func getRefreshRate() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter shows a progress bar over the comparison units of a
// check and prints the human summary when the check ends
type ProgressFormatter struct {
	*HumanFormatter

	mu        sync.Mutex
	bar       *pb.ProgressBar
	termWidth int
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{HumanFormatter: NewHumanFormatter()}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, req models.CheckRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}

	// Detect terminal width to prevent line wrapping issues
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}
	if f.termWidth == 0 {
		f.termWidth = 120
	}

	return f.HumanFormatter.Start(writer, req)
}

// Progress drives the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case "units":
		f.finishBar()
		f.bar = pb.ProgressBarTemplate(progressTemplate).New(update.Total)
		f.bar.SetWriter(f.writer)
		f.bar.SetRefreshRate(getRefreshRate())
		f.bar.SetMaxWidth(f.termWidth)
		f.bar.Set(pb.Terminal, isTerminal(f.writer))
		f.bar.Set("prefix", "comparing")
		f.bar.Start()

	case "unit_done":
		if f.bar != nil {
			f.bar.Increment()
		}

	case "state":
		if f.bar != nil {
			f.bar.Set("prefix", string(update.State))
		}
		if update.State.Terminal() {
			f.finishBar()
		}
	}
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(result *models.Metadata) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()
	return f.HumanFormatter.Complete(result)
}

// Error stops the bar and prints the rejection
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()
	return f.HumanFormatter.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

func (f *ProgressFormatter) finishBar() {
	if f.bar != nil && f.bar.IsStarted() && !f.bar.IsFinished() {
		f.bar.Finish()
	}
}
