package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer    io.Writer
	req       models.CheckRequest
	startTime time.Time
}

// JSONReportData is the single document written per check
type JSONReportData struct {
	Verdict     string               `json:"verdict"`
	Mode        string               `json:"mode"`
	ERCID       string               `json:"erc_id,omitempty"`
	Duration    string               `json:"duration"`
	DurationMs  int64                `json:"duration_ms"`
	Differences []ImageDifference    `json:"differences,omitempty"`
	Metadata    *models.Metadata     `json:"metadata,omitempty"`
	Errors      []*models.CheckError `json:"errors,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, req models.CheckRequest) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.req = req
	f.startTime = time.Now()
	return nil
}

// Progress is ignored to keep the output a single parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report of a resolved check
func (f *JSONFormatter) Complete(result *models.Metadata) error {
	data := f.base(models.VerdictOf(result, nil))
	data.Differences = Differences(result)
	data.Metadata = result
	return f.encode(data)
}

// Error writes the report of a rejected check
func (f *JSONFormatter) Error(err error) error {
	data := f.base(models.VerdictRejected)
	data.Errors = errorsOf(err)
	return f.encode(data)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) base(v models.Verdict) JSONReportData {
	d := time.Since(f.startTime)
	return JSONReportData{
		Verdict:    string(v),
		Mode:       f.req.Mode(),
		ERCID:      f.req.ERCID(),
		Duration:   d.Round(time.Millisecond).String(),
		DurationMs: d.Milliseconds(),
	}
}

func (f *JSONFormatter) encode(data JSONReportData) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}
