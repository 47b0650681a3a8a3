package output

import (
	"fmt"
	"io"
	"time"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer    io.Writer
	req       models.CheckRequest
	startTime time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, req models.CheckRequest) error {
	f.writer = writer
	f.req = req
	f.startTime = time.Now()

	if writer != nil {
		if req.DirectoryMode() && req.OriginalPath() == "" {
			fmt.Fprintf(writer, "Checking papers in %s (directory mode)\n", req.MainDirectory())
		} else {
			fmt.Fprintf(writer, "Checking %s against %s (%s mode)\n",
				req.ReproducedPath(), req.OriginalPath(), req.Mode())
		}
	}
	return nil
}

// Progress reports failed units; everything else is left to the summary
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}
	if update.Type == "unit_done" && update.Error != nil {
		fmt.Fprintf(f.writer, "[%d/%d] ✗ %s: %v\n", update.Current, update.Total, update.Unit, update.Error)
	}
	return nil
}

// Complete displays the summary of a resolved check
func (f *HumanFormatter) Complete(result *models.Metadata) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	w := f.writer
	diffs := Differences(result)

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Check completed in %s\n", time.Since(f.startTime).Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Comparison set:    %d files\n", len(result.ComparisonSet))
	fmt.Fprintf(w, "  Images compared:   %d\n", len(result.Images))
	fmt.Fprintf(w, "  Images differing:  %d\n", len(diffs))
	fmt.Fprintf(w, "  Text differences:  %d\n", result.NumTextDifferences)

	if len(diffs) > 0 {
		fmt.Fprintf(w, "\nDiffering images:\n")
		for _, d := range diffs {
			line := fmt.Sprintf("  %s #%d  %s -> %s: ", d.Document, d.Index, d.OriginalImage, d.ReproducedImage)
			if d.Method == "digest" {
				line += "content differs"
			} else {
				line += fmt.Sprintf("%d pixels (%.2f%%)", d.Pixels, d.Percentage)
			}
			if !d.DimensionsMatch {
				line += ", dimensions differ"
			}
			fmt.Fprintln(w, line)
		}
	}

	if f.req.SaveDiffHTML() || f.req.SaveMetadataJSON() {
		fmt.Fprintf(w, "\nSaved:\n")
		if f.req.SaveDiffHTML() {
			fmt.Fprintf(w, "  %s\n", f.req.DiffFilePath())
		}
		if f.req.SaveMetadataJSON() {
			fmt.Fprintf(w, "  %s\n", f.req.MetadataFilePath())
		}
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Result: %s\n", verdictText(models.VerdictOf(result, nil)))
	return nil
}

// Error reports a rejected check with every collected error
func (f *HumanFormatter) Error(err error) error {
	if f.writer == nil {
		return nil
	}
	errs := errorsOf(err)
	fmt.Fprintf(f.writer, "\nCheck rejected (%d errors):\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(f.writer, "  %s\n", e.Error())
	}
	fmt.Fprintf(f.writer, "\nResult: %s\n", verdictText(models.VerdictRejected))
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func verdictText(v models.Verdict) string {
	switch v {
	case models.VerdictEqual:
		return "original and reproduced papers match"
	case models.VerdictDifferent:
		return "differences found"
	default:
		return "check rejected"
	}
}
