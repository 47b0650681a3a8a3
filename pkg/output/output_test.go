package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/report"
)

func newRequest(t *testing.T, opts models.RequestOptions) models.CheckRequest {
	t.Helper()
	if opts.OriginalPath == "" {
		opts.OriginalPath = "original/paper.html"
		opts.ReproducedPath = "reproduced/paper.html"
	}
	req, err := models.NewCheckRequest(opts)
	if err != nil {
		t.Fatalf("NewCheckRequest() error = %v", err)
	}
	return req
}

func sampleResult() *models.Metadata {
	m := &models.Metadata{
		ComparisonSet: []string{"original/paper.html", "reproduced/paper.html"},
		Images: []models.ImageResult{
			{Index: 1, Document: "original/paper.html", OriginalImage: "a.png", ReproducedImage: "a.png",
				CompareResults: models.ImageCompareStats{Method: "digest", DimensionsMatch: true}},
			{Index: 2, Document: "original/paper.html", OriginalImage: "b.png", ReproducedImage: "b.png",
				CompareResults: models.ImageCompareStats{Differences: 40, PixelsTotal: 400, DiffPercentage: 10, DimensionsMatch: true, Method: "pixel"}},
			{Index: 3, Document: "original/paper.html", OriginalImage: "c.svg", ReproducedImage: "c.svg",
				CompareResults: models.ImageCompareStats{Differences: 1, DiffPercentage: 100, Method: "digest"}},
		},
		NumTextDifferences: 2,
		Display:            models.Display{Diff: "<html></html>"},
		Errors:             []*models.CheckError{},
	}
	m.CheckSuccessful = m.Successful()
	return m
}

func TestDifferences(t *testing.T) {
	diffs := Differences(sampleResult())
	if len(diffs) != 2 {
		t.Fatalf("Differences() = %d entries, want 2", len(diffs))
	}
	if diffs[0].Index != 2 || diffs[1].Index != 3 {
		t.Errorf("Differences() order = %d,%d, want 2,3", diffs[0].Index, diffs[1].Index)
	}
	if diffs[0].Pixels != 40 || diffs[0].Percentage != 10 {
		t.Errorf("Differences()[0] = %+v", diffs[0])
	}
}

func TestHumanFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	req := newRequest(t, models.RequestOptions{OutputDir: "out", SaveDiffHTML: true})

	if err := f.Start(&buf, req); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.Complete(sampleResult()); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Checking reproduced/paper.html against original/paper.html (file mode)",
		"Images compared:   3",
		"Images differing:  2",
		"Text differences:  2",
		"#2  b.png -> b.png: 40 pixels (10.00%)",
		"#3  c.svg -> c.svg: content differs, dimensions differ",
		filepath.Join("out", "diffHTML.html"),
		"Result: differences found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "metadata.json") {
		t.Error("metadata.json was not requested and should not be listed")
	}
}

func TestHumanFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	f.Start(&buf, newRequest(t, models.RequestOptions{}))

	rej := models.Reject(
		models.NewCheckError(models.KindInvalidPath, "original file a.html is not usable", "a.html"),
		models.NewCheckError(models.KindInvalidPath, "reproduced file b.html is not usable", "b.html"),
	)
	f.Error(rej)

	out := buf.String()
	if !strings.Contains(out, "Check rejected (2 errors)") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "InvalidPathError: reproduced file b.html is not usable") {
		t.Errorf("second error missing from %q", out)
	}
	if !strings.Contains(out, "Result: check rejected") {
		t.Errorf("verdict missing from %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewJSONFormatter()
		f.Start(&buf, newRequest(t, models.RequestOptions{ERCID: "erc-1"}))
		f.Progress(ProgressUpdate{Type: "units", Total: 3})
		if err := f.Complete(sampleResult()); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}

		var data JSONReportData
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("output is not a single JSON document: %v", err)
		}
		if data.Verdict != "different" || data.Mode != "file" || data.ERCID != "erc-1" {
			t.Errorf("report = %+v", data)
		}
		if len(data.Differences) != 2 || data.Metadata == nil || len(data.Metadata.Images) != 3 {
			t.Errorf("report content incomplete: %+v", data)
		}
		if !strings.Contains(buf.String(), `"diff": "<html></html>"`) {
			t.Error("HTML in the diff should not be escaped")
		}
	})

	t.Run("Error", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewJSONFormatter()
		f.Start(&buf, newRequest(t, models.RequestOptions{}))
		f.Error(models.Reject(models.NewCheckError(models.KindUnequalImageCount, "unequal number of images", "")))

		var data JSONReportData
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if data.Verdict != "rejected" || len(data.Errors) != 1 || data.Metadata != nil {
			t.Errorf("report = %+v", data)
		}
		if data.Errors[0].Kind != models.KindUnequalImageCount {
			t.Errorf("kind = %s", data.Errors[0].Kind)
		}
	})

	t.Run("PlainError", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewJSONFormatter()
		f.Start(&buf, newRequest(t, models.RequestOptions{}))
		f.Error(errors.New("boom"))

		var data JSONReportData
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(data.Errors) != 1 || data.Errors[0].Message != "boom" {
			t.Errorf("errors = %+v", data.Errors)
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		format   string
		progress bool
		want     string
		wantErr  bool
	}{
		{"human", false, "human", false},
		{"", false, "human", false},
		{"human", true, "human", false}, // a buffer is not a terminal
		{"json", true, "json", false},
		{"xml", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.want, func(t *testing.T) {
			f, err := New(tt.format, tt.progress, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f.Name() != tt.want {
				t.Errorf("New() = %s, want %s", f.Name(), tt.want)
			}
		})
	}
}

// recordingFormatter captures progress updates
type recordingFormatter struct {
	HumanFormatter
	mu      sync.Mutex
	updates []ProgressUpdate
}

func (r *recordingFormatter) Progress(update ProgressUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	return nil
}

func TestObserver(t *testing.T) {
	rec := &recordingFormatter{}
	obs := NewObserver(rec)

	obs.StateChanged(models.StateStart, models.StateComparing)
	obs.UnitsDispatched(50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs.UnitDone("unit", nil)
		}()
	}
	wg.Wait()

	if len(rec.updates) != 52 {
		t.Fatalf("updates = %d, want 52", len(rec.updates))
	}
	if rec.updates[0].State != models.StateComparing {
		t.Errorf("first update = %+v", rec.updates[0])
	}

	seen := make(map[int]bool)
	for _, u := range rec.updates[2:] {
		if u.Total != 50 {
			t.Errorf("Total = %d, want 50", u.Total)
		}
		seen[u.Current] = true
	}
	if len(seen) != 50 {
		t.Errorf("Current values should be distinct, got %d", len(seen))
	}
}

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()
	f.Start(&buf, newRequest(t, models.RequestOptions{}))

	f.Progress(ProgressUpdate{Type: "units", Total: 2})
	f.Progress(ProgressUpdate{Type: "unit_done", Current: 1, Total: 2})
	f.Progress(ProgressUpdate{Type: "unit_done", Current: 2, Total: 2})
	f.Progress(ProgressUpdate{Type: "state", State: models.StateResolved})

	if !f.bar.IsFinished() {
		t.Error("bar should be finished once the check resolves")
	}
	if f.bar.Current() != 2 {
		t.Errorf("bar current = %d, want 2", f.bar.Current())
	}

	if err := f.Complete(sampleResult()); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Result: differences found") {
		t.Errorf("summary missing from %q", buf.String())
	}
}

func TestPersister(t *testing.T) {
	ctx := context.Background()
	result := sampleResult()

	t.Run("WritesBothArtifacts", func(t *testing.T) {
		dir := t.TempDir()
		req := newRequest(t, models.RequestOptions{
			OutputDir: dir, SaveDiffHTML: true, SaveMetadataJSON: true, OutFileName: "custom.html",
		})

		written, err := NewPersister(nil).Persist(ctx, req, dir, false, result)
		if err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
		if len(written) != 2 {
			t.Fatalf("written = %v", written)
		}

		diff, err := os.ReadFile(filepath.Join(dir, "custom.html"))
		if err != nil || string(diff) != result.Display.Diff {
			t.Errorf("diff document = %q, %v", diff, err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
		if err != nil {
			t.Fatalf("metadata.json not written: %v", err)
		}
		decoded, err := report.DecodeMetadata(data)
		if err != nil {
			t.Fatalf("DecodeMetadata() error = %v", err)
		}
		if !reflect.DeepEqual(decoded, result) {
			t.Errorf("persisted metadata differs:\n got %+v\nwant %+v", decoded, result)
		}
	})

	t.Run("MetadataOnly", func(t *testing.T) {
		dir := t.TempDir()
		req := newRequest(t, models.RequestOptions{OutputDir: dir, SaveMetadataJSON: true})

		if _, err := NewPersister(nil).Persist(ctx, req, dir, false, result); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "diffHTML.html")); !os.IsNotExist(err) {
			t.Error("diff document was not requested")
		}
	})

	t.Run("CreatesMissingDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b", "c")
		req := newRequest(t, models.RequestOptions{OutputDir: dir, SaveDiffHTML: true, CreateParentDirectories: true})

		if _, err := NewPersister(nil).Persist(ctx, req, dir, true, result); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "diffHTML.html")); err != nil {
			t.Errorf("diff document missing: %v", err)
		}
	})

	t.Run("MissingDirectoryFails", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "missing")
		req := newRequest(t, models.RequestOptions{OutputDir: dir, SaveDiffHTML: true})

		_, err := NewPersister(nil).Persist(ctx, req, dir, false, result)
		var ce *models.CheckError
		if !errors.As(err, &ce) || ce.Kind != models.KindOutputWrite {
			t.Errorf("Persist() error = %v, want OutputWriteError", err)
		}
	})

	t.Run("NothingRequested", func(t *testing.T) {
		written, err := NewPersister(nil).Persist(ctx, newRequest(t, models.RequestOptions{}), "", false, result)
		if err != nil || written != nil {
			t.Errorf("Persist() = %v, %v", written, err)
		}
	})
}
