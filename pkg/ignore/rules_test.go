package ignore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/storage"
)

func mustRules(t *testing.T, exts []string, content string) *Rules {
	t.Helper()
	r, err := New(exts, ".ercignore", []byte(content))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestInclude_Suffixes(t *testing.T) {
	tests := []struct {
		name string
		exts []string
		path string
		want bool
	}{
		{"HTML", []string{".html", ".htm"}, "paper.html", true},
		{"HTM", []string{".html", ".htm"}, "paper.htm", true},
		{"UpperCase", []string{".html"}, "PAPER.HTML", true},
		{"NoDot", []string{"html"}, "sub/paper.html", true},
		{"Rejected", []string{".html", ".htm"}, "figure.png", false},
		{"AcceptAll", []string{"*"}, "figure.png", true},
		{"AcceptAllDotStar", []string{".*"}, "notes.txt", true},
		{"NoExtensions", nil, "paper.html", false},
		{"EmptyPath", []string{"*"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRules(t, tt.exts, "")
			if got := r.Include(tt.path); got != tt.want {
				t.Errorf("Include(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestInclude_Patterns(t *testing.T) {
	content := strings.Join([]string{
		"# generated files",
		"",
		"false_positive_dir",
		"data/",
		"*.log",
		"**/cache/*",
		"/draft.html",
		"build/tmp",
	}, "\n")
	r := mustRules(t, []string{"*"}, content)

	tests := []struct {
		path string
		want bool
	}{
		{"paper.html", true},
		{"false_positive_dir/paper.html", false},
		{"sub/false_positive_dir/deep/x.html", false},
		{"false_positive_dir_not/x.html", true},
		{"data/table.csv", false},
		{"sub/data/table.csv", false},
		{"data", true}, // a file named like a directory pattern
		{"run.log", false},
		{"logs/run.log", false},
		{"a/cache/b.png", false},
		{"draft.html", false},
		{"sub/draft.html", true},
		{"build/tmp/out.html", false},
		{"build/tmpfile.html", true},
		{".ercignore", false},
		{"./paper.html", true},
		{`windows\data\x.html`, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := r.Include(tt.path); got != tt.want {
				t.Errorf("Include(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	if r.Patterns() != 6 {
		t.Errorf("Patterns() = %d, want 6", r.Patterns())
	}
}

func TestInclude_IgnoreFileApplies_WithAcceptAll(t *testing.T) {
	r := mustRules(t, []string{"*"}, "figures/\n")
	if r.Include("figures/a.png") {
		t.Error("ignore-file exclusion must still apply when every suffix is accepted")
	}
	if !r.Include("figures.png") {
		t.Error("figures.png should be included")
	}
}

func TestNew_MalformedPatterns(t *testing.T) {
	content := "ok.html\n[unclosed\n# fine\n{a,b\n/\n"

	_, err := New([]string{".html"}, ".ercignore", []byte(content))

	var rej *models.Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("New() error = %v, want *Rejection", err)
	}
	if len(rej.Errors) != 3 {
		t.Fatalf("len(Errors) = %d, want 3: %v", len(rej.Errors), rej)
	}
	for i, wantLine := range []string{"line 2", "line 4", "line 5"} {
		e := rej.Errors[i]
		if e.Kind != models.KindIgnoreFileParse {
			t.Errorf("Errors[%d].Kind = %s, want %s", i, e.Kind, models.KindIgnoreFileParse)
		}
		if !strings.Contains(e.Message, wantLine) {
			t.Errorf("Errors[%d].Message = %q, want it to contain %q", i, e.Message, wantLine)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".ercignore"), []byte("skip/\n"), 0644); err != nil {
		t.Fatalf("failed to write ignore-file: %v", err)
	}
	backend, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	t.Run("Present", func(t *testing.T) {
		r, err := Load(ctx, backend, ".ercignore", []string{".html"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if r.Include("skip/a.html") {
			t.Error("skip/a.html should be excluded")
		}
		if !r.Include("keep/a.html") {
			t.Error("keep/a.html should be included")
		}
	})

	t.Run("AbsoluteIgnoreFilePath", func(t *testing.T) {
		r, err := Load(ctx, backend, filepath.Join(dir, ".ercignore"), []string{"*"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if r.Include(".ercignore") {
			t.Error("the ignore-file itself must never be included")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		r, err := Load(ctx, backend, "absent.ignore", []string{".html"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if r.Patterns() != 0 {
			t.Errorf("Patterns() = %d, want 0", r.Patterns())
		}
	})

	t.Run("MalformedCarriesPath", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "bad.ignore"), []byte("[x\n"), 0644)

		_, err := Load(ctx, backend, "bad.ignore", []string{".html"})
		var rej *models.Rejection
		if !errors.As(err, &rej) || !rej.Has(models.KindIgnoreFileParse) {
			t.Fatalf("Load() error = %v, want IgnoreFileParseError", err)
		}
		if rej.Errors[0].Path != "bad.ignore" {
			t.Errorf("Path = %q, want bad.ignore", rej.Errors[0].Path)
		}
	})
}
