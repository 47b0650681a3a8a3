package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestTree creates a temp dir populated with files
func newTestTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return dir
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		tempDir := t.TempDir()

		local, err := NewLocal(tempDir)
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}
		defer local.Close()

		if local.Root() != tempDir {
			t.Errorf("Root() = %s, want %s", local.Root(), tempDir)
		}
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		_, err := NewLocal("/nonexistent/path/that/does/not/exist")
		if err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		dir := newTestTree(t, map[string]string{"file.html": "x"})

		_, err := NewLocal(filepath.Join(dir, "file.html"))
		if err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

// TestLocalList tests the List method
func TestLocalList(t *testing.T) {
	dir := newTestTree(t, map[string]string{
		"b.html":            "b",
		"a.html":            "a",
		"subdir/c.html":     "c",
		"subdir/img/d.png":  "d",
		"zzz/ignored/e.txt": "e",
	})

	local, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	t.Run("ListAll", func(t *testing.T) {
		files, err := local.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		var names []string
		for _, f := range files {
			if !f.IsDir {
				names = append(names, filepath.ToSlash(f.RelativePath))
			}
		}
		got := strings.Join(names, ",")
		want := "a.html,b.html,subdir/c.html,subdir/img/d.png,zzz/ignored/e.txt"
		if got != want {
			t.Errorf("List() files = %s, want %s", got, want)
		}
	})

	t.Run("RootNotListed", func(t *testing.T) {
		files, err := local.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, f := range files {
			if f.RelativePath == "." {
				t.Error("List() should not include the listed directory itself")
			}
		}
	})

	t.Run("ListSubdir", func(t *testing.T) {
		files, err := local.List(ctx, "subdir")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(files) != 3 {
			t.Errorf("List(subdir) = %d entries, want 3 (c.html, img, img/d.png)", len(files))
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := local.List(cancelled, "")
		if err == nil {
			t.Error("List() should fail with cancelled context")
		}
	})
}

// TestLocalReadFile tests ReadFile
func TestLocalReadFile(t *testing.T) {
	dir := newTestTree(t, map[string]string{"paper.html": "<p>hello</p>"})
	local, _ := NewLocal(dir)
	ctx := context.Background()

	t.Run("Relative", func(t *testing.T) {
		content, err := local.ReadFile(ctx, "paper.html")
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(content) != "<p>hello</p>" {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("Absolute", func(t *testing.T) {
		content, err := local.ReadFile(ctx, filepath.Join(dir, "paper.html"))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(content) != "<p>hello</p>" {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := local.ReadFile(ctx, "missing.html"); err == nil {
			t.Error("ReadFile() should fail for non-existent file")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := local.ReadFile(cancelled, "paper.html"); err == nil {
			t.Error("ReadFile() should fail with cancelled context")
		}
	})
}

// TestLocalWrite tests the Write method
func TestLocalWrite(t *testing.T) {
	dir := t.TempDir()
	local, _ := NewLocal(dir)
	ctx := context.Background()

	t.Run("WriteNewFile", func(t *testing.T) {
		if err := local.Write(ctx, "out.html", bytes.NewReader([]byte("diff"))); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		content, _ := os.ReadFile(filepath.Join(dir, "out.html"))
		if string(content) != "diff" {
			t.Errorf("content = %q, want diff", content)
		}
	})

	t.Run("OverwriteFile", func(t *testing.T) {
		if err := local.Write(ctx, "out.html", strings.NewReader("second")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		content, _ := os.ReadFile(filepath.Join(dir, "out.html"))
		if string(content) != "second" {
			t.Errorf("content = %q, want second", content)
		}
	})

	t.Run("NoTemporaryFilesLeft", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != "out.html" {
			t.Errorf("directory holds %d entries, want only out.html", len(entries))
		}
	})

	t.Run("MissingParentFails", func(t *testing.T) {
		if err := local.Write(ctx, "missing/out.html", strings.NewReader("x")); err == nil {
			t.Error("Write() should fail when the parent directory does not exist")
		}
	})
}

// TestLocalExists tests the Exists method
func TestLocalExists(t *testing.T) {
	dir := newTestTree(t, map[string]string{"sub/file.html": "x"})
	local, _ := NewLocal(dir)
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"sub/file.html", true},
		{"sub", true},
		{"nope.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := local.Exists(ctx, tt.path)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// TestLocalMkdirAll tests the MkdirAll method
func TestLocalMkdirAll(t *testing.T) {
	dir := t.TempDir()
	local, _ := NewLocal(dir)
	ctx := context.Background()

	if err := local.MkdirAll(ctx, "a/b/c"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "a", "b", "c"))
	if err != nil || !info.IsDir() {
		t.Errorf("nested directory was not created: %v", err)
	}

	if err := local.MkdirAll(ctx, "a/b/c"); err != nil {
		t.Errorf("MkdirAll() on existing dir error = %v", err)
	}
}

// TestBackendInterface verifies Local implements Backend
func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
}
