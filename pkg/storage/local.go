package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is a filesystem-based storage backend
type Local struct {
	root string
}

// NewLocal creates a backend rooted at the existing directory root
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("failed to access path: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("path is not a directory: %s", abs)
	}

	return &Local{root: abs}, nil
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.root
}

func (l *Local) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.root, path)
}

// List walks path recursively. The listed directory itself is not returned.
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	dir := l.abs(path)
	var entries []FileInfo

	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		entries = append(entries, FileInfo{
			Path:         p,
			RelativePath: rel,
			Size:         info.Size(),
			ModTime:      info.ModTime(),
			IsDir:        d.IsDir(),
		})
		return nil
	}

	// WalkDir visits entries in lexical order
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return entries, nil
}

// ReadFile returns the content of a file
func (l *Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.abs(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Write stores the content in a temporary file next to path and renames
// it into place. The parent directory must already exist.
func (l *Local) Write(ctx context.Context, path string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := l.abs(path)

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.abs(path))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.abs(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
