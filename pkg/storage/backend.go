package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes one entry below a backend root
type FileInfo struct {
	// Path is the absolute path of the entry
	Path string
	// RelativePath is Path relative to the listed directory
	RelativePath string
	Size         int64
	ModTime      time.Time
	IsDir        bool
}

// Backend is the file access a check needs: walking the paper trees,
// reading documents and images, and writing the artifacts.
// Paths are relative to the backend root unless they are absolute.
type Backend interface {
	// List returns all entries below the specified directory recursively, in lexical order
	List(ctx context.Context, path string) ([]FileInfo, error)

	// ReadFile returns the full content of a file
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Write replaces the file at path with the content of reader.
	// Readers of path see either the old or the new content.
	Write(ctx context.Context, path string, reader io.Reader) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Root returns the absolute root path of the backend
	Root() string

	// Close releases any resources held by the backend
	Close() error
}
