package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath normalizes a path for the current platform
func NormalizePath(path string) string {
	// Convert to platform-specific separators
	normalized := filepath.Clean(filepath.FromSlash(path))

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// IsAbsolute checks if a path is absolute
func IsAbsolute(path string) bool {
	if IsUNCPath(path) {
		return true
	}
	return filepath.IsAbs(path)
}

// ResolveAgainst returns path as an absolute path.
// Relative paths are interpreted against base, which itself may be relative to the working directory.
func ResolveAgainst(base, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	p := NormalizePath(path)
	if !IsAbsolute(p) {
		if base == "" {
			base = "."
		}
		p = filepath.Join(NormalizePath(base), p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	return abs, nil
}

// RelSlash returns target relative to base using forward slashes.
// Targets outside base are returned as cleaned slash paths unchanged.
func RelSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(target))
	}
	return filepath.ToSlash(rel)
}

// HasSuffixFold reports whether path ends with suffix, ignoring case
func HasSuffixFold(path, suffix string) bool {
	if len(path) < len(suffix) {
		return false
	}
	return strings.EqualFold(path[len(path)-len(suffix):], suffix)
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}
	if strings.ContainsRune(path, 0) {
		return &PathError{Path: path, Message: "path contains a NUL byte"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) && !IsUNCPath(path) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
