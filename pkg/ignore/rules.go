// Package ignore decides which files take part in a check.
//
// A file is included when its name ends in one of the accepted suffixes
// and no pattern of the ignore-file excludes it. Ignore-file patterns:
//   - Plain fragments: figures, build/tmp (match whole path segments anywhere)
//   - Directory patterns: data/, .git/ (only match directories)
//   - Glob patterns: *.log, **/cache/*, fig?.png (doublestar syntax)
//   - Anchored patterns: /draft.html (match from the base directory only)
//   - Comments (#) and blank lines are skipped
package ignore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/o2r-project/erc-checker/internal/platform"
	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/storage"
)

// pattern is one parsed line of an ignore-file
type pattern struct {
	line     int
	value    string
	dirOnly  bool
	anchored bool
	glob     bool
}

// Rules is the inclusion predicate of one check.
// It is immutable and safe for concurrent use.
type Rules struct {
	extensions []string
	acceptAll  bool
	patterns   []pattern
	ignoreFile string
}

// New builds rules from accepted suffixes and ignore-file content.
// ignoreFile is the slash path of the ignore-file relative to the base
// directory; it is never included itself.
func New(extensions []string, ignoreFile string, content []byte) (*Rules, error) {
	r := &Rules{ignoreFile: cleanRel(ignoreFile)}

	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		switch ext {
		case "":
			continue
		case models.AcceptAllExtensions, ".*":
			r.acceptAll = true
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.extensions = append(r.extensions, ext)
	}

	patterns, err := parse(content)
	if err != nil {
		return nil, err
	}
	r.patterns = patterns
	return r, nil
}

// Load reads the ignore-file through backend (rooted at the base directory)
// and builds the rules. A missing ignore-file yields rules without patterns.
func Load(ctx context.Context, backend storage.Backend, ignoreFile string, extensions []string) (*Rules, error) {
	rel := ""
	var content []byte

	if ignoreFile != "" {
		rel = platform.RelSlash(backend.Root(), resolve(backend.Root(), ignoreFile))

		exists, err := backend.Exists(ctx, ignoreFile)
		if err != nil {
			return nil, models.Reject(models.NewCheckError(models.KindIgnoreFileParse,
				fmt.Sprintf("cannot access ignore-file %s: %v", ignoreFile, err), ignoreFile))
		}
		if exists {
			content, err = backend.ReadFile(ctx, ignoreFile)
			if err != nil {
				return nil, models.Reject(models.NewCheckError(models.KindIgnoreFileParse,
					fmt.Sprintf("cannot read ignore-file %s: %v", ignoreFile, err), ignoreFile))
			}
		}
	}

	rules, err := New(extensions, rel, content)
	if err != nil {
		var rej *models.Rejection
		if errors.As(err, &rej) {
			for _, e := range rej.Errors {
				e.Path = ignoreFile
			}
		}
		return nil, err
	}
	return rules, nil
}

// parse reads ignore-file content into patterns.
// Every malformed line is reported as an IgnoreFileParseError.
func parse(content []byte) ([]pattern, error) {
	var patterns []pattern
	var errs []*models.CheckError

	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.ContainsRune(line, 0) {
			errs = append(errs, models.NewCheckError(models.KindIgnoreFileParse,
				fmt.Sprintf("line %d: pattern contains a NUL byte", lineNo), ""))
			continue
		}

		p := pattern{line: lineNo}
		value := strings.ReplaceAll(line, "\\", "/")
		if strings.HasPrefix(value, "/") {
			p.anchored = true
			value = strings.TrimLeft(value, "/")
		}
		if strings.HasSuffix(value, "/") {
			p.dirOnly = true
			value = strings.TrimRight(value, "/")
		}
		value = strings.TrimPrefix(path.Clean("/"+value), "/")
		if value == "" || value == "." {
			errs = append(errs, models.NewCheckError(models.KindIgnoreFileParse,
				fmt.Sprintf("line %d: pattern %q matches nothing", lineNo, line), ""))
			continue
		}

		p.value = value
		p.glob = strings.ContainsAny(value, "*?[{")
		if p.glob && !doublestar.ValidatePattern(value) {
			errs = append(errs, models.NewCheckError(models.KindIgnoreFileParse,
				fmt.Sprintf("line %d: malformed pattern %q", lineNo, line), ""))
			continue
		}

		patterns = append(patterns, p)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, models.NewCheckError(models.KindIgnoreFileParse,
			fmt.Sprintf("line %d: %v", lineNo+1, err), ""))
	}

	if len(errs) > 0 {
		return nil, models.Reject(errs...)
	}
	return patterns, nil
}

// Include reports whether the file at relPath (relative to the base
// directory, any separator) takes part in the check
func (r *Rules) Include(relPath string) bool {
	rel := cleanRel(relPath)
	if rel == "" || rel == "." {
		return false
	}
	if r.ignoreFile != "" && rel == r.ignoreFile {
		return false
	}
	if !r.HasAcceptedSuffix(rel) {
		return false
	}
	return !r.Excluded(rel)
}

// HasAcceptedSuffix reports whether relPath ends in an accepted suffix
func (r *Rules) HasAcceptedSuffix(relPath string) bool {
	if r.acceptAll {
		return true
	}
	for _, ext := range r.extensions {
		if platform.HasSuffixFold(relPath, ext) {
			return true
		}
	}
	return false
}

// Excluded reports whether an ignore-file pattern matches relPath
func (r *Rules) Excluded(relPath string) bool {
	rel := cleanRel(relPath)
	segments := strings.Split(rel, "/")

	for _, p := range r.patterns {
		candidates := segments
		if p.dirOnly {
			// only directory segments can match a directory pattern
			candidates = segments[:len(segments)-1]
		}
		if matchSegments(p, candidates) {
			return true
		}
	}
	return false
}

// Patterns returns the number of active ignore patterns
func (r *Rules) Patterns() int {
	return len(r.patterns)
}

// matchSegments checks whether p matches a contiguous run of segments.
// Unanchored patterns may start at any segment; a match may end before
// the last segment, which excludes everything below a matched directory.
func matchSegments(p pattern, segments []string) bool {
	starts := len(segments)
	if p.anchored && starts > 0 {
		starts = 1
	}

	for i := 0; i < starts; i++ {
		for j := i + 1; j <= len(segments); j++ {
			candidate := strings.Join(segments[i:j], "/")
			if p.glob {
				if ok, _ := doublestar.Match(p.value, candidate); ok {
					return true
				}
			} else if candidate == p.value {
				return true
			}
		}
	}
	return false
}

func resolve(root, p string) string {
	abs, err := platform.ResolveAgainst(root, p)
	if err != nil {
		return p
	}
	return abs
}

func cleanRel(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean(p), "./")
}
