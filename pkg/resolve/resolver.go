// Package resolve turns the caller-supplied paths of a check into
// absolute, existing roots before any comparison work starts.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/o2r-project/erc-checker/internal/platform"
	"github.com/o2r-project/erc-checker/pkg/logging"
	"github.com/o2r-project/erc-checker/pkg/models"
)

// Roots are the resolved locations of one check
type Roots struct {
	DirectoryMode bool

	// BaseDir is the absolute comparison base directory
	BaseDir string

	// Original and Reproduced are absolute files (file mode) or directories
	Original   string
	Reproduced string

	// OutputDir is the absolute output directory, empty when nothing is persisted
	OutputDir string

	// CreateOutputDir is set when OutputDir does not exist yet and may be created
	CreateOutputDir bool
}

// Resolver validates and normalizes the roots of a check
type Resolver struct {
	logger logging.Logger
}

// New creates a resolver
func New(logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Resolver{logger: logger}
}

// Resolve checks every path of req and collects all failures.
// The error, if any, is a *models.Rejection.
func (r *Resolver) Resolve(ctx context.Context, req models.CheckRequest) (*Roots, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Reject(models.NewCheckError(models.KindCanceled, err.Error(), ""))
	}

	var errs []*models.CheckError
	roots := &Roots{DirectoryMode: req.DirectoryMode()}

	base, err := platform.ResolveAgainst(".", req.BaseDir())
	if err == nil {
		err = requireDir(base)
	}
	if err != nil {
		return nil, models.Reject(models.NewCheckError(models.KindInvalidPath,
			fmt.Sprintf("comparison base directory %s is not usable: %v", req.BaseDir(), cause(err)), req.BaseDir()))
	}
	roots.BaseDir = base

	original, reproduced := req.OriginalPath(), req.ReproducedPath()
	if req.DirectoryMode() && req.MainDirectory() != "" && (original == "" || reproduced == "") {
		o, p, err := discoverPapers(base, req.MainDirectory())
		if err != nil {
			return nil, models.Reject(models.NewCheckError(models.KindInvalidPath, err.Error(), req.MainDirectory()))
		}
		r.logger.Debug(ctx, "discovered paper directories", logging.Fields{
			"main_directory": req.MainDirectory(),
			"original":       o,
			"reproduced":     p,
		})
		original, reproduced = o, p
	}

	check := requireFile
	kind := "file"
	if req.DirectoryMode() {
		check = requireDir
		kind = "directory"
	}

	resolveSide := func(role, supplied string) string {
		abs, err := platform.ResolveAgainst(base, supplied)
		if err == nil {
			err = check(abs)
		}
		if err != nil {
			errs = append(errs, models.NewCheckError(models.KindInvalidPath,
				fmt.Sprintf("%s %s %s is not usable: %v", role, kind, supplied, cause(err)), supplied))
			return ""
		}
		return abs
	}
	roots.Original = resolveSide("original", original)
	roots.Reproduced = resolveSide("reproduced", reproduced)

	if req.Persists() {
		out, create, err := resolveOutputDir(req.OutputDir(), req.CreateParents())
		if err != nil {
			errs = append(errs, models.NewCheckError(models.KindOutputWrite, err.Error(), req.OutputDir()))
		}
		roots.OutputDir = out
		roots.CreateOutputDir = create
	}

	if len(errs) > 0 {
		return nil, models.Reject(errs...)
	}

	r.logger.Debug(ctx, "resolved roots", logging.Fields{
		"base_dir":   roots.BaseDir,
		"original":   roots.Original,
		"reproduced": roots.Reproduced,
		"mode":       req.Mode(),
	})
	return roots, nil
}

// discoverPapers finds the two paper directories below mainDir.
// The first in lexical order is the original.
func discoverPapers(base, mainDir string) (string, string, error) {
	abs, err := platform.ResolveAgainst(base, mainDir)
	if err == nil {
		err = requireDir(abs)
	}
	if err != nil {
		return "", "", fmt.Errorf("main directory %s is not usable: %v", mainDir, cause(err))
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", "", fmt.Errorf("main directory %s cannot be read: %v", mainDir, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)

	if len(dirs) != 2 {
		return "", "", fmt.Errorf("main directory %s must contain exactly two paper directories, found %d", mainDir, len(dirs))
	}
	return filepath.Join(abs, dirs[0]), filepath.Join(abs, dirs[1]), nil
}

// resolveOutputDir checks the output directory.
// A missing directory is only acceptable when it may be created.
func resolveOutputDir(dir string, createParents bool) (string, bool, error) {
	abs, err := platform.ResolveAgainst(".", dir)
	if err != nil {
		return "", false, fmt.Errorf("output directory %s is invalid: %v", dir, cause(err))
	}

	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		if !createParents {
			return abs, false, fmt.Errorf("output directory %s does not exist and creating it was not permitted", dir)
		}
		return abs, true, nil
	case err != nil:
		return abs, false, fmt.Errorf("output directory %s is not accessible: %v", dir, err)
	case !info.IsDir():
		return abs, false, fmt.Errorf("output path %s exists but is not a directory", dir)
	}
	return abs, false, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

// cause strips the path prefix of os errors, the message names the path already
func cause(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
