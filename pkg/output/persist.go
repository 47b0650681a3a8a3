package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/o2r-project/erc-checker/pkg/logging"
	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/report"
	"github.com/o2r-project/erc-checker/pkg/storage"
)

// Persister writes the diff document and metadata of a resolved check
type Persister struct {
	logger logging.Logger
}

// NewPersister creates a persister
func NewPersister(logger logging.Logger) *Persister {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Persister{logger: logger}
}

// Persist writes the artifacts requested by req into dir and returns the
// written paths. A missing dir is created only when create is set.
// Failures are *models.CheckError values of kind OutputWriteError.
func (p *Persister) Persist(ctx context.Context, req models.CheckRequest, dir string, create bool, m *models.Metadata) ([]string, error) {
	if !req.Persists() {
		return nil, nil
	}

	if create {
		if err := ensureDir(ctx, dir); err != nil {
			return nil, writeError(fmt.Sprintf("cannot create output directory: %v", err), dir)
		}
	}

	backend, err := storage.NewLocal(dir)
	if err != nil {
		return nil, writeError(fmt.Sprintf("output directory is not usable: %v", err), dir)
	}
	defer backend.Close()

	var written []string
	if req.SaveDiffHTML() {
		if err := backend.Write(ctx, req.OutFileName(), strings.NewReader(m.Display.Diff)); err != nil {
			return written, writeError(fmt.Sprintf("cannot write diff document: %v", err), filepath.Join(dir, req.OutFileName()))
		}
		written = append(written, filepath.Join(backend.Root(), req.OutFileName()))
	}

	if req.SaveMetadataJSON() {
		data, err := report.EncodeMetadata(m)
		if err != nil {
			return written, writeError(err.Error(), dir)
		}
		if err := backend.Write(ctx, models.MetadataFileName, bytes.NewReader(data)); err != nil {
			return written, writeError(fmt.Sprintf("cannot write metadata: %v", err), filepath.Join(dir, models.MetadataFileName))
		}
		written = append(written, filepath.Join(backend.Root(), models.MetadataFileName))
	}

	p.logger.Info(ctx, "check results saved", logging.Fields{
		"output_dir": dir,
		"files":      len(written),
	})
	return written, nil
}

// ensureDir creates dir below its nearest existing ancestor
func ensureDir(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	ancestor := abs
	for {
		if info, err := os.Stat(ancestor); err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", ancestor)
			}
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return fmt.Errorf("no existing ancestor of %s", abs)
		}
		ancestor = parent
	}
	if ancestor == abs {
		return nil
	}

	backend, err := storage.NewLocal(ancestor)
	if err != nil {
		return err
	}
	defer backend.Close()

	rel, err := filepath.Rel(ancestor, abs)
	if err != nil {
		return err
	}
	return backend.MkdirAll(ctx, rel)
}

func writeError(msg, path string) *models.CheckError {
	return models.NewCheckError(models.KindOutputWrite, msg, path)
}
