// Package check runs the comparison of an original and a reproduced paper:
// it resolves the inputs, builds the comparison set, dispatches the text
// and image comparators and aggregates their results into Metadata.
package check

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/o2r-project/erc-checker/pkg/collect"
	"github.com/o2r-project/erc-checker/pkg/compare"
	"github.com/o2r-project/erc-checker/pkg/logging"
	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/output"
	"github.com/o2r-project/erc-checker/pkg/report"
	"github.com/o2r-project/erc-checker/pkg/resolve"
	"github.com/o2r-project/erc-checker/pkg/storage"
)

// Observer receives the progress of a check.
// UnitDone may be called concurrently.
type Observer interface {
	StateChanged(from, to models.CheckState)
	UnitsDispatched(total int)
	UnitDone(unit string, err error)
}

// Persister stores the artifacts of a resolved check
type Persister interface {
	Persist(ctx context.Context, req models.CheckRequest, dir string, create bool, m *models.Metadata) ([]string, error)
}

type nopObserver struct{}

func (nopObserver) StateChanged(from, to models.CheckState) {}
func (nopObserver) UnitsDispatched(total int)               {}
func (nopObserver) UnitDone(unit string, err error)         {}

// Engine runs checks. It holds no per-check state; concurrent Run calls are safe.
type Engine struct {
	logger       logging.Logger
	observer     Observer
	text         compare.TextComparer
	image        compare.ImageComparer
	persister    Persister
	cacheEntries int
	renderAlways bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver sets the progress observer
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observer = observer }
}

// WithTextComparer replaces the text comparator
func WithTextComparer(c compare.TextComparer) Option {
	return func(e *Engine) { e.text = c }
}

// WithImageComparer replaces the image comparator built from each request
func WithImageComparer(c compare.ImageComparer) Option {
	return func(e *Engine) { e.image = c }
}

// WithPersister replaces the file persister
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persister = p }
}

// WithCacheEntries bounds the per-check image cache
func WithCacheEntries(n int) Option {
	return func(e *Engine) { e.cacheEntries = n }
}

// WithDiffRendering renders display.diff even when the diff document is not saved
func WithDiffRendering(enabled bool) Option {
	return func(e *Engine) { e.renderAlways = enabled }
}

// NewEngine creates an engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		observer:     nopObserver{},
		text:         compare.NewTextComparator(),
		cacheEntries: compare.DefaultCacheEntries,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNullLogger()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.persister == nil {
		e.persister = output.NewPersister(e.logger)
	}
	return e
}

// Run performs one check. A non-nil error is always a *models.Rejection;
// a nil error comes with complete Metadata, whether or not differences
// were found.
func (e *Engine) Run(ctx context.Context, req models.CheckRequest) (*models.Metadata, error) {
	r := &run{
		engine: e,
		req:    req,
		logger: logging.ForCheck(e.logger, uuid.NewString(), req.ERCID()),
		state:  models.StateStart,
	}
	return r.execute(ctx)
}

// run is the state of one invocation
type run struct {
	engine *Engine
	req    models.CheckRequest
	logger logging.Logger
	state  models.CheckState
}

func (r *run) execute(ctx context.Context) (*models.Metadata, error) {
	e := r.engine
	startTime := time.Now()
	r.logger.Info(ctx, "check started", logging.Fields{
		"mode":        r.req.Mode(),
		"max_workers": r.req.MaxWorkers(),
	})

	r.transition(ctx, models.StateResolving)
	roots, err := resolve.New(r.logger).Resolve(ctx, r.req)
	if err != nil {
		return r.reject(ctx, err, models.KindInvalidPath)
	}

	r.transition(ctx, models.StateBuildingSet)
	set, err := collect.NewBuilder(r.logger).Build(ctx, r.req, roots)
	if err != nil {
		return r.reject(ctx, err, models.KindInvalidPath)
	}

	r.transition(ctx, models.StateComparing)
	render := r.req.SaveDiffHTML() || e.renderAlways
	worker, err := r.newWorker(roots.BaseDir, render)
	if err != nil {
		return r.reject(ctx, err, models.KindImageLoad)
	}
	res, errs := worker.Execute(ctx, set)

	r.transition(ctx, models.StateAggregating)
	var m *models.Metadata
	if len(errs) > 0 {
		_, err = Aggregate(set, nil, nil, errs)
	} else {
		m, err = Aggregate(set, res.images, res.texts, nil)
	}
	if err != nil {
		return r.reject(ctx, err, models.KindImageLoad)
	}

	if render {
		diff, err := report.RenderDiff(set.Units, res.texts, res.images)
		if err != nil {
			return r.reject(ctx, err, models.KindOutputWrite)
		}
		m.Display.Diff = diff
	}

	if r.req.Persists() {
		written, err := e.persister.Persist(ctx, r.req, roots.OutputDir, roots.CreateOutputDir, m)
		if err != nil {
			return r.reject(ctx, err, models.KindOutputWrite)
		}
		r.logger.Debug(ctx, "artifacts written", logging.Fields{"paths": written})
	}

	r.transition(ctx, models.StateResolved)
	r.logger.Info(ctx, "check resolved", logging.Fields{
		"successful":         m.CheckSuccessful,
		"images":             len(m.Images),
		"numTextDifferences": m.NumTextDifferences,
		"duration_ms":        time.Since(startTime).Milliseconds(),
	})
	return m, nil
}

func (r *run) newWorker(baseDir string, render bool) (*Worker, error) {
	e := r.engine
	backend, err := storage.NewLocal(baseDir)
	if err != nil {
		return nil, err
	}
	loader, err := compare.NewLoader(backend, e.cacheEntries)
	if err != nil {
		return nil, err
	}

	image := e.image
	if image == nil {
		image = compare.NewImageComparator(
			compare.WithThreshold(r.req.PixelThreshold()),
			compare.WithEqualArtifacts(render),
		)
	}

	return &Worker{
		text:       e.text,
		image:      image,
		loader:     loader,
		maxWorkers: r.req.MaxWorkers(),
		observer:   e.observer,
		logger:     r.logger,
	}, nil
}

// transition moves the check to the next state
func (r *run) transition(ctx context.Context, to models.CheckState) {
	from := r.state
	if !from.CanTransition(to) {
		r.logger.Warn(ctx, "unexpected state transition", logging.Fields{"from": from, "to": to})
	}
	r.state = to
	r.logger.Debug(ctx, "state changed", logging.Fields{"from": from, "to": to})
	r.engine.observer.StateChanged(from, to)
}

// reject ends the check with every error carried by err
func (r *run) reject(ctx context.Context, err error, fallback models.ErrorKind) (*models.Metadata, error) {
	var errs []*models.CheckError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		errs = []*models.CheckError{canceled(err)}
	} else {
		errs = models.AsCheckErrors(err, fallback, "")
	}

	r.transition(ctx, models.StateRejected)
	r.logger.Warn(ctx, "check rejected", logging.Fields{
		"errors": len(errs),
		"first":  errs[0].Error(),
	})
	return nil, models.Reject(errs...)
}
