package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ppiankov/osmlookup/internal/merge"
	"github.com/ppiankov/osmlookup/internal/model"
	"github.com/ppiankov/osmlookup/internal/normalize"
	"github.com/ppiankov/osmlookup/internal/present"
	"golang.org/x/sync/errgroup"
)

// Locator finds the entities carrying a place name
type Locator interface {
	Locate(ctx context.Context, name string) ([]model.EntityReference, error)
}

// Fetcher reads the attributes of one entity
type Fetcher interface {
	Fetch(ctx context.Context, ref model.EntityReference) (model.PartialRecord, error)
}

// Stage is a step of a resolution
type Stage int

const (
	StageIdle Stage = iota
	StageLocating
	StageFetching
	StageMerging
	StagePresenting
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLocating:
		return "locating"
	case StageFetching:
		return "fetching"
	case StageMerging:
		return "merging"
	case StagePresenting:
		return "presenting"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ResolveError is a failed resolution: the stage it failed in, the
// normalized name and the underlying cause.
type ResolveError struct {
	Stage Stage
	Name  string
	Err   error
}

func (e *ResolveError) Error() string {
	return e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// FetchFailure records an entity whose attributes could not be read
type FetchFailure struct {
	Ref model.EntityReference
	Err error
}

// Resolution is the result of resolving a place name
type Resolution struct {
	Name       string                  // Normalized name that was searched
	References []model.EntityReference // Every entity the search returned
	Sources    []model.EntityReference // Entities that contributed to Record, in search order
	Failures   []FetchFailure          // Entities dropped because their fetch failed
	Record     model.CanonicalRecord

	// FieldSources names the entity each non-empty field of Record came from
	FieldSources map[model.Field]model.EntityReference
}

// fetchOutcome is the settled result of one attribute fetch
type fetchOutcome struct {
	record model.PartialRecord
	err    error
}

// Resolver turns a place name into a merged record
type Resolver struct {
	locator     Locator
	fetcher     Fetcher
	presenter   *present.Presenter
	concurrency int
	log         *slog.Logger
}

// Option customizes a Resolver
type Option func(*Resolver)

// WithConcurrency caps simultaneous attribute fetches; n <= 0 fetches all at once
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

// WithPresenter sets the presenter used by Render
func WithPresenter(p *present.Presenter) Option {
	return func(r *Resolver) { r.presenter = p }
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver creates a resolver over the given search and attribute services
func NewResolver(locator Locator, fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		locator:   locator,
		fetcher:   fetcher,
		presenter: present.New(""),
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve locates every entity named rawName, fetches their attributes
// concurrently and merges them in search order. Entities whose fetch
// fails are dropped as long as one succeeds.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (*Resolution, error) {
	name := normalize.Name(rawName)

	refs, err := r.locator.Locate(ctx, name)
	if err != nil {
		return nil, r.fail(StageLocating, name, err)
	}
	if len(refs) == 0 {
		return nil, r.fail(StageLocating, name, fmt.Errorf("%w with the name: %s", model.ErrNoMatch, name))
	}
	r.log.Debug("place located", slog.String("name", name), slog.Int("entities", len(refs)))

	outcomes := r.fetchAll(ctx, refs)

	res := &Resolution{Name: name, References: refs}
	records := make([]model.PartialRecord, 0, len(refs))
	var errs []error
	for i, out := range outcomes {
		if out.err != nil {
			r.log.Warn("dropping entity", slog.String("entity", refs[i].String()), slog.Any("error", out.err))
			res.Failures = append(res.Failures, FetchFailure{Ref: refs[i], Err: out.err})
			errs = append(errs, out.err)
			continue
		}
		records = append(records, out.record)
		res.Sources = append(res.Sources, refs[i])
	}

	if len(records) == 0 {
		cause := errors.Join(append([]error{model.ErrAllFetchesFailed}, errs...)...)
		return nil, r.fail(StageFetching, name, cause)
	}

	res.Record = merge.Records(records)
	if res.Record.IsEmpty() {
		return nil, r.fail(StageMerging, name, fmt.Errorf("%w with the name: %s (no recognized attributes)", model.ErrNoMatch, name))
	}

	res.FieldSources = make(map[model.Field]model.EntityReference, len(model.Fields))
	for field, i := range merge.Sources(records) {
		if i >= 0 {
			res.FieldSources[field] = res.Sources[i]
		}
	}

	r.log.Debug("place merged",
		slog.String("name", name),
		slog.Int("sources", len(res.Sources)),
		slog.Int("dropped", len(res.Failures)))

	return res, nil
}

// fetchAll starts one fetch per reference and waits for all of them to
// settle. Outcomes are indexed like refs, whatever the completion order.
func (r *Resolver) fetchAll(ctx context.Context, refs []model.EntityReference) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(refs))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			rec, err := r.fetcher.Fetch(ctx, ref)
			outcomes[i] = fetchOutcome{record: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Render resolves rawName and renders the merged record in mode
func (r *Resolver) Render(ctx context.Context, rawName string, mode present.Mode) ([]string, error) {
	res, err := r.Resolve(ctx, rawName)
	if err != nil {
		return nil, err
	}

	lines, err := r.presenter.Render(res.Record, mode)
	if err != nil {
		return nil, r.fail(StagePresenting, res.Name, err)
	}
	return lines, nil
}

func (r *Resolver) fail(stage Stage, name string, err error) error {
	r.log.Debug("resolution failed", slog.String("stage", stage.String()), slog.String("name", name), slog.Any("error", err))
	return &ResolveError{Stage: stage, Name: name, Err: err}
}

// FailureMarker prefixes failure messages handed to the host renderer
const FailureMarker = "💣 Erreur : "

// FailureMessage renders a resolution error as the single line shown in
// place of the record.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}

	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) && errors.Is(err, model.ErrAllFetchesFailed) {
		return FailureMarker + fmt.Sprintf("%s: %s", model.ErrAllFetchesFailed, resolveErr.Name)
	}
	return FailureMarker + err.Error()
}
