// Package orchestrator drives a whole-book build: it requests cache-checked
// execution for every (document, format) pair, accumulates results per
// format as they complete, and finalizes each format by per-document
// rendering or by merging into a single synthetic document.
//
// All accumulation state is build-scoped: one Build per invocation,
// discarded at completion. Nothing here is package-level mutable.
package orchestrator

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/bookbinder/internal/book"
	"git.home.luguber.info/inful/bookbinder/internal/cleanup"
	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/errors"
	"git.home.luguber.info/inful/bookbinder/internal/fingerprint"
	"git.home.luguber.info/inful/bookbinder/internal/freeze"
	"git.home.luguber.info/inful/bookbinder/internal/logfields"
	"git.home.luguber.info/inful/bookbinder/internal/markdown"
	"git.home.luguber.info/inful/bookbinder/internal/metrics"
	"git.home.luguber.info/inful/bookbinder/internal/render"
)

// State tracks a format's progress through the build.
type State string

const (
	StateCollecting State = "collecting"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Options configures one build invocation.
type Options struct {
	Root    string
	Book    *book.Config
	Adapter engine.Adapter

	// Renderers maps format name to renderer. Unset formats fall back to
	// the built-in registry.
	Renderers map[string]render.Renderer

	Cache   *freeze.Cache
	Policy  freeze.Policy
	Metrics metrics.Recorder
	Jobs    int
	Logger  *slog.Logger
}

// Outcome reports what a build produced. Rendered files from formats that
// finished are reported even when another format failed.
type Outcome struct {
	BuildID  string
	Rendered []render.RenderedFile
	Failed   []string // format names that did not finalize
}

// formatBucket accumulates execution results for one format. Append-only
// and order-independent: final ordering comes from the book item model.
type formatBucket struct {
	mu       sync.Mutex
	format   engine.TargetFormat
	renderer render.Renderer
	results  map[string]*engine.ExecutionResult // keyed by document path
	errs     []error
	state    State
}

func (b *formatBucket) add(res *engine.ExecutionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[res.Document.Path] = res
}

func (b *formatBucket) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, err)
}

func (b *formatBucket) accumulated() []*engine.ExecutionResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*engine.ExecutionResult, 0, len(b.results))
	for _, r := range b.results {
		out = append(out, r)
	}
	return out
}

// Build orchestrates one invocation. Create with New, run once with Run.
type Build struct {
	opts    Options
	id      string
	buckets map[string]*formatBucket
	sf      singleflight.Group
	cleanup *cleanup.Coordinator
	logger  *slog.Logger
}

// New validates options and prepares the build-scoped state.
func New(opts Options) (*Build, error) {
	if opts.Book == nil {
		return nil, errors.New(errors.CategoryConfig, errors.SeverityFatal, "book configuration is required")
	}
	if opts.Adapter == nil {
		return nil, errors.New(errors.CategoryConfig, errors.SeverityFatal, "execution adapter is required")
	}
	if opts.Cache == nil {
		opts.Cache = freeze.NewCache(opts.Root)
	}
	if opts.Policy == "" {
		opts.Policy = opts.Book.Policy()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRecorder{}
	}
	if opts.Jobs < 1 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	b := &Build{
		opts:    opts,
		id:      uuid.NewString(),
		buckets: make(map[string]*formatBucket),
		cleanup: cleanup.NewCoordinator().WithLogger(opts.Logger),
		logger:  opts.Logger,
	}

	outputDir := filepath.Join(opts.Root, opts.Book.OutputDir)
	for _, format := range opts.Book.TargetFormats() {
		renderer := opts.Renderers[format.Name]
		if renderer == nil {
			var err error
			renderer, err = render.For(format, outputDir)
			if err != nil {
				return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "resolve renderer")
			}
		}
		b.buckets[format.Name] = &formatBucket{
			format:   format,
			renderer: renderer,
			results:  make(map[string]*engine.ExecutionResult),
			state:    StateCollecting,
		}
	}
	return b, nil
}

// ID returns the build's unique identifier.
func (b *Build) ID() string { return b.id }

// BeforeExecute reports whether per-document dependency resolution may
// happen immediately for a format. True only when the format's renderer has
// the per-document capability; merged formats defer until all chapters are
// collected, since global numbering and title metadata are only known then.
func (b *Build) BeforeExecute(formatName string) bool {
	bucket, ok := b.buckets[formatName]
	if !ok {
		return false
	}
	_, perDoc := bucket.renderer.(render.PerDocumentRenderer)
	return perDoc
}

// OnExecuted records a finished execution into the format's collecting
// bucket. Safe to call concurrently for different documents.
func (b *Build) OnExecuted(formatName string, res *engine.ExecutionResult) {
	if bucket, ok := b.buckets[formatName]; ok {
		bucket.add(res)
	}
}

// State returns the current state for a format.
func (b *Build) State(formatName string) State {
	if bucket, ok := b.buckets[formatName]; ok {
		bucket.mu.Lock()
		defer bucket.mu.Unlock()
		return bucket.state
	}
	return ""
}

// Run executes the full build: parallel cache-checked execution of every
// (document, format) pair, a join barrier, then per-format finalization.
//
// On error the returned Outcome still carries rendered files from formats
// that finished independently of the failure.
func (b *Build) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	docs := b.opts.Book.Documents()
	b.logger.Info("Starting book build",
		logfields.BuildID(b.id),
		slog.Int("documents", len(docs)),
		slog.Int("formats", len(b.buckets)),
		logfields.Policy(string(b.opts.Policy)))

	var g errgroup.Group
	g.SetLimit(b.opts.Jobs)
	for _, bucket := range b.buckets {
		for _, doc := range docs {
			if ctx.Err() != nil {
				break // canceled: stop issuing new execution requests
			}
			bucket, doc := bucket, doc
			g.Go(func() error {
				b.executePair(ctx, bucket, doc)
				return nil
			})
		}
	}
	_ = g.Wait() // join barrier: every pair reached a terminal state

	outcome := &Outcome{BuildID: b.id}
	var buildErr error
	canceled := ctx.Err() != nil

	for name, bucket := range b.buckets {
		bucket.mu.Lock()
		bucket.state = StateFinalizing
		errs := append([]error(nil), bucket.errs...)
		bucket.mu.Unlock()

		if canceled {
			errs = append(errs, ctx.Err())
		}
		if len(errs) > 0 {
			b.failFormat(bucket, name, outcome, goerrors.Join(errs...))
			buildErr = goerrors.Join(buildErr, goerrors.Join(errs...))
			continue
		}

		files, err := b.finalizeFormat(ctx, bucket)
		if err != nil {
			b.failFormat(bucket, name, outcome, err)
			buildErr = goerrors.Join(buildErr, err)
			continue
		}

		bucket.mu.Lock()
		bucket.state = StateDone
		bucket.mu.Unlock()
		b.cleanup.AfterSuccess(bucket.accumulated())
		outcome.Rendered = append(outcome.Rendered, files...)
	}

	b.opts.Metrics.ObserveBuildDuration(time.Since(start))
	switch {
	case canceled:
		b.opts.Metrics.IncBuildOutcome("canceled")
	case buildErr != nil:
		b.opts.Metrics.IncBuildOutcome("failed")
	default:
		b.opts.Metrics.IncBuildOutcome("success")
	}

	if buildErr != nil {
		b.logger.Error("Book build failed",
			logfields.BuildID(b.id),
			slog.Int("rendered", len(outcome.Rendered)),
			logfields.Error(buildErr))
		return outcome, buildErr
	}
	b.logger.Info("Book build finished",
		logfields.BuildID(b.id),
		slog.Int("rendered", len(outcome.Rendered)),
		logfields.DurationMS(time.Since(start)))
	return outcome, nil
}

func (b *Build) failFormat(bucket *formatBucket, name string, outcome *Outcome, err error) {
	bucket.mu.Lock()
	bucket.state = StateFailed
	bucket.mu.Unlock()
	b.cleanup.AfterFailure(bucket.accumulated())
	outcome.Failed = append(outcome.Failed, name)
	b.logger.Error("Format failed", logfields.Format(name), logfields.Error(err))
}

// executePair runs one (document, format) pair through the freeze cache and
// execution adapter. Re-entrant requests for the same pair join the
// in-flight call instead of executing twice.
func (b *Build) executePair(ctx context.Context, bucket *formatBucket, doc engine.Document) {
	key := doc.Path + "\x00" + bucket.format.Name
	v, err, _ := b.sf.Do(key, func() (any, error) {
		return b.executeOne(ctx, bucket.format, doc)
	})
	if err != nil {
		b.opts.Metrics.IncExecution(bucket.format.Name, false)
		bucket.fail(errors.ExecutionError(err, doc.Path, bucket.format.Name))
		return
	}
	bucket.add(v.(*engine.ExecutionResult))
}

// executeOne consults the freeze cache, falling back to the adapter on a
// miss and storing the fresh result when the policy allows caching.
func (b *Build) executeOne(ctx context.Context, format engine.TargetFormat, doc engine.Document) (*engine.ExecutionResult, error) {
	if b.opts.Policy == freeze.PolicyNever {
		b.opts.Metrics.IncCacheLookup(format.Name, metrics.CacheBypass)
		res, err := b.opts.Adapter.Execute(ctx, b.opts.Root, doc, format)
		if err != nil {
			return nil, err
		}
		b.opts.Metrics.IncExecution(format.Name, true)
		return res, nil
	}

	fp, err := fingerprint.Compute(b.opts.Root, doc, format)
	if err != nil {
		return nil, err
	}

	if cached, ok := b.opts.Cache.Lookup(doc, format, fp, b.opts.Policy); ok {
		b.opts.Metrics.IncCacheLookup(format.Name, metrics.CacheHit)
		b.logger.Debug("Reusing frozen execution",
			logfields.Document(doc.Path),
			logfields.Format(format.Name),
			logfields.Fingerprint(string(fp)))
		return cached, nil
	}
	b.opts.Metrics.IncCacheLookup(format.Name, metrics.CacheMiss)

	res, err := b.opts.Adapter.Execute(ctx, b.opts.Root, doc, format)
	if err != nil {
		return nil, err
	}
	b.opts.Metrics.IncExecution(format.Name, true)

	if err := b.opts.Cache.Store(doc, format, fp, res); err != nil {
		// The cache is an optimization: a failed store never fails the build.
		b.logger.Warn("Failed to store freeze entry",
			logfields.Document(doc.Path),
			logfields.Format(format.Name),
			logfields.Error(err))
	}
	return res, nil
}

// finalizeFormat turns a completed bucket into rendered files, dispatching
// on the renderer's capability.
func (b *Build) finalizeFormat(ctx context.Context, bucket *formatBucket) ([]render.RenderedFile, error) {
	switch r := bucket.renderer.(type) {
	case render.PerDocumentRenderer:
		return b.renderPerDocument(ctx, bucket, r)
	case render.MergedRenderer:
		return b.renderMerged(ctx, bucket, r)
	default:
		return nil, errors.New(errors.CategoryInternal, errors.SeverityFatal,
			fmt.Sprintf("renderer for format %q has no capability", bucket.format.Name))
	}
}

func (b *Build) renderPerDocument(ctx context.Context, bucket *formatBucket, r render.PerDocumentRenderer) ([]render.RenderedFile, error) {
	var files []render.RenderedFile
	for _, ni := range b.opts.Book.NumberedItems() {
		if !ni.HasDocument() {
			continue // structural markers have nothing to render per-document
		}
		bucket.mu.Lock()
		res := bucket.results[ni.Document.Path]
		bucket.mu.Unlock()
		if res == nil {
			return nil, errors.MergeInvariantError(ni.Document.Path, bucket.format.Name)
		}

		annotateChapter(res, ni)

		t0 := time.Now()
		rf, err := r.RenderOne(ctx, b.opts.Root, res)
		b.opts.Metrics.ObserveRenderDuration(bucket.format.Name, time.Since(t0))
		if err != nil {
			return nil, errors.RenderError(err, bucket.format.Name)
		}
		files = append(files, rf)
	}
	return files, nil
}

func (b *Build) renderMerged(ctx context.Context, bucket *formatBucket, r render.MergedRenderer) ([]render.RenderedFile, error) {
	bucket.mu.Lock()
	results := make(map[string]*engine.ExecutionResult, len(bucket.results))
	for k, v := range bucket.results {
		results[k] = v
	}
	bucket.mu.Unlock()

	merged, err := Merge(b.opts.Book, b.opts.Root, bucket.format, results, b.logger)
	if err != nil {
		return nil, err
	}
	b.opts.Metrics.SetMergedChapters(bucket.format.Name, len(results))

	t0 := time.Now()
	rf, err := r.RenderMerged(ctx, b.opts.Root, merged)
	b.opts.Metrics.ObserveRenderDuration(bucket.format.Name, time.Since(t0))
	if err != nil {
		return nil, errors.RenderError(err, bucket.format.Name)
	}
	return []render.RenderedFile{rf}, nil
}

// annotateChapter applies chapter numbering and title metadata to a result
// destined for per-document rendering. The format value is cloned before
// mutation so no other chapter can observe the change.
func annotateChapter(res *engine.ExecutionResult, ni book.NumberedItem) {
	res.Format = res.Format.Clone()
	if res.Format.Options == nil {
		res.Format.Options = map[string]any{}
	}

	title, hasTitle := markdown.FirstHeading([]byte(res.Markdown.Text))
	if hasTitle {
		if _, set := res.Format.Options["title"]; !set {
			res.Format.Options["title"] = title
		}
	}

	marker := markdown.Marker{
		Kind:         markerKind(ni),
		Number:       ni.Number,
		Title:        title,
		ResourceBase: resourceBase(ni.Document.Path),
	}
	res.Markdown.Text = markdown.EncodeMarker(marker) + "\n\n" + res.Markdown.Text
}

func markerKind(ni book.NumberedItem) string {
	if ni.IsIndex {
		return "index"
	}
	return string(ni.Kind)
}

func resourceBase(docPath string) string {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(docPath)))
	if dir == "." {
		return ""
	}
	return dir
}
