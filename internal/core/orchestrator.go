// ABOUTME: Translation orchestrator drives each chunk from lookup to cache hit or fresh translation
// ABOUTME: Deduplicates by hash, bounds provider concurrency and persists results before use
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/llm"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options tunes a translation run
type Options struct {
	// Concurrency bounds in-flight provider calls
	Concurrency int
	// Timeout applies to each provider call
	Timeout time.Duration
	// DryRun reports hits and misses without calling the provider or writing
	DryRun bool
	// Placeholders renders unresolved chunks as visible stand-ins instead of failing
	Placeholders bool
	// Provenance appends a marker after each translatable chunk
	Provenance bool
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{Concurrency: 4, Timeout: 60 * time.Second, Provenance: true}
}

// ChunkResult reports one translatable chunk
type ChunkResult struct {
	Position    int               `json:"position"`
	Anchor      int               `json:"anchor"`
	Hash        models.ChunkHash  `json:"hash"`
	State       models.ChunkState `json:"state"`
	Target      models.ChunkHash  `json:"target,omitempty"`
	NeedsReview bool              `json:"needs_review"`
	Err         error             `json:"-"`
	Error       string            `json:"error,omitempty"`
}

// DocumentResult reports one document
type DocumentResult struct {
	Path       string        `json:"path,omitempty"`
	OutputPath string        `json:"output_path,omitempty"`
	Dialect    string        `json:"dialect"`
	Chunks     []ChunkResult `json:"chunks"`
	Hits       int           `json:"hits"`
	Translated int           `json:"translated"`
	Pending    int           `json:"pending"`
	Failed     int           `json:"failed"`
	Literal    int           `json:"literal"`
	Written    bool          `json:"written"`
	Output     string        `json:"-"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

func (r *DocumentResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// FileJob pairs an input document with its output path; an empty Output skips writing
type FileJob struct {
	Source string
	Output string
}

// outcome is the shared result for every chunk with one hash
type outcome struct {
	text        string
	target      models.ChunkHash
	state       models.ChunkState
	needsReview bool
	err         error
}

// Orchestrator translates documents against the translation memory
type Orchestrator struct {
	store     *storage.Storage
	provider  llm.Provider
	segmenter *Segmenter
	opts      Options
	logger    *log.Logger
	flight    singleflight.Group

	mu     sync.Mutex
	shared map[string]*sharedCall
	gen    uint64
}

// sharedCall is one in-flight resolution. Its context is cancelled once every waiter has left.
type sharedCall struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewOrchestrator creates an Orchestrator. provider may be nil for dry runs.
func NewOrchestrator(store *storage.Storage, provider llm.Provider, opts Options, logger *log.Logger) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Orchestrator{
		store:     store,
		provider:  provider,
		segmenter: NewSegmenter(store.Content.Hasher()),
		opts:      opts,
		logger:    logging.OrDiscard(logger),
		shared:    make(map[string]*sharedCall),
	}
}

// Segmenter returns the segmenter bound to the store's hash algorithm
func (o *Orchestrator) Segmenter() *Segmenter {
	return o.segmenter
}

// TranslateDocument translates text and reassembles it. The result is returned whenever
// segmentation succeeded, even alongside an error.
func (o *Orchestrator) TranslateDocument(ctx context.Context, rc models.RunContext, text string, d dialect.Dialect) (*DocumentResult, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if o.provider == nil && !o.opts.DryRun {
		return nil, errs.Invalid("no translation provider configured")
	}

	sc, err := o.segmenter.Segment(text, d)
	if err != nil {
		return nil, err
	}
	res := &DocumentResult{Dialect: d.Name()}

	unique := make(map[models.ChunkHash]models.Chunk)
	var order []models.ChunkHash
	for _, c := range sc.Chunks {
		if !c.IsTranslatable() {
			res.Literal++
			continue
		}
		if _, seen := unique[c.Hash]; !seen {
			unique[c.Hash] = c
			order = append(order, c.Hash)
		}
	}
	o.logger.Debug("segmented document", "chunks", len(sc.Chunks), "translatable", len(sc.Chunks)-res.Literal, "unique", len(order))

	var mu sync.Mutex
	outcomes := make(map[models.ChunkHash]outcome, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for _, h := range order {
		c := unique[h]
		g.Go(func() error {
			out := o.resolve(gctx, rc, d, c)
			if out.err != nil && errs.IsFatal(out.err) {
				return out.err
			}
			mu.Lock()
			outcomes[c.Hash] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		res.fail(err)
		return res, err
	}

	finals := make(map[int]string)
	for i, c := range sc.Chunks {
		if !c.IsTranslatable() {
			continue
		}
		out := outcomes[c.Hash]
		cr := ChunkResult{
			Position:    c.Position,
			Anchor:      c.Anchor,
			Hash:        c.Hash,
			State:       out.state,
			Target:      out.target,
			NeedsReview: out.needsReview,
			Err:         out.err,
		}
		if out.err != nil {
			cr.Error = out.err.Error()
		}
		res.Chunks = append(res.Chunks, cr)

		switch {
		case out.err != nil:
			res.Failed++
		case out.state == models.StateCacheHit:
			res.Hits++
		case out.state == models.StateTranslated:
			res.Translated++
		default:
			res.Pending++
		}
		if out.state.IsResolved() {
			finals[c.Position] = out.text
			sc.Chunks[i].NeedsReview = out.needsReview
		}
	}

	if o.opts.DryRun {
		return res, nil
	}

	output, err := NewReassembler(d, o.opts.Provenance, o.opts.Placeholders).Reassemble(sc, finals)
	if err != nil {
		res.fail(err)
		return res, err
	}
	res.Output = output
	return res, nil
}

// resolve runs one unique chunk through the state machine, sharing in-flight work across runs.
// Each caller waits under its own ctx; the shared work stops only when no caller still waits.
func (o *Orchestrator) resolve(ctx context.Context, rc models.RunContext, d dialect.Dialect, c models.Chunk) outcome {
	key := fmt.Sprintf("%s>%s/%s", rc.Source, rc.Target, c.Hash)
	if o.opts.DryRun {
		key = "dry:" + key
	}

	call := o.join(ctx, key)
	defer o.leave(key, call)

	ch := o.flight.DoChan(call.key, func() (interface{}, error) {
		return o.resolveOnce(call.ctx, rc, d, c), nil
	})
	select {
	case r := <-ch:
		return r.Val.(outcome)
	case <-ctx.Done():
		return outcome{state: models.StateNeedsTranslation, err: ctx.Err()}
	}
}

// join registers a waiter on the shared call for key, starting a new one when none is live
func (o *Orchestrator) join(ctx context.Context, key string) *sharedCall {
	o.mu.Lock()
	defer o.mu.Unlock()

	call, ok := o.shared[key]
	if !ok {
		o.gen++
		workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &sharedCall{key: fmt.Sprintf("%s#%d", key, o.gen), ctx: workCtx, cancel: cancel}
		o.shared[key] = call
	}
	call.waiters++
	return call
}

func (o *Orchestrator) leave(key string, call *sharedCall) {
	o.mu.Lock()
	defer o.mu.Unlock()

	call.waiters--
	if call.waiters > 0 {
		return
	}
	call.cancel()
	if o.shared[key] == call {
		delete(o.shared, key)
	}
}

func (o *Orchestrator) resolveOnce(ctx context.Context, rc models.RunContext, d dialect.Dialect, c models.Chunk) outcome {
	logger := o.logger.With("anchor", c.Anchor, "hash", c.Hash.Short())

	if hit, found, err := o.cached(ctx, rc, c.Hash); err != nil {
		return outcome{state: models.StateUnseen, err: err}
	} else if found {
		logger.Debug("cache hit")
		return hit
	}
	if o.opts.DryRun {
		return outcome{state: models.StateNeedsTranslation}
	}

	source := c.Raw
	if emb, ok := d.(dialect.Embedded); ok {
		source, d = c.Normalized, emb.Inner()
	}
	translated, err := o.translate(ctx, rc, c)
	if err == nil {
		err = o.checkSyntax(d, source, translated)
	}
	if err != nil {
		logger.Warn("translation failed", "error", err)
		return outcome{state: models.StateNeedsTranslation, err: err}
	}

	srcHash, err := o.store.Content.Put(ctx, rc.Source, source)
	if err != nil {
		return outcome{state: models.StateNeedsTranslation, err: err}
	}
	tgtHash, err := o.store.Content.Put(ctx, rc.Target, translated)
	if err != nil {
		return outcome{state: models.StateNeedsTranslation, err: err}
	}
	err = o.store.Index.Record(ctx, models.Mapping{rc.Source: srcHash, rc.Target: tgtHash}, rc.Source)
	if errors.Is(err, errs.ErrCorrespondenceConflict) {
		// Another writer recorded this source first; its mapping wins
		logger.Debug("mapping recorded concurrently, re-reading")
		hit, found, rerr := o.cached(ctx, rc, c.Hash)
		if rerr != nil {
			return outcome{state: models.StateNeedsTranslation, err: rerr}
		}
		if found {
			return hit
		}
		// The translation already belongs to another source's row. Use it unrecorded.
		logger.Warn("translation shared with another source, not recorded", "target", tgtHash.Short(), "error", err)
		err = nil
	}
	if err != nil {
		return outcome{state: models.StateNeedsTranslation, err: err}
	}

	logger.Debug("translated", "target", tgtHash.Short())
	return outcome{
		text:        checksum.Normalize(translated),
		target:      tgtHash,
		state:       models.StateTranslated,
		needsReview: true,
	}
}

// cached returns the recorded translation of (source, hash), if any
func (o *Orchestrator) cached(ctx context.Context, rc models.RunContext, hash models.ChunkHash) (outcome, bool, error) {
	others, err := o.store.Index.Lookup(ctx, rc.Source, hash)
	if err != nil {
		return outcome{}, false, err
	}
	target, ok := others[rc.Target]
	if !ok {
		return outcome{}, false, nil
	}
	text, err := o.store.Content.Get(ctx, rc.Target, target)
	if err != nil {
		return outcome{}, false, fmt.Errorf("recorded translation %s/%s: %w", rc.Target, target.Short(), err)
	}
	reviewed, err := o.store.Index.IsReviewed(ctx, rc.Target, target)
	if err != nil {
		return outcome{}, false, err
	}
	return outcome{text: text, target: target, state: models.StateCacheHit, needsReview: !reviewed}, true, nil
}

// translate calls the provider under its own timeout
func (o *Orchestrator) translate(ctx context.Context, rc models.RunContext, c models.Chunk) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	out, err := o.provider.Translate(callCtx, llm.Request{
		Text:       c.Normalized,
		Source:     rc.Source,
		Target:     rc.Target,
		Vocabulary: rc.Vocabulary,
	})
	if err != nil {
		if !errors.Is(err, errs.ErrProvider) {
			err = &errs.ProviderError{Provider: o.provider.Name(), Err: err}
		}
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", &errs.ProviderError{Provider: o.provider.Name(), Err: errors.New("empty translation")}
	}
	return out, nil
}

// checkSyntax rejects a translation the dialect cannot split back into prose, so a reply
// that breaks markup is never stored or written into an output document
func (o *Orchestrator) checkSyntax(d dialect.Dialect, source, translated string) error {
	if err := prose(d, translated); err != nil {
		// A source chunk that is not plain prose on its own only needs to split cleanly
		if prose(d, source) == nil || !errors.Is(err, errNotProse) {
			return &errs.ProviderError{Provider: o.provider.Name(), Err: fmt.Errorf("translation breaks %s syntax: %w", d.Name(), err)}
		}
	}
	return nil
}

var errNotProse = errors.New("contains literal markup")

// prose reports whether text splits under d into translatable spans only
func prose(d dialect.Dialect, text string) error {
	spans, err := d.Split(text)
	if err != nil {
		return err
	}
	for _, sp := range spans {
		if sp.Kind != models.ChunkTranslatable {
			return fmt.Errorf("%w at byte %d", errNotProse, sp.Start)
		}
	}
	return nil
}

// TranslateFile translates src and, unless this is a dry run or dst is empty, writes dst atomically
func (o *Orchestrator) TranslateFile(ctx context.Context, rc models.RunContext, src, dst string) (*DocumentResult, error) {
	logger := o.logger.With("file", src)

	data, err := os.ReadFile(src)
	if err != nil {
		res := &DocumentResult{Path: src, OutputPath: dst}
		err = fmt.Errorf("reading %s: %w", src, err)
		res.fail(err)
		return res, err
	}
	d, err := dialect.Resolve(rc.Dialect, src)
	if err != nil {
		res := &DocumentResult{Path: src, OutputPath: dst}
		res.fail(err)
		return res, err
	}

	res, err := o.TranslateDocument(ctx, rc, string(data), d)
	if res == nil {
		res = &DocumentResult{Dialect: d.Name()}
		if err != nil {
			res.fail(err)
		}
	}
	res.Path, res.OutputPath = src, dst
	if err != nil {
		logger.Error("translation incomplete", "error", err)
		return res, err
	}

	logger.Info("translated document", "hits", res.Hits, "translated", res.Translated, "failed", res.Failed)
	if o.opts.DryRun || dst == "" {
		return res, nil
	}
	if err := storage.WriteFileAtomic(dst, []byte(res.Output), 0644); err != nil {
		res.fail(err)
		return res, err
	}
	res.Written = true
	return res, nil
}

// TranslateFiles processes jobs in order. A failing document is reported and skipped;
// only a storage I/O failure stops the batch.
func (o *Orchestrator) TranslateFiles(ctx context.Context, rc models.RunContext, jobs []FileJob) ([]*DocumentResult, error) {
	results := make([]*DocumentResult, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.TranslateFile(ctx, rc, job.Source, job.Output)
		results = append(results, res)
		if err != nil && errs.IsFatal(err) {
			return results, err
		}
	}
	return results, nil
}
