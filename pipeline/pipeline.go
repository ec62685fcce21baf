// Package pipeline runs source pages through extraction, normalization,
// scoring and fusion, and persists the results.
package pipeline

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/wikifuse"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when the corresponding Pipeline field is zero.
const (
	DefaultConcurrency    = 8
	DefaultFetchTimeout   = 30 * time.Second
	DefaultStoreTimeout   = 10 * time.Second
	DefaultProgressBuffer = 256
)

// Stage is the state of a page in the pipeline.
type Stage string

// Page states. The *_FAILED states are terminal.
const (
	StageFetched         Stage = "FETCHED"
	StageExtracted       Stage = "EXTRACTED"
	StageNormalized      Stage = "NORMALIZED"
	StageScored          Stage = "SCORED"
	StageQueuedForFusion Stage = "QUEUED_FOR_FUSION"
	StageStored          Stage = "STORED"

	StageFetchFailed         Stage = "FETCH_FAILED"
	StageExtractionFailed    Stage = "EXTRACTION_FAILED"
	StageNormalizationFailed Stage = "NORMALIZATION_FAILED"
	StageFusionFailed        Stage = "FUSION_FAILED"
)

// Failed reports whether s is a terminal failure state.
func (s Stage) Failed() bool {
	switch s {
	case StageFetchFailed, StageExtractionFailed, StageNormalizationFailed, StageFusionFailed:
		return true
	}
	return false
}

// Event reports a page reaching a stage.
type Event struct {
	Stage     Stage
	URL       string
	EntityKey wikifuse.EntityKey

	// Percent is the share of pages that reached a terminal state.
	Percent float64

	// Quality is set once the page has been scored.
	Quality float64

	Err error
}

// ProgressFunc receives progress events in the order they were emitted.
// It runs on its own goroutine; events are dropped while it lags behind.
type ProgressFunc func(event Event)

// Failure describes a page that did not reach storage.
type Failure struct {
	URL       string
	EntityKey wikifuse.EntityKey
	Stage     Stage
	Err       error
}

// Summary holds the outcome of a run.
type Summary struct {
	Succeeded         int
	Failed            int
	Skipped           int
	ConflictsDetected int

	// Entities lists the entity keys stored by the run, sorted.
	Entities []wikifuse.EntityKey

	Failures []Failure
}

// Pipeline coordinates the processing of source pages.
type Pipeline struct {
	Registry   wikifuse.Registry
	Validator  wikifuse.ConfigValidator
	Fetcher    wikifuse.Fetcher
	Extractor  wikifuse.RecordExtractor
	Normalizer wikifuse.Normalizer
	Scorer     wikifuse.Scorer
	Fuser      wikifuse.Fuser
	Locker     wikifuse.KeyLocker
	Store      wikifuse.Store
	Logger     *slog.Logger

	Concurrency    int
	FetchTimeout   time.Duration
	StoreTimeout   time.Duration
	ProgressBuffer int

	// NoFuse stores normalized records without fusing them.
	NoFuse bool
}

// pageResult holds the outcome of processing a single page.
type pageResult struct {
	position int
	url      string
	rec      *wikifuse.NormalizedRecord
	failure  *Failure
}

// run holds the state of one Run call.
type run struct {
	*Pipeline
	cfg    *wikifuse.SourceConfig
	logger *slog.Logger
	events *emitter
	total  int

	mu   sync.Mutex
	done int
}

// Run processes urls with the configuration of sourceKey. Repeated URLs are
// processed once.
//
// Configuration errors are returned before any page is fetched. Page-level
// errors never abort the run; they are recorded in the summary. When ctx is
// canceled no further pages are started, pages already started run to
// completion, and Run returns the summary together with ctx's error.
func (p *Pipeline) Run(ctx context.Context, sourceKey string, urls []string, progress ProgressFunc) (*Summary, error) {
	cfg, err := p.Registry.Load(sourceKey)
	if err != nil {
		return nil, err
	}
	if err := p.Normalizer.Validate(cfg); err != nil {
		return nil, err
	}
	if p.Validator != nil {
		if err := p.Validator.ValidateConfig(cfg); err != nil {
			return nil, err
		}
	}

	urls = unique(urls)

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &run{
		Pipeline: p,
		cfg:      cfg,
		logger:   logger.With("source", cfg.Key),
		events:   newEmitter(progress, cmp.Or(p.ProgressBuffer, DefaultProgressBuffer)),
		total:    len(urls),
	}

	results, skipped := r.processPages(ctx, urls)

	summary := &Summary{Skipped: skipped}
	batches := r.collect(results, summary)
	r.fuseBatches(batches, summary)

	summary.Failed = len(summary.Failures)
	slices.Sort(summary.Entities)

	r.events.close()
	if r.events.dropped > 0 {
		r.logger.Debug("progress events dropped", "count", r.events.dropped)
	}

	r.logger.Info("run finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"conflicts", summary.ConflictsDetected)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// processPages runs every page through fetch, extraction, normalization and
// scoring. It returns the results ordered by position and the number of
// pages that were never started.
func (r *run) processPages(ctx context.Context, urls []string) ([]pageResult, int) {
	concurrency := cmp.Or(r.Concurrency, DefaultConcurrency)

	// Started pages finish even if ctx is canceled.
	work := context.WithoutCancel(ctx)

	results := make([]pageResult, len(urls))
	sem := make(chan struct{}, concurrency)
	var g errgroup.Group

	started := 0
schedule:
	for i, url := range urls {
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			break schedule
		}
		started++
		g.Go(func() error {
			defer func() { <-sem }()
			results[i] = r.processPage(work, i, url)
			return nil
		})
	}
	_ = g.Wait()

	if skipped := len(urls) - started; skipped > 0 {
		r.logger.Warn("run canceled", "skipped", skipped)
	}
	return results[:started], len(urls) - started
}

// processPage takes a page from fetch to scoring.
func (r *run) processPage(ctx context.Context, position int, url string) pageResult {
	res := pageResult{position: position, url: url}
	fail := func(stage Stage, key wikifuse.EntityKey, err error) pageResult {
		res.failure = &Failure{URL: url, EntityKey: key, Stage: stage, Err: err}
		r.fail(*res.failure)
		return res
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cmp.Or(r.FetchTimeout, DefaultFetchTimeout))
	page, err := r.Fetcher.Fetch(fetchCtx, url)
	cancel()
	if err != nil {
		if wikifuse.ErrorCode(err) == wikifuse.EINTERNAL {
			err = wikifuse.Errorf(wikifuse.EFETCH, "fetch %s: %v", url, err)
		}
		return fail(StageFetchFailed, "", err)
	}
	r.emit(Event{Stage: StageFetched, URL: url})

	raw, err := r.Extractor.ExtractRecord(page, r.cfg)
	if err != nil {
		return fail(StageExtractionFailed, "", err)
	}
	r.emit(Event{Stage: StageExtracted, URL: url})

	rec, err := r.Normalizer.Normalize(raw, r.cfg)
	if err != nil {
		return fail(StageNormalizationFailed, "", err)
	}
	if rec.EntityKey == "" {
		return fail(StageExtractionFailed, "", wikifuse.Errorf(wikifuse.EINVALID, "no %s after normalization on %s", r.cfg.Identity(), url))
	}
	r.emit(Event{Stage: StageNormalized, URL: url, EntityKey: rec.EntityKey})

	rec.QualityScore = r.Scorer.Score(rec, r.cfg)
	r.emit(Event{Stage: StageScored, URL: url, EntityKey: rec.EntityKey, Quality: rec.QualityScore})

	res.rec = rec
	r.emit(Event{Stage: StageQueuedForFusion, URL: url, EntityKey: rec.EntityKey, Quality: rec.QualityScore})
	return res
}

// batch holds the records of one entity collected by a run.
type batch struct {
	key     wikifuse.EntityKey
	records []*wikifuse.NormalizedRecord
}

// collect records failures and groups records by entity key, in order of
// first appearance.
func (r *run) collect(results []pageResult, summary *Summary) []*batch {
	var batches []*batch
	byKey := make(map[wikifuse.EntityKey]*batch)
	for _, res := range results {
		if res.failure != nil {
			summary.Failures = append(summary.Failures, *res.failure)
			continue
		}
		b, ok := byKey[res.rec.EntityKey]
		if !ok {
			b = &batch{key: res.rec.EntityKey}
			byKey[b.key] = b
			batches = append(batches, b)
		}
		b.records = append(b.records, res.rec)
	}
	return batches
}

// fuseBatches fuses and stores every batch. Distinct keys are processed
// concurrently; results are recorded in batch order.
func (r *run) fuseBatches(batches []*batch, summary *Summary) {
	entities := make([]*wikifuse.CanonicalEntity, len(batches))
	errs := make([]error, len(batches))

	var g errgroup.Group
	g.SetLimit(cmp.Or(r.Concurrency, DefaultConcurrency))
	for i, b := range batches {
		g.Go(func() error {
			entities[i], errs[i] = r.fuseBatch(b)
			if errs[i] != nil {
				for _, rec := range b.records {
					r.fail(Failure{URL: rec.SourceURL, EntityKey: b.key, Stage: StageFusionFailed, Err: errs[i]})
				}
				return nil
			}
			for _, rec := range b.records {
				r.complete(Event{Stage: StageStored, URL: rec.SourceURL, EntityKey: b.key, Quality: rec.QualityScore})
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, b := range batches {
		if errs[i] != nil {
			for _, rec := range b.records {
				summary.Failures = append(summary.Failures, Failure{URL: rec.SourceURL, EntityKey: b.key, Stage: StageFusionFailed, Err: errs[i]})
			}
			continue
		}
		summary.Succeeded += len(b.records)
		summary.Entities = append(summary.Entities, b.key)
		if entities[i] != nil {
			summary.ConflictsDetected += len(entities[i].MergeConflicts)
		}
	}
}

// fuseBatch merges b with the records already stored for its key and saves
// the records and the canonical entity. It returns a nil entity when fusion
// is disabled.
func (r *run) fuseBatch(b *batch) (*wikifuse.CanonicalEntity, error) {
	ctx := context.Background()

	if r.NoFuse {
		for _, rec := range b.records {
			if err := r.withStoreTimeout(ctx, func(ctx context.Context) error {
				return r.Store.SaveNormalized(ctx, rec)
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	unlock := r.Locker.Lock(b.key)
	defer unlock()

	var stored []*wikifuse.NormalizedRecord
	if err := r.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		stored, err = r.Store.FindByEntityKey(ctx, b.key)
		return err
	}); err != nil {
		return nil, err
	}

	entity, err := r.Fuser.Fuse(b.key, mergeRecords(stored, b.records))
	if err != nil {
		return nil, err
	}

	for _, rec := range b.records {
		if err := r.withStoreTimeout(ctx, func(ctx context.Context) error {
			return r.Store.SaveNormalized(ctx, rec)
		}); err != nil {
			return nil, err
		}
	}
	if err := r.withStoreTimeout(ctx, func(ctx context.Context) error {
		return r.Store.SaveCanonical(ctx, entity)
	}); err != nil {
		return nil, err
	}

	r.logger.Debug("entity fused",
		"entity_key", b.key,
		"records", len(entity.ContributingSources),
		"conflicts", len(entity.MergeConflicts))
	return entity, nil
}

// mergeRecords combines stored records with fresh ones. A fresh record
// replaces the stored record of the same source URL, and within the fresh
// records the last one for a URL wins.
func mergeRecords(stored, fresh []*wikifuse.NormalizedRecord) []*wikifuse.NormalizedRecord {
	byURL := make(map[string]int)
	var out []*wikifuse.NormalizedRecord
	for _, rec := range slices.Concat(stored, fresh) {
		if i, ok := byURL[rec.SourceURL]; ok {
			out[i] = rec
			continue
		}
		byURL[rec.SourceURL] = len(out)
		out = append(out, rec)
	}
	return out
}

func (r *run) withStoreTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, cmp.Or(r.StoreTimeout, DefaultStoreTimeout))
	defer cancel()
	return fn(ctx)
}

// fail logs a page failure and emits its terminal event.
func (r *run) fail(f Failure) {
	r.logger.Warn("page failed",
		"url", f.URL,
		"entity_key", f.EntityKey,
		"stage", f.Stage,
		"error", f.Err)
	r.complete(Event{Stage: f.Stage, URL: f.URL, EntityKey: f.EntityKey, Err: f.Err})
}

// complete emits a terminal event and advances the completion percentage.
func (r *run) complete(e Event) {
	r.mu.Lock()
	r.done++
	e.Percent = percent(r.done, r.total)
	r.events.send(e)
	r.mu.Unlock()
}

// emit sends a non-terminal event.
func (r *run) emit(e Event) {
	r.mu.Lock()
	e.Percent = percent(r.done, r.total)
	r.events.send(e)
	r.mu.Unlock()
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) * 100 / float64(total)
}

// unique drops repeated URLs, keeping the first occurrence.
func unique(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
