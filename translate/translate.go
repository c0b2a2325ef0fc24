// Package translate implements the batch translation orchestrator: it
// detects the project engine, extracts translatable units per file, groups
// them into provider-sized batches, dispatches batches through bounded
// worker pools, reassembles results in extraction order, and writes the
// translated artifacts back through the format adapter.
package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/cache"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/engine"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/provider"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
)

// Options controls a translation run.
type Options struct {
	// BatchSize is how many units go into one provider call. Default: 10.
	BatchSize int
	// FileWorkers is how many files are processed in parallel. Default: 1.
	FileWorkers int
	// BatchWorkers is how many batches of one file are translated in
	// parallel. Default: 1.
	BatchWorkers int
	// Timeout bounds one provider call. Zero leaves the provider default.
	Timeout time.Duration
	// MaxRetries is the bounded retry count for a rate-limited batch
	// before it is treated as transient. Default: 3.
	MaxRetries int
	// RateLimitCooldown is the fixed sleep before a rate-limited batch is
	// retried. Default: 60s.
	RateLimitCooldown time.Duration
	// Cache, when non-nil, fills units translated in earlier runs without a
	// provider call and records new translations. Saved at the end of Run.
	Cache *cache.Cache
	// TargetLanguage namespaces cache entries. Required when Cache is set.
	TargetLanguage string
	// OnLog emits log messages during the run.
	OnLog func(format string, args ...any)
	// OnError emits error messages during the run.
	OnError func(format string, args ...any)
	// OnProgress is called after each batch with per-file unit counts.
	OnProgress func(file string, done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 10
}

func (o *Options) effectiveFileWorkers() int {
	if o.FileWorkers > 0 {
		return o.FileWorkers
	}
	return 1
}

func (o *Options) effectiveBatchWorkers() int {
	if o.BatchWorkers > 0 {
		return o.BatchWorkers
	}
	return 1
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveCooldown() time.Duration {
	if o.RateLimitCooldown > 0 {
		return o.RateLimitCooldown
	}
	return 60 * time.Second
}

// OutcomeStatus classifies how one file ended.
type OutcomeStatus string

const (
	// OutcomeTranslated means the file was rewritten with translations.
	OutcomeTranslated OutcomeStatus = "translated"
	// OutcomeSkipped means the file was left untouched, with a reason.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeFailed means a per-file error occurred; the original is
	// untouched and the run continued.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is the explicit per-file result aggregated into the run report.
type Outcome struct {
	File       string
	Status     OutcomeStatus
	Units      int
	Translated int
	Reason     string
}

// Report summarizes a run.
type Report struct {
	Engine   string
	State    State
	Outcomes []Outcome
	Fatal    error
}

// Translated counts files that were rewritten.
func (r *Report) Translated() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeTranslated {
			n++
		}
	}
	return n
}

// errStopped marks a batch or file abandoned because the run was stopped.
var errStopped = errors.New("run stopped")

// Runner drives one translation run over a detected project.
type Runner struct {
	adapter   engine.Adapter
	providers *provider.Set
	opts      Options
	control   *Control

	mu    sync.Mutex
	fatal error
}

// NewRunner builds a runner for one adapter and provider set.
func NewRunner(adapter engine.Adapter, providers *provider.Set, opts Options) *Runner {
	return &Runner{
		adapter:   adapter,
		providers: providers,
		opts:      opts,
		control:   &Control{},
	}
}

// Control returns the pause/stop surface for this run.
func (r *Runner) Control() *Control { return r.control }

func (r *Runner) setFatal(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.mu.Unlock()
	r.control.Stop()
}

func (r *Runner) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

// Run processes files in order, bounded by the file-level worker count.
// Each file's extract→translate→apply→write sequence is fully serialized
// within its own task; across files there is no ordering guarantee when
// FileWorkers > 1. The returned Report always covers every file.
func (r *Runner) Run(ctx context.Context, files []string) (*Report, error) {
	report := &Report{
		Engine:   r.adapter.ID(),
		Outcomes: make([]Outcome, len(files)),
	}

	sem := make(chan struct{}, r.opts.effectiveFileWorkers())
	var wg sync.WaitGroup

	for i, path := range files {
		if err := r.control.waitWhilePaused(ctx); err != nil {
			for j := i; j < len(files); j++ {
				report.Outcomes[j] = Outcome{File: files[j], Status: OutcomeSkipped, Reason: "run stopped"}
			}
			break
		}
		if r.control.Stopped() || ctx.Err() != nil {
			report.Outcomes[i] = Outcome{File: path, Status: OutcomeSkipped, Reason: "run stopped"}
			continue
		}
		r.control.currentFile.Store(int64(i))

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, path string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			report.Outcomes[idx] = r.processFile(ctx, path)
		}(i, path)
	}
	wg.Wait()

	if r.opts.Cache != nil {
		if err := r.opts.Cache.Save(); err != nil {
			r.opts.logError("Saving translation cache: %v", err)
		}
	}

	report.Fatal = r.fatalErr()
	switch {
	case report.Fatal != nil:
		report.State = StateFailedFatal
	case r.control.Stopped() || ctx.Err() != nil:
		report.State = StateStopped
	default:
		report.State = StateCompleted
	}
	return report, report.Fatal
}

// processFile runs the full pipeline for one file. Per-file errors are
// recoverable: they produce a skipped/failed outcome and never abort the
// run. Only categorized fatal provider errors stop everything.
func (r *Runner) processFile(ctx context.Context, path string) Outcome {
	units, err := r.adapter.Extract(path)
	if err != nil {
		var extractErr *unit.ExtractionError
		if errors.As(err, &extractErr) {
			r.opts.logError("Skipping %s: %v", path, err)
			return Outcome{File: path, Status: OutcomeSkipped, Reason: err.Error()}
		}
		r.opts.logError("Cannot read %s: %v", path, err)
		return Outcome{File: path, Status: OutcomeFailed, Reason: err.Error()}
	}
	if len(units) == 0 {
		return Outcome{File: path, Status: OutcomeSkipped, Reason: "no translatable text"}
	}

	r.opts.log("Translating %s (%d units)...", path, len(units))

	translated, err := r.translateUnits(ctx, path, units)
	if err != nil {
		if errors.Is(err, errStopped) || ctx.Err() != nil {
			return Outcome{File: path, Status: OutcomeSkipped, Units: len(units), Reason: "run stopped"}
		}
		r.opts.logError("Translation failed for %s: %v", path, err)
		return Outcome{File: path, Status: OutcomeFailed, Units: len(units), Reason: err.Error()}
	}

	translations, changed := r.buildTranslationMap(units, translated)
	if changed == 0 {
		return Outcome{File: path, Status: OutcomeSkipped, Units: len(units), Reason: "no units translated"}
	}

	artifact, err := r.adapter.Apply(path, translations)
	if err != nil {
		r.opts.logError("Reinsertion failed for %s: %v", path, err)
		return Outcome{File: path, Status: OutcomeFailed, Units: len(units), Reason: err.Error()}
	}
	if err := writeWithBackup(path, artifact); err != nil {
		r.opts.logError("Writing %s: %v", path, err)
		return Outcome{File: path, Status: OutcomeFailed, Units: len(units), Reason: err.Error()}
	}

	r.opts.log("Completed %s (%d/%d units translated)", path, changed, len(units))
	return Outcome{File: path, Status: OutcomeTranslated, Units: len(units), Translated: changed}
}

// translateUnits fills cached units, splits the rest into batches,
// translates them under the batch-level worker bound, and reassembles
// results into unit order — each batch writes back through its recorded
// unit indices, so completion order does not matter.
func (r *Runner) translateUnits(ctx context.Context, path string, units []unit.Unit) ([]string, error) {
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	out := make([]string, len(texts))
	var pending []int
	for i, text := range texts {
		if r.opts.Cache != nil {
			if cached, ok := r.opts.Cache.Lookup(r.opts.TargetLanguage, text); ok {
				out[i] = cached
				continue
			}
		}
		pending = append(pending, i)
	}
	cached := len(texts) - len(pending)
	if cached > 0 {
		r.opts.log("%s: %d/%d units filled from cache", path, cached, len(texts))
		if r.opts.OnProgress != nil {
			r.opts.OnProgress(path, cached, len(texts))
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	batchSize := r.opts.effectiveBatchSize()
	type job struct {
		idx     int
		unitIdx []int
		texts   []string
	}
	var jobs []job
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		unitIdx := pending[start:end]
		batchTexts := make([]string, len(unitIdx))
		for k, ui := range unitIdx {
			batchTexts[k] = texts[ui]
		}
		jobs = append(jobs, job{idx: len(jobs), unitIdx: unitIdx, texts: batchTexts})
	}

	sem := make(chan struct{}, r.opts.effectiveBatchWorkers())
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	var outMu sync.Mutex
	done := cached

	for _, j := range jobs {
		if err := r.control.waitWhilePaused(ctx); err != nil {
			errOnce.Do(func() { firstErr = err })
			break
		}
		if r.control.Stopped() || ctx.Err() != nil {
			errOnce.Do(func() { firstErr = errStopped })
			break
		}
		r.control.currentBatch.Store(int64(j.idx))

		sem <- struct{}{}
		wg.Add(1)
		go func(j job) {
			defer func() {
				<-sem
				wg.Done()
			}()
			batchOut, err := r.translateBatch(ctx, path, j.idx, j.texts)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			outMu.Lock()
			for k, ui := range j.unitIdx {
				out[ui] = batchOut[k]
			}
			done += len(j.texts)
			current := done
			outMu.Unlock()
			if r.opts.Cache != nil {
				for k, source := range j.texts {
					r.opts.Cache.Put(r.opts.TargetLanguage, source, batchOut[k])
				}
			}
			if r.opts.OnProgress != nil {
				r.opts.OnProgress(path, current, len(texts))
			}
		}(j)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// translateBatch submits one batch, handling categorized provider failures:
// rate limits retry the same batch after a cooldown (bounded), quota and
// auth failures stop the whole run, and anything else falls back to the
// original text so the run always completes the file list.
func (r *Runner) translateBatch(ctx context.Context, path string, batchIdx int, texts []string) ([]string, error) {
	batch := provider.NewBatch(texts)
	rateRetries := 0
	tried := make(map[string]bool)

	for {
		if r.control.Stopped() || ctx.Err() != nil {
			return nil, errStopped
		}

		client, ok := r.pickUntried(tried)
		if !ok {
			r.opts.logError("Batch %d of %s: all providers failed, keeping original text", batchIdx+1, path)
			return texts, nil
		}

		result, err := r.callProvider(ctx, client, batch)
		if err == nil {
			r.providers.RecordSuccess(client.ID())
			return resolveBatch(batch, result), nil
		}

		var perr *provider.Error
		if !errors.As(err, &perr) {
			perr = &provider.Error{Kind: provider.Transient, Provider: client.ID(), Err: err}
		}
		r.providers.RecordFailure(client.ID())

		switch perr.Kind {
		case provider.RateLimited:
			if rateRetries < r.opts.effectiveMaxRetries() {
				rateRetries++
				cooldown := r.opts.effectiveCooldown()
				r.opts.log("Batch %d of %s rate limited, retrying in %s (attempt %d/%d)",
					batchIdx+1, path, cooldown, rateRetries, r.opts.effectiveMaxRetries())
				if err := sleepOrStop(ctx, r.control, cooldown); err != nil {
					return nil, errStopped
				}
				continue // same batch, same provider
			}
			r.opts.logError("Batch %d of %s: rate limit retries exhausted for %s", batchIdx+1, path, client.ID())
			tried[client.ID()] = true

		case provider.QuotaExceeded, provider.Unauthorized:
			fatal := fmt.Errorf("fatal provider failure: %w", perr)
			r.opts.logError("%v — stopping run", fatal)
			r.setFatal(fatal)
			return nil, fatal

		default: // Transient
			r.opts.logError("Batch %d of %s failed on %s: %v", batchIdx+1, path, client.ID(), perr)
			tried[client.ID()] = true
		}
	}
}

func (r *Runner) callProvider(ctx context.Context, client provider.Client, batch *provider.Batch) (map[string]string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	return client.Translate(ctx, batch)
}

// pickUntried selects the first provider by priority that is neither in
// cooldown nor already tried for this batch.
func (r *Runner) pickUntried(tried map[string]bool) (provider.Client, bool) {
	client, err := r.providers.PickExcluding(tried)
	if err != nil {
		return nil, false
	}
	return client, true
}

// resolveBatch aligns a provider result with the batch order, falling back
// to the source text for any key the provider did not return.
func resolveBatch(batch *provider.Batch, result map[string]string) []string {
	out := make([]string, len(batch.Keys))
	for i, key := range batch.Keys {
		if t, ok := result[key]; ok && t != "" {
			out[i] = t
		} else {
			out[i] = batch.Source[key]
		}
	}
	return out
}

// buildTranslationMap converts aligned (unit, translation) pairs into the
// map Apply expects. Positional adapters are keyed by LocationKey in
// extraction order — duplicates stay distinct slots. Literal-match adapters
// are keyed by source text — duplicates collapse, and one entry affects
// every occurrence. changed counts units whose text actually differs.
func (r *Runner) buildTranslationMap(units []unit.Unit, translated []string) (map[string]string, int) {
	m := make(map[string]string, len(units))
	changed := 0
	positional := r.adapter.Positional()
	for i, u := range units {
		if translated[i] != u.Text {
			changed++
		}
		if positional {
			m[u.LocationKey] = translated[i]
		} else {
			m[u.Text] = translated[i]
		}
	}
	return m, changed
}

// writeWithBackup renames the original to a .backup sibling, then writes
// the artifact in place. A failed write restores the original.
func writeWithBackup(path string, artifact []byte) error {
	backup := path + ".backup"
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale backup: %w", err)
	}
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}
	if err := os.WriteFile(path, artifact, 0644); err != nil {
		if restoreErr := os.Rename(backup, path); restoreErr != nil {
			return fmt.Errorf("writing artifact: %v (restore failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// sleepOrStop sleeps for d in 100ms polls so Stop and context cancellation
// cut the cooldown short.
func sleepOrStop(ctx context.Context, control *Control, d time.Duration) error {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if control.Stopped() {
			return errStopped
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}
