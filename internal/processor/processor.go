// Package processor drives the resumable concurrent job runner: for each
// (model, strategy) combination it loads the persisted processing state,
// pushes still-unprocessed error groups through a bounded worker pool,
// calls the provider with rate-limit-aware retry, and persists every
// result durably before moving on.
//
// Guarantees:
//   - Exactly-once per (combination, fingerprint): a persisted entry is
//     never reprocessed or re-billed across restarts.
//   - Per-job isolation: one job's failure never aborts the batch.
//   - No lost writes: all persistence is serialized through the state
//     store's mutex; workers never touch the document directly.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawtograder/triage/internal/cost"
	"github.com/pawtograder/triage/internal/prompt"
	"github.com/pawtograder/triage/internal/provider"
	"github.com/pawtograder/triage/internal/state"
	"github.com/pawtograder/triage/internal/types"
)

// OutcomeRecorder receives terminal job outcomes for reporting surfaces
// (the SQLite archive). Recording failures are logged, never propagated.
type OutcomeRecorder interface {
	RecordOutcome(combo types.Combination, fingerprint string, outcome types.JobOutcome, detail string) error
}

// Options configures a Processor.
type Options struct {
	Config  Config
	Client  provider.Client
	Prompts prompt.Generator

	// Ledger, when set, receives one usage entry per billed call.
	Ledger *cost.Ledger

	// Archive, when set, receives every terminal outcome.
	Archive OutcomeRecorder

	// Manifest, when set, contributes extra skip rules.
	Manifest *Manifest
}

// Processor runs error groups against provider combinations.
type Processor struct {
	cfg     Config
	client  provider.Client
	prompts prompt.Generator
	ledger  *cost.Ledger
	archive OutcomeRecorder
	checks  []SkipCheck
	limiter *rate.Limiter
	log     *slog.Logger
}

// New validates options and builds a Processor.
func New(opts Options) (*Processor, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processor config: %w", err)
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if opts.Prompts == nil {
		opts.Prompts = &prompt.TemplateGenerator{}
	}

	var extraCategories []string
	var extraPatterns []*regexp.Regexp
	if opts.Manifest != nil {
		extraCategories = opts.Manifest.SkipCategories
		extraPatterns = opts.Manifest.compiledPatterns()
	}

	var limiter *rate.Limiter
	if opts.Config.Concurrency == 1 && opts.Config.JobDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Config.JobDelay), 1)
	}

	return &Processor{
		cfg:     opts.Config,
		client:  opts.Client,
		prompts: opts.Prompts,
		ledger:  opts.Ledger,
		archive: opts.Archive,
		checks:  buildSkipChecks(extraCategories, extraPatterns),
		limiter: limiter,
		log:     slog.Default(),
	}, nil
}

// Summary reports one combination's run. Offered always equals
// Processed + Skipped + Failed.
type Summary struct {
	Combination types.Combination
	Offered     int
	Processed   int
	Skipped     int
	Failed      int
	SkipReasons map[string]int
}

// Run processes groups against each combination in sequence and returns
// one summary per combination. Per-job failures are absorbed into the
// summaries; only setup failures (state directory unusable) return an
// error.
func (p *Processor) Run(ctx context.Context, groups []*types.ErrorGroup, combos []types.Combination) ([]Summary, error) {
	summaries := make([]Summary, 0, len(combos))
	for i, combo := range combos {
		if err := combo.Validate(); err != nil {
			return summaries, fmt.Errorf("combination %d: %w", i, err)
		}

		if i > 0 && p.cfg.CombinationDelay > 0 {
			select {
			case <-time.After(p.cfg.CombinationDelay):
			case <-ctx.Done():
				return summaries, ctx.Err()
			}
		}

		summary, err := p.runCombination(ctx, groups, combo)
		if err != nil {
			return summaries, fmt.Errorf("combination %s: %w", combo, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// runCombination runs one combination's jobs through the worker pool.
func (p *Processor) runCombination(ctx context.Context, groups []*types.ErrorGroup, combo types.Combination) (Summary, error) {
	store, err := state.Open(p.cfg.StateDir, combo)
	if err != nil {
		return Summary{}, err
	}

	work := groups
	if p.cfg.Limit > 0 && p.cfg.Limit < len(work) {
		work = work[:p.cfg.Limit]
	}

	p.log.Info("starting combination",
		"model", combo.Model, "strategy", combo.Strategy,
		"groups", len(work), "already_processed", store.Len(),
		"concurrency", p.cfg.Concurrency)

	summary := Summary{
		Combination: combo,
		Offered:     len(work),
		SkipReasons: make(map[string]int),
	}
	var mu sync.Mutex

	// Shared work queue: each worker atomically claims the next index.
	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(work) {
					return
				}
				outcome, reason := p.processOne(ctx, store, combo, work[i], i, len(work))

				mu.Lock()
				switch outcome {
				case types.OutcomeCompleted:
					summary.Processed++
				case types.OutcomeSkipped:
					summary.Skipped++
					summary.SkipReasons[reason]++
				case types.OutcomeFailed:
					summary.Failed++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p.log.Info("combination finished",
		"model", combo.Model, "strategy", combo.Strategy,
		"processed", summary.Processed, "skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

// processOne executes the single-job procedure for one group and returns
// its terminal outcome plus the skip reason when skipped.
func (p *Processor) processOne(ctx context.Context, store *state.Store, combo types.Combination, g *types.ErrorGroup, index, total int) (types.JobOutcome, string) {
	logJob := p.log.With(
		"model", combo.Model, "strategy", combo.Strategy,
		"job", fmt.Sprintf("%d/%d", index+1, total),
		"fingerprint", g.Fingerprint)

	// Skip predicates run before any provider work so skips never bill.
	for _, check := range p.checks {
		if check.Applies(g) {
			logJob.Info("job skipped", "reason", check.Reason)
			p.recordOutcome(combo, g.Fingerprint, types.OutcomeSkipped, check.Reason)
			return types.OutcomeSkipped, check.Reason
		}
	}

	// Idempotency: completed work is never redone or re-billed.
	if store.Has(g.Fingerprint) {
		logJob.Info("job skipped", "reason", "already processed")
		p.recordOutcome(combo, g.Fingerprint, types.OutcomeSkipped, "already processed")
		return types.OutcomeSkipped, "already processed"
	}

	messages, err := p.prompts.Generate(g, combo.Strategy)
	if err != nil {
		logJob.Error("job failed", "stage", "prompt", "error", err)
		p.recordOutcome(combo, g.Fingerprint, types.OutcomeFailed, err.Error())
		return types.OutcomeFailed, ""
	}

	resp, err := p.callWithRetry(ctx, logJob, provider.Request{
		Model:    combo.Model,
		Messages: messages,
	})
	if err != nil {
		logJob.Error("job failed", "stage", "provider",
			"class", provider.ClassOf(err).String(), "error", err)
		p.recordOutcome(combo, g.Fingerprint, types.OutcomeFailed, err.Error())
		return types.OutcomeFailed, ""
	}

	entry := types.ProcessingStateEntry{
		Response:    resp.Content,
		ProcessedAt: time.Now().UTC(),
		Usage:       resp.Usage,
	}
	if p.ledger != nil && entry.Usage != nil {
		entry.Usage.CostUSD = p.ledger.Price(combo.Model, entry.Usage)
	}

	// Persist synchronously before claiming the next job: a crash here
	// loses at most this one in-flight result.
	if err := store.Put(g.Fingerprint, entry); err != nil {
		logJob.Error("job failed", "stage", "persist", "error", err)
		p.recordOutcome(combo, g.Fingerprint, types.OutcomeFailed, err.Error())
		return types.OutcomeFailed, ""
	}

	if p.ledger != nil && entry.Usage != nil {
		if err := p.ledger.Record(combo, g.Fingerprint, entry.Usage); err != nil {
			logJob.Warn("ledger append failed", "error", err)
		}
	}

	logJob.Info("job completed", "tokens", tokenCount(entry.Usage))
	p.recordOutcome(combo, g.Fingerprint, types.OutcomeCompleted, "")
	return types.OutcomeCompleted, ""
}

// callWithRetry calls the provider, retrying rate-limit-class failures
// with exponential backoff up to MaxRetries. Any other failure class is
// terminal for the job on the first occurrence.
func (p *Processor) callWithRetry(ctx context.Context, logJob *slog.Logger, req provider.Request) (*provider.Response, error) {
	backoff := p.cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("pacing interrupted: %w", err)
			}
		}

		resp, err := p.client.Process(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !provider.IsRateLimit(err) {
			return nil, err
		}
		if attempt == p.cfg.MaxRetries {
			break
		}

		logJob.Warn("rate limited, backing off",
			"attempt", attempt+1, "max", p.cfg.MaxRetries+1, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, fmt.Errorf("backoff interrupted: %w", ctx.Err())
		}
		backoff *= 2
		if backoff > p.cfg.MaxBackoff {
			backoff = p.cfg.MaxBackoff
		}
	}

	return nil, fmt.Errorf("rate limit persisted after %d attempts: %w", p.cfg.MaxRetries+1, lastErr)
}

func (p *Processor) recordOutcome(combo types.Combination, fingerprint string, outcome types.JobOutcome, detail string) {
	if p.archive == nil {
		return
	}
	if err := p.archive.RecordOutcome(combo, fingerprint, outcome, detail); err != nil {
		p.log.Warn("outcome archive failed", "fingerprint", fingerprint, "error", err)
	}
}

func tokenCount(u *types.UsageMetadata) int64 {
	if u == nil {
		return 0
	}
	return u.TotalTokens
}
