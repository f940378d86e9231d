// Package app wires the resumable-execution core (execution lock, checkpoint
// store, result cache) around the expensive AI verification step and drives
// the batch over a scan manifest.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/a11yscan/internal/budget"
	"github.com/hyperifyio/a11yscan/internal/cache"
	"github.com/hyperifyio/a11yscan/internal/checkpoint"
	"github.com/hyperifyio/a11yscan/internal/content"
	"github.com/hyperifyio/a11yscan/internal/lock"
	"github.com/hyperifyio/a11yscan/internal/verify"
)

// Sentinel errors the CLI maps onto its exit-code scheme.
var (
	// ErrLockHeld means another live, non-stale run owns the lock file.
	ErrLockHeld = errors.New("another verification run holds the execution lock")
	// ErrAllScansFailed means every pending scan failed; the checkpoint is kept.
	ErrAllScansFailed = errors.New("all pending scans failed")
	// ErrPartialFailure means some scans failed; the checkpoint is kept so a
	// rerun picks up only the remainder.
	ErrPartialFailure = errors.New("some scans failed")
)

type App struct {
	cfg     Config
	ai      *openai.Client
	checker *verify.Checker
	store   *cache.Store
	ckpt    *checkpoint.Manager
	lck     *lock.Manager
}

func New(ctx context.Context, cfg Config) (*App, error) {
	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	client := openai.NewClientWithConfig(transportCfg)

	ttl := time.Duration(cfg.CacheTTLDays) * 24 * time.Hour
	a := &App{
		cfg:     cfg,
		ai:      client,
		checker: &verify.Checker{Client: client, Model: cfg.LLMModel},
		store:   cache.New(cfg.CacheDir, ttl, cfg.CacheMaxEntries),
		ckpt:    checkpoint.NewManager(cfg.CheckpointPath),
		lck:     lock.NewManager(cfg.LockPath),
	}

	// Cache maintenance at startup: optional full invalidation, then expired
	// entry purge, then entry-count reconciliation.
	if cfg.CacheClear {
		if err := a.store.ClearAll(); err != nil {
			return nil, fmt.Errorf("clear cache: %w", err)
		}
		log.Info().Str("dir", a.store.Dir).Msg("cache cleared")
	}
	if removed, err := a.store.Cleanup(); err != nil {
		log.Warn().Err(err).Msg("cache cleanup failed; continuing")
	} else if removed > 0 {
		log.Debug().Int("removed", removed).Msg("purged expired cache entries")
	}
	if err := a.store.Warmup(); err != nil {
		log.Warn().Err(err).Msg("cache warmup failed; continuing")
	}

	if !cfg.DryRun {
		// Preflight is best-effort: downstream calls surface real errors.
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if models, err := a.ai.ListModels(pctx); err != nil {
			log.Warn().Err(err).Msg("LLM model list failed; continuing")
		} else {
			log.Debug().Int("count", len(models.Models)).Msg("LLM models available")
		}
	}
	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

// Run executes the batch: acquire the lock, load or initialize the
// checkpoint, verify every pending scan (cache-first), flush progress
// periodically, and clear the checkpoint only on full success.
func (a *App) Run(ctx context.Context) error {
	ok, err := a.lck.Acquire()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if rec, found := a.lck.ReadInfo(); found {
			log.Error().Int("pid", rec.PID).Str("host", rec.Hostname).
				Time("since", rec.StartedAt).Msg("lock held by a live run")
		}
		return ErrLockHeld
	}
	defer func() {
		if err := a.lck.Release(); err != nil {
			log.Warn().Err(err).Msg("release lock failed")
		}
	}()

	scans, err := LoadManifest(a.cfg.InputPath, cache.Level(a.cfg.WCAGLevel))
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	cp, resumed := a.ckpt.Load()
	if resumed && cp.InputFile == a.cfg.InputPath {
		log.Info().Int("processed", len(cp.ProcessedScanIDs)).
			Time("startedAt", cp.StartedAt).Msg("resuming from checkpoint")
	} else {
		if resumed {
			log.Warn().Str("checkpointInput", cp.InputFile).Str("input", a.cfg.InputPath).
				Msg("checkpoint belongs to a different manifest; starting fresh")
		}
		cp = a.ckpt.Init(a.cfg.InputPath)
	}

	if a.cfg.DryRun {
		return a.dryRun(scans)
	}

	out, err := openResultWriter(a.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer out.Close()

	flushEvery := a.cfg.FlushEvery
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}

	attempted, failed, completed := 0, 0, 0
	for i, s := range scans {
		if err := ctx.Err(); err != nil {
			// Persist progress before bailing out on cancellation.
			if ferr := a.ckpt.Flush(); ferr != nil {
				log.Warn().Err(ferr).Msg("flush on cancel failed")
			}
			return err
		}
		if a.ckpt.IsProcessed(s.ID) {
			log.Debug().Str("scan", s.ID).Msg("already processed; skipping")
			continue
		}
		attempted++
		cp.LastBatch = i

		res, err := a.verifyScan(ctx, s)
		if err != nil {
			log.Warn().Err(err).Str("scan", s.ID).Msg("scan failed; will retry next run")
			failed++
			continue
		}
		if err := out.Write(res); err != nil {
			return fmt.Errorf("write result for %s: %w", s.ID, err)
		}
		a.ckpt.MarkProcessed(s.ID)
		completed++
		if completed%flushEvery == 0 {
			if err := a.ckpt.Flush(); err != nil {
				return fmt.Errorf("flush checkpoint: %w", err)
			}
		}
	}
	if err := a.ckpt.Flush(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}

	stats := a.store.Stats()
	log.Info().
		Int("scans", len(scans)).Int("attempted", attempted).
		Int("completed", completed).Int("failed", failed).
		Int("cacheHits", stats.Hits).Int("cacheMisses", stats.Misses).
		Float64("hitRate", stats.HitRate()).Int("tokensSaved", stats.TokensSaved).
		Int("cacheEntries", stats.Entries).
		Msg("run finished")

	switch {
	case failed > 0 && failed == attempted:
		return ErrAllScansFailed
	case failed > 0:
		return ErrPartialFailure
	}
	if err := a.ckpt.Clear(); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

// verifyScan runs all criteria mini-batches for one scan, cache-first. The
// scan either completes in full or fails as a whole; partially verified scans
// are never marked processed, so a rerun redoes them.
func (a *App) verifyScan(ctx context.Context, s ScanInput) (*ScanResult, error) {
	page, err := content.Load(s.ContentPath, a.cfg.PerScanChars)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	batches := verify.Batches(s.Level, a.cfg.BatchSize)
	res := &ScanResult{
		ScanID:       s.ID,
		Level:        s.Level,
		Title:        page.Title,
		TotalBatches: len(batches),
	}
	cp := a.ckpt.Checkpoint()
	for bi, batch := range batches {
		key := cache.DeriveKey(page.Markup, s.Level, bi)
		if entry, ok := a.store.Get(key); ok {
			res.Verifications = append(res.Verifications, entry.Verifications...)
			res.CachedBatches++
			continue
		}
		vs, tokens, err := a.checker.Check(ctx, page.Markup, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", bi, err)
		}
		if err := a.store.Set(key, vs, tokens, a.cfg.LLMModel); err != nil {
			// Cache write failure costs a redo later, never the result now.
			log.Warn().Err(err).Str("scan", s.ID).Int("batch", bi).Msg("cache write failed")
		}
		res.Verifications = append(res.Verifications, vs...)
		res.TokensUsed += tokens
		if cp != nil {
			cp.LastMiniBatch = bi
		}
	}
	res.CompletedAt = time.Now().UTC()
	return res, nil
}

// dryRun reports what a real run would do without calling the model. Cache
// probes use Has so hit/miss accounting stays clean.
func (a *App) dryRun(scans []ScanInput) error {
	skipped, cachedBatches, pendingBatches, estTokens := 0, 0, 0, 0
	for _, s := range scans {
		if a.ckpt.IsProcessed(s.ID) {
			skipped++
			continue
		}
		page, err := content.Load(s.ContentPath, a.cfg.PerScanChars)
		if err != nil {
			log.Warn().Err(err).Str("scan", s.ID).Msg("content unreadable")
			continue
		}
		for bi, batch := range verify.Batches(s.Level, a.cfg.BatchSize) {
			if a.store.Has(cache.DeriveKey(page.Markup, s.Level, bi)) {
				cachedBatches++
				continue
			}
			pendingBatches++
			estTokens += budget.EstimateCheckTokens(page.Markup, len(batch))
		}
	}
	log.Info().
		Int("scans", len(scans)).Int("alreadyProcessed", skipped).
		Int("cachedBatches", cachedBatches).Int("pendingModelCalls", pendingBatches).
		Int("estimatedTokens", estTokens).
		Msg("dry run")
	return nil
}
