package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/a11yscan/internal/app"
	"github.com/hyperifyio/a11yscan/internal/cache"
)

// Exit codes surfaced to operators and schedulers.
const (
	exitOK            = 0
	exitFailure       = 1 // every pending scan failed, or a fatal error
	exitPartial       = 2 // some scans failed; rerun resumes the remainder
	exitLockHeld      = 3
	exitPrereqMissing = 4 // manifest or configuration problems
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Dotenv pre-load so flag env defaults below see file-provided values.
	if err := app.LoadEnvFiles(os.Getenv("A11YSCAN_ENV_FILE"), ".env"); err != nil {
		log.Warn().Err(err).Msg("env file load failed; continuing")
	}

	var (
		configPath   string
		inputPath    string
		outputPath   string
		llmBaseURL   string
		llmModel     string
		llmKey       string
		wcagLevel    string
		batchSize    int
		perScanChars int
		cacheDir     string
		cacheTTLDays int
		cacheMax     int
		cacheClear   bool
		ckptPath     string
		lockPath     string
		flushEvery   int
		dryRun       bool
		verbose      bool
		showVersion  bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("A11YSCAN_CONFIG"), "Path to YAML/JSON config file (optional)")
	flag.StringVar(&inputPath, "input", "", "Path to scan manifest CSV (scan_id,content_path[,wcag_level])")
	flag.StringVar(&outputPath, "output", app.DefaultOutputPath, "Path to append verification results (JSONL)")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.StringVar(&wcagLevel, "wcag.level", app.DefaultWCAGLevel, "Default WCAG conformance level (A, AA, AAA)")
	flag.IntVar(&batchSize, "wcag.batchSize", 0, "Criteria per model call (0 uses the built-in default)")
	flag.IntVar(&perScanChars, "wcag.perScanChars", app.DefaultPerScanChars, "Maximum markup characters sent per scan")
	flag.StringVar(&cacheDir, "cache.dir", cache.DefaultDir, "Result cache directory path")
	flag.IntVar(&cacheTTLDays, "cache.ttlDays", app.DefaultCacheTTLDays, "Days before cached results expire")
	flag.IntVar(&cacheMax, "cache.maxEntries", cache.DefaultMaxEntries, "Advisory cache entry ceiling")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear the result cache before the run")
	flag.StringVar(&ckptPath, "checkpoint.file", app.DefaultCheckpointPath, "Checkpoint file path")
	flag.StringVar(&lockPath, "lock.file", app.DefaultLockPath, "Execution lock file path")
	flag.IntVar(&flushEvery, "checkpoint.flushEvery", app.DefaultFlushEvery, "Scans completed between checkpoint flushes")
	flag.BoolVar(&dryRun, "dry-run", false, "Report cached/pending work without calling the model")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("a11yscan %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		InputPath:       inputPath,
		OutputPath:      outputPath,
		LLMBaseURL:      llmBaseURL,
		LLMModel:        llmModel,
		LLMAPIKey:       llmKey,
		WCAGLevel:       wcagLevel,
		BatchSize:       batchSize,
		PerScanChars:    perScanChars,
		CacheDir:        cacheDir,
		CacheTTLDays:    cacheTTLDays,
		CacheMaxEntries: cacheMax,
		CacheClear:      cacheClear,
		CheckpointPath:  ckptPath,
		LockPath:        lockPath,
		FlushEvery:      flushEvery,
		DryRun:          dryRun,
		Verbose:         verbose,
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("config file unreadable")
			os.Exit(exitPrereqMissing)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitPrereqMissing)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCodeFor(err))
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}

// exitCodeFor maps run errors onto the exit-code scheme. Unrecognized errors
// count as complete failures.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrLockHeld):
		return exitLockHeld
	case errors.Is(err, app.ErrPartialFailure):
		return exitPartial
	case errors.Is(err, app.ErrNoScans), errors.Is(err, fs.ErrNotExist):
		return exitPrereqMissing
	default:
		return exitFailure
	}
}
