package app

// Config holds runtime configuration for the verification pipeline.
type Config struct {
	// InputPath is the scan manifest CSV listing previously-collected pages.
	InputPath string
	// OutputPath receives one JSON line per verified scan.
	OutputPath string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Verification
	WCAGLevel    string
	BatchSize    int
	PerScanChars int

	// Resumable execution
	CheckpointPath string
	LockPath       string
	FlushEvery     int

	// Cache
	CacheDir        string
	CacheTTLDays    int
	CacheMaxEntries int
	CacheClear      bool

	// Behavior
	DryRun  bool
	Verbose bool
}

// Defaults used by flag registration and file-config overlay.
const (
	DefaultOutputPath     = "verifications.jsonl"
	DefaultWCAGLevel      = "AA"
	DefaultPerScanChars   = 30_000
	DefaultFlushEvery     = 5
	DefaultCheckpointPath = ".ai-scan-checkpoint.json"
	DefaultLockPath       = ".ai-scan.lock"
	DefaultCacheTTLDays   = 7
)
