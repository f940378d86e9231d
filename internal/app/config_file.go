package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/a11yscan/internal/cache"
)

// FileConfig represents the single-file configuration schema. Nested sections
// map naturally to the flag groups.
type FileConfig struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	WCAG struct {
		Level        string `yaml:"level" json:"level"`
		BatchSize    int    `yaml:"batchSize" json:"batchSize"`
		PerScanChars int    `yaml:"perScanChars" json:"perScanChars"`
	} `yaml:"wcag" json:"wcag"`

	Cache struct {
		Dir        string `yaml:"dir" json:"dir"`
		TTLDays    int    `yaml:"ttlDays" json:"ttlDays"`
		MaxEntries int    `yaml:"maxEntries" json:"maxEntries"`
		Clear      bool   `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Checkpoint struct {
		File       string `yaml:"file" json:"file"`
		FlushEvery int    `yaml:"flushEvery" json:"flushEvery"`
	} `yaml:"checkpoint" json:"checkpoint"`

	Lock struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"lock" json:"lock"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// still at their flag defaults. Flags must already have been parsed; explicit
// flags win over file values.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.InputPath == "" && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == DefaultOutputPath) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}

	if (cfg.WCAGLevel == "" || cfg.WCAGLevel == DefaultWCAGLevel) && fc.WCAG.Level != "" {
		cfg.WCAGLevel = fc.WCAG.Level
	}
	if cfg.BatchSize == 0 && fc.WCAG.BatchSize > 0 {
		cfg.BatchSize = fc.WCAG.BatchSize
	}
	if (cfg.PerScanChars == 0 || cfg.PerScanChars == DefaultPerScanChars) && fc.WCAG.PerScanChars > 0 {
		cfg.PerScanChars = fc.WCAG.PerScanChars
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == cache.DefaultDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if (cfg.CacheTTLDays == 0 || cfg.CacheTTLDays == DefaultCacheTTLDays) && fc.Cache.TTLDays > 0 {
		cfg.CacheTTLDays = fc.Cache.TTLDays
	}
	if (cfg.CacheMaxEntries == 0 || cfg.CacheMaxEntries == cache.DefaultMaxEntries) && fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}

	if (cfg.CheckpointPath == "" || cfg.CheckpointPath == DefaultCheckpointPath) && fc.Checkpoint.File != "" {
		cfg.CheckpointPath = fc.Checkpoint.File
	}
	if (cfg.FlushEvery == 0 || cfg.FlushEvery == DefaultFlushEvery) && fc.Checkpoint.FlushEvery > 0 {
		cfg.FlushEvery = fc.Checkpoint.FlushEvery
	}
	if (cfg.LockPath == "" || cfg.LockPath == DefaultLockPath) && fc.Lock.File != "" {
		cfg.LockPath = fc.Lock.File
	}

	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
// For dry-run, LLM settings may be omitted.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return errors.New("config: input manifest path is required")
	}
	if !cache.ValidLevel(cache.Level(cfg.WCAGLevel)) {
		return fmt.Errorf("config: wcag level must be A, AA, or AAA (got %q)", cfg.WCAGLevel)
	}
	if !cfg.DryRun {
		if strings.TrimSpace(cfg.LLMModel) == "" {
			return errors.New("config: llm.model is required (or set LLM_MODEL)")
		}
	}
	if cfg.BatchSize < 0 || cfg.FlushEvery < 0 || cfg.PerScanChars < 0 ||
		cfg.CacheTTLDays < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
