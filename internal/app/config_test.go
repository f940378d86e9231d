package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a11yscan.yaml")
	body := `
input: scans.csv
llm:
  base: http://localhost:8080/v1
  model: local-model
wcag:
  level: AAA
  batchSize: 5
cache:
  dir: /var/cache/a11yscan
  ttlDays: 14
checkpoint:
  file: /var/run/a11yscan.checkpoint
  flushEvery: 10
lock:
  file: /var/run/a11yscan.lock
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.LLM.Model != "local-model" || fc.WCAG.BatchSize != 5 || fc.Cache.TTLDays != 14 {
		t.Fatalf("unexpected config: %+v", fc)
	}

	cfg := Config{
		OutputPath:     DefaultOutputPath,
		WCAGLevel:      DefaultWCAGLevel,
		CheckpointPath: DefaultCheckpointPath,
		LockPath:       DefaultLockPath,
		CacheTTLDays:   DefaultCacheTTLDays,
		FlushEvery:     DefaultFlushEvery,
	}
	ApplyFileConfig(&cfg, fc)
	if cfg.InputPath != "scans.csv" || cfg.WCAGLevel != "AAA" {
		t.Fatalf("overlay failed: %+v", cfg)
	}
	if cfg.FlushEvery != 10 || cfg.CheckpointPath != "/var/run/a11yscan.checkpoint" {
		t.Fatalf("checkpoint overlay failed: %+v", cfg)
	}
}

func TestApplyFileConfigRespectsExplicitFlags(t *testing.T) {
	var fc FileConfig
	fc.LLM.Model = "from-file"
	fc.WCAG.Level = "A"
	cfg := Config{LLMModel: "from-flag", WCAGLevel: "AAA"}
	ApplyFileConfig(&cfg, fc)
	if cfg.LLMModel != "from-flag" {
		t.Fatalf("file config overrode explicit flag: %q", cfg.LLMModel)
	}
	if cfg.WCAGLevel != "AAA" {
		t.Fatalf("file config overrode explicit level: %q", cfg.WCAGLevel)
	}
}

func TestValidateConfig(t *testing.T) {
	good := Config{InputPath: "scans.csv", WCAGLevel: "AA", LLMModel: "m"}
	if err := ValidateConfig(good); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]Config{
		"missing input": {WCAGLevel: "AA", LLMModel: "m"},
		"bad level":     {InputPath: "scans.csv", WCAGLevel: "B", LLMModel: "m"},
		"missing model": {InputPath: "scans.csv", WCAGLevel: "AA"},
		"negative":      {InputPath: "scans.csv", WCAGLevel: "AA", LLMModel: "m", BatchSize: -1},
	}
	for name, cfg := range cases {
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	// Dry-run may omit the model.
	dry := Config{InputPath: "scans.csv", WCAGLevel: "AA", DryRun: true}
	if err := ValidateConfig(dry); err != nil {
		t.Fatalf("dry-run config rejected: %v", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "# comment\nLLM_MODEL=env-model\nLLM_API_KEY=\"quoted key\"\nmalformed line\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_API_KEY", "")
	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("LLM_MODEL"); got != "env-model" {
		t.Fatalf("LLM_MODEL = %q", got)
	}
	if got := os.Getenv("LLM_API_KEY"); got != "quoted key" {
		t.Fatalf("LLM_API_KEY = %q", got)
	}
}
