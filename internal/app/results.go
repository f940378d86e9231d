package app

import (
	"encoding/json"
	"os"
	"time"

	"github.com/hyperifyio/a11yscan/internal/cache"
)

// ScanResult is one JSONL record written per verified scan. Downstream
// persistence and report rendering consume this file; the pipeline itself
// only appends to it, so an interrupted run loses nothing already written.
type ScanResult struct {
	ScanID        string               `json:"scanId"`
	Level         cache.Level          `json:"wcagLevel"`
	Title         string               `json:"title,omitempty"`
	Verifications []cache.Verification `json:"verifications"`
	TokensUsed    int                  `json:"tokensUsed"`
	CachedBatches int                  `json:"cachedBatches"`
	TotalBatches  int                  `json:"totalBatches"`
	CompletedAt   time.Time            `json:"completedAt"`
}

type resultWriter struct {
	f   *os.File
	enc *json.Encoder
}

func openResultWriter(path string) (*resultWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &resultWriter{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *resultWriter) Write(r *ScanResult) error {
	return w.enc.Encode(r)
}

func (w *resultWriter) Close() error {
	if w == nil || w.f == nil {
		return nil
	}
	return w.f.Close()
}
