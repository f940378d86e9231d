// Package checkpoint persists run progress so an interrupted batch can resume
// where it left off. Completed scan ids are buffered in memory and only become
// durable on Flush; the file itself is replaced atomically so readers never
// observe a half-written checkpoint.
package checkpoint

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrNoCheckpoint is returned by Flush when no checkpoint has been loaded or
// initialized. Flushing without one is a programmer error, not a condition to
// recover from.
var ErrNoCheckpoint = errors.New("checkpoint: no checkpoint loaded or initialized")

// Checkpoint is the durable record of one resumable run. ProcessedScanIDs is
// an insertion-ordered set: the sole source of truth for what has been done.
type Checkpoint struct {
	InputFile        string    `json:"inputFile"`
	ProcessedScanIDs []string  `json:"processedScanIds"`
	LastBatch        int       `json:"lastBatch"`
	LastMiniBatch    int       `json:"lastMiniBatch"`
	StartedAt        time.Time `json:"startedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Manager owns the checkpoint file at Path plus the in-memory pending buffer.
// Buffered ids are lost on crash; only flushed state survives.
type Manager struct {
	Path string

	cp        *Checkpoint
	processed map[string]struct{}
	pending   []string
}

// NewManager returns a manager for the checkpoint file at path.
func NewManager(path string) *Manager {
	return &Manager{Path: path}
}

// Init constructs a fresh checkpoint for inputFile and makes it the managed
// one. Nothing is written to disk until the first Flush or Save.
func (m *Manager) Init(inputFile string) *Checkpoint {
	now := time.Now().UTC()
	cp := &Checkpoint{
		InputFile:        inputFile,
		ProcessedScanIDs: []string{},
		StartedAt:        now,
		UpdatedAt:        now,
	}
	m.adopt(cp)
	return cp
}

// Load reads the checkpoint file. A missing or undecodable file means "no
// prior run to resume" and comes back as (nil, false), never an error.
func (m *Manager) Load() (*Checkpoint, bool) {
	b, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, false
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, false
	}
	m.adopt(&cp)
	return &cp, true
}

// Save stamps updatedAt and writes the full checkpoint durably via a
// temp-file-then-rename sequence, so the final path is never half-written.
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(m.Path, b)
}

// MarkProcessed appends ids to the in-memory pending buffer. No disk I/O
// happens until Flush.
func (m *Manager) MarkProcessed(ids ...string) {
	m.pending = append(m.pending, ids...)
}

// Flush appends buffered ids to the processed set, in call order, and
// persists the checkpoint. An empty buffer is a no-op that does not rewrite
// the file. Flushing with no checkpoint in memory fails with ErrNoCheckpoint.
func (m *Manager) Flush() error {
	if m.cp == nil {
		return ErrNoCheckpoint
	}
	if len(m.pending) == 0 {
		return nil
	}
	for _, id := range m.pending {
		if _, dup := m.processed[id]; dup {
			continue
		}
		m.processed[id] = struct{}{}
		m.cp.ProcessedScanIDs = append(m.cp.ProcessedScanIDs, id)
	}
	if err := m.Save(m.cp); err != nil {
		return err
	}
	m.pending = m.pending[:0]
	return nil
}

// IsProcessed reports whether id has been flushed to the processed set.
// Pending ids do not count, and with no checkpoint loaded the answer is
// always false.
func (m *Manager) IsProcessed(id string) bool {
	if m.cp == nil {
		return false
	}
	_, ok := m.processed[id]
	return ok
}

// Clear removes the checkpoint file (absent is fine) and drops the in-memory
// state. Called on successful run completion.
func (m *Manager) Clear() error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	m.cp = nil
	m.processed = nil
	m.pending = nil
	return nil
}

// Checkpoint returns the currently managed checkpoint, or nil when none has
// been loaded or initialized. The driver mutates LastBatch/LastMiniBatch on
// it directly between flushes.
func (m *Manager) Checkpoint() *Checkpoint {
	return m.cp
}

func (m *Manager) adopt(cp *Checkpoint) {
	m.cp = cp
	m.processed = make(map[string]struct{}, len(cp.ProcessedScanIDs))
	for _, id := range cp.ProcessedScanIDs {
		m.processed[id] = struct{}{}
	}
	m.pending = nil
}

// writeFileAtomic writes data to a temp file in the target directory, syncs,
// and renames over path. The temp file is removed on every failure path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
