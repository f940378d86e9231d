// Package lock provides a single-host execution lock backed by an exclusively
// created file. A crashed run leaves its lock file behind; the next run
// reclaims it when the owning process is dead or the record is older than the
// staleness horizon.
package lock

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultStaleAfter is the age past which a lock is assumed to belong to a
// hung run, even if its owner is still alive.
const DefaultStaleAfter = 24 * time.Hour

// writeGrace covers the window between exclusive creation and the record
// write landing. An unparsable lock file younger than this may simply be
// mid-write by a live competitor and must not be reclaimed.
const writeGrace = 10 * time.Second

// Record identifies the run holding the lock.
type Record struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
	Hostname  string    `json:"hostname"`
}

// Manager owns the lock file at Path. Acquisition is not fair or queued: one
// attempt either succeeds, fails, or triggers a single stale-reclaim retry.
type Manager struct {
	Path string
	// StaleAfter overrides DefaultStaleAfter when positive.
	StaleAfter time.Duration
}

// NewManager returns a manager for the lock file at path.
func NewManager(path string) *Manager {
	return &Manager{Path: path}
}

// Acquire attempts to take the lock. It returns true on success and false
// when another live, non-stale run holds it. A stale lock (dead owner or
// record older than the staleness horizon) is removed and acquisition is
// retried exactly once.
func (m *Manager) Acquire() (bool, error) {
	return m.acquire(true)
}

func (m *Manager) acquire(reclaim bool) (bool, error) {
	if dir := filepath.Dir(m.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
	}
	f, err := os.OpenFile(m.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		host, _ := os.Hostname()
		rec := Record{PID: os.Getpid(), StartedAt: time.Now().UTC(), Hostname: host}
		if err := json.NewEncoder(f).Encode(&rec); err != nil {
			f.Close()
			_ = os.Remove(m.Path)
			return false, err
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(m.Path)
			return false, err
		}
		return true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return false, err
	}
	if !reclaim || !m.isStale() {
		return false, nil
	}
	log.Warn().Str("path", m.Path).Msg("removing stale lock file")
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return m.acquire(false)
}

// isStale decides whether the existing lock file can safely be reclaimed.
func (m *Manager) isStale() bool {
	staleAfter := m.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	b, err := os.ReadFile(m.Path)
	if err != nil {
		// Holder released between our create attempt and this read.
		return errors.Is(err, fs.ErrNotExist)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil || rec.PID <= 0 {
		// An unparsable record is itself evidence of a crashed prior run,
		// unless it is fresh enough that a live competitor may still be
		// writing it.
		info, serr := os.Stat(m.Path)
		if serr != nil {
			return errors.Is(serr, fs.ErrNotExist)
		}
		return time.Since(info.ModTime()) > writeGrace
	}
	if time.Since(rec.StartedAt) > staleAfter {
		// Past this horizon the run is assumed hung, not merely slow.
		return true
	}
	if !pidAlive(rec.PID) {
		return true
	}
	return false
}

// pidAlive probes for a live process with the given pid. Probe failures count
// as alive: refusing reclamation is the safe direction.
func pidAlive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return true
	}
	return alive
}

// Release removes the lock file. A missing file is not an error.
func (m *Manager) Release() error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ReadInfo reads the current lock record without mutating anything. Missing
// or unparsable files come back as (nil, false).
func (m *Manager) ReadInfo() (*Record, bool) {
	b, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// FilePath returns the configured lock file location, for operators and tests.
func (m *Manager) FilePath() string {
	return m.Path
}
