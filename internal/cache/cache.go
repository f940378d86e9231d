// Package cache stores AI verification results on disk, content-addressed by
// page fingerprint, conformance level, and criteria batch, with TTL expiration
// and hit/miss accounting. Expired or unreadable entries degrade to misses;
// they are only deleted by explicit Cleanup or ClearAll.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultDir is the cache root used when no directory is configured.
	DefaultDir = ".ai-scan-cache"
	// DefaultTTL matches the default 7-day entry lifetime.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultMaxEntries is the advisory entry-count ceiling.
	DefaultMaxEntries = 1000

	entriesSubdir = "entries"
)

// Verification is one success-criterion judgment produced by the model.
type Verification struct {
	Criterion string `json:"criterion"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status"`
	Impact    string `json:"impact,omitempty"`
	Message   string `json:"message,omitempty"`
	Selector  string `json:"selector,omitempty"`
}

// Entry is one cached verification result set. Entries are immutable once
// written: a re-set overwrites the file wholesale.
type Entry struct {
	Key           Key            `json:"key"`
	Verifications []Verification `json:"verifications"`
	TokensUsed    int            `json:"tokensUsed"`
	AIModel       string         `json:"aiModel"`
	CreatedAt     time.Time      `json:"createdAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
}

// expired reports whether the entry is past its lifetime at instant now.
func (e *Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Stats holds process-lifetime counters owned by one Store. They are not
// persisted; Warmup reconciles the entry count against disk at startup.
type Stats struct {
	Hits        int
	Misses      int
	Entries     int
	TokensSaved int
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Store is a content-addressed result cache rooted at Dir. It is designed for
// a single active worker: the pipeline's execution lock is the serialization
// mechanism, so the store itself takes no locks.
type Store struct {
	Dir string
	TTL time.Duration
	// MaxEntries is an advisory ceiling exposed for the caller to act on;
	// the store does not evict by capacity.
	MaxEntries int

	stats Stats
}

// New returns a store with defaults filled in for zero values.
func New(dir string, ttl time.Duration, maxEntries int) *Store {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{Dir: dir, TTL: ttl, MaxEntries: maxEntries}
}

func (s *Store) entriesDir() string {
	return filepath.Join(s.Dir, entriesSubdir)
}

func (s *Store) pathFor(key Key) string {
	return filepath.Join(s.entriesDir(), key.Filename())
}

func (s *Store) ensureDir() error {
	return os.MkdirAll(s.entriesDir(), 0o755)
}

// read loads and decodes the entry for key. Absence, unreadable files, and
// undecodable contents all come back as (nil, false).
func (s *Store) read(key Key) (*Entry, bool) {
	b, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}
	return &e, true
}

// Get looks up the entry for key. Absent, corrupt, and expired records all
// count as misses; expired records are left in place for Cleanup. A hit adds
// the entry's token cost to the tokens-saved counter.
func (s *Store) Get(key Key) (*Entry, bool) {
	e, ok := s.read(key)
	if !ok || e.expired(time.Now()) {
		s.stats.Misses++
		return nil, false
	}
	s.stats.Hits++
	s.stats.TokensSaved += e.TokensUsed
	return e, true
}

// Has applies the same expiration logic as Get without touching hit/miss
// counters, for pre-flight checks that must not pollute accounting.
func (s *Store) Has(key Key) bool {
	e, ok := s.read(key)
	return ok && !e.expired(time.Now())
}

// Set serializes a complete entry and writes it under key, overwriting any
// existing record (last-writer-wins). The write goes through a temp file and
// rename so a partially-written entry is never observable.
func (s *Store) Set(key Key, verifications []Verification, tokensUsed int, model string) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	now := time.Now().UTC()
	e := Entry{
		Key:           key,
		Verifications: verifications,
		TokensUsed:    tokensUsed,
		AIModel:       model,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl()),
	}
	b, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	p := s.pathFor(key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Optimistic count; reconciled by the next Warmup or Cleanup.
	s.stats.Entries++
	return nil
}

// Cleanup removes every expired or unparsable entry and reconciles the live
// entry count to what remains. Safe with no entries present.
func (s *Store) Cleanup() (int, error) {
	now := time.Now()
	removed := 0
	remaining := 0
	err := s.walkEntries(func(path string, e *Entry, ok bool) {
		if !ok || e.expired(now) {
			_ = os.Remove(path)
			removed++
			return
		}
		remaining++
	})
	if err != nil {
		return removed, err
	}
	s.stats.Entries = remaining
	return removed, nil
}

// ClearAll removes every entry, recreates the empty storage location, and
// resets all statistics to zero.
func (s *Store) ClearAll() error {
	if err := os.RemoveAll(s.entriesDir()); err != nil {
		return err
	}
	s.stats = Stats{}
	return s.ensureDir()
}

// Warmup recomputes the live entry count from disk, counting only unexpired,
// parsable entries. Hit/miss counters are untouched. Call once at startup so
// reported statistics reflect reality.
func (s *Store) Warmup() error {
	now := time.Now()
	live := 0
	err := s.walkEntries(func(_ string, e *Entry, ok bool) {
		if ok && !e.expired(now) {
			live++
		}
	})
	if err != nil {
		return err
	}
	s.stats.Entries = live
	return nil
}

// Stats returns a snapshot of the lifetime counters.
func (s *Store) Stats() Stats {
	return s.stats
}

// walkEntries visits every *.json entry file, handing each either a decoded
// entry or ok=false for unreadable/undecodable contents. A missing entries
// directory visits nothing.
func (s *Store) walkEntries(fn func(path string, e *Entry, ok bool)) error {
	items, err := os.ReadDir(s.entriesDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, it := range items {
		if it.IsDir() || !strings.HasSuffix(it.Name(), ".json") {
			continue
		}
		p := filepath.Join(s.entriesDir(), it.Name())
		b, err := os.ReadFile(p)
		if err != nil {
			fn(p, nil, false)
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			fn(p, nil, false)
			continue
		}
		fn(p, &e, true)
	}
	return nil
}

func (s *Store) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}
