package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Level is a WCAG conformance level.
type Level string

const (
	LevelA   Level = "A"
	LevelAA  Level = "AA"
	LevelAAA Level = "AAA"
)

// ValidLevel reports whether l is one of the three conformance levels.
func ValidLevel(l Level) bool {
	switch l {
	case LevelA, LevelAA, LevelAAA:
		return true
	}
	return false
}

// hashPrefixLen is the number of hex characters kept from the content digest.
const hashPrefixLen = 16

// Key identifies one cached verification result set. Keys are derived, never
// stored on their own: content + level + batch always reconstructs the same key.
type Key struct {
	ContentHash string `json:"contentHash"`
	Level       Level  `json:"wcagLevel"`
	Batch       int    `json:"batchNumber"`
}

// DeriveKey builds a cache key from page content, conformance level, and
// criteria batch index. Pure function; identical inputs yield identical keys.
func DeriveKey(content string, level Level, batch int) Key {
	h := sha256.Sum256([]byte(content))
	return Key{
		ContentHash: hex.EncodeToString(h[:])[:hashPrefixLen],
		Level:       level,
		Batch:       batch,
	}
}

// Filename returns the on-disk name for the entry stored under this key.
func (k Key) Filename() string {
	return fmt.Sprintf("%s_%s_%d.json", k.ContentHash, k.Level, k.Batch)
}
