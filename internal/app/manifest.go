package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hyperifyio/a11yscan/internal/cache"
)

// ErrNoScans indicates the manifest parsed fine but listed nothing to do.
var ErrNoScans = errors.New("manifest contains no scans")

// ScanInput is one unit of work: a previously-collected page to verify.
type ScanInput struct {
	ID          string
	ContentPath string
	Level       cache.Level
}

// LoadManifest reads a scan manifest CSV with rows of
// scan_id,content_path[,wcag_level]. A header row is recognized by its first
// field and skipped. Rows without a level fall back to defaultLevel.
func LoadManifest(path string, defaultLevel cache.Level) ([]ScanInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	scans := make([]ScanInput, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		first := strings.TrimSpace(row[0])
		if i == 0 && strings.EqualFold(first, "scan_id") {
			continue
		}
		if first == "" {
			continue
		}
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			return nil, fmt.Errorf("manifest %s row %d: missing content path for scan %q", path, i+1, first)
		}
		if _, dup := seen[first]; dup {
			return nil, fmt.Errorf("manifest %s row %d: duplicate scan id %q", path, i+1, first)
		}
		seen[first] = struct{}{}
		s := ScanInput{ID: first, ContentPath: strings.TrimSpace(row[1]), Level: defaultLevel}
		if len(row) >= 3 {
			if lvl := cache.Level(strings.ToUpper(strings.TrimSpace(row[2]))); lvl != "" {
				if !cache.ValidLevel(lvl) {
					return nil, fmt.Errorf("manifest %s row %d: invalid wcag level %q", path, i+1, row[2])
				}
				s.Level = lvl
			}
		}
		scans = append(scans, s)
	}
	if len(scans) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScans, path)
	}
	return scans, nil
}
