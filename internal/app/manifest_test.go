package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperifyio/a11yscan/internal/cache"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scans.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, "scan_id,content_path,wcag_level\ns1,pages/s1.html,AA\ns2,pages/s2.html\ns3, pages/s3.html ,aaa\n")
	scans, err := LoadManifest(path, cache.LevelA)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(scans) != 3 {
		t.Fatalf("scans = %d, want 3", len(scans))
	}
	if scans[0].Level != cache.LevelAA {
		t.Fatalf("s1 level = %s, want AA", scans[0].Level)
	}
	if scans[1].Level != cache.LevelA {
		t.Fatalf("s2 level = %s, want default A", scans[1].Level)
	}
	if scans[2].Level != cache.LevelAAA || scans[2].ContentPath != "pages/s3.html" {
		t.Fatalf("s3 = %+v", scans[2])
	}
}

func TestLoadManifestNoHeader(t *testing.T) {
	path := writeManifest(t, "s1,pages/s1.html\n")
	scans, err := LoadManifest(path, cache.LevelAA)
	if err != nil || len(scans) != 1 {
		t.Fatalf("load = (%d, %v)", len(scans), err)
	}
}

func TestLoadManifestEmpty(t *testing.T) {
	path := writeManifest(t, "scan_id,content_path\n")
	if _, err := LoadManifest(path, cache.LevelAA); !errors.Is(err, ErrNoScans) {
		t.Fatalf("load = %v, want ErrNoScans", err)
	}
}

func TestLoadManifestBadRows(t *testing.T) {
	for name, body := range map[string]string{
		"missing path":  "s1\n",
		"duplicate id":  "s1,a.html\ns1,b.html\n",
		"invalid level": "s1,a.html,AB\n",
	} {
		path := writeManifest(t, body)
		if _, err := LoadManifest(path, cache.LevelAA); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
