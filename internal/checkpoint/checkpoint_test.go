package checkpoint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "checkpoint.json")
}

func readFileCheckpoint(t *testing.T, path string) Checkpoint {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read checkpoint file: %v", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		t.Fatalf("decode checkpoint file: %v", err)
	}
	return cp
}

func TestInitDoesNotWrite(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	cp := m.Init("scans.csv")
	if cp.InputFile != "scans.csv" || len(cp.ProcessedScanIDs) != 0 {
		t.Fatalf("unexpected fresh checkpoint: %+v", cp)
	}
	if cp.LastBatch != 0 || cp.LastMiniBatch != 0 {
		t.Fatalf("batch counters must start at zero: %+v", cp)
	}
	if !cp.StartedAt.Equal(cp.UpdatedAt) {
		t.Fatal("startedAt and updatedAt must match at init")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("Init must not touch disk")
	}
}

func TestMarkProcessedBuffersUntilFlush(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	cp := m.Init("scans.csv")
	if err := m.Save(cp); err != nil {
		t.Fatalf("save: %v", err)
	}
	before := readFileCheckpoint(t, path)

	m.MarkProcessed("s1", "s2")
	// Buffered only: file unchanged, membership still false.
	after := readFileCheckpoint(t, path)
	if !reflect.DeepEqual(before.ProcessedScanIDs, after.ProcessedScanIDs) {
		t.Fatal("markProcessed must not write to disk")
	}
	if m.IsProcessed("s1") {
		t.Fatal("pending ids must not count as processed")
	}

	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := readFileCheckpoint(t, path)
	if want := []string{"s1", "s2"}; !reflect.DeepEqual(got.ProcessedScanIDs, want) {
		t.Fatalf("processedScanIds = %v, want %v", got.ProcessedScanIDs, want)
	}
	if !m.IsProcessed("s1") || !m.IsProcessed("s2") {
		t.Fatal("flushed ids must count as processed")
	}
}

func TestFlushEmptyBufferDoesNotRewrite(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	m.Init("scans.csv")
	m.MarkProcessed("s1")
	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	before := readFileCheckpoint(t, path)

	if err := m.Flush(); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	after := readFileCheckpoint(t, path)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("empty flush rewrote the file: updatedAt %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestFlushWithoutCheckpointFails(t *testing.T) {
	m := NewManager(testPath(t))
	m.MarkProcessed("s1")
	if err := m.Flush(); !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("flush without checkpoint = %v, want ErrNoCheckpoint", err)
	}
}

func TestLoadAbsentOrCorrupt(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	if cp, ok := m.Load(); ok || cp != nil {
		t.Fatal("absent file must load as (nil, false)")
	}
	if m.IsProcessed("s1") {
		t.Fatal("isProcessed must be false with nothing loaded")
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cp, ok := m.Load(); ok || cp != nil {
		t.Fatal("corrupt file must load as (nil, false)")
	}
}

func TestResumability(t *testing.T) {
	path := testPath(t)
	first := NewManager(path)
	first.Init("scans.csv")
	first.MarkProcessed("s1", "s2", "s3")
	if err := first.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	fresh := NewManager(path)
	cp, ok := fresh.Load()
	if !ok {
		t.Fatal("expected saved checkpoint to load")
	}
	if cp.InputFile != "scans.csv" {
		t.Fatalf("inputFile = %q", cp.InputFile)
	}
	if !fresh.IsProcessed("s1") || !fresh.IsProcessed("s3") {
		t.Fatal("loaded checkpoint must report saved ids as processed")
	}
	if fresh.IsProcessed("s4") {
		t.Fatal("unknown id must not be processed")
	}
}

func TestEndToEndScenario(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	m.Init("scans.csv")
	m.MarkProcessed("s1", "s2")
	if err := m.Flush(); err != nil {
		t.Fatalf("flush 1: %v", err)
	}
	m.MarkProcessed("s3")
	if err := m.Flush(); err != nil {
		t.Fatalf("flush 2: %v", err)
	}

	fresh := NewManager(path)
	cp, ok := fresh.Load()
	if !ok {
		t.Fatal("expected checkpoint to load")
	}
	if want := []string{"s1", "s2", "s3"}; !reflect.DeepEqual(cp.ProcessedScanIDs, want) {
		t.Fatalf("processedScanIds = %v, want %v", cp.ProcessedScanIDs, want)
	}
	if !fresh.IsProcessed("s2") {
		t.Fatal("s2 must be processed")
	}
}

func TestDuplicateIdsCollapse(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	m.Init("scans.csv")
	m.MarkProcessed("s1", "s1", "s2")
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	m.MarkProcessed("s2", "s3")
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	got := readFileCheckpoint(t, path)
	if want := []string{"s1", "s2", "s3"}; !reflect.DeepEqual(got.ProcessedScanIDs, want) {
		t.Fatalf("processedScanIds = %v, want %v", got.ProcessedScanIDs, want)
	}
}

func TestClear(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	m.Init("scans.csv")
	m.MarkProcessed("s1")
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("clear must remove the file")
	}
	if m.IsProcessed("s1") {
		t.Fatal("clear must drop in-memory state")
	}
	// Clearing again with no file present is fine.
	if err := m.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := testPath(t)
	m := NewManager(path)
	cp := m.Init("scans.csv")
	if err := m.Save(cp); err != nil {
		t.Fatal(err)
	}
	items, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if strings.Contains(it.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", it.Name())
		}
	}
}
