package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrel-labs/pageforge/internal/types"
)

func TestWriteProducesReportJSON(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	snap := BuildSnapshot(time.Now().Add(-5*time.Second), map[types.URLStatus]int{
		types.StatusVisited: 3, types.StatusFailed: 1,
	}, 2, 3, 10240)

	if err := w.Write(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("expected report.json to exist: %v", err)
	}

	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if got.Census.Visited != 3 || got.Census.Failed != 1 {
		t.Fatalf("unexpected census: %+v", got.Census)
	}
	if got.LiveTabs != 2 || got.PDFsOut != 3 {
		t.Fatalf("unexpected counters: %+v", got)
	}
}

func TestWriteOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	for i := 0; i < 3; i++ {
		snap := BuildSnapshot(time.Now(), map[types.URLStatus]int{types.StatusVisited: i}, 0, i, 0)
		if err := w.Write(snap); err != nil {
			t.Fatalf("unexpected error on write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "report.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected the temp file to be renamed away, got err=%v", err)
	}
}
