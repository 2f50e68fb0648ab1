// Package report writes periodic and final run-summary snapshots to disk
// via an atomic temp-file-then-rename write. Unlike a checkpoint, a report is
// write-only: there is no Load that restores state into the Frontier
//. A
// report is for operators and downstream tooling, never for resuming a
// run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kestrel-labs/pageforge/internal/types"
)

// Census is a point-in-time count of Frontier URLs by status.
type Census struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Visited    int `json:"visited"`
	Failed     int `json:"failed"`
	Blocked    int `json:"blocked"`
}

// Snapshot is the serializable content of one report write.
type Snapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Elapsed    string    `json:"elapsed"`
	Census     Census    `json:"census"`
	LiveTabs   int       `json:"live_tabs"`
	PDFsOut    int       `json:"pdfs_exported"`
	BytesTotal string    `json:"content_bytes_total,omitempty"`
}

// Writer persists Snapshots to <dir>/report.json via an atomic
// temp-file-then-rename write.
type Writer struct {
	dir string
}

// NewWriter targets dir for report.json; dir is created on first Write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write atomically persists snap to <dir>/report.json.
func (w *Writer) Write(snap Snapshot) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmpPath := filepath.Join(w.dir, "report.tmp")
	finalPath := filepath.Join(w.dir, "report.json")

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename report file: %w", err)
	}
	return nil
}

// BuildSnapshot assembles a Snapshot from a Frontier census and live
// engine counters. bytesTotal is formatted with go-humanize for a
// human-readable summary line.
func BuildSnapshot(started time.Time, census map[types.URLStatus]int, liveTabs, pdfsOut int, bytesTotal int64) Snapshot {
	return Snapshot{
		Timestamp: time.Now(),
		Elapsed:   time.Since(started).Round(time.Second).String(),
		Census: Census{
			Pending:    census[types.StatusPending],
			Processing: census[types.StatusProcessing],
			Visited:    census[types.StatusVisited],
			Failed:     census[types.StatusFailed],
			Blocked:    census[types.StatusBlocked],
		},
		LiveTabs:   liveTabs,
		PDFsOut:    pdfsOut,
		BytesTotal: humanize.Bytes(uint64(bytesTotal)),
	}
}
