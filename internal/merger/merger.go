// Package merger combines per-page PDFs produced by the export processor
// into a single output document. Core harvesting treats merging as an
// optional, out-of-loop concern — this package defines the narrow interface a
// caller needs plus one concrete implementation so the pdfcpu dependency
// has a real home instead of sitting unused.
package merger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	pdfcpuapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Merger combines the PDFs at the given paths, in order, into a single
// file at outPath. Implementations own any temporary files they create
// and must clean them up before returning.
type Merger interface {
	Merge(paths []string, outPath string) error
}

// PDFCPUMerger merges PDFs using pdfcpu's multi-file merge. Merge hands
// the given paths to pdfcpu directly; MergeReaders first writes each
// reader to a file in a staging temp directory and merges those.
type PDFCPUMerger struct {
	stagingDir string
}

// NewPDFCPUMerger stages intermediate copies under stagingDir (created
// lazily per merge under os.TempDir if stagingDir is empty).
func NewPDFCPUMerger(stagingDir string) *PDFCPUMerger {
	return &PDFCPUMerger{stagingDir: stagingDir}
}

func (m *PDFCPUMerger) Merge(paths []string, outPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("merge: no input paths")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("merge: create output dir: %w", err)
	}

	if err := pdfcpuapi.MergeCreateFile(paths, outPath, false, pdfcpumodel.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("merge: pdfcpu merge: %w", err)
	}
	return nil
}

// MergeReaders stages each reader to a temporary file and merges them in
// order, mirroring the pattern used when inputs arrive as in-memory PDF
// streams rather than paths already on disk.
func (m *PDFCPUMerger) MergeReaders(readers []io.Reader, outPath string) error {
	if len(readers) == 0 {
		return fmt.Errorf("merge: no input readers")
	}

	tempDir, err := os.MkdirTemp(m.stagingDir, "pageforge-merge-*")
	if err != nil {
		return fmt.Errorf("merge: create staging dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	paths := make([]string, len(readers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, r := range readers {
		wg.Add(1)
		go func(idx int, reader io.Reader) {
			defer wg.Done()

			path := filepath.Join(tempDir, fmt.Sprintf("part_%s.pdf", uuid.NewString()))
			f, err := os.Create(path)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer f.Close()

			if _, err := io.Copy(f, reader); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			paths[idx] = path
			mu.Unlock()
		}(i, r)
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("merge: stage reader: %w", firstErr)
	}

	return m.Merge(paths, outPath)
}
