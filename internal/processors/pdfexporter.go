package processors

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kestrel-labs/pageforge/internal/browser"
	"github.com/kestrel-labs/pageforge/internal/pagecontext"
	"github.com/kestrel-labs/pageforge/internal/types"
)

const (
	cmToInch     = 1 / 2.54
	a4WidthInch  = 21.0 * cmToInch
	a4HeightInch = 29.7 * cmToInch
	marginOneCm  = 1.0 * cmToInch
)

// PDFExporter is priority 40, the terminal stage of the
// pipeline: it renders the tab to a per-page PDF artifact.
type PDFExporter struct {
	outputDir string
	logger    *slog.Logger

	exported bool
}

func NewPDFExporter(outputDir string, logger *slog.Logger) *PDFExporter {
	return &PDFExporter{outputDir: outputDir, logger: logger.With("processor", "pdf_exporter")}
}

func (p *PDFExporter) Name() string  { return "pdf_exporter" }
func (p *PDFExporter) Priority() int { return 40 }

func (p *PDFExporter) Detect(ctx context.Context, pc *pagecontext.Context) (types.ProcessorState, error) {
	if p.exported {
		return types.StateCompleted, nil
	}
	if pc.Bag.CoreContentProcessed() {
		return types.StateReady, nil
	}
	if pc.Bag.ContentLength() > 0 {
		return types.StateReady, nil
	}
	if pc.Tab.Title() != "" {
		return types.StateReady, nil
	}
	return types.StateWaiting, nil
}

func (p *PDFExporter) Run(ctx context.Context, pc *pagecontext.Context) error {
	if !pc.Bag.CoreContentProcessed() && pc.Bag.ContentLength() == 0 {
		pc.Bag.SetTitleFallback(true)
	}

	path := filepath.Join(p.outputDir, fmt.Sprintf("%s_%s.pdf", sanitizeURLSegment(pc.URL.URL), pc.URL.ID))

	opts := browser.PDFOptions{
		PrintBackground:    true,
		PaperWidthInches:   a4WidthInch,
		PaperHeightInches:  a4HeightInch,
		MarginTopInches:    marginOneCm,
		MarginBottomInches: marginOneCm,
		MarginLeftInches:   marginOneCm,
		MarginRightInches:  marginOneCm,
	}

	if err := pc.Tab.RenderPDF(ctx, path, opts); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	pc.Bag.SetPDFPath(path)
	pc.Bag.SetPDFExported(true)
	p.exported = true
	return nil
}

func (p *PDFExporter) Finish(ctx context.Context, pc *pagecontext.Context) error {
	return nil
}
