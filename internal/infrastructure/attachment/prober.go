// Package attachment holds infrastructure for attachment content handling.
package attachment

import (
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
)

// PDFProber inspects PDF attachments with mupdf
type PDFProber struct {
	logger *zap.Logger
}

// NewPDFProber creates a new PDF prober
func NewPDFProber(logger *zap.Logger) *PDFProber {
	return &PDFProber{logger: logger}
}

// PageCount returns the number of pages in the PDF at path
func (p *PDFProber) PageCount(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("stat attachment: %w", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	p.logger.Debug("Probed PDF attachment",
		zap.String("path", path),
		zap.Int("pages", pages),
	)
	return pages, nil
}

// Verify interface compliance
var _ port.AttachmentProber = (*PDFProber)(nil)
