// Package raster converts slide decks into ordered sequences of raster
// frames via the PDF page-description intermediate.
//
// The external rendering backend sits behind two narrow interfaces,
// [Converter] and [PageRenderer], so the pipeline's hard logic (fallback
// policy, frame ordering, margin statistics downstream) stays testable
// against fakes and decoupled from process-invocation concerns.
package raster

import "context"

// Frame is one rendered page: a 1-based page number matching source slide
// order and the path of its PNG image.
type Frame struct {
	Page int
	Path string
}

// Converter turns a slide deck into the PDF intermediate.
type Converter interface {
	// ToPDF converts a document directly to PDF inside outDir and returns
	// the PDF path.
	ToPDF(ctx context.Context, docPath, outDir string) (string, error)

	// ToODP round-trips a deck through the normalizing ODF serializer and
	// returns the ODP path. Saving as ODP normalizes deck-specific
	// constructs, which often bypasses direct PDF export failures on
	// malformed decks.
	ToODP(ctx context.Context, docPath, outDir string) (string, error)
}

// PageSizer reports page metadata for a PDF as a human-readable report of
// "Key: value" lines, including a page-size field such as "612 x 792 pts".
type PageSizer interface {
	PageSizeReport(ctx context.Context, pdfPath string) (string, error)
}

// PageRenderer rasterizes individual PDF pages.
type PageRenderer interface {
	// PageCount returns the number of pages in the PDF.
	PageCount(pdfPath string) (int, error)

	// RenderPage renders one 1-based page at the given DPI into outDir and
	// returns the produced image path. The backend-specific file name embeds
	// the page number as a trailing suffix.
	RenderPage(ctx context.Context, pdfPath string, page, dpi int, outDir string) (string, error)
}
