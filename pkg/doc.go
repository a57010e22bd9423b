// Package pkg provides the core libraries for the Deckproof overflow checker.
//
// # Overview
//
// Deckproof detects slide content that escapes the slide canvas. Visual
// overflow is invisible in the PPTX XML itself, so the pipeline makes it
// visible: it enlarges the canvas with a gray safety border, renders the
// padded deck to pixels, and inspects the border for anything that is not
// gray.
//
// # Architecture
//
// The typical data flow through Deckproof:
//
//	talk.pptx
//	     ↓
//	[deck] package (read page size, pad the canvas with a gray border)
//	     ↓
//	[dpi] package (derive render resolution from a pixel budget)
//	     ↓
//	[raster] package (LibreOffice → PDF, Poppler → PNG frames)
//	     ↓
//	[inspect] package (scan the padded margins for stray pixels)
//	     ↓
//	pass/fail report with 1-based failing slide indices
//
// # Quick Start
//
// Check a deck for overflow:
//
//	import (
//	    "context"
//	    "github.com/deckproof/deckproof/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil)
//	report, err := runner.Check(context.Background(), "talk.pptx", pipeline.Options{})
//	if err != nil {
//	    // handle error
//	}
//	if !report.Passed() {
//	    fmt.Println("overflowing slides:", report.Failing)
//	}
//
// # Main Packages
//
// [deck] - PPTX manipulation. Reads the declared page size from
// presentation.xml and rewrites the archive with a padded canvas, shifting
// every slide's content so it stays put relative to the original page.
//
// [dpi] - Resolution policy. Derives the render DPI from a pixel budget and
// the original page size, with a PDF-based fallback when the deck metadata
// is missing.
//
// [raster] - External tool orchestration. Converts decks to PDF with
// LibreOffice and renders PDF pages to PNG frames with Poppler, using a
// bounded worker pool.
//
// [inspect] - Margin analysis. Scans the four padded bands of each frame
// and flags pixels that deviate from the pad color beyond a DPI-scaled
// anti-aliasing tolerance.
//
// [montage] - Contact sheets. Composes rendered frames into a fixed-column
// grid for quick visual triage.
//
// [pipeline] - Orchestration. Wires deck, dpi, raster, and inspect into the
// check and render operations used by the CLI.
//
// [cache] - Rendered frame cache keyed by deck content hash and DPI. The
// overflow check bypasses it so a stale frame can never mask a regression.
//
// [observability] - Optional hooks for conversion, rasterization, inspection,
// and cache events.
//
// [errors] - Structured errors with machine-readable codes.
//
// [deck]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/deck
// [dpi]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/dpi
// [raster]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/raster
// [inspect]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/inspect
// [montage]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/montage
// [pipeline]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/cache
// [observability]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/observability
// [errors]: https://pkg.go.dev/github.com/deckproof/deckproof/pkg/errors
package pkg
