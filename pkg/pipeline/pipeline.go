// Package pipeline provides the core overflow-check pipeline for Deckproof.
//
// This package implements the complete pad → rasterize → inspect pipeline
// so the CLI and any embedding program share one code path:
//
//  1. Pad: enlarge the deck canvas by a gray border on every side
//  2. Rasterize: convert the padded deck to PDF and render each page to PNG
//  3. Inspect: scan the padding bands of every frame for stray pixels
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(nil, logger)
//	report, err := runner.Check(ctx, "talk.pptx", pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if len(report.Failing) > 0 {
//	    // slides report.Failing overflow the original canvas
//	}
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/deckproof/deckproof/pkg/dpi"
	"github.com/deckproof/deckproof/pkg/errors"
	"github.com/deckproof/deckproof/pkg/raster"
)

// DefaultPadPx is the padding added on every side before rasterization,
// in output pixels.
const DefaultPadPx = 100

// Options configures a pipeline run.
type Options struct {
	// Budget bounds the rendered frame size. The zero value means the
	// default 1600x900 budget.
	Budget dpi.PixelBudget

	// PadPx is the padding in pixels added on each side. Zero means
	// DefaultPadPx.
	PadPx int

	// Workers bounds the page-rendering pool. Zero means the raster
	// package default.
	Workers int

	// Keep retains the working directory (padded deck and rendered
	// frames) instead of removing it, so failing slides can be triaged
	// visually.
	Keep bool

	// WorkDir is the parent for scratch directories. Empty means the
	// system temp dir.
	WorkDir string

	// Logger receives progress events for this run. Nil means the
	// runner's logger.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks option ranges and applies defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Budget == (dpi.PixelBudget{}) {
		o.Budget = dpi.DefaultBudget
	}
	if o.PadPx == 0 {
		o.PadPx = DefaultPadPx
	}
	if o.Budget.Width <= 0 || o.Budget.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "pixel budget must be positive, got %dx%d", o.Budget.Width, o.Budget.Height)
	}
	if o.PadPx < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "padding must not be negative, got %d px", o.PadPx)
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "worker count must not be negative, got %d", o.Workers)
	}
	o.validated = true
	return nil
}

// Report contains the outputs of an overflow check.
type Report struct {
	// DPI is the render resolution derived from the original page size.
	DPI int

	// PadPx is the padding that was applied, in pixels per side.
	PadPx int

	// Frames are the rendered padded slides in page order.
	Frames []raster.Frame

	// Failing holds the 1-based indices of slides whose content crossed
	// into the padding. Empty means the deck passed.
	Failing []int

	// WorkDir is the retained working directory. Empty unless
	// Options.Keep was set.
	WorkDir string

	// Stats contains timing information per stage.
	Stats Stats
}

// Passed reports whether no slide overflowed.
func (r *Report) Passed() bool {
	return len(r.Failing) == 0
}

// FailingFrames returns the frames of the failing slides, in order.
func (r *Report) FailingFrames() []raster.Frame {
	frames := make([]raster.Frame, 0, len(r.Failing))
	for _, idx := range r.Failing {
		for _, f := range r.Frames {
			if f.Page == idx {
				frames = append(frames, f)
				break
			}
		}
	}
	return frames
}

// Stats contains pipeline execution statistics.
type Stats struct {
	PadTime       time.Duration
	RasterizeTime time.Duration
	InspectTime   time.Duration
}
