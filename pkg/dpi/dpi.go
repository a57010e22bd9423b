// Package dpi derives a rasterization resolution from a deck's physical page
// size and a target pixel budget.
//
// Two independent strategies are provided: reading the declared page size
// from the deck's OOXML metadata (fast path), and converting the deck to PDF
// and parsing the page size reported for the intermediate (slow path). Both
// feed the same formula, so for a deck whose native and intermediate-derived
// metadata agree on physical size the two paths yield the same DPI. The
// padded render must use the same DPI basis as any dimension check performed
// elsewhere, or padding ratios computed in physical units will not match
// pixel-space measurements.
package dpi

import (
	"context"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/deckproof/deckproof/pkg/deck"
	xerrors "github.com/deckproof/deckproof/pkg/errors"
	"github.com/deckproof/deckproof/pkg/raster"
)

// PixelBudget is the target maximum render size in pixels. It is only used
// to derive a DPI; rounding may push the actual render slightly past it.
type PixelBudget struct {
	Width  int
	Height int
}

// DefaultBudget is the default pixel budget for overflow checks.
var DefaultBudget = PixelBudget{Width: 1600, Height: 900}

// pointsPerInch is the unit of PDF page-size reports.
const pointsPerInch = 72.0

// FromInches computes the DPI for a page of the given physical size:
// round(min(budgetW/widthIn, budgetH/heightIn)). Both strategies below share
// this helper, which makes them numerically consistent by construction.
func FromInches(widthIn, heightIn float64, budget PixelBudget) (int, error) {
	if widthIn <= 0 || heightIn <= 0 {
		return 0, xerrors.New(xerrors.ErrCodeInvalidInput, "page size %gx%g in must be positive", widthIn, heightIn)
	}
	if budget.Width <= 0 || budget.Height <= 0 {
		return 0, xerrors.New(xerrors.ErrCodeInvalidInput, "pixel budget %dx%d must be positive", budget.Width, budget.Height)
	}
	d := int(math.Round(math.Min(float64(budget.Width)/widthIn, float64(budget.Height)/heightIn)))
	if d <= 0 {
		return 0, xerrors.New(xerrors.ErrCodeInvalidInput,
			"budget %dx%d px is too small for a %gx%g in page", budget.Width, budget.Height, widthIn, heightIn)
	}
	return d, nil
}

// ResolveNative reads the declared slide size from the deck's OOXML metadata
// and derives the DPI from it.
func ResolveNative(deckPath string, budget PixelBudget) (int, error) {
	size, err := deck.ReadPageSize(deckPath)
	if err != nil {
		return 0, err
	}
	return FromInches(size.CX.Inches(), size.CY.Inches(), budget)
}

// Backend is the slice of the rendering backend the slow path needs: deck to
// PDF conversion (with the normalizing fallback) and the page-size report.
type Backend interface {
	raster.Converter
	raster.PageSizer
}

// ResolveViaPDF converts the deck to PDF and derives the DPI from the page
// size reported for the intermediate. Scratch files are removed before the
// function returns, on every path.
func ResolveViaPDF(ctx context.Context, backend Backend, deckPath string, budget PixelBudget) (int, error) {
	scratch, err := os.MkdirTemp("", "deckproof-dpi-")
	if err != nil {
		return 0, xerrors.Wrap(xerrors.ErrCodeInternal, err, "create scratch dir")
	}
	defer os.RemoveAll(scratch)

	pdfPath, err := raster.ConvertToPDF(ctx, backend, deckPath, scratch)
	if err != nil {
		return 0, err
	}

	report, err := backend.PageSizeReport(ctx, pdfPath)
	if err != nil {
		return 0, err
	}
	widthPts, heightPts, err := parsePageSize(report)
	if err != nil {
		return 0, err
	}
	return FromInches(widthPts/pointsPerInch, heightPts/pointsPerInch, budget)
}

// pageSizeRE matches the first "width x height pts" pair in a report value.
var pageSizeRE = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*x\s*([0-9]+(?:\.[0-9]+)?)\s*pts`)

// parsePageSize extracts the page size in points from a pdfinfo-style
// report of "Key: value" lines. The primary key is "Page size"; any other
// key mentioning a size with a pts value is accepted as a fallback.
func parsePageSize(report string) (float64, float64, error) {
	var sizeVal string
	for _, line := range strings.Split(report, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if key == "Page size" {
			sizeVal = val
			break
		}
		if sizeVal == "" && strings.Contains(strings.ToLower(key), "size") && strings.Contains(val, "pts") {
			sizeVal = val
		}
	}
	if sizeVal == "" {
		return 0, 0, xerrors.New(xerrors.ErrCodeUnrecognizedPageSize, "no page size field in report")
	}

	m := pageSizeRE.FindStringSubmatch(sizeVal)
	if m == nil {
		return 0, 0, xerrors.New(xerrors.ErrCodeUnrecognizedPageSize, "page size %q does not parse", sizeVal)
	}
	w, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, xerrors.Wrap(xerrors.ErrCodeUnrecognizedPageSize, err, "page width %q", m[1])
	}
	h, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, xerrors.Wrap(xerrors.ErrCodeUnrecognizedPageSize, err, "page height %q", m[2])
	}
	if w <= 0 || h <= 0 {
		return 0, 0, xerrors.New(xerrors.ErrCodeUnrecognizedPageSize, "non-positive page size %g x %g pts", w, h)
	}
	return w, h, nil
}
