// Package inspect implements the statistical margin check that decides, per
// rendered frame, whether the padding band around the original canvas is
// clean or contains overflowing content.
package inspect

import (
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
	"github.com/deckproof/deckproof/pkg/raster"
)

// Tolerance returns the per-channel color tolerance appropriate for the given
// DPI. Lower-DPI renders bleed more at color boundaries from anti-aliasing,
// so the tolerance widens as resolution drops, capped at 10 per channel.
func Tolerance(dpi int) int {
	if dpi >= 300 {
		return 0
	}
	// 2 at 250 DPI, 6 at 150 DPI, capped to 10.
	tol := int(math.Round(float64(300-dpi) / 25))
	if tol < 1 {
		tol = 1
	}
	if tol > 10 {
		tol = 10
	}
	return tol
}

// MaxMismatch returns the ceiling on the fraction of non-matching pixels a
// band may contain and still count as clean.
func MaxMismatch(dpi int) float64 {
	switch {
	case dpi >= 300:
		return 0.01
	case dpi >= 200:
		return 0.02
	default:
		return 0.03
	}
}

// Inspect loads each frame and reports the 1-based indices of frames whose
// padding band contains overflow, in ascending order. padRatioW and padRatioH
// are the padding thickness divided by the padded page width and height.
func Inspect(frames []raster.Frame, padRatioW, padRatioH float64, dpi int, padColor [3]uint8) ([]int, error) {
	var failing []int
	for _, f := range frames {
		img, err := loadImage(f.Path)
		if err != nil {
			return nil, err
		}
		if !FrameClean(img, padRatioW, padRatioH, dpi, padColor) {
			failing = append(failing, f.Page)
		}
	}
	return failing, nil
}

// FrameClean checks the four margin bands of a single frame. A frame is
// overflowing if any band is not clean.
func FrameClean(img image.Image, padRatioW, padRatioH float64, dpi int, padColor [3]uint8) bool {
	rgba := toRGBA(img)
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()

	// The innermost one-pixel band is excluded to absorb single-pixel
	// rendering jitter at the original/padding boundary. For very small
	// ratios this can go non-positive, in which case the band is skipped.
	padX := int(float64(w)*padRatioW) - 1
	padY := int(float64(h)*padRatioH) - 1

	tol := Tolerance(dpi)
	ceiling := MaxMismatch(dpi)
	clean := func(band image.Rectangle) bool {
		return bandClean(rgba, band, tol, ceiling, padColor)
	}

	// Corner pixels fall in both a vertical and a horizontal band; the double
	// coverage only makes corner-adjacent overflow easier to catch.
	if padX > 0 {
		if !clean(image.Rect(0, 0, padX, h)) || !clean(image.Rect(w-padX, 0, w, h)) {
			return false
		}
	}
	if padY > 0 {
		if !clean(image.Rect(0, 0, w, padY)) || !clean(image.Rect(0, h-padY, w, h)) {
			return false
		}
	}
	return true
}

// bandClean computes the fraction of pixels in the band that deviate from the
// padding color by more than tol on any channel.
func bandClean(img *image.RGBA, band image.Rectangle, tol int, ceiling float64, padColor [3]uint8) bool {
	band = band.Intersect(img.Bounds())
	total := band.Dx() * band.Dy()
	if total == 0 {
		return true
	}

	mismatched := 0
	for y := band.Min.Y; y < band.Max.Y; y++ {
		row := img.Pix[img.PixOffset(band.Min.X, y):img.PixOffset(band.Max.X, y)]
		for x := 0; x < len(row); x += 4 {
			if absDiff(row[x], padColor[0]) > tol ||
				absDiff(row[x+1], padColor[1]) > tol ||
				absDiff(row[x+2], padColor[2]) > tol {
				mismatched++
			}
		}
	}
	return float64(mismatched)/float64(total) <= ceiling
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

// toRGBA normalizes any decoded image to RGBA for direct pixel access.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}

// loadImage decodes a rendered frame from disk.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeFileNotFound, err, "open frame %s", path)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err, "decode frame %s", path)
	}
	return img, nil
}
