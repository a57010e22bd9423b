// Package montage composes rendered slide frames into a fixed-column
// contact sheet for quick visual triage.
package montage

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/flopp/go-findfont"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/deckproof/deckproof/pkg/errors"
)

// LabelMode selects what is drawn beneath each cell.
type LabelMode string

const (
	LabelNone     LabelMode = "none"
	LabelNumber   LabelMode = "number"
	LabelFilename LabelMode = "filename"
)

// Options configures montage composition. Zero values fall back to the
// defaults reported by DefaultOptions.
type Options struct {
	Columns    int
	CellWidth  int
	CellHeight int
	Gap        int
	Labels     LabelMode

	// FailFast aborts on the first unreadable input instead of
	// substituting a placeholder tile.
	FailFast bool

	// Warn is called once per input that could not be loaded when
	// FailFast is off. May be nil.
	Warn func(path string, err error)
}

// DefaultOptions returns the montage defaults: five columns of 400x225
// cells with a 16px gap and numbered labels.
func DefaultOptions() Options {
	return Options{
		Columns:    5,
		CellWidth:  400,
		CellHeight: 225,
		Gap:        16,
		Labels:     LabelNumber,
	}
}

func (o *Options) normalize() error {
	def := DefaultOptions()
	if o.Columns == 0 {
		o.Columns = def.Columns
	}
	if o.CellWidth == 0 {
		o.CellWidth = def.CellWidth
	}
	if o.CellHeight == 0 {
		o.CellHeight = def.CellHeight
	}
	if o.Labels == "" {
		o.Labels = def.Labels
	}
	if o.Columns <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "column count must be positive")
	}
	if o.CellWidth <= 0 || o.CellHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cell dimensions must be positive")
	}
	if o.Gap < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "gap must not be negative")
	}
	switch o.Labels {
	case LabelNone, LabelNumber, LabelFilename:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown label mode %q", o.Labels)
	}
	return nil
}

// Build loads the input images in order, arranges them into a grid and
// writes the composed sheet to outPath. The output format is inferred
// from the extension. Unreadable inputs become placeholder tiles unless
// opts.FailFast is set; if no input loads at all, Build fails.
func Build(inputs []string, outPath string, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no input images")
	}

	tiles, valid, err := loadTiles(inputs, opts)
	if err != nil {
		return err
	}
	if valid == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no input image could be loaded")
	}

	cols := opts.Columns
	rows := (len(tiles) + cols - 1) / cols

	face := labelFace(opts.CellHeight)
	labelHeight := 0
	if opts.Labels != LabelNone {
		metrics := face.Metrics()
		labelHeight = (metrics.Height.Ceil()) + 6
	}
	rowHeight := opts.CellHeight + labelHeight

	canvasW := cols*opts.CellWidth + (cols+1)*opts.Gap
	canvasH := rows*rowHeight + (rows+1)*opts.Gap

	dc := gg.NewContext(canvasW, canvasH)
	dc.SetRGB255(242, 242, 242)
	dc.Clear()
	dc.SetFontFace(face)

	for idx, tile := range tiles {
		col := idx % cols
		row := idx / cols
		x0 := opts.Gap + col*(opts.CellWidth+opts.Gap)
		y0 := opts.Gap + row*(rowHeight+opts.Gap)

		img := tile.image
		if img == nil {
			img = placeholder(opts.CellWidth, opts.CellHeight)
		} else {
			img = imaging.Fit(img, opts.CellWidth, opts.CellHeight, imaging.Lanczos)
		}

		pasteX := x0 + (opts.CellWidth-img.Bounds().Dx())/2
		pasteY := y0 + (opts.CellHeight-img.Bounds().Dy())/2
		dc.DrawImage(img, pasteX, pasteY)

		dc.SetRGB255(160, 160, 160)
		dc.SetLineWidth(1)
		dc.DrawRectangle(float64(pasteX)-0.5, float64(pasteY)-0.5,
			float64(img.Bounds().Dx())+1, float64(img.Bounds().Dy())+1)
		dc.Stroke()

		if opts.Labels != LabelNone {
			label := tile.label
			if opts.Labels == LabelNumber {
				label = fmt.Sprintf("%d", idx+1)
			}
			dc.SetRGB255(0, 0, 0)
			dc.DrawStringAnchored(label, float64(x0)+float64(opts.CellWidth)/2,
				float64(y0+opts.CellHeight+3), 0.5, 1)
		}
	}

	if err := imaging.Save(dc.Image(), outPath); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save montage to %s", outPath)
	}
	return nil
}

type tile struct {
	label string
	image image.Image
}

func loadTiles(inputs []string, opts Options) ([]tile, int, error) {
	tiles := make([]tile, 0, len(inputs))
	valid := 0
	for _, path := range inputs {
		img, err := loadRaster(path)
		if err != nil {
			if opts.FailFast {
				return nil, 0, err
			}
			if opts.Warn != nil {
				opts.Warn(path, err)
			}
			img = nil
		} else {
			valid++
		}
		tiles = append(tiles, tile{label: baseName(path), image: img})
	}
	return tiles, valid, nil
}

// placeholder builds a light gray tile with a red X, scaled to 60% of
// the cell's shorter side, for inputs that failed to load.
func placeholder(cellW, cellH int) image.Image {
	size := int(math.Round(math.Min(float64(cellW), float64(cellH)) * 0.6))
	if size < 8 {
		size = 8
	}
	dc := gg.NewContext(size, size)
	dc.SetRGB255(220, 220, 220)
	dc.Clear()
	dc.SetRGB255(180, 0, 0)
	dc.SetLineWidth(3)
	dc.DrawLine(0, 0, float64(size-1), float64(size-1))
	dc.DrawLine(float64(size-1), 0, 0, float64(size-1))
	dc.Stroke()
	return dc.Image()
}

// labelFace picks a label font sized relative to the cell height,
// falling back to the builtin bitmap face when no system TTF is found.
func labelFace(cellH int) font.Face {
	size := float64(cellH) * 0.12
	if size < 12 {
		size = 12
	}
	if size > 36 {
		size = 36
	}
	for _, name := range []string{"DejaVuSans.ttf", "Arial.ttf", "arial.ttf", "LiberationSans-Regular.ttf"} {
		path, err := findfont.Find(name)
		if err != nil {
			continue
		}
		face, err := gg.LoadFontFace(path, size)
		if err != nil {
			continue
		}
		return face
	}
	return basicfont.Face7x13
}
