package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/deckproof/deckproof/pkg/cache"
	"github.com/deckproof/deckproof/pkg/deck"
	"github.com/deckproof/deckproof/pkg/dpi"
	"github.com/deckproof/deckproof/pkg/errors"
	"github.com/deckproof/deckproof/pkg/inspect"
	"github.com/deckproof/deckproof/pkg/observability"
	"github.com/deckproof/deckproof/pkg/raster"
)

// Runner executes the overflow-check and render pipelines.
//
// The Runner is stateless except for its backends, cache, and logger - it
// doesn't store run results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Converter raster.Converter
	Renderer  raster.PageRenderer
	Cache     cache.Cache
	Logger    *log.Logger
}

// NewRunner creates a runner with the given cache and logger.
// If c is nil, a NullCache is used (caching disabled). The converter and
// renderer default to the LibreOffice and Poppler backends.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Converter: raster.NewSofficeConverter(),
		Renderer:  raster.NewPopplerRenderer(),
		Cache:     c,
		Logger:    logger,
	}
}

// Check runs the complete pad → rasterize → inspect pipeline on the deck at
// deckPath. The render resolution is derived from the original page size, so
// the padded render comes out slightly larger than the pixel budget.
//
// Check never consults the cache: a stale frame could mask an overflow.
func (r *Runner) Check(ctx context.Context, deckPath string, opts Options) (*Report, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.runLogger(opts)

	size, err := deck.ReadPageSize(deckPath)
	if err != nil {
		return nil, err
	}
	resolution, err := dpi.FromInches(size.CX.Inches(), size.CY.Inches(), opts.Budget)
	if err != nil {
		return nil, err
	}
	padEMU := deck.FromPixels(opts.PadPx, resolution)
	if padEMU <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "padding of %d px collapses to zero EMU at %d DPI", opts.PadPx, resolution)
	}

	logger.Debug("resolved render resolution",
		"deck", deckPath,
		"dpi", resolution,
		"pad_emu", int64(padEMU))

	workDir, err := os.MkdirTemp(opts.WorkDir, "deckproof-check-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create working dir")
	}
	keep := opts.Keep
	defer func() {
		if !keep {
			os.RemoveAll(workDir)
		}
	}()

	report := &Report{DPI: resolution, PadPx: opts.PadPx}

	padStart := time.Now()
	padded := filepath.Join(workDir, "padded.pptx")
	paddedSize, err := deck.Pad(deckPath, padded, padEMU)
	if err != nil {
		return nil, err
	}
	report.Stats.PadTime = time.Since(padStart)

	logger.Info("padded deck",
		"pad_px", opts.PadPx,
		"page", fmt.Sprintf("%dx%d EMU", paddedSize.CX, paddedSize.CY),
		"duration", report.Stats.PadTime)

	rasterStart := time.Now()
	frames, err := raster.Rasterize(ctx, r.Converter, r.Renderer, padded,
		resolution, filepath.Join(workDir, "frames"), raster.Options{Workers: opts.Workers})
	if err != nil {
		return nil, err
	}
	report.Frames = frames
	report.Stats.RasterizeTime = time.Since(rasterStart)

	logger.Info("rasterized padded deck",
		"frames", len(frames),
		"dpi", resolution,
		"duration", report.Stats.RasterizeTime)

	padRatioW := float64(padEMU) / float64(paddedSize.CX)
	padRatioH := float64(padEMU) / float64(paddedSize.CY)

	inspectStart := time.Now()
	observability.Pipeline().OnInspectStart(ctx, len(frames), resolution)
	failing, err := inspect.Inspect(frames, padRatioW, padRatioH, resolution, deck.PadRGB)
	report.Stats.InspectTime = time.Since(inspectStart)
	observability.Pipeline().OnInspectComplete(ctx, len(frames), len(failing), report.Stats.InspectTime, err)
	if err != nil {
		return nil, err
	}
	report.Failing = failing

	logger.Info("inspected margins",
		"frames", len(frames),
		"failing", len(failing),
		"duration", report.Stats.InspectTime)

	if keep {
		report.WorkDir = workDir
	}
	return report, nil
}

// Render rasterizes the deck at deckPath into outDir at the resolution
// derived from its page size, falling back to measuring the PDF intermediate
// when the deck metadata is missing. Frames are returned in page order and
// served from the cache when the deck bytes and resolution both match a
// previous run.
func (r *Runner) Render(ctx context.Context, deckPath, outDir string, opts Options) ([]raster.Frame, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.runLogger(opts)

	resolution, err := r.ResolveDPI(ctx, deckPath, opts.Budget)
	if err != nil {
		return nil, err
	}

	deckHash, err := cache.HashFile(deckPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "hash deck %s", deckPath)
	}

	if frames, ok := r.cachedFrames(ctx, deckHash, resolution, outDir); ok {
		logger.Info("served frames from cache", "frames", len(frames), "dpi", resolution)
		return frames, nil
	}

	frames, err := raster.Rasterize(ctx, r.Converter, r.Renderer, deckPath,
		resolution, outDir, raster.Options{Workers: opts.Workers})
	if err != nil {
		return nil, err
	}

	r.storeFrames(ctx, deckHash, resolution, frames)

	logger.Info("rendered deck",
		"frames", len(frames),
		"dpi", resolution,
		"dir", outDir)
	return frames, nil
}

// ResolveDPI reports the render resolution the pipeline would use for the
// deck, trying the deck metadata first and falling back to measuring the PDF
// intermediate when the metadata is absent.
func (r *Runner) ResolveDPI(ctx context.Context, deckPath string, budget dpi.PixelBudget) (int, error) {
	if budget == (dpi.PixelBudget{}) {
		budget = dpi.DefaultBudget
	}
	resolution, err := dpi.ResolveNative(deckPath, budget)
	if err == nil {
		return resolution, nil
	}
	if !errors.Is(err, errors.ErrCodeMetadataMissing) {
		return 0, err
	}
	backend, ok := r.Converter.(dpi.Backend)
	if !ok {
		sizer, hasSizer := r.Renderer.(raster.PageSizer)
		if !hasSizer {
			return 0, err
		}
		backend = pdfBackend{Converter: r.Converter, PageSizer: sizer}
	}
	return dpi.ResolveViaPDF(ctx, backend, deckPath, budget)
}

// pdfBackend joins the converter with the renderer's page-size report. The
// default stack splits these across soffice and pdfinfo.
type pdfBackend struct {
	raster.Converter
	raster.PageSizer
}

// cachedFrames restores a full frame set from the cache into outDir. Any
// miss along the way voids the whole restore.
func (r *Runner) cachedFrames(ctx context.Context, deckHash string, resolution int, outDir string) ([]raster.Frame, bool) {
	manifest, hit, err := r.Cache.Get(ctx, cache.DeckKey(deckHash, resolution))
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "deck")
		return nil, false
	}
	pages, err := strconv.Atoi(string(manifest))
	if err != nil || pages < 1 {
		return nil, false
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, false
	}
	frames := make([]raster.Frame, 0, pages)
	for page := 1; page <= pages; page++ {
		data, hit, err := r.Cache.Get(ctx, cache.FrameKey(deckHash, resolution, page))
		if err != nil || !hit {
			observability.Cache().OnCacheMiss(ctx, "frame")
			return nil, false
		}
		path := filepath.Join(outDir, fmt.Sprintf("slide-%d.png", page))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, false
		}
		frames = append(frames, raster.Frame{Page: page, Path: path})
	}
	observability.Cache().OnCacheHit(ctx, "deck")
	return frames, true
}

// storeFrames writes the rendered frames and their manifest to the cache.
// Failures are ignored; the cache is an optimization, not a dependency.
func (r *Runner) storeFrames(ctx context.Context, deckHash string, resolution int, frames []raster.Frame) {
	for _, f := range frames {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return
		}
		if err := r.Cache.Set(ctx, cache.FrameKey(deckHash, resolution, f.Page), data, cache.TTLRender); err != nil {
			return
		}
		observability.Cache().OnCacheSet(ctx, "frame", len(data))
	}
	manifest := strconv.Itoa(len(frames))
	_ = r.Cache.Set(ctx, cache.DeckKey(deckHash, resolution), []byte(manifest), cache.TTLRender)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// runLogger prefers the per-run logger from options over the runner's own.
func (r *Runner) runLogger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	if r.Logger != nil {
		return r.Logger
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}
