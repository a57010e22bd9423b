package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
	"github.com/deckproof/deckproof/pkg/observability"
)

// DefaultWorkers is the default page-rendering pool size.
const DefaultWorkers = 8

// Options configures a rasterization call.
type Options struct {
	// Workers bounds the page-rendering pool. Zero means DefaultWorkers.
	// Correctness does not depend on the degree of parallelism; frames are
	// re-sorted by page number before they are returned.
	Workers int
}

// ConvertToPDF produces the PDF intermediate for a deck, trying an ordered
// list of strategies: direct conversion first, then conversion through the
// normalizing ODP round trip. The returned error carries the last strategy's
// failure and the CONVERSION_FAILED code.
func ConvertToPDF(ctx context.Context, conv Converter, deckPath, outDir string) (string, error) {
	observability.Pipeline().OnConvertStart(ctx, deckPath, "pdf")
	start := time.Now()
	pdfPath, err := convertToPDF(ctx, conv, deckPath, outDir)
	observability.Pipeline().OnConvertComplete(ctx, deckPath, "pdf", time.Since(start), err)
	return pdfPath, err
}

func convertToPDF(ctx context.Context, conv Converter, deckPath, outDir string) (string, error) {
	type strategy struct {
		name string
		run  func(context.Context) (string, error)
	}
	strategies := []strategy{
		{name: "direct", run: func(ctx context.Context) (string, error) {
			return conv.ToPDF(ctx, deckPath, outDir)
		}},
		{name: "via-odp", run: func(ctx context.Context) (string, error) {
			odpPath, err := conv.ToODP(ctx, deckPath, outDir)
			if err != nil {
				return "", err
			}
			return conv.ToPDF(ctx, odpPath, outDir)
		}},
	}

	var lastErr error
	for _, s := range strategies {
		pdfPath, err := s.run(ctx)
		if err == nil {
			return pdfPath, nil
		}
		lastErr = err
	}
	return "", xerrors.Wrap(xerrors.ErrCodeConversionFailed, lastErr,
		"all conversion strategies failed for %s", deckPath)
}

// Rasterize converts the deck to PNG frames at the given DPI, one image per
// page, written to outDir as slide-<n>.png. Frames are returned sorted
// strictly ascending by page number with no gaps, so callers can index frame
// k (1-based) and get slide k unconditionally. All intermediate artifacts
// are removed before the function returns, on every path.
func Rasterize(ctx context.Context, conv Converter, rend PageRenderer, deckPath string, dpi int, outDir string, opts Options) ([]Frame, error) {
	if dpi <= 0 {
		return nil, xerrors.New(xerrors.ErrCodeInvalidInput, "dpi must be positive, got %d", dpi)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err, "create output dir %s", outDir)
	}

	scratch, err := os.MkdirTemp("", "deckproof-convert-")
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err, "create scratch dir")
	}
	defer os.RemoveAll(scratch)

	pdfPath, err := ConvertToPDF(ctx, conv, deckPath, scratch)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeRasterizationFailed, err, "produce PDF for %s", deckPath)
	}

	pages, err := rend.PageCount(pdfPath)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeRasterizationFailed, err, "count pages of %s", pdfPath)
	}
	if pages == 0 {
		return nil, xerrors.New(xerrors.ErrCodeNoFramesProduced, "deck %s rendered zero pages", deckPath)
	}

	observability.Pipeline().OnRasterizeStart(ctx, pdfPath, dpi, pages)
	start := time.Now()
	frames, err := renderFrames(ctx, rend, pdfPath, pages, dpi, outDir, opts)
	observability.Pipeline().OnRasterizeComplete(ctx, pdfPath, len(frames), time.Since(start), err)
	return frames, err
}

// renderFrames renders every page into a scratch directory and moves the
// results to their canonical names in outDir.
func renderFrames(ctx context.Context, rend PageRenderer, pdfPath string, pages, dpi int, outDir string, opts Options) ([]Frame, error) {
	// Backend output lands in a directory on the same filesystem as outDir
	// so the canonical renames below cannot cross devices.
	renderDir := filepath.Join(outDir, ".render-"+uuid.NewString())
	if err := os.MkdirAll(renderDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err, "create render dir")
	}
	defer os.RemoveAll(renderDir)

	rawPaths, err := renderPages(ctx, rend, pdfPath, pages, dpi, renderDir, opts)
	if err != nil {
		return nil, err
	}
	return canonicalize(rawPaths, outDir, pages)
}

// renderPages runs the page-rendering worker pool and collects the
// backend-named output paths, in no particular order.
func renderPages(ctx context.Context, rend PageRenderer, pdfPath string, pages, dpi int, outDir string, opts Options) ([]string, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > pages {
		workers = pages
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		path string
		err  error
	}
	jobs := make(chan int)
	results := make(chan result, pages)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				path, err := rend.RenderPage(ctx, pdfPath, page, dpi, outDir)
				results <- result{path: path, err: err}
				if err != nil {
					cancel()
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for page := 1; page <= pages; page++ {
			select {
			case jobs <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	paths := make([]string, 0, pages)
	for r := range results {
		if r.err != nil {
			return nil, xerrors.Wrap(xerrors.ErrCodeRasterizationFailed, r.err, "render pages of %s", pdfPath)
		}
		paths = append(paths, r.path)
	}
	if len(paths) != pages {
		return nil, xerrors.New(xerrors.ErrCodeRasterizationFailed,
			"rendered %d of %d pages of %s", len(paths), pages, pdfPath)
	}
	return paths, nil
}

// canonicalize renames backend-named output files to slide-<n>.png keyed only
// by the page number embedded in the backend name, discarding thread or batch
// identifiers, and returns the frames sorted ascending by page.
func canonicalize(rawPaths []string, outDir string, pages int) ([]Frame, error) {
	frames := make([]Frame, 0, len(rawPaths))
	for _, src := range rawPaths {
		page, err := pageNumber(src)
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(outDir, fmt.Sprintf("slide-%d.png", page))
		if err := os.Rename(src, dst); err != nil {
			return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err, "rename frame %s", src)
		}
		frames = append(frames, Frame{Page: page, Path: dst})
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Page < frames[j].Page })

	if len(frames) == 0 {
		return nil, xerrors.New(xerrors.ErrCodeNoFramesProduced, "no frames produced")
	}
	for i, f := range frames {
		if f.Page != i+1 {
			return nil, xerrors.New(xerrors.ErrCodeInternal,
				"frame sequence has a gap or duplicate at page %d (expected %d of %d)", f.Page, i+1, pages)
		}
	}
	return frames, nil
}

// pageNumber extracts the 1-based page number from a backend file name,
// which embeds it as the suffix after the final dash.
func pageNumber(path string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(base, "-")
	if idx < 0 || idx == len(base)-1 {
		return 0, xerrors.New(xerrors.ErrCodeInternal, "no page number in frame name %q", base)
	}
	page, err := strconv.Atoi(base[idx+1:])
	if err != nil || page < 1 {
		return 0, xerrors.New(xerrors.ErrCodeInternal, "bad page number in frame name %q", base)
	}
	return page, nil
}
