package raster

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
)

// PopplerRenderer rasterizes PDF pages with pdftoppm and answers page-size
// queries with pdfinfo. Page counting goes through the pdfcpu API so the
// worker pool can be sized without another process invocation.
type PopplerRenderer struct {
	// PdftoppmBinary is the pdftoppm executable name or path.
	PdftoppmBinary string

	// PdfinfoBinary is the pdfinfo executable name or path.
	PdfinfoBinary string

	// Timeout bounds a single invocation. Zero means no timeout.
	Timeout time.Duration
}

// NewPopplerRenderer returns a renderer using the poppler binaries from PATH.
func NewPopplerRenderer() *PopplerRenderer {
	return &PopplerRenderer{
		PdftoppmBinary: "pdftoppm",
		PdfinfoBinary:  "pdfinfo",
	}
}

// PageCount returns the number of pages in the PDF.
func (r *PopplerRenderer) PageCount(pdfPath string) (int, error) {
	n, err := pdfcpu.PageCountFile(pdfPath)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.ErrCodeInternal, err, "count pages of %s", pdfPath)
	}
	return n, nil
}

// RenderPage renders one page to PNG at the given DPI. Each page gets its own
// subdirectory so the produced file can be identified without knowing
// pdftoppm's zero-padding width.
func (r *PopplerRenderer) RenderPage(ctx context.Context, pdfPath string, page, dpi int, outDir string) (string, error) {
	dir := filepath.Join(outDir, fmt.Sprintf("p%d", page))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", xerrors.Wrap(xerrors.ErrCodeInternal, err, "create page dir")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	prefix := filepath.Join(dir, "page")
	pageArg := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, r.pdftoppm(),
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", pageArg, "-l", pageArg,
		pdfPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(dir)
		return "", xerrors.Wrap(xerrors.ErrCodeRasterizationFailed, err,
			"pdftoppm page %d of %s: %s", page, pdfPath, stderr.String())
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) != 1 {
		return "", xerrors.New(xerrors.ErrCodeRasterizationFailed,
			"pdftoppm produced %d files for page %d of %s", len(matches), page, pdfPath)
	}
	return matches[0], nil
}

// PageSizeReport runs pdfinfo and returns its raw report.
func (r *PopplerRenderer) PageSizeReport(ctx context.Context, pdfPath string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.pdfinfo(), pdfPath)
	out, err := cmd.Output()
	if err != nil {
		return "", xerrors.Wrap(xerrors.ErrCodeConversionFailed, err, "pdfinfo %s", pdfPath)
	}
	return string(out), nil
}

func (r *PopplerRenderer) pdftoppm() string {
	if r.PdftoppmBinary != "" {
		return r.PdftoppmBinary
	}
	return "pdftoppm"
}

func (r *PopplerRenderer) pdfinfo() string {
	if r.PdfinfoBinary != "" {
		return r.PdfinfoBinary
	}
	return "pdfinfo"
}

var (
	_ PageRenderer = (*PopplerRenderer)(nil)
	_ PageSizer    = (*PopplerRenderer)(nil)
)
