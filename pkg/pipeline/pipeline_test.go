package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/deckproof/deckproof/pkg/cache"
	"github.com/deckproof/deckproof/pkg/dpi"
	"github.com/deckproof/deckproof/pkg/errors"
)

const testPresentationXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:sldSz cx="9144000" cy="5143500" type="screen16x9"/>
</p:presentation>`

const testSlideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>
</p:spTree></p:cSld>
</p:sld>`

// writeTestDeck assembles a minimal two-slide PPTX archive on disk. Its
// 10 x 5.625 inch page resolves to exactly 160 DPI under the default
// 1600x900 budget.
func writeTestDeck(t *testing.T, presentation string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string]string{
		"[Content_Types].xml":   `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"ppt/presentation.xml":  presentation,
		"ppt/slides/slide1.xml": testSlideXML,
		"ppt/slides/slide2.xml": testSlideXML,
	}
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	return path
}

// fakeConverter produces an empty PDF file without invoking LibreOffice.
type fakeConverter struct {
	mu       sync.Mutex
	toPDF    int
	lastDeck string
	report   string
}

func (c *fakeConverter) ToPDF(ctx context.Context, docPath, outDir string) (string, error) {
	c.mu.Lock()
	c.toPDF++
	c.lastDeck = docPath
	c.mu.Unlock()
	path := filepath.Join(outDir, "deck.pdf")
	return path, os.WriteFile(path, []byte("%PDF-fake"), 0o644)
}

func (c *fakeConverter) ToODP(ctx context.Context, docPath, outDir string) (string, error) {
	path := filepath.Join(outDir, "deck.odp")
	return path, os.WriteFile(path, []byte("odp"), 0o644)
}

func (c *fakeConverter) PageSizeReport(ctx context.Context, pdfPath string) (string, error) {
	return c.report, nil
}

func (c *fakeConverter) conversions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toPDF
}

// fakeRenderer writes uniform PNG frames. Pages listed in dirty are filled
// with black so every margin band fails; all others are filled with the pad
// gray so every band passes.
type fakeRenderer struct {
	pages int
	dirty map[int]bool
}

func (r *fakeRenderer) PageCount(pdfPath string) (int, error) {
	return r.pages, nil
}

func (r *fakeRenderer) RenderPage(ctx context.Context, pdfPath string, page, dpi int, outDir string) (string, error) {
	fill := color.RGBA{200, 200, 200, 255}
	if r.dirty[page] {
		fill = color.RGBA{0, 0, 0, 255}
	}
	img := image.NewRGBA(image.Rect(0, 0, 800, 450))
	for y := 0; y < 450; y++ {
		for x := 0; x < 800; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	path := filepath.Join(outDir, fmt.Sprintf("frame-%d.png", page))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return path, png.Encode(f, img)
}

func newTestRunner(conv *fakeConverter, rend *fakeRenderer, c cache.Cache) *Runner {
	r := NewRunner(c, nil)
	r.Converter = conv
	r.Renderer = rend
	return r
}

func TestCheckPassesCleanDeck(t *testing.T) {
	deckPath := writeTestDeck(t, testPresentationXML)
	conv := &fakeConverter{}
	runner := newTestRunner(conv, &fakeRenderer{pages: 2}, nil)

	report, err := runner.Check(context.Background(), deckPath, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.Passed() {
		t.Errorf("clean deck reported failing slides %v", report.Failing)
	}
	if report.DPI != 160 {
		t.Errorf("DPI = %d, want 160", report.DPI)
	}
	if len(report.Frames) != 2 {
		t.Errorf("frames = %d, want 2", len(report.Frames))
	}
	if report.WorkDir != "" {
		t.Errorf("WorkDir retained without Keep: %s", report.WorkDir)
	}
	if filepath.Base(conv.lastDeck) != "padded.pptx" {
		t.Errorf("conversion input = %s, want the padded copy", conv.lastDeck)
	}
}

func TestCheckFlagsOverflowingSlides(t *testing.T) {
	deckPath := writeTestDeck(t, testPresentationXML)
	rend := &fakeRenderer{pages: 2, dirty: map[int]bool{2: true}}
	runner := newTestRunner(&fakeConverter{}, rend, nil)

	report, err := runner.Check(context.Background(), deckPath, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Failing) != 1 || report.Failing[0] != 2 {
		t.Fatalf("Failing = %v, want [2]", report.Failing)
	}

	failing := report.FailingFrames()
	if len(failing) != 1 || failing[0].Page != 2 {
		t.Errorf("FailingFrames = %v, want frame for page 2", failing)
	}
}

func TestCheckKeepRetainsWorkDir(t *testing.T) {
	deckPath := writeTestDeck(t, testPresentationXML)
	runner := newTestRunner(&fakeConverter{}, &fakeRenderer{pages: 2}, nil)

	report, err := runner.Check(context.Background(), deckPath, Options{Keep: true, WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.WorkDir == "" {
		t.Fatal("WorkDir empty despite Keep")
	}
	if _, err := os.Stat(filepath.Join(report.WorkDir, "padded.pptx")); err != nil {
		t.Errorf("padded deck missing from retained work dir: %v", err)
	}
	for _, f := range report.Frames {
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("frame %d missing from retained work dir: %v", f.Page, err)
		}
	}
}

func TestCheckMissingDeck(t *testing.T) {
	runner := newTestRunner(&fakeConverter{}, &fakeRenderer{pages: 1}, nil)

	_, err := runner.Check(context.Background(), filepath.Join(t.TempDir(), "absent.pptx"), Options{})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestRenderServesSecondRunFromCache(t *testing.T) {
	deckPath := writeTestDeck(t, testPresentationXML)
	conv := &fakeConverter{}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := newTestRunner(conv, &fakeRenderer{pages: 2}, fc)

	first, err := runner.Render(context.Background(), deckPath, filepath.Join(t.TempDir(), "a"), Options{})
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	if conv.conversions() != 1 {
		t.Fatalf("conversions after first render = %d, want 1", conv.conversions())
	}

	second, err := runner.Render(context.Background(), deckPath, filepath.Join(t.TempDir(), "b"), Options{})
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if conv.conversions() != 1 {
		t.Errorf("second render hit the converter (%d conversions)", conv.conversions())
	}
	if len(second) != len(first) {
		t.Fatalf("cached render returned %d frames, want %d", len(second), len(first))
	}
	for i, f := range second {
		if f.Page != first[i].Page {
			t.Errorf("frame %d page = %d, want %d", i, f.Page, first[i].Page)
		}
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("cached frame %d not materialized: %v", f.Page, err)
		}
	}
}

func TestRenderNullCacheAlwaysRenders(t *testing.T) {
	deckPath := writeTestDeck(t, testPresentationXML)
	conv := &fakeConverter{}
	runner := newTestRunner(conv, &fakeRenderer{pages: 2}, nil)

	for i := 0; i < 2; i++ {
		if _, err := runner.Render(context.Background(), deckPath, filepath.Join(t.TempDir(), "out"), Options{}); err != nil {
			t.Fatalf("Render %d: %v", i, err)
		}
	}
	if conv.conversions() != 2 {
		t.Errorf("conversions = %d, want 2 without a cache", conv.conversions())
	}
}

func TestResolveDPIFallsBackToPDF(t *testing.T) {
	noSldSz := `<?xml version="1.0"?><p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"></p:presentation>`
	deckPath := writeTestDeck(t, noSldSz)
	conv := &fakeConverter{report: "Pages: 2\nPage size: 720 x 405 pts\n"}
	runner := newTestRunner(conv, &fakeRenderer{pages: 2}, nil)

	// 720 x 405 pts is 10 x 5.625 inches: 160 DPI under the default budget.
	resolution, err := runner.ResolveDPI(context.Background(), deckPath, dpi.PixelBudget{})
	if err != nil {
		t.Fatalf("ResolveDPI: %v", err)
	}
	if resolution != 160 {
		t.Errorf("DPI = %d, want 160", resolution)
	}
}

func TestRenderWithoutNativeMetadata(t *testing.T) {
	noSldSz := `<?xml version="1.0"?><p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"></p:presentation>`
	deckPath := writeTestDeck(t, noSldSz)
	conv := &fakeConverter{report: "Pages: 2\nPage size: 720 x 405 pts\n"}
	runner := newTestRunner(conv, &fakeRenderer{pages: 2}, nil)

	frames, err := runner.Render(context.Background(), deckPath, filepath.Join(t.TempDir(), "out"), Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(frames) != 2 {
		t.Errorf("frames = %d, want 2", len(frames))
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative pad", Options{PadPx: -1}},
		{"negative workers", Options{Workers: -2}},
		{"negative budget", Options{Budget: dpi.PixelBudget{Width: -1, Height: 900}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}
