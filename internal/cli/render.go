package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckproof/deckproof/pkg/dpi"
	"github.com/deckproof/deckproof/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	outputDir string        // where the PNG frames land
	width     int           // pixel budget width
	height    int           // pixel budget height
	workers   int           // page-rendering pool size
	timeout   time.Duration // bound on the whole render
	noCache   bool          // bypass the render cache
}

// renderCommand creates the render command for rasterizing decks to PNGs.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		width:   c.Config.Width,
		height:  c.Config.Height,
		workers: c.Config.Workers,
		timeout: c.Config.Timeout.Duration,
		noCache: c.Config.NoCache,
	}

	cmd := &cobra.Command{
		Use:   "render [deck.pptx]",
		Short: "Rasterize a deck to one PNG per slide",
		Long: `Render converts the deck to PDF with LibreOffice and rasterizes every
page to a PNG named slide-<n>.png, where <n> is the 1-based slide number.

The resolution is derived from the deck's page size so slides fit the pixel
budget (default 1600x900). Frames are cached keyed on the deck bytes and
resolution; repeated renders of an unchanged deck skip LibreOffice.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "output directory (default: <deck name>_frames)")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "approximate maximum frame width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "approximate maximum frame height in pixels")
	cmd.Flags().IntVar(&opts.workers, "workers", opts.workers, "page-rendering pool size")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "bound on the whole render (0 for none)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", opts.noCache, "bypass the render cache")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, deckPath string, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	outDir := opts.outputDir
	if outDir == "" {
		outDir = defaultFrameDir(deckPath)
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	name := filepath.Base(deckPath)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", name))
	spinner.Start()

	track := newProgress(logger)
	frames, err := runner.Render(ctx, deckPath, outDir, pipeline.Options{
		Budget:  dpi.PixelBudget{Width: opts.width, Height: opts.height},
		Workers: opts.workers,
		Logger:  logger,
	})
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Render of %s failed", name))
		return err
	}
	spinner.Stop()
	track.done(fmt.Sprintf("Rendered %d frames", len(frames)))

	printSuccess("Rendered %d slides", len(frames))
	printDetail("Directory: %s", outDir)
	return nil
}

// defaultFrameDir derives the output directory from the deck file name:
// talk.pptx renders into talk_frames next to it.
func defaultFrameDir(deckPath string) string {
	base := filepath.Base(deckPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(deckPath), stem+"_frames")
}
