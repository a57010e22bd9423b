package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckproof/deckproof/pkg/dpi"
	"github.com/deckproof/deckproof/pkg/pipeline"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	width   int           // pixel budget width
	height  int           // pixel budget height
	padPx   int           // padding per side in pixels
	workers int           // page-rendering pool size
	timeout time.Duration // bound on the whole check
	keep    bool          // retain the work dir even when the deck passes
}

// checkCommand creates the check command, the core overflow test.
func (c *CLI) checkCommand() *cobra.Command {
	opts := checkOpts{
		width:   c.Config.Width,
		height:  c.Config.Height,
		padPx:   c.Config.PadPx,
		workers: c.Config.Workers,
		timeout: c.Config.Timeout.Duration,
	}

	cmd := &cobra.Command{
		Use:   "check [deck.pptx]",
		Short: "Detect content overflowing the slide canvas",
		Long: `Check renders the deck with a gray safety border around every slide and
inspects the rendered margins. Any slide whose content reaches into the
border is reported with its 1-based index.

The render resolution is derived from the deck's own page size so that the
original canvas fits the pixel budget (default 1600x900); the padded render
comes out slightly larger.

On failure the padded renders of the offending slides are retained for
visual triage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.width, "width", opts.width, "approximate maximum frame width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "approximate maximum frame height in pixels")
	cmd.Flags().IntVar(&opts.padPx, "pad-px", opts.padPx, "padding in pixels added on each side")
	cmd.Flags().IntVar(&opts.workers, "workers", opts.workers, "page-rendering pool size")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "bound on the whole check (0 for none)")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "retain the padded deck and frames even when the check passes")

	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, deckPath string, opts checkOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	// A stale cached frame could mask an overflow, so the check always
	// renders fresh.
	runner, err := c.newRunner(true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	name := filepath.Base(deckPath)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Checking %s...", name))
	spinner.Start()

	// The work dir is always retained through the run; frames of failing
	// slides must survive for triage output below.
	report, err := runner.Check(ctx, deckPath, pipeline.Options{
		Budget:  dpi.PixelBudget{Width: opts.width, Height: opts.height},
		PadPx:   opts.padPx,
		Workers: opts.workers,
		Keep:    true,
		Logger:  logger,
	})
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Check of %s failed", name))
		return err
	}
	spinner.Stop()

	if report.Passed() {
		printSuccess("Test passed. No overflow detected.")
		printDetail("%d slides checked at %d DPI", len(report.Frames), report.DPI)
		if opts.keep {
			printDetail("Work dir: %s", report.WorkDir)
		} else {
			os.RemoveAll(report.WorkDir)
		}
		return nil
	}

	printError("Slides with content overflowing original canvas (1-based indexing): %s", joinInts(report.Failing))
	printInfo("Rendered images with gray paddings for problematic slides:")
	for _, frame := range report.FailingFrames() {
		printFile(frame.Path)
	}
	return fmt.Errorf("%d of %d slides overflow the canvas", len(report.Failing), len(report.Frames))
}

// joinInts formats 1-based slide indices as "2, 5, 9".
func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
