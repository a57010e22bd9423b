package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deckproof/deckproof/pkg/montage"
)

// montageOpts holds the command-line flags for the montage command.
type montageOpts struct {
	output     string // output image path
	inputDir   string // directory of images, alternative to positional args
	columns    int    // images per row
	cellWidth  int    // cell width in pixels
	cellHeight int    // cell height in pixels
	gap        int    // spacing between and around cells
	labels     string // none, number, or filename
	failFast   bool   // abort on the first unreadable image
}

// montageCommand creates the montage command for composing contact sheets.
func (c *CLI) montageCommand() *cobra.Command {
	def := montage.DefaultOptions()
	opts := montageOpts{
		columns:    def.Columns,
		cellWidth:  def.CellWidth,
		cellHeight: def.CellHeight,
		gap:        def.Gap,
		labels:     string(def.Labels),
	}

	cmd := &cobra.Command{
		Use:   "montage [images...]",
		Short: "Compose images into a fixed-column contact sheet",
		Long: `Montage arranges images into a grid with a fixed number of columns.
Each image is resized isotropically to fit its cell; an optional 1-based
number or the filename is drawn beneath it.

Pass image paths as arguments, or --input-dir to take every supported image
in a directory in natural order (slide-2 before slide-10). Unreadable images
become placeholder tiles unless --fail-fast is set.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMontage(args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "montage.png", "output image path (format from extension)")
	cmd.Flags().StringVar(&opts.inputDir, "input-dir", "", "directory of input images (alternative to arguments)")
	cmd.Flags().IntVar(&opts.columns, "columns", opts.columns, "number of images per row")
	cmd.Flags().IntVar(&opts.cellWidth, "cell-width", opts.cellWidth, "container width in pixels for each image")
	cmd.Flags().IntVar(&opts.cellHeight, "cell-height", opts.cellHeight, "container height in pixels for each image")
	cmd.Flags().IntVar(&opts.gap, "gap", opts.gap, "gap in pixels between images and canvas margins")
	cmd.Flags().StringVar(&opts.labels, "labels", opts.labels, "label mode: number, filename, or none")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "fail on the first unreadable image instead of using a placeholder")

	return cmd
}

func (c *CLI) runMontage(args []string, opts montageOpts) error {
	if (len(args) == 0) == (opts.inputDir == "") {
		return fmt.Errorf("provide image arguments or --input-dir, but not both")
	}

	inputs := args
	if opts.inputDir != "" {
		collected, err := montage.CollectDir(opts.inputDir)
		if err != nil {
			return err
		}
		inputs = collected
	}

	err := montage.Build(inputs, opts.output, montage.Options{
		Columns:    opts.columns,
		CellWidth:  opts.cellWidth,
		CellHeight: opts.cellHeight,
		Gap:        opts.gap,
		Labels:     montage.LabelMode(opts.labels),
		FailFast:   opts.failFast,
		Warn: func(path string, err error) {
			printWarning("Failed to load image %q: %v", path, err)
		},
	})
	if err != nil {
		return err
	}

	printSuccess("Montage saved to %s", opts.output)
	printDetail("%d images, %d columns", len(inputs), opts.columns)
	return nil
}
