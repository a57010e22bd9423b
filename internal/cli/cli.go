// Package cli implements the deckproof command-line interface.
//
// This package provides commands for checking slide decks for content that
// overflows the slide canvas, rendering decks to PNG frames, composing
// contact sheets, and managing the render cache. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - check: Detect content overflowing the original slide canvas
//   - render: Rasterize a deck to one PNG per slide
//   - montage: Compose rendered frames into a contact sheet
//   - cache: Manage the render cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/deckproof/deckproof/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/deckproof/deckproof/pkg/buildinfo"
	"github.com/deckproof/deckproof/pkg/cache"
	"github.com/deckproof/deckproof/pkg/pipeline"
	"github.com/deckproof/deckproof/pkg/raster"
)

// appName is the application name used for directories and display.
const appName = "deckproof"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the on-disk
// configuration applied.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
	if cfg, err := LoadConfig(configPath()); err == nil {
		c.Config = cfg
	} else if !os.IsNotExist(err) {
		c.Logger.Warn("ignoring unreadable config file", "path", configPath(), "err", err)
	}
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Deckproof detects slide content that overflows the canvas",
		Long:         `Deckproof renders PPTX decks with a gray safety border and inspects the rendered margins, flagging every slide whose content crosses the original canvas edge.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Commands read the logger back with loggerFromContext, so embedders
	// shadowing PersistentPreRunE should chain to this one.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.montageCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(store, c.Logger)
	if conv, ok := runner.Converter.(*raster.SofficeConverter); ok {
		conv.Timeout = c.Config.Timeout.Duration
		if c.Config.Soffice != "" {
			conv.Binary = c.Config.Soffice
		}
	}
	if rend, ok := runner.Renderer.(*raster.PopplerRenderer); ok {
		rend.Timeout = c.Config.Timeout.Duration
		if c.Config.Pdftoppm != "" {
			rend.PdftoppmBinary = c.Config.Pdftoppm
		}
		if c.Config.Pdfinfo != "" {
			rend.PdfinfoBinary = c.Config.Pdfinfo
		}
	}
	return runner, nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.resolveCacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/deckproof/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configPath returns the config file location using XDG standard
// (~/.config/deckproof/config.toml).
func configPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}
