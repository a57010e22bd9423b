package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/deckproof/deckproof/pkg/dpi"
	"github.com/deckproof/deckproof/pkg/pipeline"
	"github.com/deckproof/deckproof/pkg/raster"
)

// Config holds the on-disk defaults for command flags. Flags set on the
// command line always win over config values, which win over the built-in
// defaults.
type Config struct {
	// Width and Height bound the rendered frame size in pixels.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// PadPx is the padding added on every side before the overflow check.
	PadPx int `toml:"pad_px"`

	// Workers bounds the page-rendering pool.
	Workers int `toml:"workers"`

	// Timeout bounds each external conversion or render call.
	Timeout duration `toml:"timeout"`

	// NoCache disables the render cache.
	NoCache bool `toml:"no_cache"`

	// CacheDir overrides the XDG cache directory.
	CacheDir string `toml:"cache_dir"`

	// Soffice, Pdftoppm, and Pdfinfo override the backend binary names.
	Soffice  string `toml:"soffice"`
	Pdftoppm string `toml:"pdftoppm"`
	Pdfinfo  string `toml:"pdfinfo"`
}

// duration wraps time.Duration for TOML strings like "10m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Width:    dpi.DefaultBudget.Width,
		Height:   dpi.DefaultBudget.Height,
		PadPx:    pipeline.DefaultPadPx,
		Workers:  raster.DefaultWorkers,
		Timeout:  duration{10 * time.Minute},
		Soffice:  "soffice",
		Pdftoppm: "pdftoppm",
		Pdfinfo:  "pdfinfo",
	}
}

// LoadConfig reads a TOML config file and overlays it on the defaults.
// Unknown keys are rejected so typos surface instead of silently reverting
// to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, os.ErrNotExist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return DefaultConfig(), fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
