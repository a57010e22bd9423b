package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Width != 1600 || cfg.Height != 900 {
		t.Errorf("default budget = %dx%d, want 1600x900", cfg.Width, cfg.Height)
	}
	if cfg.PadPx != 100 {
		t.Errorf("default pad = %d, want 100", cfg.PadPx)
	}
	if cfg.Workers <= 0 {
		t.Errorf("default workers = %d, want positive", cfg.Workers)
	}
	if cfg.Timeout.Duration != 10*time.Minute {
		t.Errorf("default timeout = %v, want 10m", cfg.Timeout.Duration)
	}
	if cfg.NoCache {
		t.Error("cache should be enabled by default")
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
width = 3200
pad_px = 50
timeout = "90s"
no_cache = true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Width != 3200 {
		t.Errorf("width = %d, want 3200", cfg.Width)
	}
	if cfg.Height != 900 {
		t.Errorf("height = %d, want default 900", cfg.Height)
	}
	if cfg.PadPx != 50 {
		t.Errorf("pad_px = %d, want 50", cfg.PadPx)
	}
	if cfg.Timeout.Duration != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", cfg.Timeout.Duration)
	}
	if !cfg.NoCache {
		t.Error("no_cache = false, want true")
	}
}

func TestLoadConfigBackendOverrides(t *testing.T) {
	path := writeConfig(t, `
soffice = "/opt/libreoffice/program/soffice"
pdftoppm = "pdftoppm-24"
cache_dir = "/var/cache/deckproof"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Soffice != "/opt/libreoffice/program/soffice" {
		t.Errorf("soffice = %q", cfg.Soffice)
	}
	if cfg.Pdftoppm != "pdftoppm-24" {
		t.Errorf("pdftoppm = %q", cfg.Pdftoppm)
	}
	if cfg.Pdfinfo != "pdfinfo" {
		t.Errorf("pdfinfo = %q, want default", cfg.Pdfinfo)
	}
	if cfg.CacheDir != "/var/cache/deckproof" {
		t.Errorf("cache_dir = %q", cfg.CacheDir)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if !os.IsNotExist(err) {
		t.Fatalf("LoadConfig() error = %v, want not-exist", err)
	}

	// Defaults must survive a missing file
	if cfg.Width != DefaultConfig().Width {
		t.Errorf("width = %d, want default", cfg.Width)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); !os.IsNotExist(err) {
		t.Fatalf("LoadConfig(\"\") error = %v, want not-exist", err)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `widht = 3200`)

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() should reject unknown keys")
	}
	if cfg.Width != DefaultConfig().Width {
		t.Errorf("width = %d, want default after parse failure", cfg.Width)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `timeout = "soon"`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() should reject unparsable durations")
	}
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	path := writeConfig(t, `width = `)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() should reject malformed TOML")
	}
}
