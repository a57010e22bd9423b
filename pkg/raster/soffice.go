package raster

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
)

// SofficeConverter shells out to LibreOffice for document conversion.
// The zero value is usable; Binary defaults to "soffice".
type SofficeConverter struct {
	// Binary is the LibreOffice executable name or path.
	Binary string

	// Timeout bounds a single conversion. Zero means no timeout; expiry is
	// reported as TIMEOUT.
	Timeout time.Duration
}

// NewSofficeConverter returns a converter using the soffice binary from PATH.
func NewSofficeConverter() *SofficeConverter {
	return &SofficeConverter{Binary: "soffice"}
}

// ToPDF converts a document directly to PDF.
func (c *SofficeConverter) ToPDF(ctx context.Context, docPath, outDir string) (string, error) {
	return c.convert(ctx, "pdf", docPath, outDir)
}

// ToODP round-trips a deck through the ODF serializer.
func (c *SofficeConverter) ToODP(ctx context.Context, docPath, outDir string) (string, error) {
	return c.convert(ctx, "odp", docPath, outDir)
}

func (c *SofficeConverter) convert(ctx context.Context, format, input, outDir string) (string, error) {
	// Each invocation gets a unique user profile to avoid the LibreOffice
	// profile lock when conversions run concurrently.
	profile := filepath.Join(os.TempDir(), "deckproof-profile-"+uuid.NewString())
	if err := os.MkdirAll(profile, 0o755); err != nil {
		return "", xerrors.Wrap(xerrors.ErrCodeInternal, err, "create profile dir")
	}
	defer os.RemoveAll(profile)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	bin := c.Binary
	if bin == "" {
		bin = "soffice"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-env:UserInstallation=file://"+profile,
		"--invisible", "--headless", "--norestore",
		"--convert-to", format,
		"--outdir", outDir,
		input)

	// LibreOffice exit codes are unreliable; success is judged by the
	// presence of the output file.
	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", xerrors.Wrap(xerrors.ErrCodeTimeout, ctx.Err(), "%s conversion of %s timed out", format, input)
	}

	out := filepath.Join(outDir, stem(input)+"."+format)
	if _, err := os.Stat(out); err != nil {
		if runErr != nil {
			return "", xerrors.Wrap(xerrors.ErrCodeConversionFailed, runErr, "%s conversion of %s", format, input)
		}
		return "", xerrors.New(xerrors.ErrCodeConversionFailed, "%s did not produce %s", bin, out)
	}
	return out, nil
}

// stem returns the file name without directory or extension.
func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

var _ Converter = (*SofficeConverter)(nil)
