package deck

import (
	"archive/zip"
	"os"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
)

// Pad writes a padded variant of the deck at src to dst. The canvas grows by
// pad EMUs on every side, all top-level shapes are shifted by +pad on both
// axes so the original composition stays centered, and four opaque padding
// bands are inserted behind all content on every slide.
//
// The source deck is never modified. On failure any partially written dst is
// removed. The returned PageSize is the enlarged page size, so callers can
// compute the padding-to-canvas ratio without re-reading the deck.
func Pad(src, dst string, pad EMU) (PageSize, error) {
	if pad <= 0 {
		return PageSize{}, xerrors.New(xerrors.ErrCodeInvalidInput, "padding must be positive, got %d EMU", pad)
	}

	zr, err := zip.OpenReader(src)
	if err != nil {
		return PageSize{}, xerrors.Wrap(xerrors.ErrCodeFileNotFound, err, "open deck %s", src)
	}
	defer zr.Close()

	// The enlarged size is needed before any slide is rewritten because the
	// band geometry depends on it, and slide parts may precede
	// presentation.xml in the archive.
	orig, err := readPageSize(&zr.Reader)
	if err != nil {
		return PageSize{}, err
	}
	newSize := PageSize{CX: orig.CX + 2*pad, CY: orig.CY + 2*pad}

	out, err := os.Create(dst)
	if err != nil {
		return PageSize{}, xerrors.Wrap(xerrors.ErrCodeInternal, err, "create padded deck %s", dst)
	}

	if err := writePadded(&zr.Reader, out, pad, newSize); err != nil {
		out.Close()
		os.Remove(dst)
		return PageSize{}, err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return PageSize{}, xerrors.Wrap(xerrors.ErrCodeInternal, err, "close padded deck %s", dst)
	}
	return newSize, nil
}

// writePadded copies the archive entry by entry, transforming the
// presentation part and every slide part and passing everything else through
// untouched.
func writePadded(zr *zip.Reader, out *os.File, pad EMU, newSize PageSize) error {
	zw := zip.NewWriter(out)

	for _, f := range zr.File {
		switch {
		case f.Name == presentationXML:
			if err := rewritePresentation(f, zw, pad); err != nil {
				return err
			}
		case slideEntryRE.MatchString(f.Name):
			if err := rewriteSlide(f, zw, pad, newSize); err != nil {
				return err
			}
		default:
			if err := zw.Copy(f); err != nil {
				return xerrors.Wrap(xerrors.ErrCodeInternal, err, "copy %s", f.Name)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err, "finalize padded deck")
	}
	return nil
}

// rewritePresentation streams the presentation part through the sldSz
// transform into the output archive.
func rewritePresentation(f *zip.File, zw *zip.Writer, pad EMU) error {
	rc, err := f.Open()
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err, "open %s", f.Name)
	}
	defer rc.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err, "write %s", f.Name)
	}
	_, err = transformPresentation(rc, w, pad)
	return err
}

// rewriteSlide streams a slide part through the shift-and-inject transform
// into the output archive.
func rewriteSlide(f *zip.File, zw *zip.Writer, pad EMU, newSize PageSize) error {
	rc, err := f.Open()
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err, "open %s", f.Name)
	}
	defer rc.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err, "write %s", f.Name)
	}
	return transformSlide(rc, w, pad, newSize)
}
