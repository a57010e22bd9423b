// Package deck provides read access to PPTX slide decks and the padding
// transformation used by the overflow check.
//
// A deck is an OOXML zip archive. The package reads the declared page size
// from ppt/presentation.xml and can synthesize a padded variant of a deck:
// an enlarged canvas with all original content recentered and four opaque
// padding bands injected behind every content shape.
package deck

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"regexp"
	"strconv"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
)

// presentationXML is the archive entry holding the declared slide size.
const presentationXML = "ppt/presentation.xml"

// slideEntryRE matches slide part names inside the archive.
var slideEntryRE = regexp.MustCompile(`^ppt/slides/slide[0-9]+\.xml$`)

// PadRGB is the fill color of injected padding bands. A mid-gray chosen to
// not coincide with typical slide backgrounds.
var PadRGB = [3]uint8{200, 200, 200}

// padHex is PadRGB in the srgbClr attribute encoding.
const padHex = "C8C8C8"

// PageSize is the physical size of a slide page in EMUs.
// Both dimensions are strictly positive for a valid deck.
type PageSize struct {
	CX EMU // width
	CY EMU // height
}

// ReadPageSize extracts the declared slide size from a PPTX file.
// It returns ErrCodeMetadataMissing if the sldSz element is absent or holds
// non-positive dimensions.
func ReadPageSize(path string) (PageSize, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return PageSize{}, xerrors.Wrap(xerrors.ErrCodeFileNotFound, err, "open deck %s", path)
	}
	defer zr.Close()

	return readPageSize(&zr.Reader)
}

// readPageSize scans presentation.xml inside an open archive for the sldSz
// element and validates its dimensions.
func readPageSize(zr *zip.Reader) (PageSize, error) {
	entry := findEntry(zr, presentationXML)
	if entry == nil {
		return PageSize{}, xerrors.New(xerrors.ErrCodeMetadataMissing, "deck has no %s", presentationXML)
	}

	rc, err := entry.Open()
	if err != nil {
		return PageSize{}, xerrors.Wrap(xerrors.ErrCodeMetadataMissing, err, "open %s", presentationXML)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PageSize{}, xerrors.Wrap(xerrors.ErrCodeMetadataMissing, err, "parse %s", presentationXML)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sldSz" {
			continue
		}
		size := PageSize{
			CX: emuAttr(se, "cx"),
			CY: emuAttr(se, "cy"),
		}
		if size.CX <= 0 || size.CY <= 0 {
			return PageSize{}, xerrors.New(xerrors.ErrCodeMetadataMissing,
				"invalid slide size %dx%d EMU", size.CX, size.CY)
		}
		return size, nil
	}
	return PageSize{}, xerrors.New(xerrors.ErrCodeMetadataMissing, "slide size not found in %s", presentationXML)
}

// emuAttr returns the named attribute parsed as an EMU, or 0 when absent or
// malformed.
func emuAttr(se xml.StartElement, name string) EMU {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			v, err := strconv.ParseInt(a.Value, 10, 64)
			if err != nil {
				return 0
			}
			return EMU(v)
		}
	}
	return 0
}

// findEntry returns the archive entry with the given name, or nil.
func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
