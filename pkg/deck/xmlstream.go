package deck

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	xerrors "github.com/deckproof/deckproof/pkg/errors"
)

// The transforms below stream-edit OOXML parts token by token. Everything the
// editor does not touch is re-serialized verbatim, so unknown elements and
// attributes survive the round trip. Namespace prefixes are preserved because
// the decoder runs in raw-token mode and never resolves them.

// topShapeNames are the spTree child elements that carry their own transform.
// Only offsets of these top-level shapes are shifted; shapes nested inside a
// group keep their group-relative coordinates.
var topShapeNames = map[string]bool{
	"sp":           true,
	"grpSp":        true,
	"pic":          true,
	"graphicFrame": true,
	"cxnSp":        true,
	"contentPart":  true,
}

// transformPresentation rewrites the sldSz element, growing both dimensions
// by 2*pad. It returns the original page size.
func transformPresentation(r io.Reader, w io.Writer, pad EMU) (PageSize, error) {
	bw := bufio.NewWriter(w)
	dec := xml.NewDecoder(r)

	var orig PageSize
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PageSize{}, xerrors.Wrap(xerrors.ErrCodeInternal, err, "parse %s", presentationXML)
		}

		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sldSz" {
			orig = PageSize{CX: emuAttr(se, "cx"), CY: emuAttr(se, "cy")}
			if orig.CX <= 0 || orig.CY <= 0 {
				return PageSize{}, xerrors.New(xerrors.ErrCodeMetadataMissing,
					"invalid slide size %dx%d EMU", orig.CX, orig.CY)
			}
			setEMUAttr(&se, "cx", orig.CX+2*pad)
			setEMUAttr(&se, "cy", orig.CY+2*pad)
			tok = se
		}
		if err := writeRawToken(bw, tok); err != nil {
			return PageSize{}, err
		}
	}
	if orig.CX == 0 {
		return PageSize{}, xerrors.New(xerrors.ErrCodeMetadataMissing, "slide size not found in %s", presentationXML)
	}
	return orig, bw.Flush()
}

// transformSlide shifts every top-level shape offset by +pad on both axes and
// injects the four padding bands at the back of the shape stack, immediately
// after the mandatory nvGrpSpPr/grpSpPr nodes. size is the enlarged page size.
func transformSlide(r io.Reader, w io.Writer, pad EMU, size PageSize) error {
	bw := bufio.NewWriter(w)
	dec := xml.NewDecoder(r)

	depth := 0
	spTreeDepth := -1 // depth of the open spTree element, -1 when outside
	shapeDepth := 0   // nesting level of shape elements within spTree
	injected := false

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Wrap(xerrors.ErrCodeInternal, err, "parse slide XML")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if local == "spTree" {
				spTreeDepth = depth
			}
			if spTreeDepth >= 0 {
				if topShapeNames[local] {
					shapeDepth++
				}
				// A shape's own offset lives at shape nesting level 1.
				if local == "off" && shapeDepth == 1 {
					shiftOffset(&t, pad)
					tok = t
				}
			}
			depth++
		case xml.EndElement:
			depth--
			local := t.Name.Local
			if spTreeDepth >= 0 {
				if topShapeNames[local] {
					shapeDepth--
				}
				if local == "spTree" && depth == spTreeDepth {
					if !injected {
						// Deck without the mandatory group properties; put the
						// bands at the end rather than dropping them.
						if err := writePadShapes(bw, pad, size); err != nil {
							return err
						}
						injected = true
					}
					spTreeDepth = -1
				}
			}
			if err := writeRawToken(bw, tok); err != nil {
				return err
			}
			// Inject right after grpSpPr closes so the bands sit behind all
			// content shapes (spTree index 2).
			if !injected && spTreeDepth >= 0 && local == "grpSpPr" && depth == spTreeDepth+1 {
				if err := writePadShapes(bw, pad, size); err != nil {
					return err
				}
				injected = true
			}
			continue
		}

		if err := writeRawToken(bw, tok); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// shiftOffset adds pad to the x and y attributes of an a:off element.
func shiftOffset(se *xml.StartElement, pad EMU) {
	for i, a := range se.Attr {
		if a.Name.Local != "x" && a.Name.Local != "y" {
			continue
		}
		v, err := strconv.ParseInt(a.Value, 10, 64)
		if err != nil {
			continue
		}
		se.Attr[i].Value = strconv.FormatInt(v+int64(pad), 10)
	}
}

// setEMUAttr replaces (or appends) the named attribute with an EMU value.
func setEMUAttr(se *xml.StartElement, name string, v EMU) {
	for i, a := range se.Attr {
		if a.Name.Local == name {
			se.Attr[i].Value = strconv.FormatInt(int64(v), 10)
			return
		}
	}
	se.Attr = append(se.Attr, xml.Attr{
		Name:  xml.Name{Local: name},
		Value: strconv.FormatInt(int64(v), 10),
	})
}

// writePadShapes emits the four padding bands. Vertical bands span the full
// new height and horizontal bands the full new width, so every padding pixel
// (corners included) is covered by at least one band.
func writePadShapes(w *bufio.Writer, pad EMU, size PageSize) error {
	bands := []struct {
		id     int
		name   string
		x, y   EMU
		cx, cy EMU
	}{
		{9001, "PadLeft", 0, 0, pad, size.CY},
		{9002, "PadRight", size.CX - pad, 0, pad, size.CY},
		{9003, "PadTop", 0, 0, size.CX, pad},
		{9004, "PadBottom", 0, size.CY - pad, size.CX, pad},
	}
	for _, b := range bands {
		if _, err := w.WriteString(padShapeXML(b.id, b.name, b.x, b.y, b.cx, b.cy)); err != nil {
			return err
		}
	}
	return nil
}

// padShapeXML builds a solid-fill, borderless rectangle shape. Slide parts
// written by PowerPoint and LibreOffice use the conventional p:/a: prefixes,
// which the injected markup relies on.
func padShapeXML(id int, name string, x, y, cx, cy EMU) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`+
		`<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`+
		`<a:ln><a:noFill/></a:ln></p:spPr>`+
		`<p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`,
		id, name, x, y, cx, cy, padHex)
}

// writeRawToken re-serializes a token produced by RawToken, keeping prefixed
// names intact.
func writeRawToken(w *bufio.Writer, tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		w.WriteByte('<')
		w.WriteString(rawName(t.Name))
		for _, a := range t.Attr {
			w.WriteByte(' ')
			w.WriteString(rawName(a.Name))
			w.WriteString(`="`)
			w.WriteString(attrEscaper.Replace(a.Value))
			w.WriteByte('"')
		}
		w.WriteByte('>')
	case xml.EndElement:
		w.WriteString("</")
		w.WriteString(rawName(t.Name))
		w.WriteByte('>')
	case xml.CharData:
		w.WriteString(textEscaper.Replace(string(t)))
	case xml.Comment:
		w.WriteString("<!--")
		w.Write(t)
		w.WriteString("-->")
	case xml.ProcInst:
		w.WriteString("<?")
		w.WriteString(t.Target)
		w.WriteByte(' ')
		w.Write(t.Inst)
		w.WriteString("?>")
	case xml.Directive:
		w.WriteString("<!")
		w.Write(t)
		w.WriteByte('>')
	}
	return nil
}

// Minimal escaping keeps untouched markup byte-comparable to the input;
// xml.EscapeText would also rewrite whitespace as character references.
var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
)

// rawName renders a raw-token name back to its source form.
func rawName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}
