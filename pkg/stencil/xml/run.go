package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Run is a text run: an optional w:rPr followed by w:t content.
//
// Style holds the raw w:rPr element and is empty for runs without direct
// formatting. Two runs with equal Style render identically. Marker is set
// on runs that belong to a registered range.
type Run struct {
	Text   string
	Style  string
	Marker string

	// open is the original start tag, reused when the run is rewritten.
	open []byte
	// raw is the original element; nil once the run has been modified.
	raw []byte
	// split is set on the right-hand piece of a split, so the seam can be
	// healed once both pieces are unmarked again.
	split bool
}

// Len returns the length of the run's text in runes.
func (r *Run) Len() int {
	return utf8.RuneCountInString(r.Text)
}

// Modified reports whether the run will be re-emitted instead of copied.
func (r *Run) Modified() bool {
	return r.raw == nil
}

// IsSplit reports whether the run is the right-hand piece of a split.
func (r *Run) IsSplit() bool {
	return r.split
}

// SameShape reports whether two runs share formatting and start tag and can
// therefore be joined without changing how the paragraph renders.
func (r *Run) SameShape(other *Run) bool {
	return r.Style == other.Style && bytes.Equal(r.open, other.open)
}

// SetText replaces the run's text and marks it for rewriting.
func (r *Run) SetText(text string) {
	r.Text = text
	r.raw = nil
}

// Split cuts the run at rune offset at and returns both pieces. Style and
// start tag are carried over unchanged.
func (r *Run) Split(at int) (*Run, *Run) {
	runes := []rune(r.Text)
	left := &Run{Text: string(runes[:at]), Style: r.Style, Marker: r.Marker, open: r.open, split: r.split}
	right := &Run{Text: string(runes[at:]), Style: r.Style, Marker: r.Marker, open: r.open, split: true}
	return left, right
}

// Join appends next to r. Callers check SameShape first.
func (r *Run) Join(next *Run) {
	r.Text += next.Text
	r.raw = nil
}

// ClearSplit forgets that the run was produced by a split.
func (r *Run) ClearSplit() {
	r.split = false
}

func (r *Run) clone() *Run {
	c := *r
	return &c
}

// parseRun consumes the children of a w:r element whose start tag spans
// b[start:d.InputOffset()]. Tabs read as "\t" and line breaks as "\n". It
// returns nil when the run holds anything else, such as a drawing, a field
// character or a page break, along with the end offset of the element.
func parseRun(d *xml.Decoder, b []byte, start int64) (*Run, int64, error) {
	run := &Run{open: b[start:d.InputOffset()]}
	textOnly := !bytes.HasSuffix(run.open, []byte("/>"))
	var text strings.Builder

	for {
		pos := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: run at offset %d: %v", ErrMalformed, start, err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			end := d.InputOffset()
			if !textOnly {
				return nil, end, nil
			}
			run.raw = b[start:end]
			run.Text = text.String()
			return run, end, nil
		case xml.StartElement:
			switch {
			case isWordElement(t.Name, "rPr"):
				if err := d.Skip(); err != nil {
					return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				run.Style = string(b[pos:d.InputOffset()])
			case isWordElement(t.Name, "t"):
				ok, err := readText(d, &text)
				if err != nil {
					return nil, 0, err
				}
				if !ok {
					textOnly = false
				}
			case isWordElement(t.Name, "tab"):
				text.WriteByte('\t')
				if err := d.Skip(); err != nil {
					return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
			case isWordElement(t.Name, "cr"), isLineBreak(t):
				text.WriteByte('\n')
				if err := d.Skip(); err != nil {
					return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
			case isWordElement(t.Name, "lastRenderedPageBreak"):
				if err := d.Skip(); err != nil {
					return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
			default:
				if err := d.Skip(); err != nil {
					return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				textOnly = false
			}
		}
	}
}

// isLineBreak reports whether t is a w:br that only wraps the line. Page
// and column breaks, and breaks that clear floating objects, stay opaque.
func isLineBreak(t xml.StartElement) bool {
	if !isWordElement(t.Name, "br") {
		return false
	}
	for _, a := range t.Attr {
		if a.Name.Local == "type" && a.Value == "textWrapping" {
			continue
		}
		return false
	}
	return true
}

// readText collects the character data of a w:t element. It reports false
// if the element has child elements.
func readText(d *xml.Decoder, sb *strings.Builder) (bool, error) {
	plain := true
	for {
		tok, err := d.Token()
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return false, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			plain = false
		case xml.EndElement:
			return plain, nil
		}
	}
}

// writeTo emits the run. Untouched runs are copied verbatim; modified runs
// are rebuilt from the original start tag and style, and dropped entirely
// when their text is empty.
func (r *Run) writeTo(buf *bytes.Buffer) {
	if r.raw != nil {
		buf.Write(r.raw)
		return
	}
	if r.Text == "" {
		return
	}
	prefix := prefixOf(r.open)
	buf.Write(r.open)
	buf.WriteString(r.Style)

	lines := strings.Split(r.Text, "\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("<" + qualified(prefix, "br") + "/>")
		}
		for j, cell := range strings.Split(line, "\t") {
			if j > 0 {
				buf.WriteString("<" + qualified(prefix, "tab") + "/>")
			}
			if cell == "" {
				continue
			}
			buf.WriteString("<" + qualified(prefix, "t") + ` xml:space="preserve">`)
			xml.EscapeText(buf, []byte(cell))
			buf.WriteString("</" + qualified(prefix, "t") + ">")
		}
	}
	buf.WriteString("</" + qualified(prefix, "r") + ">")
}
