package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Paragraph is a w:p element split into its children. The start and end
// tags, and every child that is not a text run, are kept as raw bytes.
type Paragraph struct {
	Items []Item

	open  []byte
	close []byte
}

// parseParagraph consumes a w:p element. Runs inside hyperlinks, tracked
// insertions and smart tags are parsed like direct runs; the wrapper tags
// themselves become blocking raw items, so a range lies either inside a
// wrapper or outside it.
func parseParagraph(d *xml.Decoder, b []byte, start int64) (*Paragraph, int64, error) {
	p := &Paragraph{open: b[start:d.InputOffset()]}
	depth := 0

	for {
		pos := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: paragraph at offset %d: %v", ErrMalformed, start, err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			end := d.InputOffset()
			if depth > 0 {
				depth--
				p.appendRaw(b[pos:end], true)
				continue
			}
			p.close = b[pos:end]
			return p, end, nil
		case xml.StartElement:
			if isWrapper(t.Name) {
				depth++
				p.appendRaw(b[pos:d.InputOffset()], true)
				continue
			}
			if isWordElement(t.Name, "r") {
				run, end, err := parseRun(d, b, pos)
				if err != nil {
					return nil, 0, err
				}
				if run != nil {
					p.Items = append(p.Items, Item{Run: run})
				} else {
					p.appendRaw(b[pos:end], true)
				}
				continue
			}
			if err := d.Skip(); err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			p.appendRaw(b[pos:d.InputOffset()], !isPassive(t.Name))
		default:
			p.appendRaw(b[pos:d.InputOffset()], false)
		}
	}
}

// appendRaw adds raw bytes, coalescing with a preceding raw item of the
// same kind.
func (p *Paragraph) appendRaw(raw []byte, blocking bool) {
	if len(raw) == 0 {
		return
	}
	if n := len(p.Items); n > 0 {
		last := &p.Items[n-1]
		if last.Run == nil && last.Blocking == blocking && !blocking {
			last.Raw = append(last.Raw[:len(last.Raw):len(last.Raw)], raw...)
			return
		}
	}
	p.Items = append(p.Items, Item{Raw: raw, Blocking: blocking})
}

// Text returns the concatenated text of the paragraph's text runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, it := range p.Items {
		if it.Run != nil {
			sb.WriteString(it.Run.Text)
		}
	}
	return sb.String()
}

// Len returns the paragraph's text length in runes.
func (p *Paragraph) Len() int {
	n := 0
	for _, it := range p.Items {
		if it.Run != nil {
			n += it.Run.Len()
		}
	}
	return n
}

// Runs returns the paragraph's text runs in order.
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, it := range p.Items {
		if it.Run != nil {
			runs = append(runs, it.Run)
		}
	}
	return runs
}

// Clone returns a copy whose runs can be modified without affecting p.
// Raw bytes are shared; they are never written to.
func (p *Paragraph) Clone() *Paragraph {
	c := &Paragraph{
		Items: make([]Item, len(p.Items)),
		open:  p.open,
		close: p.close,
	}
	for i, it := range p.Items {
		c.Items[i] = it
		if it.Run != nil {
			c.Items[i].Run = it.Run.clone()
		}
	}
	return c
}

// SplitRun splits the text run at item index i at rune offset at. Offsets
// at either end of the run are a no-op. It returns the index of the item
// that starts at the split point.
func (p *Paragraph) SplitRun(i, at int) int {
	run := p.Items[i].Run
	if at <= 0 {
		return i
	}
	if at >= run.Len() {
		return i + 1
	}
	left, right := run.Split(at)
	items := make([]Item, 0, len(p.Items)+1)
	items = append(items, p.Items[:i]...)
	items = append(items, Item{Run: left}, Item{Run: right})
	items = append(items, p.Items[i+1:]...)
	p.Items = items
	return i + 1
}

// RemoveItem deletes the item at index i.
func (p *Paragraph) RemoveItem(i int) {
	p.Items = append(p.Items[:i:i], p.Items[i+1:]...)
}

func (p *Paragraph) writeTo(buf *bytes.Buffer) {
	buf.Write(p.open)
	for _, it := range p.Items {
		if it.Run != nil {
			it.Run.writeTo(buf)
			continue
		}
		buf.Write(it.Raw)
	}
	buf.Write(p.close)
}
