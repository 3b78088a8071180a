package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Document is the parsed main document part.
//
// Every w:p that is not nested inside another w:p is exposed as a
// Paragraph, whether it sits directly in the body or inside a table cell.
// Bytes outside those paragraphs are kept verbatim, so serializing an
// unmodified document reproduces the input exactly.
//
// A Document is never modified in place by this package; WithParagraph
// returns a new Document sharing everything but the replaced paragraph.
type Document struct {
	Paragraphs []*Paragraph

	raw   []byte
	spans []span

	indexOnce sync.Once
	index     *FlatIndex
}

type span struct {
	start, end int64
}

// ParseDocument parses the bytes of a word/document.xml part.
func ParseDocument(b []byte) (*Document, error) {
	d := xml.NewDecoder(bytes.NewReader(b))
	doc := &Document{raw: b}
	rootSeen := false

	for {
		pos := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			if !isWordElement(se.Name, "document") {
				return nil, fmt.Errorf("%w: found %s", ErrNotDocument, se.Name.Local)
			}
			continue
		}
		if !isWordElement(se.Name, "p") {
			continue
		}
		p, end, err := parseParagraph(d, b, pos)
		if err != nil {
			return nil, err
		}
		doc.Paragraphs = append(doc.Paragraphs, p)
		doc.spans = append(doc.spans, span{start: pos, end: end})
	}

	if !rootSeen {
		return nil, ErrNotDocument
	}
	return doc, nil
}

// Bytes serializes the document.
func (doc *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(doc.raw))
	var last int64
	for i, p := range doc.Paragraphs {
		buf.Write(doc.raw[last:doc.spans[i].start])
		p.writeTo(&buf)
		last = doc.spans[i].end
	}
	buf.Write(doc.raw[last:])
	return buf.Bytes()
}

// WithParagraph returns a copy of the document with paragraph i replaced.
func (doc *Document) WithParagraph(i int, p *Paragraph) *Document {
	paras := make([]*Paragraph, len(doc.Paragraphs))
	copy(paras, doc.Paragraphs)
	paras[i] = p
	return &Document{Paragraphs: paras, raw: doc.raw, spans: doc.spans}
}

// Index returns the flat offset index of the document, built on first use.
func (doc *Document) Index() *FlatIndex {
	doc.indexOnce.Do(func() {
		doc.index = newFlatIndex(doc)
	})
	return doc.index
}

// Text returns the plain text of the document with paragraphs separated by
// a single newline. Tabs and line breaks inside a paragraph read as "\t"
// and "\n". Offsets into this string (in runes) are the offsets
// ranges are expressed in.
func (doc *Document) Text() string {
	parts := make([]string, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// FindText returns the range of the n-th (zero-based) occurrence of s in
// the document text.
func (doc *Document) FindText(s string, n int) (Range, bool) {
	if s == "" || n < 0 {
		return Range{}, false
	}
	text := []rune(doc.Text())
	needle := []rune(s)
	seen := 0
	for i := 0; i+len(needle) <= len(text); i++ {
		if string(text[i:i+len(needle)]) != s {
			continue
		}
		if seen == n {
			return Range{Start: i, End: i + len(needle)}, true
		}
		seen++
	}
	return Range{}, false
}

// Markers returns the distinct markers present in the document, in
// document order.
func (doc *Document) Markers() []string {
	var markers []string
	seen := make(map[string]bool)
	for _, p := range doc.Paragraphs {
		for _, it := range p.Items {
			if it.Run == nil || it.Run.Marker == "" || seen[it.Run.Marker] {
				continue
			}
			seen[it.Run.Marker] = true
			markers = append(markers, it.Run.Marker)
		}
	}
	return markers
}

// MarkerRange returns the extent of the runs carrying marker. The second
// result is false when the marker is absent; the third is false when the
// marked runs are not one contiguous stretch of a single paragraph.
func (doc *Document) MarkerRange(marker string) (Range, bool, bool) {
	idx := doc.Index()
	found := false
	contiguous := true
	var rng Range
	para := -1

	for pi, p := range doc.Paragraphs {
		offset := idx.paraStarts[pi]
		inside := false
		closed := false
		for _, it := range p.Items {
			if it.Run == nil {
				if inside && it.Blocking {
					closed = true
				}
				continue
			}
			n := it.Run.Len()
			switch {
			case it.Run.Marker == marker:
				if !found {
					found = true
					para = pi
					rng.Start = offset
				} else if pi != para || closed {
					contiguous = false
				}
				inside = true
				rng.End = offset + n
			case inside && n > 0:
				inside = false
				closed = true
			}
			offset += n
		}
	}
	return rng, found, contiguous
}
