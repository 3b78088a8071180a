package render

import (
	"errors"
	"fmt"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

var (
	// ErrInvalidRange covers empty, inverted, out-of-bounds and
	// paragraph-crossing ranges, and ranges spanning non-text content.
	ErrInvalidRange = errors.New("invalid range")
	// ErrOverlappingRange is returned when a range touches runs that
	// already belong to another marker.
	ErrOverlappingRange = errors.New("overlapping range")
)

// RegisterRange marks the text in rng with marker, splitting runs at the
// range boundaries. The input document is left untouched; the returned
// document shares every paragraph but the one that changed.
//
// Registering a range that is already exactly covered by a single marker
// with the same marker is a no-op.
func RegisterRange(doc *xml.Document, rng xml.Range, marker string) (*xml.Document, string, error) {
	if marker == "" {
		return nil, "", fmt.Errorf("%w: marker is required", ErrInvalidRange)
	}
	idx := doc.Index()
	start, end, err := idx.Resolve(rng)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	para := doc.Paragraphs[start.Paragraph]
	existing, err := checkSpan(para, start.Item, end.Item)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", err, rng)
	}
	if existing != "" {
		covered, _, contiguous := doc.MarkerRange(existing)
		if covered == rng && contiguous && existing == marker {
			return doc, existing, nil
		}
		return nil, "", fmt.Errorf("%w: %s intersects marker %s", ErrOverlappingRange, rng, existing)
	}
	if _, found, _ := doc.MarkerRange(marker); found {
		return nil, "", fmt.Errorf("%w: marker %s is already in use", ErrInvalidRange, marker)
	}

	p := para.Clone()
	// Split the end first so the start index stays valid.
	p.SplitRun(end.Item, end.Offset)
	first := p.SplitRun(start.Item, start.Offset)
	last := end.Item
	if first != start.Item {
		last++
	}
	for i := first; i <= last; i++ {
		if run := p.Items[i].Run; run != nil && run.Len() > 0 {
			run.Marker = marker
		}
	}
	return doc.WithParagraph(start.Paragraph, p), marker, nil
}

// checkSpan inspects items [from, to] of a paragraph. It fails if a
// blocking item sits inside, and returns the marker already present on the
// span, if any.
func checkSpan(p *xml.Paragraph, from, to int) (string, error) {
	existing := ""
	for i := from; i <= to; i++ {
		it := p.Items[i]
		if it.Run == nil {
			if it.Blocking {
				return "", fmt.Errorf("%w: range spans non-text content", ErrInvalidRange)
			}
			continue
		}
		m := it.Run.Marker
		if m == "" {
			continue
		}
		if existing != "" && existing != m {
			return "", fmt.Errorf("%w: range spans markers %s and %s", ErrOverlappingRange, existing, m)
		}
		existing = m
	}
	return existing, nil
}

// UnregisterRange removes marker from every run that carries it and heals
// the seams its registration introduced. Unknown markers are a no-op.
func UnregisterRange(doc *xml.Document, marker string) *xml.Document {
	out := doc
	for pi, para := range doc.Paragraphs {
		touched := false
		for _, it := range para.Items {
			if it.Run != nil && it.Run.Marker == marker {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		p := para.Clone()
		for _, it := range p.Items {
			if it.Run != nil && it.Run.Marker == marker {
				it.Run.Marker = ""
			}
		}
		MergeSplitRuns(p)
		out = out.WithParagraph(pi, p)
	}
	return out
}
