package xml

import (
	"fmt"
	"sort"
)

// Range is a half-open span [Start, End) of rune offsets in the document
// text.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of runes covered.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two ranges share at least one offset.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Position locates an offset inside a paragraph: the item index of the text
// run and the rune offset inside that run.
type Position struct {
	Paragraph int
	Item      int
	Offset    int
}

// FlatIndex maps global rune offsets onto paragraphs and runs. Paragraphs
// are joined by a single separator offset that belongs to no paragraph.
type FlatIndex struct {
	paraStarts []int
	paraLens   []int
	runs       [][]runSpan
	total      int
}

type runSpan struct {
	item  int
	start int
	end   int
}

func newFlatIndex(doc *Document) *FlatIndex {
	idx := &FlatIndex{
		paraStarts: make([]int, len(doc.Paragraphs)),
		paraLens:   make([]int, len(doc.Paragraphs)),
		runs:       make([][]runSpan, len(doc.Paragraphs)),
	}
	offset := 0
	for pi, p := range doc.Paragraphs {
		if pi > 0 {
			offset++
		}
		idx.paraStarts[pi] = offset
		local := 0
		for ii, it := range p.Items {
			if it.Run == nil {
				continue
			}
			n := it.Run.Len()
			if n > 0 {
				idx.runs[pi] = append(idx.runs[pi], runSpan{item: ii, start: local, end: local + n})
			}
			local += n
		}
		idx.paraLens[pi] = local
		offset += local
	}
	idx.total = offset
	return idx
}

// Len returns the length of the flat text.
func (idx *FlatIndex) Len() int {
	return idx.total
}

// ParagraphStart returns the global offset of paragraph i.
func (idx *FlatIndex) ParagraphStart(i int) int {
	return idx.paraStarts[i]
}

// paragraphAt returns the paragraph whose text contains offset.
func (idx *FlatIndex) paragraphAt(offset int) (int, bool) {
	if len(idx.paraStarts) == 0 || offset < 0 || offset >= idx.total {
		return 0, false
	}
	p := sort.Search(len(idx.paraStarts), func(i int) bool {
		return idx.paraStarts[i] > offset
	}) - 1
	if offset-idx.paraStarts[p] >= idx.paraLens[p] {
		// separator
		return p, false
	}
	return p, true
}

// Locate resolves a start offset: the position of the rune at offset.
func (idx *FlatIndex) Locate(offset int) (Position, bool) {
	p, ok := idx.paragraphAt(offset)
	if !ok {
		return Position{}, false
	}
	local := offset - idx.paraStarts[p]
	runs := idx.runs[p]
	r := sort.Search(len(runs), func(i int) bool { return runs[i].end > local })
	if r == len(runs) {
		return Position{}, false
	}
	return Position{Paragraph: p, Item: runs[r].item, Offset: local - runs[r].start}, true
}

// LocateEnd resolves an end offset: the position just past the rune at
// offset-1, reported inside the run that contains that rune.
func (idx *FlatIndex) LocateEnd(offset int) (Position, bool) {
	if offset <= 0 {
		return Position{}, false
	}
	p, ok := idx.Locate(offset - 1)
	if !ok {
		return Position{}, false
	}
	p.Offset++
	return p, true
}

// Resolve validates a range and returns the positions of its first and
// last rune. Ranges must be non-empty, in bounds and confined to one
// paragraph.
func (idx *FlatIndex) Resolve(rng Range) (Position, Position, error) {
	if rng.Start < 0 || rng.End > idx.total {
		return Position{}, Position{}, fmt.Errorf("range %s out of bounds [0,%d)", rng, idx.total)
	}
	if rng.End <= rng.Start {
		return Position{}, Position{}, fmt.Errorf("range %s is empty", rng)
	}
	start, ok := idx.Locate(rng.Start)
	if !ok {
		return Position{}, Position{}, fmt.Errorf("range %s starts on a paragraph boundary", rng)
	}
	end, ok := idx.LocateEnd(rng.End)
	if !ok {
		return Position{}, Position{}, fmt.Errorf("range %s ends on a paragraph boundary", rng)
	}
	if start.Paragraph != end.Paragraph {
		return Position{}, Position{}, fmt.Errorf("range %s crosses from paragraph %d to %d", rng, start.Paragraph, end.Paragraph)
	}
	return start, end, nil
}

// RangeOf returns the global range covered by items [from, to] of
// paragraph p.
func (idx *FlatIndex) RangeOf(p, from, to int) Range {
	rng := Range{Start: -1}
	for _, rs := range idx.runs[p] {
		if rs.item < from || rs.item > to {
			continue
		}
		if rng.Start < 0 {
			rng.Start = idx.paraStarts[p] + rs.start
		}
		rng.End = idx.paraStarts[p] + rs.end
	}
	return rng
}
