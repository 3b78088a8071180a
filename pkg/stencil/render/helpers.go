package render

import (
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// MergeSplitRuns heals run seams left behind by RegisterRange: an unmarked
// run that was split off its left neighbour is joined back when that
// neighbour is an unmarked text run of the same shape. Runs that were
// separate in the source document are never joined.
func MergeSplitRuns(para *xml.Paragraph) {
	if len(para.Items) <= 1 {
		return
	}

	items := make([]xml.Item, 0, len(para.Items))
	for _, it := range para.Items {
		run := it.Run
		if run == nil || run.Marker != "" || !run.IsSplit() {
			items = append(items, it)
			continue
		}
		n := len(items)
		if n == 0 {
			run.ClearSplit()
			items = append(items, it)
			continue
		}
		prev := items[n-1].Run
		if prev == nil || prev.Marker != "" || !prev.SameShape(run) {
			items = append(items, it)
			continue
		}
		prev.Join(run)
	}
	para.Items = items
}

// DropEmptyRuns removes rewritten runs whose text ended up empty. Runs that
// were empty in the source document are left alone.
func DropEmptyRuns(para *xml.Paragraph) {
	items := para.Items[:0:0]
	for _, it := range para.Items {
		if it.Run != nil && it.Run.Modified() && it.Run.Text == "" {
			continue
		}
		items = append(items, it)
	}
	para.Items = items
}
