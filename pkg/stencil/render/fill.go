package render

import (
	"context"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// Fill substitutes values into marked runs. The first run of each marker
// receives the whole value and keeps its formatting; the remaining runs of
// that marker are emptied and dropped. Markers without a value are left as
// they are. doc is not modified.
func Fill(ctx context.Context, doc *xml.Document, values map[string]string) (*xml.Document, error) {
	out := doc
	for pi, para := range doc.Paragraphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !hasMarkers(para, values) {
			continue
		}
		p := para.Clone()
		seen := make(map[string]bool)
		for _, it := range p.Items {
			run := it.Run
			if run == nil || run.Marker == "" {
				continue
			}
			value, ok := values[run.Marker]
			if !ok {
				continue
			}
			if seen[run.Marker] {
				run.SetText("")
				continue
			}
			seen[run.Marker] = true
			run.SetText(value)
		}
		DropEmptyRuns(p)
		out = out.WithParagraph(pi, p)
	}
	return out, nil
}

func hasMarkers(p *xml.Paragraph, values map[string]string) bool {
	for _, it := range p.Items {
		if it.Run == nil || it.Run.Marker == "" {
			continue
		}
		if _, ok := values[it.Run.Marker]; ok {
			return true
		}
	}
	return false
}
