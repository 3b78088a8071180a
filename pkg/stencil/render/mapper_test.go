package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

const letterBody = `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Nama: </w:t></w:r>` +
	`<w:r><w:t>Budi Santoso</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Tanggal: 01 Januari 2024</w:t></w:r></w:p>`

func parseBody(t *testing.T, body string) *xml.Document {
	t.Helper()
	doc, err := xml.ParseDocument([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc
}

type runView struct {
	Text   string
	Style  string
	Marker string
}

func viewRuns(doc *xml.Document) [][]runView {
	out := make([][]runView, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		for _, r := range p.Runs() {
			out[i] = append(out[i], runView{Text: r.Text, Style: r.Style, Marker: r.Marker})
		}
	}
	return out
}

func TestRegisterRangeSplitsRuns(t *testing.T) {
	bold := "<w:rPr><w:b/></w:rPr>"

	tests := []struct {
		name string
		rng  xml.Range
		want [][]runView
	}{
		{
			name: "exact run",
			rng:  xml.Range{Start: 6, End: 18},
			want: [][]runView{
				{{Text: "Nama: ", Style: bold}, {Text: "Budi Santoso", Marker: "m"}},
				{{Text: "Tanggal: 01 Januari 2024"}},
			},
		},
		{
			name: "inside one run",
			rng:  xml.Range{Start: 11, End: 18},
			want: [][]runView{
				{{Text: "Nama: ", Style: bold}, {Text: "Budi "}, {Text: "Santoso", Marker: "m"}},
				{{Text: "Tanggal: 01 Januari 2024"}},
			},
		},
		{
			name: "across two runs",
			rng:  xml.Range{Start: 2, End: 10},
			want: [][]runView{
				{
					{Text: "Na", Style: bold}, {Text: "ma: ", Style: bold, Marker: "m"},
					{Text: "Budi", Marker: "m"}, {Text: " Santoso"},
				},
				{{Text: "Tanggal: 01 Januari 2024"}},
			},
		},
		{
			name: "middle of second paragraph",
			rng:  xml.Range{Start: 28, End: 30},
			want: [][]runView{
				{{Text: "Nama: ", Style: bold}, {Text: "Budi Santoso"}},
				{{Text: "Tanggal: "}, {Text: "01", Marker: "m"}, {Text: " Januari 2024"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseBody(t, letterBody)
			before := string(doc.Bytes())

			got, marker, err := RegisterRange(doc, tt.rng, "m")
			if err != nil {
				t.Fatalf("RegisterRange() error = %v", err)
			}
			if marker != "m" {
				t.Errorf("marker = %q, want m", marker)
			}
			if diff := cmp.Diff(tt.want, viewRuns(got)); diff != "" {
				t.Errorf("runs mismatch (-want +got):\n%s", diff)
			}
			if got.Text() != doc.Text() {
				t.Errorf("text changed: %q", got.Text())
			}
			if string(doc.Bytes()) != before {
				t.Error("input document was modified")
			}

			rng, found, contiguous := got.MarkerRange("m")
			if !found || !contiguous || rng != tt.rng {
				t.Errorf("MarkerRange() = %v, %v, %v", rng, found, contiguous)
			}

			reparsed, err := xml.ParseDocument(got.Bytes())
			if err != nil {
				t.Fatalf("reparse error = %v", err)
			}
			if reparsed.Text() != doc.Text() {
				t.Errorf("reparsed text = %q", reparsed.Text())
			}
		})
	}
}

func TestRegisterRangeIdempotent(t *testing.T) {
	doc := parseBody(t, letterBody)
	rng := xml.Range{Start: 11, End: 18}

	once, _, err := RegisterRange(doc, rng, "m")
	if err != nil {
		t.Fatalf("first RegisterRange() error = %v", err)
	}
	twice, marker, err := RegisterRange(once, rng, "m")
	if err != nil {
		t.Fatalf("second RegisterRange() error = %v", err)
	}
	if marker != "m" {
		t.Errorf("marker = %q", marker)
	}
	if diff := cmp.Diff(viewRuns(once), viewRuns(twice)); diff != "" {
		t.Errorf("second registration changed runs (-once +twice):\n%s", diff)
	}
	if string(once.Bytes()) != string(twice.Bytes()) {
		t.Error("second registration changed bytes")
	}
}

func TestRegisterRangeRejects(t *testing.T) {
	base := parseBody(t, letterBody)
	marked, _, err := RegisterRange(base, xml.Range{Start: 6, End: 10}, "first")
	if err != nil {
		t.Fatalf("setup RegisterRange() error = %v", err)
	}

	tests := []struct {
		name   string
		doc    *xml.Document
		rng    xml.Range
		marker string
		want   error
	}{
		{name: "cross paragraph", doc: base, rng: xml.Range{Start: 15, End: 22}, marker: "m", want: ErrInvalidRange},
		{name: "empty", doc: base, rng: xml.Range{Start: 3, End: 3}, marker: "m", want: ErrInvalidRange},
		{name: "out of bounds", doc: base, rng: xml.Range{Start: 40, End: 50}, marker: "m", want: ErrInvalidRange},
		{name: "no marker", doc: base, rng: xml.Range{Start: 0, End: 2}, want: ErrInvalidRange},
		{name: "overlap inside", doc: marked, rng: xml.Range{Start: 7, End: 9}, marker: "second", want: ErrOverlappingRange},
		{name: "overlap tail", doc: marked, rng: xml.Range{Start: 8, End: 14}, marker: "second", want: ErrOverlappingRange},
		{name: "same range other marker", doc: marked, rng: xml.Range{Start: 6, End: 10}, marker: "second", want: ErrOverlappingRange},
		{name: "marker reused", doc: marked, rng: xml.Range{Start: 12, End: 18}, marker: "first", want: ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := string(tt.doc.Bytes())
			got, _, err := RegisterRange(tt.doc, tt.rng, tt.marker)
			if !errors.Is(err, tt.want) {
				t.Fatalf("RegisterRange() error = %v, want %v", err, tt.want)
			}
			if got != nil {
				t.Error("expected nil document on failure")
			}
			if string(tt.doc.Bytes()) != before {
				t.Error("document was modified by a failed registration")
			}
		})
	}
}

func TestRegisterRangeAcrossNonText(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>A</w:t></w:r><w:r><w:br w:type="page"/></w:r><w:r><w:t>B</w:t></w:r>`+
		`<w:proofErr w:type="spellStart"/><w:r><w:t>C</w:t></w:r></w:p>`)

	if _, _, err := RegisterRange(doc, xml.Range{Start: 0, End: 2}, "m"); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("range over a page break: error = %v, want ErrInvalidRange", err)
	}
	if _, _, err := RegisterRange(doc, xml.Range{Start: 1, End: 3}, "m"); err != nil {
		t.Errorf("range over a proofing mark: error = %v", err)
	}
}

func TestRegisterRangeInsideHyperlink(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t xml:space="preserve">Lihat </w:t></w:r>`+
		`<w:hyperlink w:anchor="lampiran"><w:r><w:t>Link TEXT</w:t></w:r></w:hyperlink></w:p>`)

	rng, ok := doc.FindText("TEXT", 0)
	if !ok || rng != (xml.Range{Start: 11, End: 15}) {
		t.Fatalf("FindText() = %v, %v", rng, ok)
	}
	marked, _, err := RegisterRange(doc, rng, "m")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}
	got, found, contiguous := marked.MarkerRange("m")
	if !found || !contiguous || got != rng {
		t.Errorf("MarkerRange() = %v, %v, %v", got, found, contiguous)
	}

	out, err := Fill(context.Background(), marked, map[string]string{"m": "Budi"})
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	want := `<w:hyperlink w:anchor="lampiran"><w:r><w:t xml:space="preserve">Link </w:t></w:r>` +
		`<w:r><w:t xml:space="preserve">Budi</w:t></w:r></w:hyperlink>`
	if !strings.Contains(string(out.Bytes()), want) {
		t.Errorf("filled hyperlink not found in\n%s", out.Bytes())
	}

	if _, _, err := RegisterRange(doc, xml.Range{Start: 4, End: 8}, "n"); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("range across the hyperlink edge: error = %v, want ErrInvalidRange", err)
	}
}

func TestRegisterRangeOrderIndependent(t *testing.T) {
	ranges := map[string]xml.Range{
		"a": {Start: 0, End: 4},
		"b": {Start: 6, End: 10},
		"c": {Start: 10, End: 18},
		"d": {Start: 28, End: 43},
	}
	orders := [][]string{
		{"a", "b", "c", "d"},
		{"d", "c", "b", "a"},
		{"c", "a", "d", "b"},
	}

	var want string
	for i, order := range orders {
		doc := parseBody(t, letterBody)
		for _, name := range order {
			var err error
			doc, _, err = RegisterRange(doc, ranges[name], name)
			if err != nil {
				t.Fatalf("order %v: RegisterRange(%s) error = %v", order, name, err)
			}
		}
		for name, rng := range ranges {
			got, found, contiguous := doc.MarkerRange(name)
			if !found || !contiguous || got != rng {
				t.Errorf("order %v: MarkerRange(%s) = %v, %v, %v", order, name, got, found, contiguous)
			}
		}
		out := string(doc.Bytes())
		if i == 0 {
			want = out
			continue
		}
		if out != want {
			t.Errorf("order %v produced different bytes", order)
		}
	}
}

func TestUnregisterRangeRestoresRuns(t *testing.T) {
	doc := parseBody(t, letterBody)
	original := viewRuns(doc)

	marked, _, err := RegisterRange(doc, xml.Range{Start: 8, End: 12}, "m")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}
	marked, _, err = RegisterRange(marked, xml.Range{Start: 28, End: 30}, "n")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}

	cleared := UnregisterRange(UnregisterRange(marked, "m"), "n")
	if diff := cmp.Diff(original, viewRuns(cleared)); diff != "" {
		t.Errorf("runs after unregister (-want +got):\n%s", diff)
	}
	if got := cleared.Markers(); len(got) != 0 {
		t.Errorf("Markers() = %v, want none", got)
	}
	if got := viewRuns(marked)[0][2].Marker; got != "m" {
		t.Errorf("UnregisterRange modified its input: marker = %q", got)
	}
}

func TestUnregisterRangeKeepsNeighbourMarkers(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>abcdef</w:t></w:r></w:p>`)
	doc, _, _ = RegisterRange(doc, xml.Range{Start: 0, End: 2}, "x")
	doc, _, _ = RegisterRange(doc, xml.Range{Start: 2, End: 4}, "y")

	got := viewRuns(UnregisterRange(doc, "x"))
	want := [][]runView{{{Text: "ab"}, {Text: "cd", Marker: "y"}, {Text: "ef"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}
