package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

func TestFill(t *testing.T) {
	doc := parseBody(t, letterBody)
	doc, _, err := RegisterRange(doc, xml.Range{Start: 2, End: 18}, "nama")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}
	doc, _, err = RegisterRange(doc, xml.Range{Start: 28, End: 43}, "tanggal")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}
	before := string(doc.Bytes())

	out, err := Fill(context.Background(), doc, map[string]string{
		"nama":    "Siti Aminah",
		"tanggal": "01 Maret 2024",
	})
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}

	want := "NaSiti Aminah\nTanggal: 01 Maret 2024"
	if got := out.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}

	// The value lands in the first marked run and takes its formatting.
	runs := viewRuns(out)
	wantFirst := []runView{
		{Text: "Na", Style: "<w:rPr><w:b/></w:rPr>"},
		{Text: "Siti Aminah", Style: "<w:rPr><w:b/></w:rPr>", Marker: "nama"},
	}
	if diff := cmp.Diff(wantFirst, runs[0]); diff != "" {
		t.Errorf("paragraph 0 runs (-want +got):\n%s", diff)
	}

	if string(doc.Bytes()) != before {
		t.Error("Fill modified its input")
	}

	reparsed, err := xml.ParseDocument(out.Bytes())
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if reparsed.Text() != want {
		t.Errorf("reparsed Text() = %q", reparsed.Text())
	}
}

func TestFillMultiline(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Alamat: X</w:t></w:r></w:p>`)
	doc, _, err := RegisterRange(doc, xml.Range{Start: 8, End: 9}, "alamat")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}

	out, err := Fill(context.Background(), doc, map[string]string{"alamat": "Jl. Merdeka 1\nJakarta"})
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	got := string(out.Bytes())
	want := `<w:t xml:space="preserve">Jl. Merdeka 1</w:t><w:br/><w:t xml:space="preserve">Jakarta</w:t>`
	if !strings.Contains(got, want) {
		t.Errorf("line break not emitted:\n%s", got)
	}
}

func TestFillAfterTab(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:tab/><w:t>Nama: NAMA PEGAWAI</w:t></w:r></w:p>`)
	rng, ok := doc.FindText("NAMA PEGAWAI", 0)
	if !ok || rng != (xml.Range{Start: 7, End: 19}) {
		t.Fatalf("FindText() = %v, %v", rng, ok)
	}
	doc, _, err := RegisterRange(doc, rng, "nama")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}

	out, err := Fill(context.Background(), doc, map[string]string{"nama": "Budi Santoso"})
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	want := `<w:r><w:tab/><w:t xml:space="preserve">Nama: </w:t></w:r>` +
		`<w:r><w:t xml:space="preserve">Budi Santoso</w:t></w:r>`
	if got := string(out.Bytes()); !strings.Contains(got, want) {
		t.Errorf("tab run not rewritten as expected:\n%s", got)
	}

	reparsed, err := xml.ParseDocument(out.Bytes())
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if got := reparsed.Text(); got != "\tNama: Budi Santoso" {
		t.Errorf("reparsed Text() = %q", got)
	}
}

func TestFillEmptyValueDropsRuns(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Catatan: -</w:t></w:r></w:p>`)
	doc, _, err := RegisterRange(doc, xml.Range{Start: 9, End: 10}, "catatan")
	if err != nil {
		t.Fatalf("RegisterRange() error = %v", err)
	}

	out, err := Fill(context.Background(), doc, map[string]string{"catatan": ""})
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if got := len(out.Paragraphs[0].Runs()); got != 1 {
		t.Errorf("got %d runs, want 1", got)
	}
	if got := out.Text(); got != "Catatan: " {
		t.Errorf("Text() = %q", got)
	}
}

func TestFillCancelled(t *testing.T) {
	doc := parseBody(t, letterBody)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Fill(ctx, doc, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Fill() error = %v, want context.Canceled", err)
	}
}
