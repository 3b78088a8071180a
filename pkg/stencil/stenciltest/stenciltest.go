// Package stenciltest builds small DOCX packages in memory for tests.
package stenciltest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	docxml "github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

const (
	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
</w:styles>`

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`

	documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
)

// Part is one file of a package.
type Part struct {
	Name    string
	Content string
}

// Package zips parts in the given order.
func Package(parts ...Part) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range parts {
		f, err := w.Create(p.Name)
		if err != nil {
			panic(err)
		}
		if _, err := io.WriteString(f, p.Content); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DOCX returns a complete package whose body holds the given paragraph
// XML.
func DOCX(body ...string) []byte {
	return Package(
		Part{"[Content_Types].xml", contentTypesXML},
		Part{"_rels/.rels", relsXML},
		Part{"word/document.xml", Document(body...)},
		Part{"word/_rels/document.xml.rels", documentRelsXML},
		Part{"word/styles.xml", stylesXML},
	)
}

// Document returns a main document part around body.
func Document(body ...string) string {
	return documentHead + strings.Join(body, "") + documentTail
}

// Paragraph wraps runs in a w:p element.
func Paragraph(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

// Run returns a plain text run.
func Run(text string) string {
	return StyledRun("", text)
}

// Bold returns a bold text run.
func Bold(text string) string {
	return StyledRun("<w:b/>", text)
}

// StyledRun returns a text run with the given w:rPr content.
func StyledRun(props, text string) string {
	var sb strings.Builder
	sb.WriteString("<w:r>")
	if props != "" {
		sb.WriteString("<w:rPr>" + props + "</w:rPr>")
	}
	sb.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(&sb, []byte(text))
	sb.WriteString("</w:t></w:r>")
	return sb.String()
}

// Letter is a two-paragraph letter with placeholders NAMA PEGAWAI and
// TANGGAL in its first paragraph; TANGGAL sits inside a bold run.
func Letter() []byte {
	return DOCX(
		Paragraph(
			Run("Dengan ini kami menerangkan bahwa NAMA PEGAWAI telah hadir pada "),
			Bold("tanggal TANGGAL"),
			Run(" di kantor kami."),
		),
		Paragraph(
			`<w:bookmarkStart w:id="0" w:name="closing"/>`,
			Run("Hormat kami,"),
			`<w:bookmarkEnd w:id="0"/>`,
		),
	)
}

// LetterText is the plain text of Letter.
const LetterText = "Dengan ini kami menerangkan bahwa NAMA PEGAWAI telah hadir pada tanggal TANGGAL di kantor kami.\n" +
	"Hormat kami,"

// Parts reads every part of a package.
func Parts(tb testing.TB, data []byte) map[string][]byte {
	tb.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		tb.Fatalf("open package: %v", err)
	}
	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			tb.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			tb.Fatalf("read %s: %v", f.Name, err)
		}
		parts[f.Name] = content
	}
	return parts
}

// Text returns the plain text of a package's word/document.xml, with
// paragraphs separated by newlines.
func Text(tb testing.TB, data []byte) string {
	tb.Helper()
	main, ok := Parts(tb, data)["word/document.xml"]
	if !ok {
		tb.Fatalf("package has no word/document.xml")
	}
	doc, err := docxml.ParseDocument(main)
	if err != nil {
		tb.Fatalf("parse document: %v", err)
	}
	return doc.Text()
}
