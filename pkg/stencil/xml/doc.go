// Package xml provides the document model for the main part of a DOCX
// package (word/document.xml).
//
// The model is deliberately narrow. A Document is a sequence of Paragraphs;
// a Paragraph is a sequence of Items, each either a text Run or a slice of
// raw bytes that is carried through untouched. Everything the model does
// not understand (tables, section properties, drawings, fields) stays in
// the raw bytes, so an unmodified Document serializes back to its input
// byte for byte.
//
// # Structure Organization
//
//   - types.go: Item, namespace constants and element classification
//   - document.go: Document parsing, serialization, text search and markers
//   - paragraph.go: Paragraph parsing, cloning and run splitting
//   - run.go: Run parsing and re-emission
//   - index.go: FlatIndex, Range and Position
//
// # Offsets
//
// Positions are rune offsets into the document text as returned by
// Document.Text: the text of every paragraph joined by a single "\n". The
// separator belongs to no paragraph, so a range can never contain it.
//
// # Text runs
//
// A w:r is a text run when its only children are w:rPr, w:t and
// w:lastRenderedPageBreak. Its Style is the raw w:rPr element. Runs holding
// tabs, breaks, drawings or field characters are kept as blocking raw items:
// they occupy no offsets and a range may not span them.
//
// Example:
//
//	doc, err := xml.ParseDocument(part)
//	if err != nil {
//	    return err
//	}
//	rng, ok := doc.FindText("Budi Santoso", 0)
//	start, end, err := doc.Index().Resolve(rng)
package xml
