package xml

import (
	"encoding/xml"
	"errors"
	"strings"
)

// WordprocessingML namespaces accepted for the main document part.
const (
	NamespaceMain       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NamespaceMainStrict = "http://purl.oclc.org/ooxml/wordprocessingml/main"
)

var (
	// ErrMalformed is returned when the document part is not well-formed XML.
	ErrMalformed = errors.New("malformed document xml")
	// ErrNotDocument is returned when the root element is not w:document.
	ErrNotDocument = errors.New("root element is not a wordprocessing document")
)

// Item is one child of a paragraph. Exactly one of Run or Raw is set.
//
// Raw items are preserved byte for byte and occupy no offsets in the flat
// text. Blocking marks raw items a range may not span: runs with non-text
// content, fields, deletions, and the start and end tags of wrappers.
type Item struct {
	Run      *Run
	Raw      []byte
	Blocking bool
}

// IsText reports whether the item is a text run.
func (it Item) IsText() bool {
	return it.Run != nil
}

// passiveElements are paragraph children that never contribute text and may
// sit inside a marked range.
var passiveElements = map[string]bool{
	"pPr":               true,
	"bookmarkStart":     true,
	"bookmarkEnd":       true,
	"proofErr":          true,
	"permStart":         true,
	"permEnd":           true,
	"commentRangeStart": true,
	"commentRangeEnd":   true,
	"smartTagPr":        true,
}

// wrapperElements hold runs that are part of the visible paragraph text.
var wrapperElements = map[string]bool{
	"hyperlink": true,
	"ins":       true,
	"smartTag":  true,
}

func isWordElement(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == NamespaceMain || name.Space == NamespaceMainStrict)
}

func isPassive(name xml.Name) bool {
	if name.Space != NamespaceMain && name.Space != NamespaceMainStrict {
		return false
	}
	return passiveElements[name.Local]
}

func isWrapper(name xml.Name) bool {
	if name.Space != NamespaceMain && name.Space != NamespaceMainStrict {
		return false
	}
	return wrapperElements[name.Local]
}

// prefixOf returns the namespace prefix used by a raw start tag such as
// `<w:r w:rsidR="00AB">`, or "" for an unprefixed tag.
func prefixOf(open []byte) string {
	s := string(open)
	s = strings.TrimPrefix(s, "<")
	end := strings.IndexAny(s, " \t\r\n/>")
	if end < 0 {
		end = len(s)
	}
	if idx := strings.IndexByte(s[:end], ':'); idx > 0 {
		return s[:idx]
	}
	return ""
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
