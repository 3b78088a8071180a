package stencil

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	docxml "github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

const (
	officeDocumentRelType       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	officeDocumentRelTypeStrict = "http://purl.oclc.org/ooxml/officeDocument/relationships/officeDocument"
	defaultMainPart             = "word/document.xml"
)

// Relationship represents a relationship in the DOCX package
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// Relationships represents the collection of relationships
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Relationship []Relationship `xml:"Relationship"`
}

// Package is a loaded DOCX package. It is immutable: generated output is
// always a new byte slice built from it.
type Package struct {
	data     []byte
	reader   *zip.Reader
	parts    map[string]*zip.File
	mainPart string
	checksum string

	docOnce sync.Once
	doc     *docxml.Document
	docErr  error
}

// LoadPackage reads a whole package from r.
func LoadPackage(r io.Reader) (*Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("load", "", ErrCorruptPackage, err)
	}
	return LoadPackageBytes(data)
}

// LoadPackageFile reads a package from disk.
func LoadPackageFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("load", path, nil, err)
	}
	pkg, err := LoadPackageBytes(data)
	if err != nil {
		var de *DocumentError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = path
		}
		return nil, err
	}
	return pkg, nil
}

// LoadPackageBytes indexes a package held in memory and locates its main
// document part. The part itself is parsed by Document.
func LoadPackageBytes(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewDocumentError("load", "", ErrCorruptPackage, err)
	}

	sum := sha256.Sum256(data)
	pkg := &Package{
		data:     data,
		reader:   zr,
		parts:    make(map[string]*zip.File, len(zr.File)),
		checksum: hex.EncodeToString(sum[:]),
	}

	// Index all parts by name
	for _, file := range zr.File {
		pkg.parts[file.Name] = file
	}

	main, err := pkg.findMainPart()
	if err != nil {
		return nil, err
	}
	pkg.mainPart = main
	return pkg, nil
}

// findMainPart follows the package-level officeDocument relationship and
// falls back to word/document.xml.
func (p *Package) findMainPart() (string, error) {
	if _, ok := p.parts["_rels/.rels"]; ok {
		content, err := p.Part("_rels/.rels")
		if err != nil {
			return "", err
		}
		var rels Relationships
		if err := xml.Unmarshal(content, &rels); err != nil {
			return "", NewDocumentError("load", "_rels/.rels", ErrCorruptPackage, err)
		}
		for _, rel := range rels.Relationship {
			if rel.Type != officeDocumentRelType && rel.Type != officeDocumentRelTypeStrict {
				continue
			}
			target := strings.TrimPrefix(path.Clean("/"+rel.Target), "/")
			if _, ok := p.parts[target]; ok {
				return target, nil
			}
			return "", NewDocumentError("load", target, ErrCorruptPackage, errors.New("main document part is missing"))
		}
	}

	if _, ok := p.parts[defaultMainPart]; ok {
		return defaultMainPart, nil
	}
	return "", NewDocumentError("load", "", ErrUnsupportedFormat, errors.New("no wordprocessing document part"))
}

// Checksum returns the hex SHA-256 of the package bytes.
func (p *Package) Checksum() string {
	return p.checksum
}

// Bytes returns the original package bytes.
func (p *Package) Bytes() []byte {
	return p.data
}

// Size returns the package size in bytes.
func (p *Package) Size() int {
	return len(p.data)
}

// MainPart returns the name of the main document part.
func (p *Package) MainPart() string {
	return p.mainPart
}

// Parts returns the part names in archive order.
func (p *Package) Parts() []string {
	names := make([]string, 0, len(p.reader.File))
	for _, f := range p.reader.File {
		names = append(names, f.Name)
	}
	return names
}

// Part retrieves the content of a specific part
func (p *Package) Part(name string) ([]byte, error) {
	file, ok := p.parts[name]
	if !ok {
		return nil, NewDocumentError("read", name, ErrCorruptPackage, errors.New("part not found"))
	}

	rc, err := file.Open()
	if err != nil {
		return nil, NewDocumentError("read", name, ErrCorruptPackage, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, NewDocumentError("read", name, ErrCorruptPackage, err)
	}

	return content, nil
}

// Document parses the main document part. The result is computed once and
// shared; callers must treat it as read-only.
func (p *Package) Document() (*docxml.Document, error) {
	p.docOnce.Do(func() {
		content, err := p.Part(p.mainPart)
		if err != nil {
			p.docErr = err
			return
		}
		doc, err := docxml.ParseDocument(content)
		switch {
		case errors.Is(err, docxml.ErrNotDocument):
			p.docErr = NewDocumentError("parse", p.mainPart, ErrUnsupportedFormat, err)
		case err != nil:
			p.docErr = NewDocumentError("parse", p.mainPart, ErrCorruptPackage, err)
		default:
			p.doc = doc
		}
	})
	return p.doc, p.docErr
}

// Rebuild returns a new package in which the main document part is
// replaced by mainPart. Every other part is copied without recompression,
// in its original order, so equal inputs give byte-identical output.
func (p *Package) Rebuild(ctx context.Context, mainPart []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(p.data))
	w := zip.NewWriter(&buf)

	for _, file := range p.reader.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if file.Name != p.mainPart {
			if err := w.Copy(file); err != nil {
				return nil, NewDocumentError("write", file.Name, ErrSerializationFailure, err)
			}
			continue
		}

		header := &zip.FileHeader{
			Name:     file.Name,
			Comment:  file.Comment,
			Method:   file.Method,
			Modified: file.Modified,
		}
		fw, err := w.CreateHeader(header)
		if err != nil {
			return nil, NewDocumentError("write", file.Name, ErrSerializationFailure, err)
		}
		if _, err := fw.Write(mainPart); err != nil {
			return nil, NewDocumentError("write", file.Name, ErrSerializationFailure, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, NewDocumentError("write", "", ErrSerializationFailure, err)
	}
	return buf.Bytes(), nil
}

func (p *Package) String() string {
	return fmt.Sprintf("package %s (%d parts, %d bytes)", p.checksum[:12], len(p.parts), len(p.data))
}
