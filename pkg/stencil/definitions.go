package stencil

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// DefinitionFile is a YAML description of the variables to mark in a
// package:
//
//	name: Surat Keterangan Hadir
//	category: kepegawaian
//	finalize: true
//	variables:
//	  - name: nama_pegawai
//	    type: text
//	    required: true
//	    text: NAMA PEGAWAI
//	  - name: tanggal
//	    type: date
//	    constraints: {format: DD MMMM YYYY}
//	    range: {start: 72, end: 79}
type DefinitionFile struct {
	Name      string       `yaml:"name"`
	Category  string       `yaml:"category"`
	Finalize  bool         `yaml:"finalize"`
	Variables []Definition `yaml:"variables"`
}

// Definition describes one variable. The range is given either directly
// or as the Occurrence-th (zero-based) appearance of Text.
type Definition struct {
	Name        string       `yaml:"name"`
	Type        VariableType `yaml:"type"`
	Required    bool         `yaml:"required"`
	Default     any          `yaml:"default"`
	Constraints yaml.Node    `yaml:"constraints"`
	Range       *xml.Range   `yaml:"range"`
	Text        string       `yaml:"text"`
	Occurrence  int          `yaml:"occurrence"`
}

// LoadDefinitions decodes a definition file. Unknown keys are rejected.
func LoadDefinitions(r io.Reader) (*DefinitionFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file DefinitionFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("%w: definitions: %v", ErrInvalidConstraint, err)
	}
	return &file, nil
}

// VariableDef resolves the definition against doc.
func (d Definition) VariableDef(doc *xml.Document) (VariableDef, error) {
	def := VariableDef{
		Name:     d.Name,
		Type:     d.Type,
		Required: d.Required,
		Default:  d.Default,
	}

	switch {
	case d.Range != nil && d.Text != "":
		return VariableDef{}, newValidationError(ErrInvalidRange, d.Name, "give either range or text, not both")
	case d.Range != nil:
		def.Range = *d.Range
	case d.Text != "":
		rng, ok := doc.FindText(d.Text, d.Occurrence)
		if !ok {
			return VariableDef{}, newValidationError(ErrInvalidRange, d.Name,
				"occurrence %d of %q not found", d.Occurrence, d.Text)
		}
		def.Range = rng
	default:
		return VariableDef{}, newValidationError(ErrInvalidRange, d.Name, "no range or text given")
	}

	if d.Constraints.Kind != 0 {
		if d.Type == "" {
			return VariableDef{}, newValidationError(ErrInvalidConstraint, d.Name, "constraints need a type")
		}
		c, err := decodeConstraints(d.Type, &d.Constraints)
		if err != nil {
			return VariableDef{}, err
		}
		def.Constraints = c
	}
	return def, nil
}

func decodeConstraints(t VariableType, node *yaml.Node) (Constraints, error) {
	var (
		c   Constraints
		err error
	)
	switch t {
	case TypeText:
		var tc TextConstraints
		err = node.Decode(&tc)
		c = tc
	case TypeNumber:
		var nc NumberConstraints
		err = node.Decode(&nc)
		c = nc
	case TypeDate:
		var dc DateConstraints
		err = node.Decode(&dc)
		c = dc
	case TypeEnum:
		var ec EnumConstraints
		err = node.Decode(&ec)
		c = ec
	default:
		return nil, newValidationError(ErrInvalidConstraint, "type", "unknown variable type %q", t)
	}
	if err != nil {
		return nil, newValidationError(ErrInvalidConstraint, "constraints", "%v", err)
	}
	return c, nil
}

// ApplyDefinitions creates the file's variables on t in order, and
// finalizes t when the file asks for it. It stops at the first failure;
// variables created before it stay.
func ApplyDefinitions(t *Template, file *DefinitionFile) error {
	for _, d := range file.Variables {
		def, err := d.VariableDef(t.Document())
		if err != nil {
			return err
		}
		if _, err := t.CreateVariable(t.Revision(), def); err != nil {
			return WithContext(err, "define", map[string]any{"variable": d.Name})
		}
	}
	if file.Finalize {
		return t.Finalize()
	}
	return nil
}
