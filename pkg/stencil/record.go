package stencil

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/render"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// Record is the persisted form of a template. The package bytes are stored
// next to it and identified by PackageChecksum.
type Record struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category,omitempty"`
	ParentID        string           `json:"parent_id,omitempty"`
	PackageChecksum string           `json:"package_checksum"`
	Version         int              `json:"version"`
	State           State            `json:"state"`
	// Revision is the template revision the record was taken at.
	Revision  uint64           `json:"revision"`
	Variables []VariableRecord `json:"variables"`

	// BaseRevision is the stored revision the record replaces. A store
	// refuses the record with ErrStaleTemplateVersion when the revision it
	// holds for the ID differs. It is not persisted.
	BaseRevision uint64 `json:"-"`
}

// VariableRecord is the persisted form of a variable.
type VariableRecord struct {
	Name        string          `json:"name"`
	Type        VariableType    `json:"type"`
	Required    bool            `json:"required"`
	Constraints json.RawMessage `json:"constraints,omitempty"`
	Default     any             `json:"default,omitempty"`
	MarkerID    string          `json:"marker_id"`
	Range       xml.Range       `json:"range"`
}

// Record returns the persisted form of the template as it is now.
func (t *Template) Record() (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Record{
		ID:              t.ID,
		Name:            t.Name,
		Category:        t.Category,
		ParentID:        t.ParentID,
		PackageChecksum: t.pkg.Checksum(),
		Version:         t.Version,
		State:           t.State(),
		Revision:        t.Revision(),
		BaseRevision:    t.stored.Load(),
	}
	for _, v := range t.Variables() {
		constraints, err := MarshalConstraints(v.Constraints)
		if err != nil {
			return Record{}, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		rec.Variables = append(rec.Variables, VariableRecord{
			Name:        v.Name,
			Type:        v.Type,
			Required:    v.Required,
			Constraints: constraints,
			Default:     v.Default,
			MarkerID:    v.MarkerID,
			Range:       v.Range,
		})
	}
	return rec, nil
}

// Restore rebuilds a template from its record and package. Every variable
// range is marked again and its marker compared with the recorded one. A
// record in the finalized state yields a finalized template. The template
// continues from the recorded revision.
func Restore(rec Record, pkg *Package) (*Template, error) {
	if pkg.Checksum() != rec.PackageChecksum {
		return nil, NewDocumentError("restore", rec.ID, ErrCorruptPackage,
			fmt.Errorf("package checksum %s does not match %s", pkg.Checksum(), rec.PackageChecksum))
	}
	doc, err := pkg.Document()
	if err != nil {
		return nil, err
	}

	t := newTemplate(pkg, rec.ID, rec.Name, rec.Category, rec.Version, rec.ParentID)
	vars := make(map[string]*Variable, len(rec.Variables))
	issues := &ValidationError{Kind: ErrIncompleteTemplate}

	for _, vr := range rec.Variables {
		if _, dup := vars[vr.Name]; dup {
			issues.Add(vr.Name, "recorded twice")
			continue
		}
		c, err := UnmarshalConstraints(vr.Type, vr.Constraints)
		if err != nil {
			issues.Add(vr.Name, "%v", err)
			continue
		}
		v, err := resolveVariable(VariableDef{
			Name:        vr.Name,
			Type:        vr.Type,
			Constraints: c,
			Required:    vr.Required,
			Default:     vr.Default,
			Range:       vr.Range,
		})
		if err != nil {
			issues.Add(vr.Name, "%v", err)
			continue
		}

		v.MarkerID = markerID(t.lineage, v.Name)
		if vr.MarkerID != "" && vr.MarkerID != v.MarkerID {
			issues.Add(vr.Name, "recorded marker %s, expected %s", vr.MarkerID, v.MarkerID)
			continue
		}
		marked, _, err := render.RegisterRange(doc, v.Range, v.MarkerID)
		if err != nil {
			issues.Add(vr.Name, "%v", err)
			continue
		}
		doc = marked
		vars[v.Name] = v
	}
	if err := issues.Err(); err != nil {
		return nil, err
	}

	snap := &snapshot{doc: doc, vars: vars}
	t.current.Store(snap)
	t.revision.Store(rec.Revision)
	t.stored.Store(rec.Revision)
	if rec.State == StateFinalized {
		if err := checkSnapshot(snap); err != nil {
			return nil, err
		}
		t.state.Store(uint32(StateFinalized))
	}
	Logger().Debug("template restored",
		slog.String("template", t.ID),
		slog.String("state", t.State().String()),
		slog.Int("variables", len(vars)))
	return t, nil
}
