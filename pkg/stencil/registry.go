package stencil

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/render"
	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// CreateVariable marks def.Range in the document and records the variable.
// rev must equal the template's current revision.
//
// Name, constraint and range problems are reported together. On any error
// the template is unchanged.
func (t *Template) CreateVariable(rev uint64, def VariableDef) (*Variable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkMutable(rev); err != nil {
		return nil, err
	}
	snap := t.current.Load()

	errs := NewMultiError()
	v, err := resolveVariable(def)
	errs.Add(err)

	marker := markerID(t.lineage, def.Name)
	var doc *xml.Document
	if _, exists := snap.vars[def.Name]; exists {
		// The marker is derived from the name, so the range is not checked.
		errs.Add(newValidationError(ErrDuplicateVariableName, "name", "%q is already defined", def.Name))
	} else if err := checkRangeFree(snap.vars, def.Range, ""); err != nil {
		errs.Add(err)
	} else {
		doc, _, err = render.RegisterRange(snap.doc, def.Range, marker)
		errs.Add(rangeError(err))
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	v.MarkerID = marker
	t.publish(doc, snap.vars, v, "")
	Logger().Debug("variable created",
		slog.String("template", t.ID),
		slog.String("variable", v.Name),
		slog.String("type", string(v.Type)),
		slog.String("range", v.Range.String()))
	out := *v
	return &out, nil
}

// UpdateVariable applies patch to the named variable. A patch that moves
// the range re-marks the document; the old marking is only dropped once
// the new one succeeds.
func (t *Template) UpdateVariable(rev uint64, name string, patch VariablePatch) (*Variable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkMutable(rev); err != nil {
		return nil, err
	}
	snap := t.current.Load()
	existing, ok := snap.vars[name]
	if !ok {
		return nil, newValidationError(ErrVariableNotFound, "name", "%q is not defined", name)
	}

	errs := NewMultiError()
	v, err := existing.apply(patch)
	errs.Add(err)

	doc := snap.doc
	if patch.Range != nil && *patch.Range != existing.Range {
		if err := checkRangeFree(snap.vars, *patch.Range, name); err != nil {
			errs.Add(err)
		} else {
			moved := render.UnregisterRange(doc, existing.MarkerID)
			moved, _, err = render.RegisterRange(moved, *patch.Range, existing.MarkerID)
			if err != nil {
				errs.Add(rangeError(err))
			} else {
				doc = moved
			}
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	t.publish(doc, snap.vars, v, "")
	Logger().Debug("variable updated",
		slog.String("template", t.ID),
		slog.String("variable", name))
	out := *v
	return &out, nil
}

// DeleteVariable removes the named variable and its marking.
func (t *Template) DeleteVariable(rev uint64, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkMutable(rev); err != nil {
		return err
	}
	snap := t.current.Load()
	existing, ok := snap.vars[name]
	if !ok {
		return newValidationError(ErrVariableNotFound, "name", "%q is not defined", name)
	}

	doc := render.UnregisterRange(snap.doc, existing.MarkerID)
	t.publish(doc, snap.vars, nil, name)
	Logger().Debug("variable deleted",
		slog.String("template", t.ID),
		slog.String("variable", name))
	return nil
}

// checkMutable must be called with t.mu held.
func (t *Template) checkMutable(rev uint64) error {
	if t.Finalized() {
		return fmt.Errorf("%w: %s", ErrTemplateFinalized, t.ID)
	}
	if current := t.revision.Load(); rev != current {
		return fmt.Errorf("%w: revision %d, template is at %d", ErrStaleTemplateVersion, rev, current)
	}
	return nil
}

// publish stores a new snapshot with v added (or replaced) and the variable
// named drop removed. Must be called with t.mu held.
func (t *Template) publish(doc *xml.Document, vars map[string]*Variable, v *Variable, drop string) {
	next := maps.Clone(vars)
	if v != nil {
		next[v.Name] = v
	}
	if drop != "" {
		delete(next, drop)
	}
	t.current.Store(&snapshot{doc: doc, vars: next})
	t.revision.Add(1)
}

// checkRangeFree rejects rng if it overlaps a variable other than skip.
func checkRangeFree(vars map[string]*Variable, rng xml.Range, skip string) error {
	issues := &ValidationError{Kind: ErrOverlappingRange}
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		v := vars[name]
		if name == skip || !v.Range.Overlaps(rng) {
			continue
		}
		issues.Add("range", "%s overlaps %s of %s", rng, v.Range, name)
	}
	return issues.Err()
}

// rangeError turns a range mapper failure into a validation error of the
// matching kind.
func rangeError(err error) error {
	if err == nil {
		return nil
	}
	kind := ErrInvalidRange
	if errors.Is(err, ErrOverlappingRange) {
		kind = ErrOverlappingRange
	}
	msg := strings.TrimPrefix(err.Error(), kind.Error()+": ")
	return newValidationError(kind, "range", "%s", msg)
}
