package stencil

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// Variable is a named, typed range of a template's text.
type Variable struct {
	Name        string
	Type        VariableType
	Constraints Constraints
	Required    bool
	// Default is the canonical value used when an optional variable is not
	// bound. Nil means no default.
	Default  any
	MarkerID string
	Range    xml.Range
}

// VariableDef describes a variable to create. Type may be left empty when
// Constraints are given; Constraints may be nil to use the type's defaults.
type VariableDef struct {
	Name        string
	Type        VariableType
	Constraints Constraints
	Required    bool
	Default     any
	Range       xml.Range
}

// VariablePatch lists the fields of a variable to change. Nil fields are
// left alone. Changing Type without Constraints resets the constraints to
// the new type's defaults.
type VariablePatch struct {
	Type         *VariableType
	Constraints  Constraints
	Required     *bool
	Default      any
	ClearDefault bool
	Range        *xml.Range
}

var variableNamePattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_.\-]*$`)

// resolveVariable validates a definition and returns the variable it
// describes, without a marker.
func resolveVariable(def VariableDef) (*Variable, error) {
	issues := &ValidationError{Kind: ErrInvalidConstraint}
	if !variableNamePattern.MatchString(def.Name) {
		issues.Add("name", "%q is not a valid variable name", def.Name)
	}

	typ := def.Type
	c := def.Constraints
	switch {
	case typ == "" && c == nil:
		issues.Add("type", "a type or constraints are required")
	case typ == "":
		typ = c.Type()
	case c == nil:
		c = DefaultConstraints(typ)
		if c == nil {
			issues.Add("type", "unknown variable type %q", typ)
		}
	case c.Type() != typ:
		issues.Add("constraints", "%s constraints given for a %s variable", c.Type(), typ)
	}
	if err := issues.Err(); err != nil {
		return nil, err
	}

	v := &Variable{
		Name:        def.Name,
		Type:        typ,
		Constraints: c,
		Required:    def.Required,
		Range:       def.Range,
	}
	if err := v.checkConstraints(); err != nil {
		return nil, err
	}
	if def.Default != nil {
		value, err := c.Convert(def.Default)
		if err != nil {
			return nil, newValidationError(ErrInvalidConstraint, "default", "%v", err)
		}
		v.Default = value
	}
	return v, nil
}

// checkConstraints validates the constraints and the stored default.
func (v *Variable) checkConstraints() error {
	issues := &ValidationError{Kind: ErrInvalidConstraint}
	if v.Constraints == nil {
		issues.Add(v.Name, "no constraints")
		return issues
	}
	if v.Constraints.Type() != v.Type {
		issues.Add(v.Name, "%s constraints on a %s variable", v.Constraints.Type(), v.Type)
	}
	if err := v.Constraints.Validate(); err != nil {
		for _, issue := range Issues(err) {
			issues.Add(v.Name+"."+issue.Field, "%s", issue.Message)
		}
	}
	if v.Default != nil {
		if _, err := v.Constraints.Convert(v.Default); err != nil {
			issues.Add(v.Name+".default", "%v", err)
		}
	}
	return issues.Err()
}

// apply returns a copy of v with the patch applied and re-validated.
func (v Variable) apply(p VariablePatch) (*Variable, error) {
	out := v
	if p.Type != nil && *p.Type != out.Type {
		out.Type = *p.Type
		out.Constraints = DefaultConstraints(out.Type)
		if out.Constraints == nil {
			return nil, newValidationError(ErrInvalidConstraint, "type", "unknown variable type %q", out.Type)
		}
	}
	if p.Constraints != nil {
		out.Constraints = p.Constraints
	}
	if p.Required != nil {
		out.Required = *p.Required
	}
	if p.ClearDefault {
		out.Default = nil
	}
	if p.Default != nil && out.Constraints != nil {
		value, err := out.Constraints.Convert(p.Default)
		if err != nil {
			return nil, newValidationError(ErrInvalidConstraint, "default", "%v", err)
		}
		out.Default = value
	}
	if p.Range != nil {
		out.Range = *p.Range
	}
	if err := out.checkConstraints(); err != nil {
		return nil, err
	}
	return &out, nil
}

// markerID derives a variable's marker from the template lineage and the
// variable name, so the same variable always gets the same marker.
func markerID(lineage uuid.UUID, name string) string {
	return uuid.NewSHA1(lineage, []byte(name)).String()
}

// lineageFor returns the marker namespace for templates built on a package.
func lineageFor(checksum string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("stencil-package:"+checksum))
}
