package stencil

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/xml"
)

// State is the lifecycle state of a template.
type State uint32

const (
	StateDraft State = iota
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	switch s {
	case StateDraft, StateFinalized:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown template state %d", uint32(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "draft":
		*s = StateDraft
	case "finalized":
		*s = StateFinalized
	default:
		return fmt.Errorf("unknown template state %q", text)
	}
	return nil
}

// snapshot is one published version of a template's document and
// variables. Snapshots are never modified once stored.
type snapshot struct {
	doc  *xml.Document
	vars map[string]*Variable
}

// Template is a document together with the variables marked in it.
//
// A template starts as a draft. Drafts accept variable mutations, one at a
// time, each carrying the revision it was computed against. Finalize
// freezes the template; a finalized template is read-only and may be used
// by any number of goroutines without locking.
type Template struct {
	ID       string
	Name     string
	Category string
	Version  int
	// ParentID is the ID of the finalized template this version was
	// created from, if any.
	ParentID string

	pkg     *Package
	lineage uuid.UUID

	mu       sync.Mutex // serializes mutations
	state    atomic.Uint32
	revision atomic.Uint64
	current  atomic.Pointer[snapshot]
	// stored is the revision last read from or written to a store.
	stored atomic.Uint64
}

// NewDraft starts a draft template on a loaded package.
func NewDraft(pkg *Package, name, category string) (*Template, error) {
	doc, err := pkg.Document()
	if err != nil {
		return nil, err
	}
	t := newTemplate(pkg, uuid.NewString(), name, category, 1, "")
	t.current.Store(&snapshot{doc: doc, vars: map[string]*Variable{}})
	Logger().Debug("draft created",
		slog.String("template", t.ID),
		slog.String("name", name),
		slog.String("package", pkg.Checksum()))
	return t, nil
}

func newTemplate(pkg *Package, id, name, category string, version int, parent string) *Template {
	return &Template{
		ID:       id,
		Name:     name,
		Category: category,
		Version:  version,
		ParentID: parent,
		pkg:      pkg,
		lineage:  lineageFor(pkg.Checksum()),
	}
}

// State returns the template state.
func (t *Template) State() State {
	return State(t.state.Load())
}

// Finalized reports whether the template is finalized.
func (t *Template) Finalized() bool {
	return t.State() == StateFinalized
}

// Revision returns the current revision. Every successful mutation
// increments it.
func (t *Template) Revision() uint64 {
	return t.revision.Load()
}

// Package returns the package the template was drafted on.
func (t *Template) Package() *Package {
	return t.pkg
}

// PackageRef returns the checksum of the template's package.
func (t *Template) PackageRef() string {
	return t.pkg.Checksum()
}

// Document returns the current document, markers included. It must not be
// modified.
func (t *Template) Document() *xml.Document {
	return t.current.Load().doc
}

// Variables returns the variables in document order.
func (t *Template) Variables() []Variable {
	snap := t.current.Load()
	vars := make([]Variable, 0, len(snap.vars))
	for _, v := range snap.vars {
		vars = append(vars, *v)
	}
	sortVariables(vars)
	return vars
}

// Variable returns the variable with the given name.
func (t *Template) Variable(name string) (Variable, bool) {
	v, ok := t.current.Load().vars[name]
	if !ok {
		return Variable{}, false
	}
	return *v, true
}

func sortVariables(vars []Variable) {
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].Range.Start != vars[j].Range.Start {
			return vars[i].Range.Start < vars[j].Range.Start
		}
		return vars[i].Name < vars[j].Name
	})
}

// Finalize validates the template and freezes it. Every problem found is
// reported in one ErrIncompleteTemplate error; on failure the template
// stays a draft.
func (t *Template) Finalize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Finalized() {
		return fmt.Errorf("%w: %s", ErrTemplateFinalized, t.ID)
	}
	snap := t.current.Load()
	if err := checkSnapshot(snap); err != nil {
		return err
	}

	t.state.Store(uint32(StateFinalized))
	t.revision.Add(1)
	Logger().Info("template finalized",
		slog.String("template", t.ID),
		slog.String("name", t.Name),
		slog.Int("version", t.Version),
		slog.Int("variables", len(snap.vars)))
	return nil
}

// checkSnapshot verifies that the markers in the document agree with the
// variables recorded for it.
func checkSnapshot(snap *snapshot) error {
	issues := &ValidationError{Kind: ErrIncompleteTemplate}
	if len(snap.vars) == 0 {
		issues.Add("variables", "template has no variables")
	}

	vars := make([]Variable, 0, len(snap.vars))
	owners := make(map[string]string, len(snap.vars))
	for _, v := range snap.vars {
		vars = append(vars, *v)
	}
	sortVariables(vars)

	for _, v := range vars {
		if other, ok := owners[v.MarkerID]; ok {
			issues.Add(v.Name, "shares marker %s with %s", v.MarkerID, other)
			continue
		}
		owners[v.MarkerID] = v.Name

		rng, found, contiguous := snap.doc.MarkerRange(v.MarkerID)
		switch {
		case !found:
			issues.Add(v.Name, "marker %s is missing from the document", v.MarkerID)
		case !contiguous:
			issues.Add(v.Name, "marked runs are not contiguous")
		case rng != v.Range:
			issues.Add(v.Name, "marked text %s does not match range %s", rng, v.Range)
		}
		if err := v.checkConstraints(); err != nil {
			for _, issue := range Issues(err) {
				issues.Add(issue.Field, "%s", issue.Message)
			}
		}
	}

	for i := 1; i < len(vars); i++ {
		prev, cur := vars[i-1], vars[i]
		if prev.Range.Overlaps(cur.Range) {
			issues.Add(cur.Name, "range %s overlaps %s of %s", cur.Range, prev.Range, prev.Name)
		}
	}

	for _, marker := range snap.doc.Markers() {
		if _, ok := owners[marker]; !ok {
			issues.Add("document", "marker %s belongs to no variable", marker)
		}
	}
	return issues.Err()
}

// NewVersion starts a new draft from a finalized template. The new draft
// has its own ID and the next version number; t is not changed.
func (t *Template) NewVersion() (*Template, error) {
	if !t.Finalized() {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFinalized, t.ID)
	}
	next := newTemplate(t.pkg, uuid.NewString(), t.Name, t.Category, t.Version+1, t.ID)
	next.lineage = t.lineage
	next.current.Store(t.current.Load())
	Logger().Debug("template version created",
		slog.String("template", next.ID),
		slog.String("parent", t.ID),
		slog.Int("version", next.Version))
	return next, nil
}

func (t *Template) String() string {
	return fmt.Sprintf("template %s %q v%d (%s, %d variables)",
		t.ID, t.Name, t.Version, t.State(), len(t.current.Load().vars))
}
