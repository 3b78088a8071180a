package stencil

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/render"
)

// WarningKind classifies generation warnings.
type WarningKind string

const (
	// WarningDefaultedVariable reports an optional variable that received
	// its default or empty text because no value was bound.
	WarningDefaultedVariable WarningKind = "defaulted_variable"
	// WarningUnknownBinding reports a binding that names no variable.
	WarningUnknownBinding WarningKind = "unknown_binding"
)

// Warning is a non-fatal note produced during generation.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Variable string      `json:"variable"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Variable, w.Message)
}

// GenerationRequest asks for a document from a stored template.
type GenerationRequest struct {
	TemplateID string         `json:"template_id"`
	Bindings   map[string]any `json:"bindings"`
	// Locale overrides the configured default locale.
	Locale string `json:"locale,omitempty"`
}

// GenerationResult holds a generated package.
type GenerationResult struct {
	Output   []byte
	Warnings []Warning
}

type generateOptions struct {
	locale string
	strict bool
}

// GenerateOption configures a single Generate call.
type GenerateOption func(*generateOptions)

// WithLocale sets the locale used to format numbers and dates whose
// constraints do not name one.
func WithLocale(locale string) GenerateOption {
	return func(o *generateOptions) {
		if locale != "" {
			o.locale = locale
		}
	}
}

// WithStrictBindings makes bindings that name no variable an error instead
// of a warning.
func WithStrictBindings(strict bool) GenerateOption {
	return func(o *generateOptions) {
		o.strict = strict
	}
}

// Generate binds values into a finalized template and returns the output
// package. All missing and invalid bindings are reported in one error. The
// template is not modified, so Generate may run concurrently on the same
// template.
func Generate(ctx context.Context, t *Template, bindings map[string]any, opts ...GenerateOption) (*GenerationResult, error) {
	cfg := GetGlobalConfig()
	o := generateOptions{locale: cfg.DefaultLocale, strict: cfg.StrictBindings}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !t.Finalized() {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFinalized, t.ID)
	}
	snap := t.current.Load()

	values, warnings, err := bindValues(snap, bindings, o)
	if err != nil {
		return nil, err
	}

	filled, err := render.Fill(ctx, snap.doc, values)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	output, err := t.pkg.Rebuild(ctx, filled.Bytes())
	if err != nil {
		return nil, err
	}

	Logger().DebugContext(ctx, "document generated",
		slog.String("template", t.ID),
		slog.Int("bindings", len(bindings)),
		slog.Int("warnings", len(warnings)),
		slog.Int("bytes", len(output)))
	return &GenerationResult{Output: output, Warnings: warnings}, nil
}

// bindValues checks and formats every binding. It returns the rendered
// text per marker.
func bindValues(snap *snapshot, bindings map[string]any, o generateOptions) (map[string]string, []Warning, error) {
	missing := &ValidationError{Kind: ErrMissingRequiredVariable}
	invalid := &ValidationError{Kind: ErrInvalidBindingValue}
	values := make(map[string]string, len(snap.vars))
	var warnings []Warning

	for _, name := range slices.Sorted(maps.Keys(snap.vars)) {
		v := snap.vars[name]
		raw, bound := bindings[name]
		if bound && isBlank(raw) {
			bound = false
		}

		var value any
		switch {
		case bound:
			converted, err := v.Constraints.Convert(raw)
			if err != nil {
				invalid.Add(name, "%v", err)
				continue
			}
			value = converted
		case v.Required:
			missing.Add(name, "no value bound")
			continue
		case v.Default != nil:
			value = v.Default
			warnings = append(warnings, Warning{
				Kind:     WarningDefaultedVariable,
				Variable: name,
				Message:  "no value bound, default used",
			})
		default:
			values[v.MarkerID] = ""
			warnings = append(warnings, Warning{
				Kind:     WarningDefaultedVariable,
				Variable: name,
				Message:  "no value bound, left empty",
			})
			continue
		}

		text, err := v.Constraints.Format(value, o.locale)
		if err != nil {
			invalid.Add(name, "%v", err)
			continue
		}
		values[v.MarkerID] = text
	}

	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		if _, ok := snap.vars[name]; ok {
			continue
		}
		if o.strict {
			invalid.Add(name, "no such variable")
			continue
		}
		warnings = append(warnings, Warning{
			Kind:     WarningUnknownBinding,
			Variable: name,
			Message:  "binding names no variable and was ignored",
		})
	}

	errs := NewMultiError()
	errs.Add(missing.Err())
	errs.Add(invalid.Err())
	if err := errs.Err(); err != nil {
		return nil, nil, err
	}
	return values, warnings, nil
}

// isBlank reports whether a binding carries no value: nil or text made
// only of white space.
func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}
