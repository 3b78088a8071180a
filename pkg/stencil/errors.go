package stencil

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil/render"
)

// Error kinds. Every error returned by this package matches one of these
// through errors.Is.
var (
	ErrCorruptPackage          = errors.New("corrupt package")
	ErrUnsupportedFormat       = errors.New("unsupported format")
	ErrInvalidRange            = render.ErrInvalidRange
	ErrOverlappingRange        = render.ErrOverlappingRange
	ErrDuplicateVariableName   = errors.New("duplicate variable name")
	ErrVariableNotFound        = errors.New("variable not found")
	ErrInvalidConstraint       = errors.New("invalid constraint")
	ErrTemplateFinalized       = errors.New("template is finalized")
	ErrTemplateNotFinalized    = errors.New("template is not finalized")
	ErrStaleTemplateVersion    = errors.New("stale template version")
	ErrIncompleteTemplate      = errors.New("incomplete template")
	ErrMissingRequiredVariable = errors.New("missing required variable")
	ErrInvalidBindingValue     = errors.New("invalid binding value")
	ErrSerializationFailure    = errors.New("serialization failure")
	ErrTemplateNotFound        = errors.New("template not found")
)

// DocumentError represents an error during package or document operations
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error. kind is wrapped together
// with cause so callers can match either.
func NewDocumentError(operation, path string, kind, cause error) error {
	if cause == nil {
		cause = kind
	} else if kind != nil && !errors.Is(cause, kind) {
		cause = fmt.Errorf("%w: %w", kind, cause)
	}
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every issue found by one validation pass. Kind is
// the sentinel the error matches.
type ValidationError struct {
	Kind   error
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	kind := "validation error"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}
	if len(e.Issues) == 0 {
		return kind
	}

	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s - %s", kind, e.Issues[0].Field, e.Issues[0].Message)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s: %d issues:", kind, len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s: %s", issue.Field, issue.Message))
	}
	return strings.Join(parts, "\n")
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Add records an issue.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Issues = append(e.Issues, ValidationIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Fields returns the distinct fields with issues, sorted.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, issue := range e.Issues {
		if !seen[issue.Field] {
			seen[issue.Field] = true
			fields = append(fields, issue.Field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Err returns e if it holds issues and nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

func newValidationError(kind error, field, format string, args ...any) error {
	e := &ValidationError{Kind: kind}
	e.Add(field, format, args...)
	return e
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]any
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var contextParts []string
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]any) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}

// IsValidationError checks if an error carries validation issues
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Issues returns every validation issue carried by err, including those of
// joined errors.
func Issues(err error) []ValidationIssue {
	var issues []ValidationIssue
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
			return
		case *ValidationError:
			issues = append(issues, e.Issues...)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return issues
}
