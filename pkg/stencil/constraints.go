package stencil

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
)

// VariableType is the closed set of value kinds a variable can hold.
type VariableType string

const (
	TypeText   VariableType = "text"
	TypeNumber VariableType = "number"
	TypeDate   VariableType = "date"
	TypeEnum   VariableType = "enum"
)

// ParseVariableType parses a type name.
func ParseVariableType(s string) (VariableType, error) {
	switch VariableType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeText:
		return TypeText, nil
	case TypeNumber:
		return TypeNumber, nil
	case TypeDate:
		return TypeDate, nil
	case TypeEnum:
		return TypeEnum, nil
	}
	return "", newValidationError(ErrInvalidConstraint, "type", "unknown variable type %q", s)
}

// Constraints describes what values a variable accepts and how they are
// rendered. The concrete types are TextConstraints, NumberConstraints,
// DateConstraints and EnumConstraints.
type Constraints interface {
	// Type returns the variable type the constraints belong to.
	Type() VariableType
	// Validate reports whether the constraints themselves are well formed.
	Validate() error
	// Convert checks a bound value and returns its canonical form.
	Convert(value any) (any, error)
	// Format renders a canonical value.
	Format(value any, locale string) (string, error)

	sealed()
}

// DefaultConstraints returns the constraints used when a variable of type t
// is created without any.
func DefaultConstraints(t VariableType) Constraints {
	switch t {
	case TypeText:
		return TextConstraints{}
	case TypeNumber:
		return NumberConstraints{}
	case TypeDate:
		return DateConstraints{Pattern: "DD MMMM YYYY"}
	case TypeEnum:
		return EnumConstraints{}
	}
	return nil
}

// TextConstraints applies to free text.
type TextConstraints struct {
	MinLength int    `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// StripMarkup removes HTML from bound values before they are checked.
	StripMarkup bool `json:"strip_markup,omitempty" yaml:"strip_markup,omitempty"`
	// Case is one of "", "upper", "lower" or "title".
	Case string `json:"case,omitempty" yaml:"case,omitempty"`
}

func (TextConstraints) Type() VariableType { return TypeText }
func (TextConstraints) sealed()            {}

func (c TextConstraints) Validate() error {
	v := &ValidationError{Kind: ErrInvalidConstraint}
	if c.MinLength < 0 {
		v.Add("min_length", "must not be negative")
	}
	if c.MaxLength < 0 {
		v.Add("max_length", "must not be negative")
	}
	if c.MaxLength > 0 && c.MaxLength < c.MinLength {
		v.Add("max_length", "is below min_length")
	}
	if c.Pattern != "" {
		if _, err := compilePattern(c.Pattern); err != nil {
			v.Add("pattern", "%v", err)
		}
	}
	switch c.Case {
	case "", "upper", "lower", "title":
	default:
		v.Add("case", "unknown case %q", c.Case)
	}
	return v.Err()
}

func (c TextConstraints) Convert(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected text, got %T", value)
	}
	if c.StripMarkup {
		s = stripMarkup(s)
	}
	n := utf8.RuneCountInString(s)
	if n < c.MinLength {
		return nil, fmt.Errorf("length %d is below the minimum of %d", n, c.MinLength)
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		return nil, fmt.Errorf("length %d exceeds the maximum of %d", n, c.MaxLength)
	}
	if c.Pattern != "" {
		re, err := compilePattern(c.Pattern)
		if err != nil {
			return nil, err
		}
		if !re.MatchString(s) {
			return nil, fmt.Errorf("does not match pattern %q", c.Pattern)
		}
	}
	return s, nil
}

func (c TextConstraints) Format(value any, locale string) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected text, got %T", value)
	}
	tag := localeTag(locale)
	switch c.Case {
	case "upper":
		return cases.Upper(tag).String(s), nil
	case "lower":
		return cases.Lower(tag).String(s), nil
	case "title":
		return cases.Title(tag).String(s), nil
	}
	return s, nil
}

var (
	patternCache sync.Map
	markupPolicy = bluemonday.StrictPolicy()
)

// compilePattern anchors a pattern so it must match the whole value.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func stripMarkup(s string) string {
	return html.UnescapeString(markupPolicy.Sanitize(s))
}

// NumberConstraints applies to numeric values. Min and Max are inclusive.
type NumberConstraints struct {
	Min      *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Decimals int      `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	Integer  bool     `json:"integer,omitempty" yaml:"integer,omitempty"`
	Locale   string   `json:"locale,omitempty" yaml:"locale,omitempty"`
}

func (NumberConstraints) Type() VariableType { return TypeNumber }
func (NumberConstraints) sealed()            {}

func (c NumberConstraints) Validate() error {
	v := &ValidationError{Kind: ErrInvalidConstraint}
	if c.Decimals < 0 || c.Decimals > 10 {
		v.Add("decimals", "must be between 0 and 10")
	}
	if c.Integer && c.Decimals != 0 {
		v.Add("decimals", "must be 0 for integers")
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		v.Add("min", "is above max")
	}
	if c.Locale != "" {
		if _, err := parseLocale(c.Locale); err != nil {
			v.Add("locale", "%v", err)
		}
	}
	return v.Err()
}

func (c NumberConstraints) Convert(value any) (any, error) {
	f, err := toNumber(value)
	if err != nil {
		return nil, err
	}
	if c.Integer && f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	if c.Min != nil && f < *c.Min {
		return nil, fmt.Errorf("%v is below the minimum of %v", f, *c.Min)
	}
	if c.Max != nil && f > *c.Max {
		return nil, fmt.Errorf("%v exceeds the maximum of %v", f, *c.Max)
	}
	return f, nil
}

func (c NumberConstraints) Format(value any, locale string) (string, error) {
	f, ok := value.(float64)
	if !ok {
		return "", fmt.Errorf("expected number, got %T", value)
	}
	if c.Locale != "" {
		locale = c.Locale
	}
	return formatNumber(f, c.Decimals, locale), nil
}

// DateConstraints applies to calendar dates. Pattern uses the tokens YYYY,
// YY, MMMM, MMM, MM, M, DD, D, dddd, ddd, HH, H, mm and ss; text in square
// brackets is copied literally.
type DateConstraints struct {
	Pattern string `json:"format" yaml:"format"`
	Locale  string `json:"locale,omitempty" yaml:"locale,omitempty"`
}

func (DateConstraints) Type() VariableType { return TypeDate }
func (DateConstraints) sealed()            {}

func (c DateConstraints) Validate() error {
	v := &ValidationError{Kind: ErrInvalidConstraint}
	if _, err := parseDatePattern(c.Pattern); err != nil {
		v.Add("format", "%v", err)
	}
	if c.Locale != "" {
		if _, err := parseLocale(c.Locale); err != nil {
			v.Add("locale", "%v", err)
		}
	}
	return v.Err()
}

func (c DateConstraints) Convert(value any) (any, error) {
	return parseDate(value)
}

func (c DateConstraints) Format(value any, locale string) (string, error) {
	t, ok := value.(time.Time)
	if !ok {
		return "", fmt.Errorf("expected date, got %T", value)
	}
	if c.Locale != "" {
		locale = c.Locale
	}
	return formatDate(t, c.Pattern, locale)
}

// EnumOption is one allowed value of an enum, with an optional display
// label.
type EnumOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// EnumConstraints restricts a variable to a fixed list of options.
type EnumConstraints struct {
	Options []EnumOption `json:"options" yaml:"options"`
}

func (EnumConstraints) Type() VariableType { return TypeEnum }
func (EnumConstraints) sealed()            {}

func (c EnumConstraints) Validate() error {
	v := &ValidationError{Kind: ErrInvalidConstraint}
	if len(c.Options) == 0 {
		v.Add("options", "at least one option is required")
	}
	seen := make(map[string]bool, len(c.Options))
	for i, opt := range c.Options {
		if opt.Value == "" {
			v.Add(fmt.Sprintf("options[%d]", i), "value is empty")
			continue
		}
		if seen[opt.Value] {
			v.Add(fmt.Sprintf("options[%d]", i), "duplicate value %q", opt.Value)
		}
		seen[opt.Value] = true
	}
	return v.Err()
}

func (c EnumConstraints) Convert(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected one of %s, got %T", c.values(), value)
	}
	for _, opt := range c.Options {
		if opt.Value == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%q is not one of %s", s, c.values())
}

func (c EnumConstraints) Format(value any, _ string) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected option, got %T", value)
	}
	for _, opt := range c.Options {
		if opt.Value == s && opt.Label != "" {
			return opt.Label, nil
		}
	}
	return s, nil
}

func (c EnumConstraints) values() string {
	values := make([]string, len(c.Options))
	for i, opt := range c.Options {
		values[i] = opt.Value
	}
	return "[" + strings.Join(values, ", ") + "]"
}

// MarshalConstraints encodes constraints for storage. The type travels
// separately.
func MarshalConstraints(c Constraints) (json.RawMessage, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: constraints: %v", ErrSerializationFailure, err)
	}
	return data, nil
}

// UnmarshalConstraints decodes stored constraints of type t. Empty input
// yields the type's defaults.
func UnmarshalConstraints(t VariableType, data []byte) (Constraints, error) {
	if len(data) == 0 || string(data) == "null" {
		if c := DefaultConstraints(t); c != nil {
			return c, nil
		}
		return nil, newValidationError(ErrInvalidConstraint, "type", "unknown variable type %q", t)
	}

	var (
		c   Constraints
		err error
	)
	switch t {
	case TypeText:
		var tc TextConstraints
		err = json.Unmarshal(data, &tc)
		c = tc
	case TypeNumber:
		var nc NumberConstraints
		err = json.Unmarshal(data, &nc)
		c = nc
	case TypeDate:
		var dc DateConstraints
		err = json.Unmarshal(data, &dc)
		c = dc
	case TypeEnum:
		var ec EnumConstraints
		err = json.Unmarshal(data, &ec)
		c = ec
	default:
		return nil, newValidationError(ErrInvalidConstraint, "type", "unknown variable type %q", t)
	}
	if err != nil {
		return nil, newValidationError(ErrInvalidConstraint, "constraints", "%v", err)
	}
	return c, nil
}
