package stencil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// parseLocale accepts BCP 47 tags and the underscore form (id_ID).
func parseLocale(locale string) (language.Tag, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("unknown locale %q: %w", locale, err)
	}
	return tag, nil
}

func localeTag(locale string) language.Tag {
	tag, err := parseLocale(locale)
	if err != nil {
		return language.Make(DefaultLocale)
	}
	return tag
}

// formatNumber renders value with a fixed number of decimals using the
// locale's grouping and decimal separators (1.234.567,89 for id).
func formatNumber(value float64, decimals int, locale string) string {
	p := message.NewPrinter(localeTag(locale))
	return p.Sprint(number.Decimal(value, number.Scale(decimals)))
}

// toNumber converts various types to float64
func toNumber(val any) (float64, error) {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", v.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("cannot convert %T to number", val)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}
