package stencil

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Common date format patterns that we'll try to parse
var commonDateFormats = []string{
	// ISO and RFC formats
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",

	// Common formats
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"2.1.2006",
	"02.01.2006",

	// Other formats
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
}

// parseDate accepts time values and date strings. Numbers are rejected.
func parseDate(value any) (time.Time, error) {
	if value == nil {
		return time.Time{}, fmt.Errorf("cannot parse nil as date")
	}

	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot parse nil time pointer")
		}
		return *v, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		// JSON and YAML decode an unquoted 20240301 as a number.
		return time.Time{}, fmt.Errorf("cannot parse number %v as date, use a date string such as 2024-03-01", v)
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, fmt.Errorf("cannot parse empty string as date")
		}

		// Try common formats
		for _, format := range commonDateFormats {
			if parsed, err := time.Parse(format, v); err == nil {
				return parsed, nil
			}
		}

		return time.Time{}, fmt.Errorf("could not parse date string: %s", v)
	default:
		return time.Time{}, fmt.Errorf("cannot parse %T as date", value)
	}
}

// dateToken is one element of a date pattern: a literal or a field token
// such as DD or MMMM.
type dateToken struct {
	literal bool
	text    string
}

// dateFieldWidths lists the accepted repeat counts per pattern letter.
var dateFieldWidths = map[rune][]int{
	'Y': {4, 2},
	'M': {4, 3, 2, 1},
	'D': {2, 1},
	'd': {4, 3},
	'H': {2, 1},
	'm': {2},
	's': {2},
}

// parseDatePattern splits a pattern like "DD MMMM YYYY" into tokens. Text
// in square brackets is literal; any other letter must form a known token.
func parseDatePattern(pattern string) ([]dateToken, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("empty date pattern")
	}

	var tokens []dateToken
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end == len(runes) {
				return nil, fmt.Errorf("unterminated literal in date pattern %q", pattern)
			}
			tokens = append(tokens, dateToken{literal: true, text: string(runes[i+1 : end])})
			i = end + 1
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && runes[j] == r {
				j++
			}
			count := j - i
			widths, ok := dateFieldWidths[r]
			if !ok || !containsInt(widths, count) {
				return nil, fmt.Errorf("unrecognized token %q in date pattern %q", string(runes[i:j]), pattern)
			}
			tokens = append(tokens, dateToken{text: string(runes[i:j])})
			i = j
		default:
			tokens = append(tokens, dateToken{literal: true, text: string(r)})
			i++
		}
	}
	return tokens, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// formatDate renders t according to a pattern, with month and weekday names
// taken from the locale's translation table.
func formatDate(t time.Time, pattern string, locale string) (string, error) {
	tokens, err := parseDatePattern(pattern)
	if err != nil {
		return "", err
	}

	base, _ := localeTag(locale).Base()
	names := getDateTranslations(base.String())
	if names == nil {
		names = &dateTranslations{}
	}
	translate := func(table map[string]string, english string) string {
		if translated, ok := table[english]; ok {
			return translated
		}
		return english
	}

	var sb strings.Builder
	for _, tok := range tokens {
		if tok.literal {
			sb.WriteString(tok.text)
			continue
		}
		switch tok.text {
		case "YYYY":
			fmt.Fprintf(&sb, "%04d", t.Year())
		case "YY":
			fmt.Fprintf(&sb, "%02d", t.Year()%100)
		case "MMMM":
			sb.WriteString(translate(names.months, t.Month().String()))
		case "MMM":
			sb.WriteString(translate(names.monthsShort, t.Format("Jan")))
		case "MM":
			fmt.Fprintf(&sb, "%02d", int(t.Month()))
		case "M":
			fmt.Fprintf(&sb, "%d", int(t.Month()))
		case "DD":
			fmt.Fprintf(&sb, "%02d", t.Day())
		case "D":
			fmt.Fprintf(&sb, "%d", t.Day())
		case "dddd":
			sb.WriteString(translate(names.weekdays, t.Weekday().String()))
		case "ddd":
			sb.WriteString(translate(names.weekdaysShort, t.Format("Mon")))
		case "HH":
			fmt.Fprintf(&sb, "%02d", t.Hour())
		case "H":
			fmt.Fprintf(&sb, "%d", t.Hour())
		case "mm":
			fmt.Fprintf(&sb, "%02d", t.Minute())
		case "ss":
			fmt.Fprintf(&sb, "%02d", t.Second())
		}
	}
	return sb.String(), nil
}

type dateTranslations struct {
	months        map[string]string
	monthsShort   map[string]string
	weekdays      map[string]string
	weekdaysShort map[string]string
}

func getDateTranslations(lang string) *dateTranslations {
	switch lang {
	case "id": // Indonesian
		return &dateTranslations{
			months: map[string]string{
				"January": "Januari", "February": "Februari", "March": "Maret",
				"April": "April", "May": "Mei", "June": "Juni",
				"July": "Juli", "August": "Agustus", "September": "September",
				"October": "Oktober", "November": "November", "December": "Desember",
			},
			monthsShort: map[string]string{
				"Jan": "Jan", "Feb": "Feb", "Mar": "Mar",
				"Apr": "Apr", "May": "Mei", "Jun": "Jun",
				"Jul": "Jul", "Aug": "Agu", "Sep": "Sep",
				"Oct": "Okt", "Nov": "Nov", "Dec": "Des",
			},
			weekdays: map[string]string{
				"Monday": "Senin", "Tuesday": "Selasa", "Wednesday": "Rabu",
				"Thursday": "Kamis", "Friday": "Jumat",
				"Saturday": "Sabtu", "Sunday": "Minggu",
			},
			weekdaysShort: map[string]string{
				"Mon": "Sen", "Tue": "Sel", "Wed": "Rab",
				"Thu": "Kam", "Fri": "Jum", "Sat": "Sab", "Sun": "Min",
			},
		}

	case "de": // German
		return &dateTranslations{
			months: map[string]string{
				"January": "Januar", "February": "Februar", "March": "März",
				"April": "April", "May": "Mai", "June": "Juni",
				"July": "Juli", "August": "August", "September": "September",
				"October": "Oktober", "November": "November", "December": "Dezember",
			},
			monthsShort: map[string]string{
				"Jan": "Jan", "Feb": "Feb", "Mar": "Mär",
				"Apr": "Apr", "May": "Mai", "Jun": "Jun",
				"Jul": "Jul", "Aug": "Aug", "Sep": "Sep",
				"Oct": "Okt", "Nov": "Nov", "Dec": "Dez",
			},
			weekdays: map[string]string{
				"Monday": "Montag", "Tuesday": "Dienstag", "Wednesday": "Mittwoch",
				"Thursday": "Donnerstag", "Friday": "Freitag",
				"Saturday": "Samstag", "Sunday": "Sonntag",
			},
			weekdaysShort: map[string]string{
				"Mon": "Mo", "Tue": "Di", "Wed": "Mi",
				"Thu": "Do", "Fri": "Fr", "Sat": "Sa", "Sun": "So",
			},
		}

	case "fr": // French
		return &dateTranslations{
			months: map[string]string{
				"January": "janvier", "February": "février", "March": "mars",
				"April": "avril", "May": "mai", "June": "juin",
				"July": "juillet", "August": "août", "September": "septembre",
				"October": "octobre", "November": "novembre", "December": "décembre",
			},
			monthsShort: map[string]string{
				"Jan": "jan", "Feb": "fév", "Mar": "mar",
				"Apr": "avr", "May": "mai", "Jun": "juin",
				"Jul": "juil", "Aug": "août", "Sep": "sep",
				"Oct": "oct", "Nov": "nov", "Dec": "déc",
			},
			weekdays: map[string]string{
				"Monday": "lundi", "Tuesday": "mardi", "Wednesday": "mercredi",
				"Thursday": "jeudi", "Friday": "vendredi",
				"Saturday": "samedi", "Sunday": "dimanche",
			},
			weekdaysShort: map[string]string{
				"Mon": "lun", "Tue": "mar", "Wed": "mer",
				"Thu": "jeu", "Fri": "ven", "Sat": "sam", "Sun": "dim",
			},
		}

	case "es": // Spanish
		return &dateTranslations{
			months: map[string]string{
				"January": "enero", "February": "febrero", "March": "marzo",
				"April": "abril", "May": "mayo", "June": "junio",
				"July": "julio", "August": "agosto", "September": "septiembre",
				"October": "octubre", "November": "noviembre", "December": "diciembre",
			},
			monthsShort: map[string]string{
				"Jan": "ene", "Feb": "feb", "Mar": "mar",
				"Apr": "abr", "May": "may", "Jun": "jun",
				"Jul": "jul", "Aug": "ago", "Sep": "sep",
				"Oct": "oct", "Nov": "nov", "Dec": "dic",
			},
			weekdays: map[string]string{
				"Monday": "lunes", "Tuesday": "martes", "Wednesday": "miércoles",
				"Thursday": "jueves", "Friday": "viernes",
				"Saturday": "sábado", "Sunday": "domingo",
			},
			weekdaysShort: map[string]string{
				"Mon": "lun", "Tue": "mar", "Wed": "mié",
				"Thu": "jue", "Fri": "vie", "Sat": "sáb", "Sun": "dom",
			},
		}

	case "it": // Italian
		return &dateTranslations{
			months: map[string]string{
				"January": "gennaio", "February": "febbraio", "March": "marzo",
				"April": "aprile", "May": "maggio", "June": "giugno",
				"July": "luglio", "August": "agosto", "September": "settembre",
				"October": "ottobre", "November": "novembre", "December": "dicembre",
			},
			monthsShort: map[string]string{
				"Jan": "gen", "Feb": "feb", "Mar": "mar",
				"Apr": "apr", "May": "mag", "Jun": "giu",
				"Jul": "lug", "Aug": "ago", "Sep": "set",
				"Oct": "ott", "Nov": "nov", "Dec": "dic",
			},
			weekdays: map[string]string{
				"Monday": "lunedì", "Tuesday": "martedì", "Wednesday": "mercoledì",
				"Thursday": "giovedì", "Friday": "venerdì",
				"Saturday": "sabato", "Sunday": "domenica",
			},
			weekdaysShort: map[string]string{
				"Mon": "lun", "Tue": "mar", "Wed": "mer",
				"Thu": "gio", "Fri": "ven", "Sat": "sab", "Sun": "dom",
			},
		}

	default:
		return nil
	}
}
