package common

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"forecast-ingest/edi/internal/constants"
)

// Numeric values above this are treated as spreadsheet serial dates and refused
const ambiguousSerialThreshold = 1000

var pureNumeric = regexp.MustCompile(`^\d+(\.\d+)?$`)

// fallbackDateLayouts is the general-purpose parse tried after every configured format
var fallbackDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"2006/1/2",
	"01-02-2006",
	"2006.01.02",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"Mon, 02 Jan 2006",
}

// SplitPONumber decomposes a partner PO string according to rule.
// An unknown rule behaves like split_on_dash.
func SplitPONumber(raw, rule string) (string, *string) {
	trimmed := strings.TrimSpace(raw)

	var sep string
	switch rule {
	case constants.POParsingNoSplit:
		return trimmed, nil
	case constants.POParsingSplitOnPeriod:
		sep = "."
	default:
		sep = "-"
	}

	po, release, found := strings.Cut(trimmed, sep)
	po = strings.TrimSpace(po)
	if !found {
		return po, nil
	}
	release = strings.TrimSpace(release)
	if release == "" {
		return po, nil
	}
	return po, &release
}

// ParseDateWithFormats parses a partner-native date into a UTC calendar date.
//
// Pure numbers above 1000 are refused outright. Each format is tried in order and
// accepted only when re-rendering the parsed value reproduces raw exactly, so a
// looser layout can never silently accept a different date layout. When no format
// matches, a general-purpose parse over common layouts is attempted.
func ParseDateWithFormats(raw string, formats []string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &DateFormatError{Value: raw, Reason: "empty value"}
	}

	if pureNumeric.MatchString(value) {
		if n, err := strconv.ParseFloat(value, 64); err == nil && n > ambiguousSerialThreshold {
			return time.Time{}, &DateFormatError{Value: raw, Reason: "numeric value looks like a spreadsheet serial date"}
		}
	}

	for _, format := range formats {
		layout := ToGoLayout(format)
		if layout == "" {
			continue
		}
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Format(layout) != value {
			continue
		}
		return truncateToDate(t), nil
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateToDate(t), nil
		}
	}

	return time.Time{}, &DateFormatError{Value: raw, Reason: "no configured or fallback format matched"}
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var strftimeTokens = map[string]string{
	"%Y":  "2006",
	"%y":  "06",
	"%m":  "01",
	"%-m": "1",
	"%d":  "02",
	"%-d": "2",
	"%b":  "Jan",
	"%B":  "January",
	"%a":  "Mon",
	"%H":  "15",
	"%M":  "04",
	"%S":  "05",
	"%%":  "%",
}

// longest first so YYYY wins over YY and MMM over MM
var patternTokens = []struct{ token, layout string }{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
	{"M", "1"},
	{"D", "2"},
}

// ToGoLayout converts a configured date format to a Go reference layout.
// Accepted notations: YYYY/MM/DD style tokens, strftime directives, or a Go layout.
func ToGoLayout(format string) string {
	if format == "" {
		return ""
	}
	if strings.Contains(format, "2006") || strings.Contains(format, "Jan") {
		return format
	}
	if strings.Contains(format, "%") {
		var b strings.Builder
		for i := 0; i < len(format); {
			if format[i] == '%' {
				if i+2 < len(format) && format[i+1] == '-' {
					if l, ok := strftimeTokens[format[i:i+3]]; ok {
						b.WriteString(l)
						i += 3
						continue
					}
				}
				if i+1 < len(format) {
					if l, ok := strftimeTokens[format[i:i+2]]; ok {
						b.WriteString(l)
						i += 2
						continue
					}
				}
			}
			b.WriteByte(format[i])
			i++
		}
		return b.String()
	}

	var b strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, pt := range patternTokens {
			if strings.HasPrefix(format[i:], pt.token) {
				b.WriteString(pt.layout)
				i += len(pt.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}
