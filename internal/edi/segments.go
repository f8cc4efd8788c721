// Package edi tokenizes X12 interchanges and extracts their transaction sets.
// Only the envelope and the forecast/ship-schedule segments are understood.
package edi

import (
	"strings"
)

const (
	SegmentISA = "ISA"
	SegmentGS  = "GS"
	SegmentST  = "ST"
	SegmentSE  = "SE"
	SegmentGE  = "GE"
	SegmentIEA = "IEA"

	isaByteCount             = 106
	isaElementSeparatorIndex = 3
)

// Delimiters are the two single-character separators of an interchange
type Delimiters struct {
	Segment byte
	Element byte
}

// DefaultDelimiters is the conventional ~ / * pair
var DefaultDelimiters = Delimiters{Segment: '~', Element: '*'}

// Segment is one tagged record; Elements[0] is the tag itself
type Segment struct {
	Tag      string
	Elements []string
}

// Element returns element i (0 is the tag), trimmed, or "" when absent
func (s Segment) Element(i int) string {
	if i < 0 || i >= len(s.Elements) {
		return ""
	}
	return strings.TrimSpace(s.Elements[i])
}

// Len is the number of elements including the tag
func (s Segment) Len() int {
	return len(s.Elements)
}

// DetectDelimiters reads the separators from a fixed-width ISA header and
// falls back to DefaultDelimiters when the header is absent or short
func DetectDelimiters(raw string) Delimiters {
	trimmed := strings.TrimLeft(raw, " \t\r\n\uFEFF")
	if !strings.HasPrefix(trimmed, SegmentISA) || len(trimmed) < isaByteCount {
		return DefaultDelimiters
	}

	d := Delimiters{
		Element: trimmed[isaElementSeparatorIndex],
		Segment: trimmed[isaByteCount-1],
	}
	// Some partners terminate with a bare newline after the ISA
	if d.Segment == '\r' || d.Segment == '\n' {
		d.Segment = '\n'
	}
	if d.Element == d.Segment || isAlphaNumeric(d.Element) || isAlphaNumeric(d.Segment) {
		return DefaultDelimiters
	}
	return d
}

func isAlphaNumeric(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// Tokenize splits raw on the segment terminator, trims, drops empties and
// splits each segment on the element separator
func Tokenize(raw string, d Delimiters) []Segment {
	parts := strings.Split(raw, string(d.Segment))
	segments := make([]Segment, 0, len(parts))

	for _, part := range parts {
		part = strings.Trim(part, " \t\r\n\uFEFF")
		if part == "" {
			continue
		}
		elements := strings.Split(part, string(d.Element))
		segments = append(segments, Segment{
			Tag:      strings.ToUpper(strings.TrimSpace(elements[0])),
			Elements: elements,
		})
	}

	return segments
}
