package edi

import (
	"fmt"

	"forecast-ingest/edi/internal/common"
)

// TransactionSet is one ST..SE bounded run of segments, both boundaries included
type TransactionSet struct {
	Type          string
	ControlNumber string
	Segments      []Segment
}

// InterchangeHeader carries the ISA fields used to identify the sender
type InterchangeHeader struct {
	SenderQualifier   string
	SenderID          string
	ReceiverQualifier string
	ReceiverID        string
	Date              string
	ControlNumber     string
}

// ReadInterchangeHeader returns the first ISA's identification fields, if any
func ReadInterchangeHeader(segments []Segment) (InterchangeHeader, bool) {
	for _, seg := range segments {
		if seg.Tag != SegmentISA {
			continue
		}
		return InterchangeHeader{
			SenderQualifier:   seg.Element(5),
			SenderID:          seg.Element(6),
			ReceiverQualifier: seg.Element(7),
			ReceiverID:        seg.Element(8),
			Date:              seg.Element(9),
			ControlNumber:     seg.Element(13),
		}, true
	}
	return InterchangeHeader{}, false
}

// ValidateEnvelope requires ISA, GS and ST to be present somewhere in segments.
// An ST naming a type outside expectedTypes produces a warning, not an error.
func ValidateEnvelope(segments []Segment, expectedTypes ...string) ([]string, error) {
	seen := map[string]bool{}
	var warnings []string

	for i, seg := range segments {
		switch seg.Tag {
		case SegmentISA, SegmentGS:
			seen[seg.Tag] = true
		case SegmentST:
			seen[SegmentST] = true
			txType := seg.Element(1)
			if len(expectedTypes) > 0 && !contains(expectedTypes, txType) {
				warnings = append(warnings,
					fmt.Sprintf("segment %d: transaction type %q is not one of %v, processing anyway", i, txType, expectedTypes))
			}
		}
	}

	var missing []string
	for _, tag := range []string{SegmentISA, SegmentGS, SegmentST} {
		if !seen[tag] {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return warnings, &common.StructuralError{Missing: missing}
	}

	return warnings, nil
}

// ExtractTransactionSets scans linearly: ST opens a set and SE closes it.
// Segments outside an open set are discarded, and a trailing ST without SE
// yields nothing. An ST arriving while a set is open restarts the set.
func ExtractTransactionSets(segments []Segment) []TransactionSet {
	var (
		sets    []TransactionSet
		current *TransactionSet
	)

	for _, seg := range segments {
		switch {
		case seg.Tag == SegmentST:
			current = &TransactionSet{
				Type:          seg.Element(1),
				ControlNumber: seg.Element(2),
				Segments:      []Segment{seg},
			}
		case current == nil:
			continue
		case seg.Tag == SegmentSE:
			current.Segments = append(current.Segments, seg)
			sets = append(sets, *current)
			current = nil
		default:
			current.Segments = append(current.Segments, seg)
		}
	}

	return sets
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
