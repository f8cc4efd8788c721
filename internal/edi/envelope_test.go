package edi

import (
	"errors"
	"testing"

	"forecast-ingest/edi/internal/common"
)

const sample830 = "ISA*00*          *00*          *ZZ*ACMEAUTO       *ZZ*SUPPLIER       *240301*1200*U*00401*000000001*0*P*>~" +
	"GS*PS*ACMEAUTO*SUPPLIER*20240301*1200*1*X*004010~" +
	"ST*830*0001~" +
	"BSS*05*REF1*20240301*DL*20240301*20240601****A~" +
	"FST*100*C*D*20240315~" +
	"SSD*1067045-002*PN-100*PLANT 1~" +
	"SE*5*0001~" +
	"GE*1*1~" +
	"IEA*1*000000001~"

func TestTokenize_SplitsAndTrims(t *testing.T) {
	raw := "ST*830*0001~\r\n  BSS*05*REF~~\n  ~SE*2*0001~"
	segs := Tokenize(raw, DefaultDelimiters)

	if len(segs) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segs))
	}
	if segs[1].Tag != "BSS" {
		t.Errorf("Expected BSS, got %s", segs[1].Tag)
	}
	if segs[1].Element(2) != "REF" {
		t.Errorf("Expected element 2 REF, got %q", segs[1].Element(2))
	}
	if segs[1].Element(9) != "" {
		t.Errorf("Expected empty out-of-range element, got %q", segs[1].Element(9))
	}
}

func TestDetectDelimiters_FromISAHeader(t *testing.T) {
	d := DetectDelimiters(sample830)
	if d.Element != '*' || d.Segment != '~' {
		t.Errorf("Expected * and ~, got %q and %q", d.Element, d.Segment)
	}

	if got := DetectDelimiters("ST*830"); got != DefaultDelimiters {
		t.Errorf("Expected defaults without ISA, got %+v", got)
	}
}

func TestValidateEnvelope_MissingGS(t *testing.T) {
	raw := "ISA*00*x~ST*830*0001~FST*10*C*D*20240315~SE*3*0001~"
	_, err := ValidateEnvelope(Tokenize(raw, DefaultDelimiters), "830")

	var structural *common.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("Expected StructuralError, got %v", err)
	}
	if len(structural.Missing) != 1 || structural.Missing[0] != "GS" {
		t.Errorf("Expected missing [GS], got %v", structural.Missing)
	}
}

func TestValidateEnvelope_UnexpectedTypeIsWarning(t *testing.T) {
	raw := "ISA*00~GS*PS~ST*866*0001~SE*2*0001~"
	warnings, err := ValidateEnvelope(Tokenize(raw, DefaultDelimiters), "830", "862")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("Expected 1 warning, got %d", len(warnings))
	}
}

func TestExtractTransactionSets(t *testing.T) {
	raw := "ISA*00~GS*PS~" +
		"BSS*stray~" +
		"ST*830*0001~FST*1*C*D*20240101~SE*3*0001~" +
		"FST*outside~" +
		"ST*830*0002~FST*2*C*D*20240102~FST*3*C*D*20240103~SE*4*0002~" +
		"ST*830*0003~FST*4*C*D*20240104~"
	sets := ExtractTransactionSets(Tokenize(raw, DefaultDelimiters))

	if len(sets) != 2 {
		t.Fatalf("Expected 2 transaction sets, got %d", len(sets))
	}
	if sets[0].ControlNumber != "0001" || len(sets[0].Segments) != 3 {
		t.Errorf("Unexpected first set: %+v", sets[0])
	}
	if sets[1].Segments[0].Tag != SegmentST || sets[1].Segments[len(sets[1].Segments)-1].Tag != SegmentSE {
		t.Errorf("Expected ST..SE boundaries to be included")
	}
	if len(sets[1].Segments) != 4 {
		t.Errorf("Expected 4 segments in second set, got %d", len(sets[1].Segments))
	}
}

func TestReadInterchangeHeader(t *testing.T) {
	header, ok := ReadInterchangeHeader(Tokenize(sample830, DetectDelimiters(sample830)))
	if !ok {
		t.Fatal("Expected ISA header")
	}
	if header.SenderID != "ACMEAUTO" {
		t.Errorf("Expected sender ACMEAUTO, got %q", header.SenderID)
	}
	if header.ControlNumber != "000000001" {
		t.Errorf("Expected control number 000000001, got %q", header.ControlNumber)
	}
}
