package common

import (
	"errors"
	"testing"
	"time"

	"forecast-ingest/edi/internal/constants"
)

func TestSplitPONumber(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		rule        string
		wantPO      string
		wantRelease string
		wantNil     bool
	}{
		{"dash with release", "1067045-002", constants.POParsingSplitOnDash, "1067045", "002", false},
		{"dash without release", "1067045", constants.POParsingSplitOnDash, "1067045", "", true},
		{"dash trailing separator", "1067045-", constants.POParsingSplitOnDash, "1067045", "", true},
		{"dash splits on first only", "A-1-2", constants.POParsingSplitOnDash, "A", "1-2", false},
		{"period", " 4500.10 ", constants.POParsingSplitOnPeriod, "4500", "10", false},
		{"no split keeps everything", "1067045-002", constants.POParsingNoSplit, "1067045-002", "", true},
		{"unknown rule behaves like dash", "77-1", "bogus", "77", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po, release := SplitPONumber(tt.raw, tt.rule)
			if po != tt.wantPO {
				t.Errorf("Expected po %q, got %q", tt.wantPO, po)
			}
			if tt.wantNil {
				if release != nil {
					t.Errorf("Expected nil release, got %q", *release)
				}
				return
			}
			if release == nil || *release != tt.wantRelease {
				t.Errorf("Expected release %q, got %v", tt.wantRelease, release)
			}
		})
	}
}

func TestParseDateWithFormats_RejectsSpreadsheetSerial(t *testing.T) {
	_, err := ParseDateWithFormats("45000", DefaultDateParsingFormats)

	var dateErr *DateFormatError
	if !errors.As(err, &dateErr) {
		t.Fatalf("Expected DateFormatError, got %v", err)
	}
	if dateErr.Value != "45000" {
		t.Errorf("Expected error to name the input, got %q", dateErr.Value)
	}
}

func TestParseDateWithFormats_FirstRoundTripWins(t *testing.T) {
	got, err := ParseDateWithFormats("3/4/2024", []string{"M/D/YYYY", "MM/DD/YYYY"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParseDateWithFormats_DayFirstPartner(t *testing.T) {
	got, err := ParseDateWithFormats("04/03/2024", []string{"DD/MM/YYYY"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Month() != time.March || got.Day() != 4 {
		t.Errorf("Expected 4 March, got %v", got)
	}
}

func TestParseDateWithFormats_StrftimeAndFallback(t *testing.T) {
	got, err := ParseDateWithFormats("2024-03-15", []string{"%d.%m.%Y"})
	if err != nil {
		t.Fatalf("Expected fallback parse, got %v", err)
	}
	if got.Day() != 15 {
		t.Errorf("Expected day 15, got %d", got.Day())
	}

	got, err = ParseDateWithFormats("15.03.2024", []string{"%d.%m.%Y"})
	if err != nil {
		t.Fatalf("Expected strftime parse, got %v", err)
	}
	if got.Month() != time.March {
		t.Errorf("Expected March, got %v", got.Month())
	}
}

func TestParseDateWithFormats_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "next tuesday", "500"} {
		if _, err := ParseDateWithFormats(raw, DefaultDateParsingFormats); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestToGoLayout(t *testing.T) {
	tests := map[string]string{
		"MM/DD/YYYY": "01/02/2006",
		"M/D/YYYY":   "1/2/2006",
		"YYYY-MM-DD": "2006-01-02",
		"DD-MMM-YY":  "02-Jan-06",
		"%Y%m%d":     "20060102",
		"2006-01-02": "2006-01-02",
	}
	for format, want := range tests {
		if got := ToGoLayout(format); got != want {
			t.Errorf("ToGoLayout(%q) = %q, want %q", format, got, want)
		}
	}
}
