package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/constants"
	gormModels "forecast-ingest/edi/internal/models/gorm"

	"github.com/shopspring/decimal"
)

const testISA = "ISA*00*          *00*          *ZZ*ACMEAUTO       *ZZ*SUPPLIER       *240301*1200*U*00401*000000001*0*P*>~"

func interchange(body string) string {
	return testISA +
		"GS*PS*ACMEAUTO*SUPPLIER*20240301*1200*1*X*004010~" +
		"ST*830*0001~" +
		"BSS*05*REF1*20240301*DL*20240301*20240601****A~" +
		body +
		"SE*9*0001~" +
		"GE*1*1~" +
		"IEA*1*000000001~"
}

func TestForecastEDIService_ProcessInterchange_Idempotent(t *testing.T) {
	ts := newTestServices(t)
	partner := seedPartner(t, ts.db, nil)
	raw := interchange(
		"FST*100*C*D*20240315~SSD*1067045-002*PN-100*PLANT 1~" +
			"FST*50*C*D*240322~SSD*1067045-002*PN-100*PLANT 1~")

	result, err := ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "forecast.830")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Processed != 2 || result.Inserted != 2 || result.Updated != 0 {
		t.Fatalf("Unexpected first result %+v", result)
	}
	if result.PartnerID != partner.ID {
		t.Errorf("Expected partner %d, got %d", partner.ID, result.PartnerID)
	}

	result, err = ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "forecast.830")
	if err != nil {
		t.Fatalf("Expected no error on re-import, got %v", err)
	}
	if result.Inserted != 0 || result.Updated != 2 {
		t.Errorf("Expected 2 updates on re-import, got %+v", result)
	}
	if n := countSchedules(t, ts.db); n != 2 {
		t.Errorf("Expected 2 schedules, got %d", n)
	}

	var schedule gormModels.DeliverySchedule
	ts.db.Where("promised_date = ?", time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC)).First(&schedule)
	if schedule.PONumber != "1067045" || schedule.ReleaseNumber == nil || *schedule.ReleaseNumber != "002" {
		t.Errorf("Expected PO 1067045 release 002, got %s %v", schedule.PONumber, schedule.ReleaseNumber)
	}
	if schedule.ShipToLocationID == nil {
		t.Error("Expected ship-to to resolve by description")
	}
	if schedule.Organization != common.DefaultOrganization || schedule.UOM != common.DefaultUOM {
		t.Errorf("Expected partner defaults applied, got %s %s", schedule.Organization, schedule.UOM)
	}
	if !schedule.QuantityOrdered.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected quantity 50, got %s", schedule.QuantityOrdered)
	}
}

func TestForecastEDIService_MissingGS_NoRows(t *testing.T) {
	ts := newTestServices(t)
	seedPartner(t, ts.db, nil)
	raw := testISA + "ST*830*0001~FST*100*C*D*20240315~SSD*1067045*PN-100~SE*4*0001~"

	result, err := ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "bad.830")

	var structural *common.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("Expected StructuralError, got %v", err)
	}
	if result.Inserted != 0 {
		t.Errorf("Expected nothing inserted, got %d", result.Inserted)
	}
	if n := countSchedules(t, ts.db); n != 0 {
		t.Errorf("Expected 0 schedules, got %d", n)
	}
}

func TestForecastEDIService_ShortFSTIsSkipped(t *testing.T) {
	ts := newTestServices(t)
	seedPartner(t, ts.db, nil)
	raw := interchange(
		"FST*100*C*D*20240315~SSD*1067045*PN-100~" +
			"FST*25*C~SSD*1067045*PN-999~" +
			"FST*abc*C*D*20240401~" +
			"FST*75*C*D*20240329~SSD*1067045*PN-100~")

	result, err := ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "short.830")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Processed != 4 {
		t.Errorf("Expected 4 FST lines seen, got %d", result.Processed)
	}
	if result.Inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", result.Inserted)
	}
	if result.Skipped != 2 || len(result.Errors) != 2 {
		t.Errorf("Expected 2 skipped segment errors, got skipped=%d errors=%v", result.Skipped, result.Errors)
	}
	if result.Processed != result.Inserted+result.Updated+result.Skipped {
		t.Errorf("Expected rejected lines counted once in the totals, got %+v", result)
	}
	for _, e := range result.Errors {
		if e.Code != constants.ErrCodeSegment {
			t.Errorf("Expected segment error code, got %s", e.Code)
		}
	}

	var n int64
	ts.db.Model(&gormModels.DeliverySchedule{}).Where("supplier_item = ?", "PN-999").Count(&n)
	if n != 0 {
		t.Error("Expected SSD after a rejected FST to have no effect")
	}
}

func TestForecastEDIService_LinesWithoutDetailAreSkipped(t *testing.T) {
	ts := newTestServices(t)
	seedPartner(t, ts.db, nil)
	raw := interchange(
		"SSD*ORPHAN*PN-1~" +
			"FST*10*C*D*20240315~" +
			"LIN**BP*CUST-1*VP*PN-200~FST*5*C*D*20240401~SSD*777~")

	result, err := ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "lin.830")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Inserted != 1 || result.Skipped != 1 {
		t.Fatalf("Expected 1 inserted and 1 skipped, got %+v", result)
	}

	var schedule gormModels.DeliverySchedule
	ts.db.First(&schedule)
	if schedule.SupplierItem != "PN-200" || schedule.CustomerItem != "CUST-1" {
		t.Errorf("Expected LIN item context, got %s / %s", schedule.SupplierItem, schedule.CustomerItem)
	}
	if schedule.PONumber != "777" {
		t.Errorf("Expected PO 777, got %s", schedule.PONumber)
	}
}

func TestForecastEDIService_MalformedDateFallsBackToToday(t *testing.T) {
	ts := newTestServices(t)
	seedPartner(t, ts.db, nil)
	fixed := time.Date(2024, time.May, 20, 9, 30, 0, 0, time.UTC)
	ts.edi.now = func() time.Time { return fixed }

	raw := interchange("FST*10*C*D*2024031~SSD*1067045*PN-100~")
	result, err := ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "date.830")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Expected a date warning, got %v", result.Warnings)
	}

	var schedule gormModels.DeliverySchedule
	ts.db.First(&schedule)
	if !schedule.PromisedDate.Equal(time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected today's date, got %v", schedule.PromisedDate)
	}
}

func TestForecastEDIService_ProcessFile_ResolvesSender(t *testing.T) {
	ts := newTestServices(t)
	partner := seedPartner(t, ts.db, nil)

	path := filepath.Join(t.TempDir(), "inbound.x12")
	raw := interchange("FST*100*C*D*20240315~SSD*1067045*PN-100*PLANT 1~")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	result, err := ts.edi.ProcessFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.PartnerID != partner.ID || result.Inserted != 1 {
		t.Errorf("Expected sender resolution to ACME, got %+v", result)
	}
	if result.Source != "inbound.x12" {
		t.Errorf("Expected source inbound.x12, got %s", result.Source)
	}
}

func TestForecastEDIService_UnknownPartner(t *testing.T) {
	ts := newTestServices(t)
	raw := interchange("FST*100*C*D*20240315~SSD*1067045*PN-100~")

	_, err := ts.edi.ProcessInterchange(context.Background(), raw, "NOBODY", "x.830")
	if !errors.Is(err, ErrUnknownPartner) {
		t.Errorf("Expected ErrUnknownPartner, got %v", err)
	}
}

func TestDecodeInterchangeDate(t *testing.T) {
	now := time.Date(2024, time.June, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"20240315", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
		{"240315", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
		{"2403", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), false},
		{"20241345", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		got, ok := decodeInterchangeDate(tt.raw, now)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("decodeInterchangeDate(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestForecastEDIService_PersistenceFailureRollsBackInterchange(t *testing.T) {
	ts := newTestServices(t)
	seedPartner(t, ts.db, nil)
	tx := withFailingStore(ts, 2)

	raw := interchange(
		"FST*100*C*D*20240315~SSD*1067045*PN-100*PLANT 1~" +
			"FST*50*C*D*20240322~SSD*1067046*PN-200*PLANT 1~")

	_, err := ts.edi.ProcessInterchange(context.Background(), raw, "ACME", "forecast.830")
	var persistence *common.PersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
	if !errors.Is(err, errConnectionReset) {
		t.Errorf("Expected the store error to be wrapped, got %v", err)
	}
	if tx.creates != 2 {
		t.Errorf("Expected the second insert to fail, got %d inserts", tx.creates)
	}
	if n := countSchedules(t, ts.db); n != 0 {
		t.Errorf("Expected the first line rolled back, got %d schedules", n)
	}
	if n := countParts(t, ts.db); n != 0 {
		t.Errorf("Expected auto-detected parts rolled back, got %d", n)
	}
}
