package common

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"forecast-ingest/edi/internal/constants"
	gormModels "forecast-ingest/edi/internal/models/gorm"

	"gorm.io/datatypes"
)

type mockConfigStore struct {
	findPartnerFunc       func(ctx context.Context, identifier string) (*gormModels.TradingPartner, error)
	getCustomerConfigFunc func(ctx context.Context, partnerID uint) (*gormModels.CustomerConfig, error)
	loads                 int32
}

func (m *mockConfigStore) FindPartner(ctx context.Context, identifier string) (*gormModels.TradingPartner, error) {
	atomic.AddInt32(&m.loads, 1)
	return m.findPartnerFunc(ctx, identifier)
}

func (m *mockConfigStore) GetCustomerConfig(ctx context.Context, partnerID uint) (*gormModels.CustomerConfig, error) {
	if m.getCustomerConfigFunc == nil {
		return nil, nil
	}
	return m.getCustomerConfigFunc(ctx, partnerID)
}

func acmeStore() *mockConfigStore {
	return &mockConfigStore{
		findPartnerFunc: func(ctx context.Context, identifier string) (*gormModels.TradingPartner, error) {
			if identifier == "ACME" || identifier == "7" {
				return &gormModels.TradingPartner{ID: 7, Code: "ACME"}, nil
			}
			return nil, nil
		},
		getCustomerConfigFunc: func(ctx context.Context, partnerID uint) (*gormModels.CustomerConfig, error) {
			return &gormModels.CustomerConfig{
				PartnerID:     partnerID,
				FieldMappings: datatypes.JSON(`{"PO Number": "Purchase Order", "supplier_item": "Our Part", "bogus": "x"}`),
				BusinessRules: datatypes.JSON(`{"po_parsing_rule": "no_split", "date_parsing_formats": ["DD/MM/YYYY"], "location_mapping_type": "code_based", "default_lead_time_days": 3, "default_uom": "PC"}`),
				CommunicationConfig: datatypes.JSON(`{"host": "sftp.acme.test", "timeout_seconds": 10}`),
				TemplateConfig:      datatypes.JSON(`{"sheet": "Forecast"}`),
			}, nil
		},
	}
}

func TestCustomerConfigService_Resolve_MergesDocuments(t *testing.T) {
	svc := NewCustomerConfigService(acmeStore(), NewCacheService(0, 0))
	cfg := svc.Resolve(context.Background(), "ACME")

	if cfg.IsDefault {
		t.Fatal("Expected partner configuration, got defaults")
	}
	if cfg.PartnerID != 7 {
		t.Errorf("Expected partner id 7, got %d", cfg.PartnerID)
	}
	if cfg.FieldMappings.PONumber != "Purchase Order" {
		t.Errorf("Expected mapped PO column, got %q", cfg.FieldMappings.PONumber)
	}
	if cfg.FieldMappings.SupplierItem != "Our Part" {
		t.Errorf("Expected mapped supplier item column, got %q", cfg.FieldMappings.SupplierItem)
	}
	if cfg.FieldMappings.PromisedDate != constants.HeaderPromisedDate {
		t.Errorf("Expected default promised date column, got %q", cfg.FieldMappings.PromisedDate)
	}
	if cfg.BusinessRules.POParsingRule != constants.POParsingNoSplit {
		t.Errorf("Expected no_split, got %q", cfg.BusinessRules.POParsingRule)
	}
	if cfg.BusinessRules.LocationMappingType != constants.LocationMappingCode {
		t.Errorf("Expected code_based, got %q", cfg.BusinessRules.LocationMappingType)
	}
	if cfg.BusinessRules.DefaultLeadTimeDays != 3 {
		t.Errorf("Expected lead time 3, got %d", cfg.BusinessRules.DefaultLeadTimeDays)
	}
	if cfg.Defaults.UOM != "PC" || cfg.Defaults.Organization != DefaultOrganization {
		t.Errorf("Unexpected defaults %+v", cfg.Defaults)
	}
	if cfg.Transport.Host != "sftp.acme.test" || cfg.Transport.Port != 22 {
		t.Errorf("Unexpected transport %+v", cfg.Transport)
	}
	if svc.TransportTimeout(context.Background(), "ACME").Seconds() != 10 {
		t.Errorf("Expected 10s timeout")
	}
	if cfg.Template["sheet"] != "Forecast" {
		t.Errorf("Expected template sheet, got %v", cfg.Template)
	}
}

func TestCustomerConfigService_Resolve_DefaultsOnFailure(t *testing.T) {
	store := &mockConfigStore{
		findPartnerFunc: func(ctx context.Context, identifier string) (*gormModels.TradingPartner, error) {
			if identifier == "DOWN" {
				return nil, errors.New("connection refused")
			}
			return nil, nil
		},
	}
	svc := NewCustomerConfigService(store, nil)

	for _, partner := range []string{"UNKNOWN", "DOWN"} {
		cfg := svc.Resolve(context.Background(), partner)
		if cfg == nil || !cfg.IsDefault {
			t.Fatalf("Expected default configuration for %s", partner)
		}
		if cfg.BusinessRules.POParsingRule != constants.POParsingSplitOnDash {
			t.Errorf("Expected split_on_dash default, got %q", cfg.BusinessRules.POParsingRule)
		}
		if len(cfg.BusinessRules.DateParsingFormats) != 3 {
			t.Errorf("Expected 3 default date formats, got %v", cfg.BusinessRules.DateParsingFormats)
		}
	}

	// defaults are not cached, so a recovered store is seen on the next call
	svc.Resolve(context.Background(), "UNKNOWN")
	if store.loads != 3 {
		t.Errorf("Expected 3 store lookups, got %d", store.loads)
	}
}

func TestCustomerConfigService_CachesUntilInvalidated(t *testing.T) {
	store := acmeStore()
	svc := NewCustomerConfigService(store, NewCacheService(0, 0))
	ctx := context.Background()

	svc.Resolve(ctx, "ACME")
	svc.Resolve(ctx, "acme")
	if store.loads != 1 {
		t.Fatalf("Expected 1 load with caching, got %d", store.loads)
	}

	svc.ResolveByID(ctx, 7)
	if store.loads != 2 {
		t.Fatalf("Expected id lookup to load once, got %d", store.loads)
	}

	svc.Invalidate("ACME")
	svc.Resolve(ctx, "ACME")
	svc.ResolveByID(ctx, 7)
	if store.loads != 4 {
		t.Errorf("Expected both keys reloaded after Invalidate, got %d loads", store.loads)
	}

	svc.ClearAll()
	svc.Resolve(ctx, "ACME")
	if store.loads != 5 {
		t.Errorf("Expected reload after ClearAll, got %d loads", store.loads)
	}
}

func TestCustomerConfigService_ParseHelpers(t *testing.T) {
	svc := NewCustomerConfigService(acmeStore(), nil)
	ctx := context.Background()

	po, release := svc.ParsePONumber(ctx, "1067045-002", "ACME")
	if po != "1067045-002" || release != nil {
		t.Errorf("Expected no_split for ACME, got %q %v", po, release)
	}

	po, release = svc.ParsePONumber(ctx, "1067045-002", "OTHER")
	if po != "1067045" || release == nil || *release != "002" {
		t.Errorf("Expected default split_on_dash, got %q %v", po, release)
	}

	d, err := svc.ParseDate(ctx, "04/03/2024", "ACME")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.Day() != 4 || d.Month() != 3 {
		t.Errorf("Expected 4 March, got %v", d)
	}
}

func TestCustomerConfigService_MalformedDocumentKeepsDefaults(t *testing.T) {
	store := acmeStore()
	store.getCustomerConfigFunc = func(ctx context.Context, partnerID uint) (*gormModels.CustomerConfig, error) {
		return &gormModels.CustomerConfig{
			PartnerID:     partnerID,
			BusinessRules: datatypes.JSON(`{"po_parsing_rule": `),
		}, nil
	}
	svc := NewCustomerConfigService(store, nil)

	cfg := svc.Resolve(context.Background(), "ACME")
	if cfg.IsDefault {
		t.Error("Expected the partner to resolve even with a malformed document")
	}
	if cfg.BusinessRules.POParsingRule != constants.POParsingSplitOnDash {
		t.Errorf("Expected default rule, got %q", cfg.BusinessRules.POParsingRule)
	}
}
