package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/models/dtos"
	gormModels "forecast-ingest/edi/internal/models/gorm"

	"golang.org/x/sync/singleflight"
)

// CustomerConfigStore is the persistence the resolver reads from
type CustomerConfigStore interface {
	// FindPartner looks a partner up by code or numeric id; nil, nil when unknown
	FindPartner(ctx context.Context, identifier string) (*gormModels.TradingPartner, error)
	// GetCustomerConfig returns the partner's raw documents; nil, nil when none are stored
	GetCustomerConfig(ctx context.Context, partnerID uint) (*gormModels.CustomerConfig, error)
}

///////////////////////////////////////////////////////////////////////////////
// Documented defaults
///////////////////////////////////////////////////////////////////////////////

const (
	DefaultOrganization = "DEFAULT"
	DefaultSupplier     = "DEFAULT"
	DefaultUOM          = "EA"
	DefaultDateFormat   = "MM/DD/YYYY"
)

// DefaultDateParsingFormats is tried in order when a partner configures none
var DefaultDateParsingFormats = []string{"MM/DD/YYYY", "M/D/YYYY", "YYYY-MM-DD"}

func defaultFieldMappings() dtos.FieldMappings {
	return dtos.FieldMappings{
		PONumber:         constants.HeaderPONumber,
		SupplierItem:     constants.HeaderSupplierItem,
		Description:      constants.HeaderItemDescription,
		QuantityOrdered:  constants.HeaderQuantityOrdered,
		PromisedDate:     constants.HeaderPromisedDate,
		ShipToLocation:   constants.HeaderShipToLocation,
		QuantityReceived: constants.HeaderQuantityReceived,
		NeedByDate:       constants.HeaderNeedByDate,
		UOM:              constants.HeaderUOM,
		Organization:     constants.HeaderOrganization,
		Supplier:         constants.HeaderSupplier,
		CustomerItem:     constants.HeaderItemNumber,
	}
}

func defaultBusinessRules() dtos.BusinessRules {
	return dtos.BusinessRules{
		POParsingRule:            constants.POParsingSplitOnDash,
		DateParsingFormats:       append([]string(nil), DefaultDateParsingFormats...),
		LocationMappingType:      constants.LocationMappingDescription,
		ContainerCalculationRule: constants.ContainerRoundUp,
		DefaultLeadTimeDays:      0,
	}
}

func defaultTransportConfig() dtos.CommunicationConfig {
	return dtos.CommunicationConfig{
		Protocol:       "sftp",
		Port:           22,
		InboxPath:      "/inbox",
		OutboxPath:     "/outbox",
		FilePattern:    "*",
		RetryAttempts:  3,
		TimeoutSeconds: 30,
	}
}

// DefaultCustomerConfig is returned whenever a partner's configuration cannot be loaded
func DefaultCustomerConfig() *dtos.CustomerConfig {
	return &dtos.CustomerConfig{
		IsDefault:     true,
		FieldMappings: defaultFieldMappings(),
		Defaults: dtos.ConfigDefaults{
			Organization: DefaultOrganization,
			Supplier:     DefaultSupplier,
			UOM:          DefaultUOM,
			DateFormat:   DefaultDateFormat,
			POFormat:     constants.POParsingSplitOnDash,
		},
		BusinessRules: defaultBusinessRules(),
		Transport:     defaultTransportConfig(),
		Template:      map[string]interface{}{},
	}
}

///////////////////////////////////////////////////////////////////////////////
// Service
///////////////////////////////////////////////////////////////////////////////

// CustomerConfigService resolves per-partner configuration with defaults merged in.
// Lookup failures degrade to DefaultCustomerConfig rather than failing ingestion.
type CustomerConfigService struct {
	store   CustomerConfigStore
	cache   CacheInterface
	group   singleflight.Group
	metrics *metrics.MetricsRegistry
}

func NewCustomerConfigService(store CustomerConfigStore, cache CacheInterface) *CustomerConfigService {
	if cache == nil {
		cache = NewCacheService(0, 0)
	}
	return &CustomerConfigService{store: store, cache: cache}
}

// SetMetrics attaches cache hit/miss counters
func (s *CustomerConfigService) SetMetrics(m *metrics.MetricsRegistry) {
	s.metrics = m
}

func configCacheKey(partner string) string {
	return string(constants.CachePrefixCustomerConfig) + strings.ToUpper(strings.TrimSpace(partner))
}

// Resolve returns the partner's configuration. It never returns nil and never errors.
func (s *CustomerConfigService) Resolve(ctx context.Context, partner string) *dtos.CustomerConfig {
	key := configCacheKey(partner)
	if cfg, ok := s.fromCache(key); ok {
		s.metrics.ObserveConfigCache(true)
		return cfg
	}
	s.metrics.ObserveConfigCache(false)

	val, _, _ := s.group.Do(key, func() (interface{}, error) {
		cfg, err := s.load(ctx, partner)
		if err != nil {
			logging.Warn("Customer config unavailable, using defaults",
				"partner", partner,
				"error", err.Error(),
			)
			return DefaultCustomerConfig(), nil
		}
		if payload, err := json.Marshal(cfg); err == nil {
			s.cache.Set(key, payload, NoExpiration)
		}
		return cfg, nil
	})

	return val.(*dtos.CustomerConfig)
}

// ResolveByID is Resolve for a numeric partner id
func (s *CustomerConfigService) ResolveByID(ctx context.Context, partnerID uint) *dtos.CustomerConfig {
	return s.Resolve(ctx, strconv.FormatUint(uint64(partnerID), 10))
}

func (s *CustomerConfigService) fromCache(key string) (*dtos.CustomerConfig, bool) {
	payload, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	var cfg dtos.CustomerConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		s.cache.Delete(key)
		return nil, false
	}
	return &cfg, true
}

func (s *CustomerConfigService) load(ctx context.Context, partner string) (*dtos.CustomerConfig, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no configuration store")
	}

	tp, err := s.store.FindPartner(ctx, partner)
	if err != nil {
		return nil, fmt.Errorf("failed to look up partner: %w", err)
	}
	if tp == nil {
		return nil, fmt.Errorf("unknown partner %q", partner)
	}

	cfg := DefaultCustomerConfig()
	cfg.IsDefault = false
	cfg.PartnerID = tp.ID
	cfg.PartnerCode = tp.Code

	raw, err := s.store.GetCustomerConfig(ctx, tp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer config: %w", err)
	}
	if raw == nil {
		logging.Info("No customer config stored, partner uses defaults", "partner", tp.Code)
		return cfg, nil
	}

	applyFieldMappings(cfg, tp.Code, raw.FieldMappings)
	applyBusinessRules(cfg, tp.Code, raw.BusinessRules)
	applyCommunicationConfig(cfg, tp.Code, raw.CommunicationConfig)
	applyTemplateConfig(cfg, tp.Code, raw.TemplateConfig)

	return cfg, nil
}

// Invalidate drops the cached entry for partner, under both its code and its id
func (s *CustomerConfigService) Invalidate(partner string) {
	key := configCacheKey(partner)
	if cfg, ok := s.fromCache(key); ok && !cfg.IsDefault {
		s.cache.Delete(configCacheKey(cfg.PartnerCode))
		s.cache.Delete(configCacheKey(strconv.FormatUint(uint64(cfg.PartnerID), 10)))
	}
	s.cache.Delete(key)
}

// ClearAll empties the resolver cache
func (s *CustomerConfigService) ClearAll() {
	s.cache.DeletePrefix(string(constants.CachePrefixCustomerConfig))
}

///////////////////////////////////////////////////////////////////////////////
// Narrow accessors
///////////////////////////////////////////////////////////////////////////////

func (s *CustomerConfigService) FieldMappings(ctx context.Context, partner string) dtos.FieldMappings {
	return s.Resolve(ctx, partner).FieldMappings
}

func (s *CustomerConfigService) Defaults(ctx context.Context, partner string) dtos.ConfigDefaults {
	return s.Resolve(ctx, partner).Defaults
}

func (s *CustomerConfigService) BusinessRules(ctx context.Context, partner string) dtos.BusinessRules {
	return s.Resolve(ctx, partner).BusinessRules
}

func (s *CustomerConfigService) TransportConfig(ctx context.Context, partner string) dtos.CommunicationConfig {
	return s.Resolve(ctx, partner).Transport
}

// TransportTimeout is the configured per-call timeout for the file transport
func (s *CustomerConfigService) TransportTimeout(ctx context.Context, partner string) time.Duration {
	return time.Duration(s.TransportConfig(ctx, partner).TimeoutSeconds) * time.Second
}

func (s *CustomerConfigService) TemplateConfig(ctx context.Context, partner string) map[string]interface{} {
	return s.Resolve(ctx, partner).Template
}

// ParsePONumber applies the partner's po_parsing_rule
func (s *CustomerConfigService) ParsePONumber(ctx context.Context, raw, partner string) (string, *string) {
	return SplitPONumber(raw, s.BusinessRules(ctx, partner).POParsingRule)
}

// ParseDate applies the partner's date_parsing_formats
func (s *CustomerConfigService) ParseDate(ctx context.Context, raw, partner string) (time.Time, error) {
	return ParseDateWithFormats(raw, s.BusinessRules(ctx, partner).DateParsingFormats)
}

///////////////////////////////////////////////////////////////////////////////
// Document parsing
///////////////////////////////////////////////////////////////////////////////

func isEmptyDocument(doc []byte) bool {
	trimmed := strings.TrimSpace(string(doc))
	return trimmed == "" || trimmed == "null" || trimmed == "{}"
}

func normalizeMappingKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	return k
}

// applyFieldMappings validates the raw mapping document once, at load time
func applyFieldMappings(cfg *dtos.CustomerConfig, partner string, doc []byte) {
	if isEmptyDocument(doc) {
		return
	}
	var raw map[string]string
	if err := json.Unmarshal(doc, &raw); err != nil {
		logging.Warn("Malformed field_mappings, using defaults", "partner", partner, "error", err.Error())
		return
	}

	fm := &cfg.FieldMappings
	targets := map[string]*string{
		"po_number":         &fm.PONumber,
		"supplier_item":     &fm.SupplierItem,
		"description":       &fm.Description,
		"item_description":  &fm.Description,
		"quantity_ordered":  &fm.QuantityOrdered,
		"promised_date":     &fm.PromisedDate,
		"ship_to_location":  &fm.ShipToLocation,
		"ship_to":           &fm.ShipToLocation,
		"quantity_received": &fm.QuantityReceived,
		"need_by_date":      &fm.NeedByDate,
		"uom":               &fm.UOM,
		"organization":      &fm.Organization,
		"supplier":          &fm.Supplier,
		"customer_item":     &fm.CustomerItem,
		"item_number":       &fm.CustomerItem,
	}

	for key, column := range raw {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		target, ok := targets[normalizeMappingKey(key)]
		if !ok {
			logging.Warn("Ignoring unknown field mapping", "partner", partner, "field", key)
			continue
		}
		*target = column
	}
}

type rawBusinessRules struct {
	POParsingRule            string   `json:"po_parsing_rule"`
	DateParsingFormats       []string `json:"date_parsing_formats"`
	LocationMappingType      string   `json:"location_mapping_type"`
	ContainerCalculationRule string   `json:"container_calculation_rule"`
	DefaultLeadTimeDays      *int     `json:"default_lead_time_days"`
	DefaultOrganization      string   `json:"default_organization"`
	DefaultSupplier          string   `json:"default_supplier"`
	DefaultUOM               string   `json:"default_uom"`
	DefaultDateFormat        string   `json:"default_date_format"`
}

func applyBusinessRules(cfg *dtos.CustomerConfig, partner string, doc []byte) {
	if isEmptyDocument(doc) {
		return
	}
	var raw rawBusinessRules
	if err := json.Unmarshal(doc, &raw); err != nil {
		logging.Warn("Malformed business_rules, using defaults", "partner", partner, "error", err.Error())
		return
	}

	br := &cfg.BusinessRules
	switch raw.POParsingRule {
	case "":
	case constants.POParsingSplitOnDash, constants.POParsingSplitOnPeriod, constants.POParsingNoSplit:
		br.POParsingRule = raw.POParsingRule
	default:
		logging.Warn("Unknown po_parsing_rule, using default", "partner", partner, "rule", raw.POParsingRule)
	}

	var formats []string
	for _, f := range raw.DateParsingFormats {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	if len(formats) > 0 {
		br.DateParsingFormats = formats
	}

	switch raw.LocationMappingType {
	case "":
	case constants.LocationMappingDescription, constants.LocationMappingCode:
		br.LocationMappingType = raw.LocationMappingType
	default:
		logging.Warn("Unknown location_mapping_type, using default", "partner", partner, "type", raw.LocationMappingType)
	}

	if raw.ContainerCalculationRule != "" {
		br.ContainerCalculationRule = raw.ContainerCalculationRule
	}
	if raw.DefaultLeadTimeDays != nil && *raw.DefaultLeadTimeDays >= 0 {
		br.DefaultLeadTimeDays = *raw.DefaultLeadTimeDays
	}

	d := &cfg.Defaults
	if raw.DefaultOrganization != "" {
		d.Organization = raw.DefaultOrganization
	}
	if raw.DefaultSupplier != "" {
		d.Supplier = raw.DefaultSupplier
	}
	if raw.DefaultUOM != "" {
		d.UOM = raw.DefaultUOM
	}
	if raw.DefaultDateFormat != "" {
		d.DateFormat = raw.DefaultDateFormat
	} else if len(formats) > 0 {
		d.DateFormat = formats[0]
	}
	d.POFormat = br.POParsingRule
}

func applyCommunicationConfig(cfg *dtos.CustomerConfig, partner string, doc []byte) {
	if isEmptyDocument(doc) {
		return
	}
	var raw dtos.CommunicationConfig
	if err := json.Unmarshal(doc, &raw); err != nil {
		logging.Warn("Malformed communication_config, using defaults", "partner", partner, "error", err.Error())
		return
	}

	t := &cfg.Transport
	if raw.Protocol != "" {
		t.Protocol = raw.Protocol
	}
	if raw.Host != "" {
		t.Host = raw.Host
	}
	if raw.Port > 0 {
		t.Port = raw.Port
	}
	if raw.CredentialsRef != "" {
		t.CredentialsRef = raw.CredentialsRef
	}
	if raw.InboxPath != "" {
		t.InboxPath = raw.InboxPath
	}
	if raw.OutboxPath != "" {
		t.OutboxPath = raw.OutboxPath
	}
	if raw.FilePattern != "" {
		t.FilePattern = raw.FilePattern
	}
	if raw.FileNamingConvention != "" {
		t.FileNamingConvention = raw.FileNamingConvention
	}
	if raw.RetryAttempts > 0 {
		t.RetryAttempts = raw.RetryAttempts
	}
	if raw.TimeoutSeconds > 0 {
		t.TimeoutSeconds = raw.TimeoutSeconds
	}
}

func applyTemplateConfig(cfg *dtos.CustomerConfig, partner string, doc []byte) {
	if isEmptyDocument(doc) {
		return
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(doc, &raw); err != nil {
		logging.Warn("Malformed template_config, using defaults", "partner", partner, "error", err.Error())
		return
	}
	cfg.Template = raw
}
