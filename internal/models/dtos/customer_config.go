package dtos

// CustomerConfig is the fully defaulted, typed view of one partner's configuration
type CustomerConfig struct {
	PartnerID     uint                   `json:"partner_id"`
	PartnerCode   string                 `json:"partner_code"`
	IsDefault     bool                   `json:"is_default"`
	FieldMappings FieldMappings          `json:"field_mappings"`
	Defaults      ConfigDefaults         `json:"defaults"`
	BusinessRules BusinessRules          `json:"business_rules"`
	Transport     CommunicationConfig    `json:"communication_config"`
	Template      map[string]interface{} `json:"template_config"`
}

// FieldMappings maps each canonical field to the partner's column or segment label
type FieldMappings struct {
	PONumber         string `json:"po_number"`
	SupplierItem     string `json:"supplier_item"`
	Description      string `json:"description"`
	QuantityOrdered  string `json:"quantity_ordered"`
	PromisedDate     string `json:"promised_date"`
	ShipToLocation   string `json:"ship_to_location"`
	QuantityReceived string `json:"quantity_received"`
	NeedByDate       string `json:"need_by_date"`
	UOM              string `json:"uom"`
	Organization     string `json:"organization"`
	Supplier         string `json:"supplier"`
	CustomerItem     string `json:"customer_item"`
}

// ConfigDefaults are applied to lines whose source omitted the value
type ConfigDefaults struct {
	Organization string `json:"organization"`
	Supplier     string `json:"supplier"`
	UOM          string `json:"uom"`
	DateFormat   string `json:"date_format"`
	POFormat     string `json:"po_format"`
}

// BusinessRules parameterize PO decomposition, date parsing and ship-to resolution
type BusinessRules struct {
	POParsingRule            string   `json:"po_parsing_rule"`
	DateParsingFormats       []string `json:"date_parsing_formats"`
	LocationMappingType      string   `json:"location_mapping_type"`
	ContainerCalculationRule string   `json:"container_calculation_rule"`
	DefaultLeadTimeDays      int      `json:"default_lead_time_days"`
}

// CommunicationConfig describes how the partner's files are fetched
type CommunicationConfig struct {
	Protocol             string `json:"protocol"`
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	CredentialsRef       string `json:"credentials_ref"`
	InboxPath            string `json:"inbox_path"`
	OutboxPath           string `json:"outbox_path"`
	FilePattern          string `json:"file_pattern"`
	FileNamingConvention string `json:"file_naming_convention"`
	RetryAttempts        int    `json:"retry_attempts"`
	TimeoutSeconds       int    `json:"timeout_seconds"`
}
