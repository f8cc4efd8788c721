package dtos

import (
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalDeliveryLine is the partner-agnostic record both ingestion paths produce
type CanonicalDeliveryLine struct {
	PartnerID         uint            `json:"partner_id"`
	PONumber          string          `json:"po_number"`
	ReleaseNumber     *string         `json:"release_number,omitempty"`
	POLine            string          `json:"po_line"`
	SupplierItem      string          `json:"supplier_item"`
	CustomerItem      string          `json:"customer_item,omitempty"`
	Description       string          `json:"description"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	PromisedDate      time.Time       `json:"promised_date"`
	NeedByDate        *time.Time      `json:"need_by_date,omitempty"`
	ShipToLocationID  *uint           `json:"ship_to_location_id,omitempty"`
	ShipToDescription string          `json:"ship_to_description"`
	UOM               string          `json:"uom"`
	Organization      string          `json:"organization"`
	Supplier          string          `json:"supplier"`
}

// BuildPOLine renders the composite po_line key: po[-release]-item
func (l *CanonicalDeliveryLine) BuildPOLine() string {
	key := l.PONumber
	if l.ReleaseNumber != nil && *l.ReleaseNumber != "" {
		key += "-" + *l.ReleaseNumber
	}
	return key + "-" + l.SupplierItem
}

// ApplyDefaults fills organization, supplier and uom when the source left them blank
func (l *CanonicalDeliveryLine) ApplyDefaults(d ConfigDefaults) {
	if l.Organization == "" {
		l.Organization = d.Organization
	}
	if l.Supplier == "" {
		l.Supplier = d.Supplier
	}
	if l.UOM == "" {
		l.UOM = d.UOM
	}
	l.POLine = l.BuildPOLine()
}
