package gorm

import (
	"forecast-ingest/edi/internal/constants"
	"time"

	"gorm.io/datatypes"
)

// TradingPartner is provisioned administratively; the ingestion core only reads it
type TradingPartner struct {
	ID        uint                    `gorm:"column:id;primaryKey;autoIncrement"`
	Code      string                  `gorm:"column:code;type:varchar(50);uniqueIndex;not null"`
	Name      string                  `gorm:"column:name"`
	EDIID     string                  `gorm:"column:edi_id;type:varchar(35);index"`
	Protocol  string                  `gorm:"column:protocol;type:varchar(20);default:'sftp'"`
	Status    constants.PartnerStatus `gorm:"column:status;type:varchar(20);default:'active'"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	ShipToLocations []ShipToLocation `gorm:"foreignKey:PartnerID"`
	CustomerConfig  *CustomerConfig  `gorm:"foreignKey:PartnerID"`
}

// TableName specifies the table name for GORM
func (TradingPartner) TableName() string {
	return "trading_partners"
}

// ShipToLocation resolves a partner's free-text ship-to string to a stable id
type ShipToLocation struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PartnerID   uint      `gorm:"column:partner_id;not null;index:idx_ship_to_partner_code;index:idx_ship_to_partner_desc"`
	Code        string    `gorm:"column:code;type:varchar(50);index:idx_ship_to_partner_code"`
	Description string    `gorm:"column:description;index:idx_ship_to_partner_desc"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ShipToLocation) TableName() string {
	return "ship_to_locations"
}

// CustomerConfig holds one partner's raw configuration documents
type CustomerConfig struct {
	ID                  uint           `gorm:"column:id;primaryKey;autoIncrement"`
	PartnerID           uint           `gorm:"column:partner_id;uniqueIndex;not null"`
	FieldMappings       datatypes.JSON `gorm:"column:field_mappings"`
	BusinessRules       datatypes.JSON `gorm:"column:business_rules"`
	CommunicationConfig datatypes.JSON `gorm:"column:communication_config"`
	TemplateConfig      datatypes.JSON `gorm:"column:template_config"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (CustomerConfig) TableName() string {
	return "customer_configs"
}
