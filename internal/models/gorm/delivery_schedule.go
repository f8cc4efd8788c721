package gorm

import (
	"forecast-ingest/edi/internal/constants"
	"time"

	"github.com/shopspring/decimal"
)

// DeliverySchedule is one reconciled forecast line
type DeliverySchedule struct {
	ID                uint                     `gorm:"column:id;primaryKey;autoIncrement"`
	PartnerID         uint                     `gorm:"column:partner_id;not null;index:idx_schedule_dedup,priority:1"`
	PONumber          string                   `gorm:"column:po_number;type:varchar(50);not null;index:idx_schedule_dedup,priority:2"`
	ReleaseNumber     *string                  `gorm:"column:release_number;type:varchar(20)"`
	POLine            string                   `gorm:"column:po_line"`
	SupplierItem      string                   `gorm:"column:supplier_item;type:varchar(100);not null;index:idx_schedule_dedup,priority:3"`
	CustomerItem      string                   `gorm:"column:customer_item"`
	Description       string                   `gorm:"column:description"`
	QuantityOrdered   decimal.Decimal          `gorm:"column:quantity_ordered;type:numeric(18,4);not null;default:0"`
	QuantityReceived  decimal.Decimal          `gorm:"column:quantity_received;type:numeric(18,4);not null;default:0"`
	QuantityShipped   decimal.Decimal          `gorm:"column:quantity_shipped;type:numeric(18,4);not null;default:0"`
	PromisedDate      time.Time                `gorm:"column:promised_date;type:date;not null;index:idx_schedule_dedup,priority:4"`
	NeedByDate        *time.Time               `gorm:"column:need_by_date;type:date"`
	ShipToLocationID  *uint                    `gorm:"column:ship_to_location_id"`
	ShipToDescription string                   `gorm:"column:ship_to_description"`
	UOM               string                   `gorm:"column:uom;type:varchar(10)"`
	Organization      string                   `gorm:"column:organization"`
	Supplier          string                   `gorm:"column:supplier"`
	Status            constants.ScheduleStatus `gorm:"column:status;type:varchar(20);not null;default:'active'"`
	Priority          string                   `gorm:"column:priority;type:varchar(20);default:'normal'"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (DeliverySchedule) TableName() string {
	return "delivery_schedules"
}

// Part is the part master entry; ingestion only ever creates it
type Part struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	SupplierItem string    `gorm:"column:supplier_item;type:varchar(100);uniqueIndex;not null"`
	Description  string    `gorm:"column:description"`
	QPC          int       `gorm:"column:qpc;not null;default:1"`
	AutoDetected bool      `gorm:"column:auto_detected;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Part) TableName() string {
	return "parts"
}
