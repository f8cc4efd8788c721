package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// EDITransaction is the audit record written for every file the orchestrator handles
type EDITransaction struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	RunID        string    `gorm:"column:run_id;type:varchar(36);index" json:"run_id"`
	PartnerID    *uint     `gorm:"column:partner_id;index" json:"partner_id,omitempty"`
	Filename     string    `gorm:"column:filename;not null" json:"filename"`
	Direction    string    `gorm:"column:direction;type:varchar(10);not null" json:"direction"`
	FileType     string    `gorm:"column:file_type;type:varchar(10)" json:"file_type"`
	Status       string    `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Processed    int       `gorm:"column:processed" json:"processed"`
	Inserted     int       `gorm:"column:inserted" json:"inserted"`
	Updated      int       `gorm:"column:updated" json:"updated"`
	Skipped      int       `gorm:"column:skipped" json:"skipped"`
	ErrorCount   int       `gorm:"column:error_count" json:"error_count"`
	ErrorMessage *string   `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (EDITransaction) TableName() string {
	return "edi_transactions"
}

// BeforeCreate assigns the uuid client-side so sqlite and postgres behave the same
func (t *EDITransaction) BeforeCreate(tx *gormlib.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
