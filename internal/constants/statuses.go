package constants

import (
	"database/sql/driver"
	"fmt"
)

// ScheduleStatus mirrors the delivery_schedules.status column
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusShipped   ScheduleStatus = "shipped"
	ScheduleStatusReceived  ScheduleStatus = "received"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
	ScheduleStatusClosed    ScheduleStatus = "closed"
)

// OpenScheduleStatuses are the statuses a re-import may match and refresh
var OpenScheduleStatuses = []ScheduleStatus{ScheduleStatusActive, ScheduleStatusShipped}

func (s ScheduleStatus) String() string { return string(s) }

// Scan implements the sql.Scanner interface
func (s *ScheduleStatus) Scan(src interface{}) error {
	if src == nil {
		*s = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*s = ScheduleStatus(v)
	case []byte:
		*s = ScheduleStatus(v)
	default:
		return fmt.Errorf("ScheduleStatus: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s ScheduleStatus) Value() (driver.Value, error) { return string(s), nil }

// PartnerStatus mirrors trading_partners.status
type PartnerStatus string

const (
	PartnerStatusActive   PartnerStatus = "active"
	PartnerStatusInactive PartnerStatus = "inactive"
	PartnerStatusTesting  PartnerStatus = "testing"
)

const PriorityNormal = "normal"
