package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/models/gorm"

	"github.com/shopspring/decimal"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleKey identifies "the same" delivery line across repeated imports
type ScheduleKey struct {
	PartnerID     uint
	PONumber      string
	ReleaseNumber *string
	SupplierItem  string
	PromisedDate  time.Time
}

// ScheduleRefresh carries the only fields a re-import may change
type ScheduleRefresh struct {
	QuantityOrdered   decimal.Decimal
	QuantityReceived  decimal.Decimal
	Description       string
	ShipToLocationID  *uint
	ShipToDescription string
}

// ScheduleStore is the persistence the reconciler and both ingestion paths use
type ScheduleStore interface {
	FindOpenSchedule(ctx context.Context, key ScheduleKey) (*gorm.DeliverySchedule, error)
	CreateSchedule(ctx context.Context, schedule *gorm.DeliverySchedule) error
	RefreshSchedule(ctx context.Context, id uint, refresh ScheduleRefresh) error
	// EnsurePart creates an auto-detected part when supplierItem is unseen
	EnsurePart(ctx context.Context, supplierItem, description string) (bool, error)
	FindShipToByCode(ctx context.Context, partnerID uint, code string) (*gorm.ShipToLocation, error)
	FindShipToByDescription(ctx context.Context, partnerID uint, description string) (*gorm.ShipToLocation, error)
}

// Transactor runs fn against a store bound to one database transaction.
// Any error returned by fn rolls back every write made through that store.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(store ScheduleStore) error) error
}

// GormScheduleStore implements ScheduleStore and Transactor on gorm
type GormScheduleStore struct {
	db *gormlib.DB
}

var (
	_ ScheduleStore = (*GormScheduleStore)(nil)
	_ Transactor    = (*GormScheduleStore)(nil)
)

// NewGormScheduleStore creates a new schedule store
func NewGormScheduleStore(db *gormlib.DB) *GormScheduleStore {
	return &GormScheduleStore{db: db}
}

// WithinTransaction opens a transaction and hands fn a store bound to it
func (s *GormScheduleStore) WithinTransaction(ctx context.Context, fn func(store ScheduleStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		return fn(&GormScheduleStore{db: tx})
	})
}

// FindOpenSchedule matches the dedup key among active or shipped schedules.
// A nil release number only matches rows whose release_number is NULL.
func (s *GormScheduleStore) FindOpenSchedule(ctx context.Context, key ScheduleKey) (*gorm.DeliverySchedule, error) {
	var schedule gorm.DeliverySchedule

	q := s.db.WithContext(ctx).
		Where("partner_id = ? AND po_number = ? AND supplier_item = ? AND promised_date = ?",
			key.PartnerID, key.PONumber, key.SupplierItem, key.PromisedDate).
		Where("status IN ?", constants.OpenScheduleStatuses)

	if key.ReleaseNumber == nil {
		q = q.Where("release_number IS NULL")
	} else {
		q = q.Where("release_number = ?", *key.ReleaseNumber)
	}

	err := q.Order("id").First(&schedule).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find delivery schedule: %w", err)
	}

	return &schedule, nil
}

// CreateSchedule inserts a new delivery schedule
func (s *GormScheduleStore) CreateSchedule(ctx context.Context, schedule *gorm.DeliverySchedule) error {
	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("failed to create delivery schedule: %w", err)
	}
	return nil
}

// RefreshSchedule updates quantities, description and ship-to; status and
// quantity_shipped are deliberately absent from the column list
func (s *GormScheduleStore) RefreshSchedule(ctx context.Context, id uint, refresh ScheduleRefresh) error {
	err := s.db.WithContext(ctx).
		Model(&gorm.DeliverySchedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity_ordered":    refresh.QuantityOrdered,
			"quantity_received":   refresh.QuantityReceived,
			"description":         refresh.Description,
			"ship_to_location_id": refresh.ShipToLocationID,
			"ship_to_description": refresh.ShipToDescription,
			"updated_at":          time.Now().UTC(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to refresh delivery schedule %d: %w", id, err)
	}
	return nil
}

// EnsurePart inserts the part with QPC=1 and auto_detected=true unless it
// exists. It reports whether a row was created.
func (s *GormScheduleStore) EnsurePart(ctx context.Context, supplierItem, description string) (bool, error) {
	part := gorm.Part{
		SupplierItem: supplierItem,
		Description:  description,
		QPC:          1,
		AutoDetected: true,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "supplier_item"}}, DoNothing: true}).
		Create(&part)

	if result.Error != nil {
		return false, fmt.Errorf("failed to register part %s: %w", supplierItem, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindShipToByCode resolves an exact (partner, code) ship-to
func (s *GormScheduleStore) FindShipToByCode(ctx context.Context, partnerID uint, code string) (*gorm.ShipToLocation, error) {
	return s.findShipTo(ctx, "partner_id = ? AND code = ?", partnerID, code)
}

// FindShipToByDescription resolves an exact (partner, description) ship-to
func (s *GormScheduleStore) FindShipToByDescription(ctx context.Context, partnerID uint, description string) (*gorm.ShipToLocation, error) {
	return s.findShipTo(ctx, "partner_id = ? AND description = ?", partnerID, description)
}

func (s *GormScheduleStore) findShipTo(ctx context.Context, query string, args ...interface{}) (*gorm.ShipToLocation, error) {
	var loc gorm.ShipToLocation

	err := s.db.WithContext(ctx).Where(query, args...).First(&loc).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ship-to location: %w", err)
	}
	return &loc, nil
}
