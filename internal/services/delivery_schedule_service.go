package services

import (
	"context"
	"strings"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/db/repositories"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/models/dtos"
	gormModels "forecast-ingest/edi/internal/models/gorm"
)

// Outcome is what reconciling one canonical line did to the store
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
)

// DeliveryScheduleService reconciles canonical lines against delivery_schedules.
// It holds no state; every call works against the store it is handed, which is
// normally bound to the caller's import transaction.
type DeliveryScheduleService struct{}

// NewDeliveryScheduleService creates a new reconciler
func NewDeliveryScheduleService() *DeliveryScheduleService {
	return &DeliveryScheduleService{}
}

// Reconcile inserts line as a new active schedule, or refreshes the open schedule
// sharing its dedup key. Running it twice with the same line leaves one row.
func (s *DeliveryScheduleService) Reconcile(ctx context.Context, store repositories.ScheduleStore, line *dtos.CanonicalDeliveryLine) (Outcome, error) {
	promised := dateOnly(line.PromisedDate)
	release := line.ReleaseNumber
	if release != nil && strings.TrimSpace(*release) == "" {
		release = nil
	}

	key := repositories.ScheduleKey{
		PartnerID:     line.PartnerID,
		PONumber:      line.PONumber,
		ReleaseNumber: release,
		SupplierItem:  line.SupplierItem,
		PromisedDate:  promised,
	}

	existing, err := store.FindOpenSchedule(ctx, key)
	if err != nil {
		return "", &common.PersistenceError{Op: "find schedule", Err: err}
	}

	if existing != nil {
		err := store.RefreshSchedule(ctx, existing.ID, repositories.ScheduleRefresh{
			QuantityOrdered:   line.QuantityOrdered,
			QuantityReceived:  line.QuantityReceived,
			Description:       line.Description,
			ShipToLocationID:  line.ShipToLocationID,
			ShipToDescription: line.ShipToDescription,
		})
		if err != nil {
			return "", &common.PersistenceError{Op: "refresh schedule", Err: err}
		}
		return OutcomeUpdated, nil
	}

	created, err := store.EnsurePart(ctx, line.SupplierItem, line.Description)
	if err != nil {
		return "", &common.PersistenceError{Op: "register part", Err: err}
	}
	if created {
		logging.Info("Auto-detected new part", "supplier_item", line.SupplierItem)
	}

	var needBy *time.Time
	if line.NeedByDate != nil {
		d := dateOnly(*line.NeedByDate)
		needBy = &d
	}

	schedule := &gormModels.DeliverySchedule{
		PartnerID:         line.PartnerID,
		PONumber:          line.PONumber,
		ReleaseNumber:     release,
		POLine:            line.BuildPOLine(),
		SupplierItem:      line.SupplierItem,
		CustomerItem:      line.CustomerItem,
		Description:       line.Description,
		QuantityOrdered:   line.QuantityOrdered,
		QuantityReceived:  line.QuantityReceived,
		PromisedDate:      promised,
		NeedByDate:        needBy,
		ShipToLocationID:  line.ShipToLocationID,
		ShipToDescription: line.ShipToDescription,
		UOM:               line.UOM,
		Organization:      line.Organization,
		Supplier:          line.Supplier,
		Status:            constants.ScheduleStatusActive,
		Priority:          constants.PriorityNormal,
	}

	if err := store.CreateSchedule(ctx, schedule); err != nil {
		return "", &common.PersistenceError{Op: "create schedule", Err: err}
	}

	return OutcomeInserted, nil
}

// ResolveShipTo maps the partner's ship-to text to a location id using the
// partner's location_mapping_type. Unknown locations resolve to nil.
func (s *DeliveryScheduleService) ResolveShipTo(ctx context.Context, store repositories.ScheduleStore, partnerID uint, raw, mappingType string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var (
		loc *gormModels.ShipToLocation
		err error
	)
	if mappingType == constants.LocationMappingCode {
		loc, err = store.FindShipToByCode(ctx, partnerID, raw)
	} else {
		loc, err = store.FindShipToByDescription(ctx, partnerID, raw)
	}
	if err != nil {
		return nil, &common.PersistenceError{Op: "resolve ship-to", Err: err}
	}
	if loc == nil {
		logging.Debug("Ship-to not mapped", "partner_id", partnerID, "ship_to", raw)
		return nil, nil
	}

	id := loc.ID
	return &id, nil
}

// tally adds one reconciled line to the result counters
func tally(result *dtos.ImportResult, outcome Outcome) {
	switch outcome {
	case OutcomeInserted:
		result.Inserted++
	case OutcomeUpdated:
		result.Updated++
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
