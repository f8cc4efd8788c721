package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/db/repositories"
	"forecast-ingest/edi/internal/edi"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/models/dtos"
)

// Segment tags the processor dispatches on
const (
	segmentBSS = "BSS"
	segmentLIN = "LIN"
	segmentFST = "FST"
	segmentSSD = "SSD"

	// tag + quantity, forecast qualifier, timing qualifier, date
	minFSTElements = 5
)

// ForecastEDIService turns 830/862 interchanges into reconciled delivery schedules
type ForecastEDIService struct {
	configs    *common.CustomerConfigService
	partners   PartnerLookup
	tx         repositories.Transactor
	reconciler *DeliveryScheduleService
	metrics    *metrics.MetricsRegistry
	now        func() time.Time
}

// NewForecastEDIService creates a new interchange processor
func NewForecastEDIService(
	configs *common.CustomerConfigService,
	partners PartnerLookup,
	tx repositories.Transactor,
	reconciler *DeliveryScheduleService,
	m *metrics.MetricsRegistry,
) *ForecastEDIService {
	return &ForecastEDIService{
		configs:    configs,
		partners:   partners,
		tx:         tx,
		reconciler: reconciler,
		metrics:    m,
		now:        time.Now,
	}
}

// scheduleHeader is the BSS context of one transaction set
type scheduleHeader struct {
	Purpose           string
	Reference         string
	TransactionDate   string
	ScheduleType      string
	QuantityQualifier string
}

// itemContext is set by LIN and applies to the FST lines that follow it
type itemContext struct {
	CustomerItem string
	SupplierItem string
}

// pendingLine is an FST line waiting for its SSD detail
type pendingLine struct {
	segment int
	rawPO   string
	line    dtos.CanonicalDeliveryLine
}

// ProcessFile reads path and processes it as one interchange
func (s *ForecastEDIService) ProcessFile(ctx context.Context, path, partner string) (*dtos.ImportResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interchange %s: %w", path, err)
	}
	return s.ProcessInterchange(ctx, string(raw), partner, filepath.Base(path))
}

// ProcessInterchange validates the envelope, extracts each transaction set and
// reconciles its lines. Everything runs in one transaction: a returned error
// means nothing from this interchange was committed. Malformed lines are
// reported in the result and do not fail the call.
func (s *ForecastEDIService) ProcessInterchange(ctx context.Context, raw, partner, source string) (*dtos.ImportResult, error) {
	start := time.Now()
	result := &dtos.ImportResult{
		Source:   source,
		FileType: constants.TransactionFileTypeX12,
		Errors:   []dtos.LineError{},
	}

	segments := edi.Tokenize(raw, edi.DetectDelimiters(raw))

	warnings, err := edi.ValidateEnvelope(segments,
		constants.TransactionTypePlanningSchedule,
		constants.TransactionTypeShipSchedule,
	)
	if err != nil {
		return result, err
	}
	for _, w := range warnings {
		result.AddWarning(w)
	}

	header, _ := edi.ReadInterchangeHeader(segments)
	tp, err := resolvePartner(ctx, s.partners, partner, header.SenderID)
	if err != nil {
		return result, err
	}
	result.PartnerID = tp.ID
	cfg := s.configs.ResolveByID(ctx, tp.ID)

	sets := edi.ExtractTransactionSets(segments)
	result.TransactionSets = len(sets)

	err = s.tx.WithinTransaction(ctx, func(store repositories.ScheduleStore) error {
		for _, set := range sets {
			if err := s.processSet(ctx, store, set, tp.ID, cfg, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logging.Error("Interchange rolled back",
			"source", source,
			"partner", tp.Code,
			"error", err.Error(),
		)
		return result, err
	}

	s.metrics.ObserveLines(constants.TransactionFileTypeX12, result.Inserted, result.Updated, result.Skipped, len(result.Errors))
	logging.Info("Interchange processed",
		"source", source,
		"partner", tp.Code,
		"sets", result.TransactionSets,
		"processed", result.Processed,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", GetResponseTime(start),
	)

	return result, nil
}

func (s *ForecastEDIService) processSet(
	ctx context.Context,
	store repositories.ScheduleStore,
	set edi.TransactionSet,
	partnerID uint,
	cfg *dtos.CustomerConfig,
	result *dtos.ImportResult,
) error {
	var (
		header  scheduleHeader
		item    itemContext
		pending []*pendingLine
		lastFST = -1
	)

	for i, seg := range set.Segments {
		switch seg.Tag {
		case segmentBSS:
			header = scheduleHeader{
				Purpose:           seg.Element(1),
				Reference:         seg.Element(2),
				TransactionDate:   seg.Element(3),
				ScheduleType:      seg.Element(4),
				QuantityQualifier: seg.Element(12),
			}

		case segmentLIN:
			item = parseLIN(seg)
			lastFST = -1

		case segmentFST:
			result.Processed++
			lastFST = -1
			if seg.Len() < minFSTElements {
				s.rejectSegment(result, set, i, seg, fmt.Sprintf("expected at least %d elements, got %d", minFSTElements, seg.Len()))
				continue
			}
			qty, err := parseQuantity(seg.Element(1))
			if err != nil {
				s.rejectSegment(result, set, i, seg, err.Error())
				continue
			}
			promised, ok := decodeInterchangeDate(seg.Element(4), s.now())
			if !ok {
				result.AddWarning(fmt.Sprintf("set %s segment %d: date %q is not CCYYMMDD or YYMMDD, using today",
					set.ControlNumber, i, seg.Element(4)))
			}

			pending = append(pending, &pendingLine{
				segment: i,
				line: dtos.CanonicalDeliveryLine{
					PartnerID:       partnerID,
					SupplierItem:    item.SupplierItem,
					CustomerItem:    item.CustomerItem,
					QuantityOrdered: qty,
					PromisedDate:    promised,
				},
			})
			lastFST = len(pending) - 1

		case segmentSSD:
			if lastFST < 0 {
				continue
			}
			p := pending[lastFST]
			if po := seg.Element(1); po != "" {
				p.rawPO = po
			}
			if supplierItem := seg.Element(2); supplierItem != "" {
				p.line.SupplierItem = supplierItem
			}
			if shipTo := seg.Element(3); shipTo != "" {
				p.line.ShipToDescription = shipTo
			}
		}
	}

	logging.Debug("Transaction set dispatched",
		"control_number", set.ControlNumber,
		"type", set.Type,
		"purpose", header.Purpose,
		"reference", header.Reference,
		"schedule_type", header.ScheduleType,
		"lines", len(pending),
	)

	for _, p := range pending {
		if p.rawPO == "" || p.line.SupplierItem == "" {
			result.Skipped++
			continue
		}

		line := p.line
		line.PONumber, line.ReleaseNumber = common.SplitPONumber(p.rawPO, cfg.BusinessRules.POParsingRule)

		shipTo, err := s.reconciler.ResolveShipTo(ctx, store, partnerID, line.ShipToDescription, cfg.BusinessRules.LocationMappingType)
		if err != nil {
			return err
		}
		line.ShipToLocationID = shipTo
		line.ApplyDefaults(cfg.Defaults)

		outcome, err := s.reconciler.Reconcile(ctx, store, &line)
		if err != nil {
			return fmt.Errorf("set %s segment %d: %w", set.ControlNumber, p.segment, err)
		}
		tally(result, outcome)
	}

	return nil
}

func (s *ForecastEDIService) rejectSegment(result *dtos.ImportResult, set edi.TransactionSet, index int, seg edi.Segment, reason string) {
	segErr := &common.SegmentError{Index: index, Tag: seg.Tag, Reason: reason}
	result.AddError(index, constants.ErrCodeSegment, fmt.Sprintf("set %s: %s", set.ControlNumber, segErr.Error()))
	result.Skipped++
	logging.Warn("Skipping malformed segment",
		"control_number", set.ControlNumber,
		"segment", index,
		"tag", seg.Tag,
		"reason", reason,
	)
}

// parseLIN reads the qualifier/value pairs after LIN01
func parseLIN(seg edi.Segment) itemContext {
	var item itemContext
	for j := 2; j+1 < seg.Len(); j += 2 {
		value := seg.Element(j + 1)
		switch strings.ToUpper(seg.Element(j)) {
		case "BP":
			item.CustomerItem = value
		case "VP", "PN":
			if item.SupplierItem == "" {
				item.SupplierItem = value
			}
		}
	}
	return item
}

// decodeInterchangeDate reads CCYYMMDD or YYMMDD (years 20YY). Any other
// value yields today's date and false.
func decodeInterchangeDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)

	var layout string
	switch len(raw) {
	case 8:
		layout = "20060102"
	case 6:
		raw = "20" + raw
		layout = "20060102"
	}

	if layout != "" {
		if t, err := time.Parse(layout, raw); err == nil {
			return dateOnly(t), true
		}
	}
	return dateOnly(now), false
}
