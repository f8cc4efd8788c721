package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/db/repositories"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/metrics"
	"forecast-ingest/edi/internal/models/dtos"
)

// lines sampled when the extension does not name the delimiter
const delimiterSampleLines = 5

// TabularImportService imports delimited forecast files whose columns are
// described by the partner's field mappings
type TabularImportService struct {
	configs    *common.CustomerConfigService
	partners   PartnerLookup
	tx         repositories.Transactor
	reconciler *DeliveryScheduleService
	metrics    *metrics.MetricsRegistry
}

// NewTabularImportService creates a new tabular importer
func NewTabularImportService(
	configs *common.CustomerConfigService,
	partners PartnerLookup,
	tx repositories.Transactor,
	reconciler *DeliveryScheduleService,
	m *metrics.MetricsRegistry,
) *TabularImportService {
	return &TabularImportService{
		configs:    configs,
		partners:   partners,
		tx:         tx,
		reconciler: reconciler,
		metrics:    m,
	}
}

// columnIndex holds the resolved position of every canonical field, -1 when absent
type columnIndex struct {
	PONumber         int
	SupplierItem     int
	Description      int
	QuantityOrdered  int
	PromisedDate     int
	ShipToLocation   int
	QuantityReceived int
	NeedByDate       int
	UOM              int
	Organization     int
	Supplier         int
	CustomerItem     int
}

// ImportFile imports the file at path for partner
func (s *TabularImportService) ImportFile(ctx context.Context, path, partner string) (*dtos.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return s.ImportReader(ctx, partner, filepath.Base(path), f)
}

// ImportReader imports one delimited document. name is used for delimiter
// detection and reporting. Row failures are collected in the result; a
// returned error means the whole import was rolled back.
func (s *TabularImportService) ImportReader(ctx context.Context, partner, name string, r io.Reader) (*dtos.ImportResult, error) {
	start := time.Now()
	result := &dtos.ImportResult{
		Source:   name,
		FileType: constants.TransactionFileTypeTabular,
		Errors:   []dtos.LineError{},
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return result, fmt.Errorf("failed to read %s: %w", name, err)
	}

	tp, err := resolvePartner(ctx, s.partners, partner, "")
	if err != nil {
		return result, err
	}
	result.PartnerID = tp.ID
	cfg := s.configs.ResolveByID(ctx, tp.ID)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = DetectDelimiter(name, content)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, &common.MappingError{Missing: constants.RequiredTabularHeaders}
		}
		return result, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	cols, err := resolveColumns(headerRow, cfg.FieldMappings)
	if err != nil {
		return result, err
	}
	width := len(headerRow)

	err = s.tx.WithinTransaction(ctx, func(store repositories.ScheduleStore) error {
		rowNum := 1
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			rowNum++

			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Processed++
				result.Skipped++
				result.AddError(rowNum, constants.ErrCodeRow, (&common.RowError{Row: rowNum, Reason: "unreadable row", Err: err}).Error())
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}

			record = fitRecord(record, width)
			if isBlankRecord(record) {
				continue
			}
			result.Processed++

			line, rowErr := s.buildLine(ctx, store, record, cols, rowNum, tp.ID, cfg)
			if rowErr != nil {
				var persistence *common.PersistenceError
				if errors.As(rowErr, &persistence) {
					return rowErr
				}
				result.Skipped++
				result.AddError(rowNum, common.ErrorCode(rowErr), rowErr.Error())
				continue
			}

			outcome, err := s.reconciler.Reconcile(ctx, store, line)
			if err != nil {
				return fmt.Errorf("row %d: %w", rowNum, err)
			}
			tally(result, outcome)
		}
	})
	if err != nil {
		logging.Error("Tabular import rolled back",
			"source", name,
			"partner", tp.Code,
			"error", err.Error(),
		)
		return result, err
	}

	s.metrics.ObserveLines(constants.TransactionFileTypeTabular, result.Inserted, result.Updated, result.Skipped, len(result.Errors))
	logging.Info("Tabular file imported",
		"source", name,
		"partner", tp.Code,
		"processed", result.Processed,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", GetResponseTime(start),
	)

	return result, nil
}

func (s *TabularImportService) buildLine(
	ctx context.Context,
	store repositories.ScheduleStore,
	record []string,
	cols columnIndex,
	rowNum int,
	partnerID uint,
	cfg *dtos.CustomerConfig,
) (*dtos.CanonicalDeliveryLine, error) {
	rawPO := cell(record, cols.PONumber)
	supplierItem := cell(record, cols.SupplierItem)
	if rawPO == "" || supplierItem == "" {
		return nil, &common.RowError{Row: rowNum, Reason: "po number and supplier item are required"}
	}

	line := &dtos.CanonicalDeliveryLine{
		PartnerID:         partnerID,
		SupplierItem:      supplierItem,
		CustomerItem:      cell(record, cols.CustomerItem),
		Description:       cell(record, cols.Description),
		ShipToDescription: cell(record, cols.ShipToLocation),
		UOM:               cell(record, cols.UOM),
		Organization:      cell(record, cols.Organization),
		Supplier:          cell(record, cols.Supplier),
	}
	line.PONumber, line.ReleaseNumber = common.SplitPONumber(rawPO, cfg.BusinessRules.POParsingRule)

	formats := cfg.BusinessRules.DateParsingFormats
	promised, err := common.ParseDateWithFormats(cell(record, cols.PromisedDate), formats)
	if err != nil {
		return nil, &common.RowError{Row: rowNum, Reason: "promised date", Err: err}
	}
	line.PromisedDate = promised

	if raw := cell(record, cols.NeedByDate); raw != "" {
		needBy, err := common.ParseDateWithFormats(raw, formats)
		if err != nil {
			return nil, &common.RowError{Row: rowNum, Reason: "need-by date", Err: err}
		}
		line.NeedByDate = &needBy
	} else {
		needBy := promised.AddDate(0, 0, -cfg.BusinessRules.DefaultLeadTimeDays)
		line.NeedByDate = &needBy
	}

	if line.QuantityOrdered, err = parseQuantity(cell(record, cols.QuantityOrdered)); err != nil {
		return nil, &common.RowError{Row: rowNum, Reason: "quantity ordered", Err: err}
	}
	if line.QuantityReceived, err = parseQuantity(cell(record, cols.QuantityReceived)); err != nil {
		return nil, &common.RowError{Row: rowNum, Reason: "quantity received", Err: err}
	}

	shipTo, err := s.reconciler.ResolveShipTo(ctx, store, partnerID, line.ShipToDescription, cfg.BusinessRules.LocationMappingType)
	if err != nil {
		return nil, err
	}
	line.ShipToLocationID = shipTo
	line.ApplyDefaults(cfg.Defaults)

	return line, nil
}

// DetectDelimiter picks tab or comma from the file extension, or by counting
// both characters over the first lines; ties go to tab
func DetectDelimiter(name string, content []byte) rune {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tsv", ".tab":
		return '\t'
	case ".csv":
		return ','
	}

	var commas, tabs int
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for n := 0; n < delimiterSampleLines && scanner.Scan(); n++ {
		line := scanner.Text()
		commas += strings.Count(line, ",")
		tabs += strings.Count(line, "\t")
	}
	if commas > tabs {
		return ','
	}
	return '\t'
}

// resolveColumns locates each canonical field by its mapped name, then by its
// canonical name. Header matching ignores case and surrounding whitespace.
func resolveColumns(header []string, fm dtos.FieldMappings) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	find := func(mapped, canonical string) int {
		if i, ok := positions[normalizeHeader(mapped)]; ok && mapped != "" {
			return i
		}
		if i, ok := positions[normalizeHeader(canonical)]; ok {
			return i
		}
		return -1
	}

	cols := columnIndex{
		PONumber:         find(fm.PONumber, constants.HeaderPONumber),
		SupplierItem:     find(fm.SupplierItem, constants.HeaderSupplierItem),
		Description:      find(fm.Description, constants.HeaderItemDescription),
		QuantityOrdered:  find(fm.QuantityOrdered, constants.HeaderQuantityOrdered),
		PromisedDate:     find(fm.PromisedDate, constants.HeaderPromisedDate),
		ShipToLocation:   find(fm.ShipToLocation, constants.HeaderShipToLocation),
		QuantityReceived: find(fm.QuantityReceived, constants.HeaderQuantityReceived),
		NeedByDate:       find(fm.NeedByDate, constants.HeaderNeedByDate),
		UOM:              find(fm.UOM, constants.HeaderUOM),
		Organization:     find(fm.Organization, constants.HeaderOrganization),
		Supplier:         find(fm.Supplier, constants.HeaderSupplier),
		CustomerItem:     find(fm.CustomerItem, constants.HeaderItemNumber),
	}

	required := map[string]int{
		constants.HeaderPONumber:        cols.PONumber,
		constants.HeaderSupplierItem:    cols.SupplierItem,
		constants.HeaderItemDescription: cols.Description,
		constants.HeaderQuantityOrdered: cols.QuantityOrdered,
		constants.HeaderPromisedDate:    cols.PromisedDate,
		constants.HeaderShipToLocation:  cols.ShipToLocation,
	}
	var missing []string
	for _, name := range constants.RequiredTabularHeaders {
		if required[name] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return cols, &common.MappingError{Missing: missing}
	}

	return cols, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
}

// fitRecord pads short rows with empty cells and truncates long ones
func fitRecord(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	fitted := make([]string, width)
	copy(fitted, record)
	return fitted
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
