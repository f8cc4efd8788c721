package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// TradingPartnerRepo reads partners and their configuration documents
type TradingPartnerRepo struct {
	db *gormlib.DB
}

// NewTradingPartnerRepo creates a new trading partner repository
func NewTradingPartnerRepo(db *gormlib.DB) *TradingPartnerRepo {
	return &TradingPartnerRepo{db: db}
}

// FindPartner looks a partner up by numeric id first (when identifier is numeric),
// then by code. Returns nil, nil when neither matches.
func (r *TradingPartnerRepo) FindPartner(ctx context.Context, identifier string) (*gorm.TradingPartner, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	if id, err := strconv.ParseUint(identifier, 10, 64); err == nil {
		partner, err := r.first(ctx, "id = ?", id)
		if err != nil || partner != nil {
			return partner, err
		}
	}

	return r.first(ctx, "UPPER(code) = UPPER(?)", identifier)
}

// FindByEDIID resolves the ISA sender id of an interchange to its partner
func (r *TradingPartnerRepo) FindByEDIID(ctx context.Context, ediID string) (*gorm.TradingPartner, error) {
	ediID = strings.TrimSpace(ediID)
	if ediID == "" {
		return nil, nil
	}
	return r.first(ctx, "edi_id = ?", ediID)
}

func (r *TradingPartnerRepo) first(ctx context.Context, query string, args ...interface{}) (*gorm.TradingPartner, error) {
	var partner gorm.TradingPartner

	err := r.db.WithContext(ctx).
		Where(query, args...).
		First(&partner).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trading partner: %w", err)
	}

	return &partner, nil
}

// GetCustomerConfig returns the stored configuration documents for a partner
func (r *TradingPartnerRepo) GetCustomerConfig(ctx context.Context, partnerID uint) (*gorm.CustomerConfig, error) {
	var cfg gorm.CustomerConfig

	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		First(&cfg).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer config: %w", err)
	}

	return &cfg, nil
}

// ListActive returns partners whose status allows ingestion (active or testing)
func (r *TradingPartnerRepo) ListActive(ctx context.Context) ([]gorm.TradingPartner, error) {
	var partners []gorm.TradingPartner

	err := r.db.WithContext(ctx).
		Where("status IN ?", []constants.PartnerStatus{constants.PartnerStatusActive, constants.PartnerStatusTesting}).
		Order("code").
		Find(&partners).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list trading partners: %w", err)
	}

	return partners, nil
}
