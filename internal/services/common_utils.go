package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gormModels "forecast-ingest/edi/internal/models/gorm"

	"github.com/shopspring/decimal"
)

// ErrUnknownPartner is returned when an import cannot be attributed to a trading partner
var ErrUnknownPartner = errors.New("unknown trading partner")

// PartnerLookup resolves the partner an import belongs to
type PartnerLookup interface {
	FindPartner(ctx context.Context, identifier string) (*gormModels.TradingPartner, error)
	FindByEDIID(ctx context.Context, ediID string) (*gormModels.TradingPartner, error)
}

func GetResponseTime(init time.Time) string {
	timeDiff := time.Since(init).Milliseconds()
	return fmt.Sprintf("%dms", timeDiff)
}

// resolvePartner finds the partner by identifier, falling back to the
// interchange sender id when no identifier was supplied
func resolvePartner(ctx context.Context, lookup PartnerLookup, identifier, senderID string) (*gormModels.TradingPartner, error) {
	var (
		partner *gormModels.TradingPartner
		err     error
	)

	switch {
	case strings.TrimSpace(identifier) != "":
		partner, err = lookup.FindPartner(ctx, identifier)
	case strings.TrimSpace(senderID) != "":
		partner, err = lookup.FindByEDIID(ctx, senderID)
		identifier = "sender " + senderID
	default:
		return nil, fmt.Errorf("%w: no partner identifier supplied", ErrUnknownPartner)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve partner: %w", err)
	}
	if partner == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPartner, identifier)
	}
	return partner, nil
}

// parseQuantity reads a partner quantity; thousands separators are dropped and blank is zero
func parseQuantity(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	q, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q", raw)
	}
	return q, nil
}
