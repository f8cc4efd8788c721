package repositories

import (
	"context"
	"fmt"
	"time"

	"forecast-ingest/edi/internal/models/gorm"

	"github.com/jmoiron/sqlx"
	gormlib "gorm.io/gorm"
)

// EDITransactionRepo is the audit log of files handled by the orchestrator
type EDITransactionRepo struct {
	db *gormlib.DB
}

// NewEDITransactionRepo creates a new transaction log repository
func NewEDITransactionRepo(db *gormlib.DB) *EDITransactionRepo {
	return &EDITransactionRepo{db: db}
}

// Record appends one entry to the log
func (r *EDITransactionRepo) Record(ctx context.Context, entry *gorm.EDITransaction) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record edi transaction: %w", err)
	}
	return nil
}

// ListByRun returns the entries written during one orchestrator cycle
func (r *EDITransactionRepo) ListByRun(ctx context.Context, runID string) ([]gorm.EDITransaction, error) {
	var entries []gorm.EDITransaction

	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at, filename").
		Find(&entries).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list edi transactions: %w", err)
	}
	return entries, nil
}

// TransactionStatusCount is one row of the status summary
type TransactionStatusCount struct {
	Status string `db:"status" json:"status"`
	Files  int    `db:"files" json:"files"`
	Lines  int    `db:"lines" json:"lines"`
}

const transactionSummarySince = `
	SELECT status, COUNT(*) AS files, COALESCE(SUM(processed), 0) AS lines
	FROM edi_transactions
	WHERE created_at >= ?
	GROUP BY status
	ORDER BY status
	`

// EDITransactionStatsRepo answers the ops status query with plain SQL
type EDITransactionStatsRepo struct {
	db *sqlx.DB
}

func NewEDITransactionStatsRepo(db *sqlx.DB) *EDITransactionStatsRepo {
	return &EDITransactionStatsRepo{db: db}
}

// SummarySince groups log entries created after since by status
func (r *EDITransactionStatsRepo) SummarySince(ctx context.Context, since time.Time) ([]TransactionStatusCount, error) {
	var rows []TransactionStatusCount
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(transactionSummarySince), since); err != nil {
		return nil, fmt.Errorf("failed to summarize edi transactions: %w", err)
	}
	return rows, nil
}
