package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// IntegrityChecker sweeps posted journal entries and reports any entry whose
// debit and credit totals diverge. A non-empty result means the posting
// invariant was violated outside the engine and needs investigation.
type IntegrityChecker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityChecker constructs the checker.
func NewIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityChecker {
	return &IntegrityChecker{pool: pool, logger: logger}
}

type imbalance struct {
	EntryID     int64
	EntryNumber string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Run scans all organizations for unbalanced posted entries.
func (c *IntegrityChecker) Run(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `
		SELECT je.id, COALESCE(je.entry_number, ''), SUM(el.debit_amount), SUM(el.credit_amount)
		FROM journal_entries je
		JOIN entry_lines el ON el.entry_id = je.id
		WHERE je.posted
		GROUP BY je.id
		HAVING SUM(el.debit_amount) <> SUM(el.credit_amount)
		ORDER BY je.id`)
	if err != nil {
		return fmt.Errorf("jobs: integrity query: %w", err)
	}
	defer rows.Close()

	var found []imbalance
	for rows.Next() {
		var (
			im            imbalance
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&im.EntryID, &im.EntryNumber, &debit, &credit); err != nil {
			return fmt.Errorf("jobs: integrity scan: %w", err)
		}
		im.Debit = db.NumericToDecimal(debit)
		im.Credit = db.NumericToDecimal(credit)
		found = append(found, im)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("jobs: integrity rows: %w", err)
	}

	for _, im := range found {
		c.logger.Error("unbalanced posted entry detected",
			slog.Int64("entry_id", im.EntryID),
			slog.String("entry_number", im.EntryNumber),
			slog.String("debit", im.Debit.StringFixed(2)),
			slog.String("credit", im.Credit.StringFixed(2)))
	}
	if len(found) > 0 {
		return fmt.Errorf("jobs: %d unbalanced posted entries", len(found))
	}
	c.logger.Info("ledger integrity sweep clean")
	return nil
}
