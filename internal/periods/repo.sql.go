package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists fiscal years and periods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("periods repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetFiscalYear(ctx context.Context, orgID, fiscalYearID int64) (FiscalYear, error) {
	var fy FiscalYear
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, name, start_date, end_date, status, created_at, updated_at
FROM fiscal_years WHERE org_id=$1 AND id=$2`, orgID, fiscalYearID).
		Scan(&fy.ID, &fy.OrgID, &fy.Name, &fy.StartDate, &fy.EndDate, &fy.Status, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, shared.NotFoundf("fiscal year")
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

func (r *txRepository) InsertFiscalYear(ctx context.Context, fy FiscalYear) (FiscalYear, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO fiscal_years (org_id, name, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		fy.OrgID, fy.Name, fy.StartDate, fy.EndDate, fy.Status)
	if err := row.Scan(&fy.ID, &fy.CreatedAt, &fy.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return FiscalYear{}, shared.Conflictf("fiscal year %s conflicts with an existing year's name or date boundaries", fy.Name)
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

func (r *txRepository) InsertPeriod(ctx context.Context, p Period) (Period, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounting_periods (fiscal_year_id, name, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		p.FiscalYearID, p.Name, p.StartDate, p.EndDate, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Period{}, shared.Conflictf("period %s conflicts with an existing period's name or start date", p.Name)
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, orgID, periodID int64) (Period, error) {
	var p Period
	err := r.tx.QueryRow(ctx, `SELECT p.id, p.fiscal_year_id, fy.org_id, p.name, p.start_date, p.end_date, p.status, p.closed_by, p.closed_at, p.created_at, p.updated_at
FROM accounting_periods p JOIN fiscal_years fy ON fy.id = p.fiscal_year_id
WHERE fy.org_id=$1 AND p.id=$2 FOR UPDATE OF p`, orgID, periodID).
		Scan(&p.ID, &p.FiscalYearID, &p.OrgID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NotFoundf("accounting period")
		}
		return Period{}, err
	}
	return p, nil
}

// UnpostedEntryNumbers returns the first limit unposted entry numbers in the
// period plus the total count of unposted entries. Entries without an
// assigned number are reported by internal id.
func (r *txRepository) UnpostedEntryNumbers(ctx context.Context, periodID int64, limit int) ([]string, int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT COALESCE(NULLIF(entry_number, ''), id::text)
FROM journal_entries WHERE period_id=$1 AND NOT posted ORDER BY id LIMIT $2`, periodID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, 0, err
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE period_id=$1 AND NOT posted`, periodID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return numbers, total, nil
}

func (r *txRepository) UpdatePeriodStatus(ctx context.Context, periodID int64, status Status, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounting_periods SET status=$2, closed_by=$3, closed_at=$4, updated_at=NOW() WHERE id=$1`,
		periodID, status, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("accounting period")
	}
	return nil
}
