package budget

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists budgets, lines and commitments.
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
		return errors.New("budget repository not initialised")
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

func (r *txRepository) InsertBudget(ctx context.Context, b Budget) (Budget, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO budgets (org_id, fiscal_year_id, name)
VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`, b.OrgID, b.FiscalYearID, b.Name)
	if err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Budget{}, shared.Conflictf("budget %s already exists for fiscal year", b.Name)
		}
		return Budget{}, err
	}
	return b, nil
}

func (r *txRepository) GetBudget(ctx context.Context, orgID, budgetID int64) (Budget, error) {
	var b Budget
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, fiscal_year_id, name, created_at, updated_at
FROM budgets WHERE org_id=$1 AND id=$2`, orgID, budgetID).
		Scan(&b.ID, &b.OrgID, &b.FiscalYearID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.NotFoundf("budget")
		}
		return Budget{}, err
	}
	return b, nil
}

func (r *txRepository) InsertLine(ctx context.Context, line BudgetLine) (BudgetLine, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO budget_lines (budget_id, account_id, period_id, allocated_amount)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`,
		line.BudgetID, line.AccountID, line.PeriodID, db.DecimalToNumeric(line.Allocated))
	if err := row.Scan(&line.ID, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return BudgetLine{}, err
	}
	return line, nil
}

func (r *txRepository) GetLine(ctx context.Context, orgID, lineID int64) (BudgetLine, Budget, error) {
	var line BudgetLine
	var b Budget
	var allocated pgtype.Numeric
	err := r.tx.QueryRow(ctx, `SELECT bl.id, bl.budget_id, bl.account_id, bl.period_id, bl.allocated_amount, bl.created_at, bl.updated_at,
	b.id, b.org_id, b.fiscal_year_id, b.name, b.created_at, b.updated_at
FROM budget_lines bl JOIN budgets b ON b.id = bl.budget_id
WHERE b.org_id=$1 AND bl.id=$2`, orgID, lineID).
		Scan(&line.ID, &line.BudgetID, &line.AccountID, &line.PeriodID, &allocated, &line.CreatedAt, &line.UpdatedAt,
			&b.ID, &b.OrgID, &b.FiscalYearID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetLine{}, Budget{}, shared.NotFoundf("budget line")
		}
		return BudgetLine{}, Budget{}, err
	}
	line.Allocated = db.NumericToDecimal(allocated)
	return line, b, nil
}

func (r *txRepository) InsertCommitment(ctx context.Context, c BudgetCommitment) (BudgetCommitment, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO budget_commitments (line_id, amount, status, entry_id, reference)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		c.LineID, db.DecimalToNumeric(c.Amount), c.Status, c.EntryID, c.Reference)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return BudgetCommitment{}, err
	}
	return c, nil
}

func (r *txRepository) GetCommitmentForUpdate(ctx context.Context, orgID, commitmentID int64) (BudgetCommitment, error) {
	var c BudgetCommitment
	var amount pgtype.Numeric
	err := r.tx.QueryRow(ctx, `SELECT bc.id, bc.line_id, bc.amount, bc.status, bc.entry_id, COALESCE(bc.reference, ''), bc.created_at, bc.updated_at
FROM budget_commitments bc
JOIN budget_lines bl ON bl.id = bc.line_id
JOIN budgets b ON b.id = bl.budget_id
WHERE b.org_id=$1 AND bc.id=$2 FOR UPDATE OF bc`, orgID, commitmentID).
		Scan(&c.ID, &c.LineID, &amount, &c.Status, &c.EntryID, &c.Reference, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetCommitment{}, shared.NotFoundf("budget commitment")
		}
		return BudgetCommitment{}, err
	}
	c.Amount = db.NumericToDecimal(amount)
	return c, nil
}

func (r *txRepository) UpdateCommitmentStatus(ctx context.Context, commitmentID int64, status CommitmentStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE budget_commitments SET status=$2, updated_at=NOW() WHERE id=$1`, commitmentID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("budget commitment")
	}
	return nil
}

func (r *txRepository) AccountType(ctx context.Context, orgID, accountID int64) (coa.AccountType, error) {
	var atype coa.AccountType
	err := r.tx.QueryRow(ctx, `SELECT type FROM accounts WHERE org_id=$1 AND id=$2`, orgID, accountID).Scan(&atype)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.NotFoundf("account")
		}
		return "", err
	}
	return atype, nil
}

// SpentSums totals posted debit and credit amounts for an account inside a
// date window.
func (r *txRepository) SpentSums(ctx context.Context, orgID, accountID int64, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit pgtype.Numeric
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(el.debit_amount), 0), COALESCE(SUM(el.credit_amount), 0)
FROM entry_lines el
JOIN journal_entries je ON je.id = el.entry_id AND je.posted
WHERE je.org_id=$1 AND el.account_id=$2 AND je.date >= $3 AND je.date <= $4`,
		orgID, accountID, start, end).Scan(&debit, &credit)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return db.NumericToDecimal(debit), db.NumericToDecimal(credit), nil
}

// CommittedSum totals commitments still in COMMITTED state.
func (r *txRepository) CommittedSum(ctx context.Context, lineID int64) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM budget_commitments
WHERE line_id=$1 AND status=$2`, lineID, StatusCommitted).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return db.NumericToDecimal(sum), nil
}

func (r *txRepository) PeriodWindow(ctx context.Context, orgID, periodID int64) (time.Time, time.Time, error) {
	var start, end time.Time
	err := r.tx.QueryRow(ctx, `SELECT p.start_date, p.end_date
FROM accounting_periods p JOIN fiscal_years fy ON fy.id = p.fiscal_year_id
WHERE fy.org_id=$1 AND p.id=$2`, orgID, periodID).Scan(&start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, time.Time{}, shared.NotFoundf("accounting period")
		}
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (r *txRepository) FiscalYearWindow(ctx context.Context, orgID, fiscalYearID int64) (time.Time, time.Time, error) {
	var start, end time.Time
	err := r.tx.QueryRow(ctx, `SELECT start_date, end_date FROM fiscal_years WHERE org_id=$1 AND id=$2`,
		orgID, fiscalYearID).Scan(&start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, time.Time{}, shared.NotFoundf("fiscal year")
		}
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
