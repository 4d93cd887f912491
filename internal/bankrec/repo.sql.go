package bankrec

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists bank reconciliations.
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
		return errors.New("bankrec repository not initialised")
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

func (r *txRepository) AccountExists(ctx context.Context, orgID, accountID int64) error {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM accounts WHERE org_id=$1 AND id=$2 AND is_active`, orgID, accountID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.NotFoundf("account")
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO bank_reconciliations (org_id, account_id, statement_date, statement_end_balance, status)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		rec.OrgID, rec.AccountID, rec.StatementDate, db.DecimalToNumeric(rec.StatementEndBalance), rec.Status)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_bank_reconciliations_account_date" {
			return BankReconciliation{}, shared.Conflictf("reconciliation already exists for account %d on %s",
				rec.AccountID, rec.StatementDate.Format("2006-01-02"))
		}
		return BankReconciliation{}, err
	}
	return rec, nil
}

func (r *txRepository) GetReconciliationForUpdate(ctx context.Context, orgID, reconID int64) (BankReconciliation, error) {
	var rec BankReconciliation
	var stmt, lb, od, oc, exp, diff pgtype.Numeric
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, account_id, statement_date, statement_end_balance,
	ledger_balance, outstanding_debits, outstanding_credits, expected_statement_balance, difference,
	status, reconciled_by, reconciled_at, created_at, updated_at
FROM bank_reconciliations WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, reconID).
		Scan(&rec.ID, &rec.OrgID, &rec.AccountID, &rec.StatementDate, &stmt,
			&lb, &od, &oc, &exp, &diff,
			&rec.Status, &rec.ReconciledBy, &rec.ReconciledAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankReconciliation{}, shared.NotFoundf("bank reconciliation")
		}
		return BankReconciliation{}, err
	}
	rec.StatementEndBalance = db.NumericToDecimal(stmt)
	rec.Balances = Balances{
		LedgerBalance:            db.NumericToDecimal(lb),
		OutstandingDebits:        db.NumericToDecimal(od),
		OutstandingCredits:       db.NumericToDecimal(oc),
		ExpectedStatementBalance: db.NumericToDecimal(exp),
		Difference:               db.NumericToDecimal(diff),
	}
	return rec, nil
}

func (r *txRepository) LedgerSums(ctx context.Context, orgID, accountID int64, until time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return r.sums(ctx, `SELECT COALESCE(SUM(el.debit_amount), 0), COALESCE(SUM(el.credit_amount), 0)
FROM entry_lines el
JOIN journal_entries je ON je.id = el.entry_id AND je.posted
WHERE je.org_id=$1 AND el.account_id=$2 AND je.date <= $3`, orgID, accountID, until)
}

func (r *txRepository) UnclearedSums(ctx context.Context, orgID, accountID int64, until time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return r.sums(ctx, `SELECT COALESCE(SUM(el.debit_amount), 0), COALESCE(SUM(el.credit_amount), 0)
FROM entry_lines el
JOIN journal_entries je ON je.id = el.entry_id AND je.posted
WHERE je.org_id=$1 AND el.account_id=$2 AND je.date <= $3 AND NOT el.is_cleared`, orgID, accountID, until)
}

func (r *txRepository) sums(ctx context.Context, query string, args ...any) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit pgtype.Numeric
	if err := r.tx.QueryRow(ctx, query, args...).Scan(&debit, &credit); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return db.NumericToDecimal(debit), db.NumericToDecimal(credit), nil
}

func (r *txRepository) MarkLinesCleared(ctx context.Context, orgID, accountID int64, until, clearedAt time.Time) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE entry_lines el SET is_cleared=TRUE, cleared_at=$4
FROM journal_entries je
WHERE je.id = el.entry_id AND je.posted AND je.org_id=$1
	AND el.account_id=$2 AND je.date <= $3 AND NOT el.is_cleared`,
		orgID, accountID, until, clearedAt)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) SaveBalances(ctx context.Context, reconID int64, b Balances) error {
	_, err := r.tx.Exec(ctx, `UPDATE bank_reconciliations
SET ledger_balance=$2, outstanding_debits=$3, outstanding_credits=$4, expected_statement_balance=$5, difference=$6, updated_at=NOW()
WHERE id=$1`,
		reconID, db.DecimalToNumeric(b.LedgerBalance), db.DecimalToNumeric(b.OutstandingDebits),
		db.DecimalToNumeric(b.OutstandingCredits), db.DecimalToNumeric(b.ExpectedStatementBalance), db.DecimalToNumeric(b.Difference))
	return err
}

func (r *txRepository) MarkReconciled(ctx context.Context, reconID int64, b Balances, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE bank_reconciliations
SET ledger_balance=$2, outstanding_debits=$3, outstanding_credits=$4, expected_statement_balance=$5, difference=$6,
	status=$7, reconciled_by=$8, reconciled_at=$9, updated_at=NOW()
WHERE id=$1 AND status=$10`,
		reconID, db.DecimalToNumeric(b.LedgerBalance), db.DecimalToNumeric(b.OutstandingDebits),
		db.DecimalToNumeric(b.OutstandingCredits), db.DecimalToNumeric(b.ExpectedStatementBalance), db.DecimalToNumeric(b.Difference),
		StatusReconciled, actorID, at, StatusDraft)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Conflictf("reconciliation already finalised")
	}
	return nil
}
