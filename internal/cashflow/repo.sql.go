package cashflow

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists cash transactions.
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
		return errors.New("cashflow repository not initialised")
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

func (r *txRepository) FindBankJournal(ctx context.Context, orgID int64) (int64, error) {
	journal, err := ledger.FindJournalByTypeTx(ctx, r.tx, orgID, ledger.JournalTypeBank)
	if err != nil {
		return 0, err
	}
	return journal.ID, nil
}

func (r *txRepository) PostEntry(ctx context.Context, orgID, actorID int64, now time.Time, in ledger.AutoPostingInput) (ledger.JournalEntry, error) {
	return ledger.PostBalancedEntryTx(ctx, r.tx, orgID, actorID, now, in)
}

const txnColumns = `id, org_id, kind, period_id, bank_account_id, counter_account_id, amount, date, COALESCE(reference, ''), COALESCE(description, ''), entry_id, created_at`

func scanTransaction(row pgx.Row) (CashTransaction, error) {
	var t CashTransaction
	var amount pgtype.Numeric
	err := row.Scan(&t.ID, &t.OrgID, &t.Kind, &t.PeriodID, &t.BankAccountID, &t.CounterAccountID,
		&amount, &t.Date, &t.Reference, &t.Description, &t.EntryID, &t.CreatedAt)
	if err != nil {
		return CashTransaction{}, err
	}
	t.Amount = db.NumericToDecimal(amount)
	return t, nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, t CashTransaction) (CashTransaction, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO cash_transactions (org_id, kind, period_id, bank_account_id, counter_account_id, amount, date, reference, description, entry_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at`,
		t.OrgID, t.Kind, t.PeriodID, t.BankAccountID, t.CounterAccountID,
		db.DecimalToNumeric(t.Amount), t.Date, t.Reference, t.Description, t.EntryID)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return CashTransaction{}, err
	}
	return t, nil
}

func (r *txRepository) GetTransaction(ctx context.Context, orgID, id int64) (CashTransaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM cash_transactions WHERE org_id=$1 AND id=$2`, orgID, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CashTransaction{}, shared.NotFoundf("cash transaction")
		}
		return CashTransaction{}, err
	}
	return t, nil
}

func (r *txRepository) ListTransactions(ctx context.Context, orgID, periodID int64) ([]CashTransaction, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+txnColumns+` FROM cash_transactions
WHERE org_id=$1 AND period_id=$2 ORDER BY date ASC, id ASC`, orgID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CashTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
