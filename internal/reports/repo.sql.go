package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository aggregates posted ledger activity. All queries are read only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountActivity sums posted lines per account, split at the window start.
// Accounts with no posted lines on or before the window end are omitted.
func (r *Repository) AccountActivity(ctx context.Context, orgID int64, window Window, types []coa.AccountType) ([]AccountActivity, error) {
	query := `SELECT a.id, a.code, a.name, a.type,
	COALESCE(SUM(el.debit_amount) FILTER (WHERE je.date < $2), 0),
	COALESCE(SUM(el.credit_amount) FILTER (WHERE je.date < $2), 0),
	COALESCE(SUM(el.debit_amount) FILTER (WHERE je.date >= $2 AND je.date <= $3), 0),
	COALESCE(SUM(el.credit_amount) FILTER (WHERE je.date >= $2 AND je.date <= $3), 0)
FROM accounts a
JOIN entry_lines el ON el.account_id = a.id
JOIN journal_entries je ON je.id = el.entry_id AND je.posted
WHERE a.org_id = $1 AND je.org_id = $1 AND je.date <= $3
	AND (cardinality($4::text[]) = 0 OR a.type = ANY($4::text[]))
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code ASC`
	typeFilter := make([]string, 0, len(types))
	for _, t := range types {
		typeFilter = append(typeFilter, string(t))
	}
	rows, err := r.pool.Query(ctx, query, orgID, window.Start, window.End, typeFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var act AccountActivity
		var od, oc, pd, pc pgtype.Numeric
		if err := rows.Scan(&act.AccountID, &act.AccountCode, &act.AccountName, &act.AccountType, &od, &oc, &pd, &pc); err != nil {
			return nil, err
		}
		act.OpeningDebit = db.NumericToDecimal(od)
		act.OpeningCredit = db.NumericToDecimal(oc)
		act.PeriodDebit = db.NumericToDecimal(pd)
		act.PeriodCredit = db.NumericToDecimal(pc)
		out = append(out, act)
	}
	return out, rows.Err()
}

// AccountHeader resolves report header fields for one account.
func (r *Repository) AccountHeader(ctx context.Context, orgID, accountID int64) (int64, string, string, coa.AccountType, error) {
	var id int64
	var code, name string
	var atype coa.AccountType
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, type FROM accounts WHERE org_id=$1 AND id=$2`,
		orgID, accountID).Scan(&id, &code, &name, &atype)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", "", "", shared.NotFoundf("account")
		}
		return 0, "", "", "", err
	}
	return id, code, name, atype, nil
}

// AccountLines lists posted lines for one account inside the window, ordered
// by entry date then line id so insertion order is preserved.
func (r *Repository) AccountLines(ctx context.Context, orgID, accountID int64, window Window) ([]GeneralLedgerLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT je.id, COALESCE(je.entry_number, ''), je.date, j.code, COALESCE(el.description, je.description),
	el.debit_amount, el.credit_amount
FROM entry_lines el
JOIN journal_entries je ON je.id = el.entry_id AND je.posted
JOIN journals j ON j.id = je.journal_id
WHERE je.org_id = $1 AND el.account_id = $2 AND je.date >= $3 AND je.date <= $4
ORDER BY je.date ASC, el.id ASC`, orgID, accountID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GeneralLedgerLine
	for rows.Next() {
		var line GeneralLedgerLine
		var debit, credit pgtype.Numeric
		if err := rows.Scan(&line.EntryID, &line.EntryNumber, &line.Date, &line.JournalCode, &line.Description, &debit, &credit); err != nil {
			return nil, err
		}
		line.Debit = db.NumericToDecimal(debit)
		line.Credit = db.NumericToDecimal(credit)
		out = append(out, line)
	}
	return out, rows.Err()
}

// AccountOpening nets posted lines strictly before a date, following the
// account's normal side.
func (r *Repository) AccountOpening(ctx context.Context, orgID, accountID int64, atype coa.AccountType, before time.Time) (decimal.Decimal, error) {
	var debit, credit pgtype.Numeric
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(el.debit_amount), 0), COALESCE(SUM(el.credit_amount), 0)
FROM entry_lines el
JOIN journal_entries je ON je.id = el.entry_id AND je.posted
WHERE je.org_id = $1 AND el.account_id = $2 AND je.date < $3`, orgID, accountID, before).Scan(&debit, &credit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return atype.NetBalance(db.NumericToDecimal(debit), db.NumericToDecimal(credit)), nil
}
