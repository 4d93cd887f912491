package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists ledger entities.
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
		return errors.New("ledger repository not initialised")
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

func (r *txRepository) GetJournal(ctx context.Context, orgID, journalID int64) (Journal, error) {
	return getJournalTx(ctx, r.tx, orgID, journalID)
}

func getJournalTx(ctx context.Context, tx pgx.Tx, orgID, journalID int64) (Journal, error) {
	var j Journal
	err := tx.QueryRow(ctx, `SELECT id, org_id, code, name, type, is_active, created_at, updated_at
FROM journals WHERE org_id=$1 AND id=$2`, orgID, journalID).
		Scan(&j.ID, &j.OrgID, &j.Code, &j.Name, &j.Type, &j.IsActive, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, shared.NotFoundf("journal")
		}
		return Journal{}, err
	}
	return j, nil
}

// FindJournalByTypeTx resolves the first active journal of a given type for
// an organization. Used by automatic postings (depreciation, payments).
func FindJournalByTypeTx(ctx context.Context, tx pgx.Tx, orgID int64, jtype JournalType) (Journal, error) {
	var j Journal
	err := tx.QueryRow(ctx, `SELECT id, org_id, code, name, type, is_active, created_at, updated_at
FROM journals WHERE org_id=$1 AND type=$2 AND is_active ORDER BY id LIMIT 1`, orgID, jtype).
		Scan(&j.ID, &j.OrgID, &j.Code, &j.Name, &j.Type, &j.IsActive, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, shared.Configurationf("no active %s journal for organization", jtype)
		}
		return Journal{}, err
	}
	return j, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, orgID, periodID int64) (Period, error) {
	return getPeriodForUpdateTx(ctx, r.tx, orgID, periodID)
}

// getPeriodForUpdateTx locks the period row, serializing posting against a
// concurrent close of the same period.
func getPeriodForUpdateTx(ctx context.Context, tx pgx.Tx, orgID, periodID int64) (Period, error) {
	var p Period
	err := tx.QueryRow(ctx, `SELECT p.id, fy.org_id, p.name, p.start_date, p.end_date, p.status
FROM accounting_periods p JOIN fiscal_years fy ON fy.id = p.fiscal_year_id
WHERE fy.org_id=$1 AND p.id=$2 FOR UPDATE OF p`, orgID, periodID).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.StartDate, &p.EndDate, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NotFoundf("accounting period")
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) GetAccount(ctx context.Context, orgID, accountID int64) (coa.Account, error) {
	var a coa.Account
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, code, name, type, parent_id, COALESCE(description, ''), is_active, created_at, updated_at
FROM accounts WHERE org_id=$1 AND id=$2`, orgID, accountID).
		Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coa.Account{}, shared.NotFoundf("account")
		}
		return coa.Account{}, err
	}
	return a, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	return insertEntryTx(ctx, r.tx, entry)
}

func insertEntryTx(ctx context.Context, tx pgx.Tx, entry JournalEntry) (JournalEntry, error) {
	row := tx.QueryRow(ctx, `INSERT INTO journal_entries (uuid, org_id, period_id, journal_id, entry_number, date, reference, description, posted, posted_by, posted_at, created_by)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12)
RETURNING id, created_at, updated_at`,
		entry.UUID, entry.OrgID, entry.PeriodID, entry.JournalID, entry.EntryNumber,
		entry.Date, entry.Reference, entry.Description, entry.Posted, entry.PostedBy, entry.PostedAt, entry.CreatedBy)
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_number" {
			return JournalEntry{}, shared.Conflictf("entry number %s already assigned", entry.EntryNumber)
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

const entryColumns = `id, uuid, org_id, period_id, journal_id, COALESCE(entry_number, ''), date, COALESCE(reference, ''), description, posted, posted_by, posted_at, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.UUID, &e.OrgID, &e.PeriodID, &e.JournalID, &e.EntryNumber, &e.Date,
		&e.Reference, &e.Description, &e.Posted, &e.PostedBy, &e.PostedAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.NotFoundf("journal entry")
		}
		return JournalEntry{}, err
	}
	return e, nil
}

// GetEntryForUpdate locks the entry row so concurrent posts cannot both succeed.
func (r *txRepository) GetEntryForUpdate(ctx context.Context, orgID, entryID int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, entryID)
	return scanEntry(row)
}

func (r *txRepository) ListLines(ctx context.Context, entryID int64) ([]EntryLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_id, debit_amount, credit_amount, COALESCE(description, ''), is_cleared, cleared_at, created_at
FROM entry_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []EntryLine
	for rows.Next() {
		var l EntryLine
		var debit, credit pgtype.Numeric
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &debit, &credit, &l.Description, &l.IsCleared, &l.ClearedAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Debit = db.NumericToDecimal(debit)
		l.Credit = db.NumericToDecimal(credit)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *txRepository) InsertLine(ctx context.Context, line EntryLine) (EntryLine, error) {
	return insertLineTx(ctx, r.tx, line)
}

func insertLineTx(ctx context.Context, tx pgx.Tx, line EntryLine) (EntryLine, error) {
	row := tx.QueryRow(ctx, `INSERT INTO entry_lines (entry_id, account_id, debit_amount, credit_amount, description, is_cleared)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		line.EntryID, line.AccountID, db.DecimalToNumeric(line.Debit), db.DecimalToNumeric(line.Credit), line.Description, line.IsCleared)
	if err := row.Scan(&line.ID, &line.CreatedAt); err != nil {
		return EntryLine{}, err
	}
	return line, nil
}

func (r *txRepository) UpdateLine(ctx context.Context, line EntryLine) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE entry_lines SET account_id=$3, debit_amount=$4, credit_amount=$5, description=$6
WHERE entry_id=$1 AND id=$2`,
		line.EntryID, line.ID, line.AccountID, db.DecimalToNumeric(line.Debit), db.DecimalToNumeric(line.Credit), line.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("entry line")
	}
	return nil
}

func (r *txRepository) DeleteLine(ctx context.Context, entryID, lineID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM entry_lines WHERE entry_id=$1 AND id=$2`, entryID, lineID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("entry line")
	}
	return nil
}

func (r *txRepository) NextEntryNumber(ctx context.Context, orgID, journalID int64, year int) (int64, error) {
	return nextEntryNumberTx(ctx, r.tx, orgID, journalID, year)
}

// nextEntryNumberTx allocates the next sequence via an atomic counter upsert
// keyed by (org, journal, year). The row lock taken by the upsert serializes
// concurrent posts on the same key; no find-max-and-increment race remains.
func nextEntryNumberTx(ctx context.Context, tx pgx.Tx, orgID, journalID int64, year int) (int64, error) {
	var seq int64
	err := tx.QueryRow(ctx, `INSERT INTO entry_number_counters (org_id, journal_id, year, last_seq)
VALUES ($1,$2,$3,1)
ON CONFLICT (org_id, journal_id, year)
DO UPDATE SET last_seq = entry_number_counters.last_seq + 1
RETURNING last_seq`, orgID, journalID, year).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID int64, number string, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_number=$2, posted=TRUE, posted_by=$3, posted_at=$4, updated_at=NOW()
WHERE id=$1 AND NOT posted`, entryID, number, actorID, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_number" {
			return shared.Conflictf("entry number %s already assigned", number)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Conflictf("entry already posted concurrently")
	}
	return nil
}

// PostBalancedEntryTx creates a fully posted, numbered entry inside the
// caller's transaction. Derived postings (depreciation, payments, receipts)
// use it so the generated entry and its source record commit atomically.
func PostBalancedEntryTx(ctx context.Context, tx pgx.Tx, orgID, actorID int64, now time.Time, in AutoPostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	period, err := getPeriodForUpdateTx(ctx, tx, orgID, in.PeriodID)
	if err != nil {
		return JournalEntry{}, err
	}
	if period.Status != PeriodStatusOpen {
		return JournalEntry{}, ErrPeriodClosed
	}
	journal, err := getJournalTx(ctx, tx, orgID, in.JournalID)
	if err != nil {
		return JournalEntry{}, err
	}
	seq, err := nextEntryNumberTx(ctx, tx, orgID, journal.ID, in.Date.Year())
	if err != nil {
		return JournalEntry{}, err
	}
	entry := JournalEntry{
		UUID:        uuid.New(),
		OrgID:       orgID,
		PeriodID:    period.ID,
		JournalID:   journal.ID,
		EntryNumber: FormatEntryNumber(journal.Code, in.Date.Year(), seq),
		Date:        in.Date,
		Reference:   in.Reference,
		Description: in.Description,
		Posted:      true,
		PostedBy:    &actorID,
		PostedAt:    &now,
		CreatedBy:   actorID,
	}
	entry, err = insertEntryTx(ctx, tx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	for _, line := range in.Lines {
		line.EntryID = entry.ID
		inserted, err := insertLineTx(ctx, tx, line)
		if err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, inserted)
	}
	return entry, nil
}
