package assets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists fixed assets and depreciation entries.
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
		return errors.New("assets repository not initialised")
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

const assetColumns = `id, org_id, code, name, cost, salvage, life_years, acquired_at, expense_account_id, accumulated_account_id, is_active, created_at, updated_at`

func scanAsset(row pgx.Row) (FixedAsset, error) {
	var a FixedAsset
	var cost, salvage pgtype.Numeric
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &cost, &salvage, &a.LifeYears, &a.AcquiredAt,
		&a.ExpenseAccountID, &a.AccumulatedAccountID, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return FixedAsset{}, err
	}
	a.Cost = db.NumericToDecimal(cost)
	a.Salvage = db.NumericToDecimal(salvage)
	return a, nil
}

func (r *txRepository) GetAsset(ctx context.Context, orgID, assetID int64) (FixedAsset, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE org_id=$1 AND id=$2`, orgID, assetID)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FixedAsset{}, shared.NotFoundf("fixed asset")
		}
		return FixedAsset{}, err
	}
	return a, nil
}

func (r *txRepository) InsertAsset(ctx context.Context, a FixedAsset) (FixedAsset, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO fixed_assets (org_id, code, name, cost, salvage, life_years, acquired_at, expense_account_id, accumulated_account_id, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		a.OrgID, a.Code, a.Name, db.DecimalToNumeric(a.Cost), db.DecimalToNumeric(a.Salvage), a.LifeYears, a.AcquiredAt,
		a.ExpenseAccountID, a.AccumulatedAccountID, a.Active)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_fixed_assets_org_code" {
			return FixedAsset{}, shared.Conflictf("asset code %s already exists", a.Code)
		}
		return FixedAsset{}, err
	}
	return a, nil
}

func (r *txRepository) ListActiveAssets(ctx context.Context, orgID int64) ([]FixedAsset, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE org_id=$1 AND is_active ORDER BY code ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *txRepository) AccumulatedDepreciation(ctx context.Context, assetID int64) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM depreciation_entries WHERE asset_id=$1`, assetID).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return db.NumericToDecimal(sum), nil
}

func (r *txRepository) InsertDepreciationEntry(ctx context.Context, e DepreciationEntry) (DepreciationEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO depreciation_entries (org_id, asset_id, period_id, entry_id, amount)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		e.OrgID, e.AssetID, e.PeriodID, e.EntryID, db.DecimalToNumeric(e.Amount))
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_depreciation_asset_period" {
			return DepreciationEntry{}, shared.Conflictf("depreciation already generated for asset %d in period %d", e.AssetID, e.PeriodID)
		}
		return DepreciationEntry{}, err
	}
	return e, nil
}

func (r *txRepository) FindMiscJournal(ctx context.Context, orgID int64) (int64, error) {
	journal, err := ledger.FindJournalByTypeTx(ctx, r.tx, orgID, ledger.JournalTypeMisc)
	if err != nil {
		return 0, err
	}
	return journal.ID, nil
}

func (r *txRepository) PeriodLabel(ctx context.Context, orgID, periodID int64) (string, time.Time, error) {
	var name string
	var endDate time.Time
	err := r.tx.QueryRow(ctx, `SELECT p.name, p.end_date
FROM accounting_periods p JOIN fiscal_years fy ON fy.id = p.fiscal_year_id
WHERE fy.org_id=$1 AND p.id=$2`, orgID, periodID).Scan(&name, &endDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, shared.NotFoundf("accounting period")
		}
		return "", time.Time{}, err
	}
	return name, endDate, nil
}

func (r *txRepository) PostEntry(ctx context.Context, orgID, actorID int64, now time.Time, in ledger.AutoPostingInput) (ledger.JournalEntry, error) {
	return ledger.PostBalancedEntryTx(ctx, r.tx, orgID, actorID, now, in)
}
