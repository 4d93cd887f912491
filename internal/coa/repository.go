package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists chart of accounts rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, org_id, code, name, type, parent_id, COALESCE(description, ''), is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("account")
		}
		return Account{}, err
	}
	return a, nil
}

// Insert creates an account; the (org_id, code) unique index surfaces duplicates.
func (r *Repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (org_id, code, name, type, parent_id, description, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+accountColumns,
		a.OrgID, a.Code, a.Name, a.Type, a.ParentID, a.Description, a.IsActive)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_org_code" {
			return Account{}, shared.Conflictf("account code %s already exists", a.Code)
		}
		return Account{}, err
	}
	return created, nil
}

// Get loads one account within the organization.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id)
	return scanAccount(row)
}

// GetByCode loads one account by its organization-unique code.
func (r *Repository) GetByCode(ctx context.Context, orgID int64, code string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND code=$2`, orgID, code)
	return scanAccount(row)
}

// List returns the organization's accounts ordered by code.
func (r *Repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, orgID, id int64, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("account")
	}
	return nil
}
