package coa

import (
	"context"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts account persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, a Account) (Account, error)
	Get(ctx context.Context, orgID, id int64) (Account, error)
	GetByCode(ctx context.Context, orgID int64, code string) (Account, error)
	List(ctx context.Context, orgID int64) ([]Account, error)
	SetActive(ctx context.Context, orgID, id int64, active bool) error
}

// Service maintains the account registry for an organization.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the chart of accounts service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateAccountInput groups fields for registering an account.
type CreateAccountInput struct {
	Code        string
	Name        string
	Type        AccountType
	ParentID    *int64
	Description string
}

// CreateAccount registers a new account under the caller's organization.
// A parent, when given, must belong to the same organization.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Account{}, shared.ErrTenantRequired
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return Account{}, shared.Validationf("account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return Account{}, shared.Validationf("account name required")
	}
	if !ValidType(in.Type) {
		return Account{}, shared.Validationf("unknown account type %q", in.Type)
	}
	if in.ParentID != nil {
		if _, err := s.repo.Get(ctx, tenant.OrgID, *in.ParentID); err != nil {
			return Account{}, err
		}
	}
	return s.repo.Insert(ctx, Account{
		OrgID:       tenant.OrgID,
		Code:        code,
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		ParentID:    in.ParentID,
		Description: in.Description,
		IsActive:    true,
	})
}

// GetAccount loads one account scoped to the caller's organization.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Account{}, shared.ErrTenantRequired
	}
	return s.repo.Get(ctx, tenant.OrgID, id)
}

// ListAccounts returns the organization's chart ordered by code.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.List(ctx, tenant.OrgID)
}

// DeactivateAccount flags an account so new entry lines reject it.
func (s *Service) DeactivateAccount(ctx context.Context, id int64) error {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return shared.ErrTenantRequired
	}
	return s.repo.SetActive(ctx, tenant.OrgID, id, false)
}
