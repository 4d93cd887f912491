package periods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// The closing message names at most this many offending entries.
const maxNamedEntries = 5

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records period lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TxRepository exposes transactional period operations.
type TxRepository interface {
	GetFiscalYear(ctx context.Context, orgID, fiscalYearID int64) (FiscalYear, error)
	InsertFiscalYear(ctx context.Context, fy FiscalYear) (FiscalYear, error)
	InsertPeriod(ctx context.Context, p Period) (Period, error)
	GetPeriodForUpdate(ctx context.Context, orgID, periodID int64) (Period, error)
	UnpostedEntryNumbers(ctx context.Context, periodID int64, limit int) ([]string, int64, error)
	UpdatePeriodStatus(ctx context.Context, periodID int64, status Status, actorID int64, at time.Time) error
}

// Service governs fiscal-year and period lifecycle.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the period lifecycle service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateFiscalYear opens a fiscal year for the caller's organization.
func (s *Service) CreateFiscalYear(ctx context.Context, in CreateFiscalYearInput) (FiscalYear, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return FiscalYear{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return FiscalYear{}, err
	}
	var fy FiscalYear
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		fy, err = tx.InsertFiscalYear(ctx, FiscalYear{
			OrgID:     tenant.OrgID,
			Name:      in.Name,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			Status:    StatusOpen,
		})
		return err
	})
	return fy, err
}

// CreatePeriod adds a period to an open fiscal year.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Period{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		fy, err := tx.GetFiscalYear(ctx, tenant.OrgID, in.FiscalYearID)
		if err != nil {
			return err
		}
		if fy.Status == StatusClosed {
			return shared.Validationf("periods: fiscal year %s is closed", fy.Name)
		}
		if in.StartDate.Before(fy.StartDate) || in.EndDate.After(fy.EndDate) {
			return shared.Validationf("periods: period dates outside fiscal year %s", fy.Name)
		}
		period, err = tx.InsertPeriod(ctx, Period{
			FiscalYearID: fy.ID,
			OrgID:        tenant.OrgID,
			Name:         in.Name,
			StartDate:    in.StartDate,
			EndDate:      in.EndDate,
			Status:       StatusOpen,
		})
		return err
	})
	return period, err
}

// ValidateForClosing reports whether the period can close. When it cannot,
// the message names up to five unposted entries, with a trailing ellipsis
// when more exist.
func (s *Service) ValidateForClosing(ctx context.Context, periodID int64) (bool, string, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return false, "", shared.ErrTenantRequired
	}
	var okToClose bool
	var message string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, tenant.OrgID, periodID)
		if err != nil {
			return err
		}
		okToClose, message, err = validateForClosingTx(ctx, tx, period)
		return err
	})
	if err != nil {
		return false, "", err
	}
	return okToClose, message, nil
}

func validateForClosingTx(ctx context.Context, tx TxRepository, period Period) (bool, string, error) {
	numbers, total, err := tx.UnpostedEntryNumbers(ctx, period.ID, maxNamedEntries)
	if err != nil {
		return false, "", err
	}
	if total == 0 {
		return true, "Period is valid for closing.", nil
	}
	list := strings.Join(numbers, ", ")
	if total > int64(len(numbers)) {
		list += "..."
	}
	return false, fmt.Sprintf("Cannot close period. Unposted entries found: %s", list), nil
}

// Close transitions the period to CLOSED after re-running validation inside
// the transaction. Closing an already closed period is a no-op success.
// The period row lock serializes the close against in-flight postings.
func (s *Service) Close(ctx context.Context, periodID int64) (Period, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Period{}, shared.ErrTenantRequired
	}
	var period Period
	var already bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		period, err = tx.GetPeriodForUpdate(ctx, tenant.OrgID, periodID)
		if err != nil {
			return err
		}
		if period.IsClosed() {
			already = true
			return nil
		}
		okToClose, message, err := validateForClosingTx(ctx, tx, period)
		if err != nil {
			return err
		}
		if !okToClose {
			return shared.Validationf("periods: %s", message)
		}
		closedAt := s.now()
		if err := tx.UpdatePeriodStatus(ctx, period.ID, StatusClosed, tenant.ActorID, closedAt); err != nil {
			return err
		}
		period.Status = StatusClosed
		period.ClosedBy = &tenant.ActorID
		period.ClosedAt = &closedAt
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	if s.audit != nil && !already {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "period.close",
			Entity:   "accounting_period",
			EntityID: fmt.Sprintf("%d", period.ID),
			Meta:     map[string]any{"name": period.Name},
			At:       s.now(),
		})
	}
	return period, nil
}
