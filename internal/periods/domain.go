package periods

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status enumerates fiscal-year and period states. CLOSED is terminal.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// FiscalYear is the top of the time hierarchy, unique per organization by
// name and by date boundaries.
type FiscalYear struct {
	ID        int64
	OrgID     int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period is a lockable slice of a fiscal year, unique per year by name and
// start date. Non-overlap is assumed, not enforced here.
type Period struct {
	ID           int64
	FiscalYearID int64
	OrgID        int64
	Name         string
	StartDate    time.Time
	EndDate      time.Time
	Status       Status
	ClosedBy     *int64
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsClosed reports whether the period rejects further mutation.
func (p Period) IsClosed() bool {
	return p.Status == StatusClosed
}

// CreateFiscalYearInput groups fields for opening a fiscal year.
type CreateFiscalYearInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Validate checks basic field consistency.
func (in CreateFiscalYearInput) Validate() error {
	if in.Name == "" {
		return shared.Validationf("periods: fiscal year name required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return shared.Validationf("periods: fiscal year start must precede end")
	}
	return nil
}

// CreatePeriodInput groups fields for adding a period to a fiscal year.
type CreatePeriodInput struct {
	FiscalYearID int64
	Name         string
	StartDate    time.Time
	EndDate      time.Time
}

// Validate checks basic field consistency.
func (in CreatePeriodInput) Validate() error {
	if in.FiscalYearID == 0 {
		return shared.Validationf("periods: fiscal year required")
	}
	if in.Name == "" {
		return shared.Validationf("periods: period name required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return shared.Validationf("periods: period start must precede end")
	}
	return nil
}
