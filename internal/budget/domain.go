package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// CommitmentStatus tracks a reserved expenditure's lifecycle. COMMITTED moves
// to INVOICED or CANCELLED, both terminal.
type CommitmentStatus string

const (
	StatusCommitted CommitmentStatus = "COMMITTED"
	StatusInvoiced  CommitmentStatus = "INVOICED"
	StatusCancelled CommitmentStatus = "CANCELLED"
)

// Budget groups allocation lines under one fiscal year.
type Budget struct {
	ID           int64
	OrgID        int64
	FiscalYearID int64
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BudgetLine allocates an amount to an account, optionally narrowed to one
// period inside the budget's fiscal year.
type BudgetLine struct {
	ID        int64
	BudgetID  int64
	AccountID int64
	PeriodID  *int64
	Allocated decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BudgetCommitment reserves funds against a line before the expense is
// realized.
type BudgetCommitment struct {
	ID        int64
	LineID    int64
	Amount    decimal.Decimal
	Status    CommitmentStatus
	EntryID   *int64
	Reference string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineReport carries the computed position of one budget line.
type LineReport struct {
	LineID             int64           `json:"line_id"`
	AccountID          int64           `json:"account_id"`
	Allocated          decimal.Decimal `json:"allocated"`
	ActualSpent        decimal.Decimal `json:"actual_spent"`
	Committed          decimal.Decimal `json:"committed"`
	Variance           decimal.Decimal `json:"variance"`
	FundsAvailable     decimal.Decimal `json:"funds_available"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
}

// CreateBudgetInput names a budget within a fiscal year.
type CreateBudgetInput struct {
	FiscalYearID int64
	Name         string
}

// Validate checks the budget header.
func (in CreateBudgetInput) Validate() error {
	if in.FiscalYearID == 0 {
		return shared.Validationf("budget: fiscal year is required")
	}
	if in.Name == "" {
		return shared.Validationf("budget: name is required")
	}
	return nil
}

// AddLineInput allocates funds to an account.
type AddLineInput struct {
	BudgetID  int64
	AccountID int64
	PeriodID  *int64
	Allocated decimal.Decimal
}

// Validate checks the allocation.
func (in AddLineInput) Validate() error {
	if in.BudgetID == 0 || in.AccountID == 0 {
		return shared.Validationf("budget: budget and account are required")
	}
	if in.Allocated.IsNegative() {
		return shared.Validationf("budget: allocation cannot be negative")
	}
	return nil
}

// CommitInput reserves funds against a line.
type CommitInput struct {
	LineID    int64
	Amount    decimal.Decimal
	Reference string
}

// Validate checks the commitment.
func (in CommitInput) Validate() error {
	if in.LineID == 0 {
		return shared.Validationf("budget: line is required")
	}
	if !in.Amount.IsPositive() {
		return shared.Validationf("budget: commitment amount must be positive")
	}
	return nil
}

// NetSpent nets posted activity for budget purposes. Expense accounts spend
// on the debit side, revenue accounts on the credit side, anything else
// follows the debit side.
func NetSpent(atype coa.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if atype == coa.AccountTypeRevenue {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

var hundred = decimal.NewFromInt(100)

// BuildLineReport derives variance figures from the raw sums.
func BuildLineReport(line BudgetLine, actual, committed decimal.Decimal) LineReport {
	report := LineReport{
		LineID:      line.ID,
		AccountID:   line.AccountID,
		Allocated:   line.Allocated,
		ActualSpent: actual,
		Committed:   committed,
	}
	report.Variance = line.Allocated.Sub(actual)
	report.FundsAvailable = line.Allocated.Sub(actual).Sub(committed)
	if line.Allocated.IsZero() {
		report.VariancePercentage = decimal.Zero
	} else {
		report.VariancePercentage = report.Variance.Div(line.Allocated).Mul(hundred)
	}
	return report
}
