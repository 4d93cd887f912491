package budget

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryBudgetRepo struct {
	budgets     map[int64]Budget
	lines       map[int64]BudgetLine
	commitments map[int64]BudgetCommitment
	accountType coa.AccountType
	spentDebit  decimal.Decimal
	spentCredit decimal.Decimal
	spentStart  time.Time
	spentEnd    time.Time
	nextID      int64
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{
		budgets:     make(map[int64]Budget),
		lines:       make(map[int64]BudgetLine),
		commitments: make(map[int64]BudgetCommitment),
		accountType: coa.AccountTypeExpense,
		nextID:      1,
	}
}

func (m *memoryBudgetRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryBudgetRepo) InsertBudget(_ context.Context, b Budget) (Budget, error) {
	b.ID = m.nextID
	m.nextID++
	m.budgets[b.ID] = b
	return b, nil
}

func (m *memoryBudgetRepo) GetBudget(_ context.Context, orgID, budgetID int64) (Budget, error) {
	b, ok := m.budgets[budgetID]
	if !ok || b.OrgID != orgID {
		return Budget{}, shared.NotFoundf("budget")
	}
	return b, nil
}

func (m *memoryBudgetRepo) InsertLine(_ context.Context, line BudgetLine) (BudgetLine, error) {
	line.ID = m.nextID
	m.nextID++
	m.lines[line.ID] = line
	return line, nil
}

func (m *memoryBudgetRepo) GetLine(_ context.Context, orgID, lineID int64) (BudgetLine, Budget, error) {
	line, ok := m.lines[lineID]
	if !ok {
		return BudgetLine{}, Budget{}, shared.NotFoundf("budget line")
	}
	b := m.budgets[line.BudgetID]
	if b.OrgID != orgID {
		return BudgetLine{}, Budget{}, shared.NotFoundf("budget line")
	}
	return line, b, nil
}

func (m *memoryBudgetRepo) InsertCommitment(_ context.Context, c BudgetCommitment) (BudgetCommitment, error) {
	c.ID = m.nextID
	m.nextID++
	m.commitments[c.ID] = c
	return c, nil
}

func (m *memoryBudgetRepo) GetCommitmentForUpdate(_ context.Context, orgID, commitmentID int64) (BudgetCommitment, error) {
	c, ok := m.commitments[commitmentID]
	if !ok {
		return BudgetCommitment{}, shared.NotFoundf("budget commitment")
	}
	return c, nil
}

func (m *memoryBudgetRepo) UpdateCommitmentStatus(_ context.Context, commitmentID int64, status CommitmentStatus) error {
	c, ok := m.commitments[commitmentID]
	if !ok {
		return shared.NotFoundf("budget commitment")
	}
	c.Status = status
	m.commitments[commitmentID] = c
	return nil
}

func (m *memoryBudgetRepo) AccountType(_ context.Context, orgID, accountID int64) (coa.AccountType, error) {
	return m.accountType, nil
}

func (m *memoryBudgetRepo) SpentSums(_ context.Context, orgID, accountID int64, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	m.spentStart = start
	m.spentEnd = end
	return m.spentDebit, m.spentCredit, nil
}

func (m *memoryBudgetRepo) CommittedSum(_ context.Context, lineID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range m.commitments {
		if c.LineID == lineID && c.Status == StatusCommitted {
			sum = sum.Add(c.Amount)
		}
	}
	return sum, nil
}

func (m *memoryBudgetRepo) PeriodWindow(_ context.Context, orgID, periodID int64) (time.Time, time.Time, error) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), nil
}

func (m *memoryBudgetRepo) FiscalYearWindow(_ context.Context, orgID, fiscalYearID int64) (time.Time, time.Time, error) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), nil
}

func budgetTestContext() context.Context {
	return shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 1, ActorID: 7})
}

func setupBudgetLine(t *testing.T, svc *Service, allocated string) BudgetLine {
	t.Helper()
	b, err := svc.CreateBudget(budgetTestContext(), CreateBudgetInput{FiscalYearID: 1, Name: "FY2024 Operating"})
	require.NoError(t, err)
	line, err := svc.AddLine(budgetTestContext(), AddLineInput{
		BudgetID:  b.ID,
		AccountID: 50,
		Allocated: decimal.RequireFromString(allocated),
	})
	require.NoError(t, err)
	return line
}

func TestLineReportScopesWindowByPeriod(t *testing.T) {
	repo := newMemoryBudgetRepo()
	svc := NewService(repo, nil)

	yearLine := setupBudgetLine(t, svc, "5000.00")
	_, err := svc.LineReport(budgetTestContext(), yearLine.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), repo.spentStart)
	require.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), repo.spentEnd)

	periodID := int64(9)
	b := repo.budgets[yearLine.BudgetID]
	periodLine, err := svc.AddLine(budgetTestContext(), AddLineInput{
		BudgetID:  b.ID,
		AccountID: 51,
		PeriodID:  &periodID,
		Allocated: decimal.RequireFromString("400.00"),
	})
	require.NoError(t, err)
	_, err = svc.LineReport(budgetTestContext(), periodLine.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), repo.spentStart)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), repo.spentEnd)
}

func TestLineReportVarianceFigures(t *testing.T) {
	repo := newMemoryBudgetRepo()
	repo.spentDebit = decimal.RequireFromString("3000.00")
	svc := NewService(repo, nil)
	line := setupBudgetLine(t, svc, "5000.00")

	_, err := svc.Commit(budgetTestContext(), CommitInput{LineID: line.ID, Amount: decimal.RequireFromString("1000.00")})
	require.NoError(t, err)

	report, err := svc.LineReport(budgetTestContext(), line.ID)
	require.NoError(t, err)
	require.True(t, report.ActualSpent.Equal(decimal.RequireFromString("3000.00")), "actual %s", report.ActualSpent)
	require.True(t, report.Committed.Equal(decimal.RequireFromString("1000.00")), "committed %s", report.Committed)
	require.True(t, report.Variance.Equal(decimal.RequireFromString("2000.00")), "variance %s", report.Variance)
	require.True(t, report.FundsAvailable.Equal(decimal.RequireFromString("1000.00")), "funds %s", report.FundsAvailable)
	require.True(t, report.VariancePercentage.Equal(decimal.RequireFromString("40")), "pct %s", report.VariancePercentage)
}

func TestLineReportZeroAllocation(t *testing.T) {
	repo := newMemoryBudgetRepo()
	repo.spentDebit = decimal.RequireFromString("100.00")
	svc := NewService(repo, nil)
	line := setupBudgetLine(t, svc, "0.00")

	report, err := svc.LineReport(budgetTestContext(), line.ID)
	require.NoError(t, err)
	require.True(t, report.VariancePercentage.IsZero(), "pct %s", report.VariancePercentage)
	require.True(t, report.Variance.Equal(decimal.RequireFromString("-100.00")), "variance %s", report.Variance)
}

func TestCancelledCommitmentReleasesFunds(t *testing.T) {
	repo := newMemoryBudgetRepo()
	svc := NewService(repo, nil)
	line := setupBudgetLine(t, svc, "5000.00")

	c, err := svc.Commit(budgetTestContext(), CommitInput{LineID: line.ID, Amount: decimal.RequireFromString("1000.00")})
	require.NoError(t, err)

	report, err := svc.LineReport(budgetTestContext(), line.ID)
	require.NoError(t, err)
	require.True(t, report.FundsAvailable.Equal(decimal.RequireFromString("4000.00")))

	require.NoError(t, svc.ResolveCommitment(budgetTestContext(), c.ID, StatusCancelled))

	report, err = svc.LineReport(budgetTestContext(), line.ID)
	require.NoError(t, err)
	require.True(t, report.FundsAvailable.Equal(decimal.RequireFromString("5000.00")), "funds %s", report.FundsAvailable)
}

func TestResolveCommitmentIsTerminal(t *testing.T) {
	repo := newMemoryBudgetRepo()
	svc := NewService(repo, nil)
	line := setupBudgetLine(t, svc, "5000.00")

	c, err := svc.Commit(budgetTestContext(), CommitInput{LineID: line.ID, Amount: decimal.RequireFromString("500.00")})
	require.NoError(t, err)
	require.NoError(t, svc.ResolveCommitment(budgetTestContext(), c.ID, StatusInvoiced))

	err = svc.ResolveCommitment(budgetTestContext(), c.ID, StatusCancelled)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestNetSpentDirections(t *testing.T) {
	debit := decimal.RequireFromString("300.00")
	credit := decimal.RequireFromString("100.00")
	require.True(t, NetSpent(coa.AccountTypeExpense, debit, credit).Equal(decimal.RequireFromString("200.00")))
	require.True(t, NetSpent(coa.AccountTypeRevenue, debit, credit).Equal(decimal.RequireFromString("-200.00")))
	require.True(t, NetSpent(coa.AccountTypeAsset, debit, credit).Equal(decimal.RequireFromString("200.00")))
}
