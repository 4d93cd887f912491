package bankrec

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeLine struct {
	debit   decimal.Decimal
	credit  decimal.Decimal
	cleared bool
	date    time.Time
}

type memoryRecRepo struct {
	recs   map[int64]BankReconciliation
	lines  []fakeLine
	keys   map[string]bool
	nextID int64
}

func newMemoryRecRepo() *memoryRecRepo {
	return &memoryRecRepo{
		recs:   make(map[int64]BankReconciliation),
		keys:   make(map[string]bool),
		nextID: 1,
	}
}

func (m *memoryRecRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRecRepo) AccountExists(_ context.Context, orgID, accountID int64) error {
	return nil
}

func (m *memoryRecRepo) InsertReconciliation(_ context.Context, rec BankReconciliation) (BankReconciliation, error) {
	key := rec.StatementDate.Format("2006-01-02")
	if m.keys[key] {
		return BankReconciliation{}, shared.Conflictf("reconciliation already exists for account %d on %s", rec.AccountID, key)
	}
	m.keys[key] = true
	rec.ID = m.nextID
	m.nextID++
	m.recs[rec.ID] = rec
	return rec, nil
}

func (m *memoryRecRepo) GetReconciliationForUpdate(_ context.Context, orgID, reconID int64) (BankReconciliation, error) {
	rec, ok := m.recs[reconID]
	if !ok {
		return BankReconciliation{}, shared.NotFoundf("bank reconciliation")
	}
	return rec, nil
}

func (m *memoryRecRepo) LedgerSums(_ context.Context, _, _ int64, until time.Time) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range m.lines {
		if l.date.After(until) {
			continue
		}
		debit = debit.Add(l.debit)
		credit = credit.Add(l.credit)
	}
	return debit, credit, nil
}

func (m *memoryRecRepo) UnclearedSums(_ context.Context, _, _ int64, until time.Time) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range m.lines {
		if l.cleared || l.date.After(until) {
			continue
		}
		debit = debit.Add(l.debit)
		credit = credit.Add(l.credit)
	}
	return debit, credit, nil
}

func (m *memoryRecRepo) MarkLinesCleared(_ context.Context, _, _ int64, until, clearedAt time.Time) (int64, error) {
	var n int64
	for i := range m.lines {
		if m.lines[i].cleared || m.lines[i].date.After(until) {
			continue
		}
		m.lines[i].cleared = true
		n++
	}
	return n, nil
}

func (m *memoryRecRepo) SaveBalances(_ context.Context, reconID int64, b Balances) error {
	rec := m.recs[reconID]
	rec.Balances = b
	m.recs[reconID] = rec
	return nil
}

func (m *memoryRecRepo) MarkReconciled(_ context.Context, reconID int64, b Balances, actorID int64, at time.Time) error {
	rec := m.recs[reconID]
	rec.Balances = b
	rec.Status = StatusReconciled
	rec.ReconciledBy = &actorID
	rec.ReconciledAt = &at
	m.recs[reconID] = rec
	return nil
}

func recTestContext() context.Context {
	return shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 1, ActorID: 7})
}

func statementDate() time.Time {
	return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestComputeBalances(t *testing.T) {
	b := ComputeBalances(
		decimal.RequireFromString("850.00"),
		decimal.RequireFromString("800.00"), decimal.Zero,
		decimal.Zero, decimal.RequireFromString("50.00"),
	)
	require.True(t, b.LedgerBalance.Equal(decimal.RequireFromString("800.00")))
	require.True(t, b.ExpectedStatementBalance.Equal(decimal.RequireFromString("850.00")), "expected %s", b.ExpectedStatementBalance)
	require.True(t, b.Difference.IsZero(), "difference %s", b.Difference)
}

func TestReconcileMatchingStatement(t *testing.T) {
	repo := newMemoryRecRepo()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	repo.lines = []fakeLine{
		{debit: decimal.RequireFromString("800.00"), credit: decimal.Zero, cleared: true, date: day},
		{debit: decimal.Zero, credit: decimal.RequireFromString("50.00"), cleared: false, date: day},
	}
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return statementDate() })

	rec, err := svc.Create(recTestContext(), CreateInput{
		AccountID:           10,
		StatementDate:       statementDate(),
		StatementEndBalance: decimal.RequireFromString("800.00"),
	})
	require.NoError(t, err)

	result, err := svc.Reconcile(recTestContext(), rec.ID)
	require.NoError(t, err)
	require.True(t, result.Reconciled)
	require.Equal(t, int64(1), result.ClearedLines)
	require.True(t, result.Balances.LedgerBalance.Equal(decimal.RequireFromString("750.00")))
	require.True(t, result.Balances.OutstandingCredits.Equal(decimal.RequireFromString("50.00")))
	require.True(t, result.Balances.ExpectedStatementBalance.Equal(decimal.RequireFromString("800.00")))
	require.Equal(t, StatusReconciled, repo.recs[rec.ID].Status)
	require.NotNil(t, repo.recs[rec.ID].ReconciledBy)
}

func TestReconcileNonZeroDifferenceLeavesStateUnchanged(t *testing.T) {
	repo := newMemoryRecRepo()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	repo.lines = []fakeLine{
		{debit: decimal.RequireFromString("800.00"), cleared: false, date: day},
	}
	svc := NewService(repo, nil)

	rec, err := svc.Create(recTestContext(), CreateInput{
		AccountID:           10,
		StatementDate:       statementDate(),
		StatementEndBalance: decimal.RequireFromString("900.00"),
	})
	require.NoError(t, err)

	result, err := svc.Reconcile(recTestContext(), rec.ID)
	require.NoError(t, err)
	require.False(t, result.Reconciled)
	require.Equal(t, StatusDraft, repo.recs[rec.ID].Status)
	require.False(t, repo.lines[0].cleared)
}

func TestCreateDuplicateStatementDateConflicts(t *testing.T) {
	repo := newMemoryRecRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(recTestContext(), CreateInput{AccountID: 10, StatementDate: statementDate()})
	require.NoError(t, err)

	_, err = svc.Create(recTestContext(), CreateInput{AccountID: 10, StatementDate: statementDate()})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCalculateBalancesScenario(t *testing.T) {
	repo := newMemoryRecRepo()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	repo.lines = []fakeLine{
		{debit: decimal.RequireFromString("800.00"), cleared: true, date: day},
		{credit: decimal.RequireFromString("50.00"), cleared: false, date: day},
	}
	svc := NewService(repo, nil)

	rec, err := svc.Create(recTestContext(), CreateInput{
		AccountID:           10,
		StatementDate:       statementDate(),
		StatementEndBalance: decimal.RequireFromString("800.00"),
	})
	require.NoError(t, err)

	balances, err := svc.CalculateBalances(recTestContext(), rec.ID)
	require.NoError(t, err)
	require.True(t, balances.LedgerBalance.Equal(decimal.RequireFromString("750.00")), "ledger %s", balances.LedgerBalance)
	require.True(t, balances.OutstandingDebits.IsZero())
	require.True(t, balances.OutstandingCredits.Equal(decimal.RequireFromString("50.00")))
	require.True(t, balances.Difference.IsZero(), "difference %s", balances.Difference)
}
