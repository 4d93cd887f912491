package assets

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryAssetRepo struct {
	assets      map[int64]FixedAsset
	deps        map[int64]DepreciationEntry
	depKeys     map[[2]int64]bool
	miscJournal int64
	nextID      int64
	nextEntry   int64
}

func newMemoryAssetRepo() *memoryAssetRepo {
	return &memoryAssetRepo{
		assets:      make(map[int64]FixedAsset),
		deps:        make(map[int64]DepreciationEntry),
		depKeys:     make(map[[2]int64]bool),
		miscJournal: 9,
		nextID:      1,
		nextEntry:   100,
	}
}

func (m *memoryAssetRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryAssetRepo) GetAsset(_ context.Context, orgID, assetID int64) (FixedAsset, error) {
	a, ok := m.assets[assetID]
	if !ok || a.OrgID != orgID {
		return FixedAsset{}, shared.NotFoundf("fixed asset")
	}
	return a, nil
}

func (m *memoryAssetRepo) InsertAsset(_ context.Context, a FixedAsset) (FixedAsset, error) {
	a.ID = m.nextID
	m.nextID++
	m.assets[a.ID] = a
	return a, nil
}

func (m *memoryAssetRepo) ListActiveAssets(_ context.Context, orgID int64) ([]FixedAsset, error) {
	var out []FixedAsset
	for _, a := range m.assets {
		if a.OrgID == orgID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAssetRepo) AccumulatedDepreciation(_ context.Context, assetID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, d := range m.deps {
		if d.AssetID == assetID {
			sum = sum.Add(d.Amount)
		}
	}
	return sum, nil
}

func (m *memoryAssetRepo) InsertDepreciationEntry(_ context.Context, e DepreciationEntry) (DepreciationEntry, error) {
	key := [2]int64{e.AssetID, e.PeriodID}
	if m.depKeys[key] {
		return DepreciationEntry{}, shared.Conflictf("depreciation already generated for asset %d in period %d", e.AssetID, e.PeriodID)
	}
	e.ID = m.nextID
	m.nextID++
	m.depKeys[key] = true
	m.deps[e.ID] = e
	return e, nil
}

func (m *memoryAssetRepo) FindMiscJournal(_ context.Context, orgID int64) (int64, error) {
	if m.miscJournal == 0 {
		return 0, shared.Configurationf("no active MISC journal for organization %d", orgID)
	}
	return m.miscJournal, nil
}

func (m *memoryAssetRepo) PeriodLabel(_ context.Context, _, periodID int64) (string, time.Time, error) {
	return "2024-01", time.Date(2024, time.Month(periodID%12+1), 28, 0, 0, 0, 0, time.UTC), nil
}

func (m *memoryAssetRepo) PostEntry(_ context.Context, orgID, actorID int64, now time.Time, in ledger.AutoPostingInput) (ledger.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return ledger.JournalEntry{}, err
	}
	m.nextEntry++
	return ledger.JournalEntry{ID: m.nextEntry, OrgID: orgID, Posted: true, CreatedBy: actorID, PostedAt: &now}, nil
}

func assetTestContext() context.Context {
	return shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 1, ActorID: 7})
}

func newAssetService(repo *memoryAssetRepo) *Service {
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC) })
	return svc
}

func registerTestAsset(t *testing.T, svc *Service, cost, salvage string, lifeYears int) FixedAsset {
	t.Helper()
	asset, err := svc.Register(assetTestContext(), CreateAssetInput{
		Code:                 "MACH-01",
		Name:                 "Packing machine",
		Cost:                 decimal.RequireFromString(cost),
		Salvage:              decimal.RequireFromString(salvage),
		LifeYears:            lifeYears,
		AcquiredAt:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpenseAccountID:     50,
		AccumulatedAccountID: 15,
	})
	require.NoError(t, err)
	return asset
}

func TestCalculateAmountStraightLine(t *testing.T) {
	asset := FixedAsset{
		Cost:      decimal.RequireFromString("12000.00"),
		Salvage:   decimal.Zero,
		LifeYears: 5,
	}
	amount := CalculateAmount(asset, decimal.Zero)
	require.True(t, amount.Equal(decimal.RequireFromString("200.00")), "got %s", amount)

	almostDone := decimal.RequireFromString("11900.00")
	amount = CalculateAmount(asset, almostDone)
	require.True(t, amount.Equal(decimal.RequireFromString("100.00")), "capped at remaining, got %s", amount)

	amount = CalculateAmount(asset, decimal.RequireFromString("12000.00"))
	require.True(t, amount.IsZero(), "fully depreciated, got %s", amount)
}

func TestGenerateEntryFullLife(t *testing.T) {
	repo := newMemoryAssetRepo()
	svc := newAssetService(repo)
	asset := registerTestAsset(t, svc, "12000.00", "0.00", 5)

	for period := int64(1); period <= 60; period++ {
		result, err := svc.GenerateEntry(assetTestContext(), asset.ID, period)
		require.NoError(t, err, "period %d", period)
		require.False(t, result.Skipped, "period %d", period)
		require.True(t, result.Entry.Amount.Equal(decimal.RequireFromString("200.00")), "period %d got %s", period, result.Entry.Amount)
	}

	result, err := svc.GenerateEntry(assetTestContext(), asset.ID, 61)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, "asset fully depreciated", result.Reason)

	accumulated, err := repo.AccumulatedDepreciation(context.Background(), asset.ID)
	require.NoError(t, err)
	require.True(t, accumulated.Equal(decimal.RequireFromString("12000.00")), "got %s", accumulated)
}

func TestGenerateEntryDuplicatePeriodConflicts(t *testing.T) {
	repo := newMemoryAssetRepo()
	svc := newAssetService(repo)
	asset := registerTestAsset(t, svc, "12000.00", "0.00", 5)

	_, err := svc.GenerateEntry(assetTestContext(), asset.ID, 1)
	require.NoError(t, err)

	_, err = svc.GenerateEntry(assetTestContext(), asset.ID, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Len(t, repo.deps, 1)
}

func TestGenerateEntrySkipsWithoutMiscJournal(t *testing.T) {
	repo := newMemoryAssetRepo()
	repo.miscJournal = 0
	svc := newAssetService(repo)
	asset := registerTestAsset(t, svc, "12000.00", "0.00", 5)

	result, err := svc.GenerateEntry(assetTestContext(), asset.ID, 1)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, "no MISC journal configured", result.Reason)
	require.Empty(t, repo.deps)
}

func TestRunPeriodCountsSkips(t *testing.T) {
	repo := newMemoryAssetRepo()
	svc := newAssetService(repo)
	asset := registerTestAsset(t, svc, "12000.00", "0.00", 5)

	summary, err := svc.RunPeriod(assetTestContext(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Generated)
	require.Equal(t, 0, summary.Skipped)

	summary, err = svc.RunPeriod(assetTestContext(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Generated)
	require.Equal(t, 1, summary.Skipped)

	_ = asset
}

func TestRegisterValidatesInput(t *testing.T) {
	repo := newMemoryAssetRepo()
	svc := newAssetService(repo)

	_, err := svc.Register(assetTestContext(), CreateAssetInput{
		Code:      "BAD",
		Name:      "Negative cost",
		Cost:      decimal.RequireFromString("-1.00"),
		LifeYears: 5,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
