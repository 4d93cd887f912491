package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryPeriodRepo struct {
	fiscalYears map[int64]FiscalYear
	periods     map[int64]Period
	unposted    map[int64][]string
	nextID      int64
}

func newMemoryPeriodRepo() *memoryPeriodRepo {
	m := &memoryPeriodRepo{
		fiscalYears: make(map[int64]FiscalYear),
		periods:     make(map[int64]Period),
		unposted:    make(map[int64][]string),
		nextID:      1,
	}
	m.fiscalYears[1] = FiscalYear{
		ID: 1, OrgID: 1, Name: "FY2024", Status: StatusOpen,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	m.periods[1] = Period{
		ID: 1, FiscalYearID: 1, OrgID: 1, Name: "2024-01", Status: StatusOpen,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	return m
}

func (m *memoryPeriodRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryPeriodRepo) GetFiscalYear(_ context.Context, orgID, fiscalYearID int64) (FiscalYear, error) {
	fy, ok := m.fiscalYears[fiscalYearID]
	if !ok || fy.OrgID != orgID {
		return FiscalYear{}, shared.NotFoundf("fiscal year")
	}
	return fy, nil
}

func (m *memoryPeriodRepo) InsertFiscalYear(_ context.Context, fy FiscalYear) (FiscalYear, error) {
	for _, existing := range m.fiscalYears {
		if existing.OrgID != fy.OrgID {
			continue
		}
		if existing.Name == fy.Name ||
			(existing.StartDate.Equal(fy.StartDate) && existing.EndDate.Equal(fy.EndDate)) {
			return FiscalYear{}, shared.Conflictf("fiscal year %s conflicts with an existing year's name or date boundaries", fy.Name)
		}
	}
	m.nextID++
	fy.ID = m.nextID
	m.fiscalYears[fy.ID] = fy
	return fy, nil
}

func (m *memoryPeriodRepo) InsertPeriod(_ context.Context, p Period) (Period, error) {
	for _, existing := range m.periods {
		if existing.FiscalYearID != p.FiscalYearID {
			continue
		}
		if existing.Name == p.Name || existing.StartDate.Equal(p.StartDate) {
			return Period{}, shared.Conflictf("period %s conflicts with an existing period's name or start date", p.Name)
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.periods[p.ID] = p
	return p, nil
}

func (m *memoryPeriodRepo) GetPeriodForUpdate(_ context.Context, orgID, periodID int64) (Period, error) {
	p, ok := m.periods[periodID]
	if !ok || p.OrgID != orgID {
		return Period{}, shared.NotFoundf("accounting period")
	}
	return p, nil
}

func (m *memoryPeriodRepo) UnpostedEntryNumbers(_ context.Context, periodID int64, limit int) ([]string, int64, error) {
	all := m.unposted[periodID]
	total := int64(len(all))
	if len(all) > limit {
		all = all[:limit]
	}
	return append([]string(nil), all...), total, nil
}

func (m *memoryPeriodRepo) UpdatePeriodStatus(_ context.Context, periodID int64, status Status, actorID int64, at time.Time) error {
	p, ok := m.periods[periodID]
	if !ok {
		return shared.NotFoundf("accounting period")
	}
	p.Status = status
	p.ClosedBy = &actorID
	p.ClosedAt = &at
	m.periods[periodID] = p
	return nil
}

func periodTestContext() context.Context {
	return shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 1, ActorID: 7})
}

func newPeriodService(repo *memoryPeriodRepo) *Service {
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) })
	return svc
}

func TestValidateForClosingCleanPeriod(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	ok, msg, err := svc.ValidateForClosing(periodTestContext(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Period is valid for closing.", msg)
}

func TestValidateForClosingNamesUnpostedEntries(t *testing.T) {
	repo := newMemoryPeriodRepo()
	repo.unposted[1] = []string{"SALES-2024-0002"}
	svc := newPeriodService(repo)

	ok, msg, err := svc.ValidateForClosing(periodTestContext(), 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "Cannot close period. Unposted entries found: SALES-2024-0002", msg)
}

func TestValidateForClosingTruncatesLongList(t *testing.T) {
	repo := newMemoryPeriodRepo()
	repo.unposted[1] = []string{"E1", "E2", "E3", "E4", "E5", "E6", "E7"}
	svc := newPeriodService(repo)

	ok, msg, err := svc.ValidateForClosing(periodTestContext(), 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "Cannot close period. Unposted entries found: E1, E2, E3, E4, E5...", msg)
}

func TestCloseHappyPath(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	period, err := svc.Close(periodTestContext(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, period.Status)
	require.NotNil(t, period.ClosedBy)
	require.Equal(t, int64(7), *period.ClosedBy)
	require.Equal(t, StatusClosed, repo.periods[1].Status)
}

func TestCloseWithUnpostedEntriesFails(t *testing.T) {
	repo := newMemoryPeriodRepo()
	repo.unposted[1] = []string{"SALES-2024-0002"}
	svc := newPeriodService(repo)

	_, err := svc.Close(periodTestContext(), 1)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "SALES-2024-0002")
	require.Equal(t, StatusOpen, repo.periods[1].Status)
}

func TestCloseTwiceIsNoOp(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	first, err := svc.Close(periodTestContext(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, first.Status)

	second, err := svc.Close(periodTestContext(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, second.Status)
}

func TestCreatePeriodWithinFiscalYear(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	period, err := svc.CreatePeriod(periodTestContext(), CreatePeriodInput{
		FiscalYearID: 1,
		Name:         "2024-02",
		StartDate:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, period.Status)
}

func TestCreateFiscalYearDuplicateDatesConflicts(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	_, err := svc.CreateFiscalYear(periodTestContext(), CreateFiscalYearInput{
		Name:      "FY2024 Restated",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreatePeriodDuplicateStartConflicts(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	_, err := svc.CreatePeriod(periodTestContext(), CreatePeriodInput{
		FiscalYearID: 1,
		Name:         "January",
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreatePeriodOutsideFiscalYearFails(t *testing.T) {
	repo := newMemoryPeriodRepo()
	svc := newPeriodService(repo)

	_, err := svc.CreatePeriod(periodTestContext(), CreatePeriodInput{
		FiscalYearID: 1,
		Name:         "2025-01",
		StartDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreatePeriodInClosedFiscalYearFails(t *testing.T) {
	repo := newMemoryPeriodRepo()
	fy := repo.fiscalYears[1]
	fy.Status = StatusClosed
	repo.fiscalYears[1] = fy
	svc := newPeriodService(repo)

	_, err := svc.CreatePeriod(periodTestContext(), CreatePeriodInput{
		FiscalYearID: 1,
		Name:         "2024-03",
		StartDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
