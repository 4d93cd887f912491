package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryAuditRepo struct {
	rows      []TimelineRow
	lastOrgID int64
	lastQuery Query
}

func (m *memoryAuditRepo) Timeline(_ context.Context, orgID int64, q Query) ([]TimelineRow, error) {
	m.lastOrgID = orgID
	m.lastQuery = q
	rows := m.rows
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func tenantCtx() context.Context {
	return shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 7, ActorID: 3})
}

func sampleRows(n int) []TimelineRow {
	base := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			At:       base.Add(-time.Duration(i) * time.Hour),
			ActorID:  3,
			Action:   "entry.posted",
			Entity:   "journal_entries",
			EntityID: "100",
		})
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryAuditRepo{rows: sampleRows(3)}
	svc := NewService(repo)

	result, err := svc.Timeline(tenantCtx(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	require.Equal(t, int64(7), repo.lastOrgID)
	require.Equal(t, 3, repo.lastQuery.Limit)

	result, err = svc.Timeline(tenantCtx(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 2, repo.lastQuery.Offset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &memoryAuditRepo{rows: sampleRows(1)}
	svc := NewService(repo)

	result, err := svc.Timeline(tenantCtx(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, result.Paging.PageSize)
	require.Equal(t, maxPageSize+1, repo.lastQuery.Limit)

	result, err = svc.Timeline(tenantCtx(), TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize, result.Paging.PageSize)
	require.Equal(t, 1, result.Paging.Page)
}

func TestTimelineRequiresTenant(t *testing.T) {
	svc := NewService(&memoryAuditRepo{})
	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestExportSkipsPaging(t *testing.T) {
	repo := &memoryAuditRepo{rows: sampleRows(60)}
	svc := NewService(repo)

	rows, err := svc.Export(tenantCtx(), TimelineFilters{Action: "entry.posted"})
	require.NoError(t, err)
	require.Len(t, rows, 60)
	require.Zero(t, repo.lastQuery.Limit)
	require.Equal(t, "entry.posted", repo.lastQuery.Action)
}
