package audit

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Query is the repository-level shape of a timeline lookup.
type Query struct {
	From    time.Time
	To      time.Time
	ActorID int64
	Entity  string
	Action  string
	Offset  int
	Limit   int
}

// Repository reads the audit trail.
type Repository interface {
	Timeline(ctx context.Context, orgID int64, q Query) ([]TimelineRow, error)
}

// Service answers audit trail queries for one tenant.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit rows, newest first. It fetches one
// extra row past the page to decide whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Result{}, shared.ErrTenantRequired
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Timeline(ctx, tenant.OrgID, Query{
		From:    filters.From,
		To:      filters.To,
		ActorID: filters.ActorID,
		Entity:  filters.Entity,
		Action:  filters.Action,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export streams every matching row without paging, for CSV downloads.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.Timeline(ctx, tenant.OrgID, Query{
		From:    filters.From,
		To:      filters.To,
		ActorID: filters.ActorID,
		Entity:  filters.Entity,
		Action:  filters.Action,
	})
}
