package audit

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the audit trail as JSON pages and CSV exports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit trail routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit-logs", func(r chi.Router) {
		r.Get("/", h.timeline)
		r.Get("/export", h.export)
	})
}

type timelineRowView struct {
	At       string         `json:"at"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

type pagingView struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

type timelineView struct {
	Rows   []timelineRowView `json:"rows"`
	Paging pagingView        `json:"paging"`
}

func rowToView(row TimelineRow) timelineRowView {
	return timelineRowView{
		At:       row.At.UTC().Format(time.RFC3339),
		ActorID:  row.ActorID,
		Action:   row.Action,
		Entity:   row.Entity,
		EntityID: row.EntityID,
		Meta:     row.Meta,
	}
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]timelineRowView, 0, len(result.Rows))
	for _, row := range result.Rows {
		views = append(views, rowToView(row))
	}
	httpx.JSON(w, http.StatusOK, timelineView{Rows: views, Paging: pagingView(result.Paging)})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-logs.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"at", "actor_id", "action", "entity", "entity_id", "meta"})
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			if raw, err := json.Marshal(row.Meta); err == nil {
				meta = string(raw)
			}
		}
		_ = writer.Write([]string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("audit export write failed", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	var filters TimelineFilters
	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		from, err := httpx.ParseDate(raw)
		if err != nil {
			return TimelineFilters{}, err
		}
		filters.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := httpx.ParseDate(raw)
		if err != nil {
			return TimelineFilters{}, err
		}
		// the to parameter is inclusive, the repository bound is exclusive
		filters.To = to.AddDate(0, 0, 1)
	}
	if raw := query.Get("actor_id"); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || actorID <= 0 {
			return TimelineFilters{}, shared.Validationf("invalid actor_id %q", raw)
		}
		filters.ActorID = actorID
	}
	filters.Entity = query.Get("entity")
	filters.Action = query.Get("action")
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page <= 0 {
			return TimelineFilters{}, shared.Validationf("invalid page %q", raw)
		}
		filters.Page = page
	}
	if raw := query.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return TimelineFilters{}, shared.Validationf("invalid page_size %q", raw)
		}
		filters.PageSize = size
	}
	return filters, nil
}
