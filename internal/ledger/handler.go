package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for journal entry drafting and posting.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	metrics   *observability.Metrics
	enqueuer  Enqueuer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// WithMetrics attaches posting counters to the handler.
func (h *Handler) WithMetrics(m *observability.Metrics) *Handler {
	h.metrics = m
	return h
}

// Enqueuer schedules background work after a successful post.
type Enqueuer interface {
	EnqueueReportCacheBump(ctx context.Context, orgID int64) error
}

// WithEnqueuer attaches the background queue used to invalidate cached
// reports once an entry lands in the ledger.
func (h *Handler) WithEnqueuer(e Enqueuer) *Handler {
	h.enqueuer = e
	return h
}

// MountRoutes registers journal entry routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/entries", func(r chi.Router) {
		r.Post("/", h.createDraft)
		r.Get("/{id}", h.getEntry)
		r.Post("/{id}/lines", h.addLine)
		r.Put("/{id}/lines/{lineID}", h.updateLine)
		r.Delete("/{id}/lines/{lineID}", h.removeLine)
		r.Post("/{id}/post", h.postEntry)
	})
}

type createDraftRequest struct {
	PeriodID    int64  `json:"period_id" validate:"required,gt=0"`
	JournalID   int64  `json:"journal_id" validate:"required,gt=0"`
	Date        string `json:"date" validate:"required"`
	Reference   string `json:"reference" validate:"max=100"`
	Description string `json:"description" validate:"max=500"`
}

type addLineRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Side        string          `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
}

type entryView struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	PeriodID    int64      `json:"period_id"`
	JournalID   int64      `json:"journal_id"`
	EntryNumber string     `json:"entry_number,omitempty"`
	Date        string     `json:"date"`
	Reference   string     `json:"reference,omitempty"`
	Description string     `json:"description,omitempty"`
	Posted      bool       `json:"posted"`
	PostedBy    *int64     `json:"posted_by,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	Lines       []lineView `json:"lines"`
}

type lineView struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
	IsCleared   bool   `json:"is_cleared"`
}

type postResultView struct {
	Entry          entryView `json:"entry"`
	AlreadyPosted  bool      `json:"already_posted"`
}

func entryToView(e JournalEntry) entryView {
	v := entryView{
		ID:          e.ID,
		UUID:        e.UUID.String(),
		PeriodID:    e.PeriodID,
		JournalID:   e.JournalID,
		EntryNumber: e.EntryNumber,
		Date:        e.Date.Format("2006-01-02"),
		Reference:   e.Reference,
		Description: e.Description,
		Posted:      e.Posted,
		PostedBy:    e.PostedBy,
		PostedAt:    e.PostedAt,
		Lines:       make([]lineView, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		v.Lines = append(v.Lines, lineView{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Debit:       l.Debit.StringFixed(2),
			Credit:      l.Credit.StringFixed(2),
			Description: l.Description,
			IsCleared:   l.IsCleared,
		})
	}
	return v
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := httpx.ParseDate(req.Date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.CreateDraft(r.Context(), CreateDraftInput{
		PeriodID:    req.PeriodID,
		JournalID:   req.JournalID,
		Date:        date,
		Reference:   req.Reference,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error("create draft entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entryToView(entry))
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryToView(entry))
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	entryID, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req addLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	line, err := h.service.AddLine(r.Context(), AddLineInput{
		EntryID:     entryID,
		AccountID:   req.AccountID,
		Side:        coa.Side(req.Side),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lineView{
		ID:          line.ID,
		AccountID:   line.AccountID,
		Debit:       line.Debit.StringFixed(2),
		Credit:      line.Credit.StringFixed(2),
		Description: line.Description,
	})
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	entryID, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lineID, err := httpx.ParamInt64(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req addLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	line, err := h.service.UpdateLine(r.Context(), UpdateLineInput{
		EntryID:     entryID,
		LineID:      lineID,
		AccountID:   req.AccountID,
		Side:        coa.Side(req.Side),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lineView{
		ID:          line.ID,
		AccountID:   line.AccountID,
		Debit:       line.Debit.StringFixed(2),
		Credit:      line.Credit.StringFixed(2),
		Description: line.Description,
	})
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	entryID, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lineID, err := httpx.ParamInt64(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveLine(r.Context(), entryID, lineID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) postEntry(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Post(r.Context(), id)
	if err != nil {
		h.logger.Error("post entry", slog.Int64("entry_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	tenant, _ := shared.TenantFromContext(r.Context())
	if !result.AlreadyPosted {
		h.metrics.RecordEntryPosted()
		if h.enqueuer != nil {
			if err := h.enqueuer.EnqueueReportCacheBump(r.Context(), tenant.OrgID); err != nil {
				h.logger.Warn("report cache bump enqueue", slog.Any("error", err))
			}
		}
	}
	h.logger.Info("entry posted",
		slog.Int64("org_id", tenant.OrgID),
		slog.Int64("entry_id", result.Entry.ID),
		slog.String("entry_number", result.Entry.EntryNumber),
		slog.Bool("already_posted", result.AlreadyPosted))
	httpx.JSON(w, http.StatusOK, postResultView{
		Entry:         entryToView(result.Entry),
		AlreadyPosted: result.AlreadyPosted,
	})
}
