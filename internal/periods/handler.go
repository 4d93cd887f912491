package periods

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the fiscal calendar.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	metrics   *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// WithMetrics attaches close counters to the handler.
func (h *Handler) WithMetrics(m *observability.Metrics) *Handler {
	h.metrics = m
	return h
}

// MountRoutes registers fiscal year and period routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/fiscal-years", h.createFiscalYear)
	r.Route("/periods", func(r chi.Router) {
		r.Post("/", h.createPeriod)
		r.Get("/{id}/close-validation", h.validateClose)
		r.Post("/{id}/close", h.closePeriod)
	})
}

type createFiscalYearRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type createPeriodRequest struct {
	FiscalYearID int64  `json:"fiscal_year_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=100"`
	StartDate    string `json:"start_date" validate:"required"`
	EndDate      string `json:"end_date" validate:"required"`
}

type fiscalYearView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

type periodView struct {
	ID           int64      `json:"id"`
	FiscalYearID int64      `json:"fiscal_year_id"`
	Name         string     `json:"name"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Status       string     `json:"status"`
	ClosedBy     *int64     `json:"closed_by,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

type closeValidationView struct {
	CanClose bool   `json:"can_close"`
	Message  string `json:"message"`
}

func periodToView(p Period) periodView {
	return periodView{
		ID:           p.ID,
		FiscalYearID: p.FiscalYearID,
		Name:         p.Name,
		StartDate:    p.StartDate.Format("2006-01-02"),
		EndDate:      p.EndDate.Format("2006-01-02"),
		Status:       string(p.Status),
		ClosedBy:     p.ClosedBy,
		ClosedAt:     p.ClosedAt,
	}
}

func (h *Handler) createFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req createFiscalYearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := httpx.ParseDate(req.StartDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := httpx.ParseDate(req.EndDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	fy, err := h.service.CreateFiscalYear(r.Context(), CreateFiscalYearInput{
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, fiscalYearView{
		ID:        fy.ID,
		Name:      fy.Name,
		StartDate: fy.StartDate.Format("2006-01-02"),
		EndDate:   fy.EndDate.Format("2006-01-02"),
		Status:    string(fy.Status),
	})
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := httpx.ParseDate(req.StartDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := httpx.ParseDate(req.EndDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), CreatePeriodInput{
		FiscalYearID: req.FiscalYearID,
		Name:         req.Name,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, periodToView(period))
}

func (h *Handler) validateClose(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	canClose, message, err := h.service.ValidateForClosing(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, closeValidationView{CanClose: canClose, Message: message})
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.service.Close(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPeriodClosed()
	h.logger.Info("period closed", slog.Int64("period_id", period.ID), slog.String("period", period.Name))
	httpx.JSON(w, http.StatusOK, periodToView(period))
}
