package budget

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for budgets, commitments and variance reports.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers budget routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/budgets", func(r chi.Router) {
		r.Post("/", h.createBudget)
		r.Post("/{id}/lines", h.addLine)
	})
	r.Route("/budget-lines/{id}", func(r chi.Router) {
		r.Get("/report", h.lineReport)
		r.Post("/commitments", h.commit)
	})
	r.Post("/commitments/{id}/resolve", h.resolveCommitment)
}

type createBudgetRequest struct {
	FiscalYearID int64  `json:"fiscal_year_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=150"`
}

type addLineRequest struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	PeriodID  *int64          `json:"period_id,omitempty" validate:"omitempty,gt=0"`
	Allocated decimal.Decimal `json:"allocated"`
}

type commitRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Reference string          `json:"reference" validate:"max=100"`
}

type resolveRequest struct {
	Status string `json:"status" validate:"required,oneof=INVOICED CANCELLED"`
}

type budgetView struct {
	ID           int64  `json:"id"`
	FiscalYearID int64  `json:"fiscal_year_id"`
	Name         string `json:"name"`
}

type lineValueView struct {
	ID        int64  `json:"id"`
	BudgetID  int64  `json:"budget_id"`
	AccountID int64  `json:"account_id"`
	PeriodID  *int64 `json:"period_id,omitempty"`
	Allocated string `json:"allocated"`
}

type commitmentView struct {
	ID        int64  `json:"id"`
	LineID    int64  `json:"line_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
}

func (h *Handler) createBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	budget, err := h.service.CreateBudget(r.Context(), CreateBudgetInput{
		FiscalYearID: req.FiscalYearID,
		Name:         req.Name,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, budgetView{
		ID:           budget.ID,
		FiscalYearID: budget.FiscalYearID,
		Name:         budget.Name,
	})
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	budgetID, err := httpx.ParamInt64(r, "id")
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
		BudgetID:  budgetID,
		AccountID: req.AccountID,
		PeriodID:  req.PeriodID,
		Allocated: req.Allocated,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lineValueView{
		ID:        line.ID,
		BudgetID:  line.BudgetID,
		AccountID: line.AccountID,
		PeriodID:  line.PeriodID,
		Allocated: line.Allocated.StringFixed(2),
	})
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	lineID, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req commitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	commitment, err := h.service.Commit(r.Context(), CommitInput{
		LineID:    lineID,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("budget committed",
		slog.Int64("line_id", commitment.LineID),
		slog.String("amount", commitment.Amount.StringFixed(2)))
	httpx.JSON(w, http.StatusCreated, commitmentView{
		ID:        commitment.ID,
		LineID:    commitment.LineID,
		Amount:    commitment.Amount.StringFixed(2),
		Status:    string(commitment.Status),
		Reference: commitment.Reference,
	})
}

func (h *Handler) resolveCommitment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ResolveCommitment(r.Context(), id, CommitmentStatus(req.Status)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lineReport(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.LineReport(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
