package bankrec

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for bank statement reconciliation.
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

// MountRoutes registers reconciliation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reconciliations", func(r chi.Router) {
		r.Post("/", h.create)
		r.Post("/{id}/calculate", h.calculate)
		r.Post("/{id}/reconcile", h.reconcile)
	})
}

type createRequest struct {
	AccountID           int64           `json:"account_id" validate:"required,gt=0"`
	StatementDate       string          `json:"statement_date" validate:"required"`
	StatementEndBalance decimal.Decimal `json:"statement_end_balance"`
}

type reconciliationView struct {
	ID                  int64      `json:"id"`
	AccountID           int64      `json:"account_id"`
	StatementDate       string     `json:"statement_date"`
	StatementEndBalance string     `json:"statement_end_balance"`
	Status              string     `json:"status"`
	ReconciledBy        *int64     `json:"reconciled_by,omitempty"`
	ReconciledAt        *time.Time `json:"reconciled_at,omitempty"`
}

type reconcileResultView struct {
	Reconciled   bool     `json:"reconciled"`
	Balances     Balances `json:"balances"`
	ClearedLines int64    `json:"cleared_lines"`
}

func reconciliationToView(rec BankReconciliation) reconciliationView {
	return reconciliationView{
		ID:                  rec.ID,
		AccountID:           rec.AccountID,
		StatementDate:       rec.StatementDate.Format("2006-01-02"),
		StatementEndBalance: rec.StatementEndBalance.StringFixed(2),
		Status:              string(rec.Status),
		ReconciledBy:        rec.ReconciledBy,
		ReconciledAt:        rec.ReconciledAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	statementDate, err := httpx.ParseDate(req.StatementDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Create(r.Context(), CreateInput{
		AccountID:           req.AccountID,
		StatementDate:       statementDate,
		StatementEndBalance: req.StatementEndBalance,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reconciliationToView(rec))
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balances, err := h.service.CalculateBalances(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Reconcile(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("reconciliation attempted",
		slog.Int64("reconciliation_id", id),
		slog.Bool("reconciled", result.Reconciled),
		slog.Int64("cleared_lines", result.ClearedLines))
	httpx.JSON(w, http.StatusOK, reconcileResultView{
		Reconciled:   result.Reconciled,
		Balances:     result.Balances,
		ClearedLines: result.ClearedLines,
	})
}
