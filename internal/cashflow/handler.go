package cashflow

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for cash payments and receipts.
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

// MountRoutes registers cash transaction routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/cash-transactions", func(r chi.Router) {
		r.Post("/", h.record)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
}

type recordRequest struct {
	Kind             string          `json:"kind" validate:"required,oneof=PAYMENT RECEIPT"`
	PeriodID         int64           `json:"period_id" validate:"required,gt=0"`
	BankAccountID    int64           `json:"bank_account_id" validate:"required,gt=0"`
	CounterAccountID int64           `json:"counter_account_id" validate:"required,gt=0"`
	Amount           decimal.Decimal `json:"amount" validate:"required"`
	Date             string          `json:"date" validate:"required"`
	Reference        string          `json:"reference" validate:"max=100"`
	Description      string          `json:"description" validate:"max=500"`
}

type transactionView struct {
	ID               int64  `json:"id"`
	Kind             string `json:"kind"`
	PeriodID         int64  `json:"period_id"`
	BankAccountID    int64  `json:"bank_account_id"`
	CounterAccountID int64  `json:"counter_account_id"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	Reference        string `json:"reference,omitempty"`
	Description      string `json:"description,omitempty"`
	EntryID          int64  `json:"entry_id"`
}

func transactionToView(tx CashTransaction) transactionView {
	return transactionView{
		ID:               tx.ID,
		Kind:             string(tx.Kind),
		PeriodID:         tx.PeriodID,
		BankAccountID:    tx.BankAccountID,
		CounterAccountID: tx.CounterAccountID,
		Amount:           tx.Amount.StringFixed(2),
		Date:             tx.Date.Format("2006-01-02"),
		Reference:        tx.Reference,
		Description:      tx.Description,
		EntryID:          tx.EntryID,
	}
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
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
	tx, err := h.service.Record(r.Context(), RecordInput{
		Kind:             Kind(req.Kind),
		PeriodID:         req.PeriodID,
		BankAccountID:    req.BankAccountID,
		CounterAccountID: req.CounterAccountID,
		Amount:           req.Amount,
		Date:             date,
		Reference:        req.Reference,
		Description:      req.Description,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("cash transaction recorded",
		slog.Int64("transaction_id", tx.ID),
		slog.String("kind", string(tx.Kind)),
		slog.String("amount", tx.Amount.StringFixed(2)))
	httpx.JSON(w, http.StatusCreated, transactionToView(tx))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, transactionToView(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periodID, err := httpx.QueryInt64(r, "period_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	txs, err := h.service.ListTransactions(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionToView(tx))
	}
	httpx.JSON(w, http.StatusOK, views)
}
