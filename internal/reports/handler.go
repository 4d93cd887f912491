package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for financial reports. Trial balance and
// general ledger also stream CSV when format=csv is requested.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/general-ledger", h.generalLedger)
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/balance-sheet", h.balanceSheet)
		r.Get("/income-statement", h.incomeStatement)
	})
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func (h *Handler) window(r *http.Request) (Window, error) {
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		return Window{}, err
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		return Window{}, err
	}
	return Window{Start: from, End: to}, nil
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := httpx.QueryInt64(r, "account_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	window, err := h.window(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.GeneralLedger(r.Context(), accountID, window)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="general-ledger.csv"`)
		if err := WriteGeneralLedgerCSV(w, report); err != nil {
			h.logger.Error("stream general ledger csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	window, err := h.window(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.TrialBalance(r.Context(), window)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="trial-balance.csv"`)
		if err := WriteTrialBalanceCSV(w, report); err != nil {
			h.logger.Error("stream trial balance csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	window, err := h.window(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.IncomeStatement(r.Context(), window)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
