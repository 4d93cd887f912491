package assets

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for fixed assets and depreciation runs.
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

// MountRoutes registers fixed asset routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Post("/", h.registerAsset)
		r.Get("/{id}", h.getAsset)
		r.Post("/{id}/depreciation", h.generateEntry)
	})
	r.Post("/depreciation-runs/{periodID}", h.runPeriod)
}

type registerAssetRequest struct {
	Code                 string          `json:"code" validate:"required,max=50"`
	Name                 string          `json:"name" validate:"required,max=150"`
	Cost                 decimal.Decimal `json:"cost" validate:"required"`
	Salvage              decimal.Decimal `json:"salvage"`
	LifeYears            int             `json:"life_years" validate:"required,gt=0"`
	AcquiredAt           string          `json:"acquired_at" validate:"required"`
	ExpenseAccountID     int64           `json:"expense_account_id" validate:"required,gt=0"`
	AccumulatedAccountID int64           `json:"accumulated_account_id" validate:"required,gt=0"`
}

type generateEntryRequest struct {
	PeriodID int64 `json:"period_id" validate:"required,gt=0"`
}

type assetView struct {
	ID                   int64  `json:"id"`
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	Cost                 string `json:"cost"`
	Salvage              string `json:"salvage"`
	LifeYears            int    `json:"life_years"`
	AcquiredAt           string `json:"acquired_at"`
	ExpenseAccountID     int64  `json:"expense_account_id"`
	AccumulatedAccountID int64  `json:"accumulated_account_id"`
	Active               bool   `json:"active"`
}

type generateResultView struct {
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
	AssetID  int64  `json:"asset_id,omitempty"`
	PeriodID int64  `json:"period_id,omitempty"`
	EntryID  int64  `json:"entry_id,omitempty"`
	Amount   string `json:"amount,omitempty"`
}

type runSummaryView struct {
	PeriodID  int64 `json:"period_id"`
	Generated int   `json:"generated"`
	Skipped   int   `json:"skipped"`
}

func assetToView(a FixedAsset) assetView {
	return assetView{
		ID:                   a.ID,
		Code:                 a.Code,
		Name:                 a.Name,
		Cost:                 a.Cost.StringFixed(2),
		Salvage:              a.Salvage.StringFixed(2),
		LifeYears:            a.LifeYears,
		AcquiredAt:           a.AcquiredAt.Format("2006-01-02"),
		ExpenseAccountID:     a.ExpenseAccountID,
		AccumulatedAccountID: a.AccumulatedAccountID,
		Active:               a.Active,
	}
}

func (h *Handler) registerAsset(w http.ResponseWriter, r *http.Request) {
	var req registerAssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acquiredAt, err := httpx.ParseDate(req.AcquiredAt)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset, err := h.service.Register(r.Context(), CreateAssetInput{
		Code:                 req.Code,
		Name:                 req.Name,
		Cost:                 req.Cost,
		Salvage:              req.Salvage,
		LifeYears:            req.LifeYears,
		AcquiredAt:           acquiredAt,
		ExpenseAccountID:     req.ExpenseAccountID,
		AccumulatedAccountID: req.AccumulatedAccountID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("asset registered", slog.Int64("asset_id", asset.ID), slog.String("code", asset.Code))
	httpx.JSON(w, http.StatusCreated, assetToView(asset))
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assetToView(asset))
}

func (h *Handler) generateEntry(w http.ResponseWriter, r *http.Request) {
	assetID, err := httpx.ParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req generateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.GenerateEntry(r.Context(), assetID, req.PeriodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view := generateResultView{Skipped: result.Skipped, Reason: result.Reason}
	if !result.Skipped {
		view.AssetID = result.Entry.AssetID
		view.PeriodID = result.Entry.PeriodID
		view.EntryID = result.Entry.EntryID
		view.Amount = result.Entry.Amount.StringFixed(2)
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) runPeriod(w http.ResponseWriter, r *http.Request) {
	periodID, err := httpx.ParamInt64(r, "periodID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.RunPeriod(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("depreciation run finished",
		slog.Int64("period_id", summary.PeriodID),
		slog.Int("generated", summary.Generated),
		slog.Int("skipped", summary.Skipped))
	httpx.JSON(w, http.StatusOK, runSummaryView(summary))
}
