package assets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// FixedAsset is a depreciable asset tied to an expense and an accumulated
// depreciation account.
type FixedAsset struct {
	ID                   int64
	OrgID                int64
	Code                 string
	Name                 string
	Cost                 decimal.Decimal
	Salvage              decimal.Decimal
	LifeYears            int
	AcquiredAt           time.Time
	ExpenseAccountID     int64
	AccumulatedAccountID int64
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// DepreciationEntry binds one generated journal entry to an asset and period.
// At most one exists per (asset, period).
type DepreciationEntry struct {
	ID        int64
	OrgID     int64
	AssetID   int64
	PeriodID  int64
	EntryID   int64
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// CreateAssetInput captures a new fixed asset registration.
type CreateAssetInput struct {
	Code                 string
	Name                 string
	Cost                 decimal.Decimal
	Salvage              decimal.Decimal
	LifeYears            int
	AcquiredAt           time.Time
	ExpenseAccountID     int64
	AccumulatedAccountID int64
}

// Validate checks the asset registration is usable for scheduling.
func (in CreateAssetInput) Validate() error {
	if in.Code == "" || in.Name == "" {
		return shared.Validationf("assets: code and name are required")
	}
	if !in.Cost.IsPositive() {
		return shared.Validationf("assets: cost must be positive")
	}
	if in.Salvage.IsNegative() || in.Salvage.GreaterThan(in.Cost) {
		return shared.Validationf("assets: salvage must be between zero and cost")
	}
	if in.LifeYears <= 0 {
		return shared.Validationf("assets: life must be at least one year")
	}
	if in.ExpenseAccountID == 0 || in.AccumulatedAccountID == 0 {
		return shared.Validationf("assets: expense and accumulated accounts are required")
	}
	return nil
}

var months = decimal.NewFromInt(12)

// CalculateAmount returns the straight line monthly charge, capped so
// cumulative depreciation never exceeds cost minus salvage. Returns zero once
// the asset is fully depreciated.
func CalculateAmount(asset FixedAsset, accumulated decimal.Decimal) decimal.Decimal {
	depreciable := asset.Cost.Sub(asset.Salvage)
	remaining := depreciable.Sub(accumulated)
	if !remaining.IsPositive() {
		return decimal.Zero
	}
	monthly := depreciable.
		Div(decimal.NewFromInt(int64(asset.LifeYears)).Mul(months)).
		Round(2)
	if monthly.GreaterThan(remaining) {
		return remaining
	}
	return monthly
}
