package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Window bounds a report by entry date, both ends inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate rejects inverted windows.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return shared.Validationf("reports: window requires start and end dates")
	}
	if w.End.Before(w.Start) {
		return shared.Validationf("reports: window end precedes start")
	}
	return nil
}

// GeneralLedgerLine is one posted line in account order.
type GeneralLedgerLine struct {
	EntryID     int64           `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	Date        time.Time       `json:"date"`
	JournalCode string          `json:"journal_code"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Running     decimal.Decimal `json:"running"`
}

// GeneralLedgerReport lists an account's posted activity chronologically.
type GeneralLedgerReport struct {
	AccountID   int64               `json:"account_id"`
	AccountCode string              `json:"account_code"`
	AccountName string              `json:"account_name"`
	AccountType coa.AccountType     `json:"account_type"`
	Window      Window              `json:"window"`
	Opening     decimal.Decimal     `json:"opening"`
	Lines       []GeneralLedgerLine `json:"lines"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Closing     decimal.Decimal     `json:"closing"`
}

// TrialBalanceRow carries one account's collapsed figures. Each pair holds at
// most one non-zero side.
type TrialBalanceRow struct {
	AccountID     int64           `json:"account_id"`
	AccountCode   string          `json:"account_code"`
	AccountName   string          `json:"account_name"`
	AccountType   coa.AccountType `json:"account_type"`
	OpeningDebit  decimal.Decimal `json:"opening_debit"`
	OpeningCredit decimal.Decimal `json:"opening_credit"`
	PeriodDebit   decimal.Decimal `json:"period_debit"`
	PeriodCredit  decimal.Decimal `json:"period_credit"`
	ClosingDebit  decimal.Decimal `json:"closing_debit"`
	ClosingCredit decimal.Decimal `json:"closing_credit"`
}

// TrialBalanceTotals sums every column of the rows.
type TrialBalanceTotals struct {
	OpeningDebit  decimal.Decimal `json:"opening_debit"`
	OpeningCredit decimal.Decimal `json:"opening_credit"`
	PeriodDebit   decimal.Decimal `json:"period_debit"`
	PeriodCredit  decimal.Decimal `json:"period_credit"`
	ClosingDebit  decimal.Decimal `json:"closing_debit"`
	ClosingCredit decimal.Decimal `json:"closing_credit"`
}

// TrialBalanceReport holds rows ordered by account code.
type TrialBalanceReport struct {
	Window Window             `json:"window"`
	Rows   []TrialBalanceRow  `json:"rows"`
	Totals TrialBalanceTotals `json:"totals"`
}

// ReportLine is one non-zero account balance in a statement section.
type ReportLine struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

// BalanceSheetReport partitions asset, liability and equity balances as of a
// date. Total assets need not tie to liabilities plus equity; retained
// earnings is not computed here.
type BalanceSheetReport struct {
	AsOf             time.Time       `json:"as_of"`
	Assets           []ReportLine    `json:"assets"`
	Liabilities      []ReportLine    `json:"liabilities"`
	Equity           []ReportLine    `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
}

// IncomeStatementReport partitions revenue and expense activity in a window.
type IncomeStatementReport struct {
	Window       Window          `json:"window"`
	Revenue      []ReportLine    `json:"revenue"`
	Expenses     []ReportLine    `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// AccountActivity is the raw aggregation row reports are built from. Opening
// sums cover posted lines dated strictly before the window; period sums cover
// the window inclusive.
type AccountActivity struct {
	AccountID     int64
	AccountCode   string
	AccountName   string
	AccountType   coa.AccountType
	OpeningDebit  decimal.Decimal
	OpeningCredit decimal.Decimal
	PeriodDebit   decimal.Decimal
	PeriodCredit  decimal.Decimal
}
