package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
)

// collapse splits a net figure into a single-sided debit/credit pair.
func collapse(debit, credit decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	net := debit.Sub(credit)
	switch {
	case net.IsPositive():
		return net, decimal.Zero
	case net.IsNegative():
		return decimal.Zero, net.Neg()
	default:
		return decimal.Zero, decimal.Zero
	}
}

// BuildTrialBalance collapses per-account activity into single-sided opening,
// period and closing columns. Rows come back ordered by account code.
func BuildTrialBalance(window Window, rows []AccountActivity) TrialBalanceReport {
	report := TrialBalanceReport{Window: window, Rows: make([]TrialBalanceRow, 0, len(rows))}
	for _, act := range rows {
		row := TrialBalanceRow{
			AccountID:   act.AccountID,
			AccountCode: act.AccountCode,
			AccountName: act.AccountName,
			AccountType: act.AccountType,
		}
		row.OpeningDebit, row.OpeningCredit = collapse(act.OpeningDebit, act.OpeningCredit)
		row.PeriodDebit, row.PeriodCredit = collapse(act.PeriodDebit, act.PeriodCredit)
		row.ClosingDebit, row.ClosingCredit = collapse(
			act.OpeningDebit.Add(act.PeriodDebit),
			act.OpeningCredit.Add(act.PeriodCredit),
		)
		report.Rows = append(report.Rows, row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].AccountCode < report.Rows[j].AccountCode
	})
	for _, row := range report.Rows {
		report.Totals.OpeningDebit = report.Totals.OpeningDebit.Add(row.OpeningDebit)
		report.Totals.OpeningCredit = report.Totals.OpeningCredit.Add(row.OpeningCredit)
		report.Totals.PeriodDebit = report.Totals.PeriodDebit.Add(row.PeriodDebit)
		report.Totals.PeriodCredit = report.Totals.PeriodCredit.Add(row.PeriodCredit)
		report.Totals.ClosingDebit = report.Totals.ClosingDebit.Add(row.ClosingDebit)
		report.Totals.ClosingCredit = report.Totals.ClosingCredit.Add(row.ClosingCredit)
	}
	return report
}

// BuildBalanceSheet nets each account to its positive convention and drops
// zero balances. Input rows must already be scoped to the as-of date via
// their period sums.
func BuildBalanceSheet(report *BalanceSheetReport, rows []AccountActivity) {
	for _, act := range rows {
		debit := act.OpeningDebit.Add(act.PeriodDebit)
		credit := act.OpeningCredit.Add(act.PeriodCredit)
		amount := act.AccountType.NetBalance(debit, credit)
		if amount.IsZero() {
			continue
		}
		line := ReportLine{AccountCode: act.AccountCode, AccountName: act.AccountName, Amount: amount}
		switch act.AccountType {
		case coa.AccountTypeAsset:
			report.Assets = append(report.Assets, line)
			report.TotalAssets = report.TotalAssets.Add(amount)
		case coa.AccountTypeLiability:
			report.Liabilities = append(report.Liabilities, line)
			report.TotalLiabilities = report.TotalLiabilities.Add(amount)
		case coa.AccountTypeEquity:
			report.Equity = append(report.Equity, line)
			report.TotalEquity = report.TotalEquity.Add(amount)
		}
	}
	sortLines(report.Assets)
	sortLines(report.Liabilities)
	sortLines(report.Equity)
}

// BuildIncomeStatement nets revenue and expense activity inside the window
// and drops zero balances.
func BuildIncomeStatement(report *IncomeStatementReport, rows []AccountActivity) {
	for _, act := range rows {
		amount := act.AccountType.NetBalance(act.PeriodDebit, act.PeriodCredit)
		if amount.IsZero() {
			continue
		}
		line := ReportLine{AccountCode: act.AccountCode, AccountName: act.AccountName, Amount: amount}
		switch act.AccountType {
		case coa.AccountTypeRevenue:
			report.Revenue = append(report.Revenue, line)
			report.TotalRevenue = report.TotalRevenue.Add(amount)
		case coa.AccountTypeExpense:
			report.Expenses = append(report.Expenses, line)
			report.TotalExpense = report.TotalExpense.Add(amount)
		}
	}
	sortLines(report.Revenue)
	sortLines(report.Expenses)
	report.NetIncome = report.TotalRevenue.Sub(report.TotalExpense)
}

// BuildGeneralLedger computes running balances over chronologically ordered
// lines. The running figure follows the account's normal side.
func BuildGeneralLedger(report *GeneralLedgerReport, opening decimal.Decimal, lines []GeneralLedgerLine) {
	report.Opening = opening
	running := opening
	for i := range lines {
		movement := lines[i].Debit.Sub(lines[i].Credit)
		if report.AccountType.NormalSide() == coa.SideCredit {
			movement = movement.Neg()
		}
		running = running.Add(movement)
		lines[i].Running = running
		report.TotalDebit = report.TotalDebit.Add(lines[i].Debit)
		report.TotalCredit = report.TotalCredit.Add(lines[i].Credit)
	}
	report.Lines = lines
	report.Closing = running
}

func sortLines(lines []ReportLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].AccountCode < lines[j].AccountCode })
}
