package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testWindow() Window {
	return Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildTrialBalanceCollapsesSides(t *testing.T) {
	rows := []AccountActivity{
		{
			AccountID: 2, AccountCode: "4000", AccountName: "Revenue", AccountType: coa.AccountTypeRevenue,
			PeriodDebit: amt("0"), PeriodCredit: amt("100.00"),
		},
		{
			AccountID: 1, AccountCode: "1000", AccountName: "Cash", AccountType: coa.AccountTypeAsset,
			OpeningDebit: amt("250.00"), OpeningCredit: amt("50.00"),
			PeriodDebit: amt("100.00"), PeriodCredit: amt("0"),
		},
	}
	report := BuildTrialBalance(testWindow(), rows)
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Rows))
	}
	if report.Rows[0].AccountCode != "1000" {
		t.Fatalf("expected rows sorted by code, got %s first", report.Rows[0].AccountCode)
	}
	cash := report.Rows[0]
	if !cash.OpeningDebit.Equal(amt("200.00")) || !cash.OpeningCredit.IsZero() {
		t.Fatalf("cash opening not collapsed: debit=%s credit=%s", cash.OpeningDebit, cash.OpeningCredit)
	}
	if !cash.ClosingDebit.Equal(amt("300.00")) {
		t.Fatalf("cash closing: got %s", cash.ClosingDebit)
	}
	revenue := report.Rows[1]
	if !revenue.ClosingCredit.Equal(amt("100.00")) || !revenue.ClosingDebit.IsZero() {
		t.Fatalf("revenue closing: debit=%s credit=%s", revenue.ClosingDebit, revenue.ClosingCredit)
	}
}

func TestBuildTrialBalanceFullHistoryBalances(t *testing.T) {
	rows := []AccountActivity{
		{AccountID: 1, AccountCode: "1000", AccountType: coa.AccountTypeAsset, PeriodDebit: amt("100.00")},
		{AccountID: 2, AccountCode: "4000", AccountType: coa.AccountTypeRevenue, PeriodCredit: amt("100.00")},
		{AccountID: 3, AccountCode: "5000", AccountType: coa.AccountTypeExpense, PeriodDebit: amt("40.00")},
		{AccountID: 4, AccountCode: "2000", AccountType: coa.AccountTypeLiability, PeriodCredit: amt("40.00")},
	}
	report := BuildTrialBalance(testWindow(), rows)
	if !report.Totals.ClosingDebit.Equal(report.Totals.ClosingCredit) {
		t.Fatalf("closing totals unbalanced: debit=%s credit=%s",
			report.Totals.ClosingDebit, report.Totals.ClosingCredit)
	}
	if !report.Totals.ClosingDebit.Equal(amt("140.00")) {
		t.Fatalf("closing debit total: got %s", report.Totals.ClosingDebit)
	}
}

func TestBuildBalanceSheetOmitsZeroBalances(t *testing.T) {
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	rows := []AccountActivity{
		{AccountCode: "1000", AccountName: "Cash", AccountType: coa.AccountTypeAsset, PeriodDebit: amt("500.00")},
		{AccountCode: "1100", AccountName: "Petty Cash", AccountType: coa.AccountTypeAsset, PeriodDebit: amt("25.00"), PeriodCredit: amt("25.00")},
		{AccountCode: "2000", AccountName: "Loans", AccountType: coa.AccountTypeLiability, PeriodCredit: amt("300.00")},
		{AccountCode: "3000", AccountName: "Capital", AccountType: coa.AccountTypeEquity, PeriodCredit: amt("200.00")},
	}
	report := BalanceSheetReport{AsOf: asOf}
	BuildBalanceSheet(&report, rows)
	if len(report.Assets) != 1 {
		t.Fatalf("expected zero-balance asset omitted, got %d assets", len(report.Assets))
	}
	if !report.TotalAssets.Equal(amt("500.00")) {
		t.Fatalf("total assets: got %s", report.TotalAssets)
	}
	if !report.TotalLiabilities.Equal(amt("300.00")) || !report.TotalEquity.Equal(amt("200.00")) {
		t.Fatalf("liability/equity totals: %s / %s", report.TotalLiabilities, report.TotalEquity)
	}
}

func TestBuildIncomeStatementNetIncome(t *testing.T) {
	rows := []AccountActivity{
		{AccountCode: "4000", AccountName: "Sales", AccountType: coa.AccountTypeRevenue, PeriodCredit: amt("1000.00"), PeriodDebit: amt("50.00")},
		{AccountCode: "5000", AccountName: "Rent", AccountType: coa.AccountTypeExpense, PeriodDebit: amt("400.00")},
		{AccountCode: "5100", AccountName: "Fees", AccountType: coa.AccountTypeExpense},
	}
	report := IncomeStatementReport{Window: testWindow()}
	BuildIncomeStatement(&report, rows)
	if !report.TotalRevenue.Equal(amt("950.00")) {
		t.Fatalf("total revenue: got %s", report.TotalRevenue)
	}
	if !report.TotalExpense.Equal(amt("400.00")) {
		t.Fatalf("total expense: got %s", report.TotalExpense)
	}
	if !report.NetIncome.Equal(amt("550.00")) {
		t.Fatalf("net income: got %s", report.NetIncome)
	}
	if len(report.Expenses) != 1 {
		t.Fatalf("expected zero expense omitted, got %d", len(report.Expenses))
	}
}

func TestBuildGeneralLedgerRunningBalance(t *testing.T) {
	report := GeneralLedgerReport{AccountType: coa.AccountTypeAsset, Window: testWindow()}
	lines := []GeneralLedgerLine{
		{EntryNumber: "SALES-2024-0001", Debit: amt("100.00")},
		{EntryNumber: "BANK-2024-0001", Credit: amt("30.00")},
	}
	BuildGeneralLedger(&report, amt("50.00"), lines)
	if !report.Lines[0].Running.Equal(amt("150.00")) {
		t.Fatalf("first running: got %s", report.Lines[0].Running)
	}
	if !report.Lines[1].Running.Equal(amt("120.00")) {
		t.Fatalf("second running: got %s", report.Lines[1].Running)
	}
	if !report.Closing.Equal(amt("120.00")) {
		t.Fatalf("closing: got %s", report.Closing)
	}
}

func TestBuildGeneralLedgerCreditNormalAccount(t *testing.T) {
	report := GeneralLedgerReport{AccountType: coa.AccountTypeRevenue, Window: testWindow()}
	lines := []GeneralLedgerLine{
		{EntryNumber: "SALES-2024-0002", Credit: amt("200.00")},
	}
	BuildGeneralLedger(&report, decimal.Zero, lines)
	if !report.Closing.Equal(amt("200.00")) {
		t.Fatalf("credit-normal closing: got %s", report.Closing)
	}
}
