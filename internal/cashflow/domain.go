package cashflow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Kind tags a cash movement. Payments and receipts share one posting routine
// and differ only in which side of the bank account the amount lands on.
type Kind string

const (
	KindPayment Kind = "PAYMENT"
	KindReceipt Kind = "RECEIPT"
)

// ValidKind reports whether the kind is recognised.
func ValidKind(k Kind) bool {
	return k == KindPayment || k == KindReceipt
}

// BankSide returns the side of the bank account the movement posts to.
// Receipts debit the bank, payments credit it.
func (k Kind) BankSide() coa.Side {
	if k == KindReceipt {
		return coa.SideDebit
	}
	return coa.SideCredit
}

// CounterSide returns the opposite side for the counterparty account.
func (k Kind) CounterSide() coa.Side {
	if k.BankSide() == coa.SideDebit {
		return coa.SideCredit
	}
	return coa.SideDebit
}

// CashTransaction records one payment or receipt and the posted entry behind
// it.
type CashTransaction struct {
	ID               int64
	OrgID            int64
	Kind             Kind
	PeriodID         int64
	BankAccountID    int64
	CounterAccountID int64
	Amount           decimal.Decimal
	Date             time.Time
	Reference        string
	Description      string
	EntryID          int64
	CreatedAt        time.Time
}

// RecordInput captures a cash movement to post.
type RecordInput struct {
	Kind             Kind
	PeriodID         int64
	BankAccountID    int64
	CounterAccountID int64
	Amount           decimal.Decimal
	Date             time.Time
	Reference        string
	Description      string
}

// Validate checks the movement before posting.
func (in RecordInput) Validate() error {
	if !ValidKind(in.Kind) {
		return shared.Validationf("cashflow: kind must be PAYMENT or RECEIPT")
	}
	if in.PeriodID == 0 {
		return shared.Validationf("cashflow: period is required")
	}
	if in.BankAccountID == 0 || in.CounterAccountID == 0 {
		return shared.Validationf("cashflow: bank and counter accounts are required")
	}
	if in.BankAccountID == in.CounterAccountID {
		return shared.Validationf("cashflow: bank and counter accounts must differ")
	}
	if !in.Amount.IsPositive() {
		return shared.Validationf("cashflow: amount must be positive")
	}
	if in.Date.IsZero() {
		return shared.Validationf("cashflow: date is required")
	}
	return nil
}
