package coa

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeOther     AccountType = "OTHER"
)

// Side identifies the debit or credit column of an entry line.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Account models a chart of accounts node scoped to one organization.
type Account struct {
	ID          int64
	OrgID       int64
	Code        string
	Name        string
	Type        AccountType
	ParentID    *int64
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalSide returns the side on which the account type carries a positive
// balance. ASSET and EXPENSE accounts are debit-positive; LIABILITY, EQUITY,
// and REVENUE are credit-positive. OTHER defaults to debit-positive.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return SideCredit
	default:
		return SideDebit
	}
}

// NetBalance collapses raw debit and credit sums into the account type's
// positive convention.
func (t AccountType) NetBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if t.NormalSide() == SideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// ValidType reports whether the account type is recognised.
func ValidType(t AccountType) bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense, AccountTypeOther:
		return true
	default:
		return false
	}
}
