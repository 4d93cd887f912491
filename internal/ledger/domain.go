package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// JournalType enumerates posting journals.
type JournalType string

const (
	JournalTypeSales    JournalType = "SALES"
	JournalTypePurchase JournalType = "PURCHASE"
	JournalTypeBank     JournalType = "BANK"
	JournalTypeCash     JournalType = "CASH"
	JournalTypeMisc     JournalType = "MISC"
	JournalTypeOpening  JournalType = "OPENING"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Journal is a named bucket entries are recorded under.
type Journal struct {
	ID        int64
	OrgID     int64
	Code      string
	Name      string
	Type      JournalType
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period is the slice of the fiscal-year window an entry is scoped to.
// The full lifecycle model lives in the periods package; the posting engine
// only needs status and date bounds.
type Period struct {
	ID        int64
	OrgID     int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
}

// JournalEntry captures one transaction header. Entries start unposted and
// become immutable once posted.
type JournalEntry struct {
	ID          int64
	UUID        uuid.UUID
	OrgID       int64
	PeriodID    int64
	JournalID   int64
	EntryNumber string
	Date        time.Time
	Reference   string
	Description string
	Posted      bool
	PostedBy    *int64
	PostedAt    *time.Time
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []EntryLine
}

// EntryLine stores a debit or credit amount against one account. Exactly one
// of Debit/Credit is positive; the other is zero.
type EntryLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	IsCleared   bool
	ClearedAt   *time.Time
	CreatedAt   time.Time
}

// Amount returns the line's single positive amount.
func (l EntryLine) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// Side reports which column the line populates.
func (l EntryLine) Side() coa.Side {
	if l.Debit.IsPositive() {
		return coa.SideDebit
	}
	return coa.SideCredit
}

// Validate enforces the one-sided positive amount invariant.
func (l EntryLine) Validate() error {
	if l.Debit.IsPositive() == l.Credit.IsPositive() {
		return shared.Validationf("entry line must carry exactly one of debit or credit")
	}
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return shared.Validationf("entry line amount must be positive")
	}
	return nil
}

// NewLine builds a line from a side tag and a positive amount.
func NewLine(accountID int64, side coa.Side, amount decimal.Decimal, description string) EntryLine {
	line := EntryLine{AccountID: accountID, Description: description}
	if side == coa.SideCredit {
		line.Credit = amount
	} else {
		line.Debit = amount
	}
	return line
}

// EntryTotals sums debit and credit columns across lines.
func EntryTotals(lines []EntryLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// CreateDraftInput groups fields for creating an unposted entry.
type CreateDraftInput struct {
	PeriodID    int64
	JournalID   int64
	Date        time.Time
	Reference   string
	Description string
}

// AddLineInput describes one line appended to a draft entry.
type AddLineInput struct {
	EntryID     int64
	AccountID   int64
	Side        coa.Side
	Amount      decimal.Decimal
	Description string
}

// UpdateLineInput replaces the mutable fields of one draft line.
type UpdateLineInput struct {
	EntryID     int64
	LineID      int64
	AccountID   int64
	Side        coa.Side
	Amount      decimal.Decimal
	Description string
}

// AutoPostingInput creates a fully posted entry in one step. Used by derived
// postings (depreciation, payments, receipts) that are balanced by
// construction.
type AutoPostingInput struct {
	PeriodID    int64
	JournalID   int64
	Date        time.Time
	Reference   string
	Description string
	Lines       []EntryLine
}

// Validate checks the automatic posting is balanced and well formed.
func (in AutoPostingInput) Validate() error {
	if len(in.Lines) == 0 {
		return ErrNoLines
	}
	for _, l := range in.Lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	debit, credit := EntryTotals(in.Lines)
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}

var (
	// ErrUnbalanced indicates debit and credit totals differ.
	ErrUnbalanced = shared.Validationf("ledger: entry debits and credits must balance")
	// ErrNoLines indicates a posting attempt without lines.
	ErrNoLines = shared.Validationf("ledger: entry requires at least one line")
	// ErrEntryPosted indicates a mutation attempt on a posted entry.
	ErrEntryPosted = shared.Validationf("ledger: entry is posted and immutable")
	// ErrPeriodClosed indicates the target period no longer accepts changes.
	ErrPeriodClosed = shared.Validationf("ledger: accounting period is closed")
)

// FormatEntryNumber renders the organization-wide unique entry number.
func FormatEntryNumber(journalCode string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", journalCode, year, seq)
}

// ParseEntryNumberSeq extracts the trailing sequence from an entry number.
func ParseEntryNumberSeq(number string) (int64, error) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, fmt.Errorf("ledger: malformed entry number %q", number)
	}
	return strconv.ParseInt(number[idx+1:], 10, 64)
}
