package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TxRepository exposes the operations the posting engine performs inside one
// transaction. Every method is scoped by organization id.
type TxRepository interface {
	GetJournal(ctx context.Context, orgID, journalID int64) (Journal, error)
	GetPeriodForUpdate(ctx context.Context, orgID, periodID int64) (Period, error)
	GetAccount(ctx context.Context, orgID, accountID int64) (coa.Account, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	GetEntryForUpdate(ctx context.Context, orgID, entryID int64) (JournalEntry, error)
	ListLines(ctx context.Context, entryID int64) ([]EntryLine, error)
	InsertLine(ctx context.Context, line EntryLine) (EntryLine, error)
	UpdateLine(ctx context.Context, line EntryLine) error
	DeleteLine(ctx context.Context, entryID, lineID int64) error
	NextEntryNumber(ctx context.Context, orgID, journalID int64, year int) (int64, error)
	MarkPosted(ctx context.Context, entryID int64, number string, actorID int64, at time.Time) error
}

// Service is the ledger posting engine: it creates draft entries, guards
// mutations, and performs the one-way post transition.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateDraft creates a new unposted entry in an open period.
func (s *Service) CreateDraft(ctx context.Context, in CreateDraftInput) (JournalEntry, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return JournalEntry{}, shared.ErrTenantRequired
	}
	if in.Date.IsZero() {
		return JournalEntry{}, shared.Validationf("ledger: entry date required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, tenant.OrgID, in.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == PeriodStatusClosed {
			return ErrPeriodClosed
		}
		if in.Date.Before(period.StartDate) || in.Date.After(period.EndDate) {
			return shared.Validationf("ledger: entry date outside period %s", period.Name)
		}
		journal, err := tx.GetJournal(ctx, tenant.OrgID, in.JournalID)
		if err != nil {
			return err
		}
		if !journal.IsActive {
			return shared.Validationf("ledger: journal %s is inactive", journal.Code)
		}
		entry, err = tx.InsertEntry(ctx, JournalEntry{
			UUID:        uuid.New(),
			OrgID:       tenant.OrgID,
			PeriodID:    period.ID,
			JournalID:   journal.ID,
			Date:        in.Date,
			Reference:   in.Reference,
			Description: in.Description,
			CreatedBy:   tenant.ActorID,
		})
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// AddLine appends a line to a draft entry.
func (s *Service) AddLine(ctx context.Context, in AddLineInput) (EntryLine, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return EntryLine{}, shared.ErrTenantRequired
	}
	if !in.Amount.IsPositive() {
		return EntryLine{}, shared.Validationf("ledger: line amount must be positive")
	}
	if in.Side != coa.SideDebit && in.Side != coa.SideCredit {
		return EntryLine{}, shared.Validationf("ledger: line side must be debit or credit")
	}
	var line EntryLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := s.mutableEntry(ctx, tx, tenant.OrgID, in.EntryID)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx, tenant.OrgID, in.AccountID)
		if err != nil {
			return shared.Validationf("ledger: account not available")
		}
		if !account.IsActive {
			return shared.Validationf("ledger: account %s is inactive", account.Code)
		}
		candidate := NewLine(account.ID, in.Side, in.Amount, in.Description)
		candidate.EntryID = entry.ID
		if err := candidate.Validate(); err != nil {
			return err
		}
		line, err = tx.InsertLine(ctx, candidate)
		return err
	})
	if err != nil {
		return EntryLine{}, err
	}
	return line, nil
}

// UpdateLine replaces the account, side, amount, or description of a line on
// a draft entry.
func (s *Service) UpdateLine(ctx context.Context, in UpdateLineInput) (EntryLine, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return EntryLine{}, shared.ErrTenantRequired
	}
	if !in.Amount.IsPositive() {
		return EntryLine{}, shared.Validationf("ledger: line amount must be positive")
	}
	if in.Side != coa.SideDebit && in.Side != coa.SideCredit {
		return EntryLine{}, shared.Validationf("ledger: line side must be debit or credit")
	}
	var line EntryLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := s.mutableEntry(ctx, tx, tenant.OrgID, in.EntryID)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx, tenant.OrgID, in.AccountID)
		if err != nil {
			return shared.Validationf("ledger: account not available")
		}
		if !account.IsActive {
			return shared.Validationf("ledger: account %s is inactive", account.Code)
		}
		line = NewLine(account.ID, in.Side, in.Amount, in.Description)
		line.ID = in.LineID
		line.EntryID = entry.ID
		if err := line.Validate(); err != nil {
			return err
		}
		return tx.UpdateLine(ctx, line)
	})
	if err != nil {
		return EntryLine{}, err
	}
	return line, nil
}

// RemoveLine deletes a line from a draft entry.
func (s *Service) RemoveLine(ctx context.Context, entryID, lineID int64) error {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return shared.ErrTenantRequired
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.mutableEntry(ctx, tx, tenant.OrgID, entryID); err != nil {
			return err
		}
		return tx.DeleteLine(ctx, entryID, lineID)
	})
}

// PostResult reports the outcome of a Post call.
type PostResult struct {
	Entry         JournalEntry
	AlreadyPosted bool
}

// Post finalizes a draft entry: it requires at least one line, exact
// debit/credit equality, and an open period. Posting an already posted entry
// is reported, not rejected.
func (s *Service) Post(ctx context.Context, entryID int64) (PostResult, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return PostResult{}, shared.ErrTenantRequired
	}
	var result PostResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, tenant.OrgID, entryID)
		if err != nil {
			return err
		}
		if entry.Posted {
			result = PostResult{Entry: entry, AlreadyPosted: true}
			return nil
		}
		period, err := tx.GetPeriodForUpdate(ctx, tenant.OrgID, entry.PeriodID)
		if err != nil {
			return err
		}
		if period.Status != PeriodStatusOpen {
			return ErrPeriodClosed
		}
		lines, err := tx.ListLines(ctx, entry.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		debit, credit := EntryTotals(lines)
		if !debit.Equal(credit) {
			return ErrUnbalanced
		}
		number := entry.EntryNumber
		if number == "" {
			journal, err := tx.GetJournal(ctx, tenant.OrgID, entry.JournalID)
			if err != nil {
				return err
			}
			seq, err := tx.NextEntryNumber(ctx, tenant.OrgID, journal.ID, entry.Date.Year())
			if err != nil {
				return err
			}
			number = FormatEntryNumber(journal.Code, entry.Date.Year(), seq)
		}
		postedAt := s.now()
		if err := tx.MarkPosted(ctx, entry.ID, number, tenant.ActorID, postedAt); err != nil {
			return err
		}
		entry.EntryNumber = number
		entry.Posted = true
		entry.PostedBy = &tenant.ActorID
		entry.PostedAt = &postedAt
		entry.Lines = lines
		result = PostResult{Entry: entry}
		return nil
	})
	if err != nil {
		return PostResult{}, err
	}
	if s.audit != nil && !result.AlreadyPosted {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "ledger.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", result.Entry.ID),
			Meta: map[string]any{
				"entry_number": result.Entry.EntryNumber,
				"period_id":    result.Entry.PeriodID,
			},
			At: s.now(),
		})
	}
	return result, nil
}

// GetEntry loads an entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID int64) (JournalEntry, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return JournalEntry{}, shared.ErrTenantRequired
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetEntryForUpdate(ctx, tenant.OrgID, entryID)
		if err != nil {
			return err
		}
		entry.Lines, err = tx.ListLines(ctx, entry.ID)
		return err
	})
	return entry, err
}

// mutableEntry loads an entry and rejects mutation when it is posted or its
// period is closed.
func (s *Service) mutableEntry(ctx context.Context, tx TxRepository, orgID, entryID int64) (JournalEntry, error) {
	entry, err := tx.GetEntryForUpdate(ctx, orgID, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	if entry.Posted {
		return JournalEntry{}, ErrEntryPosted
	}
	period, err := tx.GetPeriodForUpdate(ctx, orgID, entry.PeriodID)
	if err != nil {
		return JournalEntry{}, err
	}
	if period.Status == PeriodStatusClosed {
		return JournalEntry{}, ErrPeriodClosed
	}
	return entry, nil
}
