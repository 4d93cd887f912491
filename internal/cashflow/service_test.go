package cashflow

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryCashRepo struct {
	bankJournal int64
	txns        map[int64]CashTransaction
	lastPosting ledger.AutoPostingInput
	nextID      int64
	nextEntry   int64
}

func newMemoryCashRepo() *memoryCashRepo {
	return &memoryCashRepo{bankJournal: 3, txns: make(map[int64]CashTransaction), nextID: 1, nextEntry: 500}
}

func (m *memoryCashRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryCashRepo) FindBankJournal(_ context.Context, orgID int64) (int64, error) {
	if m.bankJournal == 0 {
		return 0, shared.Configurationf("no active BANK journal for organization %d", orgID)
	}
	return m.bankJournal, nil
}

func (m *memoryCashRepo) PostEntry(_ context.Context, orgID, actorID int64, now time.Time, in ledger.AutoPostingInput) (ledger.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return ledger.JournalEntry{}, err
	}
	m.lastPosting = in
	m.nextEntry++
	return ledger.JournalEntry{ID: m.nextEntry, OrgID: orgID, Posted: true, CreatedBy: actorID, PostedAt: &now}, nil
}

func (m *memoryCashRepo) InsertTransaction(_ context.Context, t CashTransaction) (CashTransaction, error) {
	t.ID = m.nextID
	m.nextID++
	m.txns[t.ID] = t
	return t, nil
}

func (m *memoryCashRepo) GetTransaction(_ context.Context, orgID, id int64) (CashTransaction, error) {
	t, ok := m.txns[id]
	if !ok || t.OrgID != orgID {
		return CashTransaction{}, shared.NotFoundf("cash transaction")
	}
	return t, nil
}

func (m *memoryCashRepo) ListTransactions(_ context.Context, orgID, periodID int64) ([]CashTransaction, error) {
	var out []CashTransaction
	for _, t := range m.txns {
		if t.OrgID == orgID && t.PeriodID == periodID {
			out = append(out, t)
		}
	}
	return out, nil
}

func cashTestContext() context.Context {
	return shared.ContextWithTenant(context.Background(), shared.Tenant{OrgID: 1, ActorID: 7})
}

func recordInput(kind Kind) RecordInput {
	return RecordInput{
		Kind:             kind,
		PeriodID:         1,
		BankAccountID:    10,
		CounterAccountID: 40,
		Amount:           decimal.RequireFromString("125.00"),
		Date:             time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Reference:        "INV-42",
	}
}

func TestRecordReceiptDebitsBank(t *testing.T) {
	repo := newMemoryCashRepo()
	svc := NewService(repo, nil)

	txn, err := svc.Record(cashTestContext(), recordInput(KindReceipt))
	require.NoError(t, err)
	require.Equal(t, KindReceipt, txn.Kind)
	require.NotZero(t, txn.EntryID)

	require.Len(t, repo.lastPosting.Lines, 2)
	bank := repo.lastPosting.Lines[0]
	counter := repo.lastPosting.Lines[1]
	require.Equal(t, int64(10), bank.AccountID)
	require.True(t, bank.Debit.Equal(decimal.RequireFromString("125.00")), "bank debit %s", bank.Debit)
	require.True(t, counter.Credit.Equal(decimal.RequireFromString("125.00")), "counter credit %s", counter.Credit)
}

func TestRecordPaymentCreditsBank(t *testing.T) {
	repo := newMemoryCashRepo()
	svc := NewService(repo, nil)

	_, err := svc.Record(cashTestContext(), recordInput(KindPayment))
	require.NoError(t, err)

	bank := repo.lastPosting.Lines[0]
	counter := repo.lastPosting.Lines[1]
	require.True(t, bank.Credit.Equal(decimal.RequireFromString("125.00")), "bank credit %s", bank.Credit)
	require.True(t, counter.Debit.Equal(decimal.RequireFromString("125.00")), "counter debit %s", counter.Debit)
}

func TestRecordWithoutBankJournalFails(t *testing.T) {
	repo := newMemoryCashRepo()
	repo.bankJournal = 0
	svc := NewService(repo, nil)

	_, err := svc.Record(cashTestContext(), recordInput(KindReceipt))
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestRecordValidation(t *testing.T) {
	repo := newMemoryCashRepo()
	svc := NewService(repo, nil)

	in := recordInput(KindReceipt)
	in.Amount = decimal.Zero
	_, err := svc.Record(cashTestContext(), in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = recordInput("TRANSFER")
	_, err = svc.Record(cashTestContext(), in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = recordInput(KindPayment)
	in.CounterAccountID = in.BankAccountID
	_, err = svc.Record(cashTestContext(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestKindSides(t *testing.T) {
	require.Equal(t, coa.SideDebit, KindReceipt.BankSide())
	require.Equal(t, coa.SideCredit, KindReceipt.CounterSide())
	require.Equal(t, coa.SideCredit, KindPayment.BankSide())
	require.Equal(t, coa.SideDebit, KindPayment.CounterSide())
}
