package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/payflowhq/payflow/internal/adapter/repository"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/domain/event"
	"github.com/payflowhq/payflow/internal/domain/model"
	"github.com/payflowhq/payflow/internal/usecase"
)

// recordingPublisher collects published events in order. failAll makes every
// publish return an error, which must never affect the ledger outcome.
type recordingPublisher struct {
	balanceEvents []event.BalanceUpdated
	statusEvents  []event.PaymentStatusChanged
	failAll       bool
}

func (p *recordingPublisher) PublishBalanceUpdated(ctx context.Context, ev event.BalanceUpdated) error {
	if p.failAll {
		return errors.New("broker unavailable")
	}
	p.balanceEvents = append(p.balanceEvents, ev)
	return nil
}

func (p *recordingPublisher) PublishPaymentStatusChanged(ctx context.Context, ev event.PaymentStatusChanged) error {
	if p.failAll {
		return errors.New("broker unavailable")
	}
	p.statusEvents = append(p.statusEvents, ev)
	return nil
}

// scriptedGateway returns fixed results for authorize and capture.
type scriptedGateway struct {
	authorizeErr error
	captureErr   error
}

func (g *scriptedGateway) Authorize(ctx context.Context, payment *model.Payment) error {
	return g.authorizeErr
}

func (g *scriptedGateway) Capture(ctx context.Context, payment *model.Payment) error {
	return g.captureErr
}

type testEnv struct {
	service   *usecase.PaymentService
	store     *repository.MemoryLedgerRepository
	publisher *recordingPublisher
	gateway   *scriptedGateway
	payer     *model.Account
	recipient *model.Account
}

func newTestEnv(t *testing.T, payerBalance, recipientBalance string) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryLedgerRepository()
	publisher := &recordingPublisher{}
	gw := &scriptedGateway{}

	payer := &model.Account{
		Name:    "Alice Payer",
		Email:   "alice@example.com",
		Balance: decimal.RequireFromString(payerBalance),
	}
	require.NoError(t, store.CreateAccount(ctx, payer))

	recipient := &model.Account{
		Name:    "Bob Recipient",
		Email:   "bob@example.com",
		Balance: decimal.RequireFromString(recipientBalance),
	}
	require.NoError(t, store.CreateAccount(ctx, recipient))

	return &testEnv{
		service:   usecase.NewPaymentService(store, publisher, gw, zap.NewNop()),
		store:     store,
		publisher: publisher,
		gateway:   gw,
		payer:     payer,
		recipient: recipient,
	}
}

func (e *testEnv) payerBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	account, err := e.store.Account(context.Background(), e.payer.ID)
	require.NoError(t, err)
	return account.Balance
}

func (e *testEnv) recipientBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	account, err := e.store.Account(context.Background(), e.recipient.ID)
	require.NoError(t, err)
	return account.Balance
}

func TestPaymentService_SubmitPayment_ExternalRecipient(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "someone@elsewhere.com",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "USD", payment.Currency)
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("70.00")))

	// One debit entry only: the recipient is not a known account.
	entries, err := env.store.TransactionsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TransactionTypeDebit, entries[0].Type)
	assert.Equal(t, env.payer.ID, entries[0].AccountID)
	assert.Equal(t, "Payment to someone@elsewhere.com", entries[0].Description)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("30.00")))
}

func TestPaymentService_SubmitPayment_InternalRecipient(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "20.00",
		Recipient: "bob@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("80.00")))
	assert.True(t, env.recipientBalance(t).Equal(decimal.RequireFromString("25.00")))

	// Double entry: a debit for the payer and a credit for the recipient,
	// both referencing the same payment.
	entries, err := env.store.TransactionsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byType := map[model.TransactionType]model.Transaction{}
	for _, entry := range entries {
		byType[entry.Type] = entry
	}
	assert.Equal(t, env.payer.ID, byType[model.TransactionTypeDebit].AccountID)
	assert.Equal(t, env.recipient.ID, byType[model.TransactionTypeCredit].AccountID)
	assert.Equal(t, "Payment from Alice Payer", byType[model.TransactionTypeCredit].Description)
}

func TestPaymentService_SubmitPayment_InsufficientBalance(t *testing.T) {
	env := newTestEnv(t, "10.00", "5.00")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "50.00",
		Recipient: "bob@example.com",
	})

	var insufficient *domainErr.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Nil(t, payment)
	assert.True(t, insufficient.Requested.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, insufficient.Available.Equal(decimal.RequireFromString("10.00")))

	// Nothing was written: no payment rows, no ledger entries, both balances
	// untouched.
	payments, err := env.store.PaymentsByAccount(ctx, env.payer.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, payments)

	entries, err := env.store.TransactionsByAccount(ctx, env.payer.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("10.00")))
	assert.Empty(t, env.publisher.balanceEvents)
	assert.Empty(t, env.publisher.statusEvents)
}

func TestPaymentService_SubmitPayment_CaptureDeclined(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	env.gateway.captureErr = errors.New("processor declined")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "bob@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, payment.Status)

	// The debit stands as an immutable entry; a compensating credit restores
	// the balance instead of rewriting history.
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("100.00")))
	assert.True(t, env.recipientBalance(t).Equal(decimal.RequireFromString("5.00")))

	entries, err := env.store.TransactionsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TransactionTypeDebit, entries[0].Type)
	assert.Equal(t, model.TransactionTypeCredit, entries[1].Type)
	assert.Equal(t, env.payer.ID, entries[1].AccountID)
	assert.Equal(t, "Reversal for payment "+payment.ID.String(), entries[1].Description)
}

func TestPaymentService_SubmitPayment_AuthorizeDeclined(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	env.gateway.authorizeErr = errors.New("card blocked")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "bob@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, payment.Status)

	// The payment row commits as failed, but no money moved.
	stored, err := env.store.Payment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, stored.Status)

	entries, err := env.store.TransactionsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("100.00")))
}

func TestPaymentService_SubmitPayment_InvalidAmounts(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	for _, amount := range []string{"", "abc", "0", "-5.00", "1.234"} {
		t.Run("amount "+amount, func(t *testing.T) {
			payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
				Amount:    amount,
				Recipient: "bob@example.com",
			})

			var invalidAmount *domainErr.InvalidAmountError
			assert.ErrorAs(t, err, &invalidAmount)
			assert.Nil(t, payment)
		})
	}

	// No side effects from any rejected submission.
	payments, err := env.store.PaymentsByAccount(ctx, env.payer.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestPaymentService_SubmitPayment_UnknownPayer(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")

	_, err := env.service.SubmitPayment(context.Background(), uuid.New(), usecase.SubmitPaymentInput{
		Amount:    "10.00",
		Recipient: "bob@example.com",
	})

	assert.ErrorIs(t, err, domainErr.ErrAccountNotFound)
}

func TestPaymentService_SubmitPayment_PublishesEventsAfterCommit(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "20.00",
		Recipient: "bob@example.com",
	})
	require.NoError(t, err)

	// Two balance events: the payer's debit and the recipient's credit.
	require.Len(t, env.publisher.balanceEvents, 2)
	debitEvent := env.publisher.balanceEvents[0]
	assert.Equal(t, env.payer.ID, debitEvent.AccountID)
	assert.True(t, debitEvent.Balance.Equal(decimal.RequireFromString("80.00")))
	assert.True(t, debitEvent.Change.Equal(decimal.RequireFromString("-20.00")))
	assert.Equal(t, model.TransactionTypeDebit, debitEvent.Transaction.Type)

	creditEvent := env.publisher.balanceEvents[1]
	assert.Equal(t, env.recipient.ID, creditEvent.AccountID)
	assert.True(t, creditEvent.Balance.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, creditEvent.Change.Equal(decimal.RequireFromString("20.00")))

	// Status events walk the lifecycle in order.
	require.Len(t, env.publisher.statusEvents, 2)
	assert.Equal(t, model.PaymentStatusProcessing, env.publisher.statusEvents[0].Status)
	assert.Equal(t, "Payment being processed", env.publisher.statusEvents[0].Message)
	assert.Equal(t, model.PaymentStatusCompleted, env.publisher.statusEvents[1].Status)
	assert.Equal(t, payment.ID, env.publisher.statusEvents[1].PaymentID)
}

func TestPaymentService_SubmitPayment_PublishFailureIsNonFatal(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	env.publisher.failAll = true
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "bob@example.com",
	})

	// The ledger outcome stands even though no event was delivered.
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("70.00")))
}

func TestPaymentService_RefundPayment(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "someone@elsewhere.com",
	})
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusCompleted, payment.Status)

	refunded, err := env.service.RefundPayment(ctx, env.payer.ID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, refunded.Status)
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("100.00")))

	entries, err := env.store.TransactionsByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TransactionTypeCredit, entries[1].Type)
	assert.Equal(t, "Refund for payment to someone@elsewhere.com", entries[1].Description)
}

func TestPaymentService_RefundPayment_InvalidStates(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	env.gateway.captureErr = errors.New("processor declined")
	ctx := context.Background()

	failed, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "bob@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, model.PaymentStatusFailed, failed.Status)

	t.Run("failed payment cannot be refunded", func(t *testing.T) {
		var invalidTransition *domainErr.InvalidTransitionError
		_, err := env.service.RefundPayment(ctx, env.payer.ID, failed.ID)
		assert.ErrorAs(t, err, &invalidTransition)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := env.service.RefundPayment(ctx, env.payer.ID, uuid.New())
		assert.ErrorIs(t, err, domainErr.ErrPaymentNotFound)
	})

	t.Run("payment owned by another account", func(t *testing.T) {
		_, err := env.service.RefundPayment(ctx, env.recipient.ID, failed.ID)
		assert.ErrorIs(t, err, domainErr.ErrPaymentNotFound)
	})
}

func TestPaymentService_RefundPayment_IsIdempotentlyRejected(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	payment, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "30.00",
		Recipient: "someone@elsewhere.com",
	})
	require.NoError(t, err)

	_, err = env.service.RefundPayment(ctx, env.payer.ID, payment.ID)
	require.NoError(t, err)

	// A second refund finds the payment already refunded.
	var invalidTransition *domainErr.InvalidTransitionError
	_, err = env.service.RefundPayment(ctx, env.payer.ID, payment.ID)
	require.ErrorAs(t, err, &invalidTransition)
	assert.Equal(t, string(model.PaymentStatusRefunded), invalidTransition.From)

	// Balance was not credited twice.
	assert.True(t, env.payerBalance(t).Equal(decimal.RequireFromString("100.00")))
}

func TestPaymentService_Queries(t *testing.T) {
	env := newTestEnv(t, "100.00", "5.00")
	ctx := context.Background()

	first, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "10.00",
		Recipient: "bob@example.com",
	})
	require.NoError(t, err)

	second, err := env.service.SubmitPayment(ctx, env.payer.ID, usecase.SubmitPaymentInput{
		Amount:    "15.00",
		Recipient: "someone@elsewhere.com",
	})
	require.NoError(t, err)

	t.Run("get payment enforces ownership", func(t *testing.T) {
		got, err := env.service.GetPayment(ctx, env.payer.ID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = env.service.GetPayment(ctx, env.recipient.ID, first.ID)
		assert.ErrorIs(t, err, domainErr.ErrPaymentNotFound)
	})

	t.Run("list payments newest first", func(t *testing.T) {
		payments, err := env.service.ListPayments(ctx, env.payer.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, second.ID, payments[0].ID)
		assert.Equal(t, first.ID, payments[1].ID)
	})

	t.Run("list payments with limit", func(t *testing.T) {
		payments, err := env.service.ListPayments(ctx, env.payer.ID, 1, 0)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, second.ID, payments[0].ID)
	})

	t.Run("list transactions newest first", func(t *testing.T) {
		entries, err := env.service.ListTransactions(ctx, env.payer.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, second.ID, entries[0].PaymentID)
		assert.Equal(t, first.ID, entries[1].PaymentID)
	})

	t.Run("get balance", func(t *testing.T) {
		account, err := env.service.GetBalance(ctx, env.payer.ID)
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.RequireFromString("75.00")))
	})
}
