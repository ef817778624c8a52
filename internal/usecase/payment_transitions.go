package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/domain/event"
	"github.com/payflowhq/payflow/internal/domain/model"
	domainRepo "github.com/payflowhq/payflow/internal/domain/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// This file holds the payment state machine: the ordered side effects of
// each status transition. Every transition runs inside the ledger
// transaction handed in by the orchestrator; events are queued and only
// published by the caller after commit.

// beginProcessing drives pending -> processing: re-check the payer balance
// under the row lock, append the debit entry, decrement the balance and move
// the status forward. A balance shortfall moves the payment to failed
// instead and is reported as InsufficientBalanceError.
func (s *PaymentService) beginProcessing(ctx context.Context, tx domainRepo.LedgerTx, payment *model.Payment, payer *model.Account, events *eventQueue) error {
	if payer.Balance.LessThan(payment.Amount) {
		if err := tx.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusPending, model.PaymentStatusFailed); err != nil {
			return err
		}
		payment.Status = model.PaymentStatusFailed
		events.paymentStatus(payment)
		return domainErr.NewInsufficientBalanceError(payment.Amount, payer.Balance)
	}

	debit := &model.Transaction{
		AccountID:   payer.ID,
		PaymentID:   payment.ID,
		Type:        model.TransactionTypeDebit,
		Amount:      payment.Amount,
		Description: "Payment to " + payment.Recipient,
	}
	if err := tx.CreateTransaction(ctx, debit); err != nil {
		return err
	}

	newBalance, err := tx.AdjustBalance(ctx, payer.ID, payment.Amount.Neg())
	if err != nil {
		return err
	}

	if err := tx.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusPending, model.PaymentStatusProcessing); err != nil {
		return err
	}
	payment.Status = model.PaymentStatusProcessing

	events.balanceUpdated(payer.ID, newBalance, debit)
	events.paymentStatus(payment)
	return nil
}

// settle drives processing -> completed: capture through the gateway, credit
// the recipient when it resolves to a known account, and finalize the
// status. A capture or ledger failure falls through to failSettlement.
func (s *PaymentService) settle(ctx context.Context, tx domainRepo.LedgerTx, payment *model.Payment, payer *model.Account, events *eventQueue) error {
	if err := s.gateway.Capture(ctx, payment); err != nil {
		s.logger.Warn("Gateway capture declined",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
		return s.failSettlement(ctx, tx, payment, payer, events)
	}

	recipient, err := tx.AccountByEmailForUpdate(ctx, payment.Recipient)
	if err != nil {
		return err
	}

	if recipient != nil {
		credit := &model.Transaction{
			AccountID:   recipient.ID,
			PaymentID:   payment.ID,
			Type:        model.TransactionTypeCredit,
			Amount:      payment.Amount,
			Description: "Payment from " + payer.Name,
		}
		if err := tx.CreateTransaction(ctx, credit); err != nil {
			return s.failSettlement(ctx, tx, payment, payer, events)
		}

		newBalance, err := tx.AdjustBalance(ctx, recipient.ID, payment.Amount)
		if err != nil {
			return fmt.Errorf("failed to credit recipient: %w", err)
		}
		events.balanceUpdated(recipient.ID, newBalance, credit)
	}

	if err := tx.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusProcessing, model.PaymentStatusCompleted); err != nil {
		return err
	}
	payment.Status = model.PaymentStatusCompleted

	events.paymentStatus(payment)
	return nil
}

// failSettlement drives processing -> failed. The earlier debit stands as an
// immutable entry, so a compensating credit restores the payer balance and
// keeps the balance invariant intact.
func (s *PaymentService) failSettlement(ctx context.Context, tx domainRepo.LedgerTx, payment *model.Payment, payer *model.Account, events *eventQueue) error {
	reversal := &model.Transaction{
		AccountID:   payer.ID,
		PaymentID:   payment.ID,
		Type:        model.TransactionTypeCredit,
		Amount:      payment.Amount,
		Description: "Reversal for payment " + payment.ID.String(),
	}
	if err := tx.CreateTransaction(ctx, reversal); err != nil {
		return err
	}

	newBalance, err := tx.AdjustBalance(ctx, payer.ID, payment.Amount)
	if err != nil {
		return err
	}

	if err := tx.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusProcessing, model.PaymentStatusFailed); err != nil {
		return err
	}
	payment.Status = model.PaymentStatusFailed

	events.balanceUpdated(payer.ID, newBalance, reversal)
	events.paymentStatus(payment)
	return nil
}

// refund drives completed -> refunded: a credit back to the payer for the
// full amount. Never invoked automatically.
func (s *PaymentService) refund(ctx context.Context, tx domainRepo.LedgerTx, payment *model.Payment, events *eventQueue) error {
	if err := tx.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusCompleted, model.PaymentStatusRefunded); err != nil {
		return err
	}

	credit := &model.Transaction{
		AccountID:   payment.AccountID,
		PaymentID:   payment.ID,
		Type:        model.TransactionTypeCredit,
		Amount:      payment.Amount,
		Description: "Refund for payment to " + payment.Recipient,
	}
	if err := tx.CreateTransaction(ctx, credit); err != nil {
		return err
	}

	newBalance, err := tx.AdjustBalance(ctx, payment.AccountID, payment.Amount)
	if err != nil {
		return err
	}
	payment.Status = model.PaymentStatusRefunded

	events.balanceUpdated(payment.AccountID, newBalance, credit)
	events.paymentStatus(payment)
	return nil
}

// eventQueue collects the notifications produced by transitions so they can
// be published in order after the ledger transaction commits. A rolled-back
// transaction drops its queue; a publish failure never unwinds a commit.
type eventQueue struct {
	items []queuedEvent
}

type queuedEvent struct {
	balance *event.BalanceUpdated
	status  *event.PaymentStatusChanged
}

func (q *eventQueue) balanceUpdated(accountID uuid.UUID, balance decimal.Decimal, entry *model.Transaction) {
	ev := event.NewBalanceUpdated(accountID, balance, entry)
	q.items = append(q.items, queuedEvent{balance: &ev})
}

func (q *eventQueue) paymentStatus(payment *model.Payment) {
	ev := event.NewPaymentStatusChanged(payment)
	q.items = append(q.items, queuedEvent{status: &ev})
}
