package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/domain/event"
	"github.com/payflowhq/payflow/internal/domain/gateway"
	"github.com/payflowhq/payflow/internal/domain/model"
	domainRepo "github.com/payflowhq/payflow/internal/domain/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCurrency = "USD"

// PaymentService orchestrates the payment lifecycle: it validates a request
// against account state, opens the ledger transaction, drives the state
// machine and publishes the resulting notifications after commit.
// Settlement runs eagerly inside the same transaction, so SubmitPayment
// always returns a payment in a terminal state.
type PaymentService struct {
	ledger    domainRepo.LedgerStore
	publisher event.Publisher
	gateway   gateway.PaymentGateway
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service instance
func NewPaymentService(ledger domainRepo.LedgerStore, publisher event.Publisher, gw gateway.PaymentGateway, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		ledger:    ledger,
		publisher: publisher,
		gateway:   gw,
		logger:    logger,
	}
}

// SubmitPaymentInput carries a payment request from the API layer. The
// amount arrives as a decimal string so binary floating point never touches
// monetary values.
type SubmitPaymentInput struct {
	Amount      string
	Recipient   string
	Description string
	Currency    string
}

// SubmitPayment validates and executes one payment end to end.
func (s *PaymentService) SubmitPayment(ctx context.Context, payerID uuid.UUID, input SubmitPaymentInput) (*model.Payment, error) {
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	// Pre-check before any mutation: insufficient funds must not leave a
	// payment row behind. The state machine re-checks under the row lock.
	payer, err := s.ledger.Account(ctx, payerID)
	if err != nil {
		return nil, err
	}
	if !payer.HasSufficientBalance(amount) {
		return nil, domainErr.NewInsufficientBalanceError(amount, payer.Balance)
	}

	payment := &model.Payment{
		ID:          uuid.New(),
		AccountID:   payerID,
		Recipient:   input.Recipient,
		Amount:      amount,
		Currency:    currency,
		Description: input.Description,
		Status:      model.PaymentStatusPending,
	}

	events := &eventQueue{}
	var submitErr error

	err = s.ledger.WithTransaction(ctx, func(tx domainRepo.LedgerTx) error {
		lockedPayer, err := tx.AccountForUpdate(ctx, payerID)
		if err != nil {
			return err
		}

		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		if err := s.gateway.Authorize(ctx, payment); err != nil {
			// A declined authorization is a terminal outcome, not a rollback:
			// the payment commits as failed with no ledger entries.
			s.logger.Warn("Gateway authorization declined",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err))
			if err := tx.UpdatePaymentStatus(ctx, payment.ID, model.PaymentStatusPending, model.PaymentStatusFailed); err != nil {
				return err
			}
			payment.Status = model.PaymentStatusFailed
			events.paymentStatus(payment)
			return nil
		}

		if err := s.beginProcessing(ctx, tx, payment, lockedPayer, events); err != nil {
			var insufficient *domainErr.InsufficientBalanceError
			if errors.As(err, &insufficient) {
				// The failed status must survive, so the transaction commits
				// and the error travels to the caller out of band.
				submitErr = err
				return nil
			}
			return err
		}

		return s.settle(ctx, tx, payment, lockedPayer, events)
	})
	if err != nil {
		s.logger.Error("Payment submission rolled back",
			zap.String("account_id", payerID.String()),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return nil, err
	}

	s.publish(ctx, events)

	if submitErr != nil {
		return payment, submitErr
	}

	s.logger.Info("Payment submitted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("account_id", payerID.String()),
		zap.String("amount", amount.String()),
		zap.String("status", string(payment.Status)))

	return payment, nil
}

// RefundPayment reverses a completed payment back to the payer. It is the
// only legal move out of a terminal state and never happens automatically.
func (s *PaymentService) RefundPayment(ctx context.Context, accountID, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.ledger.Payment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.AccountID != accountID {
		return nil, domainErr.ErrPaymentNotFound
	}

	events := &eventQueue{}
	err = s.ledger.WithTransaction(ctx, func(tx domainRepo.LedgerTx) error {
		if _, err := tx.AccountForUpdate(ctx, payment.AccountID); err != nil {
			return err
		}
		return s.refund(ctx, tx, payment, events)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	s.logger.Info("Payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("amount", payment.Amount.String()))

	return payment, nil
}

// GetPayment retrieves one of the account's payments.
func (s *PaymentService) GetPayment(ctx context.Context, accountID, paymentID uuid.UUID) (*model.Payment, error) {
	payment, err := s.ledger.Payment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.AccountID != accountID {
		return nil, domainErr.ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments retrieves the account's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Payment, error) {
	return s.ledger.PaymentsByAccount(ctx, accountID, limit, offset)
}

// ListTransactions retrieves the account's ledger entries, newest first.
func (s *PaymentService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	return s.ledger.TransactionsByAccount(ctx, accountID, limit, offset)
}

// GetBalance retrieves the account's current balance.
func (s *PaymentService) GetBalance(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	return s.ledger.Account(ctx, accountID)
}

// publish delivers queued events in order. Failures are logged and
// swallowed: the ledger transaction is already committed and must stand.
func (s *PaymentService) publish(ctx context.Context, events *eventQueue) {
	for _, item := range events.items {
		var err error
		switch {
		case item.balance != nil:
			err = s.publisher.PublishBalanceUpdated(ctx, *item.balance)
		case item.status != nil:
			err = s.publisher.PublishPaymentStatusChanged(ctx, *item.status)
		}
		if err != nil {
			s.logger.Warn("Event publish failed",
				zap.Error(fmt.Errorf("%w: %v", domainErr.ErrPublishFailure, err)))
		}
	}
}

// parseAmount validates that a submitted amount is a positive decimal with
// at most two fractional digits.
func parseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, domainErr.NewInvalidAmountError(raw, "amount is required")
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, domainErr.NewInvalidAmountError(raw, "not a decimal number")
	}
	if !amount.IsPositive() {
		return decimal.Zero, domainErr.NewInvalidAmountError(raw, "must be greater than zero")
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, domainErr.NewInvalidAmountError(raw, "at most two fractional digits")
	}

	return amount, nil
}
