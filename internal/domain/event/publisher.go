package event

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflowhq/payflow/internal/domain/model"
	"github.com/shopspring/decimal"
)

// TransactionPayload is the ledger entry slice of a balance event.
type TransactionPayload struct {
	ID          uuid.UUID             `json:"id"`
	Type        model.TransactionType `json:"type"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description"`
}

// BalanceUpdated is broadcast on the account's private channel after a
// committed balance change. Change is signed: positive for credits,
// negative for debits.
type BalanceUpdated struct {
	AccountID   uuid.UUID          `json:"account_id"`
	Balance     decimal.Decimal    `json:"balance"`
	Change      decimal.Decimal    `json:"change"`
	Transaction TransactionPayload `json:"transaction"`
}

// PaymentStatusChanged is broadcast on the payment's private channel after a
// committed status transition.
type PaymentStatusChanged struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	AccountID uuid.UUID           `json:"-"`
	Status    model.PaymentStatus `json:"status"`
	Message   string              `json:"message"`
}

// Publisher is the sink the payment core notifies after each committed
// transition. Implementations own delivery; the core never blocks
// indefinitely on a publish and never rolls back a committed ledger
// transaction because a publish failed.
type Publisher interface {
	PublishBalanceUpdated(ctx context.Context, ev BalanceUpdated) error
	PublishPaymentStatusChanged(ctx context.Context, ev PaymentStatusChanged) error
}

// NewBalanceUpdated builds the payload for a committed ledger entry.
func NewBalanceUpdated(accountID uuid.UUID, balance decimal.Decimal, entry *model.Transaction) BalanceUpdated {
	return BalanceUpdated{
		AccountID: accountID,
		Balance:   balance,
		Change:    entry.SignedAmount(),
		Transaction: TransactionPayload{
			ID:          entry.ID,
			Type:        entry.Type,
			Amount:      entry.Amount,
			Description: entry.Description,
		},
	}
}

// NewPaymentStatusChanged builds the payload for a committed status change.
func NewPaymentStatusChanged(payment *model.Payment) PaymentStatusChanged {
	return PaymentStatusChanged{
		PaymentID: payment.ID,
		AccountID: payment.AccountID,
		Status:    payment.Status,
		Message:   payment.StatusMessage(),
	}
}
