package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflowhq/payflow/internal/domain/model"
	"github.com/shopspring/decimal"
)

// LedgerStore defines the interface for atomic, durable access to accounts,
// payments and transactions. All mutations go through WithTransaction so a
// payment transition either commits as a whole or not at all.
type LedgerStore interface {
	// WithTransaction runs fn inside one database transaction. A nil return
	// commits; an error or panic rolls back every mutation made through the
	// LedgerTx. Nothing is visible to other readers before commit.
	WithTransaction(ctx context.Context, fn func(tx LedgerTx) error) error

	// Account retrieves an account by id
	Account(ctx context.Context, id uuid.UUID) (*model.Account, error)

	// Payment retrieves a payment by id
	Payment(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// PaymentsByAccount retrieves an account's payments, newest first
	PaymentsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Payment, error)

	// TransactionsByAccount retrieves an account's ledger entries, newest first
	TransactionsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error)

	// TransactionsByPayment retrieves the ledger entries referencing a payment
	TransactionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Transaction, error)

	// CreateAccount persists a new account
	CreateAccount(ctx context.Context, account *model.Account) error
}

// LedgerTx is the transactional view of the ledger handed to WithTransaction
// callbacks. Implementations must confine every side effect to the active
// database transaction.
type LedgerTx interface {
	// AccountForUpdate loads an account under a row lock so concurrent
	// mutations of the same balance serialize. Returns ErrAccountNotFound
	// when the account does not exist.
	AccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error)

	// AccountByEmailForUpdate resolves a recipient address to an account
	// under a row lock. Returns (nil, nil) when no account matches; the
	// recipient is then treated as external.
	AccountByEmailForUpdate(ctx context.Context, email string) (*model.Account, error)

	// CreatePayment persists a new payment row
	CreatePayment(ctx context.Context, payment *model.Payment) error

	// UpdatePaymentStatus moves a payment from one status to another.
	// Returns InvalidTransitionError when to is not reachable from the
	// payment's current status; the row is left untouched.
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to model.PaymentStatus) error

	// CreateTransaction appends an immutable ledger entry. Returns
	// ErrConstraintViolation when the amount is not positive.
	CreateTransaction(ctx context.Context, entry *model.Transaction) error

	// AdjustBalance applies a signed delta to an account balance and returns
	// the new balance. Returns ErrAccountNotFound for unknown accounts.
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}
