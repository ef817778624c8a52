package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/domain/model"
	domainRepo "github.com/payflowhq/payflow/internal/domain/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledgerRepository implements the LedgerStore interface on PostgreSQL
type ledgerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.LedgerStore {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

// ledgerTx is the transactional view handed to WithTransaction callbacks
type ledgerTx struct {
	tx     *gorm.DB
	logger *zap.Logger
}

// WithTransaction runs fn inside one database transaction. GORM commits on a
// nil return and rolls back on error or panic, so every mutation made through
// the LedgerTx either lands as a whole or not at all.
func (r *ledgerRepository) WithTransaction(ctx context.Context, fn func(tx domainRepo.LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{tx: tx, logger: r.logger})
	})
}

// Account retrieves an account by id
func (r *ledgerRepository) Account(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account",
			zap.String("account_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// Payment retrieves a payment by id
func (r *ledgerRepository) Payment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.ErrPaymentNotFound
		}
		r.logger.Error("Failed to get payment",
			zap.String("payment_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// PaymentsByAccount retrieves an account's payments, newest first
func (r *ledgerRepository) PaymentsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Payment, error) {
	var payments []model.Payment

	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&payments).Error; err != nil {
		r.logger.Error("Failed to list payments",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}

// TransactionsByAccount retrieves an account's ledger entries, newest first
func (r *ledgerRepository) TransactionsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	var transactions []model.Transaction

	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&transactions).Error; err != nil {
		r.logger.Error("Failed to list transactions",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, nil
}

// TransactionsByPayment retrieves the ledger entries referencing a payment
func (r *ledgerRepository) TransactionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&transactions).Error

	if err != nil {
		r.logger.Error("Failed to list payment transactions",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}

	return transactions, nil
}

// CreateAccount persists a new account
func (r *ledgerRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		r.logger.Error("Failed to create account",
			zap.String("email", account.Email),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// AccountForUpdate loads an account under a row lock. Concurrent mutations of
// the same balance serialize on this lock, so two debits can never both read
// a stale balance.
func (t *ledgerTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account

	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	return &account, nil
}

// AccountByEmailForUpdate resolves a recipient address to an account under a
// row lock. Unknown addresses return (nil, nil): the recipient is external.
func (t *ledgerTx) AccountByEmailForUpdate(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account

	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock account by email: %w", err)
	}

	return &account, nil
}

// CreatePayment persists a new payment row
func (t *ledgerTx) CreatePayment(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	if err := t.tx.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// UpdatePaymentStatus moves a payment along the transition graph. The guard
// runs against the row's current status inside the transaction, so a payment
// can never be observed in two terminal states.
func (t *ledgerTx) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to model.PaymentStatus) error {
	if !model.CanTransition(from, to) {
		return domainErr.NewInvalidTransitionError(string(from), string(to))
	}

	result := t.tx.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Update("status", to)

	if result.Error != nil {
		return fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// The row exists with a different status, or not at all.
		var current model.Payment
		if err := t.tx.WithContext(ctx).Where("id = ?", paymentID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErr.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to read payment status: %w", err)
		}
		return domainErr.NewInvalidTransitionError(string(current.Status), string(to))
	}

	return nil
}

// CreateTransaction appends an immutable ledger entry
func (t *ledgerTx) CreateTransaction(ctx context.Context, entry *model.Transaction) error {
	if !entry.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive, got %s",
			domainErr.ErrConstraintViolation, entry.Amount.String())
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if err := t.tx.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// AdjustBalance applies a signed delta to an account balance and returns the
// new balance. The caller is expected to hold the row lock already via
// AccountForUpdate; the update itself is atomic either way.
func (t *ledgerTx) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	result := t.tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", delta))

	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, domainErr.ErrAccountNotFound
	}

	var account model.Account
	if err := t.tx.WithContext(ctx).Where("id = ?", accountID).First(&account).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	t.logger.Debug("Adjusted account balance",
		zap.String("account_id", accountID.String()),
		zap.String("delta", delta.String()),
		zap.String("balance", account.Balance.String()))

	return account.Balance, nil
}
