package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	domainErr "github.com/payflowhq/payflow/internal/domain/errors"
	"github.com/payflowhq/payflow/internal/domain/model"
	domainRepo "github.com/payflowhq/payflow/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// MemoryLedgerRepository is an in-memory implementation of the LedgerStore
// interface. It backs unit tests and local runs without PostgreSQL.
// Transactions take a snapshot of the whole state and restore it on error,
// which gives the same all-or-nothing semantics as a database rollback.
type MemoryLedgerRepository struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]model.Account
	payments     map[uuid.UUID]model.Payment
	transactions []model.Transaction
	seq          int64
}

// NewMemoryLedgerRepository creates an empty in-memory ledger store
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		accounts: make(map[uuid.UUID]model.Account),
		payments: make(map[uuid.UUID]model.Payment),
	}
}

// memoryLedgerTx mutates the store directly; the snapshot held by
// WithTransaction is what makes rollback possible.
type memoryLedgerTx struct {
	store *MemoryLedgerRepository
}

type memorySnapshot struct {
	accounts     map[uuid.UUID]model.Account
	payments     map[uuid.UUID]model.Payment
	transactions []model.Transaction
}

func (m *MemoryLedgerRepository) snapshot() memorySnapshot {
	accounts := make(map[uuid.UUID]model.Account, len(m.accounts))
	for id, a := range m.accounts {
		accounts[id] = a
	}
	payments := make(map[uuid.UUID]model.Payment, len(m.payments))
	for id, p := range m.payments {
		payments[id] = p
	}
	transactions := make([]model.Transaction, len(m.transactions))
	copy(transactions, m.transactions)
	return memorySnapshot{accounts: accounts, payments: payments, transactions: transactions}
}

func (m *MemoryLedgerRepository) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.payments = s.payments
	m.transactions = s.transactions
}

// WithTransaction runs fn against the store under the global lock, restoring
// the pre-transaction snapshot when fn returns an error.
func (m *MemoryLedgerRepository) WithTransaction(ctx context.Context, fn func(tx domainRepo.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memoryLedgerTx{store: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// Account retrieves an account by id
func (m *MemoryLedgerRepository) Account(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, domainErr.ErrAccountNotFound
	}
	return &account, nil
}

// Payment retrieves a payment by id
func (m *MemoryLedgerRepository) Payment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, ok := m.payments[id]
	if !ok {
		return nil, domainErr.ErrPaymentNotFound
	}
	return &payment, nil
}

// PaymentsByAccount retrieves an account's payments, newest first
func (m *MemoryLedgerRepository) PaymentsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payments []model.Payment
	for _, p := range m.payments {
		if p.AccountID == accountID {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return paginate(payments, limit, offset), nil
}

// TransactionsByAccount retrieves an account's ledger entries, newest first
func (m *MemoryLedgerRepository) TransactionsByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].AccountID == accountID {
			entries = append(entries, m.transactions[i])
		}
	}
	return paginate(entries, limit, offset), nil
}

// TransactionsByPayment retrieves the ledger entries referencing a payment
func (m *MemoryLedgerRepository) TransactionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.Transaction
	for _, t := range m.transactions {
		if t.PaymentID == paymentID {
			entries = append(entries, t)
		}
	}
	return entries, nil
}

// CreateAccount persists a new account
func (m *MemoryLedgerRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	for _, existing := range m.accounts {
		if existing.Email == account.Email {
			return fmt.Errorf("%w: duplicate account email %s", domainErr.ErrConstraintViolation, account.Email)
		}
	}
	m.accounts[account.ID] = *account
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (t *memoryLedgerTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, ok := t.store.accounts[id]
	if !ok {
		return nil, domainErr.ErrAccountNotFound
	}
	return &account, nil
}

func (t *memoryLedgerTx) AccountByEmailForUpdate(ctx context.Context, email string) (*model.Account, error) {
	for _, account := range t.store.accounts {
		if account.Email == email {
			a := account
			return &a, nil
		}
	}
	return nil, nil
}

func (t *memoryLedgerTx) CreatePayment(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		t.store.seq++
		payment.CreatedAt = time.Now().UTC().Add(time.Duration(t.store.seq) * time.Microsecond)
	}
	t.store.payments[payment.ID] = *payment
	return nil
}

func (t *memoryLedgerTx) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to model.PaymentStatus) error {
	if !model.CanTransition(from, to) {
		return domainErr.NewInvalidTransitionError(string(from), string(to))
	}

	payment, ok := t.store.payments[paymentID]
	if !ok {
		return domainErr.ErrPaymentNotFound
	}
	if payment.Status != from {
		return domainErr.NewInvalidTransitionError(string(payment.Status), string(to))
	}

	payment.Status = to
	payment.UpdatedAt = time.Now().UTC()
	t.store.payments[paymentID] = payment
	return nil
}

func (t *memoryLedgerTx) CreateTransaction(ctx context.Context, entry *model.Transaction) error {
	if !entry.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive, got %s",
			domainErr.ErrConstraintViolation, entry.Amount.String())
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		t.store.seq++
		entry.CreatedAt = time.Now().UTC().Add(time.Duration(t.store.seq) * time.Microsecond)
	}
	t.store.transactions = append(t.store.transactions, *entry)
	return nil
}

func (t *memoryLedgerTx) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	account, ok := t.store.accounts[accountID]
	if !ok {
		return decimal.Zero, domainErr.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(delta)
	account.UpdatedAt = time.Now().UTC()
	t.store.accounts[accountID] = account
	return account.Balance, nil
}

// Compile-time check: ensure MemoryLedgerRepository implements LedgerStore
var _ domainRepo.LedgerStore = (*MemoryLedgerRepository)(nil)
