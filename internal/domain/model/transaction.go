package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a ledger entry
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// Scan implements sql.Scanner interface
func (t *TransactionType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = TransactionType(v)
	case []byte:
		*t = TransactionType(v)
	default:
		return nil
	}
	return nil
}

// Value implements driver.Valuer interface
func (t TransactionType) Value() (driver.Value, error) {
	return string(t), nil
}

// TransactionTypes returns all valid transaction types.
func TransactionTypes() []TransactionType {
	return []TransactionType{TransactionTypeCredit, TransactionTypeDebit}
}

// Transaction is an immutable, append-only ledger entry recording a single
// balance movement on one account. Entries are never modified or deleted;
// corrections happen via new offsetting entries.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_account_created" json:"account_id"`
	PaymentID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	Type        TransactionType `gorm:"size:10;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Description string          `gorm:"size:150" json:"description"`
	CreatedAt   time.Time       `gorm:"default:now();index:idx_transactions_account_created" json:"created_at"`

	// Relations
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// SignedAmount returns the amount with the sign implied by the entry type:
// positive for credits, negative for debits.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
