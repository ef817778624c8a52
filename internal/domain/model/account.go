package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a customer account holding a balance.
// The balance is only ever mutated inside a ledger transaction; it always
// equals the sum of committed credits minus committed debits.
type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"not null;size:150" json:"name"`
	Email     string          `gorm:"uniqueIndex;not null;size:150" json:"email"`
	Balance   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// HasSufficientBalance reports whether the account can cover the given amount.
func (a *Account) HasSufficientBalance(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
