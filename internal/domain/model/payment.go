package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		return nil
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// paymentTransitions is the forward-only status graph. The only legal move
// out of a terminal state is completed -> refunded, and that move is never
// made automatically.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
}

// CanTransition reports whether a payment may move from one status to another.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status ends normal processing.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// PaymentStatuses returns all valid payment statuses.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	}
}

// Payment represents one transfer attempt, owned by the payer account.
// The recipient is an email address; when it matches a known account the
// settlement credits that account, otherwise the amount is considered sent
// externally.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_account_created" json:"account_id"`
	Recipient   string          `gorm:"not null;size:150" json:"recipient"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency    string          `gorm:"size:5;default:'USD'" json:"currency"`
	Description string          `gorm:"size:150" json:"description"`
	Status      PaymentStatus   `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time       `gorm:"default:now();index:idx_payments_account_created" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// StatusMessage returns the human-readable message broadcast alongside a
// status change.
func (p *Payment) StatusMessage() string {
	switch p.Status {
	case PaymentStatusPending:
		return "Payment initiated"
	case PaymentStatusProcessing:
		return "Payment being processed"
	case PaymentStatusCompleted:
		return "Payment processed successfully"
	case PaymentStatusFailed:
		return "Payment failed"
	case PaymentStatusRefunded:
		return "Payment refunded"
	default:
		return "Payment status updated"
	}
}
