package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidAmountError is returned when a payment amount is not a positive
// decimal with at most two fractional digits
type InvalidAmountError struct {
	Amount string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid payment amount %q: %s", e.Amount, e.Reason)
}

// NewInvalidAmountError creates a new InvalidAmountError
func NewInvalidAmountError(amount, reason string) *InvalidAmountError {
	return &InvalidAmountError{Amount: amount, Reason: reason}
}

// InsufficientBalanceError is returned when an account cannot cover a payment
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s, available %s", e.Requested.String(), e.Available.String())
}

// NewInsufficientBalanceError creates a new InsufficientBalanceError
func NewInsufficientBalanceError(requested, available decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{Requested: requested, Available: available}
}

// InvalidTransitionError is returned when a payment status change is not in
// the transition graph. The payment state is left unchanged.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid payment transition: %s -> %s", e.From, e.To)
}

// NewInvalidTransitionError creates a new InvalidTransitionError
func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}
