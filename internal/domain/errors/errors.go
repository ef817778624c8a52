package errors

import "errors"

var (
	// ErrAccountNotFound indicates that the referenced account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrPaymentNotFound indicates that the referenced payment does not exist
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrConstraintViolation indicates a ledger integrity violation, such as
	// a transaction with a non-positive amount
	ErrConstraintViolation = errors.New("ledger constraint violation")

	// ErrPublishFailure indicates an event could not be delivered. It is
	// non-fatal: a committed ledger transaction is never rolled back for it.
	ErrPublishFailure = errors.New("event publish failure")
)
