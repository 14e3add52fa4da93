package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for business-rule violations. Handlers map these onto HTTP
// status codes with errors.Is; anything else coming out of the store is a
// storage failure.
var (
	// ErrInsufficientStock is returned when a checkout requests more of an
	// equipment item than is currently available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCheckout is returned when a checkout is created with no line
	// items.
	ErrEmptyCheckout = errors.New("checkout has no line items")

	// ErrInvalidQuantity is returned when a quantity is out of range
	// (negative, zero where positive is required, or above the checked-out
	// amount on settlement).
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNotAllSettled is returned when closing a transaction that still has
	// items without a settlement record.
	ErrNotAllSettled = errors.New("transaction has unsettled items")

	// ErrAlreadyClosed is returned when mutating a transaction that has
	// already transitioned to closed.
	ErrAlreadyClosed = errors.New("transaction already closed")

	// ErrAlreadySettled is returned when settling an item a second time.
	// Settlement is not idempotent: the first record wins and re-settlement
	// is rejected outright.
	ErrAlreadySettled = errors.New("item already settled")

	// ErrNotVerified is returned by the verification-gated closure path when
	// some item has not been admin-verified.
	ErrNotVerified = errors.New("transaction has unverified items")

	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
)

// InsufficientStockError carries the shortage details. It unwraps to
// ErrInsufficientStock so callers can match either way.
type InsufficientStockError struct {
	EquipmentID int64
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for equipment %d: have %d, need %d",
		e.EquipmentID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
