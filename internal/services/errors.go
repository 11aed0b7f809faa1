package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound covers both a missing order and an order assigned to a
	// different driver. The two cases are indistinguishable on purpose.
	ErrOrderNotFound = errors.New("order not found or not assigned to driver")

	// ErrOrderNotEligible rejects completion of orders that are not currently
	// out with the driver.
	ErrOrderNotEligible = errors.New("order is not eligible for completion")

	// ErrOrderNotTerminal rejects evidence reads on orders still in flight.
	// Evidence exists only once the order reached delivered or failed.
	ErrOrderNotTerminal = errors.New("order has not reached a terminal status")
)

// CriticalPersistenceError marks a write failure on the completion path that
// leaves the submission unrecorded or inconsistent. Unlike photo or audit
// failures, these abort the request.
type CriticalPersistenceError struct {
	Step string
	Err  error
}

func (e *CriticalPersistenceError) Error() string {
	return fmt.Sprintf("critical persistence failure at %s: %v", e.Step, e.Err)
}

func (e *CriticalPersistenceError) Unwrap() error { return e.Err }
