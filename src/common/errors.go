package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrCouponInvalid   = errors.New("coupon is not valid for this order")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrGateway         = errors.New("payment gateway request failed")
	ErrUnsupportedRail = errors.New("unsupported bank-transfer rail")
)

// InvalidTransitionError rejects a lifecycle operation invoked from a state
// it is not declared for. Callers may re-read the entity and retry.
type InvalidTransitionError struct {
	Entity    string
	From      string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot %s from status %q", e.Entity, e.Attempted, e.From)
}

// AssignmentConflictError reports a driver or car already holding an
// assignment whose pickup window overlaps the requested booking's.
type AssignmentConflictError struct {
	DriverID  uint
	CarID     uint
	BookingID uint
}

func (e *AssignmentConflictError) Error() string {
	return fmt.Sprintf("driver %d / car %d already assigned to booking %d in an overlapping pickup window", e.DriverID, e.CarID, e.BookingID)
}
