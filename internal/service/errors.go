package service

import "errors"

var (
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOrderTaken is returned when a claim loses the race to another
	// driver. This is an expected outcome of contention, not a fault.
	ErrOrderTaken = errors.New("order already taken")
	// ErrConflict is returned when a status precondition failed: the order
	// moved between the read and the write. Callers should re-read.
	ErrConflict = errors.New("order changed, retry")
	// ErrForbidden is returned when the actor is not a participant of the
	// order they are acting on.
	ErrForbidden = errors.New("not allowed")
	// ErrInvalid is returned for requests rejected before any store write.
	ErrInvalid = errors.New("invalid request")
	// ErrNoEstimate is returned when an ETA is requested for an order in a
	// terminal status.
	ErrNoEstimate = errors.New("no estimate for this order")
)
