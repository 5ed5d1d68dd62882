package session

import "errors"

// Guard failures abort the triggering operation atomically; none of them
// leaves partial state behind. Oracle-reported negative outcomes are not
// errors and are recorded on the domain model instead.
var (
	// ErrNotFound is returned when a session, reservation, connector or
	// tariff does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is attempted from a
	// state that forbids it.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnauthorized is returned when the caller lacks the required
	// permission or is not the session owner or oracle.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientFunds is returned when the ledger debit fails at
	// session finalization.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrOutOfOrderLog is returned when a meter reading is non-monotonic in
	// value or timestamp; the offending update is rejected wholesale.
	ErrOutOfOrderLog = errors.New("out of order meter log")
)
