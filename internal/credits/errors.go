package credits

import "errors"

var (
	// ErrInsufficientCredit is returned when a principal's balance does not
	// cover the requested amount.
	ErrInsufficientCredit = errors.New("insufficient credit")
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrUnknownPrincipal is returned when no balance exists for a principal.
	ErrUnknownPrincipal = errors.New("unknown principal")
	// ErrAlreadyRefunded is returned when a reservation is refunded twice.
	ErrAlreadyRefunded = errors.New("reservation already refunded")
	// ErrContention is returned when the compare-and-swap loop gives up.
	ErrContention = errors.New("balance update contention")
)
