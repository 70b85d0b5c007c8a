package escrow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized rejects an actor that may not trigger the requested
	// action on the order.
	ErrUnauthorized = errors.New("escrow: actor not authorized for action")
	// ErrOrderNotFound reports a missing order record.
	ErrOrderNotFound = errors.New("escrow: order not found")
	// ErrProductNotFound reports a missing product record for an order.
	ErrProductNotFound = errors.New("escrow: product not found")
	// ErrInvalidTransition is the sentinel matched by errors.Is against the
	// detailed InvalidTransitionError.
	ErrInvalidTransition = errors.New("escrow: transition not permitted")

	errNilState  = errors.New("escrow: state not configured")
	errNilLedger = errors.New("escrow: ledger engine not configured")
)

// InvalidTransitionError reports a (state, action) pair absent from the
// transition table, including the actor role that requested it.
type InvalidTransitionError struct {
	From   EscrowStatus
	Action Action
	Role   Role
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("escrow: transition %s not permitted from %s (actor role %s)", e.Action, e.From, e.Role)
}

// Is lets errors.Is match the sentinel ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
