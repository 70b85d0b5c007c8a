package escrow

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// EscrowStatus represents the lifecycle states of a single order's escrow.
type EscrowStatus string

const (
	StatusInitiated       EscrowStatus = "INITIATED"
	StatusPaymentLocked   EscrowStatus = "PAYMENT_LOCKED"
	StatusSellerShipped   EscrowStatus = "SELLER_SHIPPED"
	StatusBuyerConfirmed  EscrowStatus = "BUYER_CONFIRMED"
	StatusPaymentReleased EscrowStatus = "PAYMENT_RELEASED"
	StatusDispute         EscrowStatus = "DISPUTE"
	StatusRefunded        EscrowStatus = "REFUNDED"
)

// Valid reports whether the status value is within the supported range.
func (s EscrowStatus) Valid() bool {
	switch s {
	case StatusInitiated, StatusPaymentLocked, StatusSellerShipped,
		StatusBuyerConfirmed, StatusPaymentReleased, StatusDispute, StatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s EscrowStatus) Terminal() bool {
	return s == StatusPaymentReleased || s == StatusRefunded
}

// Action names a transition trigger on an order.
type Action string

const (
	ActionPay     Action = "PAY"
	ActionCancel  Action = "CANCEL"
	ActionShip    Action = "SHIP"
	ActionConfirm Action = "CONFIRM"
	ActionDispute Action = "DISPUTE"
	ActionRelease Action = "RELEASE"
	ActionRefund  Action = "REFUND"
)

// ParseAction normalises an action string to its canonical uppercase form.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionPay, ActionCancel, ActionShip, ActionConfirm, ActionDispute, ActionRelease, ActionRefund:
		return a, true
	default:
		return "", false
	}
}

// Order captures the escrow agreement between a buyer and a listing. Amount
// is copied from the product price at creation time and never changes
// afterwards; it equals the ledger hold placed at PAYMENT_LOCKED.
type Order struct {
	ID        uuid.UUID
	BuyerID   uuid.UUID
	ProductID uuid.UUID
	Amount    *big.Int
	Status    EscrowStatus
	CreatedAt int64
	UpdatedAt int64
}

// Clone returns a deep copy of the order so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SanitizeOrder validates the supplied order definition and returns a cloned
// instance with a non-nil amount. The function does not mutate the original
// value.
func SanitizeOrder(o *Order) (*Order, error) {
	if o == nil {
		return nil, fmt.Errorf("escrow: nil order")
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: order amount must be positive")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid order status %q", clone.Status)
	}
	if clone.BuyerID == uuid.Nil {
		return nil, fmt.Errorf("escrow: order buyer required")
	}
	if clone.ProductID == uuid.Nil {
		return nil, fmt.Errorf("escrow: order product required")
	}
	return clone, nil
}
