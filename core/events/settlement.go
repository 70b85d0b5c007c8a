package events

import (
	"math/big"
	"strconv"

	"github.com/google/uuid"
)

const (
	TypeOrderInitiated    = "order.initiated"
	TypeOrderTransitioned = "order.transitioned"
	TypeOrderSettled      = "order.settled"
	TypeDisputeResolved   = "order.dispute.resolved"
	TypeLedgerHold        = "ledger.hold"
	TypeLedgerRelease     = "ledger.release"
	TypeLedgerRefund      = "ledger.refund"
)

// OrderInitiated is emitted when the coordinator creates a new order for a
// listing.
type OrderInitiated struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	BuyerID   uuid.UUID
	Amount    *big.Int
	Timestamp int64
}

func (OrderInitiated) EventType() string { return TypeOrderInitiated }

func (e OrderInitiated) Event() *Event {
	return &Event{
		Type: TypeOrderInitiated,
		Attributes: map[string]string{
			"orderId":   e.OrderID.String(),
			"productId": e.ProductID.String(),
			"buyerId":   e.BuyerID.String(),
			"amount":    formatAmount(e.Amount),
			"timestamp": formatInt(e.Timestamp),
		},
	}
}

// OrderTransitioned is the audit tuple emitted for every committed escrow
// state change.
type OrderTransitioned struct {
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	Actor      string
	Timestamp  int64
}

func (OrderTransitioned) EventType() string { return TypeOrderTransitioned }

func (e OrderTransitioned) Event() *Event {
	return &Event{
		Type: TypeOrderTransitioned,
		Attributes: map[string]string{
			"orderId":   e.OrderID.String(),
			"from":      e.FromStatus,
			"to":        e.ToStatus,
			"actor":     e.Actor,
			"timestamp": formatInt(e.Timestamp),
		},
	}
}

// OrderSettled is emitted once an order reaches a terminal status.
type OrderSettled struct {
	OrderID   uuid.UUID
	Status    string
	Timestamp int64
}

func (OrderSettled) EventType() string { return TypeOrderSettled }

func (e OrderSettled) Event() *Event {
	return &Event{
		Type: TypeOrderSettled,
		Attributes: map[string]string{
			"orderId":   e.OrderID.String(),
			"status":    e.Status,
			"timestamp": formatInt(e.Timestamp),
		},
	}
}

// DisputeResolved records the arbitration outcome applied to a disputed
// order.
type DisputeResolved struct {
	OrderID    uuid.UUID
	Outcome    string
	ResolverID uuid.UUID
	Timestamp  int64
}

func (DisputeResolved) EventType() string { return TypeDisputeResolved }

func (e DisputeResolved) Event() *Event {
	return &Event{
		Type: TypeDisputeResolved,
		Attributes: map[string]string{
			"orderId":   e.OrderID.String(),
			"outcome":   e.Outcome,
			"resolver":  e.ResolverID.String(),
			"timestamp": formatInt(e.Timestamp),
		},
	}
}

// LedgerMovement is emitted alongside every successful ledger operation.
type LedgerMovement struct {
	Kind      string
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Delta     *big.Int
	Balance   *big.Int
	Timestamp int64
}

func (e LedgerMovement) EventType() string { return e.Kind }

func (e LedgerMovement) Event() *Event {
	return &Event{
		Type: e.Kind,
		Attributes: map[string]string{
			"userId":    e.UserID.String(),
			"orderId":   e.OrderID.String(),
			"delta":     formatAmount(e.Delta),
			"balance":   formatAmount(e.Balance),
			"timestamp": formatInt(e.Timestamp),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }
