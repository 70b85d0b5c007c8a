package escrow

import (
	"time"

	"github.com/google/uuid"

	"trustmart/core/events"
	"trustmart/core/types"
	"trustmart/native/ledger"
)

// Role identifies the actor's relationship to the order being transitioned.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleArbiter Role = "arbiter"
	RoleSystem  Role = "system"
)

// Actor is the caller attempting a transition. Arbiter is set by the dispute
// resolver after it has verified arbitration authority.
type Actor struct {
	ID      uuid.UUID
	Arbiter bool
}

// State is the persistence surface the state machine operates against. All
// methods are expected to execute inside the caller's atomic unit so that a
// failed transition leaves no partial effect.
type State interface {
	OrderGet(id uuid.UUID) (*Order, bool, error)
	OrderPut(*Order) error
	ProductGet(id uuid.UUID) (*types.Product, bool, error)
	ProductPut(*types.Product) error
	AuditAppend(orderID uuid.UUID, from, to EscrowStatus, actor Role, at int64) error
}

// actionRoles is the authorization table consulted before the transition
// table: an actor whose role is not listed for the action is rejected with
// ErrUnauthorized regardless of the order's current status.
var actionRoles = map[Action][]Role{
	ActionPay:     {RoleBuyer},
	ActionConfirm: {RoleBuyer},
	ActionShip:    {RoleSeller},
	ActionCancel:  {RoleBuyer, RoleSeller},
	ActionDispute: {RoleBuyer, RoleSeller},
	ActionRelease: {RoleArbiter},
	ActionRefund:  {RoleArbiter},
}

type effect uint8

const (
	effectNone effect = iota
	effectHold
	effectRelease
	effectRefund
	effectUnlockProduct
)

type rule struct {
	next  EscrowStatus
	roles []Role
	fx    effect
}

// transitions is the single authoritative transition table. Any (status,
// action) pair absent here fails with InvalidTransitionError; terminal
// statuses have no outgoing rows at all.
var transitions = map[EscrowStatus]map[Action]rule{
	StatusInitiated: {
		ActionPay:    {next: StatusPaymentLocked, roles: []Role{RoleBuyer}, fx: effectHold},
		ActionCancel: {next: StatusRefunded, roles: []Role{RoleBuyer, RoleSeller}, fx: effectUnlockProduct},
	},
	StatusPaymentLocked: {
		ActionShip:    {next: StatusSellerShipped, roles: []Role{RoleSeller}},
		ActionDispute: {next: StatusDispute, roles: []Role{RoleBuyer, RoleSeller}},
	},
	StatusSellerShipped: {
		ActionConfirm: {next: StatusBuyerConfirmed, roles: []Role{RoleBuyer}},
		ActionDispute: {next: StatusDispute, roles: []Role{RoleBuyer, RoleSeller}},
	},
	StatusBuyerConfirmed: {
		ActionRelease: {next: StatusPaymentReleased, roles: []Role{RoleSystem}, fx: effectRelease},
	},
	StatusDispute: {
		ActionRelease: {next: StatusPaymentReleased, roles: []Role{RoleArbiter}, fx: effectRelease},
		ActionRefund:  {next: StatusRefunded, roles: []Role{RoleArbiter}, fx: effectRefund},
	},
}

// Engine validates and applies escrow transitions for a single order,
// invoking the ledger for fund movement and recording an audit row plus a
// lifecycle event for every committed change.
type Engine struct {
	state   State
	ledger  *ledger.Engine
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs an escrow engine bound to the supplied ledger engine.
func NewEngine(led *ledger.Engine) *Engine {
	return &Engine{
		ledger:  led,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(p events.Payload) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(p)
}

func (e *Engine) loadOrder(id uuid.UUID) (*Order, error) {
	order, ok, err := e.state.OrderGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return SanitizeOrder(order)
}

func (e *Engine) loadProduct(id uuid.UUID) (*types.Product, error) {
	product, ok, err := e.state.ProductGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || product == nil {
		return nil, ErrProductNotFound
	}
	return product.Clone(), nil
}

func roleOf(actor Actor, order *Order, product *types.Product) (Role, bool) {
	switch {
	case actor.Arbiter:
		return RoleArbiter, true
	case actor.ID == order.BuyerID:
		return RoleBuyer, true
	case actor.ID == product.SellerID:
		return RoleSeller, true
	default:
		return "", false
	}
}

func roleAllowed(allowed []Role, role Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Apply validates authorization and the transition table for (current
// status, action) and, on success, applies the ledger effect, product
// status change, order update, audit row and event emission as one unit.
// A buyer CONFIRM chains directly into the automatic system release.
func (e *Engine) Apply(orderID uuid.UUID, action Action, actor Actor) (EscrowStatus, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	if e.ledger == nil {
		return "", errNilLedger
	}
	order, err := e.loadOrder(orderID)
	if err != nil {
		return "", err
	}
	product, err := e.loadProduct(order.ProductID)
	if err != nil {
		return "", err
	}
	role, ok := roleOf(actor, order, product)
	if !ok {
		return "", ErrUnauthorized
	}
	if !roleAllowed(actionRoles[action], role) {
		return "", ErrUnauthorized
	}
	status, err := e.advance(order, product, action, role)
	if err != nil {
		return "", err
	}
	if status == StatusBuyerConfirmed {
		// Confirmed orders settle immediately; the release runs in the same
		// atomic unit under the system role.
		return e.advance(order, product, ActionRelease, RoleSystem)
	}
	return status, nil
}

func (e *Engine) advance(order *Order, product *types.Product, action Action, role Role) (EscrowStatus, error) {
	r, ok := transitions[order.Status][action]
	if !ok || !roleAllowed(r.roles, role) {
		return "", &InvalidTransitionError{From: order.Status, Action: action, Role: role}
	}
	switch r.fx {
	case effectHold:
		if err := e.ledger.Hold(order.BuyerID, order.ID, order.Amount); err != nil {
			return "", err
		}
		product.Status = types.ProductEscrowLocked
	case effectRelease:
		if err := e.ledger.Release(order.ID, product.SellerID); err != nil {
			return "", err
		}
		product.Status = types.ProductSold
	case effectRefund:
		if err := e.ledger.Refund(order.ID); err != nil {
			return "", err
		}
		product.Status = types.ProductAvailable
	case effectUnlockProduct:
		// Cancellation before payment lock: no funds have moved.
		product.Status = types.ProductAvailable
	}
	from := order.Status
	now := e.now()
	order.Status = r.next
	order.UpdatedAt = now
	if err := e.state.OrderPut(order); err != nil {
		return "", err
	}
	if err := e.state.ProductPut(product); err != nil {
		return "", err
	}
	if err := e.state.AuditAppend(order.ID, from, r.next, role, now); err != nil {
		return "", err
	}
	e.emit(events.OrderTransitioned{
		OrderID:    order.ID,
		FromStatus: string(from),
		ToStatus:   string(r.next),
		Actor:      string(role),
		Timestamp:  now,
	})
	if r.next.Terminal() {
		e.emit(events.OrderSettled{OrderID: order.ID, Status: string(r.next), Timestamp: now})
	}
	return r.next, nil
}

// Allowed reports whether the transition table contains a row for the given
// status and action. It performs no authorization check.
func Allowed(status EscrowStatus, action Action) bool {
	_, ok := transitions[status][action]
	return ok
}
