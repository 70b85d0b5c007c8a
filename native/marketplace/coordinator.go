package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"trustmart/core/events"
	"trustmart/core/types"
	"trustmart/native/common"
	"trustmart/native/escrow"
	"trustmart/native/ledger"
	"trustmart/native/reputation"
)

const moduleName = "marketplace"

var (
	// ErrProductUnavailable rejects initiation against a listing that is not
	// AVAILABLE.
	ErrProductUnavailable = errors.New("marketplace: product not available")
	// ErrProductLocked rejects an operation that would create a second
	// concurrent non-terminal order for the same product.
	ErrProductLocked = errors.New("marketplace: product has an active order")
	// ErrNotFound reports a missing order, product or user.
	ErrNotFound = errors.New("marketplace: not found")

	errNilStore = errors.New("marketplace: store not configured")
)

// Outcome is an arbitration verdict on a disputed order.
type Outcome string

const (
	OutcomeRelease Outcome = "RELEASE"
	OutcomeRefund  Outcome = "REFUND"
)

// ParseOutcome normalises an outcome string to its canonical form.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	switch o {
	case OutcomeRelease, OutcomeRefund:
		return o, true
	default:
		return "", false
	}
}

// State is the transactional view handed to the coordinator by the store.
// It aggregates the surfaces of every engine that participates in a single
// atomic unit.
type State interface {
	ledger.State
	escrow.State
	reputation.State
	ActiveOrderGet(productID uuid.UUID) (uuid.UUID, bool, error)
	ActiveOrderPut(productID, orderID uuid.UUID) error
	ActiveOrderDelete(productID uuid.UUID) error
}

// Store runs a function against a consistent state view; either every write
// performed inside fn commits, or none do.
type Store interface {
	Atomically(ctx context.Context, fn func(State) error) error
}

// Notifier is informed of every terminal transition. Implementations must
// tolerate being called after the transaction has committed; delivery
// failures do not roll settlements back.
type Notifier interface {
	OrderSettled(ctx context.Context, orderID uuid.UUID, status escrow.EscrowStatus)
}

// NoopNotifier discards every notification.
type NoopNotifier struct{}

// OrderSettled implements the Notifier interface.
func (NoopNotifier) OrderSettled(context.Context, uuid.UUID, escrow.EscrowStatus) {}

// Config carries the collaborators required to construct a Coordinator.
type Config struct {
	Store    Store
	Emitter  events.Emitter
	Notifier Notifier
	Pauses   common.PauseView
	Trust    reputation.Config
	Logger   *slog.Logger
}

// Coordinator is the single entry point for order mutations. It owns the
// Product-to-Order linkage, serialises concurrent transitions per order and
// per product, and delegates transition validation to the escrow engine.
type Coordinator struct {
	store    Store
	emitter  events.Emitter
	notifier Notifier
	pauses   common.PauseView
	trust    reputation.Config
	logger   *slog.Logger
	locks    *common.KeyedMutex
	nowFn    func() int64
}

// New constructs a coordinator from the supplied configuration.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		store:    cfg.Store,
		emitter:  cfg.Emitter,
		notifier: cfg.Notifier,
		pauses:   cfg.Pauses,
		trust:    cfg.Trust,
		logger:   cfg.Logger,
		locks:    common.NewKeyedMutex(),
		nowFn:    func() int64 { return time.Now().Unix() },
	}
	if c.emitter == nil {
		c.emitter = events.NoopEmitter{}
	}
	if c.notifier == nil {
		c.notifier = NoopNotifier{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.trust == (reputation.Config{}) {
		c.trust = reputation.DefaultConfig()
	}
	return c
}

// SetNowFunc overrides the time source, primarily used in tests.
func (c *Coordinator) SetNowFunc(now func() int64) {
	if now == nil {
		c.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	c.nowFn = now
}

func (c *Coordinator) now() int64 {
	if c == nil || c.nowFn == nil {
		return time.Now().Unix()
	}
	return c.nowFn()
}

// engines builds the per-transaction engine set bound to the supplied state
// view. Engines are cheap value-like structs; constructing them inside the
// atomic unit keeps every read and write on the same transaction.
func (c *Coordinator) engines(st State) (*escrow.Engine, *reputation.Engine) {
	led := ledger.NewEngine()
	led.SetState(st)
	led.SetEmitter(c.emitter)
	led.SetNowFunc(c.nowFn)

	esc := escrow.NewEngine(led)
	esc.SetState(st)
	esc.SetEmitter(c.emitter)
	esc.SetNowFunc(c.nowFn)

	rep := reputation.NewEngine(c.trust)
	rep.SetState(st)
	return esc, rep
}

// Initiate creates an INITIATED order for the product with the price
// snapshotted as the order amount, and marks the listing PENDING. A product
// with any non-terminal order is rejected with ErrProductLocked.
func (c *Coordinator) Initiate(ctx context.Context, productID, buyerID uuid.UUID) (uuid.UUID, error) {
	if c == nil || c.store == nil {
		return uuid.Nil, errNilStore
	}
	if err := common.Guard(c.pauses, moduleName); err != nil {
		return uuid.Nil, err
	}
	unlock := c.locks.Lock("product:" + productID.String())
	defer unlock()

	orderID := uuid.New()
	now := c.now()
	var amount *big.Int
	err := c.store.Atomically(ctx, func(st State) error {
		product, ok, err := st.ProductGet(productID)
		if err != nil {
			return err
		}
		if !ok || product == nil {
			return fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		if _, active, err := st.ActiveOrderGet(productID); err != nil {
			return err
		} else if active {
			return fmt.Errorf("%w: product %s", ErrProductLocked, productID)
		}
		if product.Status != types.ProductAvailable {
			return fmt.Errorf("%w: product %s is %s", ErrProductUnavailable, productID, product.Status)
		}
		if _, ok, err := st.UserGet(buyerID); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: user %s", ErrNotFound, buyerID)
		}
		order := &escrow.Order{
			ID:        orderID,
			BuyerID:   buyerID,
			ProductID: productID,
			Amount:    product.Price,
			Status:    escrow.StatusInitiated,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sanitized, err := escrow.SanitizeOrder(order)
		if err != nil {
			return err
		}
		if err := st.OrderPut(sanitized); err != nil {
			return err
		}
		amount = sanitized.Amount
		product = product.Clone()
		product.Status = types.ProductPending
		if err := st.ProductPut(product); err != nil {
			return err
		}
		return st.ActiveOrderPut(productID, orderID)
	})
	if err != nil {
		return uuid.Nil, err
	}
	c.emitter.Emit(events.OrderInitiated{
		OrderID:   orderID,
		ProductID: productID,
		BuyerID:   buyerID,
		Amount:    amount,
		Timestamp: now,
	})
	return orderID, nil
}

// advanceActions are the transitions callers may request through Advance.
// Arbitration outcomes travel through ResolveDispute only.
var advanceActions = map[escrow.Action]bool{
	escrow.ActionPay:     true,
	escrow.ActionShip:    true,
	escrow.ActionConfirm: true,
	escrow.ActionDispute: true,
	escrow.ActionCancel:  true,
}

// Advance applies a buyer or seller action to the order. The transition,
// its ledger effect and the product status change commit as one unit; on
// failure the error is returned unchanged and no state is modified.
func (c *Coordinator) Advance(ctx context.Context, orderID uuid.UUID, action escrow.Action, actorID uuid.UUID) (escrow.EscrowStatus, error) {
	if c == nil || c.store == nil {
		return "", errNilStore
	}
	if err := common.Guard(c.pauses, moduleName); err != nil {
		return "", err
	}
	if !advanceActions[action] {
		return "", escrow.ErrUnauthorized
	}
	unlock := c.locks.Lock("order:" + orderID.String())
	defer unlock()

	var (
		status    escrow.EscrowStatus
		productID uuid.UUID
	)
	err := c.store.Atomically(ctx, func(st State) error {
		esc, _ := c.engines(st)
		next, err := esc.Apply(orderID, action, escrow.Actor{ID: actorID})
		if err != nil {
			return err
		}
		status = next
		if next.Terminal() {
			order, ok, err := st.OrderGet(orderID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
			}
			productID = order.ProductID
			if err := st.ActiveOrderDelete(productID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", c.classify(err, orderID)
	}
	if status.Terminal() {
		c.notifier.OrderSettled(ctx, orderID, status)
	}
	return status, nil
}

// ResolveDispute applies an arbitration verdict to an order in DISPUTE.
// Trust scores of both parties are adjusted in the same atomic unit as the
// settling transition.
func (c *Coordinator) ResolveDispute(ctx context.Context, orderID uuid.UUID, outcome Outcome, resolverID uuid.UUID) (escrow.EscrowStatus, error) {
	if c == nil || c.store == nil {
		return "", errNilStore
	}
	if err := common.Guard(c.pauses, moduleName); err != nil {
		return "", err
	}
	var action escrow.Action
	switch outcome {
	case OutcomeRelease:
		action = escrow.ActionRelease
	case OutcomeRefund:
		action = escrow.ActionRefund
	default:
		return "", fmt.Errorf("marketplace: invalid dispute outcome %q", outcome)
	}
	unlock := c.locks.Lock("order:" + orderID.String())
	defer unlock()

	var status escrow.EscrowStatus
	now := c.now()
	err := c.store.Atomically(ctx, func(st State) error {
		resolver, ok, err := st.UserGet(resolverID)
		if err != nil {
			return err
		}
		if !ok || !resolver.Arbiter() {
			return escrow.ErrUnauthorized
		}
		order, ok, err := st.OrderGet(orderID)
		if err != nil {
			return err
		}
		if !ok {
			return escrow.ErrOrderNotFound
		}
		product, ok, err := st.ProductGet(order.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			return escrow.ErrProductNotFound
		}
		esc, rep := c.engines(st)
		next, err := esc.Apply(orderID, action, escrow.Actor{ID: resolverID, Arbiter: true})
		if err != nil {
			return err
		}
		status = next
		winner, loser := order.BuyerID, product.SellerID
		if outcome == OutcomeRelease {
			winner, loser = product.SellerID, order.BuyerID
		}
		if err := rep.ApplyDisputeOutcome(winner, loser); err != nil {
			return err
		}
		return st.ActiveOrderDelete(order.ProductID)
	})
	if err != nil {
		return "", c.classify(err, orderID)
	}
	c.emitter.Emit(events.DisputeResolved{
		OrderID:    orderID,
		Outcome:    string(outcome),
		ResolverID: resolverID,
		Timestamp:  now,
	})
	c.notifier.OrderSettled(ctx, orderID, status)
	return status, nil
}

// classify surfaces ledger invariant breaches loudly before returning the
// error to the caller. A missing hold at the release step means the
// transition table was bypassed somewhere; it must never happen in normal
// operation.
func (c *Coordinator) classify(err error, orderID uuid.UUID) error {
	if errors.Is(err, ledger.ErrHoldNotFound) {
		c.logger.Error("ledger hold missing during settlement",
			slog.String("order_id", orderID.String()),
			slog.String("invariant", "hold-before-release"),
			slog.Any("error", err),
		)
	}
	return err
}
