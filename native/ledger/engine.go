package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"trustmart/core/events"
)

var (
	// ErrInvalidAmount rejects holds for zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrInsufficientFunds rejects holds exceeding the available balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrHoldNotFound signals a release or refund without a prior hold. This
	// is an invariant breach, not an expected-path rejection: the escrow
	// transition table must guarantee a hold exists before funds move out.
	ErrHoldNotFound = errors.New("ledger: no active hold for order")
	// ErrHoldExists rejects a second hold for the same order.
	ErrHoldExists = errors.New("ledger: hold already exists for order")

	errNilState = errors.New("ledger: state not configured")
)

// State is the persistence surface the ledger engine operates against. All
// methods are expected to execute inside the caller's atomic unit.
type State interface {
	AccountGet(userID uuid.UUID) (*Account, bool, error)
	AccountPut(*Account) error
	HoldGet(orderID uuid.UUID) (*Hold, bool, error)
	HoldPut(*Hold) error
	HoldDelete(orderID uuid.UUID) error
	JournalAppend(*Entry) error
}

// Engine owns per-user wallet balances and guarantees atomic movement of
// funds between available balances and order holds. Serialisation across
// concurrent callers is the responsibility of the surrounding store
// transaction; the engine itself only enforces balance arithmetic.
type Engine struct {
	state   State
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a ledger engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
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

func ensureAccount(acc *Account, userID uuid.UUID) *Account {
	if acc == nil {
		return &Account{UserID: userID, Available: big.NewInt(0)}
	}
	if acc.Available == nil {
		acc.Available = big.NewInt(0)
	}
	return acc
}

// Balance returns the available balance for the user. Unknown users report
// a zero balance.
func (e *Engine) Balance(userID uuid.UUID) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, ok, err := e.state.AccountGet(userID)
	if err != nil {
		return nil, err
	}
	if !ok || acc == nil || acc.Available == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(acc.Available), nil
}

// Hold earmarks amount from the user's available balance against the order.
// The debit and the hold record are written as one unit; the journal gains
// a negative-delta entry.
func (e *Engine) Hold(userID, orderID uuid.UUID, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, ok, err := e.state.HoldGet(orderID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrHoldExists, orderID)
	}
	acc, ok, err := e.state.AccountGet(userID)
	if err != nil {
		return err
	}
	if !ok {
		acc = nil
	}
	acc = ensureAccount(acc, userID)
	if acc.Available.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, acc.Available, amount)
	}
	acc.Available = new(big.Int).Sub(acc.Available, amount)
	if err := e.state.AccountPut(acc); err != nil {
		return err
	}
	now := e.now()
	hold := &Hold{OrderID: orderID, UserID: userID, Amount: new(big.Int).Set(amount), CreatedAt: now}
	if err := e.state.HoldPut(hold); err != nil {
		return err
	}
	entry := &Entry{
		UserID:    userID,
		OrderID:   orderID,
		Delta:     new(big.Int).Neg(amount),
		Balance:   new(big.Int).Set(acc.Available),
		Timestamp: now,
	}
	if err := e.state.JournalAppend(entry); err != nil {
		return err
	}
	e.emit(events.LedgerMovement{
		Kind:      events.TypeLedgerHold,
		UserID:    userID,
		OrderID:   orderID,
		Delta:     entry.Delta,
		Balance:   entry.Balance,
		Timestamp: now,
	})
	return nil
}

// Release removes the hold associated with the order and credits the
// recipient's available balance by the held amount.
func (e *Engine) Release(orderID, toUserID uuid.UUID) error {
	return e.settle(orderID, &toUserID, events.TypeLedgerRelease)
}

// Refund removes the hold and credits the original payer.
func (e *Engine) Refund(orderID uuid.UUID) error {
	return e.settle(orderID, nil, events.TypeLedgerRefund)
}

func (e *Engine) settle(orderID uuid.UUID, recipient *uuid.UUID, kind string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	hold, ok, err := e.state.HoldGet(orderID)
	if err != nil {
		return err
	}
	if !ok || hold == nil {
		return fmt.Errorf("%w: %s", ErrHoldNotFound, orderID)
	}
	amount := hold.Amount
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("ledger: corrupt hold amount for order %s", orderID)
	}
	to := hold.UserID
	if recipient != nil {
		to = *recipient
	}
	acc, found, err := e.state.AccountGet(to)
	if err != nil {
		return err
	}
	if !found {
		acc = nil
	}
	acc = ensureAccount(acc, to)
	acc.Available = new(big.Int).Add(acc.Available, amount)
	if err := e.state.AccountPut(acc); err != nil {
		return err
	}
	if err := e.state.HoldDelete(orderID); err != nil {
		return err
	}
	now := e.now()
	entry := &Entry{
		UserID:    to,
		OrderID:   orderID,
		Delta:     new(big.Int).Set(amount),
		Balance:   new(big.Int).Set(acc.Available),
		Timestamp: now,
	}
	if err := e.state.JournalAppend(entry); err != nil {
		return err
	}
	e.emit(events.LedgerMovement{
		Kind:      kind,
		UserID:    to,
		OrderID:   orderID,
		Delta:     entry.Delta,
		Balance:   entry.Balance,
		Timestamp: now,
	})
	return nil
}
