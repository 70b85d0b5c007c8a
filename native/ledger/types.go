package ledger

import (
	"math/big"

	"github.com/google/uuid"
)

// Account holds the spendable wallet balance for one user. Funds earmarked
// by a hold are not part of Available.
type Account struct {
	UserID    uuid.UUID
	Available *big.Int
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Available != nil {
		clone.Available = new(big.Int).Set(a.Available)
	} else {
		clone.Available = big.NewInt(0)
	}
	return &clone
}

// Hold is an earmarked, non-spendable portion of a buyer's balance tied to
// exactly one order. At most one active hold exists per order.
type Hold struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	Amount    *big.Int
	CreatedAt int64
}

// Clone returns a deep copy of the hold.
func (h *Hold) Clone() *Hold {
	if h == nil {
		return nil
	}
	clone := *h
	if h.Amount != nil {
		clone.Amount = new(big.Int).Set(h.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Entry is an immutable journal record appended on every successful ledger
// operation. Entries are never mutated or deleted.
type Entry struct {
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Delta     *big.Int
	Balance   *big.Int
	Timestamp int64
}

// Clone returns a deep copy of the journal entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Delta != nil {
		clone.Delta = new(big.Int).Set(e.Delta)
	}
	if e.Balance != nil {
		clone.Balance = new(big.Int).Set(e.Balance)
	}
	return &clone
}
