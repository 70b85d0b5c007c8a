package types

import (
	"math/big"

	"github.com/google/uuid"
)

// ProductStatus tracks a listing's availability relative to the order
// lifecycle. PENDING means an order has been initiated but payment is not
// yet locked; ESCROW_LOCKED means buyer funds are held for the listing.
type ProductStatus string

const (
	ProductAvailable    ProductStatus = "AVAILABLE"
	ProductPending      ProductStatus = "PENDING"
	ProductEscrowLocked ProductStatus = "ESCROW_LOCKED"
	ProductSold         ProductStatus = "SOLD"
)

// Valid reports whether the status value is within the supported range.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductAvailable, ProductPending, ProductEscrowLocked, ProductSold:
		return true
	default:
		return false
	}
}

// Product is a marketplace listing. Price is denominated in minor units and
// snapshotted onto an order at initiation; changing it later never affects
// orders already in flight.
type Product struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Title       string
	Description string
	Category    string
	Condition   string
	Location    string
	Price       *big.Int
	Status      ProductStatus
	CreatedAt   int64
}

// Clone returns a deep copy of the product so callers can safely mutate the
// copy without affecting the stored instance.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}
