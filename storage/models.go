package storage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User persists marketplace participants. Roles are stored as a comma
// separated list of role names.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"size:128"`
	Phone        string    `gorm:"uniqueIndex;size:32"`
	Email        string    `gorm:"index;size:128"`
	PasswordHash string    `gorm:"size:128"`
	Roles        string    `gorm:"size:128"`
	TrustScore   float64   `gorm:"not null"`
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Product persists listings. Price is a decimal string in minor units.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SellerID    uuid.UUID `gorm:"type:uuid;index"`
	Title       string    `gorm:"size:256"`
	Description string    `gorm:"type:text"`
	Category    string    `gorm:"size:64;index"`
	Condition   string    `gorm:"size:64"`
	Location    string    `gorm:"size:128"`
	Price       string    `gorm:"size:64;not null"`
	Status      string    `gorm:"size:32;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order persists escrow orders across their lifecycle. Rows are never
// deleted; they only progress to a terminal status.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BuyerID   uuid.UUID `gorm:"type:uuid;index"`
	ProductID uuid.UUID `gorm:"type:uuid;index"`
	Amount    string    `gorm:"size:64;not null"`
	Status    string    `gorm:"size:32;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account persists the spendable wallet balance per user.
type Account struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Available string    `gorm:"size:64;not null"`
	UpdatedAt time.Time
}

// Hold persists the active escrow hold per order. A row exists only while
// funds are earmarked.
type Hold struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	Amount    string    `gorm:"size:64;not null"`
	CreatedAt time.Time
}

// LedgerEntry is the append-only wallet journal.
type LedgerEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	OrderID   uuid.UUID `gorm:"type:uuid;index"`
	Delta     string    `gorm:"size:64;not null"`
	Balance   string    `gorm:"size:64;not null"`
	CreatedAt time.Time
}

// ActiveOrder indexes the single non-terminal order per product.
type ActiveOrder struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CreatedAt time.Time
}

// AuditEvent records every committed escrow transition for the audit sink.
type AuditEvent struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	OrderID    uuid.UUID `gorm:"type:uuid;index"`
	FromStatus string    `gorm:"size:32"`
	ToStatus   string    `gorm:"size:32"`
	Actor      string    `gorm:"size:32"`
	CreatedAt  time.Time
}

// IdempotencyKey stores request idempotency metadata for the gateway.
type IdempotencyKey struct {
	Key       string `gorm:"primaryKey;size:128"`
	RequestID string `gorm:"size:64"`
	Method    string `gorm:"size:8"`
	Path      string `gorm:"size:255"`
	Status    int
	Response  string `gorm:"type:text"`
	CreatedAt time.Time
}

// AutoMigrate performs all schema migrations for the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Product{},
		&Order{},
		&Account{},
		&Hold{},
		&LedgerEntry{},
		&ActiveOrder{},
		&AuditEvent{},
		&IdempotencyKey{},
	)
}
