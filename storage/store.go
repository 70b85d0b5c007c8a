package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trustmart/core/types"
	"trustmart/native/escrow"
	"trustmart/native/ledger"
	"trustmart/native/marketplace"
)

// Store exposes the settlement state through GORM. Mutations flow through
// Atomically so that an order transition, its ledger effect and the product
// status change commit or roll back as one unit.
type Store struct {
	db *gorm.DB
}

// NewStore wraps the supplied database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and middleware.
func (s *Store) DB() *gorm.DB { return s.db }

// Atomically implements marketplace.Store. Reads inside the transaction
// take row-level update locks so concurrent transitions on the same order
// or product serialise at the database.
func (s *Store) Atomically(ctx context.Context, fn func(marketplace.State) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txState{tx: tx})
	})
}

// txState is the transaction-scoped view handed to the engines.
type txState struct {
	tx *gorm.DB
}

func (t *txState) locked() *gorm.DB {
	return t.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *txState) UserGet(id uuid.UUID) (*types.User, bool, error) {
	var row User
	if err := t.locked().First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return toDomainUser(&row), true, nil
}

func (t *txState) UserPut(user *types.User) error {
	if user == nil {
		return errors.New("storage: nil user")
	}
	return t.tx.Model(&User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"name":        user.Name,
		"email":       user.Email,
		"roles":       joinRoles(user.Roles),
		"trust_score": user.TrustScore,
		"verified":    user.Verified,
		"updated_at":  time.Now().UTC(),
	}).Error
}

func (t *txState) ProductGet(id uuid.UUID) (*types.Product, bool, error) {
	var row Product
	if err := t.locked().First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	product, err := toDomainProduct(&row)
	if err != nil {
		return nil, false, err
	}
	return product, true, nil
}

func (t *txState) ProductPut(product *types.Product) error {
	if product == nil {
		return errors.New("storage: nil product")
	}
	row := Product{
		ID:          product.ID,
		SellerID:    product.SellerID,
		Title:       product.Title,
		Description: product.Description,
		Category:    product.Category,
		Condition:   product.Condition,
		Location:    product.Location,
		Price:       formatAmount(product.Price),
		Status:      string(product.Status),
		CreatedAt:   unixTime(product.CreatedAt),
		UpdatedAt:   time.Now().UTC(),
	}
	return t.tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (t *txState) OrderGet(id uuid.UUID) (*escrow.Order, bool, error) {
	var row Order
	if err := t.locked().First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	order, err := toDomainOrder(&row)
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

func (t *txState) OrderPut(order *escrow.Order) error {
	if order == nil {
		return errors.New("storage: nil order")
	}
	row := Order{
		ID:        order.ID,
		BuyerID:   order.BuyerID,
		ProductID: order.ProductID,
		Amount:    formatAmount(order.Amount),
		Status:    string(order.Status),
		CreatedAt: unixTime(order.CreatedAt),
		UpdatedAt: unixTime(order.UpdatedAt),
	}
	return t.tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (t *txState) AccountGet(userID uuid.UUID) (*ledger.Account, bool, error) {
	var row Account
	if err := t.locked().First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	account, err := toDomainAccount(&row)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

func (t *txState) AccountPut(account *ledger.Account) error {
	if account == nil {
		return errors.New("storage: nil account")
	}
	row := Account{
		UserID:    account.UserID,
		Available: formatAmount(account.Available),
		UpdatedAt: time.Now().UTC(),
	}
	return t.tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (t *txState) HoldGet(orderID uuid.UUID) (*ledger.Hold, bool, error) {
	var row Hold
	if err := t.locked().First(&row, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	hold, err := toDomainHold(&row)
	if err != nil {
		return nil, false, err
	}
	return hold, true, nil
}

func (t *txState) HoldPut(hold *ledger.Hold) error {
	if hold == nil {
		return errors.New("storage: nil hold")
	}
	row := Hold{
		OrderID:   hold.OrderID,
		UserID:    hold.UserID,
		Amount:    formatAmount(hold.Amount),
		CreatedAt: unixTime(hold.CreatedAt),
	}
	return t.tx.Create(&row).Error
}

func (t *txState) HoldDelete(orderID uuid.UUID) error {
	return t.tx.Delete(&Hold{}, "order_id = ?", orderID).Error
}

func (t *txState) JournalAppend(entry *ledger.Entry) error {
	if entry == nil {
		return errors.New("storage: nil journal entry")
	}
	row := LedgerEntry{
		UserID:    entry.UserID,
		OrderID:   entry.OrderID,
		Delta:     formatAmount(entry.Delta),
		Balance:   formatAmount(entry.Balance),
		CreatedAt: unixTime(entry.Timestamp),
	}
	return t.tx.Create(&row).Error
}

func (t *txState) AuditAppend(orderID uuid.UUID, from, to escrow.EscrowStatus, actor escrow.Role, at int64) error {
	row := AuditEvent{
		OrderID:    orderID,
		FromStatus: string(from),
		ToStatus:   string(to),
		Actor:      string(actor),
		CreatedAt:  unixTime(at),
	}
	return t.tx.Create(&row).Error
}

func (t *txState) ActiveOrderGet(productID uuid.UUID) (uuid.UUID, bool, error) {
	var row ActiveOrder
	if err := t.locked().First(&row, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return row.OrderID, true, nil
}

func (t *txState) ActiveOrderPut(productID, orderID uuid.UUID) error {
	row := ActiveOrder{ProductID: productID, OrderID: orderID, CreatedAt: time.Now().UTC()}
	return t.tx.Create(&row).Error
}

func (t *txState) ActiveOrderDelete(productID uuid.UUID) error {
	return t.tx.Delete(&ActiveOrder{}, "product_id = ?", productID).Error
}
