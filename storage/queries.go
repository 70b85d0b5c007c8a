package storage

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trustmart/core/types"
	"trustmart/native/escrow"
	"trustmart/native/ledger"
)

// ErrDuplicatePhone rejects registration with an already-registered phone
// number.
var ErrDuplicatePhone = errors.New("storage: phone number already in use")

// CreateUser persists a new user together with its password hash.
func (s *Store) CreateUser(ctx context.Context, user *types.User, passwordHash string) error {
	if user == nil {
		return errors.New("storage: nil user")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("phone = ?", user.Phone).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicatePhone
	}
	row := User{
		ID:           user.ID,
		Name:         user.Name,
		Phone:        user.Phone,
		Email:        user.Email,
		PasswordHash: passwordHash,
		Roles:        joinRoles(user.Roles),
		TrustScore:   user.TrustScore,
		Verified:     user.Verified,
		CreatedAt:    unixTime(user.CreatedAt),
		UpdatedAt:    time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// UserByPhone loads a user and its password hash for login.
func (s *Store) UserByPhone(ctx context.Context, phone string) (*types.User, string, error) {
	var row User
	if err := s.db.WithContext(ctx).First(&row, "phone = ?", phone).Error; err != nil {
		return nil, "", err
	}
	return toDomainUser(&row), row.PasswordHash, nil
}

// UserByID loads a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	var row User
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return toDomainUser(&row), nil
}

// CreateProduct persists a new listing in AVAILABLE status.
func (s *Store) CreateProduct(ctx context.Context, product *types.Product) error {
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
	return s.db.WithContext(ctx).Create(&row).Error
}

// ProductByID loads a listing by primary key.
func (s *Store) ProductByID(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	var row Product
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return toDomainProduct(&row)
}

// ListAvailableProducts returns AVAILABLE listings, optionally filtered by
// category.
func (s *Store) ListAvailableProducts(ctx context.Context, category string) ([]*types.Product, error) {
	q := s.db.WithContext(ctx).Where("status = ?", string(types.ProductAvailable))
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var rows []Product
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]*types.Product, 0, len(rows))
	for i := range rows {
		p, err := toDomainProduct(&rows[i])
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// OrderByID loads an order by primary key.
func (s *Store) OrderByID(ctx context.Context, id uuid.UUID) (*escrow.Order, error) {
	var row Order
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return toDomainOrder(&row)
}

// OrdersByBuyer returns the buyer's orders, newest first.
func (s *Store) OrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*escrow.Order, error) {
	var rows []Order
	if err := s.db.WithContext(ctx).Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows)
}

// OrdersBySeller returns orders against the seller's listings, newest
// first.
func (s *Store) OrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*escrow.Order, error) {
	var rows []Order
	err := s.db.WithContext(ctx).
		Joins("JOIN products ON products.id = orders.product_id").
		Where("products.seller_id = ?", sellerID).
		Order("orders.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainOrders(rows)
}

func toDomainOrders(rows []Order) ([]*escrow.Order, error) {
	orders := make([]*escrow.Order, 0, len(rows))
	for i := range rows {
		o, err := toDomainOrder(&rows[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Wallet returns the available balance and journal for a user.
func (s *Store) Wallet(ctx context.Context, userID uuid.UUID) (*big.Int, []*ledger.Entry, error) {
	var row Account
	balance := big.NewInt(0)
	if err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	} else {
		parsed, err := parseAmount(row.Available)
		if err != nil {
			return nil, nil, err
		}
		balance = parsed
	}
	var entryRows []LedgerEntry
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Limit(100).Find(&entryRows).Error; err != nil {
		return nil, nil, err
	}
	entries := make([]*ledger.Entry, 0, len(entryRows))
	for i := range entryRows {
		e, err := toDomainEntry(&entryRows[i])
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
	}
	return balance, entries, nil
}

// Deposit credits a user's available balance outside the escrow flow. It
// backs operational funding tooling; the movement is journalled with a nil
// order id.
func (s *Store) Deposit(ctx context.Context, userID uuid.UUID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := &txState{tx: tx}
		account, ok, err := st.AccountGet(userID)
		if err != nil {
			return err
		}
		if !ok {
			account = &ledger.Account{UserID: userID, Available: big.NewInt(0)}
		}
		account.Available = new(big.Int).Add(account.Available, amount)
		if err := st.AccountPut(account); err != nil {
			return err
		}
		return st.JournalAppend(&ledger.Entry{
			UserID:    userID,
			OrderID:   uuid.Nil,
			Delta:     new(big.Int).Set(amount),
			Balance:   new(big.Int).Set(account.Available),
			Timestamp: time.Now().Unix(),
		})
	})
}

// AuditTrail returns the committed transition history for an order.
func (s *Store) AuditTrail(ctx context.Context, orderID uuid.UUID) ([]AuditEvent, error) {
	var rows []AuditEvent
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: load audit trail: %w", err)
	}
	return rows, nil
}
