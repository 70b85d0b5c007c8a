package storage

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"trustmart/core/types"
	"trustmart/native/escrow"
	"trustmart/native/ledger"
)

func parseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("storage: malformed amount %q", s)
	}
	return v, nil
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func joinRoles(roles []types.Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

func splitRoles(s string) []types.Role {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]types.Role, 0, len(parts))
	for _, p := range parts {
		if r, ok := types.ParseRole(p); ok {
			roles = append(roles, r)
		}
	}
	return roles
}

func toDomainUser(row *User) *types.User {
	return &types.User{
		ID:         row.ID,
		Name:       row.Name,
		Phone:      row.Phone,
		Email:      row.Email,
		Roles:      splitRoles(row.Roles),
		TrustScore: row.TrustScore,
		Verified:   row.Verified,
		CreatedAt:  row.CreatedAt.Unix(),
	}
}

func toDomainProduct(row *Product) (*types.Product, error) {
	price, err := parseAmount(row.Price)
	if err != nil {
		return nil, err
	}
	return &types.Product{
		ID:          row.ID,
		SellerID:    row.SellerID,
		Title:       row.Title,
		Description: row.Description,
		Category:    row.Category,
		Condition:   row.Condition,
		Location:    row.Location,
		Price:       price,
		Status:      types.ProductStatus(row.Status),
		CreatedAt:   row.CreatedAt.Unix(),
	}, nil
}

func toDomainOrder(row *Order) (*escrow.Order, error) {
	amount, err := parseAmount(row.Amount)
	if err != nil {
		return nil, err
	}
	return &escrow.Order{
		ID:        row.ID,
		BuyerID:   row.BuyerID,
		ProductID: row.ProductID,
		Amount:    amount,
		Status:    escrow.EscrowStatus(row.Status),
		CreatedAt: row.CreatedAt.Unix(),
		UpdatedAt: row.UpdatedAt.Unix(),
	}, nil
}

func toDomainAccount(row *Account) (*ledger.Account, error) {
	available, err := parseAmount(row.Available)
	if err != nil {
		return nil, err
	}
	return &ledger.Account{UserID: row.UserID, Available: available}, nil
}

func toDomainHold(row *Hold) (*ledger.Hold, error) {
	amount, err := parseAmount(row.Amount)
	if err != nil {
		return nil, err
	}
	return &ledger.Hold{
		OrderID:   row.OrderID,
		UserID:    row.UserID,
		Amount:    amount,
		CreatedAt: row.CreatedAt.Unix(),
	}, nil
}

func toDomainEntry(row *LedgerEntry) (*ledger.Entry, error) {
	delta, err := parseAmount(row.Delta)
	if err != nil {
		return nil, err
	}
	balance, err := parseAmount(row.Balance)
	if err != nil {
		return nil, err
	}
	return &ledger.Entry{
		UserID:    row.UserID,
		OrderID:   row.OrderID,
		Delta:     delta,
		Balance:   balance,
		Timestamp: row.CreatedAt.Unix(),
	}, nil
}

func unixTime(ts int64) time.Time {
	if ts <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}
