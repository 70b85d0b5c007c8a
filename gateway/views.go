package gateway

import (
	"math/big"

	"github.com/google/uuid"

	"trustmart/core/types"
	"trustmart/native/escrow"
	"trustmart/native/ledger"
)

// Amounts travel as decimal strings in minor units so that values survive
// JSON round-trips without float truncation.

type userView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email,omitempty"`
	Roles      []string `json:"roles"`
	TrustScore float64  `json:"trust_score"`
	Verified   bool     `json:"verified"`
	CreatedAt  int64    `json:"created_at"`
}

func viewUser(u *types.User) userView {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return userView{
		ID:         u.ID.String(),
		Name:       u.Name,
		Phone:      u.Phone,
		Email:      u.Email,
		Roles:      roles,
		TrustScore: u.TrustScore,
		Verified:   u.Verified,
		CreatedAt:  u.CreatedAt,
	}
}

type productView struct {
	ID          string `json:"id"`
	SellerID    string `json:"seller_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Location    string `json:"location,omitempty"`
	Price       string `json:"price"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

func viewProduct(p *types.Product) productView {
	return productView{
		ID:          p.ID.String(),
		SellerID:    p.SellerID.String(),
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Condition:   p.Condition,
		Location:    p.Location,
		Price:       formatAmount(p.Price),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}

type orderView struct {
	ID        string `json:"id"`
	BuyerID   string `json:"buyer_id"`
	ProductID string `json:"product_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func viewOrder(o *escrow.Order) orderView {
	return orderView{
		ID:        o.ID.String(),
		BuyerID:   o.BuyerID.String(),
		ProductID: o.ProductID.String(),
		Amount:    formatAmount(o.Amount),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

type entryView struct {
	OrderID   string `json:"order_id,omitempty"`
	Delta     string `json:"delta"`
	Balance   string `json:"balance"`
	Timestamp int64  `json:"timestamp"`
}

func viewEntries(entries []*ledger.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		view := entryView{
			Delta:     formatAmount(e.Delta),
			Balance:   formatAmount(e.Balance),
			Timestamp: e.Timestamp,
		}
		if e.OrderID != uuid.Nil {
			view.OrderID = e.OrderID.String()
		}
		out = append(out, view)
	}
	return out
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}
