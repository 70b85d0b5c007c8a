package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trustmart/core/types"
	"trustmart/gateway/auth"
)

// CreateProduct lists a new item for sale in AVAILABLE status.
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Condition   string `json:"condition"`
		Location    string `json:"location"`
		Price       string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid_payload", "invalid payload")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		s.writeBadRequest(w, "invalid_payload", "title is required")
		return
	}
	price, ok := parseAmount(strings.TrimSpace(req.Price))
	if !ok || price.Sign() <= 0 {
		s.writeBadRequest(w, "invalid_amount", "price must be a positive integer amount in minor units")
		return
	}

	product := &types.Product{
		ID:          uuid.New(),
		SellerID:    claims.Subject,
		Title:       req.Title,
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Condition:   strings.TrimSpace(req.Condition),
		Location:    strings.TrimSpace(req.Location),
		Price:       price,
		Status:      types.ProductAvailable,
		CreatedAt:   s.Now().Unix(),
	}
	if err := s.store.CreateProduct(r.Context(), product); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, viewProduct(product))
}

// ListProducts returns AVAILABLE listings, optionally filtered by category.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	products, err := s.store.ListAvailableProducts(r.Context(), category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, viewProduct(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"products": views})
}

// GetProduct returns a single listing regardless of status.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeBadRequest(w, "invalid_id", "invalid product id")
		return
	}
	product, err := s.store.ProductByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewProduct(product))
}
