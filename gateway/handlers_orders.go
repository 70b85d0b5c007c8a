package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trustmart/core/types"
	"trustmart/gateway/auth"
	"trustmart/native/escrow"
	"trustmart/native/marketplace"
)

// InitiateOrder opens a new escrow order against a listing.
func (s *Server) InitiateOrder(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid_payload", "invalid payload")
		return
	}
	if req.ProductID == uuid.Nil {
		s.writeBadRequest(w, "invalid_payload", "product_id is required")
		return
	}

	orderID, err := s.coordinator.Initiate(r.Context(), req.ProductID, claims.Subject)
	if err != nil {
		s.writeError(w, err)
		return
	}
	order, err := s.store.OrderByID(r.Context(), orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, viewOrder(order))
}

// advanceHandler builds a handler applying the named lifecycle action.
func (s *Server) advanceHandler(name string) http.HandlerFunc {
	action, _ := escrow.ParseAction(name)
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.FromContext(r.Context())
		if err != nil {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			s.writeBadRequest(w, "invalid_id", "invalid order id")
			return
		}
		status, err := s.coordinator.Advance(r.Context(), orderID, action, claims.Subject)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID.String(), "status": string(status)})
	}
}

// ResolveDispute applies an arbitration verdict to a disputed order.
func (s *Server) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeBadRequest(w, "invalid_id", "invalid order id")
		return
	}

	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid_payload", "invalid payload")
		return
	}
	outcome, ok := marketplace.ParseOutcome(req.Outcome)
	if !ok {
		s.writeBadRequest(w, "invalid_outcome", "outcome must be RELEASE or REFUND")
		return
	}

	status, err := s.coordinator.ResolveDispute(r.Context(), orderID, outcome, claims.Subject)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID.String(),
		"status":   string(status),
		"outcome":  string(outcome),
	})
}

// ListOrders returns the caller's orders as buyer (default) or seller.
func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var (
		orders  []*escrow.Order
		loadErr error
	)
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))) {
	case "", "buyer":
		orders, loadErr = s.store.OrdersByBuyer(r.Context(), claims.Subject)
	case "seller":
		orders, loadErr = s.store.OrdersBySeller(r.Context(), claims.Subject)
	default:
		s.writeBadRequest(w, "invalid_role", "role must be buyer or seller")
		return
	}
	if loadErr != nil {
		s.writeError(w, loadErr)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOrder(o))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

// GetOrder returns a single order to its buyer, the listing's seller or an
// arbiter.
func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := s.loadOrderForParty(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, viewOrder(order))
}

// GetOrderAudit returns the committed transition history for an order.
func (s *Server) GetOrderAudit(w http.ResponseWriter, r *http.Request) {
	order, ok := s.loadOrderForParty(w, r)
	if !ok {
		return
	}
	trail, err := s.store.AuditTrail(r.Context(), order.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	type auditView struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Actor string `json:"actor"`
		At    int64  `json:"at"`
	}
	views := make([]auditView, 0, len(trail))
	for _, e := range trail {
		views = append(views, auditView{From: e.FromStatus, To: e.ToStatus, Actor: e.Actor, At: e.CreatedAt.Unix()})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"order_id": order.ID.String(), "events": views})
}

func (s *Server) loadOrderForParty(w http.ResponseWriter, r *http.Request) (*escrow.Order, bool) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return nil, false
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeBadRequest(w, "invalid_id", "invalid order id")
		return nil, false
	}
	order, err := s.store.OrderByID(r.Context(), orderID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if order.BuyerID == claims.Subject || claims.HasRole(types.RoleArbiter) || claims.HasRole(types.RoleAdmin) {
		return order, true
	}
	product, err := s.store.ProductByID(r.Context(), order.ProductID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if product.SellerID != claims.Subject {
		s.writeJSON(w, http.StatusForbidden, map[string]apiError{"error": {Code: "unauthorized", Message: "not a party to this order"}})
		return nil, false
	}
	return order, true
}
