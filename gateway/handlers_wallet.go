package gateway

import (
	"net/http"

	"trustmart/gateway/auth"
)

// GetWallet returns the caller's available balance and recent journal
// entries.
func (s *Server) GetWallet(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	balance, entries, err := s.store.Wallet(r.Context(), claims.Subject)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id":   claims.Subject.String(),
		"available": formatAmount(balance),
		"entries":   viewEntries(entries),
	})
}
