package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"trustmart/core/types"
)

// selfAssignableRoles are the roles a caller may claim at registration.
// Arbiter and admin are provisioned out of band.
var selfAssignableRoles = map[types.Role]bool{
	types.RoleBuyer:  true,
	types.RoleSeller: true,
}

// Register creates a user account with a bcrypt password hash.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string   `json:"name"`
		Phone    string   `json:"phone"`
		Email    string   `json:"email"`
		Password string   `json:"password"`
		Roles    []string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid_payload", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		s.writeBadRequest(w, "invalid_payload", "name and phone are required")
		return
	}
	if len(req.Password) < 8 {
		s.writeBadRequest(w, "weak_password", "password must be at least 8 characters")
		return
	}

	roles := []types.Role{types.RoleUser}
	for _, raw := range req.Roles {
		role, ok := types.ParseRole(raw)
		if !ok || !selfAssignableRoles[role] {
			s.writeBadRequest(w, "invalid_role", "role not permitted at registration")
			return
		}
		roles = append(roles, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeError(w, err)
		return
	}

	user := &types.User{
		ID:         uuid.New(),
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      strings.TrimSpace(req.Email),
		Roles:      roles,
		TrustScore: types.DefaultTrustScore,
		CreatedAt:  s.Now().Unix(),
	}
	if err := s.store.CreateUser(r.Context(), user, string(hash)); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"user": viewUser(user)})
}

// Login verifies credentials and returns a bearer token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid_payload", "invalid payload")
		return
	}

	user, hash, err := s.store.UserByPhone(r.Context(), strings.TrimSpace(req.Phone))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.writeJSON(w, http.StatusUnauthorized, map[string]apiError{"error": {Code: "invalid_credentials", Message: "invalid phone or password"}})
			return
		}
		s.writeError(w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		s.writeJSON(w, http.StatusUnauthorized, map[string]apiError{"error": {Code: "invalid_credentials", Message: "invalid phone or password"}})
		return
	}

	token, err := s.auth.Issue(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": viewUser(user)})
}
