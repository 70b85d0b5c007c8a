package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trustmart/core/types"
)

type contextKey string

const contextKeyClaims contextKey = "jwt_claims"

const issuer = "trustmart"

// Claims carries the authenticated identity attached to a request.
type Claims struct {
	Subject uuid.UUID
	Roles   []types.Role
}

// HasRole reports whether the identity carries the given role.
func (c *Claims) HasRole(role types.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator constructs an Authenticator with the shared HS256 secret.
func NewAuthenticator(secret string, ttl time.Duration) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// SetNowFunc overrides the clock source. Intended for tests.
func (a *Authenticator) SetNowFunc(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// Issue mints a signed token for the user.
func (a *Authenticator) Issue(user *types.User) (string, error) {
	if user == nil {
		return "", errors.New("auth: nil user")
	}
	now := a.now()
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r))
	}
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"iss":   issuer,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(a.ttl)),
		"roles": roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates a bearer token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return a.now() }),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("auth: token validation failed")
	}
	sub, _ := claims["sub"].(string)
	subject, err := uuid.Parse(strings.TrimSpace(sub))
	if err != nil {
		return nil, errors.New("auth: token subject missing")
	}
	return &Claims{Subject: subject, Roles: extractRoles(claims["roles"])}, nil
}

func extractRoles(value interface{}) []types.Role {
	var raw []string
	switch v := value.(type) {
	case []string:
		raw = v
	case []interface{}:
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	roles := make([]types.Role, 0, len(raw))
	for _, s := range raw {
		if role, ok := types.ParseRole(s); ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// Middleware enforces a valid bearer token and attaches the claims to the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := strings.TrimSpace(r.Header.Get("Authorization"))
		if authz == "" {
			http.Error(w, "missing authorization", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "invalid authorization scheme", http.StatusUnauthorized)
			return
		}
		claims, err := a.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			http.Error(w, "invalid authorization token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext extracts the Claims previously attached by Middleware.
func FromContext(ctx context.Context) (*Claims, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	if claims, ok := ctx.Value(contextKeyClaims).(*Claims); ok && claims != nil {
		return claims, nil
	}
	return nil, errors.New("missing identity in context")
}

// RequireRole ensures the authenticated user carries at least one of the
// allowed roles.
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := FromContext(r.Context())
			if err != nil {
				http.Error(w, "missing identity", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "insufficient role", http.StatusForbidden)
		})
	}
}
