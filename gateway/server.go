package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trustmart/core/types"
	"trustmart/gateway/auth"
	gwmw "trustmart/gateway/middleware"
	"trustmart/native/marketplace"
	"trustmart/storage"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Store       *storage.Store
	Coordinator *marketplace.Coordinator
	Auth        *auth.Authenticator
	RateLimit   gwmw.RateLimit
	Logger      *slog.Logger
}

// Server exposes the settlement engine over HTTP.
type Server struct {
	store       *storage.Store
	coordinator *marketplace.Coordinator
	auth        *auth.Authenticator
	logger      *slog.Logger
	obs         *gwmw.Observability
	Now         func() time.Time

	router http.Handler
}

// New constructs a configured HTTP router with authentication, idempotency
// and rate limiting.
func New(cfg Config) *Server {
	srv := &Server{
		store:       cfg.Store,
		coordinator: cfg.Coordinator,
		auth:        cfg.Auth,
		logger:      cfg.Logger,
		obs:         gwmw.NewObservability("trustmart"),
		Now:         time.Now,
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	srv.router = srv.buildRouter(cfg.RateLimit)
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler serves the gateway's Prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	return s.obs.MetricsHandler()
}

func (s *Server) buildRouter(limit gwmw.RateLimit) http.Handler {
	limiter := gwmw.NewRateLimiter(limit)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.obs.Middleware)
	r.Use(limiter.Middleware)

	r.Get("/healthz", s.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/register", s.Register)
		api.Post("/auth/login", s.Login)
		api.Get("/products", s.ListProducts)
		api.Get("/products/{id}", s.GetProduct)

		api.Group(func(protected chi.Router) {
			protected.Use(s.auth.Middleware)
			protected.Use(func(next http.Handler) http.Handler {
				return gwmw.WithIdempotency(s.store.DB(), next)
			})

			protected.With(auth.RequireRole(types.RoleSeller, types.RoleAdmin)).Post("/products", s.CreateProduct)

			protected.Post("/orders", s.InitiateOrder)
			protected.Get("/orders", s.ListOrders)
			protected.Get("/orders/{id}", s.GetOrder)
			protected.Get("/orders/{id}/audit", s.GetOrderAudit)
			protected.Post("/orders/{id}/pay", s.advanceHandler("pay"))
			protected.Post("/orders/{id}/ship", s.advanceHandler("ship"))
			protected.Post("/orders/{id}/confirm", s.advanceHandler("confirm"))
			protected.Post("/orders/{id}/dispute", s.advanceHandler("dispute"))
			protected.Post("/orders/{id}/cancel", s.advanceHandler("cancel"))
			protected.With(auth.RequireRole(types.RoleArbiter, types.RoleAdmin)).Post("/orders/{id}/resolve", s.ResolveDispute)

			protected.Get("/wallet", s.GetWallet)
		})
	})

	return r
}

// Health reports process liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	s.writeJSON(w, status, map[string]apiError{"error": body})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, code, message string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]apiError{"error": {Code: code, Message: message}})
}
