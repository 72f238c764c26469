// Package api is a development storefront that serves the cart and
// checkout pages and endpoints the client drives. State lives in memory.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/api/handlers"
	"github.com/eshaffer321/cartsync/internal/api/middleware"
	"github.com/eshaffer321/cartsync/internal/api/shop"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// Config holds storefront server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	CSRFField      string
	Policy         pricing.Policy
	Payment        handlers.PaymentConfig
}

// DefaultConfig returns the development defaults: port 8000, free delivery
// over $250, and no card widget.
func DefaultConfig() Config {
	return Config{
		Port:           8000,
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
		CSRFField:      page.DefaultCSRFField,
		Policy:         pricing.DefaultPolicy(),
		Payment:        handlers.PaymentConfig{PublicKey: page.PlaceholderPublicKey},
	}
}

// Server is the storefront HTTP server.
type Server struct {
	config     Config
	router     chi.Router
	mu         sync.Mutex
	httpServer *http.Server
	logger     *slog.Logger
	catalog    *shop.Catalog
	sessions   *shop.Sessions
	orders     *shop.Orders
}

// NewServer creates a storefront over catalog. A nil catalog uses the
// seeded default range.
func NewServer(cfg Config, catalog *shop.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = shop.DefaultCatalog()
	}
	if cfg.CSRFField == "" {
		cfg.CSRFField = page.DefaultCSRFField
	}
	if cfg.Policy == (pricing.Policy{}) {
		cfg.Policy = pricing.DefaultPolicy()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		catalog:  catalog,
		sessions: shop.NewSessions(),
		orders:   shop.NewOrders(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all storefront routes.
func (s *Server) setupRoutes() {
	base := handlers.NewBase(s.logger)

	// Health check sits outside the session middleware
	s.router.Get("/health", handlers.NewHealthHandler(base, s.sessions, s.orders).ServeHTTP)

	cartHandler := handlers.NewCartHandler(base, s.catalog, s.config.Policy, s.config.CSRFField)
	checkoutHandler := handlers.NewCheckoutHandler(base, s.catalog, s.orders, s.config.Policy, s.config.CSRFField, s.config.Payment)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(s.sessions))
		r.Use(middleware.CSRF(s.config.CSRFField))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.View)
			r.Post("/add/{id}/", cartHandler.Add)
			r.Post("/adjust/{id}/", cartHandler.Adjust)
			r.Post("/remove/{id}/", cartHandler.Remove)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.View)
			r.Post("/", checkoutHandler.Place)
			r.Get("/checkout_success/{order}/", checkoutHandler.Success)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/cart", cartHandler.JSON)
			r.Get("/orders/{order}", checkoutHandler.Order)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("starting storefront", "addr", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down storefront")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Orders exposes the order book for inspection.
func (s *Server) Orders() *shop.Orders {
	return s.orders
}
