package server

import (
	"context"
	"fmt"
	"net/http"

	"trade-journal-go/internal/config"

	"go.uber.org/zap"
)

// Server is the journal web server: JSON API plus the static dashboard shell.
type Server struct {
	server  *http.Server
	handler *APIHandler
	logger  *zap.Logger
}

// NewServer wires the routes and returns a ready-to-start server.
func NewServer(cfg *config.Server, handler *APIHandler, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	// Auth endpoints (no session required).
	mux.HandleFunc("POST /api/register", handler.RegisterHandler)
	mux.HandleFunc("POST /api/verify", handler.VerifyHandler)
	mux.HandleFunc("POST /api/login", handler.LoginHandler)
	mux.HandleFunc("POST /api/logout", handler.LogoutHandler)

	// Journal endpoints, all scoped to the session user.
	mux.HandleFunc("GET /api/trades", handler.withAuth(handler.ListTradesHandler))
	mux.HandleFunc("POST /api/trades", handler.withAuth(handler.CreateTradeHandler))
	mux.HandleFunc("PUT /api/trades/{id}", handler.withAuth(handler.UpdateTradeHandler))
	mux.HandleFunc("DELETE /api/trades/{id}", handler.withAuth(handler.DeleteTradeHandler))
	mux.HandleFunc("POST /api/trades/import", handler.withAuth(handler.ImportTradesHandler))
	mux.HandleFunc("GET /api/trades/export", handler.withAuth(handler.ExportTradesHandler))

	// Dashboard data.
	mux.HandleFunc("GET /api/stats", handler.withAuth(handler.StatsHandler))
	mux.HandleFunc("GET /api/equity", handler.withAuth(handler.EquityHandler))
	mux.HandleFunc("GET /api/calendar", handler.withAuth(handler.CalendarHandler))

	// Ancillary market data, available without login.
	mux.HandleFunc("GET /api/market", handler.MarketHandler)
	mux.HandleFunc("GET /api/news", handler.NewsHandler)
	mux.HandleFunc("GET /api/status", handler.StatusHandler)

	// Static file serving for CSS, JS, etc.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// HTML shell.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, "web/templates/index.html")
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	return &Server{
		server:  &http.Server{Addr: addr, Handler: mux},
		handler: handler,
		logger:  logger.Named("server"),
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("Web server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping web server...")
	return s.server.Shutdown(ctx)
}
