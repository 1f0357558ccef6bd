package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/checklist/internal/config"
	"github.com/dukerupert/checklist/internal/grocery"
	"github.com/dukerupert/checklist/internal/handler"
	"github.com/dukerupert/checklist/internal/importer"
	"github.com/dukerupert/checklist/internal/middleware"
	"github.com/dukerupert/checklist/internal/store"
	ws "github.com/dukerupert/checklist/internal/websocket"
)

type Server struct {
	db          *sqlx.DB
	hub         *ws.Hub
	list        *grocery.Controller
	groceryH    *handler.GroceryHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sqlx.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	itemStore := store.NewItemStore(db)
	imp := importer.New(itemStore, importer.Options{
		Timeout: cfg.ImportTimeout,
		Logger:  logger.With("component", "importer"),
	})
	list := grocery.NewController(itemStore, grocery.Options{
		AutoCategorize: cfg.AutoCategorize,
		Importer:       imp,
		Logger:         logger.With("component", "list"),
	})
	client := &http.Client{Timeout: cfg.ImportTimeout}

	return &Server{
		db:          db,
		hub:         hub,
		list:        list,
		groceryH:    handler.NewGroceryHandler(list, hub, client, logger.With("component", "grocery")),
		rateLimiter: middleware.NewRateLimiter(cfg.ImportRateLimit, time.Minute),
		logger:      logger,
	}
}

// List returns the controller backing the API.
func (s *Server) List() *grocery.Controller {
	return s.list
}

// RateLimiter returns the import rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.logger.With("component", "http")))

	r.Get("/health", s.healthHandler)
	r.Get("/ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.groceryH.State)
		r.Post("/refresh", s.groceryH.Refresh)

		r.Get("/items", s.groceryH.ListItems)
		r.Post("/items", s.groceryH.CreateItem)
		r.Post("/items/clear-bought", s.groceryH.ClearBought)
		r.Put("/items/{id}", s.groceryH.UpdateItem)
		r.Delete("/items/{id}", s.groceryH.DeleteItem)
		r.Post("/items/{id}/toggle", s.groceryH.ToggleItem)

		r.With(middleware.RateLimit(s.rateLimiter, middleware.RealIP)).
			Post("/import", s.groceryH.Import)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
