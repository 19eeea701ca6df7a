package api

import (
	"context"
	"net/http"
	"time"

	"betledger/domain/entities"
	"betledger/domain/interfaces"
	"betledger/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Auditor checks ledger-wide conservation
type Auditor interface {
	CheckConservation(ctx context.Context) (*repository.ConservationReport, error)
}

// HealthChecker reports whether the database is reachable
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// DeadLetterLister lists parked settlement work
type DeadLetterLister interface {
	ListOpen(ctx context.Context) ([]*entities.DeadLetter, error)
}

// Dependencies are the services behind the HTTP API. Metrics may be nil.
type Dependencies struct {
	Ledger      interfaces.LedgerService
	Wagers      interfaces.WagerService
	Settlement  interfaces.SettlementService
	Games       interfaces.GameService
	Settings    interfaces.SettingsService
	Audit       Auditor
	DeadLetters DeadLetterLister
	Health      HealthChecker
	Metrics     http.Handler
}

// Handler exposes the ledger, wagers, settlement and games over HTTP
type Handler struct {
	deps Dependencies
}

// NewRouter builds the chi router with every API route registered
func NewRouter(deps Dependencies) http.Handler {
	h := &Handler{deps: deps}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.healthz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.registerAccount)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.deleteAccount)
			r.Get("/balance", h.balance)
			r.Post("/deposit", h.deposit)
			r.Post("/withdraw", h.withdraw)
			r.Post("/transfer", h.transfer)
			r.Get("/ledger", h.history)
			r.Get("/wagers", h.listWagers)
		})
	})

	r.Post("/wagers", h.placeWager)
	r.Post("/matches/{matchId}/settle", h.settleMatch)
	r.Get("/settlement/dead-letters", h.listDeadLetters)
	r.Get("/ledger/audit", h.audit)

	r.Route("/games", func(r chi.Router) {
		r.Post("/color/bet", h.playColor)
		r.Post("/mines/start", h.startMines)
		r.Post("/mines/{sessionId}/reveal", h.revealTile)
		r.Post("/mines/{sessionId}/cashout", h.cashOut)
		r.Post("/plinko/drop", h.dropPlinko)
		r.Get("/{game}/settings", h.getSettings)
		r.Put("/{game}/settings", h.updateSettings)
	})

	return r
}

// NewServer wraps handler in an *http.Server listening on addr
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start),
			"requestID": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Healthy(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
