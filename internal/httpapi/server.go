// Package httpapi is the REST/websocket facade over the commerce and
// orchestration planes: chi routing, JWT auth, CORS, rate limiting,
// prometheus metrics, and a websocket event stream (spec.md §6).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agentcommerce/acp-core/internal/agreement"
	"github.com/agentcommerce/acp-core/internal/discovery"
	"github.com/agentcommerce/acp-core/internal/escrow"
	"github.com/agentcommerce/acp-core/internal/logger"
	"github.com/agentcommerce/acp-core/internal/orchestration"
	"github.com/agentcommerce/acp-core/internal/prediction"
	"github.com/agentcommerce/acp-core/internal/registry"
)

// Deps bundles every service the facade dispatches to.
type Deps struct {
	Registry      *registry.Registry
	Agreements    *agreement.Store
	Escrow        *escrow.Engine
	Discovery     *discovery.Engine
	Orchestrator  *orchestration.Orchestrator
	AgentRegistry *orchestration.AgentRegistry
	TaskQueue     *orchestration.TaskQueue
	MessageBus    *orchestration.MessageBus
	Predictions   *prediction.Store

	JWTSecret       string
	RateLimitPerMin int
}

// Server wraps a chi.Router and an http.Server around Deps, matching the
// teacher's Service lifecycle (Name/Start/Stop over an http.Server).
type Server struct {
	deps   Deps
	router chi.Router
	hub    *eventHub
	srv    *http.Server
	log    *logger.Logger
}

// NewServer builds the routed handler. Call Start to bind a listener.
func NewServer(deps Deps, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if deps.RateLimitPerMin <= 0 {
		deps.RateLimitPerMin = 100
	}

	s := &Server{deps: deps, hub: newEventHub(log), log: log}
	s.router = s.routes()
	return s
}

func (s *Server) Name() string { return "http" }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	limiter := newRateLimiter(s.deps.RateLimitPerMin, s.deps.RateLimitPerMin)
	r.Use(limiter.middleware)

	r.Get("/healthz", instrument("/healthz", s.health))
	r.Get("/readyz", instrument("/readyz", s.ready))
	r.Handle("/metrics", metricsHandler())
	r.Get("/events", func(w http.ResponseWriter, r *http.Request) { s.hub.serveWS(w, r) })

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(jwtAuth(s.deps.JWTSecret))

		api.Route("/agents", func(ar chi.Router) {
			ar.Post("/", instrument("/api/v1/agents", s.registerAgent))
			ar.Get("/{agentID}", instrument("/api/v1/agents/{id}", s.getAgent))
			ar.Delete("/{agentID}", instrument("/api/v1/agents/{id}", s.unregisterAgent))
			ar.Post("/{agentID}/services", instrument("/api/v1/agents/{id}/services", s.listService))
			ar.Post("/{agentID}/transactions", instrument("/api/v1/agents/{id}/transactions", s.recordTransaction))
		})
		api.Post("/services/{serviceID}/ratings", instrument("/api/v1/services/{id}/ratings", s.rateService))
		api.Get("/search/services", instrument("/api/v1/search/services", s.searchServices))
		api.Get("/search/agents", instrument("/api/v1/search/agents", s.searchAgents))

		api.Post("/discovery/search", instrument("/api/v1/discovery/search", s.discoverySearch))
		api.Post("/discovery/negotiate", instrument("/api/v1/discovery/negotiate", s.discoveryNegotiate))

		api.Route("/agreements", func(ag chi.Router) {
			ag.Post("/", instrument("/api/v1/agreements", s.draftAgreement))
			ag.Get("/{agreementID}", instrument("/api/v1/agreements/{id}", s.getAgreement))
			ag.Post("/{agreementID}/sign", instrument("/api/v1/agreements/{id}/sign", s.signAgreement))
			ag.Post("/{agreementID}/amend", instrument("/api/v1/agreements/{id}/amend", s.amendAgreement))
			ag.Post("/{agreementID}/terms/{termID}/complete", instrument("/api/v1/agreements/{id}/terms/{id}/complete", s.completeTerm))
			ag.Get("/{agreementID}/export", instrument("/api/v1/agreements/{id}/export", s.exportAgreement))
			ag.Post("/import", instrument("/api/v1/agreements/import", s.importAgreement))
		})

		api.Route("/escrows", func(es chi.Router) {
			es.Post("/", instrument("/api/v1/escrows", s.createEscrow))
			es.Get("/{escrowID}", instrument("/api/v1/escrows/{id}", s.getEscrow))
			es.Post("/{escrowID}/fund", instrument("/api/v1/escrows/{id}/fund", s.fundEscrow))
			es.Post("/{escrowID}/release", instrument("/api/v1/escrows/{id}/release", s.releaseEscrow))
			es.Post("/{escrowID}/refund", instrument("/api/v1/escrows/{id}/refund", s.refundEscrow))
			es.Post("/{escrowID}/dispute", instrument("/api/v1/escrows/{id}/dispute", s.disputeEscrow))
			es.Post("/{escrowID}/resolve", instrument("/api/v1/escrows/{id}/resolve", s.resolveDisputeEscrow))
		})
		api.Get("/parties/{address}/escrows", instrument("/api/v1/parties/{address}/escrows", s.listEscrowsByParty))

		api.Route("/tasks", func(ts chi.Router) {
			ts.Post("/", instrument("/api/v1/tasks", s.submitTask))
			ts.Get("/{taskID}", instrument("/api/v1/tasks/{id}", s.getTask))
			ts.Post("/{taskID}/complete", instrument("/api/v1/tasks/{id}/complete", s.completeTask))
			ts.Post("/{taskID}/fail", instrument("/api/v1/tasks/{id}/fail", s.failTask))
			ts.Post("/{taskID}/cancel", instrument("/api/v1/tasks/{id}/cancel", s.cancelTask))
		})
		api.Route("/workers", func(wr chi.Router) {
			wr.Post("/", instrument("/api/v1/workers", s.registerWorker))
			wr.Post("/{workerID}/heartbeat", instrument("/api/v1/workers/{id}/heartbeat", s.workerHeartbeat))
			wr.Get("/", instrument("/api/v1/workers", s.listWorkers))
		})

		api.Post("/predictions", instrument("/api/v1/predictions", s.recordPrediction))
		api.Post("/predictions/{predictionID}/resolve", instrument("/api/v1/predictions/{id}/resolve", s.resolvePrediction))
		api.Get("/predictions/leaderboard", instrument("/api/v1/predictions/leaderboard", s.leaderboard))
		api.Get("/agents/{agentID}/predictions", instrument("/api/v1/agents/{id}/predictions", s.listPredictionsByAgent))
	})

	return r
}

// Start binds addr and begins pumping orchestration events into the
// websocket hub. It returns once the listener goroutine has been started.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if s.deps.AgentRegistry != nil && s.deps.TaskQueue != nil && s.deps.MessageBus != nil {
		done := make(chan struct{})
		go s.hub.pumpOrchestrationEvents(s.deps.AgentRegistry.Events(), s.deps.TaskQueue.Events(), s.deps.MessageBus.Events(), done)
	}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("httpapi: server error")
		}
	}()
	s.log.WithField("addr", addr).Info("httpapi: listening")
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func idParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
