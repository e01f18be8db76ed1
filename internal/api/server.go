// Package api provides the swarmpay HTTP server.
// Every route lives under /v1; mutating routes are authenticated by an
// Ed25519 signature over the method, URI, timestamp and body.
package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/app/credit"
	"github.com/tutu-network/swarmpay/internal/app/referral"
	"github.com/tutu-network/swarmpay/internal/app/reward"
	"github.com/tutu-network/swarmpay/internal/app/stakepool"
	"github.com/tutu-network/swarmpay/internal/app/swarm"
	"github.com/tutu-network/swarmpay/internal/app/taskledger"
	"github.com/tutu-network/swarmpay/internal/health"
)

// Services bundles the application services the API exposes.
type Services struct {
	Pools     *stakepool.Service
	Tasks     *taskledger.Service
	Swarms    *swarm.Service
	Referrals *referral.Service
	Rewards   *reward.Service
	Credit    *credit.Service
}

// Options controls optional server behavior.
type Options struct {
	RequireSignatures bool
	Faucet            bool
	Metrics           bool
	RateLimit         float64 // requests per second per client; 0 disables
	RateBurst         int
	CORSOrigins       []string
}

// Server is the swarmpay HTTP API server.
type Server struct {
	svc     Services
	opts    Options
	health  *health.Checker
	limiter *RateLimiter
	replays *replayGuard
	log     *zap.Logger
	now     func() time.Time
}

// NewServer creates a new API server.
func NewServer(svc Services, opts Options, log *zap.Logger) *Server {
	s := &Server{
		svc:     svc,
		opts:    opts,
		replays: newReplayGuard(),
		log:     log.Named("api"),
		now:     time.Now,
	}
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

// SetHealth attaches the health checker reported on /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Get("/health", s.handleHealth)

	if s.opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// Reads
		r.Get("/pool", s.handleGetPool)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Get("/tasks/{id}/hash", s.handleTaskHash)
		r.Get("/swarms", s.handleListSwarms)
		r.Get("/swarms/{id}", s.handleGetSwarm)
		r.Get("/referrals/{referrer}", s.handleGetReferral)
		r.Get("/accounts/{account}", s.handleBalance)
		r.Get("/accounts/{account}/history", s.handleHistory)

		// Writes, attributed to the signing identity
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/pool", s.handleInitPool)
			r.Post("/pool/reserve", s.handleFundReserve)
			r.Post("/tasks", s.handleCreateTask)
			r.Post("/tasks/{id}/complete", s.handleCompleteTask)
			r.Post("/tasks/{id}/fail", s.handleFailTask)
			r.Post("/swarms", s.handleCreateSwarm)
			r.Post("/referrals", s.handleRegisterReferral)
			if s.opts.Faucet {
				r.Post("/faucet", s.handleFaucet)
			}
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware answers preflight requests and sets CORS headers for
// configured origins. "*" allows any origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(s.opts.CORSOrigins, "*") || slices.Contains(s.opts.CORSOrigins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderIdentity+", "+HeaderSignature+", "+HeaderTimestamp)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
