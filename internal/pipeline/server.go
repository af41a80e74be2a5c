package pipeline

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/summitos/summit-sync/internal/ratelimit"
)

// Sweeper triggers one reconciliation pass; satisfied by the scheduler.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// BasicAuth holds basic authentication credentials. Empty credentials
// disable authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for the ingestion pipeline.
type Server struct {
	service   *Service
	sweeper   Sweeper
	basicAuth BasicAuth
	limiter   *ratelimit.Limiter
	mux       *http.ServeMux
}

// NewServer creates a Server with a default mux.
func NewServer(service *Service, sweeper Sweeper, basicAuth BasicAuth, limiter *ratelimit.Limiter) *Server {
	return NewServerWithMux(service, sweeper, basicAuth, limiter, http.NewServeMux())
}

// NewServerWithMux creates a Server with a custom mux for testing.
func NewServerWithMux(service *Service, sweeper Sweeper, basicAuth BasicAuth, limiter *ratelimit.Limiter, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		sweeper:   sweeper,
		basicAuth: basicAuth,
		limiter:   limiter,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/trips", s.corsMiddleware(s.requireAuth(s.handleTrips)))
	s.mux.HandleFunc("/api/trips/", s.corsMiddleware(s.requireAuth(s.handleTripByID)))
	s.mux.HandleFunc("/api/reconcile", s.corsMiddleware(s.requireAuth(s.handleReconcile)))
}

// Start begins listening on the given address.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// authenticate checks basic auth credentials.
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}
	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="summit-sync"`)
			corsError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// allowRequest applies the per-caller sliding-window limit.
func (s *Server) allowRequest(r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	identity := r.RemoteAddr
	if host, _, ok := strings.Cut(r.RemoteAddr, ":"); ok {
		identity = host
	}
	allowed := s.limiter.Allow(identity)
	if !allowed {
		slog.Warn("Rate limit exceeded", "identity", identity)
	}
	return allowed
}
