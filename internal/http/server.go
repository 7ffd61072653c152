// Package http serves the development data API: the REST endpoints the
// client expects, backed by a storage.Store.
package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/storage"
)

// APIPrefix is where the REST endpoints are mounted.
const APIPrefix = "/api/rest"

const readyTimeout = 2 * time.Second

type Server struct {
	http.Server
	store   storage.Store
	secret  string
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	now     func() time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit replaces the per-client limiter.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.limiter = ratelimit.NewLimiter(cfg) }
}

// WithClock sets the clock used for created_date.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Every API route requires secret in the admin secret header.
func NewServer(addr string, store storage.Store, secret string, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		store:   store,
		secret:  secret,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ips := security.NewClientIPResolver()
	s.tracer = trace.NewMiddleware(ips.ClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+APIPrefix+path, s.requireSecret(h))
	}

	api("POST /login", s.handleLogin)
	api("POST /createuser", s.handleCreateUser)

	api("GET /getcategories", s.handleListCategories)
	api("GET /getcategoriesdropdownbyuser", s.handleListCategories)
	api("POST /addcategory", s.handleAddCategory)
	api("POST /updatecategory", s.handleUpdateCategory)
	api("DELETE /deletecategory", s.handleDeleteCategory)

	api("GET /getincomes", s.handleListIncomes)
	api("POST /addincome", s.handleAddIncome)
	api("POST /updateincome", s.handleUpdateIncome)
	api("DELETE /deleteincome", s.handleDeleteIncome)

	api("GET /getuserexpenseswithcategory", s.handleListExpenses)
	api("POST /addexpense", s.handleAddExpense)
	api("POST /updateexpense", s.handleUpdateExpense)
	api("DELETE /deleteexpense", s.handleDeleteExpense)

	api("GET /gettotalincome", s.handleTotalIncome)
	api("GET /gettotalexpense", s.handleTotalExpense)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "Rate limit exceeded. Please try again later.")
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(limit(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Limiter exposes the rate limiter so its cleanup loop can be run.
func (s *Server) Limiter() *ratelimit.Limiter { return s.limiter }

// Tracer exposes request metrics.
func (s *Server) Tracer() *trace.Middleware { return s.tracer }

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) requireSecret(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(config.AdminSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected request without valid admin secret",
				log.FieldPath, r.URL.Path)
			writeError(w, http.StatusUnauthorized, codeAccessDenied, "invalid x-hasura-admin-secret/x-hasura-access-key")
			return
		}
		next(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Store not ready", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
