// Package httpapi is the public HTTP surface: the eligibility check plus
// health, readiness and metrics endpoints.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/eligibility"
	"welfare-workers/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalogue is the read side of the scheme catalogue.
type Catalogue interface {
	Recommend(ctx context.Context, profile eligibility.Profile, workers int) (eligibility.Recommendations, error)
	Search(ctx context.Context, query string) ([]*models.Scheme, error)
	Filter(ctx context.Context, filter models.SchemeFilter) ([]*models.Scheme, error)
}

// Check reports whether one backend is reachable.
type Check func(ctx context.Context) error

// DefaultRankWorkers bounds concurrent scheme evaluations per eligibility request.
const DefaultRankWorkers = 8

type Options struct {
	Address        string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	RankWorkers    int
	// TrustedProxies lists CIDRs or IPs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

type Server struct {
	opts      Options
	catalogue Catalogue
	checks    map[string]Check
	limiter   *RateLimiter
	log       logger.Logger
	router    chi.Router
}

func NewServer(opts Options, catalogue Catalogue, checks map[string]Check, log logger.Logger) (*Server, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 40
	}
	if opts.RankWorkers <= 0 {
		opts.RankWorkers = DefaultRankWorkers
	}

	s := &Server{
		opts:      opts,
		catalogue: catalogue,
		checks:    checks,
		limiter:   NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		log:       log.WithFields(map[string]interface{}{"component": "http"}),
	}
	if err := s.limiter.TrustProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() error {
	eligibilityHandler, err := newEligibilityHandler(s.catalogue, s.opts.RankWorkers, s.log)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
		r.Post("/eligibility", eligibilityHandler.ServeHTTP)
		r.Get("/schemes", s.handleSchemes)
	})

	s.router = r
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.Sweep()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", map[string]interface{}{"address": s.opts.Address})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{"checks": results})
}

// handleSchemes lists the catalogue, optionally narrowed by q (text search)
// or by category/state/status.
func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		schemes []*models.Scheme
		err     error
	)
	if text := q.Get("q"); text != "" {
		schemes, err = s.catalogue.Search(r.Context(), text)
	} else {
		schemes, err = s.catalogue.Filter(r.Context(), models.SchemeFilter{
			Category: q.Get("category"),
			State:    q.Get("state"),
			Status:   models.SchemeStatus(q.Get("status")),
		})
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemes)
}
