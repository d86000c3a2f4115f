package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Rayandri/deneigement-montreal/pkg/metrics"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RouteTimeout  time.Duration
	PlanTimeout   time.Duration
	MaxConcurrent int
	// RateLimit is the sustained request rate per second across all
	// clients; zero disables limiting.
	RateLimit  float64
	RateBurst  int
	CORSOrigin string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:          addr,
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  125 * time.Second,
		RouteTimeout:  5 * time.Second,
		PlanTimeout:   2 * time.Minute,
		MaxConcurrent: runtime.NumCPU() * 2,
		RateLimit:     20,
		RateBurst:     40,
		CORSOrigin:    "",
	}
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers) *http.Server {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	mw := &middleware{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}
	if cfg.RateLimit > 0 {
		mw.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	mux.HandleFunc("POST /api/v1/plan", mw.wrap("/api/v1/plan", cfg.PlanTimeout, handlers.HandlePlan))
	mux.HandleFunc("POST /api/v1/route", mw.wrap("/api/v1/route", cfg.RouteTimeout, handlers.HandleRoute))
	mux.HandleFunc("GET /api/v1/health", mw.wrap("/api/v1/health", cfg.RouteTimeout, handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/stats", mw.wrap("/api/v1/stats", cfg.RouteTimeout, handlers.HandleStats))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until shutdown signal.
func ListenAndServe(srv *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

type middleware struct {
	cfg     ServerConfig
	sem     chan struct{}
	limiter *rate.Limiter
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// wrap adds security headers, CORS, rate and concurrency limiting, panic
// recovery, a request timeout, logging and request metrics.
func (m *middleware) wrap(path string, timeout time.Duration, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			status := strconv.Itoa(rec.status)
			metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		}()

		rec.Header().Set("X-Content-Type-Options", "nosniff")
		rec.Header().Set("X-Frame-Options", "DENY")
		rec.Header().Set("Cache-Control", "no-store")

		if m.cfg.CORSOrigin != "" {
			rec.Header().Set("Access-Control-Allow-Origin", m.cfg.CORSOrigin)
		}

		if m.limiter != nil && !m.limiter.Allow() {
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusTooManyRequests, "rate_limited", "", "")
			return
		}

		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		default:
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusServiceUnavailable, "service_unavailable", "", "")
			return
		}

		defer func() {
			if p := recover(); p != nil {
				log.Printf("panic: %v", p)
				writeError(rec, http.StatusInternalServerError, "internal_error", "", "")
			}
		}()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		handler(rec, r.WithContext(ctx))
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	}
}
