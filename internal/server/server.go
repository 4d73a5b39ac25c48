package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dustin/luckypick/internal/analytics"
	"github.com/dustin/luckypick/internal/auth"
	"github.com/dustin/luckypick/internal/config"
	"github.com/dustin/luckypick/internal/mail"
	"github.com/dustin/luckypick/internal/metrics"
	"github.com/dustin/luckypick/internal/payment"
	"github.com/dustin/luckypick/internal/sse"
	"github.com/dustin/luckypick/internal/storage"
)

// VisitTracker accepts visits for asynchronous recording.
type VisitTracker interface {
	Track(raw analytics.RawVisit) bool
}

// Deps are the collaborators the HTTP layer calls into. Metrics and Gatherer
// may be nil.
type Deps struct {
	Store      *storage.Storage
	Aggregator *analytics.Aggregator
	Tracker    VisitTracker
	Auth       *auth.Authenticator
	Hub        *sse.Hub
	Mailer     mail.Mailer
	Payments   *payment.Gateway
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

type Server struct {
	deps        Deps
	mux         *http.ServeMux
	cfg         config.Config
	rateLimiter *RateLimiter
	// keepAlive is the interval between SSE comment frames.
	keepAlive time.Duration
}

func New(cfg config.Config, deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		deps:        deps,
		mux:         http.NewServeMux(),
		cfg:         cfg,
		rateLimiter: NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		keepAlive:   30 * time.Second,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /robots.txt", s.handleRobotsTxt)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	// Public site
	s.mux.HandleFunc("POST /api/analytics/track", s.handleTrack)
	s.mux.HandleFunc("GET /api/fortune", s.handleFortune)
	s.mux.HandleFunc("GET /api/payment", s.handlePaymentConfig)
	s.mux.HandleFunc("POST /api/payment", s.handlePaymentPrepare)
	s.mux.HandleFunc("PUT /api/payment", s.handlePaymentConfirm)
	s.mux.HandleFunc("POST /api/send-email", s.handleSendEmail)

	// Admin session
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/auth/verify", s.handleVerify)

	// Admin analytics
	s.mux.HandleFunc("GET /api/analytics/stats", s.requireAuth(s.handleStats))
	s.mux.HandleFunc("GET /api/analytics/visits", s.requireAuth(s.handleVisits))
	s.mux.HandleFunc("GET /api/analytics/stream", s.requireAuth(s.handleStream))
	s.mux.HandleFunc("GET /api/analytics/export", s.requireAuth(s.handleExport))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	// Apply rate limiting
	if s.rateLimiter.enabled {
		ip := extractIP(r)
		if !s.rateLimiter.Allow(ip) {
			slog.Debug("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	// Apply body size limit
	if s.cfg.MaxRequestBodyBytes > 0 && r.ContentLength > s.cfg.MaxRequestBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if s.cfg.MaxRequestBodyBytes > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBodyBytes)
	}

	if s.deps.Metrics == nil {
		s.mux.ServeHTTP(w, r)
		return
	}
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	// The mux sets r.Pattern on match; unmatched paths share one label.
	pattern := r.Pattern
	if pattern == "" {
		pattern = "unmatched"
	}
	s.deps.Metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// statusRecorder captures the response status for metrics. It forwards
// Flush so SSE keeps working through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.deps.Auth.VerifyRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		noStore(w)
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]any{"success": false, "error": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeSSE(w http.ResponseWriter, eventType string, payload []byte) {
	if eventType != "" {
		_, _ = w.Write([]byte("event: "))
		_, _ = w.Write([]byte(eventType))
		_, _ = w.Write([]byte("\n"))
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
