package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type ctxKey string

const (
	ctxKeyOwnerID   ctxKey = "owner_id"
	ctxKeyRequestID ctxKey = "request_id"
)

// Server is the JSON API front end. Handlers stay thin; all semantics
// live in the services layer.
type Server struct {
	http.Server

	ledger     *services.LedgerService
	budgets    *services.BudgetService
	reports    *services.ReportService
	categories *services.CategoryService
	apiKeys    *services.APIKeyService
	storage    *storage.SQLiteRepository

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter, keyed by client IP.
type rateLimiter struct {
	mu           sync.Mutex
	limit        int
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter(limit int) *rateLimiter {
	rl := &rateLimiter{
		limit:       limit,
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	return client.requests <= rl.limit
}

// NewServer wires routes to services and returns a ready-to-run server.
func NewServer(
	addr string,
	ledger *services.LedgerService,
	budgets *services.BudgetService,
	reports *services.ReportService,
	categories *services.CategoryService,
	apiKeys *services.APIKeyService,
	repo *storage.SQLiteRepository,
	rateLimitPerMinute int,
) *Server {
	mux := http.NewServeMux()
	httpLogger := applog.New(applog.Config{Component: applog.ComponentHTTP})

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      applog.Middleware(httpLogger)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ledger:      ledger,
		budgets:     budgets,
		reports:     reports,
		categories:  categories,
		apiKeys:     apiKeys,
		storage:     repo,
		rateLimiter: newRateLimiter(rateLimitPerMinute),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withMiddleware(s.withAuth(h)))
	}

	api("GET /api/v1/entries", s.handleListEntries)
	api("POST /api/v1/entries", s.handleCreateEntry)
	api("GET /api/v1/entries/balance", s.handleGetBalance)
	api("GET /api/v1/entries/recent", s.handleGetRecent)
	api("GET /api/v1/entries/{id}", s.handleGetEntry)
	api("PATCH /api/v1/entries/{id}", s.handleUpdateEntry)
	api("DELETE /api/v1/entries/{id}", s.handleDeleteEntry)

	api("GET /api/v1/budgets", s.handleListBudgets)
	api("POST /api/v1/budgets", s.handleCreateBudget)
	api("GET /api/v1/budgets/status", s.handleBudgetStatus)
	api("PATCH /api/v1/budgets/{id}", s.handleUpdateBudget)
	api("DELETE /api/v1/budgets/{id}", s.handleDeleteBudget)

	api("GET /api/v1/reports/monthly", s.handleMonthlyReport)
	api("GET /api/v1/reports/yearly", s.handleYearlyTrend)

	api("GET /api/v1/categories", s.handleListCategories)
	api("POST /api/v1/categories", s.handleCreateCategory)
	api("GET /api/v1/categories/{id}", s.handleGetCategory)
	api("PATCH /api/v1/categories/{id}", s.handleUpdateCategory)
	api("DELETE /api/v1/categories/{id}", s.handleDeleteCategory)

	api("GET /api/v1/currencies", s.handleListCurrencies)
	api("GET /api/v1/settings", s.handleGetSettings)
	api("PUT /api/v1/settings", s.handlePutSettings)

	api("GET /api/v1/keys", s.handleListKeys)
	api("POST /api/v1/keys", s.handleIssueKey)
	api("DELETE /api/v1/keys/{id}", s.handleRevokeKey)

	return s
}

// Shutdown stops the listener and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		if !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		applog.FromContext(ctx).InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// withAuth resolves the X-API-Key header to an owner identity. Every
// API route requires it; health probes stay open.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing API key"})
			return
		}

		ownerID, err := s.apiKeys.Authenticate(r.Context(), key)
		if err != nil {
			if errors.Is(err, services.ErrKeyRateLimited) {
				w.Header().Set("Retry-After", "3600")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "request limit exceeded"})
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid API key"})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyOwnerID, ownerID)
		next(w, r.WithContext(ctx))
	}
}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ctxKeyOwnerID).(string)
	return owner
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
