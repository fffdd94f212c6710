// Package http exposes the JSON API over the identity, ledger, and
// advice services.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/googleauth"
	"fintrack/internal/services"
)

type Server struct {
	http.Server
	identity *services.IdentityService
	ledger   *services.LedgerService
	advice   *services.AdviceService
	sessions *auth.Sessions
	google   *googleauth.Provider

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires the routes and returns a ready-to-run server.
func NewServer(addr string, identity *services.IdentityService, ledger *services.LedgerService, advice *services.AdviceService, sessions *auth.Sessions, google *googleauth.Provider) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		identity:    identity,
		ledger:      ledger,
		advice:      advice,
		sessions:    sessions,
		google:      google,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.withSecurityHeaders(s.handleLogout))
	mux.HandleFunc("GET /api/check-auth", s.withSecurityHeaders(s.handleCheckAuth))
	mux.HandleFunc("GET /api/google-login", s.withSecurityHeaders(s.handleGoogleLogin))
	mux.HandleFunc("GET /google-authorize", s.withSecurityHeaders(s.handleGoogleAuthorize))
	mux.HandleFunc("POST /api/forgot-password", s.withSecurityHeaders(s.handleForgotPassword))
	mux.HandleFunc("POST /api/verify-otp", s.withSecurityHeaders(s.handleVerifyOTP))

	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.requireLogin(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.requireLogin(s.handleCreateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurityHeaders(s.requireLogin(s.handleDeleteTransaction)))
	mux.HandleFunc("GET /api/budgets", s.withSecurityHeaders(s.requireLogin(s.handleListBudgets)))
	mux.HandleFunc("POST /api/budgets", s.withSecurityHeaders(s.requireLogin(s.handleCreateBudget)))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.withSecurityHeaders(s.requireLogin(s.handleDeleteBudget)))

	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.requireLogin(s.handleSummary)))
	mux.HandleFunc("GET /api/budget-status", s.withSecurityHeaders(s.requireLogin(s.handleBudgetStatus)))
	mux.HandleFunc("GET /api/reports", s.withSecurityHeaders(s.requireLogin(s.handleReports)))
	mux.HandleFunc("POST /api/financial-advice", s.withSecurityHeaders(s.requireLogin(s.handleFinancialAdvice)))

	return s
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			fail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
