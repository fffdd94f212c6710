package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type userPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    userPayload `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := s.identity.Register(r.Context(), req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingFields):
			fail(w, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, core.ErrInvalidEmail):
			fail(w, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, core.ErrShortPassword):
			fail(w, http.StatusBadRequest, "Password must be at least 6 characters")
		case errors.Is(err, core.ErrShortPhone):
			fail(w, http.StatusBadRequest, "Invalid phone number")
		case errors.Is(err, storage.ErrEmailTaken):
			fail(w, http.StatusBadRequest, "Email already registered")
		default:
			slog.ErrorContext(r.Context(), "Registration failed", "error", err)
			fail(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	if err := s.setSessionCookie(w, u.Email, u.Name); err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing session", "error", err)
		fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Registration successful",
		User:    userPayload{Name: u.Name, Email: u.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := s.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingFields):
			fail(w, http.StatusBadRequest, "Email and password required")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			slog.ErrorContext(r.Context(), "Login failed", "error", err)
			fail(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	if err := s.setSessionCookie(w, u.Email, u.Name); err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing session", "error", err)
		fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		User:    userPayload{Name: u.Name, Email: u.Email},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	sess, err := s.sessions.Verify(cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          userPayload{Name: sess.Name, Email: sess.Email},
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hint, err := s.identity.RequestReset(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingFields):
			fail(w, http.StatusBadRequest, "Email is required")
		case errors.Is(err, core.ErrInvalidEmail):
			fail(w, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, storage.ErrNotFound):
			fail(w, http.StatusNotFound, "Email not found")
		case errors.Is(err, services.ErrDeliveryFailed):
			fail(w, http.StatusInternalServerError, "Failed to send OTP")
		default:
			slog.ErrorContext(r.Context(), "Forgot password failed", "error", err)
			fail(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "OTP sent to your email",
		"phone":   hint,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.identity.VerifyReset(r.Context(), req.Email, req.OTP, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingFields):
			fail(w, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, core.ErrShortPassword):
			fail(w, http.StatusBadRequest, "Password must be at least 6 characters")
		case errors.Is(err, services.ErrNoResetCode):
			fail(w, http.StatusNotFound, "No OTP found for this email")
		case errors.Is(err, services.ErrResetCodeExpired):
			fail(w, http.StatusBadRequest, "OTP has expired")
		case errors.Is(err, services.ErrResetCodeMismatch), errors.Is(err, services.ErrInvalidCredentials):
			fail(w, http.StatusBadRequest, "Invalid OTP")
		default:
			slog.ErrorContext(r.Context(), "OTP verification failed", "error", err)
			fail(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successful",
	})
}

const (
	stateCookie    = "oauth_state"
	stateCookieTTL = 10 * time.Minute
)

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.google.Configured() {
		fail(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}

	state, err := randomState()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed generating OAuth state", "error", err)
		fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	url, err := s.google.AuthURL(state)
	if err != nil {
		fail(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// handleGoogleAuthorize is the provider callback. On success it closes
// the sign-in popup and notifies the opening page; on any failure the
// browser lands back on the index with an error marker.
func (s *Server) handleGoogleAuthorize(w http.ResponseWriter, r *http.Request) {
	redirectFailure := func() {
		http.Redirect(w, r, "/?error=google-auth-failed", http.StatusFound)
	}

	stateParam := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || stateParam == "" || cookie.Value != stateParam {
		slog.WarnContext(r.Context(), "OAuth state mismatch")
		redirectFailure()
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		redirectFailure()
		return
	}

	info, err := s.google.Exchange(r.Context(), code)
	if err != nil {
		slog.ErrorContext(r.Context(), "Google authentication failed", "error", err)
		redirectFailure()
		return
	}

	u, err := s.identity.LoginExternal(r.Context(), info)
	if err != nil {
		slog.ErrorContext(r.Context(), "External login failed", "error", err)
		redirectFailure()
		return
	}
	if err := s.setSessionCookie(w, u.Email, u.Name); err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing session", "error", err)
		redirectFailure()
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(strings.TrimSpace(`
<script>
    window.opener.postMessage({type: 'google-login-success'}, '*');
    window.close();
</script>
`)))
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
