package http

import (
	"context"
	"log/slog"
	"net/http"

	"fintrack/internal/auth"
)

const sessionCookie = "fintrack_session"

type contextKey string

const sessionKey contextKey = "session"

// sessionFrom returns the authenticated identity stored in the request
// context by requireLogin.
func sessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(auth.Session)
	return s, ok
}

func (s *Server) setSessionCookie(w http.ResponseWriter, email, name string) error {
	token, err := s.sessions.Issue(email, name)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireLogin verifies the session cookie and stores the identity in
// the request context. Anything protected hangs off this.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			fail(w, http.StatusUnauthorized, "Please login first")
			return
		}
		sess, err := s.sessions.Verify(cookie.Value)
		if err != nil {
			slog.DebugContext(r.Context(), "Session verification failed", "error", err)
			clearSessionCookie(w)
			fail(w, http.StatusUnauthorized, "Please login first")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next(w, r.WithContext(ctx))
	}
}
