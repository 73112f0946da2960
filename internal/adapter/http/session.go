package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionHeader carries the opaque session token.
	SessionHeader = "X-Session-ID"
	// SessionCookie is the cookie fallback for browser clients.
	SessionCookie = "session_id"

	maxSessionIDLen = 128
)

type sessionKey struct{}

// withSession resolves the caller's session token, minting one when absent.
// A minted or cookie-sourced token is echoed back in the header.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = strings.TrimSpace(c.Value)
			}
		}
		if len(id) > maxSessionIDLen {
			writeError(w, http.StatusBadRequest, "session id too long")
			return
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			s.logger.Debug("session minted", "session_id", id)
		}
		w.Header().Set(SessionHeader, id)

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	}
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
