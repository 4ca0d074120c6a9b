package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"
)

const sessionCookie = "session_id"

type authContextKey struct{}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool        `json:"success"`
	Role      models.Role `json:"role"`
	Username  string      `json:"username"`
	SessionID string      `json:"session_id"`
	ExpiresAt string      `json:"expires_at,omitempty"`
}

// AuthMiddleware resolves the caller's session into the request context and
// rejects protected endpoints without one. Role checks happen in the handlers.
func AuthMiddleware(sessions store.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := isPublicEndpoint(r)
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}

		session, err := sessions.GetSession(r.Context(), sessionID)
		if err != nil {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		noteRole(r.Context(), session.Role)
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (models.Session, bool) {
	session, ok := ctx.Value(authContextKey{}).(models.Session)
	return session, ok
}

// requireRole writes 401 or 403 and returns false unless the caller holds one of roles.
// With no roles any authenticated caller passes.
func requireRole(w http.ResponseWriter, r *http.Request, roles ...models.Role) bool {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing session")
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if session.Role == role {
			return true
		}
	}
	writeError(w, r, http.StatusForbidden, "access_denied", "role "+string(session.Role)+" may not perform this action")
	return false
}

func isPublicEndpoint(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	path := r.URL.Path
	switch {
	case path == "/healthz", path == "/metrics":
		return true
	case path == "/realtime" || strings.HasPrefix(path, "/realtime/"):
		return true
	case path == "/api/login", path == "/api/logout":
		return r.Method == http.MethodPost
	case path == "/api/menu", path == "/api/tables":
		return r.Method == http.MethodGet
	case path == "/api/orders", path == "/api/calls":
		return r.Method == http.MethodPost
	case strings.HasPrefix(path, "/api/orders/"):
		return r.Method == http.MethodGet
	default:
		return false
	}
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if token := strings.TrimSpace(r.Header.Get("X-Session-ID")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	result, err := h.store.Login(r.Context(), store.LoginInput{
		Username:         req.Username,
		Password:         req.Password,
		ReplaceSessionID: sessionIDFromRequest(r),
		IssuedAt:         h.now().UTC(),
		TTL:              h.sessionTTL,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	session := result.Session
	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    session.SessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	resp := loginResponse{
		Success:   true,
		Role:      session.Role,
		Username:  session.Username,
		SessionID: session.SessionID,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt
		resp.ExpiresAt = session.ExpiresAt.Format(time.RFC3339)
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionID := sessionIDFromRequest(r); sessionID != "" {
		if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
