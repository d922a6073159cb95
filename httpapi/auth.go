package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/middleware"
	"github.com/MrEthical07/shiftAuth/permission"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type identityResponse struct {
	UserID int64           `json:"user_id"`
	Role   permission.Role `json:"role"`
	Scheme string          `json:"scheme,omitempty"`
}

type sessionView struct {
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

type sessionsResponse struct {
	Count    int           `json:"count"`
	Max      int           `json:"max"`
	Sessions []sessionView `json:"sessions"`
}

// handleLogin verifies credentials and sets the session cookie. A request
// that still carries a live session is refused.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(r, &req) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	var existing string
	if c, err := r.Cookie(s.engine.SessionCookieName()); err == nil {
		existing = c.Value
	}

	ctx := shiftAuth.WithClientIP(r.Context(), middleware.ClientIP(r))
	res, err := s.engine.Login(ctx, req.Username, req.Password, existing)
	if err != nil {
		if errors.Is(err, shiftAuth.ErrLoginRateLimited) {
			s.setRetryAfter(w, r, req.Username)
		}
		middleware.WriteError(w, s.engine, err)
		return
	}

	http.SetCookie(w, s.engine.SessionCookie(res.SessionID))
	writeJSON(w, http.StatusOK, identityResponse{UserID: res.UserID, Role: res.Role, Scheme: string(shiftAuth.AuthSchemeSession)})
}

func (s *Server) setRetryAfter(w http.ResponseWriter, r *http.Request, username string) {
	d, err := s.engine.LoginRetryAfter(r.Context(), username)
	if err != nil || d <= 0 {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
}

// handleLogout deletes the session named by the cookie. A missing cookie is
// a bad request; an already expired session still clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(s.engine.SessionCookieName())
	if err != nil {
		middleware.WriteError(w, s.engine, shiftAuth.ErrSessionNotFound)
		return
	}

	if err := s.engine.DeleteSession(r.Context(), c.Value); err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}

	http.SetCookie(w, s.engine.ExpiredSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	creds, _ := middleware.CredentialsFromContext(r.Context())
	uid, role, err := s.engine.ResolveRole(r.Context(), creds)
	if err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}
	scheme, _ := shiftAuth.AuthSchemeFromContext(r.Context())

	writeJSON(w, http.StatusOK, identityResponse{UserID: uid, Role: role, Scheme: string(scheme)})
}

// handleListSessions reports the caller's live sessions by expiry. Session
// ids are bearer secrets and are never echoed back.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, _ := shiftAuth.UserIDFromContext(ctx)
	creds, _ := middleware.CredentialsFromContext(ctx)

	ids, err := s.engine.ActiveSessions(ctx, uid)
	if err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}

	views := make([]sessionView, 0, len(ids))
	for _, id := range ids {
		info, err := s.engine.SessionInfo(ctx, id)
		if err != nil {
			// expired between listing and lookup
			continue
		}
		views = append(views, sessionView{ExpiresAt: info.ExpiresAt, Current: creds.HasSession && id == creds.SessionID})
	}

	writeJSON(w, http.StatusOK, sessionsResponse{
		Count:    len(views),
		Max:      s.engine.Config().Session.MaxSessionsPerUser,
		Sessions: views,
	})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, _ := shiftAuth.UserIDFromContext(ctx)

	removed, err := s.engine.LogoutAll(ctx, uid)
	if err != nil {
		middleware.WriteError(w, s.engine, err)
		return
	}

	if scheme, _ := shiftAuth.AuthSchemeFromContext(ctx); scheme == shiftAuth.AuthSchemeSession {
		http.SetCookie(w, s.engine.ExpiredSessionCookie())
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
