package shiftAuth

import (
	"net/http"
	"time"
)

// SessionCookie returns the cookie that carries sessionID. Its Max-Age
// matches the session TTL; the store slides the server side on each request.
func (e *Engine) SessionCookie(sessionID string) *http.Cookie {
	c := e.baseCookie()
	c.Value = sessionID
	c.MaxAge = int(e.config.Session.TTL / time.Second)
	return c
}

// ExpiredSessionCookie returns a cookie that deletes the session cookie.
func (e *Engine) ExpiredSessionCookie() *http.Cookie {
	c := e.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// SessionCookieName returns the configured cookie name.
func (e *Engine) SessionCookieName() string {
	return e.config.Cookie.Name
}

// APIKeyHeader returns the configured API key header, or "" when API key
// authentication is disabled.
func (e *Engine) APIKeyHeader() string {
	if !e.config.APIKey.Enabled {
		return ""
	}
	return e.config.APIKey.Header
}

func (e *Engine) baseCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: true,
		SameSite: e.config.Cookie.SameSite,
	}
}
