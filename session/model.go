package session

import "time"

// Session is a live session as seen by readers. ExpiresAt is derived from
// the forward key's remaining TTL and moves every time the session is resolved.
type Session struct {
	SessionID string
	UserID    int64
	ExpiresAt time.Time
}
