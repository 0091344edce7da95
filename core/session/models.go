package session

import "time"

// Identity is the resolved authenticated caller reference for the current
// session. It is owned by the session backend and only ever observed here;
// nothing in this codebase persists it.
type Identity struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"` // UTC
}

func (id Identity) Expired() bool {
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}
