// Package domain contains core domain types for the UMIT portal.
package domain

import (
	"time"
)

// SessionRecord is the persisted form of one browser session.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionRecord returns a record holding the initial state.
func NewSessionRecord(sessionID string, now time.Time) *SessionRecord {
	return &SessionRecord{
		SessionID: sessionID,
		State:     NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IdleFor returns how long the session has gone without an update.
func (r *SessionRecord) IdleFor(now time.Time) time.Duration {
	idle := now.Sub(r.UpdatedAt)
	if idle < 0 {
		return 0
	}
	return idle
}

// Clone returns a deep copy of the record.
func (r *SessionRecord) Clone() *SessionRecord {
	c := *r
	c.State = r.State.Clone()
	return &c
}
