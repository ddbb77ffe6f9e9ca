// Package storage persists participant and session records. The engine and
// the orchestrator only see the two interfaces below; implementations cover
// Postgres (via GORM) and an in-memory default.
package storage

import "context"

// ParticipantStore tracks connected participants and their session
// assignment. An unassigned participant is waiting to be matched.
type ParticipantStore interface {
	Save(ctx context.Context, participantID string) error
	Remove(ctx context.Context, participantID string) error
	AssignToSession(ctx context.Context, participantIDs []string, sessionID string) error
	// FetchUnassigned returns waiting participant ids in arrival order.
	FetchUnassigned(ctx context.Context) ([]string, error)
}

// SessionStore records live and ended sessions.
type SessionStore interface {
	// Create persists a new session as active.
	Create(ctx context.Context, sessionID string, participantIDs []string) error
	SetActive(ctx context.Context, sessionID string, active bool) error
	Remove(ctx context.Context, sessionID string) error
}
