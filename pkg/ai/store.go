package ai

import (
	"context"
)

// SessionStore manages the in-process chat history of every session.
type SessionStore interface {
	// GetOrCreate returns the history for sessionID, creating an empty one
	// on first reference. Any string is a valid id.
	GetOrCreate(ctx context.Context, sessionID string) *History

	// ClearHistory drops a single session.
	ClearHistory(ctx context.Context, sessionID string)

	// ClearAll discards every session.
	ClearAll(ctx context.Context)

	// Sessions lists the known session ids in sorted order.
	Sessions(ctx context.Context) []string
}
