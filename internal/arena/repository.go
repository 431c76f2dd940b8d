package arena

import "context"

// Repository is the durable document store behind the core. Game and
// player documents are the source of truth for everything except the
// transient queue and readiness sets.
type Repository interface {
	// InsertGame persists a new ongoing game so a crash after pairing
	// still leaves a recoverable record.
	InsertGame(ctx context.Context, g *GameSession) error
	// UpdateGame rewrites a game document (abandonment path).
	UpdateGame(ctx context.Context, g *GameSession) error
	// GetGame returns nil, nil when the id is unknown.
	GetGame(ctx context.Context, id string) (*GameSession, error)
	// PlayerRecord returns nil, nil when the player has no document yet.
	PlayerRecord(ctx context.Context, playerID string) (*PlayerRecord, error)
	// FinalizeGame persists the terminal game and both updated player
	// records as one logical unit: either all three land or none do.
	FinalizeGame(ctx context.Context, g *GameSession, white, black *PlayerRecord) error
}
