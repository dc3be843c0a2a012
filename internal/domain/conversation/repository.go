package conversation

import "context"

// Repository archives chat turns keyed by session id.
type Repository interface {
	AppendTurns(ctx context.Context, sessionID string, turns []Turn) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}
