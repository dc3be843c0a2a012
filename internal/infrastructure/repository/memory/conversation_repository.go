package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
)

// ConversationRepository archives chat turns in process memory. It backs
// single-instance setups and tests; a restart loses the archive.
type ConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string][]conversation.Turn
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{sessions: make(map[string][]conversation.Turn)}
}

func (r *ConversationRepository) AppendTurns(_ context.Context, sessionID string, turns []conversation.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = append(r.sessions[sessionID], turns...)
	return nil
}

// ListBySession returns a session's turns oldest first. A positive limit
// keeps only the most recent turns; an unknown session lists empty.
func (r *ConversationRepository) ListBySession(_ context.Context, sessionID string, limit int) ([]conversation.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turns := r.sessions[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	return append([]conversation.Turn(nil), turns...), nil
}
