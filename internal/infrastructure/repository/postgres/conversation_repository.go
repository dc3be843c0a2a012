package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
	qb "github.com/riskibarqy/fpl-assistant/internal/platform/querybuilder"
)

// ConversationRepository archives chat turns in postgres. Turns are
// append-only rows; chronology rides on the serial id.
type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) AppendTurns(ctx context.Context, sessionID string, turns []conversation.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	builder := qb.InsertInto("conversation_turns").
		Columns("session_id", "role", "content", "created_at")
	for _, turn := range turns {
		builder.Values(sessionID, string(turn.Role), turn.Text, turn.Timestamp.UTC())
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build append turns query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append turns: %w", err)
	}

	return nil
}

// ListBySession returns a session's turns oldest first. A positive limit
// keeps only the most recent turns.
func (r *ConversationRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]conversation.Turn, error) {
	query, args, err := conversationListBuilder(sessionID, limit).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list turns query: %w", err)
	}

	var rows []conversationTurnTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	// Rows arrive newest first so LIMIT keeps the tail; flip back to
	// chronological order on the way out.
	out := make([]conversation.Turn, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = conversation.Turn{
			Role:      conversation.Role(row.Role),
			Text:      row.Content,
			Timestamp: row.CreatedAt,
		}
	}

	return out, nil
}

// PruneBefore deletes turns recorded before the cutoff, across all
// sessions, and reports how many rows went.
func (r *ConversationRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := qb.DeleteFrom("conversation_turns").
		Where(qb.Lt("created_at", cutoff.UTC())).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build prune turns query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune turns: %w", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune turns rows affected: %w", err)
	}

	return pruned, nil
}

func conversationListBuilder(sessionID string, limit int) *qb.SelectBuilder {
	builder := qb.Select("id", "session_id", "role", "content", "created_at").
		From("conversation_turns").
		Where(qb.Eq("session_id", sessionID)).
		OrderBy("id DESC")
	if limit > 0 {
		builder.Limit(limit)
	}

	return builder
}
