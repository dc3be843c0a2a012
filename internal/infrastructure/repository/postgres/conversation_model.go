package postgres

import "time"

type conversationTurnTableModel struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
