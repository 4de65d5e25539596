package database

import (
	"context"
	"time"
)

const getChatbotSession = `SELECT sender, state, expires_at, updated_at
FROM chatbot_sessions
WHERE sender = $1 AND expires_at > now()`

// GetChatbotSession returns pgx.ErrNoRows for unknown or expired senders.
func (q *Queries) GetChatbotSession(ctx context.Context, sender string) (ChatbotSession, error) {
	var i ChatbotSession
	err := q.db.QueryRow(ctx, getChatbotSession, sender).Scan(
		&i.Sender,
		&i.State,
		&i.ExpiresAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertChatbotSession = `INSERT INTO chatbot_sessions (sender, state, expires_at, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (sender) DO UPDATE SET
    state = EXCLUDED.state,
    expires_at = EXCLUDED.expires_at,
    updated_at = now()`

type UpsertChatbotSessionParams struct {
	Sender    string
	State     []byte
	ExpiresAt time.Time
}

func (q *Queries) UpsertChatbotSession(ctx context.Context, arg UpsertChatbotSessionParams) error {
	_, err := q.db.Exec(ctx, upsertChatbotSession, arg.Sender, arg.State, arg.ExpiresAt)
	return err
}

const deleteChatbotSession = `DELETE FROM chatbot_sessions WHERE sender = $1`

func (q *Queries) DeleteChatbotSession(ctx context.Context, sender string) error {
	_, err := q.db.Exec(ctx, deleteChatbotSession, sender)
	return err
}

const deleteExpiredChatbotSessions = `DELETE FROM chatbot_sessions WHERE expires_at <= now()`

func (q *Queries) DeleteExpiredChatbotSessions(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteExpiredChatbotSessions)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
