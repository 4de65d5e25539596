package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getGlobalPause = `SELECT is_paused, reason, paused_until, updated_at
FROM global_pause
WHERE id = true`

func (q *Queries) GetGlobalPause(ctx context.Context) (GlobalPause, error) {
	var i GlobalPause
	err := q.db.QueryRow(ctx, getGlobalPause).Scan(
		&i.IsPaused,
		&i.Reason,
		&i.PausedUntil,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertGlobalPause = `INSERT INTO global_pause (id, is_paused, reason, paused_until, updated_at)
VALUES (true, $1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET
    is_paused = EXCLUDED.is_paused,
    reason = EXCLUDED.reason,
    paused_until = EXCLUDED.paused_until,
    updated_at = now()
RETURNING is_paused, reason, paused_until, updated_at`

type UpsertGlobalPauseParams struct {
	IsPaused    bool
	Reason      pgtype.Text
	PausedUntil pgtype.Timestamptz
}

func (q *Queries) UpsertGlobalPause(ctx context.Context, arg UpsertGlobalPauseParams) (GlobalPause, error) {
	var i GlobalPause
	err := q.db.QueryRow(ctx, upsertGlobalPause, arg.IsPaused, arg.Reason, arg.PausedUntil).Scan(
		&i.IsPaused,
		&i.Reason,
		&i.PausedUntil,
		&i.UpdatedAt,
	)
	return i, err
}

const updateBranchPause = `UPDATE branches SET
    is_paused = $2,
    pause_reason = $3,
    paused_until = $4,
    updated_at = now()
WHERE id = $1
RETURNING ` + branchColumns

type UpdateBranchPauseParams struct {
	ID          uuid.UUID
	IsPaused    bool
	Reason      pgtype.Text
	PausedUntil pgtype.Timestamptz
}

func (q *Queries) UpdateBranchPause(ctx context.Context, arg UpdateBranchPauseParams) (Branch, error) {
	return scanBranch(q.db.QueryRow(ctx, updateBranchPause, arg.ID, arg.IsPaused, arg.Reason, arg.PausedUntil))
}

const clearExpiredGlobalPause = `UPDATE global_pause SET
    is_paused = false,
    reason = NULL,
    paused_until = NULL,
    updated_at = now()
WHERE is_paused AND paused_until IS NOT NULL AND paused_until <= now()`

func (q *Queries) ClearExpiredGlobalPause(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, clearExpiredGlobalPause)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const clearExpiredBranchPauses = `UPDATE branches SET
    is_paused = false,
    pause_reason = NULL,
    paused_until = NULL,
    updated_at = now()
WHERE is_paused AND paused_until IS NOT NULL AND paused_until <= now()`

func (q *Queries) ClearExpiredBranchPauses(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, clearExpiredBranchPauses)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
