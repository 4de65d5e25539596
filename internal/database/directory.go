package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const branchColumns = `id, name, city_id, area_id, address, phone, manager_id,
	is_paused, pause_reason, paused_until, created_at, updated_at`

func scanBranch(row scanner) (Branch, error) {
	var i Branch
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.CityID,
		&i.AreaID,
		&i.Address,
		&i.Phone,
		&i.ManagerID,
		&i.IsPaused,
		&i.PauseReason,
		&i.PausedUntil,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listCities = `SELECT id, name FROM cities ORDER BY name`

func (q *Queries) ListCities(ctx context.Context) ([]City, error) {
	rows, err := q.db.Query(ctx, listCities)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (City, error) {
		var i City
		err := row.Scan(&i.ID, &i.Name)
		return i, err
	})
}

const listAreasByCity = `SELECT id, city_id, name FROM areas WHERE city_id = $1 ORDER BY name`

func (q *Queries) ListAreasByCity(ctx context.Context, cityID uuid.UUID) ([]Area, error) {
	rows, err := q.db.Query(ctx, listAreasByCity, cityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (Area, error) {
		var i Area
		err := row.Scan(&i.ID, &i.CityID, &i.Name)
		return i, err
	})
}

const listBranches = `SELECT ` + branchColumns + `
FROM branches
WHERE ($1::uuid IS NULL OR city_id = $1)
ORDER BY name`

func (q *Queries) ListBranches(ctx context.Context, cityID pgtype.UUID) ([]Branch, error) {
	rows, err := q.db.Query(ctx, listBranches, cityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBranch)
}

const getBranch = `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`

func (q *Queries) GetBranch(ctx context.Context, id uuid.UUID) (Branch, error) {
	return scanBranch(q.db.QueryRow(ctx, getBranch, id))
}

const getBranchByManager = `SELECT ` + branchColumns + ` FROM branches WHERE manager_id = $1`

func (q *Queries) GetBranchByManager(ctx context.Context, managerID uuid.UUID) (Branch, error) {
	return scanBranch(q.db.QueryRow(ctx, getBranchByManager, managerID))
}

const listBranchSchedules = `SELECT branch_id, day_of_week, is_closed, open_time, close_time
FROM branch_schedules
WHERE branch_id = $1
ORDER BY day_of_week`

func (q *Queries) ListBranchSchedules(ctx context.Context, branchID uuid.UUID) ([]BranchSchedule, error) {
	rows, err := q.db.Query(ctx, listBranchSchedules, branchID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (BranchSchedule, error) {
		var i BranchSchedule
		err := row.Scan(&i.BranchID, &i.DayOfWeek, &i.IsClosed, &i.OpenTime, &i.CloseTime)
		return i, err
	})
}
