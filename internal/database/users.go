package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, full_name, phone, role, is_active, created_at, updated_at`

func scanUser(row scanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Phone,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1) AND is_active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + `
FROM users
WHERE id = $1 AND is_active = true`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listRiders = `SELECT ` + userColumns + `
FROM users
WHERE role = 'rider' AND is_active = true
ORDER BY full_name`

func (q *Queries) ListRiders(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listRiders)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

const listPermissionsByRole = `SELECT permission
FROM role_permissions
WHERE role = $1
ORDER BY permission`

func (q *Queries) ListPermissionsByRole(ctx context.Context, role string) ([]string, error) {
	rows, err := q.db.Query(ctx, listPermissionsByRole, role)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (string, error) {
		var permission string
		err := row.Scan(&permission)
		return permission, err
	})
}

const upsertCustomerByEmail = `INSERT INTO users (email, full_name, phone, role)
VALUES ($1, $2, $3, 'customer')
ON CONFLICT ((lower(email))) DO UPDATE SET updated_at = now()
RETURNING id`

type UpsertCustomerByEmailParams struct {
	Email    string
	FullName string
	Phone    pgtype.Text
}

// UpsertCustomerByEmail returns the id of the user owning the email,
// creating a customer record when none exists.
func (q *Queries) UpsertCustomerByEmail(ctx context.Context, arg UpsertCustomerByEmailParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, upsertCustomerByEmail, arg.Email, arg.FullName, arg.Phone).Scan(&id)
	return id, err
}
