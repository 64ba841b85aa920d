package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stijnblommerde/restaurant-menu/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	u.id, u.username, u.email, u.password_hash, u.confirmed, u.pending_email,
	u.name, u.location, u.about_me, u.role_id, u.member_since, u.last_seen,
	r.id, r.name, r.permissions, r.is_default, r.created_at, r.updated_at
`

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, password_hash, confirmed, pending_email,
			name, location, about_me, role_id, member_since, last_seen
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Confirmed,
		user.PendingEmail,
		user.Name,
		user.Location,
		user.AboutMe,
		user.RoleID,
	)
	return err
}

func (r *UserRepository) UserByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "u.id = $1", id)
}

func (r *UserRepository) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "u.email = $1", email)
}

func (r *UserRepository) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, "u.username = $1", username)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE ` + where

	row := r.pool.QueryRow(ctx, query, arg)
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user models.User
		role models.Role

		roleID      *string
		roleName    *string
		rolePerms   *int16
		roleDefault *bool
		createdAt   *time.Time
		updatedAt   *time.Time
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Confirmed,
		&user.PendingEmail,
		&user.Name,
		&user.Location,
		&user.AboutMe,
		&user.RoleID,
		&user.MemberSince,
		&user.LastSeen,
		&roleID,
		&roleName,
		&rolePerms,
		&roleDefault,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if roleID != nil {
		role.ID = *roleID
		role.Name = *roleName
		role.Permissions = models.Permission(*rolePerms)
		role.Default = *roleDefault
		if createdAt != nil {
			role.CreatedAt = *createdAt
		}
		if updatedAt != nil {
			role.UpdatedAt = *updatedAt
		}
		user.Role = &role
	}
	return user, nil
}

func (r *UserRepository) MarkConfirmed(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET confirmed = TRUE WHERE id = $1`, id)
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id string, hash []byte) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *UserRepository) SetPendingEmail(ctx context.Context, id string, email string) error {
	return r.exec(ctx, `UPDATE users SET pending_email = $2 WHERE id = $1`, id, email)
}

// CommitEmail promotes email to primary and clears the pending marker in
// one statement, so a concurrent reader never observes a half-applied
// change.
func (r *UserRepository) CommitEmail(ctx context.Context, id string, email string) error {
	return r.exec(ctx, `UPDATE users SET email = $2, pending_email = NULL WHERE id = $1`, id, email)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name, location, aboutMe string) error {
	return r.exec(ctx,
		`UPDATE users SET name = $2, location = $3, about_me = $4 WHERE id = $1`,
		id, name, location, aboutMe)
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET last_seen = NOW() WHERE id = $1`, id)
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		ORDER BY u.member_since
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
