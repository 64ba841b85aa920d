package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stijnblommerde/restaurant-menu/internal/ids"
	"github.com/stijnblommerde/restaurant-menu/internal/models"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// UpsertRole seeds one role keyed by name. Re-running with the same name
// updates the permission mask and default flag in place; the conflict
// clause makes concurrent seed runs safe.
func (r *RoleRepository) UpsertRole(ctx context.Context, seed models.RoleSeed) error {
	const query = `
		INSERT INTO roles (id, name, permissions, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE
		SET permissions = EXCLUDED.permissions,
		    is_default  = EXCLUDED.is_default,
		    updated_at  = NOW()
	`

	_, err := r.pool.Exec(ctx, query, ids.New(), seed.Name, int16(seed.Permissions), seed.Default)
	return err
}

func (r *RoleRepository) RoleByName(ctx context.Context, name string) (models.Role, error) {
	return r.findOne(ctx, "name = $1", name)
}

func (r *RoleRepository) RoleByID(ctx context.Context, id string) (models.Role, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *RoleRepository) DefaultRole(ctx context.Context) (models.Role, error) {
	return r.findOne(ctx, "is_default = $1", true)
}

func (r *RoleRepository) findOne(ctx context.Context, where string, arg any) (models.Role, error) {
	query := `
		SELECT id, name, permissions, is_default, created_at, updated_at
		FROM roles WHERE ` + where

	row := r.pool.QueryRow(ctx, query, arg)

	var (
		role  models.Role
		perms int16
	)
	if err := row.Scan(&role.ID, &role.Name, &perms, &role.Default, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	role.Permissions = models.Permission(perms)
	return role, nil
}
