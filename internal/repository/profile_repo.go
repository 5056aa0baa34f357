package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository stores the local mirror of identity provider accounts.
type ProfileRepository interface {
	// Create inserts a profile, leaving an existing one untouched.
	Create(ctx context.Context, p *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Update changes the display name and avatar.
	Update(ctx context.Context, id, name string, profileImage *string) (*model.Profile, error)
	SetSuspended(ctx context.Context, id string, suspended bool) error
	List(ctx context.Context) ([]model.Profile, error)
}

type profileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) error {
	if p.Role == "" {
		p.Role = model.RoleUser
	}
	const q = `
        INSERT INTO profiles (id, email, name, role, profile_image, is_suspended, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, p.ID, p.Email, p.Name, p.Role, p.ProfileImage); err != nil {
		return fmt.Errorf("create profile for user %s: %w", p.ID, err)
	}
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	const q = `
        SELECT id, email, name, role, profile_image, is_suspended, created_at, updated_at
        FROM profiles
        WHERE id = $1
    `
	var p model.Profile
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&p.Role,
		&p.ProfileImage,
		&p.IsSuspended,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *profileRepo) Update(ctx context.Context, id, name string, profileImage *string) (*model.Profile, error) {
	const q = `
        UPDATE profiles
        SET name = $2,
            profile_image = COALESCE($3, profile_image),
            updated_at = NOW()
        WHERE id = $1
        RETURNING id, email, name, role, profile_image, is_suspended, created_at, updated_at
    `
	var p model.Profile
	err := r.pool.QueryRow(ctx, q, id, name, profileImage).Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&p.Role,
		&p.ProfileImage,
		&p.IsSuspended,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *profileRepo) SetSuspended(ctx context.Context, id string, suspended bool) error {
	const q = `UPDATE profiles SET is_suspended = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, suspended)
	if err != nil {
		return fmt.Errorf("set suspension of profile %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) List(ctx context.Context) ([]model.Profile, error) {
	const q = `
        SELECT id, email, name, role, profile_image, is_suspended, created_at, updated_at
        FROM profiles
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	profiles, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Profile])
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	return profiles, nil
}
