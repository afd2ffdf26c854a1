package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
)

const createUsersSchema = `
DO $$ BEGIN
	CREATE TYPE user_role AS ENUM ('buyer', 'seller', 'admin');
EXCEPTION
	WHEN duplicate_object THEN NULL;
END $$;

CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	email TEXT NOT NULL,
	role user_role NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

const selectUserColumns = `
		SELECT id, username, password_hash, email, role::text, created_at, updated_at
		FROM users`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Init creates the role enum and the users table when missing.
func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createUsersSchema); err != nil {
		return fmt.Errorf("create users schema: %w", err)
	}
	return nil
}

// Insert stores a new user and returns it with the generated id.
func (r *UserRepository) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (username, password_hash, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4::user_role, $5, $6)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		u.Username,
		u.PasswordHash,
		u.Email,
		string(u.Role),
		now,
		now,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user %q: %w", u.Username, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *u
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// FindByID retrieves a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, selectUserColumns+`
		WHERE id = $1`, id)
}

// FindByUsername retrieves a user by exact username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, selectUserColumns+`
		WHERE username = $1`, username)
}

// ListAll returns all users ordered by id.
func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, selectUserColumns+`
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			u    domain.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Update rewrites the mutable columns of a user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (bool, error) {
	query := `
		UPDATE users
		SET username = $1, password_hash = $2, email = $3, role = $4::user_role, updated_at = $5
		WHERE id = $6`

	tag, err := r.db.Exec(ctx, query,
		u.Username,
		u.PasswordHash,
		u.Email,
		string(u.Role),
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("update user %d: %w", u.ID, repository.ErrDuplicate)
		}
		return false, fmt.Errorf("update user: %w", err)
	}
	return affected(tag), nil
}

// Delete removes a user by id.
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return affected(tag), nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Email,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
