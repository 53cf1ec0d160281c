package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/mediation-platform/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a SQLite-backed user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = "id, email, password_hash, first_name, last_name, phone, role, created_at"

// CreateUser inserts a new account and returns the stored row.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.User{}, fmt.Errorf("failed to read inserted user id: %w", err)
	}

	return r.GetUser(ctx, id)
}

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := r.pool.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var createdAt string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Role,
		&createdAt,
	)
	if err != nil {
		if errors.Is(mapError(err), persistence.ErrNotFound) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, mapError(err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, err
	}

	return user, nil
}
