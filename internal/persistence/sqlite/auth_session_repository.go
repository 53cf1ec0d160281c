package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

// AuthSessionRepository implements persistence.AuthSessionRepository
// using SQLite.
type AuthSessionRepository struct {
	pool *ConnectionPool
}

// NewAuthSessionRepository creates a SQLite-backed auth session repository.
func NewAuthSessionRepository(pool *ConnectionPool) *AuthSessionRepository {
	return &AuthSessionRepository{pool: pool}
}

// CreateAuthSession stores a newly issued login token.
func (r *AuthSessionRepository) CreateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Token,
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return persistence.AuthSession{}, mapError(err)
	}
	return session, nil
}

// GetAuthSession retrieves a session by its token.
func (r *AuthSessionRepository) GetAuthSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at, revoked_at
		FROM auth_sessions WHERE token = ?`, token)

	var session persistence.AuthSession
	var expiresAt, createdAt string
	var revokedAt sql.NullString

	err := row.Scan(&session.ID, &session.UserID, &session.Token, &expiresAt, &createdAt, &revokedAt)
	if err != nil {
		return persistence.AuthSession{}, mapError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.AuthSession{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AuthSession{}, err
	}
	if session.RevokedAt, err = parseNullTime(revokedAt); err != nil {
		return persistence.AuthSession{}, err
	}

	return session, nil
}

// RevokeAuthSession marks a token as revoked.
func (r *AuthSessionRepository) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) error {
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE auth_sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL",
		formatTime(revokedAt), token)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// DeleteExpiredAuthSessions prunes tokens whose expiry predates reference.
func (r *AuthSessionRepository) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	if _, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM auth_sessions WHERE expires_at < ?", formatTime(reference)); err != nil {
		return mapError(err)
	}
	return nil
}
