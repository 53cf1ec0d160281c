package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserDirectory exposes the account lookups required by the auth service.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// AuthSessionStore captures the persistence interactions for issued
// login tokens.
type AuthSessionStore interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates login, token validation, and logout.
type AuthService struct {
	users          UserDirectory
	sessions       AuthSessionStore
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserDirectory, sessions AuthSessionStore, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new login token.
// Unknown emails and wrong passwords fail identically with
// ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var user User
	user, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(user.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := AuthSession{
		ID:        s.tokenGenerator(),
		UserID:    user.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err = s.sessions.DeleteExpiredAuthSessions(ctx, now); err != nil {
		return
	}

	session, err = s.sessions.CreateAuthSession(ctx, session)
	if err != nil {
		return
	}

	result = AuthenticateResult{User: user, Session: session}
	return
}

// ValidateSession verifies a login token and returns the principal it
// represents.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Principal{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetAuthSession(ctx, trimmed)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Principal{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	return Principal{UserID: user.ID, Role: Role(user.Role)}, nil
}

// RevokeSession invalidates an existing login token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession")

	if err := s.sessions.RevokeAuthSession(ctx, trimmed, s.now()); err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredAuthSessions(ctx, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}
