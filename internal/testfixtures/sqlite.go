package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/mediation-platform/internal/persistence"
	"github.com/example/mediation-platform/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Cases        persistence.CaseRepository
	Sessions     persistence.SessionRepository
	Activities   persistence.ActivityRepository
	Users        persistence.UserRepository
	AuthSessions persistence.AuthSessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that
// is migrated automatically. Cleanup is registered with the provided
// testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "mediation.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Cases:        sqlite.NewCaseRepository(pool),
		Sessions:     sqlite.NewSessionRepository(pool),
		Activities:   sqlite.NewActivityRepository(pool),
		Users:        sqlite.NewUserRepository(pool),
		AuthSessions: sqlite.NewAuthSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUser inserts a user fixture and returns the stored record.
func (h *SQLiteHarness) SeedUser(tb testing.TB, opts ...UserOption) persistence.User {
	tb.Helper()

	user, err := h.Users.CreateUser(context.Background(), NewUserFixture(opts...))
	if err != nil {
		tb.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// SeedCase inserts a case fixture with a creation activity and returns
// the stored record.
func (h *SQLiteHarness) SeedCase(tb testing.TB, createdBy int64, opts ...CaseOption) persistence.Case {
	tb.Helper()

	fixture := NewCaseFixture(createdBy, opts...)
	created, err := h.Cases.CreateCase(context.Background(), fixture,
		ActivityFixture(0, createdBy, "case_created", "Case \""+fixture.Title+"\" was created"))
	if err != nil {
		tb.Fatalf("failed to seed case: %v", err)
	}
	return created
}
