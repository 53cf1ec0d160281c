package persistence

import (
	"context"
	"time"
)

// CaseRepository stores mediation cases, their parties, and the audit
// entries describing their mutations. Every mutating method commits the
// entity write and its activity entry in a single transaction.
type CaseRepository interface {
	// ListCases returns cases matching the filter ordered by created_at
	// descending.
	ListCases(ctx context.Context, filter CaseFilter) ([]Case, error)
	GetCase(ctx context.Context, id int64) (Case, error)
	// CreateCase allocates the next case number for the year of
	// c.CreatedAt, inserts the case, and appends the activity entry.
	CreateCase(ctx context.Context, c Case, activity CaseActivity) (Case, error)
	// UpdateCase applies the sparse patch, stamps resolution_date when
	// provided, and appends the activity entry when non-nil.
	UpdateCase(ctx context.Context, id int64, patch CasePatch, resolutionDate *time.Time, activity *CaseActivity) (Case, error)
	DeleteCase(ctx context.Context, id int64) error
	// AddParty inserts a party row and appends the activity entry.
	AddParty(ctx context.Context, party CaseParty, activity CaseActivity) (CaseParty, error)
	ListParties(ctx context.Context, caseID int64) ([]CaseParty, error)
	// PartyUserIDs returns the user ids attached to the case as parties.
	PartyUserIDs(ctx context.Context, caseID int64) ([]int64, error)
}

// SessionRepository stores mediation sessions and their participants.
type SessionRepository interface {
	// ListSessionsForCase returns sessions ordered by scheduled_date
	// descending, each carrying its participant list.
	ListSessionsForCase(ctx context.Context, caseID int64) ([]Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	// CreateSession allocates the next session number for the case,
	// inserts the session, and appends the activity entry.
	CreateSession(ctx context.Context, s Session, activity CaseActivity) (Session, error)
	// UpdateSession applies the sparse patch and stamps completed_at when
	// provided.
	UpdateSession(ctx context.Context, id int64, patch SessionPatch, completedAt *time.Time) (Session, error)
	// AddParticipant inserts a participant row and appends the activity
	// entry on the parent case.
	AddParticipant(ctx context.Context, participant SessionParticipant, activity CaseActivity) (SessionParticipant, error)
}

// ActivityRepository reads the append-only case activity trail.
type ActivityRepository interface {
	ListRecentActivities(ctx context.Context, caseID int64, limit int) ([]CaseActivity, error)
}

// UserRepository exposes the user directory.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// AuthSessionRepository stores issued login tokens.
type AuthSessionRepository interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error
}
