package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionRepository captures the persistence interactions needed by the
// session service.
type SessionRepository interface {
	ListSessionsForCase(ctx context.Context, caseID int64) ([]Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	CreateSession(ctx context.Context, session Session, activity CaseActivity) (Session, error)
	UpdateSession(ctx context.Context, id int64, patch SessionPatch, completedAt *time.Time) (Session, error)
	AddParticipant(ctx context.Context, participant SessionParticipant, activity CaseActivity) (SessionParticipant, error)
}

// CaseReader exposes the case lookups the session service needs to
// enforce per-case access.
type CaseReader interface {
	GetCase(ctx context.Context, id int64) (Case, error)
	PartyUserIDs(ctx context.Context, caseID int64) ([]int64, error)
}

const (
	defaultSessionDuration = 60
	minimumSessionDuration = 15
	defaultSessionLocation = "Online"
)

// SessionService orchestrates the mediation session lifecycle. Every
// operation resolves the parent case first so that access decisions are
// always made against the case, never the session alone.
type SessionService struct {
	sessions SessionRepository
	cases    CaseReader
	access   *AccessController
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, cases CaseReader, access *AccessController, now func() time.Time, logger *slog.Logger) *SessionService {
	if access == nil {
		access = NewAccessController()
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions: sessions,
		cases:    cases,
		access:   access,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// ListSessionsForCase returns the case's sessions, most recent first,
// with participants attached. Visibility follows the parent case.
func (s *SessionService) ListSessionsForCase(ctx context.Context, principal Principal, caseID int64) ([]Session, error) {
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	partyIDs, err := s.cases.PartyUserIDs(ctx, caseID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if !s.access.CanView(principal, c, partyIDs) {
		return nil, ErrUnauthorized
	}

	sessions, err := s.sessions.ListSessionsForCase(ctx, caseID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return sessions, nil
}

// CreateSession schedules a session on a case. The per-case session
// number, the insert, and the audit entry commit atomically in the
// repository.
func (s *SessionService) CreateSession(ctx context.Context, principal Principal, input SessionInput) (Session, error) {
	logger := serviceLogger(ctx, s.logger, "SessionService", "CreateSession", "user_id", principal.UserID, "case_id", input.CaseID)

	if !s.access.CanMutate(principal, RoleAdmin, RoleMediator) {
		return Session{}, ErrUnauthorized
	}

	c, err := s.cases.GetCase(ctx, input.CaseID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	if !s.access.CanManageCase(principal, c, RoleAdmin, RoleMediator) {
		return Session{}, ErrUnauthorized
	}

	duration := input.DurationMinutes
	if duration == 0 {
		duration = defaultSessionDuration
	}
	location := input.Location
	if location == "" {
		location = defaultSessionLocation
	}

	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.ScheduledDate.IsZero() {
		vErr.add("scheduled_date", "scheduled_date is required")
	}
	if duration < minimumSessionDuration {
		vErr.add("duration_minutes", fmt.Sprintf("duration_minutes must be at least %d", minimumSessionDuration))
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	now := s.now()
	scheduled := input.ScheduledDate.UTC()
	created, err := s.sessions.CreateSession(ctx, Session{
		CaseID:          input.CaseID,
		Title:           input.Title,
		Description:     input.Description,
		ScheduledDate:   scheduled,
		DurationMinutes: duration,
		Status:          SessionStatusScheduled,
		Location:        location,
		MeetingLink:     input.MeetingLink,
		CreatedAt:       now,
	}, CaseActivity{
		CaseID:       input.CaseID,
		UserID:       principal.UserID,
		ActivityType: "session_scheduled",
		Description:  fmt.Sprintf("Session \"%s\" scheduled for %s", input.Title, scheduled.Format(time.RFC3339)),
		CreatedAt:    now,
	})
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "session creation failed", "error", err, "error_kind", ErrorKind(err))
		return Session{}, err
	}

	logger.InfoContext(ctx, "session created", "session_id", created.ID, "session_number", created.SessionNumber)
	return created, nil
}

// UpdateSession applies a sparse patch to a session. A patch naming no
// fields fails with ErrNoFieldsToUpdate before any write, and moving
// status to completed stamps completed_at.
func (s *SessionService) UpdateSession(ctx context.Context, principal Principal, id int64, patch SessionPatch) (Session, error) {
	logger := serviceLogger(ctx, s.logger, "SessionService", "UpdateSession", "user_id", principal.UserID, "session_id", id)

	if !s.access.CanMutate(principal, RoleAdmin, RoleMediator) {
		return Session{}, ErrUnauthorized
	}

	existing, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	c, err := s.cases.GetCase(ctx, existing.CaseID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	if !s.access.CanManageCase(principal, c, RoleAdmin, RoleMediator) {
		return Session{}, ErrUnauthorized
	}

	if !patch.HasFields() {
		return Session{}, ErrNoFieldsToUpdate
	}

	vErr := &ValidationError{}
	// A present zero time means the caller sent a value the transport
	// could not parse; writing it would silently corrupt the schedule.
	if patch.ScheduledDate != nil && patch.ScheduledDate.IsZero() {
		vErr.add("scheduled_date", "scheduled_date must be a valid timestamp")
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes < minimumSessionDuration {
		vErr.add("duration_minutes", fmt.Sprintf("duration_minutes must be at least %d", minimumSessionDuration))
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	var completedAt *time.Time
	if patch.Status != nil && *patch.Status == SessionStatusCompleted {
		now := s.now()
		completedAt = &now
	}

	updated, err := s.sessions.UpdateSession(ctx, id, patch, completedAt)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "session update failed", "error", err, "error_kind", ErrorKind(err))
		return Session{}, err
	}

	logger.InfoContext(ctx, "session updated")
	return updated, nil
}

// AddParticipant invites a user to a session and appends the audit
// entry on the parent case atomically.
func (s *SessionService) AddParticipant(ctx context.Context, principal Principal, sessionID, userID int64) (SessionParticipant, error) {
	logger := serviceLogger(ctx, s.logger, "SessionService", "AddParticipant", "user_id", principal.UserID, "session_id", sessionID)

	if !s.access.CanMutate(principal, RoleAdmin, RoleMediator) {
		return SessionParticipant{}, ErrUnauthorized
	}

	existing, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return SessionParticipant{}, mapRepoError(err)
	}

	c, err := s.cases.GetCase(ctx, existing.CaseID)
	if err != nil {
		return SessionParticipant{}, mapRepoError(err)
	}

	if !s.access.CanManageCase(principal, c, RoleAdmin, RoleMediator) {
		return SessionParticipant{}, ErrUnauthorized
	}

	if userID <= 0 {
		vErr := &ValidationError{}
		vErr.add("user_id", "user_id is required")
		return SessionParticipant{}, vErr
	}

	now := s.now()
	participant, err := s.sessions.AddParticipant(ctx, SessionParticipant{
		SessionID:        sessionID,
		UserID:           userID,
		AttendanceStatus: AttendanceInvited,
		CreatedAt:        now,
	}, CaseActivity{
		CaseID:       existing.CaseID,
		UserID:       principal.UserID,
		ActivityType: "participant_added",
		Description:  fmt.Sprintf("Participant added to session %d", existing.SessionNumber),
		CreatedAt:    now,
	})
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "participant addition failed", "error", err, "error_kind", ErrorKind(err))
		return SessionParticipant{}, err
	}

	logger.InfoContext(ctx, "participant added", "participant_user_id", userID)
	return participant, nil
}
