package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

type sessionRepoStub struct {
	sessions map[int64]Session
	list     []Session

	created         Session
	createdActivity CaseActivity
	createErr       error

	updatedPatch SessionPatch
	completedAt  *time.Time
	updateErr    error

	addedParticipant    SessionParticipant
	participantActivity CaseActivity
	addParticipantErr   error
}

func (s *sessionRepoStub) ListSessionsForCase(ctx context.Context, caseID int64) ([]Session, error) {
	return s.list, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, id int64) (Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session, activity CaseActivity) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.created = session
	s.createdActivity = activity
	session.ID = 1
	session.SessionNumber = 1
	return session, nil
}

func (s *sessionRepoStub) UpdateSession(ctx context.Context, id int64, patch SessionPatch, completedAt *time.Time) (Session, error) {
	if s.updateErr != nil {
		return Session{}, s.updateErr
	}
	s.updatedPatch = patch
	s.completedAt = completedAt
	session := s.sessions[id]
	if patch.Status != nil {
		session.Status = *patch.Status
	}
	return session, nil
}

func (s *sessionRepoStub) AddParticipant(ctx context.Context, participant SessionParticipant, activity CaseActivity) (SessionParticipant, error) {
	if s.addParticipantErr != nil {
		return SessionParticipant{}, s.addParticipantErr
	}
	s.addedParticipant = participant
	s.participantActivity = activity
	participant.ID = 1
	return participant, nil
}

type caseReaderStub struct {
	cases    map[int64]Case
	partyIDs []int64
}

func (s *caseReaderStub) GetCase(ctx context.Context, id int64) (Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return Case{}, persistence.ErrNotFound
	}
	return c, nil
}

func (s *caseReaderStub) PartyUserIDs(ctx context.Context, caseID int64) ([]int64, error) {
	return s.partyIDs, nil
}

func newSessionService(repo *sessionRepoStub, cases *caseReaderStub) *SessionService {
	return NewSessionService(repo, cases, nil, fixedNow, nil)
}

func TestSessionService_ListSessionsForCase(t *testing.T) {
	mediatorID := int64(7)
	cases := &caseReaderStub{cases: map[int64]Case{9: {ID: 9, CreatedBy: 2, AssignedMediator: &mediatorID}}}

	t.Run("missing parent case yields not found", func(t *testing.T) {
		svc := newSessionService(&sessionRepoStub{}, cases)

		_, err := svc.ListSessionsForCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 42)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("visibility follows the parent case", func(t *testing.T) {
		repo := &sessionRepoStub{list: []Session{{ID: 1, CaseID: 9}}}
		svc := newSessionService(repo, cases)

		if _, err := svc.ListSessionsForCase(context.Background(), Principal{UserID: 2, Role: RoleClient}, 9); err != nil {
			t.Fatalf("creator must list sessions: %v", err)
		}

		_, err := svc.ListSessionsForCase(context.Background(), Principal{UserID: 3, Role: RoleClient}, 9)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for outsider, got %v", err)
		}
	})
}

func TestSessionService_CreateSession(t *testing.T) {
	mediatorID := int64(7)
	cases := &caseReaderStub{cases: map[int64]Case{9: {ID: 9, CreatedBy: 2, AssignedMediator: &mediatorID}}}

	t.Run("clients may not schedule", func(t *testing.T) {
		svc := newSessionService(&sessionRepoStub{}, cases)

		_, err := svc.CreateSession(context.Background(), Principal{UserID: 2, Role: RoleClient}, SessionInput{
			CaseID:        9,
			Title:         "Opening session",
			ScheduledDate: fixedNow().Add(48 * time.Hour),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("requires title and scheduled date", func(t *testing.T) {
		svc := newSessionService(&sessionRepoStub{}, cases)

		_, err := svc.CreateSession(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, SessionInput{CaseID: 9})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatalf("expected title error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["scheduled_date"]; !ok {
			t.Fatalf("expected scheduled_date error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects durations under the minimum", func(t *testing.T) {
		svc := newSessionService(&sessionRepoStub{}, cases)

		_, err := svc.CreateSession(context.Background(), Principal{UserID: 7, Role: RoleMediator}, SessionInput{
			CaseID:          9,
			Title:           "Short session",
			ScheduledDate:   fixedNow().Add(24 * time.Hour),
			DurationMinutes: 10,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["duration_minutes"]; !ok {
			t.Fatalf("expected duration_minutes error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("applies defaults and records the audit entry", func(t *testing.T) {
		repo := &sessionRepoStub{}
		svc := newSessionService(repo, cases)

		scheduled := time.Date(2025, time.July, 1, 14, 0, 0, 0, time.UTC)
		created, err := svc.CreateSession(context.Background(), Principal{UserID: 7, Role: RoleMediator}, SessionInput{
			CaseID:        9,
			Title:         "Opening session",
			ScheduledDate: scheduled,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.SessionNumber != 1 {
			t.Fatalf("expected allocated session number, got %d", created.SessionNumber)
		}
		if repo.created.DurationMinutes != defaultSessionDuration {
			t.Fatalf("expected default duration, got %d", repo.created.DurationMinutes)
		}
		if repo.created.Location != defaultSessionLocation {
			t.Fatalf("expected default location, got %q", repo.created.Location)
		}
		if repo.created.Status != SessionStatusScheduled {
			t.Fatalf("expected scheduled status, got %q", repo.created.Status)
		}
		if repo.createdActivity.ActivityType != "session_scheduled" {
			t.Fatalf("unexpected activity type %q", repo.createdActivity.ActivityType)
		}
		want := `Session "Opening session" scheduled for 2025-07-01T14:00:00Z`
		if repo.createdActivity.Description != want {
			t.Fatalf("unexpected description %q", repo.createdActivity.Description)
		}
	})

	t.Run("unassigned mediator may not schedule", func(t *testing.T) {
		svc := newSessionService(&sessionRepoStub{}, cases)

		_, err := svc.CreateSession(context.Background(), Principal{UserID: 8, Role: RoleMediator}, SessionInput{
			CaseID:        9,
			Title:         "Opening session",
			ScheduledDate: fixedNow().Add(24 * time.Hour),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSessionService_UpdateSession(t *testing.T) {
	mediatorID := int64(7)
	cases := &caseReaderStub{cases: map[int64]Case{9: {ID: 9, CreatedBy: 2, AssignedMediator: &mediatorID}}}
	baseSession := Session{ID: 3, CaseID: 9, Status: SessionStatusScheduled}

	t.Run("empty patch fails before any write", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		_, err := svc.UpdateSession(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 3, SessionPatch{})
		if !errors.Is(err, ErrNoFieldsToUpdate) {
			t.Fatalf("expected ErrNoFieldsToUpdate, got %v", err)
		}
	})

	t.Run("completion stamps completed_at", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		status := SessionStatusCompleted
		updated, err := svc.UpdateSession(context.Background(), Principal{UserID: 7, Role: RoleMediator}, 3, SessionPatch{Status: &status})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.completedAt == nil || !repo.completedAt.Equal(fixedNow()) {
			t.Fatalf("expected completed_at stamped, got %v", repo.completedAt)
		}
		if updated.Status != SessionStatusCompleted {
			t.Fatalf("expected completed status, got %q", updated.Status)
		}
	})

	t.Run("rejects an unparseable scheduled date", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		// The transport turns a malformed timestamp string into the zero
		// time; it must be refused, not written.
		var zero time.Time
		_, err := svc.UpdateSession(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 3, SessionPatch{ScheduledDate: &zero})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["scheduled_date"]; !ok {
			t.Fatalf("expected scheduled_date error, got %v", vErr.FieldErrors)
		}
		if repo.updatedPatch.ScheduledDate != nil {
			t.Fatal("zero scheduled date must not reach the repository")
		}
	})

	t.Run("rescheduling leaves completed_at untouched", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		newDate := fixedNow().Add(72 * time.Hour)
		_, err := svc.UpdateSession(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 3, SessionPatch{ScheduledDate: &newDate})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.completedAt != nil {
			t.Fatalf("expected no completion stamp, got %v", repo.completedAt)
		}
	})

	t.Run("unassigned mediator may not update", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		status := SessionStatusCompleted
		_, err := svc.UpdateSession(context.Background(), Principal{UserID: 8, Role: RoleMediator}, 3, SessionPatch{Status: &status})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSessionService_AddParticipant(t *testing.T) {
	mediatorID := int64(7)
	cases := &caseReaderStub{cases: map[int64]Case{9: {ID: 9, CreatedBy: 2, AssignedMediator: &mediatorID}}}
	baseSession := Session{ID: 3, CaseID: 9, SessionNumber: 2}

	t.Run("requires a user id", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		_, err := svc.AddParticipant(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 3, 0)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("invites the user and records the audit entry on the parent case", func(t *testing.T) {
		repo := &sessionRepoStub{sessions: map[int64]Session{3: baseSession}}
		svc := newSessionService(repo, cases)

		participant, err := svc.AddParticipant(context.Background(), Principal{UserID: 7, Role: RoleMediator}, 3, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if participant.AttendanceStatus != AttendanceInvited {
			t.Fatalf("expected invited status, got %q", participant.AttendanceStatus)
		}
		if repo.participantActivity.CaseID != 9 {
			t.Fatalf("audit entry must target the parent case, got %d", repo.participantActivity.CaseID)
		}
		if repo.participantActivity.ActivityType != "participant_added" {
			t.Fatalf("unexpected activity type %q", repo.participantActivity.ActivityType)
		}
		if repo.participantActivity.Description != "Participant added to session 2" {
			t.Fatalf("unexpected description %q", repo.participantActivity.Description)
		}
	})

	t.Run("unknown users surface as validation errors", func(t *testing.T) {
		repo := &sessionRepoStub{
			sessions:          map[int64]Session{3: baseSession},
			addParticipantErr: persistence.ErrForeignKeyViolation,
		}
		svc := newSessionService(repo, cases)

		_, err := svc.AddParticipant(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 3, 999)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}
