package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

type caseRepoStub struct {
	cases      map[int64]Case
	partyIDs   []int64
	parties    []CaseParty
	listFilter persistence.CaseFilter
	listResult []Case
	listErr    error

	created         Case
	createdActivity CaseActivity
	createErr       error

	updatedPatch    CasePatch
	updatedActivity *CaseActivity
	resolutionDate  *time.Time
	updateErr       error

	deletedID int64
	deleteErr error

	addedParty    CaseParty
	partyActivity CaseActivity
	addPartyErr   error
}

func (s *caseRepoStub) ListCases(ctx context.Context, filter persistence.CaseFilter) ([]Case, error) {
	s.listFilter = filter
	return s.listResult, s.listErr
}

func (s *caseRepoStub) GetCase(ctx context.Context, id int64) (Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return Case{}, persistence.ErrNotFound
	}
	return c, nil
}

func (s *caseRepoStub) CreateCase(ctx context.Context, c Case, activity CaseActivity) (Case, error) {
	if s.createErr != nil {
		return Case{}, s.createErr
	}
	s.created = c
	s.createdActivity = activity
	c.ID = 1
	c.CaseNumber = "MED-2025-0001"
	return c, nil
}

func (s *caseRepoStub) UpdateCase(ctx context.Context, id int64, patch CasePatch, resolutionDate *time.Time, activity *CaseActivity) (Case, error) {
	if s.updateErr != nil {
		return Case{}, s.updateErr
	}
	s.updatedPatch = patch
	s.updatedActivity = activity
	s.resolutionDate = resolutionDate
	c := s.cases[id]
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	return c, nil
}

func (s *caseRepoStub) DeleteCase(ctx context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *caseRepoStub) AddParty(ctx context.Context, party CaseParty, activity CaseActivity) (CaseParty, error) {
	if s.addPartyErr != nil {
		return CaseParty{}, s.addPartyErr
	}
	s.addedParty = party
	s.partyActivity = activity
	party.ID = 1
	return party, nil
}

func (s *caseRepoStub) ListParties(ctx context.Context, caseID int64) ([]CaseParty, error) {
	return s.parties, nil
}

func (s *caseRepoStub) PartyUserIDs(ctx context.Context, caseID int64) ([]int64, error) {
	return s.partyIDs, nil
}

type sessionListerStub struct {
	sessions []Session
	err      error
}

func (s *sessionListerStub) ListSessionsForCase(ctx context.Context, caseID int64) ([]Session, error) {
	return s.sessions, s.err
}

type activityReaderStub struct {
	activities []CaseActivity
	limit      int
}

func (s *activityReaderStub) ListRecentActivities(ctx context.Context, caseID int64, limit int) ([]CaseActivity, error) {
	s.limit = limit
	return s.activities, nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
}

func newCaseService(repo *caseRepoStub) (*CaseService, *sessionListerStub, *activityReaderStub) {
	sessions := &sessionListerStub{}
	activities := &activityReaderStub{}
	return NewCaseService(repo, sessions, activities, nil, fixedNow, nil), sessions, activities
}

func TestCaseService_ListCases(t *testing.T) {
	t.Run("client lists only visible cases", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		_, err := svc.ListCases(context.Background(), Principal{UserID: 5, Role: RoleClient}, CaseListFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.listFilter.VisibleToUser == nil || *repo.listFilter.VisibleToUser != 5 {
			t.Fatalf("expected visibility scoping to user 5, got %+v", repo.listFilter)
		}
		if repo.listFilter.AssignedTo != nil {
			t.Fatalf("client filter must not scope by assignment")
		}
	})

	t.Run("mediator lists assigned cases", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		_, err := svc.ListCases(context.Background(), Principal{UserID: 7, Role: RoleMediator}, CaseListFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.listFilter.AssignedTo == nil || *repo.listFilter.AssignedTo != 7 {
			t.Fatalf("expected assignment scoping to user 7, got %+v", repo.listFilter)
		}
	})

	t.Run("admin lists everything with filters passed through", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)
		mediatorID := int64(4)

		_, err := svc.ListCases(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, CaseListFilter{
			Status:     "active",
			Priority:   "high",
			MediatorID: &mediatorID,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.listFilter.VisibleToUser != nil || repo.listFilter.AssignedTo != nil {
			t.Fatalf("admin filter must not be scoped, got %+v", repo.listFilter)
		}
		if repo.listFilter.Status != "active" || repo.listFilter.Priority != "high" {
			t.Fatalf("filters not forwarded: %+v", repo.listFilter)
		}
		if repo.listFilter.MediatorID == nil || *repo.listFilter.MediatorID != 4 {
			t.Fatalf("mediator filter not forwarded: %+v", repo.listFilter)
		}
	})

	t.Run("unknown role is denied", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		_, err := svc.ListCases(context.Background(), Principal{UserID: 1, Role: "auditor"}, CaseListFilter{})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestCaseService_GetCase(t *testing.T) {
	t.Run("missing case yields not found", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{}}
		svc, _, _ := newCaseService(repo)

		_, err := svc.GetCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 42)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("existing but inaccessible case yields access denied", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: {ID: 9, CreatedBy: 2}}}
		svc, _, _ := newCaseService(repo)

		_, err := svc.GetCase(context.Background(), Principal{UserID: 6, Role: RoleClient}, 9)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("aggregates parties sessions and recent activities", func(t *testing.T) {
		repo := &caseRepoStub{
			cases:    map[int64]Case{9: {ID: 9, CreatedBy: 6}},
			parties:  []CaseParty{{ID: 1, CaseID: 9, UserID: 3}},
			partyIDs: []int64{3},
		}
		svc, sessions, activities := newCaseService(repo)
		sessions.sessions = []Session{{ID: 2, CaseID: 9}}
		activities.activities = []CaseActivity{{ID: 4, CaseID: 9}}

		detail, err := svc.GetCase(context.Background(), Principal{UserID: 6, Role: RoleClient}, 9)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(detail.Parties) != 1 || len(detail.Sessions) != 1 || len(detail.Activities) != 1 {
			t.Fatalf("incomplete detail: %+v", detail)
		}
		if activities.limit != recentActivityLimit {
			t.Fatalf("expected activity limit %d, got %d", recentActivityLimit, activities.limit)
		}
	})
}

func TestCaseService_CreateCase(t *testing.T) {
	t.Run("requires a title", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		_, err := svc.CreateCase(context.Background(), Principal{UserID: 6, Role: RoleClient}, CaseInput{Title: "  "})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatalf("expected title validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		_, err := svc.CreateCase(context.Background(), Principal{UserID: 6, Role: RoleClient}, CaseInput{
			Title:    "Contract dispute",
			Priority: "extreme",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["priority"]; !ok {
			t.Fatalf("expected priority validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("applies defaults and records the audit entry", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		created, err := svc.CreateCase(context.Background(), Principal{UserID: 6, Role: RoleClient}, CaseInput{
			Title: "Contract dispute",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.CaseNumber == "" {
			t.Fatal("expected an allocated case number")
		}
		if repo.created.Priority != PriorityMedium {
			t.Fatalf("expected default priority, got %q", repo.created.Priority)
		}
		if repo.created.Status != StatusPending {
			t.Fatalf("expected pending status, got %q", repo.created.Status)
		}
		if repo.created.CreatedBy != 6 {
			t.Fatalf("expected creator stamped, got %d", repo.created.CreatedBy)
		}
		if !repo.created.CreatedAt.Equal(fixedNow()) {
			t.Fatalf("expected creation timestamp from clock, got %v", repo.created.CreatedAt)
		}
		if repo.createdActivity.ActivityType != "case_created" {
			t.Fatalf("unexpected activity type %q", repo.createdActivity.ActivityType)
		}
		if repo.createdActivity.Description != `Case "Contract dispute" was created` {
			t.Fatalf("unexpected activity description %q", repo.createdActivity.Description)
		}
	})
}

func TestCaseService_UpdateCase(t *testing.T) {
	mediatorID := int64(7)
	baseCase := Case{ID: 9, Status: StatusActive, CreatedBy: 2, AssignedMediator: &mediatorID}

	t.Run("clients may not update", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		status := StatusResolved
		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 2, Role: RoleClient}, 9, CasePatch{Status: &status})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unassigned mediator may not update", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		status := StatusResolved
		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 8, Role: RoleMediator}, 9, CasePatch{Status: &status})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("empty patch fails before any write", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9, CasePatch{})
		if !errors.Is(err, ErrNoFieldsToUpdate) {
			t.Fatalf("expected ErrNoFieldsToUpdate, got %v", err)
		}
		if repo.updatedPatch.HasFields() {
			t.Fatal("repository must not be called for an empty patch")
		}
	})

	t.Run("resolving stamps resolution date and logs the change", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		status := StatusResolved
		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 7, Role: RoleMediator}, 9, CasePatch{Status: &status})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.resolutionDate == nil || !repo.resolutionDate.Equal(fixedNow()) {
			t.Fatalf("expected resolution date stamped, got %v", repo.resolutionDate)
		}
		if repo.updatedActivity == nil {
			t.Fatal("expected an audit entry for the status change")
		}
		if repo.updatedActivity.Description != `Status changed from "active" to "resolved"` {
			t.Fatalf("unexpected description %q", repo.updatedActivity.Description)
		}
	})

	t.Run("combined status and mediator change joins descriptions", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: {ID: 9, Status: StatusPending, CreatedBy: 2}}}
		svc, _, _ := newCaseService(repo)

		status := StatusActive
		newMediator := int64(12)
		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9, CasePatch{
			Status:           &status,
			AssignedMediator: &newMediator,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.resolutionDate != nil {
			t.Fatal("activation must not stamp resolution date")
		}
		want := `Status changed from "pending" to "active"; Mediator assigned`
		if repo.updatedActivity == nil || repo.updatedActivity.Description != want {
			t.Fatalf("unexpected audit entry %+v", repo.updatedActivity)
		}
	})

	t.Run("immaterial patch writes no audit entry", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		summary := "parties reached partial agreement"
		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9, CasePatch{
			ResolutionSummary: &summary,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.updatedActivity != nil {
			t.Fatalf("expected no audit entry, got %+v", repo.updatedActivity)
		}
	})

	t.Run("same mediator reassignment is not logged", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		same := mediatorID
		_, err := svc.UpdateCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9, CasePatch{
			AssignedMediator: &same,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.updatedActivity != nil {
			t.Fatalf("expected no audit entry, got %+v", repo.updatedActivity)
		}
	})
}

func TestCaseService_DeleteCase(t *testing.T) {
	t.Run("mediators may not delete", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		err := svc.DeleteCase(context.Background(), Principal{UserID: 7, Role: RoleMediator}, 9)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("admin deletes and missing cases map to not found", func(t *testing.T) {
		repo := &caseRepoStub{}
		svc, _, _ := newCaseService(repo)

		if err := svc.DeleteCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repo.deletedID != 9 {
			t.Fatalf("expected delete of case 9, got %d", repo.deletedID)
		}

		repo.deleteErr = persistence.ErrNotFound
		err := svc.DeleteCase(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 10)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCaseService_AddParty(t *testing.T) {
	mediatorID := int64(7)
	baseCase := Case{ID: 9, Status: StatusActive, CreatedBy: 2, AssignedMediator: &mediatorID}

	t.Run("validates user id and party type", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		_, err := svc.AddParty(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9, PartyInput{
			PartyType: "witness",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["user_id"]; !ok {
			t.Fatalf("expected user_id error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["party_type"]; !ok {
			t.Fatalf("expected party_type error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("records party and audit entry", func(t *testing.T) {
		repo := &caseRepoStub{cases: map[int64]Case{9: baseCase}}
		svc, _, _ := newCaseService(repo)

		party, err := svc.AddParty(context.Background(), Principal{UserID: 7, Role: RoleMediator}, 9, PartyInput{
			UserID:    3,
			PartyType: PartyTypeClaimant,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if party.ID == 0 {
			t.Fatal("expected stored party returned")
		}
		if repo.partyActivity.ActivityType != "party_added" {
			t.Fatalf("unexpected activity type %q", repo.partyActivity.ActivityType)
		}
		if repo.partyActivity.Description != "Party added as claimant" {
			t.Fatalf("unexpected description %q", repo.partyActivity.Description)
		}
	})

	t.Run("unknown users surface as validation errors", func(t *testing.T) {
		repo := &caseRepoStub{
			cases:       map[int64]Case{9: baseCase},
			addPartyErr: persistence.ErrForeignKeyViolation,
		}
		svc, _, _ := newCaseService(repo)

		_, err := svc.AddParty(context.Background(), Principal{UserID: 1, Role: RoleAdmin}, 9, PartyInput{
			UserID:    999,
			PartyType: PartyTypeRespondent,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}
