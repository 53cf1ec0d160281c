package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

// CaseRepository captures the persistence interactions needed by the
// case service.
type CaseRepository interface {
	ListCases(ctx context.Context, filter persistence.CaseFilter) ([]Case, error)
	GetCase(ctx context.Context, id int64) (Case, error)
	CreateCase(ctx context.Context, c Case, activity CaseActivity) (Case, error)
	UpdateCase(ctx context.Context, id int64, patch CasePatch, resolutionDate *time.Time, activity *CaseActivity) (Case, error)
	DeleteCase(ctx context.Context, id int64) error
	AddParty(ctx context.Context, party CaseParty, activity CaseActivity) (CaseParty, error)
	ListParties(ctx context.Context, caseID int64) ([]CaseParty, error)
	PartyUserIDs(ctx context.Context, caseID int64) ([]int64, error)
}

// SessionLister exposes the session lookups the case detail view needs.
type SessionLister interface {
	ListSessionsForCase(ctx context.Context, caseID int64) ([]Session, error)
}

// ActivityReader reads the case audit trail.
type ActivityReader interface {
	ListRecentActivities(ctx context.Context, caseID int64, limit int) ([]CaseActivity, error)
}

// recentActivityLimit bounds the audit entries returned by GetCase.
const recentActivityLimit = 20

// CaseService orchestrates access control, validation, and persistence
// for the case lifecycle.
type CaseService struct {
	cases      CaseRepository
	sessions   SessionLister
	activities ActivityReader
	access     *AccessController
	now        func() time.Time
	logger     *slog.Logger
}

// NewCaseService wires dependencies for case operations.
func NewCaseService(cases CaseRepository, sessions SessionLister, activities ActivityReader, access *AccessController, now func() time.Time, logger *slog.Logger) *CaseService {
	if access == nil {
		access = NewAccessController()
	}
	if now == nil {
		now = time.Now
	}
	return &CaseService{
		cases:      cases,
		sessions:   sessions,
		activities: activities,
		access:     access,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

// ListCases enumerates cases visible to the principal, newest first.
// Clients see cases they created or joined as a party, mediators see
// their assigned cases, admins see everything.
func (s *CaseService) ListCases(ctx context.Context, principal Principal, filter CaseListFilter) ([]Case, error) {
	repoFilter := persistence.CaseFilter{
		Status:     filter.Status,
		Priority:   filter.Priority,
		MediatorID: filter.MediatorID,
	}

	switch principal.Role {
	case RoleAdmin:
	case RoleMediator:
		id := principal.UserID
		repoFilter.AssignedTo = &id
	case RoleClient:
		id := principal.UserID
		repoFilter.VisibleToUser = &id
	default:
		return nil, ErrUnauthorized
	}

	cases, err := s.cases.ListCases(ctx, repoFilter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return cases, nil
}

// GetCase returns a case with its parties, sessions, and recent audit
// entries. A nonexistent id fails with ErrNotFound; an existing case the
// principal may not see fails with ErrUnauthorized.
func (s *CaseService) GetCase(ctx context.Context, principal Principal, id int64) (CaseDetail, error) {
	c, err := s.cases.GetCase(ctx, id)
	if err != nil {
		return CaseDetail{}, mapRepoError(err)
	}

	partyIDs, err := s.cases.PartyUserIDs(ctx, id)
	if err != nil {
		return CaseDetail{}, mapRepoError(err)
	}

	if !s.access.CanView(principal, c, partyIDs) {
		return CaseDetail{}, ErrUnauthorized
	}

	parties, err := s.cases.ListParties(ctx, id)
	if err != nil {
		return CaseDetail{}, mapRepoError(err)
	}

	sessions, err := s.sessions.ListSessionsForCase(ctx, id)
	if err != nil {
		return CaseDetail{}, mapRepoError(err)
	}

	activities, err := s.activities.ListRecentActivities(ctx, id, recentActivityLimit)
	if err != nil {
		return CaseDetail{}, mapRepoError(err)
	}

	return CaseDetail{Case: c, Parties: parties, Sessions: sessions, Activities: activities}, nil
}

// CreateCase opens a new case for the principal. The case number, the
// insert, and the audit entry commit atomically in the repository.
func (s *CaseService) CreateCase(ctx context.Context, principal Principal, input CaseInput) (Case, error) {
	logger := serviceLogger(ctx, s.logger, "CaseService", "CreateCase", "user_id", principal.UserID)

	title := strings.TrimSpace(input.Title)
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	vErr := &ValidationError{}
	if title == "" {
		vErr.add("title", "title is required")
	}
	if !validPriority(priority) {
		vErr.add("priority", "priority must be one of low, medium, high, urgent")
	}
	if vErr.HasErrors() {
		return Case{}, vErr
	}

	now := s.now()
	created, err := s.cases.CreateCase(ctx, Case{
		Title:       title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    priority,
		Status:      StatusPending,
		CreatedBy:   principal.UserID,
		CreatedAt:   now,
	}, CaseActivity{
		UserID:       principal.UserID,
		ActivityType: "case_created",
		Description:  fmt.Sprintf("Case \"%s\" was created", title),
		CreatedAt:    now,
	})
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "case creation failed", "error", err, "error_kind", ErrorKind(err))
		return Case{}, err
	}

	logger.InfoContext(ctx, "case created", "case_id", created.ID, "case_number", created.CaseNumber)
	return created, nil
}

// UpdateCase applies a sparse patch to a case. Only fields present in
// the patch are written; a patch naming no fields fails with
// ErrNoFieldsToUpdate before any write. Transitioning status to resolved
// or closed stamps resolution_date, and material changes append one
// audit entry, all in the repository transaction.
func (s *CaseService) UpdateCase(ctx context.Context, principal Principal, id int64, patch CasePatch) (Case, error) {
	logger := serviceLogger(ctx, s.logger, "CaseService", "UpdateCase", "user_id", principal.UserID, "case_id", id)

	if !s.access.CanMutate(principal, RoleAdmin, RoleMediator) {
		return Case{}, ErrUnauthorized
	}

	existing, err := s.cases.GetCase(ctx, id)
	if err != nil {
		return Case{}, mapRepoError(err)
	}

	if !s.access.CanManageCase(principal, existing, RoleAdmin, RoleMediator) {
		return Case{}, ErrUnauthorized
	}

	if !patch.HasFields() {
		return Case{}, ErrNoFieldsToUpdate
	}

	now := s.now()
	var resolutionDate *time.Time
	if patch.Status != nil && (*patch.Status == StatusResolved || *patch.Status == StatusClosed) {
		resolutionDate = &now
	}

	var activity *CaseActivity
	if changes := describeCaseChanges(existing, patch); len(changes) > 0 {
		activity = &CaseActivity{
			CaseID:       id,
			UserID:       principal.UserID,
			ActivityType: "case_updated",
			Description:  strings.Join(changes, "; "),
			CreatedAt:    now,
		}
	}

	updated, err := s.cases.UpdateCase(ctx, id, patch, resolutionDate, activity)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "case update failed", "error", err, "error_kind", ErrorKind(err))
		return Case{}, err
	}

	logger.InfoContext(ctx, "case updated")
	return updated, nil
}

// DeleteCase removes a case and, through ownership, its parties,
// sessions, participants, and activities. Admin only.
func (s *CaseService) DeleteCase(ctx context.Context, principal Principal, id int64) error {
	logger := serviceLogger(ctx, s.logger, "CaseService", "DeleteCase", "user_id", principal.UserID, "case_id", id)

	if !s.access.CanMutate(principal, RoleAdmin) {
		return ErrUnauthorized
	}

	if err := s.cases.DeleteCase(ctx, id); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "case deletion failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "case deleted")
	return nil
}

// AddParty attaches a user to a case as claimant or respondent and
// appends the audit entry atomically.
func (s *CaseService) AddParty(ctx context.Context, principal Principal, caseID int64, input PartyInput) (CaseParty, error) {
	logger := serviceLogger(ctx, s.logger, "CaseService", "AddParty", "user_id", principal.UserID, "case_id", caseID)

	if !s.access.CanMutate(principal, RoleAdmin, RoleMediator) {
		return CaseParty{}, ErrUnauthorized
	}

	existing, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return CaseParty{}, mapRepoError(err)
	}

	if !s.access.CanManageCase(principal, existing, RoleAdmin, RoleMediator) {
		return CaseParty{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if input.UserID <= 0 {
		vErr.add("user_id", "user_id is required")
	}
	if input.PartyType != PartyTypeClaimant && input.PartyType != PartyTypeRespondent {
		vErr.add("party_type", "party_type must be claimant or respondent")
	}
	if vErr.HasErrors() {
		return CaseParty{}, vErr
	}

	now := s.now()
	party, err := s.cases.AddParty(ctx, CaseParty{
		CaseID:         caseID,
		UserID:         input.UserID,
		PartyType:      input.PartyType,
		Organization:   input.Organization,
		Representative: input.Representative,
		CreatedAt:      now,
	}, CaseActivity{
		CaseID:       caseID,
		UserID:       principal.UserID,
		ActivityType: "party_added",
		Description:  "Party added as " + input.PartyType,
		CreatedAt:    now,
	})
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "party addition failed", "error", err, "error_kind", ErrorKind(err))
		return CaseParty{}, err
	}

	logger.InfoContext(ctx, "party added", "party_user_id", input.UserID)
	return party, nil
}

// describeCaseChanges builds the audit description for an update by
// comparing the stored snapshot against the patch. Only status changes
// and new mediator assignments are considered material.
func describeCaseChanges(existing Case, patch CasePatch) []string {
	var changes []string

	if patch.Status != nil && *patch.Status != existing.Status {
		changes = append(changes, fmt.Sprintf("Status changed from \"%s\" to \"%s\"", existing.Status, *patch.Status))
	}

	if patch.AssignedMediator != nil {
		if existing.AssignedMediator == nil || *existing.AssignedMediator != *patch.AssignedMediator {
			changes = append(changes, "Mediator assigned")
		}
	}

	return changes
}

func validPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// mapRepoError translates persistence sentinels into application errors.
// Anything unrecognized surfaces unchanged and is reported generically
// to callers; the detail stays in server-side logs.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("user_id", "referenced record does not exist")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("fields", "a field value violates a storage constraint")
		return vErr
	}
	return err
}
