package application

import (
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

// Role identifies the authorization class of a caller.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMediator Role = "mediator"
	RoleClient   Role = "client"
)

// Principal represents the authenticated user invoking a service method.
// It is always passed explicitly; services never read caller identity
// from ambient state.
type Principal struct {
	UserID int64
	Role   Role
}

// Storage entities and patch types are shared with the persistence layer
// verbatim; the services add no translation beyond what the repositories
// already expose.
type (
	Case               = persistence.Case
	CaseParty          = persistence.CaseParty
	Session            = persistence.Session
	SessionParticipant = persistence.SessionParticipant
	CaseActivity       = persistence.CaseActivity
	User               = persistence.User
	AuthSession        = persistence.AuthSession

	CasePatch    = persistence.CasePatch
	SessionPatch = persistence.SessionPatch
)

// Case priorities and statuses written by the lifecycle services. Status
// transitions are deliberately unvalidated; only the resolution and
// completion side effects are enforced.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusResolved  = "resolved"
	StatusClosed    = "closed"

	SessionStatusScheduled = "scheduled"
	SessionStatusCompleted = "completed"

	PartyTypeClaimant   = "claimant"
	PartyTypeRespondent = "respondent"

	AttendanceInvited = "invited"
)

// CaseInput captures caller provided fields for case creation.
type CaseInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
}

// PartyInput captures caller provided fields for attaching a party.
type PartyInput struct {
	UserID         int64
	PartyType      string
	Organization   string
	Representative string
}

// SessionInput captures caller provided fields for scheduling a session.
type SessionInput struct {
	CaseID          int64
	Title           string
	Description     string
	ScheduledDate   time.Time
	DurationMinutes int
	Location        string
	MeetingLink     string
}

// CaseListFilter narrows case listings on top of role scoping.
type CaseListFilter struct {
	Status     string
	Priority   string
	MediatorID *int64
}

// CaseDetail is the aggregate returned by CaseService.GetCase.
type CaseDetail struct {
	Case       Case
	Parties    []CaseParty
	Sessions   []Session
	Activities []CaseActivity
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User    User
	Session AuthSession
}
