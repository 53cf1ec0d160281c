package persistence

import "time"

// User represents an account in the mediation platform.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	CreatedAt    time.Time
}

// Case represents a mediation case row, including joined display fields.
type Case struct {
	ID                int64
	CaseNumber        string
	Title             string
	Description       string
	Category          string
	Priority          string
	Status            string
	CreatedBy         int64
	AssignedMediator  *int64
	ResolutionSummary string
	ResolutionDate    *time.Time
	CreatedAt         time.Time

	CreatorName  string
	MediatorName string
}

// CaseParty represents a user attached to a case as claimant or respondent.
type CaseParty struct {
	ID             int64
	CaseID         int64
	UserID         int64
	PartyType      string
	Organization   string
	Representative string
	CreatedAt      time.Time

	Name  string
	Email string
	Phone string
}

// Session represents a scheduled mediation meeting belonging to a case.
type Session struct {
	ID              int64
	CaseID          int64
	SessionNumber   int
	Title           string
	Description     string
	ScheduledDate   time.Time
	DurationMinutes int
	Status          string
	Location        string
	MeetingLink     string
	Notes           string
	CompletedAt     *time.Time
	CreatedAt       time.Time

	Participants []SessionParticipant
}

// SessionParticipant represents a user invited to a session.
type SessionParticipant struct {
	ID               int64
	SessionID        int64
	UserID           int64
	AttendanceStatus string
	CreatedAt        time.Time

	Name string
}

// CaseActivity is one append-only audit entry on a case.
type CaseActivity struct {
	ID           int64
	CaseID       int64
	UserID       int64
	ActivityType string
	Description  string
	CreatedAt    time.Time

	UserName string
}

// AuthSession stores an opaque login token issued by the auth service.
type AuthSession struct {
	ID        string
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// CaseFilter narrows case listing queries. Zero values mean "no filter";
// the visibility fields implement role scoping.
type CaseFilter struct {
	Status     string
	Priority   string
	MediatorID *int64

	// VisibleToUser restricts results to cases the user created or is a
	// party of (client scoping).
	VisibleToUser *int64
	// AssignedTo restricts results to cases assigned to the mediator.
	AssignedTo *int64
}

// CasePatch carries the sparse set of case fields to overwrite. Nil
// pointers leave the stored value untouched.
type CasePatch struct {
	Title             *string
	Description       *string
	Status            *string
	Priority          *string
	Category          *string
	AssignedMediator  *int64
	ResolutionSummary *string
}

// HasFields reports whether the patch names at least one column.
func (p CasePatch) HasFields() bool {
	return p.Title != nil || p.Description != nil || p.Status != nil ||
		p.Priority != nil || p.Category != nil || p.AssignedMediator != nil ||
		p.ResolutionSummary != nil
}

// SessionPatch carries the sparse set of session fields to overwrite.
type SessionPatch struct {
	Title           *string
	Description     *string
	ScheduledDate   *time.Time
	DurationMinutes *int
	Status          *string
	Location        *string
	MeetingLink     *string
	Notes           *string
}

// HasFields reports whether the patch names at least one column.
func (p SessionPatch) HasFields() bool {
	return p.Title != nil || p.Description != nil || p.ScheduledDate != nil ||
		p.DurationMinutes != nil || p.Status != nil || p.Location != nil ||
		p.MeetingLink != nil || p.Notes != nil
}
