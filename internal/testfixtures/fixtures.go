package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/mediation-platform/internal/persistence"
)

var (
	userCounter    uint64
	caseCounter    uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2025, time.March, 3, 10, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record without an ID; the
// repository assigns one on insert.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	user := persistence.User{
		Email:        fmt.Sprintf("user-%03d@example.com", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		FirstName:    "User",
		LastName:     fmt.Sprintf("%03d", idx),
		Role:         "client",
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserRole overrides the generated role.
func WithUserRole(role string) UserOption {
	return func(u *persistence.User) { u.Role = role }
}

// WithUserName overrides the generated first and last name.
func WithUserName(first, last string) UserOption {
	return func(u *persistence.User) {
		u.FirstName = first
		u.LastName = last
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(u *persistence.User) { u.PasswordHash = hash }
}

// CaseOption configures a generated case fixture.
type CaseOption func(*persistence.Case)

// NewCaseFixture returns a deterministic case record without an ID or
// case number; the repository assigns both on insert.
func NewCaseFixture(createdBy int64, opts ...CaseOption) persistence.Case {
	idx := atomic.AddUint64(&caseCounter, 1)
	c := persistence.Case{
		Title:     fmt.Sprintf("Case %03d", idx),
		Priority:  "medium",
		Status:    "pending",
		CreatedBy: createdBy,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithCaseTitle overrides the generated title.
func WithCaseTitle(title string) CaseOption {
	return func(c *persistence.Case) { c.Title = title }
}

// WithCaseStatus overrides the generated status.
func WithCaseStatus(status string) CaseOption {
	return func(c *persistence.Case) { c.Status = status }
}

// WithCaseMediator assigns the mediator.
func WithCaseMediator(mediatorID int64) CaseOption {
	return func(c *persistence.Case) { c.AssignedMediator = &mediatorID }
}

// WithCaseCreatedAt sets the creation timestamp, which also selects the
// year for case number allocation.
func WithCaseCreatedAt(t time.Time) CaseOption {
	return func(c *persistence.Case) { c.CreatedAt = t }
}

// SessionOption configures a generated session fixture.
type SessionOption func(*persistence.Session)

// NewSessionFixture returns a deterministic session record without an ID
// or session number; the repository assigns both on insert.
func NewSessionFixture(caseID int64, opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	s := persistence.Session{
		CaseID:          caseID,
		Title:           fmt.Sprintf("Session %03d", idx),
		ScheduledDate:   referenceTime.Add(time.Duration(idx) * time.Hour),
		DurationMinutes: 60,
		Status:          "scheduled",
		Location:        "Online",
		CreatedAt:       referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithSessionTitle overrides the generated title.
func WithSessionTitle(title string) SessionOption {
	return func(s *persistence.Session) { s.Title = title }
}

// WithSessionScheduledDate overrides the generated scheduled date.
func WithSessionScheduledDate(t time.Time) SessionOption {
	return func(s *persistence.Session) { s.ScheduledDate = t }
}

// ActivityFixture returns an audit entry for the supplied case and user.
func ActivityFixture(caseID, userID int64, activityType, description string) persistence.CaseActivity {
	return persistence.CaseActivity{
		CaseID:       caseID,
		UserID:       userID,
		ActivityType: activityType,
		Description:  description,
		CreatedAt:    referenceTime,
	}
}
