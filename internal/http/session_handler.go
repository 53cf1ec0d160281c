package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/mediation-platform/internal/application"
)

type sessionService interface {
	ListSessionsForCase(ctx context.Context, principal application.Principal, caseID int64) ([]application.Session, error)
	CreateSession(ctx context.Context, principal application.Principal, input application.SessionInput) (application.Session, error)
	UpdateSession(ctx context.Context, principal application.Principal, id int64, patch application.SessionPatch) (application.Session, error)
	AddParticipant(ctx context.Context, principal application.Principal, sessionID, userID int64) (application.SessionParticipant, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

func (h *SessionHandler) ListForCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := CaseIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	sessions, err := h.service.ListSessionsForCase(r.Context(), principal, caseID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	created, err := h.service.CreateSession(r.Context(), principal, application.SessionInput{
		CaseID:          req.CaseID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		ScheduledDate:   parseTime(req.ScheduledDate),
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSessionDTO(created))
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	updated, err := h.service.UpdateSession(r.Context(), principal, sessionID, req.toPatch())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(updated))
}

func (h *SessionHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req addParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	participant, err := h.service.AddParticipant(r.Context(), principal, sessionID, req.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toParticipantDTO(participant))
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type createSessionRequest struct {
	CaseID          int64  `json:"case_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ScheduledDate   string `json:"scheduled_date"`
	DurationMinutes int    `json:"duration_minutes"`
	Location        string `json:"location"`
	MeetingLink     string `json:"meeting_link"`
}

type updateSessionRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	ScheduledDate   *string `json:"scheduled_date"`
	DurationMinutes *int    `json:"duration_minutes"`
	Status          *string `json:"status"`
	Location        *string `json:"location"`
	MeetingLink     *string `json:"meeting_link"`
	Notes           *string `json:"notes"`
}

func (r updateSessionRequest) toPatch() application.SessionPatch {
	patch := application.SessionPatch{
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		Location:        r.Location,
		MeetingLink:     r.MeetingLink,
		Notes:           r.Notes,
	}
	if r.ScheduledDate != nil {
		ts := parseTime(*r.ScheduledDate)
		patch.ScheduledDate = &ts
	}
	return patch
}

type addParticipantRequest struct {
	UserID int64 `json:"user_id"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionDTO struct {
	ID              int64            `json:"id"`
	CaseID          int64            `json:"case_id"`
	SessionNumber   int              `json:"session_number"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	ScheduledDate   string           `json:"scheduled_date"`
	DurationMinutes int              `json:"duration_minutes"`
	Status          string           `json:"status"`
	Location        string           `json:"location,omitempty"`
	MeetingLink     string           `json:"meeting_link,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CompletedAt     string           `json:"completed_at,omitempty"`
	CreatedAt       string           `json:"created_at"`
	Participants    []participantDTO `json:"participants"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:              session.ID,
		CaseID:          session.CaseID,
		SessionNumber:   session.SessionNumber,
		Title:           session.Title,
		Description:     session.Description,
		ScheduledDate:   session.ScheduledDate.UTC().Format(time.RFC3339),
		DurationMinutes: session.DurationMinutes,
		Status:          session.Status,
		Location:        session.Location,
		MeetingLink:     session.MeetingLink,
		Notes:           session.Notes,
		CreatedAt:       session.CreatedAt.UTC().Format(time.RFC3339),
		Participants:    toParticipantDTOs(session.Participants),
	}
	if session.CompletedAt != nil {
		dto.CompletedAt = session.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

type participantDTO struct {
	ID               int64  `json:"id"`
	SessionID        int64  `json:"session_id"`
	UserID           int64  `json:"user_id"`
	AttendanceStatus string `json:"attendance_status"`
	CreatedAt        string `json:"created_at"`
	Name             string `json:"name,omitempty"`
}

func toParticipantDTO(participant application.SessionParticipant) participantDTO {
	return participantDTO{
		ID:               participant.ID,
		SessionID:        participant.SessionID,
		UserID:           participant.UserID,
		AttendanceStatus: participant.AttendanceStatus,
		CreatedAt:        participant.CreatedAt.UTC().Format(time.RFC3339),
		Name:             participant.Name,
	}
}

func toParticipantDTOs(participants []application.SessionParticipant) []participantDTO {
	out := make([]participantDTO, 0, len(participants))
	for _, participant := range participants {
		out = append(out, toParticipantDTO(participant))
	}
	return out
}
