package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/mediation-platform/internal/application"
)

type caseService interface {
	ListCases(ctx context.Context, principal application.Principal, filter application.CaseListFilter) ([]application.Case, error)
	GetCase(ctx context.Context, principal application.Principal, id int64) (application.CaseDetail, error)
	CreateCase(ctx context.Context, principal application.Principal, input application.CaseInput) (application.Case, error)
	UpdateCase(ctx context.Context, principal application.Principal, id int64, patch application.CasePatch) (application.Case, error)
	DeleteCase(ctx context.Context, principal application.Principal, id int64) error
	AddParty(ctx context.Context, principal application.Principal, caseID int64, input application.PartyInput) (application.CaseParty, error)
}

type CaseHandler struct {
	service   caseService
	responder responder
}

func NewCaseHandler(service caseService, logger *slog.Logger) *CaseHandler {
	return &CaseHandler{service: service, responder: newResponder(logger)}
}

func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	cases, err := h.service.ListCases(r.Context(), principal, buildCaseFilter(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCasesResponse{Cases: toCaseDTOs(cases)})
}

func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	caseID, ok := CaseIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	detail, err := h.service.GetCase(r.Context(), principal, caseID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCaseDetailResponse(detail))
}

func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	created, err := h.service.CreateCase(r.Context(), principal, application.CaseInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toCaseDTO(created))
}

func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	caseID, ok := CaseIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	var req updateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	updated, err := h.service.UpdateCase(r.Context(), principal, caseID, req.toPatch())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCaseDTO(updated))
}

func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caseID, ok := CaseIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteCase(r.Context(), principal, caseID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CaseHandler) AddParty(w http.ResponseWriter, r *http.Request) {
	caseID, ok := CaseIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCaseID)
		return
	}

	var req addPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	party, err := h.service.AddParty(r.Context(), principal, caseID, application.PartyInput{
		UserID:         req.UserID,
		PartyType:      req.PartyType,
		Organization:   req.Organization,
		Representative: req.Representative,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPartyDTO(party))
}

func buildCaseFilter(values url.Values) application.CaseListFilter {
	filter := application.CaseListFilter{
		Status:   strings.TrimSpace(values.Get("status")),
		Priority: strings.TrimSpace(values.Get("priority")),
	}
	if raw := strings.TrimSpace(values.Get("mediator_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.MediatorID = &id
		}
	}
	return filter
}

type createCaseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

type updateCaseRequest struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	Status            *string `json:"status"`
	Priority          *string `json:"priority"`
	Category          *string `json:"category"`
	AssignedMediator  *int64  `json:"assigned_mediator"`
	ResolutionSummary *string `json:"resolution_summary"`
}

func (r updateCaseRequest) toPatch() application.CasePatch {
	return application.CasePatch{
		Title:             r.Title,
		Description:       r.Description,
		Status:            r.Status,
		Priority:          r.Priority,
		Category:          r.Category,
		AssignedMediator:  r.AssignedMediator,
		ResolutionSummary: r.ResolutionSummary,
	}
}

type addPartyRequest struct {
	UserID         int64  `json:"user_id"`
	PartyType      string `json:"party_type"`
	Organization   string `json:"organization"`
	Representative string `json:"representative"`
}

type listCasesResponse struct {
	Cases []caseDTO `json:"cases"`
}

type caseDTO struct {
	ID                int64  `json:"id"`
	CaseNumber        string `json:"case_number"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category,omitempty"`
	Priority          string `json:"priority"`
	Status            string `json:"status"`
	CreatedBy         int64  `json:"created_by"`
	AssignedMediator  *int64 `json:"assigned_mediator,omitempty"`
	ResolutionSummary string `json:"resolution_summary,omitempty"`
	ResolutionDate    string `json:"resolution_date,omitempty"`
	CreatedAt         string `json:"created_at"`
	CreatorName       string `json:"creator_name,omitempty"`
	MediatorName      string `json:"mediator_name,omitempty"`
}

func toCaseDTO(c application.Case) caseDTO {
	dto := caseDTO{
		ID:                c.ID,
		CaseNumber:        c.CaseNumber,
		Title:             c.Title,
		Description:       c.Description,
		Category:          c.Category,
		Priority:          c.Priority,
		Status:            c.Status,
		CreatedBy:         c.CreatedBy,
		AssignedMediator:  c.AssignedMediator,
		ResolutionSummary: c.ResolutionSummary,
		CreatedAt:         c.CreatedAt.UTC().Format(time.RFC3339),
		CreatorName:       c.CreatorName,
		MediatorName:      c.MediatorName,
	}
	if c.ResolutionDate != nil {
		dto.ResolutionDate = c.ResolutionDate.UTC().Format(time.RFC3339)
	}
	return dto
}

func toCaseDTOs(cases []application.Case) []caseDTO {
	out := make([]caseDTO, 0, len(cases))
	for _, c := range cases {
		out = append(out, toCaseDTO(c))
	}
	return out
}

type caseDetailResponse struct {
	Case       caseDTO       `json:"case"`
	Parties    []partyDTO    `json:"parties"`
	Sessions   []sessionDTO  `json:"sessions"`
	Activities []activityDTO `json:"activities"`
}

func toCaseDetailResponse(detail application.CaseDetail) caseDetailResponse {
	return caseDetailResponse{
		Case:       toCaseDTO(detail.Case),
		Parties:    toPartyDTOs(detail.Parties),
		Sessions:   toSessionDTOs(detail.Sessions),
		Activities: toActivityDTOs(detail.Activities),
	}
}

type partyDTO struct {
	ID             int64  `json:"id"`
	CaseID         int64  `json:"case_id"`
	UserID         int64  `json:"user_id"`
	PartyType      string `json:"party_type"`
	Organization   string `json:"organization,omitempty"`
	Representative string `json:"representative,omitempty"`
	CreatedAt      string `json:"created_at"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

func toPartyDTO(party application.CaseParty) partyDTO {
	return partyDTO{
		ID:             party.ID,
		CaseID:         party.CaseID,
		UserID:         party.UserID,
		PartyType:      party.PartyType,
		Organization:   party.Organization,
		Representative: party.Representative,
		CreatedAt:      party.CreatedAt.UTC().Format(time.RFC3339),
		Name:           party.Name,
		Email:          party.Email,
		Phone:          party.Phone,
	}
}

func toPartyDTOs(parties []application.CaseParty) []partyDTO {
	out := make([]partyDTO, 0, len(parties))
	for _, party := range parties {
		out = append(out, toPartyDTO(party))
	}
	return out
}

type activityDTO struct {
	ID           int64  `json:"id"`
	CaseID       int64  `json:"case_id"`
	UserID       int64  `json:"user_id"`
	ActivityType string `json:"activity_type"`
	Description  string `json:"description"`
	CreatedAt    string `json:"created_at"`
	UserName     string `json:"user_name,omitempty"`
}

func toActivityDTOs(activities []application.CaseActivity) []activityDTO {
	out := make([]activityDTO, 0, len(activities))
	for _, activity := range activities {
		out = append(out, activityDTO{
			ID:           activity.ID,
			CaseID:       activity.CaseID,
			UserID:       activity.UserID,
			ActivityType: activity.ActivityType,
			Description:  activity.Description,
			CreatedAt:    activity.CreatedAt.UTC().Format(time.RFC3339),
			UserName:     activity.UserName,
		})
	}
	return out
}
