package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/petite-maison/internal/fanzine"
)

type CreateSubscriptionRequest struct {
	Type string `json:"type" validate:"required,oneof=PAPER DIGITAL BOTH"`
}

type FanzineHandler struct {
	service  fanzine.Service
	validate *validator.Validate
}

func NewFanzineHandler(service fanzine.Service) *FanzineHandler {
	return &FanzineHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *FanzineHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.ListIssues(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list issues")
		return
	}
	respondWithJSON(w, http.StatusOK, issues)
}

func (h *FanzineHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	issueID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	issue, err := h.service.GetIssue(r.Context(), issueID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get issue")
		return
	}
	respondWithJSON(w, http.StatusOK, issue)
}

func (h *FanzineHandler) ReadIssue(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	issueID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	access, err := h.service.ResolveAccess(r.Context(), identity.UserID, issueID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to resolve issue access")
		return
	}
	respondWithJSON(w, http.StatusOK, access)
}

func (h *FanzineHandler) Library(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	lib, err := h.service.Library(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load library")
		return
	}
	respondWithJSON(w, http.StatusOK, lib)
}

func (h *FanzineHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListSubscriptions(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list subscriptions")
		return
	}
	respondWithJSON(w, http.StatusOK, subs)
}

func (h *FanzineHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	var req CreateSubscriptionRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	sub, err := h.service.CreateSubscription(r.Context(), identity.UserID, fanzine.SubscriptionType(req.Type), clientIP(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create subscription")
		return
	}
	respondWithJSON(w, http.StatusCreated, sub)
}

func (h *FanzineHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	subID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	sub, err := h.service.CancelSubscription(r.Context(), identity.UserID, subID, clientIP(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to cancel subscription")
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}
