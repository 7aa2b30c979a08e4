package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"opsflow/internal/auth"
	"opsflow/internal/model"
	"opsflow/internal/service"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) createRequest(w http.ResponseWriter, r *http.Request) {
	var input service.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	createdBy := auth.GetStaffID(r.Context())
	if createdBy == "" {
		createdBy = "anonymous"
	}
	input.CreatedBy = createdBy

	result, err := d.Lifecycle.CreateRequest(r.Context(), input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "create_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func (d Dependencies) getRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := d.Lifecycle.GetRequest(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Request not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(req)
}

func (d Dependencies) claimRequest(w http.ResponseWriter, r *http.Request) {
	d.transition(w, r, d.Lifecycle.Claim)
}

func (d Dependencies) departRequest(w http.ResponseWriter, r *http.Request) {
	d.transition(w, r, d.Lifecycle.Depart)
}

func (d Dependencies) startWork(w http.ResponseWriter, r *http.Request) {
	d.transition(w, r, d.Lifecycle.StartWork)
}

func (d Dependencies) finishRequest(w http.ResponseWriter, r *http.Request) {
	d.transition(w, r, d.Lifecycle.Finish)
}

func (d Dependencies) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) (*model.MaintenanceRequest, error)) {
	id := chi.URLParam(r, "id")

	staffID := auth.GetStaffID(r.Context())
	if staffID == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Staff identity required", d.Log)
		return
	}

	req, err := op(r.Context(), id, staffID)
	if err != nil {
		writeLifecycleError(w, err, d)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(req)
}

// writeLifecycleError maps the typed lifecycle errors onto HTTP. A lost
// claim race gets its own code so the UI can say "this request was
// already taken" instead of a generic failure.
func writeLifecycleError(w http.ResponseWriter, err error, d Dependencies) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Request not found", d.Log)
	case errors.Is(err, service.ErrAlreadyClaimed):
		WriteError(w, http.StatusConflict, "already_claimed", "This request was already taken", d.Log)
	case errors.Is(err, service.ErrNotAssignee):
		WriteError(w, http.StatusForbidden, "not_assignee", "Request is assigned to someone else", d.Log)
	case errors.Is(err, service.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "invalid_transition", "Request is not in the required state", d.Log)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), d.Log)
	}
}
