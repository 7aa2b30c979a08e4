package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"opsflow/internal/auth"
	"opsflow/internal/service"

	"github.com/go-chi/chi/v5"
)

type requestExtensionRequest struct {
	AdditionalHours int    `json:"additionalHours"`
	Reason          string `json:"reason"`
}

func (d Dependencies) requestExtension(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	staffID := auth.GetStaffID(r.Context())
	if staffID == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Staff identity required", d.Log)
		return
	}

	var body requestExtensionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	ext, err := d.Extensions.RequestExtension(r.Context(), requestID, staffID, body.AdditionalHours, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			WriteError(w, http.StatusNotFound, "not_found", "Request not found", d.Log)
		case errors.Is(err, service.ErrExtensionAlreadyPending):
			WriteError(w, http.StatusConflict, "extension_pending", "A pending extension already exists for this request", d.Log)
		default:
			WriteError(w, http.StatusBadRequest, "extension_failed", err.Error(), d.Log)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ext)
}

func (d Dependencies) getExtension(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ext, err := d.Extensions.GetExtension(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Extension not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ext)
}

type reviewExtensionRequest struct {
	Approve bool    `json:"approve"`
	Notes   *string `json:"notes,omitempty"`
}

func (d Dependencies) reviewExtension(w http.ResponseWriter, r *http.Request) {
	extensionID := chi.URLParam(r, "id")

	reviewerID := auth.GetStaffID(r.Context())
	if reviewerID == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Staff identity required", d.Log)
		return
	}

	var body reviewExtensionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	ext, err := d.Extensions.ReviewExtension(r.Context(), extensionID, reviewerID, body.Approve, body.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			WriteError(w, http.StatusNotFound, "not_found", "Extension not found", d.Log)
		case errors.Is(err, service.ErrExtensionNotPending):
			WriteError(w, http.StatusConflict, "not_pending", "Extension has already been reviewed", d.Log)
		default:
			WriteError(w, http.StatusInternalServerError, "review_failed", err.Error(), d.Log)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ext)
}
