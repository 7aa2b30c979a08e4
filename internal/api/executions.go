package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"opsflow/internal/engine"
	"opsflow/internal/model"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) listExecutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := engine.ExecutionFilter{
		RuleID: q.Get("ruleId"),
		Status: model.ExecutionStatus(q.Get("status")),
		Limit:  100,
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "since must be RFC3339", d.Log)
			return
		}
		filter.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer", d.Log)
			return
		}
		filter.Limit = limit
	}

	execs, err := d.ExecLog.List(r.Context(), filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", "Failed to list executions", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"executions": execs})
}

func (d Dependencies) getExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exec, err := d.ExecLog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrExecutionNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Execution not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "lookup_failed", "Failed to load execution", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exec)
}

func (d Dependencies) failedActions(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "hours must be a positive integer", d.Log)
			return
		}
		hours = parsed
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	failed, err := d.ExecLog.FailedActionsSince(r.Context(), since)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", "Failed to list failed actions", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"failedActions": failed})
}
