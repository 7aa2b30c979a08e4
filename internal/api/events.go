package api

import (
	"encoding/json"
	"net/http"
	"time"

	"opsflow/internal/model"
)

type ingestEventRequest struct {
	TriggerType string                     `json:"triggerType"`
	Context     map[string]json.RawMessage `json:"context"`
}

// ingestEvent is the single inbound entry point for trigger events. It
// returns the created execution ids; a zero-match event is a normal 200
// with an empty list, never an error.
func (d Dependencies) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.TriggerType == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "triggerType is required", d.Log)
		return
	}

	evtContext := make(map[string]model.Value, len(req.Context))
	for key, raw := range req.Context {
		var v model.Value
		if err := json.Unmarshal(raw, &v); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_context", "Unsupported context value for key "+key, d.Log)
			return
		}
		evtContext[key] = v
	}

	executions := d.Dispatcher.Dispatch(r.Context(), model.TriggerEvent{
		Type:       model.TriggerType(req.TriggerType),
		Context:    evtContext,
		OccurredAt: time.Now(),
	})

	ids := make([]string, 0, len(executions))
	for _, exec := range executions {
		ids = append(ids, exec.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"executionIds": ids,
	})
}
