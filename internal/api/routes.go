package api

import (
	"net/http"
	"os"

	"opsflow/internal/auth"
	"opsflow/internal/engine"
	"opsflow/internal/service"
	"opsflow/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	Lifecycle  *service.LifecycleService
	Extensions *service.ExtensionService
	Dispatcher *engine.Dispatcher
	ExecLog    engine.ExecutionLog
	Hub        *ws.Hub
	Log        *zap.Logger
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(d.Log))

	jwtSecret := os.Getenv("JWT_SECRET")
	jwtConfig := auth.NewJWTConfig(jwtSecret)
	r.Use(jwtConfig.Middleware)

	// Event ingestion
	r.Post("/events", d.ingestEvent)

	// Execution log (audit / operational visibility)
	r.Get("/executions", d.listExecutions)
	r.Get("/executions/failed-actions", d.failedActions)
	r.Get("/executions/{id}", d.getExecution)

	// Maintenance request lifecycle
	r.Post("/requests", d.createRequest)
	r.Get("/requests/{id}", d.getRequest)
	r.Post("/requests/{id}/claim", d.claimRequest)
	r.Post("/requests/{id}/depart", d.departRequest)
	r.Post("/requests/{id}/start", d.startWork)
	r.Post("/requests/{id}/finish", d.finishRequest)

	// Time extension sub-flow
	r.Post("/requests/{id}/extensions", d.requestExtension)
	r.Get("/extensions/{id}", d.getExtension)
	r.Post("/extensions/{id}/review", d.reviewExtension)

	// WebSocket endpoint
	r.Get("/ws", d.wsHandler)

	return r
}
