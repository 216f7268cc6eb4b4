// Package api exposes the pipeline tools over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"meme-workers/internal/common/logger"
	fetchkeycontext "meme-workers/internal/workers/meme/fetch-key-context"
	generatememe "meme-workers/internal/workers/meme/generate-meme"
	parsemessage "meme-workers/internal/workers/meme/parse-message"
	"meme-workers/pkg/registry"
)

const maxBodyBytes = 1 << 20

type ContextTool interface {
	Execute(ctx context.Context, input *fetchkeycontext.Input) (*fetchkeycontext.Output, error)
}

type ParseTool interface {
	Execute(ctx context.Context, input *parsemessage.Input) (*parsemessage.Output, error)
}

type GenerateTool interface {
	Execute(ctx context.Context, input *generatememe.Input) (*generatememe.Output, error)
}

// HealthChecker reports the state of an optional dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	registry *registry.ToolRegistry
	fetch    ContextTool
	parse    ParseTool
	generate GenerateTool
	camunda  HealthChecker
	catalog  interface{ Len() int }
	version  string
	logger   logger.Logger
}

type HandlerOptions struct {
	Registry *registry.ToolRegistry
	Fetch    ContextTool
	Parse    ParseTool
	Generate GenerateTool
	// Camunda is nil when job workers are not running.
	Camunda HealthChecker
	Catalog interface{ Len() int }
	Version string
	Logger  logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		registry: reg,
		fetch:    opts.Fetch,
		parse:    opts.Parse,
		generate: opts.Generate,
		camunda:  opts.Camunda,
		catalog:  opts.Catalog,
		version:  opts.Version,
		logger:   log,
	}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Templates int    `json:"templates"`
	Camunda   string `json:"camunda"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: h.version, Camunda: "disabled"}
	if h.catalog != nil {
		resp.Templates = h.catalog.Len()
	}

	status := http.StatusOK
	if h.camunda != nil {
		if err := h.camunda.HealthCheck(r.Context()); err != nil {
			h.logger.Warn("camunda health check failed", map[string]interface{}{"error": err.Error()})
			resp.Status = "degraded"
			resp.Camunda = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Camunda = "connected"
		}
	}

	writeJSON(w, status, resp)
}

// Tools handles GET /api/v1/tools.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry)
}

// FetchKeyContext handles POST /api/v1/tools/fetch_key_context.
func (h *Handler) FetchKeyContext(w http.ResponseWriter, r *http.Request) {
	var input fetchkeycontext.Input
	if !decodeBody(w, r, &input) {
		return
	}
	out, err := h.fetch.Execute(r.Context(), &input)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ParseMessage handles POST /api/v1/tools/parse_message. A content policy
// refusal is a 200 response with status "rejected".
func (h *Handler) ParseMessage(w http.ResponseWriter, r *http.Request) {
	var input parsemessage.Input
	if !decodeBody(w, r, &input) {
		return
	}
	out, err := h.parse.Execute(r.Context(), &input)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GenerateMeme handles POST /api/v1/tools/generate_meme.
func (h *Handler) GenerateMeme(w http.ResponseWriter, r *http.Request) {
	var input generatememe.Input
	if !decodeBody(w, r, &input) {
		return
	}
	out, err := h.generate.Execute(r.Context(), &input)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
