package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Strob0t/PromptForge/internal/domain/prompt"
	"github.com/Strob0t/PromptForge/internal/port/journal"
	"github.com/Strob0t/PromptForge/internal/service"
)

const healthTimeout = 3 * time.Second

// HealthCheck probes one optional dependency.
type HealthCheck func(ctx context.Context) error

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Prompts *service.PromptService
	// Checks are the dependency probes reported by /health, keyed by name.
	Checks map[string]HealthCheck
	// Stats returns extra runtime details for /health; may be nil.
	Stats func() map[string]any
}

// --- Personas ---

// ListPersonas handles GET /api/v1/personas.
func (h *Handlers) ListPersonas(w http.ResponseWriter, r *http.Request) {
	listing, err := h.Prompts.Personas(r.Context())
	if err != nil {
		writeDomainError(w, err, "Failed to load personas")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// CreatePersona handles POST /api/v1/personas.
func (h *Handlers) CreatePersona(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Prompts.CreatePersona, "Failed to save persona")(w, r)
}

// DeletePersona handles DELETE /api/v1/personas/{id}.
func (h *Handlers) DeletePersona(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Prompts.DeletePersona, "Failed to delete persona")(w, r)
}

// --- Fragments ---

// ListFragments handles GET /api/v1/fragments.
func (h *Handlers) ListFragments(w http.ResponseWriter, r *http.Request) {
	handleList(h.Prompts.Fragments, "Failed to load fragments")(w, r)
}

// CreateFragment handles POST /api/v1/fragments.
func (h *Handlers) CreateFragment(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Prompts.CreateFragment, "Failed to save fragment")(w, r)
}

// DeleteFragment handles DELETE /api/v1/fragments/{id}.
func (h *Handlers) DeleteFragment(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Prompts.DeleteFragment, "Failed to delete fragment")(w, r)
}

// --- Compositions ---

// ListCompositions handles GET /api/v1/compositions.
func (h *Handlers) ListCompositions(w http.ResponseWriter, r *http.Request) {
	handleList(h.Prompts.Compositions, "Failed to load compositions")(w, r)
}

// CreateComposition handles POST /api/v1/compositions.
func (h *Handlers) CreateComposition(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Prompts.CreateComposition, "Failed to save composition")(w, r)
}

// DeleteComposition handles DELETE /api/v1/compositions/{id}.
func (h *Handlers) DeleteComposition(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Prompts.DeleteComposition, "Failed to delete composition")(w, r)
}

// ActivateComposition handles PUT /api/v1/compositions/{id}/activate.
func (h *Handlers) ActivateComposition(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	act, err := h.Prompts.ActivateComposition(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to activate composition")
		return
	}
	writeJSON(w, http.StatusOK, act)
}

// PreviewComposition handles POST /api/v1/compositions/preview.
func (h *Handlers) PreviewComposition(w http.ResponseWriter, r *http.Request) {
	sel, ok := readJSON[prompt.Selection](w, r)
	if !ok {
		return
	}
	preview, err := h.Prompts.Preview(r.Context(), sel)
	if err != nil {
		writeDomainError(w, err, "Failed to load preview")
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// --- Landing ---

// GetActive handles GET /api/v1/active.
func (h *Handlers) GetActive(w http.ResponseWriter, r *http.Request) {
	view, err := h.Prompts.Active(r.Context())
	if err != nil {
		writeDomainError(w, err, "Failed to load active composition")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListActivations handles GET /api/v1/activations?limit=N.
func (h *Handlers) ListActivations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", journal.DefaultListLimit)
	if limit <= 0 || limit > 500 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	items, err := h.Prompts.Activations(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// --- Evaluation ---

// Evaluate handles POST /api/v1/evaluate.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[prompt.EvaluateRequest](w, r)
	if !ok {
		return
	}
	ev, err := h.Prompts.Evaluate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Failed to evaluate article")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// --- Health ---

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Stats  map[string]any    `json:"stats,omitempty"`
}

// Health handles GET /health. Optional dependencies that fail degrade the
// status but keep the endpoint at 200; the console still serves the
// backend without them.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthStatus{Status: "ok", Checks: map[string]string{}}
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	if h.Stats != nil {
		resp.Stats = h.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
