package preview

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/volume-discount/internal/common"
	"github.com/noah-isme/volume-discount/internal/function"
	"github.com/noah-isme/volume-discount/internal/obs"
)

// Handler runs registered cart functions against posted input documents.
type Handler struct {
	Registry function.Registry
	Runner   function.Runner
}

// RunResponse is the payload returned for a completed run.
type RunResponse struct {
	RunID      string  `json:"runId"`
	Function   string  `json:"function"`
	Output     any     `json:"output"`
	Logs       string  `json:"logs"`
	DurationMs float64 `json:"durationMs"`
}

// Routes mounts the function endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{handle}/run", h.Run)
}

// List returns the handles of every registered function.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Registry.Handles()})
}

// Run evaluates the request body with the function named in the path.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	fn, err := h.Registry.Lookup(chi.URLParam(r, "handle"))
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	inv, err := h.Runner.Invoke(r.Context(), fn, r.Body)
	if inv.RunID != "" {
		w.Header().Set(obs.RunIDHeader, inv.RunID)
	}
	if err != nil {
		common.WriteError(w, toAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": RunResponse{
		RunID:      inv.RunID,
		Function:   inv.Handle,
		Output:     inv.Output,
		Logs:       inv.Logs,
		DurationMs: obs.DurationMillis(inv.Duration),
	}})
}

func toAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, function.ErrUnknownFunction):
		return common.NewAppError("NOT_FOUND", "function not found", http.StatusNotFound, err)
	case errors.Is(err, function.ErrInputTooLarge):
		return common.NewAppError("PAYLOAD_TOO_LARGE", err.Error(), http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, function.ErrDecodeInput), errors.Is(err, function.ErrInvalidInput):
		return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	default:
		return common.NewAppError("INTERNAL", "function run failed", http.StatusInternalServerError, err)
	}
}
