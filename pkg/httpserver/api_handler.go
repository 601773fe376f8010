package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wingolabs/roundcore/internal/hub"
	"github.com/wingolabs/roundcore/internal/integrity"
	"go.uber.org/zap"
)

// APIHandler handles HTTP requests for round and validation state.
type APIHandler struct {
	hub       *hub.Hub
	validator *integrity.Validator
	logger    *zap.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(h *hub.Hub, v *integrity.Validator, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		hub:       h,
		validator: v,
		logger:    logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleCurrentRound handles GET /api/rounds/current?duration=<minutes>.
func (h *APIHandler) HandleCurrentRound(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("duration")
	if raw == "" {
		h.writeError(w, "missing required query parameter: duration", http.StatusBadRequest)
		return
	}

	duration, err := strconv.Atoi(raw)
	if err != nil || duration <= 0 {
		h.writeError(w, "duration must be a positive integer", http.StatusBadRequest)
		return
	}

	h.logger.Debug("current-round-request-received", zap.Int("duration", duration))

	round := h.hub.CurrentRound(duration)
	if round == nil {
		h.writeError(w, "no round tracked for this duration", http.StatusNotFound)
		return
	}

	h.writeJSON(w, round)
}

// HandleSyncStatus handles GET /api/sync/status.
func (h *APIHandler) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status := h.hub.LastSyncStatus()
	if status == nil {
		h.writeError(w, "no sync status received yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, status)
}

// HandleValidationReport handles GET /api/validation/report.
func (h *APIHandler) HandleValidationReport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.validator.Report())
}

// HandleValidationRun handles POST /api/validation/run. The sweep runs
// synchronously; the caller gets the resulting report.
func (h *APIHandler) HandleValidationRun(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("validation-run-requested",
		zap.String("remote-addr", r.RemoteAddr))

	report := h.validator.RunComprehensiveValidation(r.Context())
	h.writeJSON(w, report)
}

// writeJSON writes a 200 JSON response.
func (h *APIHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *APIHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
