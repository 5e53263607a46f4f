package handlers

import (
	"log/slog"
	"net/http"
)

// HealthResponse ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// HealthHandler отвечает на проверки живости сервера
type HealthHandler struct {
	logger  *slog.Logger
	version string
}

// NewHealthHandler создает handler health check.
// version приходит из build-time переменной main.
func NewHealthHandler(logger *slog.Logger, version string) *HealthHandler {
	return &HealthHandler{logger: logger, version: version}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
