package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mkrasnov/pagemark/pkg/api"
)

// writeJSON сериализует ответ; ошибка кодирования только логируется,
// статус уже ушел клиенту
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError отправляет структурированную ошибку API
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, code, message string) {
	writeJSON(w, logger, status, api.ErrorResponse{Error: code, Message: message})
}
