package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrasnov/pagemark/internal/validation"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// SessionHandler выдает гостевые сессии читателей.
// Читатель представляется именем; если сервер настроен с кодом
// доступа, код проверяется против bcrypt-хеша.
type SessionHandler struct {
	logger    *slog.Logger
	jwtConfig JWTConfig

	// accessCodeHash bcrypt-хеш кода доступа; пустой отключает проверку
	accessCodeHash []byte
}

// NewSessionHandler создает handler сессий
func NewSessionHandler(logger *slog.Logger, jwtConfig JWTConfig, accessCodeHash string) *SessionHandler {
	return &SessionHandler{
		logger:         logger,
		jwtConfig:      jwtConfig,
		accessCodeHash: []byte(accessCodeHash),
	}
}

// OpenSession обрабатывает POST /api/v1/auth/session
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req api.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode session request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := validation.ValidateOwnerName(req.Name); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_name", err.Error())
		return
	}

	if len(h.accessCodeHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(h.accessCodeHash, []byte(req.AccessCode)); err != nil {
			h.logger.Warn("access code rejected", "name", req.Name)
			writeError(w, h.logger, http.StatusForbidden, "forbidden", "invalid access code")
			return
		}
	}

	userID := uuid.NewString()
	token, err := GenerateAccessToken(h.jwtConfig, userID, req.Name)
	if err != nil {
		h.logger.Error("failed to generate session token", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	h.logger.Info("session opened", "user_id", userID, "name", req.Name)

	writeJSON(w, h.logger, http.StatusOK, api.SessionResponse{
		AccessToken: token,
		UserID:      userID,
		Owner:       api.Owner{Name: req.Name},
	})
}
