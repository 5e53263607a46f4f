package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrasnov/pagemark/internal/server/storage"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// Responder порождает текст ответа ассистента по истории диалога.
// Дев-сервер использует детерминированную заглушку; продакшен
// подключает реальную модель.
type Responder func(messages []api.ChatMessage) string

// ChatHandler стримит ответы ассистента построчными записями
// "data: {json}\n" и сохраняет историю диалога.
type ChatHandler struct {
	logger    *slog.Logger
	storage   storage.ChatStorage
	responder Responder

	// fragmentDelay пауза между фрагментами, чтобы клиент видел
	// постепенную сборку; ноль в тестах
	fragmentDelay time.Duration
}

// NewChatHandler создает handler чата. responder может быть nil,
// тогда используется дев-заглушка.
func NewChatHandler(logger *slog.Logger, storage storage.ChatStorage, responder Responder) *ChatHandler {
	if responder == nil {
		responder = DevResponder
	}
	return &ChatHandler{
		logger:        logger,
		storage:       storage,
		responder:     responder,
		fragmentDelay: 30 * time.Millisecond,
	}
}

// Stream обрабатывает POST /api/v1/chat
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.DocumentID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "document_id is required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "messages must not be empty")
		return
	}

	userID, _ := GetUserID(ctx)

	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
		if err := h.storage.CreateChat(ctx, chatID, req.DocumentID, userID); err != nil {
			h.logger.Error("failed to create chat", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
			return
		}
	} else {
		exists, err := h.storage.ChatExists(ctx, chatID)
		if err != nil {
			h.logger.Error("failed to check chat", "chat_id", chatID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
			return
		}
		if !exists {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "chat not found")
			return
		}
	}

	// Последний ход пользователя уходит в историю
	last := req.Messages[len(req.Messages)-1]
	if last.Role == api.RoleUser {
		if err := h.storage.AppendMessage(ctx, chatID, last.Role, last.Content); err != nil {
			h.logger.Error("failed to persist user message", "chat_id", chatID, "error", err)
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming")
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	answer := h.responder(req.Messages)

	// Первая запись несет идентификатор диалога
	h.writeRecord(w, api.StreamRecord{ChatID: chatID})
	flusher.Flush()

	var sent strings.Builder
	for _, fragment := range fragments(answer) {
		select {
		case <-ctx.Done():
			h.logger.Debug("chat stream cancelled", "chat_id", chatID)
			return
		default:
		}

		h.writeRecord(w, api.StreamRecord{Content: fragment})
		flusher.Flush()
		sent.WriteString(fragment)

		if h.fragmentDelay > 0 {
			time.Sleep(h.fragmentDelay)
		}
	}

	h.writeRecord(w, api.StreamRecord{Done: true})
	flusher.Flush()

	if err := h.storage.AppendMessage(ctx, chatID, api.RoleAssistant, sent.String()); err != nil {
		h.logger.Error("failed to persist assistant message", "chat_id", chatID, "error", err)
	}

	h.logger.Info("chat turn completed", "chat_id", chatID, "answer_len", len(answer))
}

func (h *ChatHandler) writeRecord(w http.ResponseWriter, rec api.StreamRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		h.logger.Error("failed to marshal stream record", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", api.StreamDataPrefix, data); err != nil {
		h.logger.Debug("failed to write stream record", "error", err)
	}
}

// fragments режет ответ на куски по словам, имитируя токены модели
func fragments(answer string) []string {
	words := strings.Fields(answer)
	out := make([]string, 0, len(words))
	for i, word := range words {
		if i == 0 {
			out = append(out, word)
			continue
		}
		out = append(out, " "+word)
	}
	return out
}

// DevResponder детерминированная заглушка ассистента для дев-сервера
func DevResponder(messages []api.ChatMessage) string {
	var lastUser string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == api.RoleUser {
			lastUser = messages[i].Content
			break
		}
	}
	if lastUser == "" {
		return "I did not receive a question."
	}
	return fmt.Sprintf("You asked: %q. This development server cannot reason about the document, but the real assistant would answer here.", lastUser)
}
