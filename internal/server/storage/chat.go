package storage

import (
	"context"

	"github.com/mkrasnov/pagemark/pkg/api"
)

// ChatStorage хранит диалоги с ассистентом
type ChatStorage interface {
	// CreateChat регистрирует новый диалог документа
	CreateChat(ctx context.Context, chatID, documentID, userID string) error

	// ChatExists проверяет, что диалог существует
	ChatExists(ctx context.Context, chatID string) (bool, error)

	// AppendMessage дописывает ход в историю диалога.
	// Возвращает ErrChatNotFound для незарегистрированного диалога.
	AppendMessage(ctx context.Context, chatID, role, content string) error

	// ListMessages возвращает историю диалога в порядке добавления
	ListMessages(ctx context.Context, chatID string) ([]api.ChatMessage, error)
}
