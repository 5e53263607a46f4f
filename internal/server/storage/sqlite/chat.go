package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkrasnov/pagemark/internal/server/storage"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// CreateChat регистрирует новый диалог документа
func (s *Storage) CreateChat(ctx context.Context, chatID, documentID, userID string) error {
	query := `
		INSERT INTO chats (id, document_id, user_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, chatID, documentID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	return nil
}

// ChatExists проверяет, что диалог существует
func (s *Storage) ChatExists(ctx context.Context, chatID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chats WHERE id = ?", chatID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query chat: %w", err)
	}
	return count > 0, nil
}

// AppendMessage дописывает ход в историю диалога
func (s *Storage) AppendMessage(ctx context.Context, chatID, role, content string) error {
	query := `
		INSERT INTO chat_messages (chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, chatID, role, content, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return storage.ErrChatNotFound
		}
		return fmt.Errorf("failed to insert chat message: %w", err)
	}

	return nil
}

// ListMessages возвращает историю диалога в порядке добавления
func (s *Storage) ListMessages(ctx context.Context, chatID string) ([]api.ChatMessage, error) {
	query := `
		SELECT role, content
		FROM chat_messages
		WHERE chat_id = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []api.ChatMessage
	for rows.Next() {
		var m api.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return messages, nil
}
