// Package auth управляет гостевой сессией читателя: обмен имени и
// кода доступа на токен, восстановление сессии между запусками.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpclient "github.com/mkrasnov/pagemark/internal/client/api"
	"github.com/mkrasnov/pagemark/internal/client/storage"
	"github.com/mkrasnov/pagemark/internal/validation"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// ErrNotAuthenticated нет действующей сессии
var ErrNotAuthenticated = errors.New("not authenticated")

// Service сервис сессий на клиенте
type Service struct {
	apiClient httpclient.ClientAPI
	store     storage.SessionStorage
	logger    *slog.Logger
}

// NewService создает сервис сессий
func NewService(apiClient httpclient.ClientAPI, store storage.SessionStorage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
	}
}

// Login открывает новую сессию и сохраняет ее локально
func (s *Service) Login(ctx context.Context, name, accessCode string) (*storage.SessionData, error) {
	if err := validation.ValidateOwnerName(name); err != nil {
		return nil, err
	}

	resp, err := s.apiClient.OpenSession(ctx, api.SessionRequest{Name: name, AccessCode: accessCode})
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	session := &storage.SessionData{
		Name:        resp.Owner.Name,
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
		AvatarURL:   resp.Owner.AvatarURL,
		SavedAt:     time.Now().Unix(),
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		// Сессия рабочая, просто не переживет перезапуск
		s.logger.Warn("failed to persist session", "error", err)
	}

	s.logger.Info("session opened", "user_id", session.UserID, "name", session.Name)
	return session, nil
}

// Restore возвращает сохраненную сессию.
// Возвращает ErrNotAuthenticated, если сессии нет.
func (s *Service) Restore(ctx context.Context) (*storage.SessionData, error) {
	session, err := s.store.GetSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// Logout удаляет сохраненную сессию
func (s *Service) Logout(ctx context.Context) error {
	err := s.store.DeleteSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return ErrNotAuthenticated
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("session closed")
	return nil
}
