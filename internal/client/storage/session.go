package storage

import "context"

// SessionData сохраненная сессия читателя. Токен хранится как есть:
// это гостевой токен доступа к документу, а не долгоживущий секрет.
type SessionData struct {
	Name        string `json:"name"`
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	SavedAt     int64  `json:"saved_at"`
}

// SessionStorage хранит сессию между запусками клиента
type SessionStorage interface {
	// SaveSession сохраняет текущую сессию
	SaveSession(ctx context.Context, session *SessionData) error

	// GetSession возвращает сохраненную сессию.
	// Возвращает ErrSessionNotFound, если сессии нет.
	GetSession(ctx context.Context) (*SessionData, error)

	// DeleteSession удаляет сохраненную сессию (выход)
	DeleteSession(ctx context.Context) error
}
