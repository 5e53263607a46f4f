package api

// SessionRequest запрос на открытие сессии.
// AccessCode сверяется сервером с bcrypt-хешем из конфигурации.
type SessionRequest struct {
	Name       string `json:"name"`
	AccessCode string `json:"access_code"`
}

// SessionResponse ответ с JWT токеном и подтвержденной identity
type SessionResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Owner       Owner  `json:"owner"`
}
