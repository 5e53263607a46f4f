package api

// Роли сообщений чата
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage один ход диалога в истории запроса
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest запрос на отправку хода чата.
// ChatID пустой для нового диалога; сервер вернет идентификатор
// в первой записи потока.
type ChatRequest struct {
	DocumentID string        `json:"document_id"`
	ChatID     string        `json:"chat_id,omitempty"`
	Messages   []ChatMessage `json:"messages"`
}

// StreamRecord одна запись потокового ответа.
// Передается строкой вида "data: {json}\n"; каждое поле опционально.
type StreamRecord struct {
	ChatID  string `json:"chatId,omitempty"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

// StreamDataPrefix префикс каждой записи потока
const StreamDataPrefix = "data: "
