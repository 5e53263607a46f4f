package api

import "time"

// Kind значения поля kind аннотации на проводе
const (
	KindComment = "comment"
	KindText    = "text"
)

// Owner представляет денормализованные данные владельца аннотации
type Owner struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Annotation представляет каноническую (серверную) аннотацию.
// Поля Width/FontSize/Color/TextAlign заполнены только для kind=text,
// Resolved/Replies — только для kind=comment.
type Annotation struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	Color      string    `json:"color,omitempty"`
	TextAlign  string    `json:"text_align,omitempty"`
	Replies    []Reply   `json:"replies,omitempty"`
	Owner      Owner     `json:"owner"`
	PageNumber int       `json:"page_number"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width,omitempty"`
	FontSize   float64   `json:"font_size,omitempty"`
	Resolved   bool      `json:"resolved,omitempty"`
}

// Reply представляет один ответ в треде комментария
type Reply struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Owner     Owner     `json:"owner"`
}

// CreateAnnotationRequest запрос на создание аннотации
type CreateAnnotationRequest struct {
	DocumentID string  `json:"document_id"`
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	Color      string  `json:"color,omitempty"`
	TextAlign  string  `json:"text_align,omitempty"`
	PageNumber int     `json:"page_number"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"`
}

// AnnotationPatch частичное обновление аннотации.
// nil-поля не изменяют значение на сервере.
type AnnotationPatch struct {
	Content   *string  `json:"content,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	FontSize  *float64 `json:"font_size,omitempty"`
	Color     *string  `json:"color,omitempty"`
	TextAlign *string  `json:"text_align,omitempty"`
	Resolved  *bool    `json:"resolved,omitempty"`
}

// CreateReplyRequest запрос на добавление ответа к комментарию
type CreateReplyRequest struct {
	Content string `json:"content"`
}

// ListAnnotationsResponse ответ на запрос списка аннотаций
type ListAnnotationsResponse struct {
	Annotations []Annotation `json:"annotations"`
}

// ErrorResponse представляет ошибку API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
