package models

import "time"

// Kind константы для видов аннотаций
const (
	KindComment = "comment"
	KindText    = "text"
)

// Границы позиционирования.
// Координаты хранятся в процентах от размеров страницы и не зависят
// от разрешения и зума. Текстовые блоки ограничены 95%, чтобы блок
// оставался видимым у правого/нижнего края страницы.
const (
	MaxPercent     = 100.0
	MaxPercentText = 95.0
)

// Ограничения текстового блока
const (
	MinTextWidth     = 100.0 // минимальная ширина в px страницы без зума
	DefaultTextWidth = 200.0
	DefaultFontSize  = 14.0
	DefaultColor     = "#1a1a1a"
)

// Align выравнивание текста в текстовом блоке
type Align string

// Допустимые значения Align
const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Valid сообщает, является ли значение допустимым выравниванием
func (a Align) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// Owner денормализованная identity владельца аннотации.
// Заполняется локально из текущей сессии при создании,
// заменяется серверной правдой при reconcile.
type Owner struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AnnotationBase общие поля обеих видов аннотаций
type AnnotationBase struct {
	CreatedAt  time.Time `json:"created_at"` // CreatedAt время оптимистичного создания
	DocumentID string    `json:"document_id"`
	Owner      Owner     `json:"owner"`
	ID         ID        `json:"-"`
	PageNumber int       `json:"page_number"` // PageNumber страница, на которой живет аннотация
	X          float64   `json:"x"`           // X процент ширины страницы [0, 100]
	Y          float64   `json:"y"`           // Y процент высоты страницы [0, 100]
}

// Annotation объединяет оба конкретных вида аннотаций.
// Хранилище работает с этим интерфейсом, не зная о виде.
type Annotation interface {
	// Base возвращает общие поля для чтения и модификации
	Base() *AnnotationBase

	// Kind возвращает KindComment или KindText
	Kind() string

	// Clone создает глубокую копию аннотации (для снапшотов отката)
	Clone() Annotation
}

// Comment представляет комментарий-пин на странице
type Comment struct {
	AnnotationBase
	Content  string  `json:"content"`  // Content непустой текст комментария
	Replies  []Reply `json:"replies"`  // Replies упорядоченный тред ответов, append-only
	Resolved bool    `json:"resolved"` // Resolved флаг разрешенности треда
}

// Reply один ответ в треде комментария
type Reply struct {
	CreatedAt time.Time `json:"created_at"`
	ID        ID        `json:"-"`
	Content   string    `json:"content"`
	Owner     Owner     `json:"owner"`
}

// TextBox представляет свободный текстовый блок на странице
type TextBox struct {
	AnnotationBase
	Content   string  `json:"content"`    // Content может быть пустым во время набора
	Color     string  `json:"color"`      // Color цвет текста (hex)
	TextAlign Align   `json:"text_align"` // TextAlign left|center|right
	Width     float64 `json:"width"`      // Width единственное изменяемое измерение, px без зума
	FontSize  float64 `json:"font_size"`
}

// ClampPosition ограничивает координаты допустимым для вида диапазоном.
// Вызывается на каждом перемещении, как бы далеко ни ушел указатель.
func ClampPosition(kind string, x, y float64) (float64, float64) {
	limit := MaxPercent
	if kind == KindText {
		limit = MaxPercentText
	}
	return clamp(x, 0, limit), clamp(y, 0, limit)
}

// ClampWidth ограничивает ширину текстового блока минимальным порогом
func ClampWidth(w float64) float64 {
	if w < MinTextWidth {
		return MinTextWidth
	}
	return w
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Base возвращает общие поля комментария
func (c *Comment) Base() *AnnotationBase { return &c.AnnotationBase }

// Kind возвращает KindComment
func (c *Comment) Kind() string { return KindComment }

// Clone создает глубокую копию комментария вместе с тредом ответов
func (c *Comment) Clone() Annotation {
	replies := make([]Reply, len(c.Replies))
	copy(replies, c.Replies)

	clone := *c
	clone.Replies = replies
	return &clone
}

// Base возвращает общие поля текстового блока
func (t *TextBox) Base() *AnnotationBase { return &t.AnnotationBase }

// Kind возвращает KindText
func (t *TextBox) Kind() string { return KindText }

// Clone создает копию текстового блока
func (t *TextBox) Clone() Annotation {
	clone := *t
	return &clone
}
