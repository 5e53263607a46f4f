package models

import "github.com/google/uuid"

// ID представляет идентификатор аннотации.
// Идентификатор существует в двух формах: временный (сгенерирован клиентом
// при оптимистичном создании) и постоянный (присвоен сервером).
// Переход temporary -> durable происходит ровно один раз, при reconcile.
type ID struct {
	value     string
	temporary bool
}

// NewTemporaryID создает новый временный идентификатор
func NewTemporaryID() ID {
	return ID{value: uuid.New().String(), temporary: true}
}

// DurableID оборачивает серверный идентификатор
func DurableID(serverID string) ID {
	return ID{value: serverID}
}

// String возвращает строковое значение идентификатора.
// Для сетевых вызовов допустимы только durable идентификаторы.
func (id ID) String() string { return id.value }

// IsTemporary сообщает, присвоен ли идентификатор локально
func (id ID) IsTemporary() bool { return id.temporary }

// IsZero сообщает, что идентификатор не задан
func (id ID) IsZero() bool { return id.value == "" }
