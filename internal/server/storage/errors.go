package storage

import "errors"

// Общие ошибки серверного хранилища
var (
	// ErrAnnotationNotFound аннотация не найдена
	ErrAnnotationNotFound = errors.New("annotation not found")

	// ErrChatNotFound диалог не найден
	ErrChatNotFound = errors.New("chat not found")
)
