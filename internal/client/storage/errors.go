package storage

import "errors"

// Ошибки клиентского хранилища
var (
	// ErrSessionNotFound нет сохраненной сессии
	ErrSessionNotFound = errors.New("session data not found")

	// ErrDocumentNotCached для документа нет закешированных аннотаций
	ErrDocumentNotCached = errors.New("document annotations not cached")
)
