package storage

import (
	"context"

	"github.com/mkrasnov/pagemark/pkg/api"
)

// AnnotationCache хранит последнее известное состояние аннотаций
// документа для мгновенной первой отрисовки. Кеш не источник правды:
// после загрузки с сервера его содержимое перезаписывается целиком.
type AnnotationCache interface {
	// SaveAnnotations перезаписывает кеш документа
	SaveAnnotations(ctx context.Context, documentID string, entries []api.Annotation) error

	// LoadAnnotations возвращает закешированные аннотации документа.
	// Возвращает ErrDocumentNotCached, если документа в кеше нет.
	LoadAnnotations(ctx context.Context, documentID string) ([]api.Annotation, error)

	// DropAnnotations удаляет кеш документа
	DropAnnotations(ctx context.Context, documentID string) error
}
