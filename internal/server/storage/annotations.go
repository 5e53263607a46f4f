package storage

import (
	"context"

	"github.com/mkrasnov/pagemark/pkg/api"
)

// AnnotationStorage хранит аннотации документов.
// Сервер работает напрямую с wire-представлением: канонический вид
// аннотации определяет именно оно.
type AnnotationStorage interface {
	// SaveAnnotation сохраняет новую аннотацию
	SaveAnnotation(ctx context.Context, a *api.Annotation) error

	// GetAnnotation возвращает аннотацию с ответами.
	// Возвращает ErrAnnotationNotFound, если аннотации нет.
	GetAnnotation(ctx context.Context, id string) (*api.Annotation, error)

	// ListAnnotations возвращает аннотации документа с ответами.
	// pageNumber < 0 означает все страницы.
	ListAnnotations(ctx context.Context, documentID string, pageNumber int) ([]api.Annotation, error)

	// UpdateAnnotation применяет частичное обновление и возвращает
	// итоговое состояние
	UpdateAnnotation(ctx context.Context, id string, patch api.AnnotationPatch) (*api.Annotation, error)

	// DeleteAnnotation удаляет аннотацию вместе с ответами
	DeleteAnnotation(ctx context.Context, id string) error

	// AddReply добавляет ответ в тред комментария
	AddReply(ctx context.Context, annotationID string, reply *api.Reply) error
}
