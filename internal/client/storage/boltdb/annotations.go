package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/mkrasnov/pagemark/internal/client/storage"
	"github.com/mkrasnov/pagemark/pkg/api"
)

// SaveAnnotations перезаписывает кеш аннотаций документа целиком.
// Ключом служит идентификатор документа, значением JSON-массив в серверном
// представлении.
func (s *Storage) SaveAnnotations(ctx context.Context, documentID string, entries []api.Annotation) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAnnotations)
		if bucket == nil {
			return fmt.Errorf("annotations bucket not found")
		}

		data, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal annotations: %w", err)
		}

		if err := bucket.Put([]byte(documentID), data); err != nil {
			return fmt.Errorf("failed to save annotations: %w", err)
		}

		return nil
	})
}

// LoadAnnotations возвращает закешированные аннотации документа
func (s *Storage) LoadAnnotations(ctx context.Context, documentID string) ([]api.Annotation, error) {
	var entries []api.Annotation

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAnnotations)
		if bucket == nil {
			return fmt.Errorf("annotations bucket not found")
		}

		data := bucket.Get([]byte(documentID))
		if data == nil {
			return storage.ErrDocumentNotCached
		}

		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to unmarshal annotations: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entries, nil
}

// DropAnnotations удаляет кеш документа. Отсутствие кеша не ошибка.
func (s *Storage) DropAnnotations(ctx context.Context, documentID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAnnotations)
		if bucket == nil {
			return fmt.Errorf("annotations bucket not found")
		}

		if err := bucket.Delete([]byte(documentID)); err != nil {
			return fmt.Errorf("failed to drop annotations: %w", err)
		}

		return nil
	})
}
