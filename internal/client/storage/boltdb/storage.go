// Package boltdb реализация клиентского хранилища на BoltDB:
// один файл на клиента, bucket на каждую область данных.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// Имена bucket'ов
	bucketSession     = []byte("session")
	bucketAnnotations = []byte("annotations")
)

// Storage клиентское хранилище на BoltDB
type Storage struct {
	db *bbolt.DB
}

// New открывает (или создает) файл хранилища по пути dbPath
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close закрывает файл хранилища
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает bucket'ы, если их еще нет
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSession); err != nil {
			return fmt.Errorf("failed to create session bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists(bucketAnnotations); err != nil {
			return fmt.Errorf("failed to create annotations bucket: %w", err)
		}

		return nil
	})
}
