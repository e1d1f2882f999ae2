// Licensed under the PolyForm Noncommercial License 1.0.0

// Package blobstore is the local object store behind the warehouse middleware.
// Result files live in Badger under a TTL so downloads expire together with
// their presigned URLs.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assistbridge/internal/log"
	"assistbridge/internal/metrics"

	"github.com/dgraph-io/badger/v4"
)

// Object describes one stored blob.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrNotFound signals a missing or expired object.
var ErrNotFound = errors.New("blobstore: object not found")

const (
	payloadPrefix = "obj:"
	metaPrefix    = "meta:"
)

// Store is a Badger-backed object store with per-object TTL.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the store at dir. objectTTL bounds how long blobs
// stay retrievable; zero keeps them until deleted.
func Open(dir string, objectTTL time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %q: %w", dir, err)
	}
	return &Store{db: db, ttl: objectTTL}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put stores data under key and returns the object metadata.
func (s *Store) Put(ctx context.Context, key, contentType string, data []byte) (Object, error) {
	obj := Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}

	meta, err := json.Marshal(obj)
	if err != nil {
		metrics.IncBlobUpload("failure")
		return Object{}, fmt.Errorf("blobstore: marshal metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		payload := badger.NewEntry([]byte(payloadPrefix+key), data)
		metaEntry := badger.NewEntry([]byte(metaPrefix+key), meta)
		if s.ttl > 0 {
			payload = payload.WithTTL(s.ttl)
			metaEntry = metaEntry.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(payload); err != nil {
			return err
		}
		return txn.SetEntry(metaEntry)
	})
	if err != nil {
		metrics.IncBlobUpload("failure")
		return Object{}, fmt.Errorf("blobstore: put %q: %w", key, err)
	}

	metrics.IncBlobUpload("success")
	metrics.AddBlobBytes(len(data))

	logger := log.WithComponentFromContext(ctx, "blobstore")
	logger.Info().
		Str("event", "blob.stored").
		Str(log.FieldBlobKey, key).
		Int64(log.FieldSizeBytes, obj.Size).
		Msg("blob stored")

	return obj, nil
}

// Get retrieves an object and its payload.
func (s *Store) Get(ctx context.Context, key string) (Object, []byte, error) {
	var (
		obj  Object
		data []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		metaItem, err := txn.Get([]byte(metaPrefix + key))
		if err != nil {
			return err
		}
		if err := metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &obj)
		}); err != nil {
			return err
		}

		payloadItem, err := txn.Get([]byte(payloadPrefix + key))
		if err != nil {
			return err
		}
		data, err = payloadItem.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Object{}, nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return Object{}, nil, fmt.Errorf("blobstore: get %q: %w", key, err)
	}
	return obj, data, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(payloadPrefix + key)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("blobstore: delete %q: %w", key, err)
	}
	return nil
}

// HealthCheck verifies the store is usable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("blobstore: database closed")
	}
	return nil
}
