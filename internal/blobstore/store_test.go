package blobstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	payload := []byte("customer,total\nalice,12.50\n")
	obj, err := s.Put(ctx, "results/q1.csv", "text/csv", payload)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if obj.Size != int64(len(payload)) {
		t.Errorf("size: got %d, want %d", obj.Size, len(payload))
	}

	got, data, err := s.Get(ctx, "results/q1.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContentType != "text/csv" {
		t.Errorf("content type: got %q", got.ContentType)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload mismatch: got %q", data)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)
	if _, _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesObject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", "text/plain", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	// Deleting again is fine.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	s := openTestStore(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("health: %v", err)
	}
}
