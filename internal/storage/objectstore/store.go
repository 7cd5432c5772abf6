package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound reports a required upstream object that does not exist. Callers
// decide whether absence is fatal (raw datasets) or a valid skip (models).
var ErrNotFound = errors.New("object not found")

// Store abstracts S3-compatible object storage.
type Store interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	// List returns the keys under prefix, lexically ordered.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Exists is the explicit existence probe used instead of treating read errors
// as control flow.
func Exists(ctx context.Context, store Store, bucket, key string) (bool, error) {
	_, err := store.Stat(ctx, bucket, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PutJSON writes v as one whole JSON object. Artifacts are never written
// incrementally; a failed writer leaves no partial object behind.
func PutJSON(ctx context.Context, store Store, bucket, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := store.Put(ctx, bucket, key, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func GetJSON(ctx context.Context, store Store, bucket, key string, v any) error {
	body, _, err := store.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
