package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore keeps uploaded meal photos.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) error
	Delete(ctx context.Context, name string) error
	SignedURL(name string, ttl time.Duration) (string, error)
}

type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(client *gcs.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket}
}

func (s *GCSStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload object %s failed: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s failed: %w", name, err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("delete object %s failed: %w", name, err)
	}
	return nil
}

func (s *GCSStore) SignedURL(name string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(name, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s failed: %w", name, err)
	}
	return url, nil
}
