// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/EngineBench/services/bench/search"
)

const gcsScheme = "gs://"

// objectStore is the subset of the GCS client the store uses.
type objectStore interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
	Exists(ctx context.Context, bucket, object string) (bool, error)
	Close() error
}

// GCSStore keeps the snapshot in a Cloud Storage object.
type GCSStore struct {
	objects objectStore
	bucket  string
	object  string
}

// NewGCSStore creates a store for a gs://bucket/object URL.
//
// Inputs:
//
//	ctx - Context for client creation
//	location - gs://bucket/object
//	credentialsFile - Service account key path; empty uses default credentials
//
// Outputs:
//
//	*GCSStore - The store
//	error - Non-nil for a malformed URL, a missing key file or a client failure
func NewGCSStore(ctx context.Context, location, credentialsFile string) (*GCSStore, error) {
	bucket, object, err := parseGCSLocation(location)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: service account key not found at path: %s", ErrFileIO, credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCS storage client: %v", ErrFileIO, err)
	}
	return newGCSStore(gcsObjects{client: client}, bucket, object), nil
}

func newGCSStore(objects objectStore, bucket, object string) *GCSStore {
	return &GCSStore{objects: objects, bucket: bucket, object: object}
}

func parseGCSLocation(location string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(location, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not a gs:// location", ErrFileIO, location)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("%w: %q must be gs://bucket/object", ErrFileIO, location)
	}
	return bucket, object, nil
}

// Load implements Store.
func (s *GCSStore) Load(ctx context.Context) ([]search.Result, error) {
	r, err := s.objects.NewReader(ctx, s.bucket, s.object)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Location())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileIO, s.Location(), err)
	}
	defer r.Close()

	results, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Location(), err)
	}
	return results, nil
}

// Save implements Store.
func (s *GCSStore) Save(ctx context.Context, results []search.Result) error {
	data, err := encodeBytes(results)
	if err != nil {
		return err
	}

	w := s.objects.NewWriter(ctx, s.bucket, s.object)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: failed to write %s: %v", ErrFileIO, s.Location(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: failed to close GCS writer for %s: %v", ErrFileIO, s.Location(), err)
	}
	return nil
}

// Exists implements Store.
func (s *GCSStore) Exists(ctx context.Context) (bool, error) {
	ok, err := s.objects.Exists(ctx, s.bucket, s.object)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrFileIO, s.Location(), err)
	}
	return ok, nil
}

// Location implements Store.
func (s *GCSStore) Location() string {
	return gcsScheme + s.bucket + "/" + s.object
}

// Close implements Store.
func (s *GCSStore) Close() error {
	return s.objects.Close()
}

// gcsObjects adapts *storage.Client to objectStore.
type gcsObjects struct {
	client *storage.Client
}

func (g gcsObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return g.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (g gcsObjects) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	return w
}

func (g gcsObjects) Exists(ctx context.Context, bucket, object string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g gcsObjects) Close() error {
	return g.client.Close()
}
