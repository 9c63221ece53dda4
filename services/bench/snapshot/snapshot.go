// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot persists an ordered list of search results as the JSON
// baseline for later diff runs.
//
// A location is either a local path or a "gs://bucket/object" URL.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/EngineBench/services/bench/search"
)

// Sentinel errors for snapshot operations.
var (
	// ErrFileIO indicates the snapshot could not be read or written.
	ErrFileIO = errors.New("snapshot i/o failure")

	// ErrNotFound indicates no snapshot exists at the location.
	ErrNotFound = errors.New("snapshot not found")

	// ErrMalformed indicates the snapshot content is not a valid result list.
	ErrMalformed = errors.New("malformed snapshot")
)

// Store reads and writes one snapshot.
type Store interface {
	// Load reads the snapshot. ErrNotFound when it does not exist.
	Load(ctx context.Context) ([]search.Result, error)

	// Save replaces the snapshot with results.
	Save(ctx context.Context, results []search.Result) error

	// Exists reports whether a snapshot is present.
	Exists(ctx context.Context) (bool, error)

	// Location returns the path or URL of the snapshot.
	Location() string

	// Close releases any client held by the store.
	Close() error
}

// Options configures Open.
type Options struct {
	// CredentialsFile is a service account key for gs:// locations. Empty
	// uses application default credentials.
	CredentialsFile string
}

// Open returns the Store for location.
//
// Inputs:
//
//	ctx - Context for client creation
//	location - Local path or gs://bucket/object
//	opts - Cloud credentials
//
// Outputs:
//
//	Store - The store; callers must Close it
//	error - Non-nil if the location is invalid or the client failed
func Open(ctx context.Context, location string, opts Options) (Store, error) {
	if strings.HasPrefix(location, gcsScheme) {
		return NewGCSStore(ctx, location, opts.CredentialsFile)
	}
	if location == "" {
		return nil, fmt.Errorf("%w: empty snapshot location", ErrFileIO)
	}
	return NewFileStore(location), nil
}

// Encode writes results as an indented JSON array.
func Encode(w io.Writer, results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrMalformed, err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: write: %v", ErrFileIO, err)
	}
	return nil
}

// Decode reads a JSON array of results.
//
// Errors:
//
//	ErrMalformed - Invalid JSON, an invalid position, a missing position or
//	a non-positive depth
func Decode(r io.Reader) ([]search.Result, error) {
	var results []search.Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i, res := range results {
		if res.Position.IsZero() {
			return nil, fmt.Errorf("%w: record %d has no position", ErrMalformed, i)
		}
		if res.Depth <= 0 {
			return nil, fmt.Errorf("%w: record %d (%s) has depth %d", ErrMalformed, i, res.Position, res.Depth)
		}
	}
	return results, nil
}

func encodeBytes(results []search.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
