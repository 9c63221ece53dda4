// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/EngineBench/services/bench/snapshot"
)

// Sink receives a finished run.
type Sink interface {
	// Name identifies the sink in errors and logs.
	Name() string

	// Publish stores or forwards the outcome.
	Publish(ctx context.Context, out Outcome) error
}

// Publish hands out to every sink concurrently and returns the first
// error. Each error names its sink.
func Publish(ctx context.Context, out Outcome, sinks ...Sink) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		sink := sink
		g.Go(func() error {
			if err := sink.Publish(gctx, out); err != nil {
				return fmt.Errorf("publish to %s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// SnapshotSink saves the fresh results of a run as a snapshot.
type SnapshotSink struct {
	Store snapshot.Store
}

// Name implements Sink.
func (s SnapshotSink) Name() string {
	return "snapshot " + s.Store.Location()
}

// Publish implements Sink.
func (s SnapshotSink) Publish(ctx context.Context, out Outcome) error {
	return s.Store.Save(ctx, out.Results)
}
