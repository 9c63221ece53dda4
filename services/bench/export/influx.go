// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export writes run results to InfluxDB as time series.
package export

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/EngineBench/services/bench/runner"
)

// Measurement is the InfluxDB measurement name of a search point.
const Measurement = "engine_search"

// Config locates the InfluxDB bucket.
type Config struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether export is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// pointWriter is the part of api.WriteAPIBlocking the exporter uses.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Exporter writes one point per fresh result.
type Exporter struct {
	writer pointWriter
	close  func()
}

// New connects to InfluxDB. The client does not dial until the first write.
func New(cfg Config) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("influx url is required")
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx org and bucket are required (org=%q bucket=%q)", cfg.Org, cfg.Bucket)
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Exporter{
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		close:  client.Close,
	}, nil
}

// Points converts the fresh results of a run into points.
//
// Tags: run_id, engine, mode, position. Fields: nodes, time_ms, knps,
// score, branching_factor, depth. Every point carries the run's start
// time.
func Points(out runner.Outcome) []*write.Point {
	points := make([]*write.Point, 0, len(out.Results))
	for _, res := range out.Results {
		p := influxdb2.NewPointWithMeasurement(Measurement).
			AddTag("run_id", out.RunID).
			AddTag("engine", out.Engine).
			AddTag("mode", string(out.Mode)).
			AddTag("position", res.Position.String()).
			AddField("nodes", int64(res.Nodes)).
			AddField("time_ms", int64(res.Time)).
			AddField("knps", int64(res.Speed)).
			AddField("score", int64(res.Score)).
			AddField("branching_factor", float64(res.Branching)).
			AddField("depth", int64(res.Depth)).
			SetTime(out.StartedAt)
		points = append(points, p)
	}
	return points
}

// Name implements runner.Sink.
func (e *Exporter) Name() string {
	return "influx"
}

// Publish implements runner.Sink.
func (e *Exporter) Publish(ctx context.Context, out runner.Outcome) error {
	points := Points(out)
	if len(points) == 0 {
		return nil
	}
	if err := e.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write %d points: %w", len(points), err)
	}
	return nil
}

// Close releases the client.
func (e *Exporter) Close() {
	if e.close != nil {
		e.close()
	}
}
