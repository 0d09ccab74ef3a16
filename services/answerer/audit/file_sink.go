// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	metricsFileName = "metrics.jsonl"
	snapshotsDir    = "snapshots"
)

// FileSink writes metrics as JSON lines and snapshots as individual JSON
// files under a base directory.
//
// # Layout
//
//	<dir>/metrics.jsonl
//	<dir>/snapshots/<snapshot-id>.json
//
// # Thread Safety
//
// Safe for concurrent use. A mutex serializes metrics writes so each record
// lands as exactly one line; snapshot files have unique names and need no
// coordination beyond the filesystem.
type FileSink struct {
	dir string

	mu          sync.Mutex
	metricsFile *os.File
}

// NewFileSink creates the directory layout and opens the metrics log for
// appending.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Join(dir, snapshotsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, metricsFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics log: %w", err)
	}
	slog.Info("Audit sink initialized", "dir", dir)
	return &FileSink{dir: dir, metricsFile: f}, nil
}

// RecordMetrics appends one JSON line to the metrics log.
func (s *FileSink) RecordMetrics(_ context.Context, rec MetricsRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.metricsFile.Write(line); err != nil {
		return fmt.Errorf("failed to write metrics record: %w", err)
	}
	return nil
}

// RecordSnapshot writes one pretty-printed snapshot file keyed by its id.
func (s *FileSink) RecordSnapshot(_ context.Context, snap Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot id must not be empty")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	path := filepath.Join(s.dir, snapshotsDir, snap.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	slog.Debug("Snapshot saved for review", "path", path)
	return nil
}

// Close flushes and closes the metrics log.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsFile.Close()
}
