package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// Ping verifies database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats holds row counts for the store tables.
type Stats struct {
	Counters   int64 `json:"counters"`
	ListItems  int64 `json:"list_items"`
	SetMembers int64 `json:"set_members"`
}

// GetStats returns row counts for all tables.
func (s *Storage) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM kv_counters", &stats.Counters},
		{"SELECT COUNT(*) FROM kv_lists", &stats.ListItems},
		{"SELECT COUNT(*) FROM kv_sets", &stats.SetMembers},
	}

	for _, q := range queries {
		row := s.db.QueryRowContext(ctx, q.query)
		if err := row.Scan(q.dest); err != nil {
			return stats, fmt.Errorf("query %q: %w", q.query, err)
		}
	}
	return stats, nil
}

// FileSize returns the local database file size in bytes. Remote databases
// report zero.
func (s *Storage) FileSize() (int64, error) {
	if s.driver != "sqlite" || s.path == "" || s.path == ":memory:" {
		return 0, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Status summarizes the store for the status command.
type Status struct {
	Driver    string `json:"driver"`
	SizeBytes int64  `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
	Stats
}

// GetStatus returns driver, size and row counts.
func (s *Storage) GetStatus(ctx context.Context) (Status, error) {
	status := Status{Driver: s.driver}
	if size, err := s.FileSize(); err == nil {
		status.SizeBytes = size
		status.SizeHuman = humanize.IBytes(uint64(size))
	}
	stats, err := s.GetStats(ctx)
	if err != nil {
		return status, fmt.Errorf("getting store stats: %w", err)
	}
	status.Stats = stats
	return status, nil
}
