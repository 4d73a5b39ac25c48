package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Incr atomically increments the counter at key and returns the new value.
// A missing counter starts from zero.
func (s *Storage) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var n int64
	if err := s.stmtIncr.QueryRowContext(ctx, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

// Get returns the counter at key. Absent counters read as zero.
func (s *Storage) Get(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var n int64
	err := s.stmtGet.QueryRowContext(ctx, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return n, nil
}

// MGet returns the counters for keys in the same order. Absent counters read as zero.
func (s *Storage) MGet(ctx context.Context, keys []string) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	out := make([]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv_counters WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	defer rows.Close()

	found := make(map[string]int64, len(keys))
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		found[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	for i, k := range keys {
		out[i] = found[k]
	}
	return out, nil
}

// LPush prepends value to the list at key. When maxLen > 0 the list is trimmed
// to its newest maxLen entries in the same transaction.
func (s *Storage) LPush(ctx context.Context, key, value string, maxLen int) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.StmtContext(ctx, s.stmtPush).ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	if maxLen > 0 {
		if _, err = tx.StmtContext(ctx, s.stmtTrim).ExecContext(ctx, key, key, maxLen); err != nil {
			return fmt.Errorf("ltrim %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	committed = true
	return nil
}

// LRange returns list entries newest first from start to stop inclusive.
// A negative stop means the end of the list.
func (s *Storage) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if start < 0 {
		start = 0
	}
	limit := -1
	if stop >= 0 {
		if stop < start {
			return []string{}, nil
		}
		limit = stop - start + 1
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT value FROM kv_lists WHERE list_key = ? ORDER BY id DESC LIMIT ? OFFSET ?
`, key, limit, start)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan list entry: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LLen returns the number of entries in the list at key.
func (s *Storage) LLen(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_lists WHERE list_key = ?`, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return n, nil
}

// SAdd adds member to the set at key. Adding an existing member is a no-op.
func (s *Storage) SAdd(ctx context.Context, key, member string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.stmtAddMember.ExecContext(ctx, key, member); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	return nil
}

// SMembers returns the members of the set at key in insertion order.
func (s *Storage) SMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT member FROM kv_sets WHERE set_key = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// withTimeout bounds ctx by the configured query timeout.
func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}
