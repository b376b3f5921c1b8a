// Package cache implements the two persistence tiers this module
// relies on: a generic freshness-timeout disk cache for registry query
// responses (disk.go), and a content-addressed module cache fronted by
// an in-memory LRU (module.go).
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Entry is the on-disk envelope around a cached value: a Unix
// timestamp for freshness checking and the key it was stored under, so
// a reader can detect a cache-directory collision between two
// different keys.
type Entry[T any] struct {
	UnixTimestamp int64  `json:"unix_timestamp"`
	Key           string `json:"package_name"`
	Value         T      `json:"response"`
}

func (e Entry[T]) stillValid(timeout time.Duration, now time.Time) bool {
	stored := time.Unix(e.UnixTimestamp, 0)
	if now.Before(stored) {
		return false // clock went backwards; treat as stale
	}
	return now.Sub(stored) <= timeout
}

// Disk is a one-file-per-key cache with a freshness timeout, used for
// registry query responses. Writes are temp-file -> fsync -> rename,
// so a concurrent reader never observes a partially written entry.
type Disk[T any] struct {
	Dir     string
	Timeout time.Duration
	Logger  *zap.Logger
}

func (d *Disk[T]) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func (d *Disk[T]) path(key string) string {
	return filepath.Join(d.Dir, sanitizeKey(key))
}

// sanitizeKey keeps the "one file per key" layout from turning into a
// path traversal when a package name contains a slash (registry
// package names are namespace/name).
func sanitizeKey(key string) string {
	safe := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '/' || c == '\\' {
			c = '_'
		}
		safe = append(safe, c)
	}
	return string(safe)
}

// Lookup returns the cached value for key if a fresh, key-matching
// entry exists on disk. A missing, stale, corrupt, or key-mismatched
// entry all report (zero, false) — reading the cache never fails
// the caller; this is purely an optimization layer.
func (d *Disk[T]) Lookup(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		d.logger().Debug("cache: discarding unparsable entry", zap.String("key", key), zap.Error(err))
		_ = os.Remove(d.path(key))
		return zero, false
	}

	if !entry.stillValid(d.Timeout, time.Now()) {
		d.logger().Debug("cache: entry is stale", zap.String("key", key))
		return zero, false
	}
	if entry.Key != key {
		d.logger().Debug("cache: key mismatch, discarding", zap.String("key", key), zap.String("stored_key", entry.Key))
		return zero, false
	}
	return entry.Value, true
}

// Store writes v under key. Per spec, a write failure is never fatal —
// it is logged and swallowed; the caller proceeds as though nothing
// was cached.
func (d *Disk[T]) Store(key string, v T) {
	entry := Entry[T]{UnixTimestamp: time.Now().Unix(), Key: key, Value: v}
	if err := d.store(key, entry); err != nil {
		d.logger().Warn("cache: failed to persist entry", zap.String("key", key), zap.Error(err))
	}
}

func (d *Disk[T]) store(key string, entry Entry[T]) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(d.Dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, d.path(key)); err != nil {
		return fmt.Errorf("cache: rename into place: %w", err)
	}
	return nil
}
