// Package cache keeps the last good dashboard snapshot on disk so an offline
// session can start from real data instead of the mock dataset.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opsdeck/internal/db"
	"opsdeck/internal/domain"
	"opsdeck/internal/migrate"
)

// ErrMiss is returned by Load when nothing has been cached yet.
var ErrMiss = errors.New("no cached snapshot")

// SettingThreadID stores the chat thread id between sessions.
const SettingThreadID = "chat.thread_id"

type Entry struct {
	Snapshot domain.Snapshot
	SavedAt  time.Time
}

type Cache struct {
	db  *sql.DB
	Now func() time.Time
}

// Open opens (and migrates) the cache under workspace.
func Open(ctx context.Context, workspace string) (*Cache, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	c, err := New(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an open connection, applying migrations first.
func New(ctx context.Context, conn *sql.DB) (*Cache, error) {
	if err := migrate.Migrate(ctx, conn); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return &Cache{db: conn, Now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Save replaces the cached snapshot.
func (c *Cache) Save(ctx context.Context, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO snapshots(id, payload, source, saved_at) VALUES (1, ?, 'remote', ?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, source=excluded.source, saved_at=excluded.saved_at`,
		string(payload), c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (c *Cache) Load(ctx context.Context) (Entry, error) {
	var payload, savedAt string
	err := c.db.QueryRowContext(ctx, `SELECT payload, saved_at FROM snapshots WHERE id=1`).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load snapshot: %w", err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(payload), &e.Snapshot); err != nil {
		return Entry{}, fmt.Errorf("decode snapshot: %w", err)
	}
	e.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
	return e, nil
}

func (c *Cache) SetSetting(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO settings(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, c.now().UTC().Format(time.RFC3339Nano))
	return err
}

// Setting returns the stored value and whether it was present.
func (c *Cache) Setting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
