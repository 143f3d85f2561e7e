package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// DraftKey is the local storage slot of the task modal draft.
const DraftKey = "taskDraft"

// Store is a client-local key/value table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the store at path, creating parent directories as needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newStore(db)
}

// OpenInMemory opens a private in-memory store.
func OpenInMemory() (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate handles migrate.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS local_storage (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SetItem stores value under key, replacing any previous value.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, ts(s.now()))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// GetItem returns the value under key and whether it exists.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// RemoveItem deletes key; a missing key is not an error.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM local_storage WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, app.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get %q timestamp: %w", key, err)
	}
	return parseTS(raw), nil
}

// Drafts returns the draft slot stored under DraftKey.
func (s *Store) Drafts() *DraftSlot {
	return &DraftSlot{store: s, key: DraftKey}
}

// DraftSlot adapts one local storage key to app.DraftStore.
type DraftSlot struct {
	store *Store
	key   string
}

var _ app.DraftStore = (*DraftSlot)(nil)

// Save writes the draft.
func (d *DraftSlot) Save(ctx context.Context, draft domain.Draft) error {
	raw, err := domain.EncodeDraft(draft)
	if err != nil {
		return err
	}
	return d.store.SetItem(ctx, d.key, string(raw))
}

// Load reads the draft. Malformed content fails with domain.ErrMalformedDraft.
func (d *DraftSlot) Load(ctx context.Context) (domain.Draft, bool, error) {
	raw, ok, err := d.store.GetItem(ctx, d.key)
	if err != nil || !ok {
		return domain.Draft{}, false, err
	}
	draft, err := domain.DecodeDraft([]byte(raw))
	if err != nil {
		return domain.Draft{}, false, err
	}
	return draft, true, nil
}

// Clear removes the draft.
func (d *DraftSlot) Clear(ctx context.Context) error {
	return d.store.RemoveItem(ctx, d.key)
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
