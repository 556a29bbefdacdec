package prefs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/solcial/pulse/internal/analytics"
)

// Preference keys. Values are JSON-serialized.
const (
	keyFilters           = "filters"
	keyComparisonEnabled = "comparison_enabled"
	keySelectedTab       = "selected_tab"
)

// Store persists dashboard preferences (active filters, comparison flag,
// selected tab) across restarts. The analytics cache and in-flight job state
// are deliberately never persisted; they reset on cold start.
type Store struct {
	db *sql.DB
}

var _ analytics.PreferenceSink = (*Store)(nil)

// Open opens (creating if needed) the preference store at path
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize preferences schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveFilters persists the active filter set
func (s *Store) SaveFilters(f analytics.Filters) error {
	return s.set(keyFilters, f)
}

// LoadFilters returns the persisted filter set, or nil if none is stored
func (s *Store) LoadFilters() (*analytics.Filters, error) {
	var f analytics.Filters
	ok, err := s.get(keyFilters, &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

// SaveComparisonEnabled persists the comparison flag
func (s *Store) SaveComparisonEnabled(enabled bool) error {
	return s.set(keyComparisonEnabled, enabled)
}

// LoadComparisonEnabled returns the persisted comparison flag, defaulting to
// false when none is stored
func (s *Store) LoadComparisonEnabled() (bool, error) {
	var enabled bool
	ok, err := s.get(keyComparisonEnabled, &enabled)
	if err != nil || !ok {
		return false, err
	}
	return enabled, nil
}

// SaveSelectedTab persists the selected dashboard tab
func (s *Store) SaveSelectedTab(tab string) error {
	return s.set(keySelectedTab, tab)
}

// SelectedTab returns the persisted dashboard tab, or "" when none is stored
func (s *Store) SelectedTab() (string, error) {
	var tab string
	ok, err := s.get(keySelectedTab, &tab)
	if err != nil || !ok {
		return "", err
	}
	return tab, nil
}

// Reset removes all stored preferences
func (s *Store) Reset() error {
	if _, err := s.db.Exec(`DELETE FROM preferences`); err != nil {
		return fmt.Errorf("failed to reset preferences: %w", err)
	}
	return nil
}

func (s *Store) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal preference %s: %w", key, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}

	return nil
}

// get unmarshals the stored value for key into out, reporting whether a value
// was present.
func (s *Store) get(key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal preference %s: %w", key, err)
	}

	return true, nil
}
