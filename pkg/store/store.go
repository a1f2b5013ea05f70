// Package store persists game variables in an SQLite database, one save
// slot per name.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zurustar/intvm/pkg/logger"
)

// ErrNoSlot is returned when a save slot does not exist.
var ErrNoSlot = errors.New("store: no such save slot")

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	name        TEXT PRIMARY KEY,
	map         TEXT NOT NULL,
	ticks       INTEGER NOT NULL,
	experience  INTEGER NOT NULL,
	globals_len INTEGER NOT NULL,
	map_len     INTEGER NOT NULL,
	saved_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS vars (
	slot  TEXT NOT NULL REFERENCES slots(name) ON DELETE CASCADE,
	scope TEXT NOT NULL,
	num   INTEGER NOT NULL,
	value INTEGER NOT NULL,
	PRIMARY KEY (slot, scope, num)
);`

const (
	scopeGlobal = "global"
	scopeMap    = "map"
)

// Snapshot is the persisted part of the game state.
type Snapshot struct {
	Slot       string
	Map        string
	Ticks      uint32
	Experience int32
	Globals    []int32
	MapVars    []int32
	SavedAt    time.Time
}

// Store is an open save database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// foreign_keys and :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.For("STORE")
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes snap, replacing any slot of the same name.
func (s *Store) Save(ctx context.Context, snap Snapshot) (err error) {
	if snap.Slot == "" {
		return errors.New("store: empty slot name")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM slots WHERE name = ?", snap.Slot); err != nil {
		return fmt.Errorf("store: clear slot %s: %w", snap.Slot, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO slots (name, map, ticks, experience, globals_len, map_len, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Slot, snap.Map, int64(snap.Ticks), snap.Experience,
		len(snap.Globals), len(snap.MapVars), snap.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: write slot %s: %w", snap.Slot, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vars (slot, scope, num, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer stmt.Close()

	for _, set := range []struct {
		scope string
		vars  []int32
	}{{scopeGlobal, snap.Globals}, {scopeMap, snap.MapVars}} {
		for n, v := range set.vars {
			if v == 0 {
				continue
			}
			if _, err = stmt.ExecContext(ctx, snap.Slot, set.scope, n, v); err != nil {
				return fmt.Errorf("store: write %s var %d: %w", set.scope, n, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit slot %s: %w", snap.Slot, err)
	}
	s.log.Info("Game saved", "slot", snap.Slot, "map", snap.Map, "ticks", snap.Ticks)
	return nil
}

// Load reads save slot name.
func (s *Store) Load(ctx context.Context, name string) (Snapshot, error) {
	snap := Snapshot{Slot: name}
	var (
		ticks            int64
		globals, mapVars int
		savedAt          int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT map, ticks, experience, globals_len, map_len, saved_at FROM slots WHERE name = ?", name,
	).Scan(&snap.Map, &ticks, &snap.Experience, &globals, &mapVars, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("load %s: %w", name, ErrNoSlot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: load %s: %w", name, err)
	}
	snap.Ticks = uint32(ticks)
	snap.SavedAt = time.UnixMilli(savedAt)
	snap.Globals = make([]int32, globals)
	snap.MapVars = make([]int32, mapVars)

	rows, err := s.db.QueryContext(ctx, "SELECT scope, num, value FROM vars WHERE slot = ?", name)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: load %s vars: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			scope string
			num   int
			value int32
		)
		if err := rows.Scan(&scope, &num, &value); err != nil {
			return Snapshot{}, fmt.Errorf("store: load %s vars: %w", name, err)
		}
		vars := snap.Globals
		if scope == scopeMap {
			vars = snap.MapVars
		}
		if num >= 0 && num < len(vars) {
			vars[num] = value
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("store: load %s vars: %w", name, err)
	}
	return snap, nil
}

// Slots returns the names of all save slots, most recent first.
func (s *Store) Slots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM slots ORDER BY saved_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("store: list slots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: list slots: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes save slot name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM slots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", name, ErrNoSlot)
	}
	return nil
}
