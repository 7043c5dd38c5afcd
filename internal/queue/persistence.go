package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/discotune/discotune/internal/catalog"
	"github.com/discotune/discotune/internal/logging"
	_ "modernc.org/sqlite"
)

// PersistenceStore keeps the last session's queue in SQLite.
type PersistenceStore struct {
	db *sql.DB
}

// NewPersistenceStore opens (and migrates) the queue database. An empty
// dbPath means queue.db in the state directory.
func NewPersistenceStore(dbPath string) (*PersistenceStore, error) {
	if dbPath == "" {
		dir, err := logging.StateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve queue db path: %w", err)
		}
		dbPath = filepath.Join(dir, "queue.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	store := &PersistenceStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PersistenceStore) ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS queue_items (
			position INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			track_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS queue_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_index INTEGER NOT NULL DEFAULT -1,
			repeat_mode INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			volume INTEGER NOT NULL DEFAULT -1,
			saved_at INTEGER NOT NULL DEFAULT 0
		);`,
		`INSERT OR IGNORE INTO queue_state (id) VALUES (1);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate queue schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored queue with q. volume is the intent volume to
// restore next time.
func (s *PersistenceStore) Save(ctx context.Context, q *Queue, volume int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return fmt.Errorf("clear queue items: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO queue_items (position, title, artist, track_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, track := range q.Items() {
		b, err := json.Marshal(track)
		if err != nil {
			return fmt.Errorf("marshal track %q: %w", track.Title, err)
		}
		if _, err := stmt.ExecContext(ctx, i, track.Title, track.Artist, string(b)); err != nil {
			return fmt.Errorf("insert track %q: %w", track.Title, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE queue_state SET current_index = ?, repeat_mode = ?, source = ?, volume = ?, saved_at = ? WHERE id = 1`,
		q.CurrentIndex(), int(q.RepeatMode()), q.Source(), volume, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("update queue state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Snapshot is a stored queue.
type Snapshot struct {
	Tracks       []catalog.Track
	CurrentIndex int
	Repeat       RepeatMode
	Source       string
	Volume       int // -1 when never saved
}

// Restore builds a queue from the snapshot.
func (s Snapshot) Restore() *Queue {
	q := New()
	q.Replace(s.Source, s.Tracks)
	q.SetRepeat(s.Repeat)
	if s.CurrentIndex >= 0 {
		_ = q.SetCurrent(s.CurrentIndex)
	}
	return q
}

func (s *PersistenceStore) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{CurrentIndex: -1, Volume: -1}

	err := s.db.QueryRowContext(ctx,
		`SELECT current_index, repeat_mode, source, volume FROM queue_state WHERE id = 1`).
		Scan(&snap.CurrentIndex, &snap.Repeat, &snap.Source, &snap.Volume)
	if err != nil && err != sql.ErrNoRows {
		return snap, fmt.Errorf("load queue state: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT track_json FROM queue_items ORDER BY position ASC`)
	if err != nil {
		return snap, fmt.Errorf("load queue items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return snap, fmt.Errorf("scan track: %w", err)
		}
		var track catalog.Track
		if err := json.Unmarshal([]byte(raw), &track); err != nil {
			// Skip corrupted entries
			continue
		}
		snap.Tracks = append(snap.Tracks, track)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate tracks: %w", err)
	}

	if snap.CurrentIndex >= len(snap.Tracks) {
		snap.CurrentIndex = len(snap.Tracks) - 1
	}
	if snap.CurrentIndex < 0 && len(snap.Tracks) > 0 {
		snap.CurrentIndex = 0
	}
	return snap, nil
}

func (s *PersistenceStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE queue_state SET current_index = -1, repeat_mode = 0, source = '' WHERE id = 1`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PersistenceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
