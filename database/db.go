package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/korjavin/swiftcamp/models"
)

// progressKey is the key of the single persisted progress record
const progressKey = "userProgress"

// DB handles all database operations
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; bot deliveries write from their own goroutines
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	// Key-value entries, used for the progress record
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Finished code runs
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			lesson_id TEXT NOT NULL,
			passed INTEGER NOT NULL,
			total INTEGER NOT NULL,
			success BOOLEAN NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Tutor cache
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tutor_cache (
			cache_key TEXT PRIMARY KEY,
			response TEXT NOT NULL
		)
	`)
	return err
}

// LoadProgress reads the stored progress record, reporting whether it exists
func (db *DB) LoadProgress(ctx context.Context) (models.UserProgress, bool, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		"SELECT value FROM kv_store WHERE key = ?", progressKey,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.UserProgress{}, false, nil
	}
	if err != nil {
		return models.UserProgress{}, false, err
	}

	var p models.UserProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.UserProgress{}, false, fmt.Errorf("decode stored progress: %w", err)
	}
	return p, true, nil
}

// SaveProgress replaces the stored progress record
func (db *DB) SaveProgress(ctx context.Context, p models.UserProgress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)",
		progressKey, string(raw), time.Now().Unix(),
	)
	return err
}

// DeleteProgress removes the stored progress record
func (db *DB) DeleteProgress(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", progressKey)
	return err
}

// SaveSubmission records a finished code run. A missing ID is generated.
func (db *DB) SaveSubmission(ctx context.Context, s models.Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Timestamp == 0 {
		s.Timestamp = time.Now().Unix()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO submissions (id, lesson_id, passed, total, success, error, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.ID, s.LessonID, s.Passed, s.Total, s.Success, s.Error, s.Timestamp,
	)
	return err
}

// GetSubmissionStats counts successful and failed runs
func (db *DB) GetSubmissionStats(ctx context.Context) (succeeded int, failed int, err error) {
	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM submissions WHERE success = 1",
	).Scan(&succeeded)
	if err != nil {
		return 0, 0, err
	}

	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM submissions WHERE success = 0",
	).Scan(&failed)
	return succeeded, failed, err
}

// LessonFailures is a lesson and how many runs for it failed
type LessonFailures struct {
	LessonID string
	Failures int
}

// GetMostFailedLessons returns the lessons with the most failed runs
func (db *DB) GetMostFailedLessons(ctx context.Context, limit int) ([]LessonFailures, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT lesson_id, COUNT(*) as count
		FROM submissions
		WHERE success = 0 AND lesson_id != ''
		GROUP BY lesson_id
		ORDER BY count DESC, lesson_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LessonFailures
	for rows.Next() {
		var lf LessonFailures
		if err := rows.Scan(&lf.LessonID, &lf.Failures); err != nil {
			return nil, err
		}
		result = append(result, lf)
	}

	return result, rows.Err()
}

// CacheTutorReview stores a response from the tutor API
func (db *DB) CacheTutorReview(ctx context.Context, key, response string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO tutor_cache (cache_key, response) VALUES (?, ?)",
		key, response,
	)
	return err
}

// GetCachedTutorReview retrieves a cached response; an empty string means none
func (db *DB) GetCachedTutorReview(ctx context.Context, key string) (string, error) {
	var response string
	err := db.conn.QueryRowContext(ctx,
		"SELECT response FROM tutor_cache WHERE cache_key = ?", key,
	).Scan(&response)

	if err == sql.ErrNoRows {
		return "", nil // No cached response
	}

	return response, err
}

// ClearSubmissions removes the run history, used when progress is reset
func (db *DB) ClearSubmissions(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM submissions")
	return err
}
