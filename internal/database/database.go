package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RemovalDB manages the SQLite database for removal history
type RemovalDB struct {
	db *sql.DB
}

// RemovalRecord represents a single removal event
type RemovalRecord struct {
	ID           int64
	Timestamp    time.Time
	Action       string // REMOVE, DRY_RUN, SKIP or ERROR
	Path         string
	DirName      string
	Depth        int
	Root         string // Scan root the path was reclaimed under
	ErrorMessage string
	CreatedAt    time.Time
}

// NewRemovalDB creates a new database connection and initializes schema
func NewRemovalDB(dbPath string) (*RemovalDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Test connection by executing a simple query instead of Ping()
	// This ensures the database file is created if it doesn't exist
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// Enable WAL mode for better concurrency (multiple readers, one writer)
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	rdb := &RemovalDB{db: db}
	if err = rdb.initSchema(); err != nil {
		return nil, err
	}

	// Clear the deferred error handler since we succeeded
	err = nil
	return rdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *RemovalDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		dir_name TEXT,
		depth INTEGER NOT NULL,
		root TEXT NOT NULL,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON removals(action);
	CREATE INDEX IF NOT EXISTS idx_path ON removals(path);
	CREATE INDEX IF NOT EXISTS idx_root ON removals(root);
	CREATE INDEX IF NOT EXISTS idx_depth ON removals(depth);
	CREATE INDEX IF NOT EXISTS idx_created_at ON removals(created_at);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRemoval inserts a removal event into the database
func (d *RemovalDB) RecordRemoval(action, path string, depth int, root, errorMsg string) error {
	query := `
	INSERT INTO removals (
		timestamp, action, path, dir_name, depth, root, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		time.Now(),
		action,
		path,
		filepath.Base(path),
		depth,
		root,
		errorMsg,
	)

	return err
}

// Close closes the database connection
func (d *RemovalDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *RemovalDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns database statistics
func (d *RemovalDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords int64
	err := d.db.QueryRow("SELECT COUNT(*) FROM removals").Scan(&totalRecords)
	if err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var pageCount, pageSize int64
	err = d.db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	if err != nil {
		return nil, err
	}
	err = d.db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	if err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	var oldestDateStr, newestDateStr sql.NullString
	err = d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM removals").Scan(&oldestDateStr, &newestDateStr)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseSQLiteTime(oldestDateStr); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseSQLiteTime(newestDateStr); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

// parseSQLiteTime handles the formats SQLite stores time.Time in,
// e.g. "2025-11-19 23:01:56.489344855-05:00"
func parseSQLiteTime(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	formats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
