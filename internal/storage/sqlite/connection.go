package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/common"

	_ "modernc.org/sqlite"
)

// SQLiteDB wraps the single underlying *sql.DB connection shared by all
// per-entity storage implementations in this package.
type SQLiteDB struct {
	db     *sql.DB
	logger arbor.ILogger
	config *common.SQLiteConfig
}

// NewSQLiteDB opens (creating if absent) the SQLite database at
// config.Path, configures pragmas for a single-writer workload, and
// initializes the schema.
func NewSQLiteDB(logger arbor.ILogger, config *common.SQLiteConfig) (*SQLiteDB, error) {
	dir := filepath.Dir(config.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	if config.ResetOnStartup {
		if config.Environment != "development" {
			logger.Warn().Msg("reset_on_startup is set but environment is not development; ignoring")
		} else {
			resetDatabase(logger, config.Path)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", config.Path, err)
	}

	// A single writer avoids SQLITE_BUSY contention; SQLite handles
	// concurrent readers through its own locking underneath.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteDB{db: db, logger: logger, config: config}

	if err := s.configure(); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring sqlite pragmas: %w", err)
	}

	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	logger.Info().Str("path", config.Path).Msg("sqlite database ready")
	return s, nil
}

func (s *SQLiteDB) configure() error {
	busyTimeout := s.config.BusyTimeoutMS
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout),
		"PRAGMA cache_size = -20000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	if s.config.EnableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}
	return nil
}

// resetDatabase deletes the main database file plus its WAL/SHM
// siblings. Only called when Environment == "development".
func resetDatabase(logger arbor.ILogger, dbPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("failed to remove database file during reset")
		}
	}
	logger.Info().Str("path", dbPath).Msg("database reset for development")
}

// DB returns the underlying connection for storage implementations in
// this package.
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive.
func (s *SQLiteDB) Ping() error {
	return s.db.Ping()
}
