package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
	_ "modernc.org/sqlite"
)

const (
	dbFile = "checkin.db"
	driver = "sqlite"
)

// ErrNotFound is returned when a record does not exist locally.
var ErrNotFound = errors.New("not found")

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	baseDir string

	// writeMu serializes writers inside this process; the file lock
	// serializes them across processes.
	writeMu sync.Mutex

	subMu  sync.RWMutex
	subs   map[int]func(ChangeSet)
	nextID int
}

// Path returns the database file location inside baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, dbFile)
}

// Open opens the database and runs any pending migrations
func Open(baseDir string) (*DB, error) {
	dbPath := Path(baseDir)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'checkin init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	db := newDB(conn, baseDir)
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Initialize creates the database if needed and runs migrations
func Initialize(baseDir string) (*DB, error) {
	dbPath := Path(baseDir)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := newDB(conn, baseDir)
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// OpenConn wraps an already opened connection, creating the schema on it.
// baseDir only hosts the write lock file. Used with alternative drivers and
// in-memory databases.
func OpenConn(conn *sql.DB, baseDir string) (*DB, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	db := newDB(conn, baseDir)
	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout as fallback protection (matches lock timeout)
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

func newDB(conn *sql.DB, baseDir string) *DB {
	return &DB{conn: conn, baseDir: baseDir, subs: make(map[int]func(ChangeSet))}
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// BaseDir returns the directory holding the database
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Conn returns the underlying *sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// withWriteLock executes fn while holding an exclusive write lock.
// This prevents concurrent writes from multiple processes.
func (db *DB) withWriteLock(fn func() error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// Update writes a partial record to one row of table, outside of any
// explicit transaction. A missing row is not an error.
func (db *DB) Update(ctx context.Context, table events.EntityType, id int64, fields models.Fields) error {
	query, args, err := buildUpdate(table, id, fields)
	if err != nil {
		return err
	}

	var affected int64
	err = db.withWriteLock(func() error {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update %s/%d: %w", table, id, err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}
	if affected > 0 {
		cs := newChangeSet()
		cs.add(table, actionFor(fields), id)
		db.publish(cs)
	}
	return nil
}
