package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/dbx"
	"github.com/iudanet/schoolsync/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// memoryPath открывает базу в памяти без файловой блокировки
const memoryPath = ":memory:"

// Storage represents the SQLite replica store
type Storage struct {
	db     *sql.DB
	lock   *flock.Flock
	clock  storage.Clock
	logger *slog.Logger
}

// Option configures Storage
type Option func(*Storage)

// WithClock sets the clock used to stamp local changes
func WithClock(c storage.Clock) Option {
	return func(s *Storage) { s.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.logger = l }
}

// New opens the replica store at dbPath and takes an exclusive lock on it.
// Use ":memory:" for an in-memory database (useful for testing).
// Returns ErrStoreLocked if another process holds the store.
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	s := &Storage{
		clock:  crdt.NewHybridClock(nil),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Один писатель на реплику: эксклюзивная блокировка рядом с файлом БД
	if dbPath != memoryPath {
		s.lock = flock.New(dbPath + ".lock")
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock store: %w", err)
		}
		if !locked {
			return nil, storage.ErrStoreLocked
		}
	}

	// Открываем соединение с БД
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		s.unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		s.unlock()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настраиваем connection pool
	// SQLite с WAL mode может поддерживать несколько читателей, но только одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Включаем WAL mode и другие оптимизации
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			s.unlock()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s.db = db

	// Запускаем миграции
	if err := s.runMigrations(); err != nil {
		db.Close()
		s.unlock()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.logger.Debug("Replica store opened", "path", dbPath)
	return s, nil
}

// Close closes the database connection and releases the store lock
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.unlock()
	return err
}

func (s *Storage) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations() error {
	// Устанавливаем dialect для SQLite
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	// Устанавливаем источник миграций из embedded FS
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	// Запускаем миграции
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// View runs fn in a transaction that is expected not to write
func (s *Storage) View(ctx context.Context, fn func(ctx context.Context, rec storage.Records) error) error {
	return s.Update(ctx, fn)
}

// Update runs fn in one transaction. The transaction commits when fn
// returns nil and rolls back otherwise. Timestamps of rows written by fn
// reach the clock only after a commit.
func (s *Storage) Update(ctx context.Context, fn func(ctx context.Context, rec storage.Records) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	var r *records
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r = s.records(tx)
		r.inTx = true
		return fn(ctx, r)
	})
	if err != nil {
		return err
	}

	// откаченная транзакция (в том числе пробный прогон) часы не двигает
	if !r.seen.IsZero() && s.clock != nil {
		s.clock.Observe(r.seen)
	}
	return nil
}

// Records returns row access outside of an explicit transaction
func (s *Storage) Records() storage.Records {
	return s.records(s.db)
}

func (s *Storage) records(q dbx.DBTX) *records {
	return &records{q: q, clock: s.clock}
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}
