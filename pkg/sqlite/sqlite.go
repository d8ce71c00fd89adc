package sqlite

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Option func(*gorm.Config)

// WithLogger replaces the default silent gorm logger.
func WithLogger(l logger.Interface) Option {
	return func(cfg *gorm.Config) {
		cfg.Logger = l
	}
}

// New opens the SQLite database file at path. Writes are serialized through a
// single connection because SQLite allows one writer at a time.
func New(ctx context.Context, path string, opts ...Option) (*gorm.DB, error) {
	const op = "sqlite.New"

	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get database handle: %w", op, err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	const op = "sqlite.Close"

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%s: failed to get database handle: %w", op, err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("%s: failed to close database: %w", op, err)
	}

	return nil
}
