package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// DefaultMigrationsPath is the short_links schema source relative to the
// working directory of the binary.
const DefaultMigrationsPath = "file://migrations"

var ErrDirtySchema = errors.New("schema is dirty")

// RunMigrations brings the short_links schema at dsn up to the newest
// migration under path and returns the resulting schema version. An empty
// path falls back to DefaultMigrationsPath.
func RunMigrations(path, dsn string) (version uint, err error) {
	const op = "postgres.RunMigrations"

	if path == "" {
		path = DefaultMigrationsPath
	}

	m, err := migrate.New(path, dsn)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to open migrations from %s: %w", op, path, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if closeErr := errors.Join(srcErr, dbErr); closeErr != nil && err == nil {
			err = fmt.Errorf("%s: failed to close migrations: %w", op, closeErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("%s: failed to apply short_links migrations: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: failed to read schema version: %w", op, err)
	}
	if dirty {
		return version, fmt.Errorf("%s: version %d: %w", op, version, ErrDirtySchema)
	}

	return version, nil
}
