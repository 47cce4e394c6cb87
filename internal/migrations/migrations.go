// Package migrations carries the schema for every SQL Task Store and applies
// it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"productivityTracker/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// SQLiteURL turns a database file path into a migrate URL.
func SQLiteURL(path string) string {
	return "sqlite://" + path
}

func Up(dialect Dialect, databaseURL string) error {
	return run(dialect, databaseURL, "up", func(m *migrate.Migrate) error { return m.Up() })
}

// Down rolls back every applied migration.
func Down(dialect Dialect, databaseURL string) error {
	return run(dialect, databaseURL, "down", func(m *migrate.Migrate) error { return m.Down() })
}

func run(dialect Dialect, databaseURL, direction string, step func(*migrate.Migrate) error) (err error) {
	m, err := open(dialect, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := step(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Migrations: schema already up to date", zap.String("dialect", string(dialect)))
			return nil
		}
		logger.Error("Migrations: failed", err,
			zap.String("dialect", string(dialect)),
			zap.String("direction", direction))
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", verr)
	}
	logger.Info("Migrations: applied",
		zap.String("dialect", string(dialect)),
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

func open(dialect Dialect, databaseURL string) (*migrate.Migrate, error) {
	switch dialect {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}

	src, err := iofs.New(files, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("loading %s migrations: %w", dialect, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening migrations for %s: %w", dialect, err)
	}
	return m, nil
}
