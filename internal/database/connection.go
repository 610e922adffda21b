// Package database opens engine-appropriate database handles for the CLI.
// The runner itself never opens or closes connections.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver

	"github.com/quartzlab/upgrader/internal/dialect"
)

// Open opens and pings a database handle for the given engine kind.
// SQLite handles are capped at one open connection because the driver
// serializes writers; MySQL DSNs get parseTime and multiStatements so
// timestamps scan as time.Time and multi-statement scripts run whole.
func Open(ctx context.Context, engine, dsn string) (*sql.DB, error) {
	name, err := driverName(engine)
	if err != nil {
		return nil, err
	}

	if engine == dialect.EngineMySQL {
		dsn, err = normalizeMySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if engine == dialect.EngineSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return db, nil
}

// driverName maps an engine kind to its registered database/sql driver.
func driverName(engine string) (string, error) {
	switch engine {
	case dialect.EngineSQLite:
		return "sqlite", nil
	case dialect.EnginePostgres:
		return "pgx", nil
	case dialect.EngineMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("%w: %q", dialect.ErrUnsupportedEngine, engine)
	}
}

func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDSN, err)
	}

	cfg.ParseTime = true
	cfg.MultiStatements = true

	return cfg.FormatDSN(), nil
}
