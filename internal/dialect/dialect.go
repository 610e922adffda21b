// Package dialect holds the per-engine SQL templates and error
// classification used by the changelog bookkeeping layer. Each supported
// engine maps to an enumerated Dialect value resolved once at startup.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Engine kinds recognized by ForEngine.
const (
	EngineMySQL    = "mysql"
	EngineSQLite   = "sqlite3"
	EnginePostgres = "postgres"
)

// mysqlErrNoSuchTable is the server error number for ER_NO_SUCH_TABLE.
const mysqlErrNoSuchTable = 1146

// Dialect carries one engine's changelog SQL templates, bind-placeholder
// style, and driver-specific error classification.
type Dialect struct {
	engine         string
	createTemplate string
	insertTemplate string
	maxTemplate    string
	undefinedTable func(error) bool
	checkScript    func(string) error
}

// ForEngine returns the Dialect for the given engine kind. Recognized
// kinds are mysql, sqlite3, and postgres; anything else fails with
// ErrUnsupportedEngine.
func ForEngine(engine string) (*Dialect, error) {
	switch engine {
	case EngineMySQL:
		return &Dialect{
			engine: EngineMySQL,
			createTemplate: "CREATE TABLE `%s` (\n" +
				"  `id` INT UNSIGNED NOT NULL,\n" +
				"  `applied` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,\n" +
				"  PRIMARY KEY (`id`)\n" +
				") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
			insertTemplate: "INSERT INTO `%s` (id) VALUES (?)",
			maxTemplate:    "SELECT MAX(id) FROM `%s`",
			undefinedTable: mysqlUndefinedTable,
		}, nil
	case EngineSQLite:
		return &Dialect{
			engine: EngineSQLite,
			createTemplate: "CREATE TABLE %s (\n" +
				"    id INTEGER PRIMARY KEY,\n" +
				"    applied TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP\n" +
				")",
			insertTemplate: "INSERT INTO %s (id) VALUES (?)",
			maxTemplate:    "SELECT MAX(id) FROM %s",
			undefinedTable: sqliteUndefinedTable,
		}, nil
	case EnginePostgres:
		return &Dialect{
			engine: EnginePostgres,
			createTemplate: "CREATE TABLE %s (\n" +
				"    id INTEGER PRIMARY KEY,\n" +
				"    applied TIMESTAMPTZ NOT NULL DEFAULT NOW()\n" +
				")",
			insertTemplate: "INSERT INTO %s (id) VALUES ($1)",
			maxTemplate:    "SELECT MAX(id) FROM %s",
			undefinedTable: pgUndefinedTable,
			checkScript:    checkPostgresScript,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}
}

// Engine returns the engine kind this dialect was resolved for.
func (d *Dialect) Engine() string { return d.engine }

// CreateChangelogSQL renders the engine's CREATE TABLE statement for the
// given changelog table name.
func (d *Dialect) CreateChangelogSQL(table string) string {
	return fmt.Sprintf(d.createTemplate, table)
}

// InsertRecordSQL renders the INSERT used to record an applied version.
// The statement's single bind parameter is the version number.
func (d *Dialect) InsertRecordSQL(table string) string {
	return fmt.Sprintf(d.insertTemplate, table)
}

// MaxVersionSQL renders the active-version query (SELECT MAX over the
// changelog's id column).
func (d *Dialect) MaxVersionSQL(table string) string {
	return fmt.Sprintf(d.maxTemplate, table)
}

// IsUndefinedTable reports whether err is the engine's "table does not
// exist" error. Only this exact condition signals an uninitialized
// database; every other query error stays an error.
func (d *Dialect) IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}

	return d.undefinedTable(err)
}

// CheckScript validates a script before it runs inside a version
// transaction. Only postgres performs a check; the other engines accept
// scripts as opaque strings.
func (d *Dialect) CheckScript(sql string) error {
	if d.checkScript == nil {
		return nil
	}

	return d.checkScript(sql)
}

func pgUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

func mysqlUndefinedTable(err error) bool {
	var myErr *mysql.MySQLError

	return errors.As(err, &myErr) && myErr.Number == mysqlErrNoSuchTable
}

// sqliteUndefinedTable matches on the message text because the driver
// reports missing tables as a generic SQLITE_ERROR.
func sqliteUndefinedTable(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}
