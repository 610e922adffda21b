package dialect_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzlab/upgrader/internal/dialect"
)

func TestForEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		engine  string
		wantErr bool
	}{
		{name: "mysql is supported", engine: "mysql"},
		{name: "sqlite3 is supported", engine: "sqlite3"},
		{name: "postgres is supported", engine: "postgres"},
		{name: "unknown engine fails", engine: "oracle", wantErr: true},
		{name: "empty engine fails", engine: "", wantErr: true},
		{name: "case sensitive", engine: "MySQL", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := dialect.ForEngine(tt.engine)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, dialect.ErrUnsupportedEngine)
				assert.Nil(t, d)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, tt.engine, d.Engine())
		})
	}
}

func TestCreateChangelogSQL_substitutesTableName(t *testing.T) {
	t.Parallel()

	for _, engine := range []string{"mysql", "sqlite3", "postgres"} {
		engine := engine
		t.Run(engine, func(t *testing.T) {
			t.Parallel()

			d, err := dialect.ForEngine(engine)
			require.NoError(t, err)

			sql := d.CreateChangelogSQL("schema_changelog")
			assert.Contains(t, sql, "CREATE TABLE")
			assert.Contains(t, sql, "schema_changelog")
			assert.Contains(t, sql, "id")
			assert.Contains(t, sql, "applied")
		})
	}
}

func TestInsertRecordSQL_placeholderStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		engine      string
		placeholder string
	}{
		{engine: "mysql", placeholder: "?"},
		{engine: "sqlite3", placeholder: "?"},
		{engine: "postgres", placeholder: "$1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.engine, func(t *testing.T) {
			t.Parallel()

			d, err := dialect.ForEngine(tt.engine)
			require.NoError(t, err)

			sql := d.InsertRecordSQL("schema_changelog")
			assert.Contains(t, sql, "INSERT INTO")
			assert.Contains(t, sql, "schema_changelog")
			assert.Contains(t, sql, tt.placeholder)
		})
	}
}

func TestMaxVersionSQL_queriesMaxID(t *testing.T) {
	t.Parallel()

	for _, engine := range []string{"mysql", "sqlite3", "postgres"} {
		engine := engine
		t.Run(engine, func(t *testing.T) {
			t.Parallel()

			d, err := dialect.ForEngine(engine)
			require.NoError(t, err)

			sql := d.MaxVersionSQL("changelog")
			assert.Contains(t, sql, "MAX(id)")
			assert.Contains(t, sql, "changelog")
		})
	}
}

func TestIsUndefinedTable_postgres(t *testing.T) {
	t.Parallel()

	d, err := dialect.ForEngine("postgres")
	require.NoError(t, err)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "undefined table code matches",
			err:  &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			want: true,
		},
		{
			name: "wrapped undefined table matches",
			err:  fmt.Errorf("querying: %w", &pgconn.PgError{Code: pgerrcode.UndefinedTable}),
			want: true,
		},
		{
			name: "other pg error does not match",
			err:  &pgconn.PgError{Code: pgerrcode.SyntaxError},
			want: false,
		},
		{
			name: "plain error does not match",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil error does not match",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, d.IsUndefinedTable(tt.err))
		})
	}
}

func TestIsUndefinedTable_mysql(t *testing.T) {
	t.Parallel()

	d, err := dialect.ForEngine("mysql")
	require.NoError(t, err)

	missing := &mysql.MySQLError{Number: 1146, Message: "Table 'app.schema_changelog' doesn't exist"}
	assert.True(t, d.IsUndefinedTable(missing))
	assert.True(t, d.IsUndefinedTable(fmt.Errorf("querying: %w", missing)))

	unknownDB := &mysql.MySQLError{Number: 1049, Message: "Unknown database 'app'"}
	assert.False(t, d.IsUndefinedTable(unknownDB))
	assert.False(t, d.IsUndefinedTable(errors.New("bad handshake")))
}

func TestIsUndefinedTable_sqlite(t *testing.T) {
	t.Parallel()

	d, err := dialect.ForEngine("sqlite3")
	require.NoError(t, err)

	assert.True(t, d.IsUndefinedTable(errors.New("SQL logic error: no such table: schema_changelog (1)")))
	assert.False(t, d.IsUndefinedTable(errors.New("database is locked (5)")))
}
