package dialect

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// checkPostgresScript parses a script with the real PostgreSQL parser and
// rejects statements that refuse to run inside a transaction block. Every
// version applies atomically, so such statements must be caught before the
// version transaction starts.
func checkPostgresScript(sql string) error {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return fmt.Errorf("parsing script: %w", err)
	}

	for i, stmt := range result.Stmts {
		if kind := nonTransactional(stmt); kind != "" {
			return fmt.Errorf("statement %d (%s): %w", i+1, kind, ErrUnsafeScript)
		}
	}

	return nil
}

// nonTransactional names the statement kind when it cannot run inside a
// transaction block, or returns "" when the statement is safe.
func nonTransactional(stmt *pg_query.RawStmt) string {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_IndexStmt:
		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return "CREATE INDEX CONCURRENTLY"
		}
	case *pg_query.Node_VacuumStmt:
		return "VACUUM"
	case *pg_query.Node_CreatedbStmt:
		return "CREATE DATABASE"
	case *pg_query.Node_DropdbStmt:
		return "DROP DATABASE"
	case *pg_query.Node_AlterSystemStmt:
		return "ALTER SYSTEM"
	}

	return ""
}
