package runner

import "errors"

// ErrInvalidTableName indicates a changelog table name that is not a
// plain SQL identifier.
var ErrInvalidTableName = errors.New("invalid changelog table name")
