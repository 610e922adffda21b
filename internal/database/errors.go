package database

import "errors"

// ErrInvalidDSN indicates the provided connection string could not be
// parsed for the selected engine.
var ErrInvalidDSN = errors.New("invalid connection string")

// ErrConnectionFailed indicates a connection to the database could not be
// established.
var ErrConnectionFailed = errors.New("database connection failed")
