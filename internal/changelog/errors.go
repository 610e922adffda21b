package changelog

import "errors"

// ErrRecordNotPersisted indicates the changelog insert did not affect
// exactly one row.
var ErrRecordNotPersisted = errors.New("changelog record not persisted")

// ErrTableCreation indicates the changelog table could not be created.
var ErrTableCreation = errors.New("creating changelog table")
