package dialect

import "errors"

// ErrUnsupportedEngine indicates no changelog template exists for the
// requested engine kind.
var ErrUnsupportedEngine = errors.New("unsupported database engine")

// ErrUnsafeScript indicates a script contains a statement that cannot run
// inside a transaction block.
var ErrUnsafeScript = errors.New("script cannot run inside a transaction")
