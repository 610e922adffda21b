package upgrade

import "errors"

// ErrInvalidVersionDir indicates a directory under the upgrade root whose
// name is not a positive integer.
var ErrInvalidVersionDir = errors.New("invalid version directory name")

// ErrManifestUnreadable indicates a manifest that exists but could not be
// read.
var ErrManifestUnreadable = errors.New("reading manifest")

// ErrInvalidPrefix indicates a script filename without a positive-integer
// ordering prefix before the first hyphen.
var ErrInvalidPrefix = errors.New("invalid script prefix")

// ErrScriptRead indicates a listed script file could not be read.
var ErrScriptRead = errors.New("reading upgrade script")
