// Package upgrade discovers and loads versioned upgrade units from a
// script store. Each version is a directory named by its number; script
// order inside a version comes from an optional _manifest file or from
// numeric filename prefixes.
package upgrade

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	// ManifestName is the optional per-version file that pins script order.
	ManifestName = "_manifest"

	// ScriptExt is appended to script names when loading their contents.
	ScriptExt = ".sql"
)

// Script is one named SQL payload inside an upgrade unit. SQL holds the
// whole file as a single opaque string; no statement splitting happens.
type Script struct {
	Name string
	SQL  string
}

// Upgrade is the ordered set of scripts for a single version.
type Upgrade struct {
	Version int
	Scripts []Script
}

// Versions lists the upgrade versions available under the source root in
// ascending numeric order. Only directories count; every directory name
// must parse as a positive integer.
func Versions(ctx context.Context, src Source) ([]int, error) {
	entries, err := src.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing upgrade root: %w", err)
	}

	versions := make([]int, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir {
			continue
		}

		v, err := strconv.Atoi(e.Name)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("directory %q: %w", e.Name, ErrInvalidVersionDir)
		}

		versions = append(versions, v)
	}

	sort.Ints(versions)

	return versions, nil
}

// Latest returns the highest available version, or 0 when none exist.
func Latest(ctx context.Context, src Source) (int, error) {
	versions, err := Versions(ctx, src)
	if err != nil {
		return 0, err
	}

	if len(versions) == 0 {
		return 0, nil
	}

	return versions[len(versions)-1], nil
}

// Load resolves the upgrade unit for a version. Script order comes from
// the version directory's manifest when one exists, otherwise from the
// numeric prefix before the first hyphen in each filename.
func Load(ctx context.Context, src Source, version int) (*Upgrade, error) {
	dir := strconv.Itoa(version)

	names, err := scriptNames(ctx, src, dir)
	if err != nil {
		return nil, fmt.Errorf("upgrade %d: %w", version, err)
	}

	scripts := make([]Script, 0, len(names))

	for _, name := range names {
		sql, err := readScript(ctx, src, dir, name)
		if err != nil {
			return nil, fmt.Errorf("upgrade %d: %w", version, err)
		}

		scripts = append(scripts, Script{Name: name, SQL: sql})
	}

	return &Upgrade{Version: version, Scripts: scripts}, nil
}

// ScriptPrefix parses the ordering key from a script filename: the
// positive integer before the first hyphen. It fails with
// ErrInvalidPrefix when the filename has no hyphen or the leading token
// is not a positive integer.
func ScriptPrefix(filename string) (int, error) {
	prefix, _, found := strings.Cut(filename, "-")
	if !found {
		return 0, fmt.Errorf("%q: %w", filename, ErrInvalidPrefix)
	}

	n, err := strconv.Atoi(prefix)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q: %w", filename, ErrInvalidPrefix)
	}

	return n, nil
}

// scriptNames determines the ordered script names for a version directory:
// manifest order when the manifest exists, prefix-scan order when it does
// not. A manifest that exists but cannot be read is fatal.
func scriptNames(ctx context.Context, src Source, dir string) ([]string, error) {
	data, err := src.Read(ctx, path.Join(dir, ManifestName))

	switch {
	case err == nil:
		return manifestNames(data), nil
	case errors.Is(err, fs.ErrNotExist):
		return scanNames(ctx, src, dir)
	default:
		return nil, fmt.Errorf("%w: %w", ErrManifestUnreadable, err)
	}
}

// manifestNames parses manifest contents: one script name per line,
// trailing whitespace stripped, blank lines skipped, order preserved
// exactly.
func manifestNames(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	names := make([]string, 0, len(lines))

	for _, line := range lines {
		name := strings.TrimRightFunc(line, unicode.IsSpace)
		if name == "" {
			continue
		}

		names = append(names, name)
	}

	return names
}

// scanNames lists the version directory and orders its files by prefix.
func scanNames(ctx context.Context, src Source, dir string) ([]string, error) {
	entries, err := src.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("scanning version directory: %w", err)
	}

	type keyedName struct {
		key  int
		name string
	}

	ordered := make([]keyedName, 0, len(entries))

	for _, e := range entries {
		if e.IsDir {
			continue
		}

		key, err := ScriptPrefix(e.Name)
		if err != nil {
			return nil, err
		}

		name := e.Name
		if ext := path.Ext(name); ext != "" {
			name = strings.TrimSuffix(name, ext)
		}

		ordered = append(ordered, keyedName{key: key, name: name})
	}

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].key < ordered[j].key })

	names := make([]string, len(ordered))
	for i, kn := range ordered {
		names[i] = kn.name
	}

	return names, nil
}

// readScript reads <dir>/<name>.sql from the source.
func readScript(ctx context.Context, src Source, dir, name string) (string, error) {
	scriptPath := path.Join(dir, name+ScriptExt)

	data, err := src.Read(ctx, scriptPath)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrScriptRead, scriptPath, err)
	}

	return string(data), nil
}
