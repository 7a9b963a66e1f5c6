package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Verdict classifies the result of inspecting a single directory level.
// Unreadable is never treated as Empty: a directory whose contents are
// unknown must never be removed.
type Verdict int

const (
	Empty Verdict = iota
	NonEmpty
	Unreadable
)

func (v Verdict) String() string {
	switch v {
	case Empty:
		return "empty"
	case NonEmpty:
		return "non_empty"
	case Unreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// DefaultMaxSymlinkDepth bounds the recursive emptiness check when
// following symlinks, so a link chain can never overflow the stack.
const DefaultMaxSymlinkDepth = 40

// CheckEmpty inspects the immediate entries of path and reports whether it
// is empty. It is a pure, repeatable query with no side effects, shared by
// the initial scan and the pre-removal recheck.
//
// With followSymlinks=false any entry at all makes the directory NonEmpty;
// symlinks are opaque content and are never dereferenced. With
// followSymlinks=true a symlink that resolves to a transitively empty
// directory does not count as content; anything else does. The returned
// error carries the reason when the verdict is Unreadable.
func CheckEmpty(path string, followSymlinks bool) (Verdict, error) {
	return CheckEmptyDepth(path, followSymlinks, DefaultMaxSymlinkDepth)
}

// CheckEmptyDepth is CheckEmpty with an explicit recursion bound for the
// follow-symlinks mode.
func CheckEmptyDepth(path string, followSymlinks bool, maxDepth int) (Verdict, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSymlinkDepth
	}
	visited := make(map[string]struct{})
	return checkEmpty(path, followSymlinks, maxDepth, visited)
}

func checkEmpty(path string, follow bool, depth int, visited map[string]struct{}) (Verdict, error) {
	if depth <= 0 {
		// Recursion bound reached; classify conservatively so a deep or
		// cyclic link chain can never be mistaken for emptiness.
		return NonEmpty, nil
	}
	if _, seen := visited[path]; seen {
		// Symlink cycle
		return NonEmpty, nil
	}
	visited[path] = struct{}{}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Unreadable, fmt.Errorf("list %s: %w", path, err)
	}
	if len(entries) == 0 {
		return Empty, nil
	}
	if !follow {
		return NonEmpty, nil
	}

	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink == 0 {
			// Regular file or subdirectory: content either way at this
			// level. Subdirectory emptiness is the cascade's concern.
			return NonEmpty, nil
		}
		resolved, err := filepath.EvalSymlinks(filepath.Join(path, entry.Name()))
		if err != nil {
			// Broken link still counts as content
			return NonEmpty, nil
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.IsDir() {
			return NonEmpty, nil
		}
		v, err := checkEmpty(resolved, follow, depth-1, visited)
		if err != nil || v != Empty {
			return NonEmpty, nil
		}
	}
	// Every entry was a symlink to a transitively empty directory
	return Empty, nil
}
