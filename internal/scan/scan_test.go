package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"emptybye/internal/config"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", p, err)
		}
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
}

func candidatePaths(candidates []Candidate) map[string]bool {
	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[c.Path] = true
	}
	return set
}

// TestScanRootValidation verifies root constraint violations are fatal
func TestScanRootValidation(t *testing.T) {
	tmpDir := t.TempDir()
	scanner := NewScanner(nil, nil, false)

	t.Run("missing root", func(t *testing.T) {
		_, err := scanner.Scan(filepath.Join(tmpDir, "nope"))
		if !errors.Is(err, ErrRootMissing) {
			t.Errorf("expected ErrRootMissing, got %v", err)
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		f := filepath.Join(tmpDir, "file")
		writeFile(t, f)
		_, err := scanner.Scan(f)
		if !errors.Is(err, ErrRootNotDir) {
			t.Errorf("expected ErrRootNotDir, got %v", err)
		}
	})
}

// TestScanFindsEmptyDirectories verifies the candidate set covers exactly
// the initially empty directories, excluding the root
func TestScanFindsEmptyDirectories(t *testing.T) {
	root := t.TempDir()

	// root/empty1, root/full/empty2, root/full/file.txt, root/chain/only_child
	mkdirs(t,
		filepath.Join(root, "empty1"),
		filepath.Join(root, "full", "empty2"),
		filepath.Join(root, "chain", "only_child"),
	)
	writeFile(t, filepath.Join(root, "full", "file.txt"))

	scanner := NewScanner(nil, nil, false)
	candidates, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	got := candidatePaths(candidates)
	want := []string{
		filepath.Join(root, "empty1"),
		filepath.Join(root, "full", "empty2"),
		filepath.Join(root, "chain", "only_child"),
	}
	for _, p := range want {
		if !got[p] {
			t.Errorf("expected candidate %s", p)
		}
	}

	// chain holds only_child, so it is not initially empty; the cascade
	// picks it up later, the scan must not
	if got[filepath.Join(root, "chain")] {
		t.Errorf("non-empty parent should not be a candidate")
	}
	if got[filepath.Join(root, "full")] {
		t.Errorf("directory with a file should not be a candidate")
	}
	if got[root] {
		t.Errorf("root must never be a candidate")
	}
}

// TestScanEmptyRoot verifies an empty root yields no candidates (the root
// itself is never eligible)
func TestScanEmptyRoot(t *testing.T) {
	root := t.TempDir()

	scanner := NewScanner(nil, nil, false)
	candidates, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %v", candidates)
	}
}

// TestScanExcludePatterns verifies excluded subtrees are never scanned
func TestScanExcludePatterns(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, ".git", "refs"),
		filepath.Join(root, "empty"),
	)

	cfg := &config.Config{
		Roots:   []string{root},
		Exclude: []string{".git"},
	}

	scanner := NewScanner(nil, cfg, false)
	candidates, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	got := candidatePaths(candidates)
	if got[filepath.Join(root, ".git", "refs")] || got[filepath.Join(root, ".git")] {
		t.Errorf("excluded subtree produced candidates: %v", candidates)
	}
	if !got[filepath.Join(root, "empty")] {
		t.Errorf("expected candidate outside the excluded subtree")
	}
}

// TestScanCandidateDepths verifies candidates carry the depth heuristic
// the reclaimer orders by
func TestScanCandidateDepths(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "a", "b", "c"),
		filepath.Join(root, "x"),
	)

	scanner := NewScanner(nil, nil, false)
	candidates, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Only the leaves are initially empty
	got := candidatePaths(candidates)
	if !got[filepath.Join(root, "a", "b", "c")] || !got[filepath.Join(root, "x")] {
		t.Fatalf("expected leaf candidates, got %v", candidates)
	}

	for _, c := range candidates {
		if c.Depth != Depth(c.Path) {
			t.Errorf("candidate %s carries depth %d, expected %d", c.Path, c.Depth, Depth(c.Path))
		}
	}
}
