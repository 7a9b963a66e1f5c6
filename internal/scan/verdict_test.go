package scan

import (
	"os"
	"path/filepath"
	"testing"
)

// TestCheckEmptyBasicVerdicts verifies the tri-state classification on
// plain directory contents
func TestCheckEmptyBasicVerdicts(t *testing.T) {
	tmpDir := t.TempDir()

	emptyDir := filepath.Join(tmpDir, "empty")
	if err := os.Mkdir(emptyDir, 0755); err != nil {
		t.Fatalf("Failed to create empty dir: %v", err)
	}

	withFile := filepath.Join(tmpDir, "with_file")
	if err := os.Mkdir(withFile, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(withFile, "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	// A zero-byte file is still content
	withEmptyFile := filepath.Join(tmpDir, "with_empty_file")
	if err := os.Mkdir(withEmptyFile, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(withEmptyFile, "zero"), nil, 0644); err != nil {
		t.Fatalf("Failed to create zero-byte file: %v", err)
	}

	withSubdir := filepath.Join(tmpDir, "with_subdir")
	if err := os.MkdirAll(filepath.Join(withSubdir, "child"), 0755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		expected Verdict
	}{
		{"empty directory", emptyDir, Empty},
		{"directory with file", withFile, NonEmpty},
		{"directory with zero-byte file", withEmptyFile, NonEmpty},
		{"directory with empty subdirectory", withSubdir, NonEmpty},
		{"nonexistent path", filepath.Join(tmpDir, "gone"), Unreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := CheckEmpty(tt.path, false)
			if verdict != tt.expected {
				t.Errorf("CheckEmpty(%s) = %v, expected %v", tt.path, verdict, tt.expected)
			}
			if tt.expected == Unreadable && err == nil {
				t.Errorf("Unreadable verdict must carry a reason error")
			}
		})
	}
}

// TestCheckEmptySymlinkOpacity verifies the default policy: symlinks are
// opaque content, never dereferenced
func TestCheckEmptySymlinkOpacity(t *testing.T) {
	tmpDir := t.TempDir()
	external := t.TempDir() // empty directory outside the checked one

	d := filepath.Join(tmpDir, "d")
	if err := os.Mkdir(d, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.Symlink(external, filepath.Join(d, "link")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	verdict, _ := CheckEmpty(d, false)
	if verdict != NonEmpty {
		t.Errorf("CheckEmpty with followSymlinks=false = %v, expected NonEmpty", verdict)
	}
}

// TestCheckEmptySymlinkTransparency verifies the opt-in policy: a symlink
// to a transitively empty directory does not count as content
func TestCheckEmptySymlinkTransparency(t *testing.T) {
	tmpDir := t.TempDir()
	externalEmpty := t.TempDir()

	externalFull := t.TempDir()
	if err := os.WriteFile(filepath.Join(externalFull, "f"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	t.Run("link to empty directory", func(t *testing.T) {
		d := filepath.Join(tmpDir, "d1")
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.Symlink(externalEmpty, filepath.Join(d, "link")); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		verdict, _ := CheckEmpty(d, true)
		if verdict != Empty {
			t.Errorf("expected Empty, got %v", verdict)
		}
	})

	t.Run("link to non-empty directory", func(t *testing.T) {
		d := filepath.Join(tmpDir, "d2")
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.Symlink(externalFull, filepath.Join(d, "link")); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		verdict, _ := CheckEmpty(d, true)
		if verdict != NonEmpty {
			t.Errorf("expected NonEmpty, got %v", verdict)
		}
	})

	t.Run("link to regular file", func(t *testing.T) {
		d := filepath.Join(tmpDir, "d3")
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.Symlink(filepath.Join(externalFull, "f"), filepath.Join(d, "link")); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		verdict, _ := CheckEmpty(d, true)
		if verdict != NonEmpty {
			t.Errorf("expected NonEmpty, got %v", verdict)
		}
	})

	t.Run("broken link", func(t *testing.T) {
		d := filepath.Join(tmpDir, "d4")
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.Symlink(filepath.Join(tmpDir, "missing"), filepath.Join(d, "link")); err != nil {
			t.Fatalf("Failed to create symlink: %v", err)
		}

		verdict, _ := CheckEmpty(d, true)
		if verdict != NonEmpty {
			t.Errorf("expected NonEmpty, got %v", verdict)
		}
	})
}

// TestCheckEmptySymlinkCycle verifies a link cycle is classified NonEmpty
// instead of looping or overflowing the stack
func TestCheckEmptySymlinkCycle(t *testing.T) {
	tmpDir := t.TempDir()

	a := filepath.Join(tmpDir, "a")
	b := filepath.Join(tmpDir, "b")
	if err := os.Mkdir(a, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.Mkdir(b, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	// a contains a link to b, b contains a link back to a
	if err := os.Symlink(b, filepath.Join(a, "to_b")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	if err := os.Symlink(a, filepath.Join(b, "to_a")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	verdict, _ := CheckEmpty(a, true)
	if verdict != NonEmpty {
		t.Errorf("symlink cycle must be NonEmpty, got %v", verdict)
	}
}

// TestCheckEmptyDepthBound verifies the recursion bound is conservative
func TestCheckEmptyDepthBound(t *testing.T) {
	tmpDir := t.TempDir()
	external := t.TempDir()

	d := filepath.Join(tmpDir, "d")
	if err := os.Mkdir(d, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.Symlink(external, filepath.Join(d, "link")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	// depth 1 allows listing d but not recursing into the link target
	verdict, _ := CheckEmptyDepth(d, true, 1)
	if verdict != NonEmpty {
		t.Errorf("at the depth bound expected NonEmpty, got %v", verdict)
	}
}

// TestDepth verifies the separator-count heuristic
func TestDepth(t *testing.T) {
	tests := []struct {
		path     string
		expected int
	}{
		{"/", 1},
		{"/a", 1},
		{"/a/b", 2},
		{"/a/b/c/", 3},
	}

	for _, tt := range tests {
		if got := Depth(tt.path); got != tt.expected {
			t.Errorf("Depth(%s) = %d, expected %d", tt.path, got, tt.expected)
		}
	}
}
