package safety

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestProtectedPathBlocking verifies protected paths are blocked
func TestProtectedPathBlocking(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"root slash", "/", true},
		{"etc", "/etc", true},
		{"etc subdir", "/etc/ssh", true},
		{"bin", "/bin", true},
		{"usr", "/usr", true},
		{"usr local", "/usr/local", true},
		{"boot", "/boot", true},
		{"lib", "/lib", true},
		{"lib64", "/lib64", true},
		{"sbin", "/sbin", true},
		{"emptybye config", "/etc/emptybye", true},
		{"emptybye config file", "/etc/emptybye/config.yaml", true},
		{"emptybye db", "/var/lib/emptybye", true},
		{"emptybye db file", "/var/lib/emptybye/removals.db", true},
		{"tmp allowed", "/tmp", false},
		{"var tmp", "/var/tmp", false},
		{"home", "/home", false},
		{"home user", "/home/user", false},
	}

	protected := defaultProtected(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsProtectedPath(tt.path, protected)
			if result != tt.expected {
				t.Errorf("IsProtectedPath(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestAllowedRootEnforcement verifies paths are restricted to allowed roots
func TestAllowedRootEnforcement(t *testing.T) {
	allowed := []string{"/srv/media", "/var/spool/stage"}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"inside media root", "/srv/media/2023/01", true},
		{"inside spool root", "/var/spool/stage/batch", true},
		{"allowed root exact", "/srv/media", true},
		{"sibling of allowed", "/srv/medias/2023", false},
		{"parent of allowed", "/srv", false},
		{"completely different", "/home/user/dir", false},
		{"root", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsWithinAllowedRoots(tt.path, allowed)
			if result != tt.expected {
				t.Errorf("IsWithinAllowedRoots(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

// TestTraversalDetection verifies ".." segments are detected
func TestTraversalDetection(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"normal path", "/srv/media/dir", false},
		{"dotdot parent", "/srv/media/../etc", true},
		{"dotdot middle", "/srv/../srv/media", true},
		{"hidden dir", "/srv/media/..git", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectTraversal(tt.path); got != tt.expected {
				t.Errorf("DetectTraversal(%s) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

// TestNormalizePath verifies paths are normalized correctly
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"absolute path", "/srv/media/dir", false},
		{"relative path", "dir", false}, // Gets normalized to absolute
		{"path with dots", "/srv/./media", false},
		{"empty path", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePath(tt.path)
			if tt.expectError {
				if err == nil {
					t.Errorf("NormalizePath(%s) expected error, got nil", tt.path)
				}
				return
			}
			if err != nil {
				t.Errorf("NormalizePath(%s) unexpected error: %v", tt.path, err)
			}
			if !filepath.IsAbs(result) {
				t.Errorf("NormalizePath(%s) = %s, expected absolute path", tt.path, result)
			}
		})
	}
}

// TestValidateRemoveTarget exercises the full authorization chain against
// a real temporary tree
func TestValidateRemoveTarget(t *testing.T) {
	root := t.TempDir()
	v := NewValidator([]string{root}, nil)

	t.Run("target under root allowed", func(t *testing.T) {
		if err := v.ValidateRemoveTarget(filepath.Join(root, "sub")); err != nil {
			t.Errorf("expected target to pass, got %v", err)
		}
	})

	t.Run("root itself refused", func(t *testing.T) {
		if err := v.ValidateRemoveTarget(root); !errors.Is(err, ErrIsRoot) {
			t.Errorf("expected ErrIsRoot, got %v", err)
		}
	})

	t.Run("protected path refused", func(t *testing.T) {
		err := v.ValidateRemoveTarget("/etc/ssh")
		if !errors.Is(err, ErrProtectedPath) {
			t.Errorf("expected ErrProtectedPath, got %v", err)
		}
	})

	t.Run("outside roots refused", func(t *testing.T) {
		err := v.ValidateRemoveTarget(t.TempDir())
		if !errors.Is(err, ErrOutsideAllowed) {
			t.Errorf("expected ErrOutsideAllowed, got %v", err)
		}
	})

	t.Run("traversal refused", func(t *testing.T) {
		err := v.ValidateRemoveTarget(root + "/sub/../../escape")
		if err == nil {
			t.Errorf("expected traversal input to be refused")
		}
	})
}
