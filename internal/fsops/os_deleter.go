package fsops

import "os"

// OSDeleter implements Deleter using real os package calls.
// os.Remove refuses to delete a non-empty directory, which is the
// final line of defense after the pre-removal emptiness recheck.
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}
