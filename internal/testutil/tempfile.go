// Package testutil holds small helpers shared by the package test suites.
package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// TempFile returns a path to a not-yet-created file inside a t.TempDir(),
// plus a cleanup func to remove it.
func TempFile(t *testing.T) (string, func()) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, fmt.Sprintf("dbbufferpool-test-%d.dat", rand.Intn(100)+10))
	return path, func() { os.Remove(path) }
}
