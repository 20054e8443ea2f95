package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes a fixture file (alias maps, catalogs, sample pages),
// creating parent directories as needed, and returns the path.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
