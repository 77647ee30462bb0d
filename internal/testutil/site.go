package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFiles creates files under root. Keys are slash-separated paths
// relative to root; parent directories are created as needed.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// NewSite creates a temporary site directory holding site.yaml and the
// given files, and returns its path.
func NewSite(t testing.TB, siteYAML string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, map[string]string{"site.yaml": siteYAML})
	WriteFiles(t, root, files)
	return root
}

// ReadFile returns the content of a file under root, failing the test if it
// cannot be read.
func ReadFile(t testing.TB, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name))) //nolint:gosec // G304: test fixture path
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}
