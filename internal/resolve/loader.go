package resolve

import (
	"context"
	"os"
)

// Loader reads template sources. Implementations must be safe for
// concurrent use.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (string, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// FileLoader reads templates from the local filesystem.
type FileLoader struct{}

// Load reads the whole file at path.
func (FileLoader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path) //nolint:gosec // paths come from site templates
	if err != nil {
		return "", err
	}
	return string(data), nil
}
