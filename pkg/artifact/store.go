package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a key has no artifact.
var ErrNotFound = errors.New("artifact: not found")

// ErrInvalidKey is returned for keys that are absolute or leave the root.
var ErrInvalidKey = errors.New("artifact: invalid key")

// Fetcher reads artifacts by key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// DiskStore reads artifacts from a local build directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates a store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: dir}
}

// Root returns the store directory.
func (d *DiskStore) Root() string {
	return d.root
}

// Fetch implements Fetcher.
func (d *DiskStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, err
	}
	return data, nil
}

// CleanKey normalizes key and rejects keys that escape the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return clean, nil
}

// KeyFor returns the store key of a file under the build output root.
func KeyFor(outputRoot, file string) (string, error) {
	rel, err := filepath.Rel(outputRoot, file)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, file)
	}
	return CleanKey(rel)
}

// ContentType returns the MIME type served for a key. Compiled modules
// (.mjs) are served as JavaScript.
func ContentType(key string) string {
	switch ext := path.Ext(key); ext {
	case ".mjs", ".js":
		return "text/javascript; charset=utf-8"
	case ".json", ".map":
		return "application/json"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
