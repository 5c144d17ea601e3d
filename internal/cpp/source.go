package cpp

import (
	"fmt"
	"os"
	"path/filepath"
)

// Source resolves a requested path (already searched against include
// directories by the caller) to file content. It exists so tests can feed
// the preprocessor literal header text (§8's scenarios are all literal
// strings) without touching a real filesystem, while production use reads
// real headers.
type Source interface {
	// ReadFile returns the content of the file at absPath.
	ReadFile(absPath string) (string, error)
	// Abs returns the canonical absolute form of path, used as the
	// include-once cache key (§4.3).
	Abs(path string) (string, error)
	// Exists reports whether path names a readable file, used while
	// searching the quote/system include path lists.
	Exists(path string) bool
}

// OSSource implements Source against the real filesystem.
type OSSource struct{}

func (OSSource) ReadFile(absPath string) (string, error) {
	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (OSSource) Abs(path string) (string, error) { return filepath.Abs(path) }

func (OSSource) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MapSource implements Source over an in-memory path→content map, keyed by
// the exact path strings the test supplies (treated as already-canonical).
// Used throughout the package's own tests and suitable for embedding a
// small fixture header set without disk I/O.
type MapSource struct {
	Files map[string]string
}

func NewMapSource() *MapSource { return &MapSource{Files: map[string]string{}} }

func (m *MapSource) ReadFile(absPath string) (string, error) {
	if c, ok := m.Files[absPath]; ok {
		return c, nil
	}
	return "", fmt.Errorf("no such file: %s", absPath)
}

func (m *MapSource) Abs(path string) (string, error) { return path, nil }

func (m *MapSource) Exists(path string) bool {
	_, ok := m.Files[path]
	return ok
}
