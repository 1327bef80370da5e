// Package workspace scopes file access to the user's working directory: it
// discovers LTspice schematics, reads them regardless of the encoding LTspice
// saved them in, and writes back edited content.
package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Extension is the file extension of the documents chats are scoped to.
const Extension = ".asc"

var (
	ErrNoWorkingDirectory = errors.New("no working directory set")
	ErrOutsideWorkspace   = errors.New("path escapes working directory")
)

// Workspace holds the current working directory. It is safe for concurrent
// use; the directory may change while requests are in flight.
type Workspace struct {
	mu  sync.RWMutex
	dir string
}

// New creates a Workspace rooted at dir. An empty dir leaves the workspace
// unset until SetDirectory is called.
func New(dir string) *Workspace {
	return &Workspace{dir: dir}
}

// SetDirectory changes the working directory. The directory must exist.
func (w *Workspace) SetDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to open working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.dir = abs
	return nil
}

// Directory returns the working directory or ErrNoWorkingDirectory.
func (w *Workspace) Directory() (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.dir == "" {
		return "", ErrNoWorkingDirectory
	}
	return w.dir, nil
}

// Path resolves a slash-separated document name relative to the working
// directory.
func (w *Workspace) Path(name string) (string, error) {
	dir, err := w.Directory()
	if err != nil {
		return "", err
	}

	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, name)
	}
	return filepath.Join(dir, local), nil
}

// List returns every .asc file below the working directory as sorted,
// slash-separated relative paths.
func (w *Workspace) List() ([]string, error) {
	dir, err := w.Directory()
	if err != nil {
		return nil, err
	}

	files := []string{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), Extension) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

// Read returns the content of a document. UTF-8 is returned as is; content
// starting with a UTF-16LE byte order mark is decoded; anything else is
// repaired with replacement characters.
func (w *Workspace) Read(name string) (string, error) {
	path, err := w.Path(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return Decode(data)
}

// Write replaces the content of a document atomically.
func (w *Workspace) Write(name, content string) error {
	path, err := w.Path(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*"+Extension)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}
	return nil
}

var utf16LEBOM = []byte{0xFF, 0xFE}

// Decode converts raw file bytes to text.
func Decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	if bytes.HasPrefix(data, utf16LEBOM) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		// An odd trailing byte is not a code unit.
		if len(data)%2 != 0 {
			data = data[:len(data)-1]
		}
		out, err := decoder.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16 content: %w", err)
		}
		return string(out), nil
	}

	return strings.ToValidUTF8(string(data), "�"), nil
}
