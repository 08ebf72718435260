// Package manifest reads and writes the newline-delimited hash manifest.
//
// The format is `<hex-hash>  <absolute-path>`, one file per line, which
// matches sha256sum output so the manifest can be produced or checked
// with standard command-line tools. The manifest is an export artifact;
// the catalog is the authoritative store.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Entry is one manifest line.
type Entry struct {
	ContentHash string
	Path        string
}

// Writer appends manifest lines, flushing after every write so an
// interrupted scan loses at most the line in flight. Safe for use by a
// single goroutine; the scanner funnels all results through one writer.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewWriter opens (or creates) a manifest for appending.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	return &Writer{file: file, buf: bufio.NewWriter(file)}, nil
}

// Append writes one manifest line and flushes it.
func (w *Writer) Append(entry Entry) error {
	if entry.ContentHash == "" || entry.Path == "" {
		return fmt.Errorf("manifest entry requires hash and path")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.buf, "%s  %s\n", entry.ContentHash, entry.Path); err != nil {
		return fmt.Errorf("append manifest line: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes and closes the manifest file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Load parses a manifest file. Blank lines are skipped; malformed lines
// are an error since the manifest is machine-written.
func Load(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		hash, rest, found := strings.Cut(line, "  ")
		if !found || len(hash) != 64 || rest == "" {
			return nil, fmt.Errorf("manifest %s line %d: malformed entry %q", path, lineNo, line)
		}
		entries = append(entries, Entry{ContentHash: strings.ToLower(hash), Path: rest})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return entries, nil
}
