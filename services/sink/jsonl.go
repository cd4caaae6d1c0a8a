package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"ekaraca522/dolapscraper/internal/parser"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
)

// JSONLSink appends records to a JSON Lines file, one record per line,
// flushed to the OS on every append so a crashed run keeps everything
// written so far. Diagnostic fields never reach the file; the record's
// JSON shape excludes them.
type JSONLSink struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	written int
}

// NewJSONLSink opens path for appending, creating parent directories as
// needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, scrapeerrors.NewSink("", "create output directory", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, scrapeerrors.NewSink("", "open output file", err)
	}
	return &JSONLSink{file: file, path: path}, nil
}

// Append writes one record as a JSON line.
func (s *JSONLSink) Append(record *parser.Listing) error {
	line, err := json.Marshal(record)
	if err != nil {
		return scrapeerrors.NewSink("", "marshal record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return scrapeerrors.NewSink("", "write record", err)
	}
	s.written++
	return nil
}

// Written returns how many records have been appended.
func (s *JSONLSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Path returns the output file path.
func (s *JSONLSink) Path() string {
	return s.path
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
