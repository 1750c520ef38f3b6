// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"path/filepath"

	"github.com/user/stickerpress/pkg/ports"
)

// Sink saves debug output to files.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveCandidate saves one evaluated candidate container.
func (s *Sink) SaveCandidate(index int, label string, data []byte) error {
	dir := filepath.Join(s.baseDir, "candidates")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("cand-%03d-%s.webm", index, label))
	return s.fs.WriteFile(path, data)
}

// SaveSearchJSON saves the search trace as JSON.
func (s *Sink) SaveSearchJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	path := filepath.Join(s.baseDir, "search.json")
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
