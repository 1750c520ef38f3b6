package mocks

import (
	"fmt"
	"sync"

	"github.com/user/stickerpress/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Candidates map[string][]byte // keyed by "index-label"
	SearchJSON []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:    enabled,
		Candidates: make(map[string][]byte),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveCandidate(index int, label string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Candidates[candidateKey(index, label)] = data
	return nil
}

func (m *DebugSink) SaveSearchJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchJSON = data
	return nil
}

// GetCandidate returns a saved candidate (for test verification).
func (m *DebugSink) GetCandidate(index int, label string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.Candidates[candidateKey(index, label)]
	return data, ok
}

func candidateKey(index int, label string) string {
	return fmt.Sprintf("%d-%s", index, label)
}

var _ ports.DebugSink = (*DebugSink)(nil)
