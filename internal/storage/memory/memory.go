// Package memory keeps the journal in memory and exports it as JSON when
// the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/pkg/core"
)

// ErrNoSession is returned when recording before StartSession.
var ErrNoSession = errors.New("no active session")

// Backend stores the journal in memory and exports it to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	commands  []core.CommandRecord
	lifecycle []core.LifecycleEvent

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins a new journal, discarding anything recorded before.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.session = s
	b.commands = nil
	b.lifecycle = nil
	return nil
}

// EndSession exports the journal to disk.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	return b.exportJSON()
}

// RecordCommand appends a command record and assigns its ID.
func (b *Backend) RecordCommand(c *core.CommandRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.idCounter++
	c.ID = b.idCounter
	b.commands = append(b.commands, *c)
	return nil
}

// RecordLifecycle appends a lifecycle event and assigns its ID.
func (b *Backend) RecordLifecycle(e *core.LifecycleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.idCounter++
	e.ID = b.idCounter
	b.lifecycle = append(b.lifecycle, *e)
	return nil
}

// Commands returns a copy of the recorded commands.
func (b *Backend) Commands() []core.CommandRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.CommandRecord(nil), b.commands...)
}

// Lifecycle returns a copy of the recorded lifecycle events.
func (b *Backend) Lifecycle() []core.LifecycleEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LifecycleEvent(nil), b.lifecycle...)
}

// ExportedFilePath returns the path of the last export, empty before the
// first EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
