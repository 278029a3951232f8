package storage

import "github.com/apronsim/apronsim/pkg/core"

// Backend is the interface all journal implementations must satisfy.
// Record methods are called from the simulation goroutine and must not
// block on I/O.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Journal recording
	RecordCommand(c *core.CommandRecord) error
	RecordLifecycle(e *core.LifecycleEvent) error
}

// Exportable is an optional interface for backends that leave a file
// behind for offline inspection.
type Exportable interface {
	ExportedFilePath() string
}
