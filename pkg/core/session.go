// pkg/core/session.go
package core

import "time"

// Session describes one simulator run. Journal records belong to the
// session that was active when they were written.
type Session struct {
	ID           uint
	StartTime    time.Time
	Topology     string // topology file path
	Points       int
	Ways         int
	TickInterval time.Duration
	Runway       string
	Gates        []string
}

// UploadMetadata accompanies an exported journal sent to a remote archive.
type UploadMetadata struct {
	SessionID uint
	Topology  string
	Duration  float64 // seconds
	LastTick  uint64
	Tag       string
}
