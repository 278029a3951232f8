// pkg/core/stats.go
package core

import "time"

// TickStats summarizes one simulation tick for metrics and status output.
type TickStats struct {
	Tick           uint64
	Time           time.Time
	Duration       time.Duration
	QueueDepth     int // commands drained this tick
	Applied        int
	Rejected       int
	Aircraft       int
	GroundVehicles int
	Tallies        map[string]int
	Animations     int
	OccupiedGates  int
}
