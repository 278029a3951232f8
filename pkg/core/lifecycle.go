// pkg/core/lifecycle.go
package core

import "time"

// LifecycleKind names a vehicle or overlay transition.
type LifecycleKind string

const (
	LifecycleSpawned   LifecycleKind = "spawned"
	LifecycleRerouted  LifecycleKind = "rerouted"
	LifecycleArrived   LifecycleKind = "arrived"
	LifecycleDestroyed LifecycleKind = "destroyed"
	LifecycleCleared   LifecycleKind = "cleared"
	LifecycleAnimStart LifecycleKind = "animation_started"
	LifecycleAnimEnd   LifecycleKind = "animation_expired"
)

// LifecycleEvent records one transition of a simulated entity.
// EntityID is a vehicle id, or the overlay id for animation events.
type LifecycleEvent struct {
	ID       uint
	Tick     uint64
	Time     time.Time
	Kind     LifecycleKind
	EntityID string
	Entity   string // aircraft, ground or animation
	Model    string
	Gate     string
	Anchor   string
	Position Position2D
	Route    []string
}

// Position2D is a logical map coordinate.
type Position2D struct {
	X float64
	Y float64
}
