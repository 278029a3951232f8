// Package sim holds the simulation state and the per-tick movement rules.
// A State is owned by exactly one goroutine; other goroutines only ever see
// the immutable Snapshots it produces.
package sim

import (
	"time"

	"github.com/apronsim/apronsim/internal/animation"
	"github.com/apronsim/apronsim/internal/fleet"
	"github.com/apronsim/apronsim/internal/pathfind"
	"github.com/apronsim/apronsim/internal/topology"
	"github.com/apronsim/apronsim/pkg/core"
)

// Config holds the simulation rules.
type Config struct {
	Runway      string
	Gates       []string // in assignment priority order
	MaxAircraft int

	SpawnedAircraftSpeed float64 // aircraft created by spawn-aircraft
	AircraftSpeed        float64 // aircraft placed by init-vehicle
	GroundSpeed          float64
}

// DefaultConfig returns the stock airport rules.
func DefaultConfig() Config {
	return Config{
		Runway:               "RW-0",
		Gates:                []string{"P-5", "P-4", "P-3", "P-2", "P-1"},
		MaxAircraft:          5,
		SpawnedAircraftSpeed: 10,
		AircraftSpeed:        8,
		GroundSpeed:          6,
	}
}

// Dependencies holds the collaborators a State is built from.
type Dependencies struct {
	Graph      *topology.Graph
	Paths      *pathfind.Finder
	Animations *animation.Manager
	Frames     animation.FrameProvider
}

// State is the whole mutable simulation: vehicles, overlays and the tick
// clock.
type State struct {
	cfg    Config
	graph  *topology.Graph
	paths  *pathfind.Finder
	fleet  *fleet.Registry
	anims  *animation.Manager
	frames animation.FrameProvider

	tick    uint64
	now     time.Time
	pending []core.LifecycleEvent
}

// NewState creates an empty simulation.
func NewState(cfg Config, deps Dependencies) *State {
	anims := deps.Animations
	if anims == nil {
		anims = animation.NewManager(animation.DefaultDuration)
	}
	frames := deps.Frames
	if frames == nil {
		frames = animation.StaticFrames{}
	}
	return &State{
		cfg:    cfg,
		graph:  deps.Graph,
		paths:  deps.Paths,
		fleet:  fleet.NewRegistry(),
		anims:  anims,
		frames: frames,
	}
}

// Config returns the simulation rules.
func (s *State) Config() Config { return s.cfg }

// Graph returns the topology.
func (s *State) Graph() *topology.Graph { return s.graph }

// Paths returns the route finder.
func (s *State) Paths() *pathfind.Finder { return s.paths }

// Fleet returns the vehicle registry.
func (s *State) Fleet() *fleet.Registry { return s.fleet }

// Animations returns the overlay arena.
func (s *State) Animations() *animation.Manager { return s.anims }

// Tick returns the number of the current tick.
func (s *State) Tick() uint64 { return s.tick }

// Now returns the time the current tick started.
func (s *State) Now() time.Time { return s.now }

// BeginTick advances the tick counter and clock. Commands applied after it
// are stamped with this tick.
func (s *State) BeginTick(now time.Time) {
	s.tick++
	s.now = now
}

// Emit queues a lifecycle event, stamping it with the current tick.
func (s *State) Emit(ev core.LifecycleEvent) {
	ev.Tick = s.tick
	ev.Time = s.now
	s.pending = append(s.pending, ev)
}

// TakeEvents returns and clears the queued lifecycle events.
func (s *State) TakeEvents() []core.LifecycleEvent {
	out := s.pending
	s.pending = nil
	return out
}

// VehicleEvent builds a lifecycle event describing v.
func VehicleEvent(kind core.LifecycleKind, v *fleet.Vehicle) core.LifecycleEvent {
	ev := core.LifecycleEvent{
		Kind:     kind,
		EntityID: v.ID,
		Entity:   v.Kind.String(),
		Anchor:   v.CurrentNode,
		Position: core.Position2D{X: v.Position.X, Y: v.Position.Y},
	}
	if len(v.Route) > 0 {
		ev.Route = append([]string(nil), v.Route...)
	}
	switch v.Kind {
	case fleet.KindAircraft:
		ev.Gate = v.Air.Gate
	case fleet.KindGround:
		ev.Model = string(v.Ground.Model)
	}
	return ev
}

// Stats summarizes the current population.
func (s *State) Stats() core.TickStats {
	tallies := make(map[string]int)
	for m, n := range s.fleet.Tallies() {
		tallies[string(m)] = n
	}
	return core.TickStats{
		Tick:           s.tick,
		Time:           s.now,
		Aircraft:       s.fleet.Count(fleet.KindAircraft),
		GroundVehicles: s.fleet.Count(fleet.KindGround),
		Tallies:        tallies,
		Animations:     s.anims.Len(),
		OccupiedGates:  len(s.fleet.OccupiedGates()),
	}
}
