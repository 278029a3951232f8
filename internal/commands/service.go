// Package commands validates and applies operator commands against the
// simulation state. Every handler checks all of its preconditions before it
// touches a registry, so a rejected command leaves the state unchanged.
package commands

import (
	"fmt"
	"strings"

	"github.com/apronsim/apronsim/internal/cmderr"
	"github.com/apronsim/apronsim/internal/dispatcher"
	"github.com/apronsim/apronsim/internal/parser"
	"github.com/apronsim/apronsim/internal/sim"
)

// Dependencies holds all dependencies for the command service
type Dependencies struct {
	State *sim.State
}

// Service owns the command handlers.
type Service struct {
	deps Dependencies
}

// NewService creates a command service.
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// Result is what an applied command reports back to the operator.
type Result struct {
	Command string
	Entity  string
	Route   []string
	Removed int
	Message string
}

func (r Result) String() string {
	return r.Message
}

// RegisterHandlers registers every command with the dispatcher. All handlers
// are synchronous: they run on the simulation goroutine between ticks.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(parser.RouteQuery, s.handleRouteQuery, dispatcher.Logged())
	d.Register(parser.SpawnAircraft, s.handleSpawnAircraft, dispatcher.Logged())
	d.Register(parser.InitVehicle, s.handleInitVehicle, dispatcher.Logged())
	d.Register(parser.MoveVehicle, s.handleMoveVehicle, dispatcher.Logged())
	d.Register(parser.TriggerAnimation, s.handleTriggerAnimation, dispatcher.Logged())
	d.Register(parser.ClearFleet, s.handleClearFleet, dispatcher.Logged())
}

func arity(e dispatcher.Event, want int, usage string) error {
	if len(e.Args) != want {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d (usage: %s)",
			cmderr.ErrInvalidArity, e.Command, want, len(e.Args), usage)
	}
	return nil
}

// known reports whether anchor names a point or a way.
func (s *Service) known(anchor string) bool {
	g := s.deps.State.Graph()
	return g.HasPoint(anchor) || g.HasEdge(anchor)
}

func formatRoute(route []string) string {
	return strings.Join(route, " -> ")
}
