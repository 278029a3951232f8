package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apronsim/apronsim/internal/animation"
	"github.com/apronsim/apronsim/internal/cmderr"
	"github.com/apronsim/apronsim/internal/dispatcher"
	"github.com/apronsim/apronsim/internal/fleet"
	"github.com/apronsim/apronsim/internal/sim"
	"github.com/apronsim/apronsim/pkg/core"
)

func (s *Service) handleRouteQuery(e dispatcher.Event) (any, error) {
	if err := arity(e, 2, "route-query <from> <to>"); err != nil {
		return nil, err
	}
	from, to := e.Args[0], e.Args[1]

	for _, anchor := range []string{from, to} {
		if !s.known(anchor) {
			return nil, fmt.Errorf("%w: anchor %s", cmderr.ErrNotFound, anchor)
		}
	}

	route := s.deps.State.Paths().ShortestPath(from, to)
	if len(route) == 0 {
		return nil, fmt.Errorf("%w: no route from %s to %s", cmderr.ErrUnreachable, from, to)
	}

	return Result{
		Command: e.Command,
		Route:   route,
		Message: formatRoute(route),
	}, nil
}

func (s *Service) handleSpawnAircraft(e dispatcher.Event) (any, error) {
	if err := arity(e, 1, "spawn-aircraft <number>"); err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(e.Args[0])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: aircraft number %q", cmderr.ErrInvalidFormat, e.Args[0])
	}

	st := s.deps.State
	cfg := st.Config()
	id := fleet.AircraftID(n)

	if v, ok := st.Fleet().Get(id); ok {
		route := st.Paths().ShortestPath(v.CurrentNode, cfg.Runway)
		if len(route) == 0 {
			return nil, fmt.Errorf("%w: %s cannot reach %s from %s", cmderr.ErrUnreachable, id, cfg.Runway, v.CurrentNode)
		}
		v.SetRoute(route)
		v.Air.Removing = true
		st.Emit(sim.VehicleEvent(core.LifecycleRerouted, v))

		return Result{
			Command: e.Command,
			Entity:  id,
			Route:   route,
			Message: fmt.Sprintf("%s departing: %s", id, formatRoute(route)),
		}, nil
	}

	if live := st.Fleet().Count(fleet.KindAircraft); live >= cfg.MaxAircraft {
		return nil, fmt.Errorf("%w: %d aircraft already live", cmderr.ErrCapacityExceeded, live)
	}
	gate, ok := st.Fleet().FreeGate(cfg.Gates)
	if !ok {
		return nil, fmt.Errorf("%w: every gate is occupied", cmderr.ErrSlotUnavailable)
	}
	route := st.Paths().ShortestPath(cfg.Runway, gate)
	if len(route) == 0 {
		return nil, fmt.Errorf("%w: no route from %s to %s", cmderr.ErrUnreachable, cfg.Runway, gate)
	}
	pos, ok := st.Graph().Resolve(cfg.Runway)
	if !ok {
		return nil, fmt.Errorf("%w: runway %s", cmderr.ErrNotFound, cfg.Runway)
	}

	v := &fleet.Vehicle{
		ID:   id,
		Kind: fleet.KindAircraft,
		Movement: fleet.Movement{
			Position:    pos,
			Speed:       cfg.SpawnedAircraftSpeed,
			CurrentNode: cfg.Runway,
		},
		Air: fleet.AircraftState{Gate: gate},
	}
	v.SetRoute(route)
	if err := st.Fleet().Add(v); err != nil {
		return nil, fmt.Errorf("%w: %v", cmderr.ErrConflict, err)
	}
	st.Emit(sim.VehicleEvent(core.LifecycleSpawned, v))

	return Result{
		Command: e.Command,
		Entity:  id,
		Route:   route,
		Message: fmt.Sprintf("%s assigned %s: %s", id, gate, formatRoute(route)),
	}, nil
}

func (s *Service) handleInitVehicle(e dispatcher.Event) (any, error) {
	if err := arity(e, 2, "init-vehicle <id> <point>"); err != nil {
		return nil, err
	}
	id, anchor := e.Args[0], e.Args[1]

	kind, model, err := fleet.Classify(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cmderr.ErrInvalidFormat, err)
	}
	id = fleet.CanonicalID(id)

	st := s.deps.State
	cfg := st.Config()

	if _, exists := st.Fleet().Get(id); exists {
		return nil, fmt.Errorf("%w: %s already exists", cmderr.ErrConflict, id)
	}
	if st.Graph().IsEdgeAnchor(anchor) {
		return nil, fmt.Errorf("%w: %s is a way, vehicles start on points", cmderr.ErrInvalidAnchor, anchor)
	}
	pos, ok := st.Graph().Coordinates(anchor)
	if !ok {
		return nil, fmt.Errorf("%w: point %s", cmderr.ErrNotFound, anchor)
	}
	if kind == fleet.KindAircraft {
		if live := st.Fleet().Count(fleet.KindAircraft); live >= cfg.MaxAircraft {
			return nil, fmt.Errorf("%w: %d aircraft already live", cmderr.ErrCapacityExceeded, live)
		}
	}

	v := &fleet.Vehicle{
		ID:   id,
		Kind: kind,
		Movement: fleet.Movement{
			Position:    pos,
			CurrentNode: anchor,
		},
	}
	switch kind {
	case fleet.KindAircraft:
		v.Speed = cfg.AircraftSpeed
	case fleet.KindGround:
		v.Speed = cfg.GroundSpeed
		v.Ground = fleet.GroundState{Model: model, SpawnAnchor: anchor}
	}

	if err := st.Fleet().Add(v); err != nil {
		return nil, fmt.Errorf("%w: %v", cmderr.ErrConflict, err)
	}
	st.Emit(sim.VehicleEvent(core.LifecycleSpawned, v))

	return Result{
		Command: e.Command,
		Entity:  id,
		Message: fmt.Sprintf("%s placed at %s", id, anchor),
	}, nil
}

func (s *Service) handleMoveVehicle(e dispatcher.Event) (any, error) {
	if err := arity(e, 3, "move-vehicle <id> <from> <to>"); err != nil {
		return nil, err
	}
	id, origin, dest := e.Args[0], e.Args[1], e.Args[2]

	if _, _, err := fleet.Classify(id); err != nil {
		return nil, fmt.Errorf("%w: %v", cmderr.ErrInvalidFormat, err)
	}
	id = fleet.CanonicalID(id)
	for _, anchor := range []string{origin, dest} {
		if !s.known(anchor) {
			return nil, fmt.Errorf("%w: anchor %s", cmderr.ErrNotFound, anchor)
		}
	}

	st := s.deps.State
	v, ok := st.Fleet().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", cmderr.ErrNotFound, id)
	}

	route := st.Paths().ShortestPath(v.CurrentNode, dest)
	if len(route) == 0 {
		return nil, fmt.Errorf("%w: no route from %s to %s", cmderr.ErrUnreachable, v.CurrentNode, dest)
	}

	v.SetRoute(route)
	if v.Kind == fleet.KindAircraft {
		v.Air.Removing = false
	}
	st.Emit(sim.VehicleEvent(core.LifecycleRerouted, v))

	return Result{
		Command: e.Command,
		Entity:  id,
		Route:   route,
		Message: fmt.Sprintf("%s: %s", id, formatRoute(route)),
	}, nil
}

func (s *Service) handleTriggerAnimation(e dispatcher.Event) (any, error) {
	if err := arity(e, 2, "trigger-animation <name> <point>"); err != nil {
		return nil, err
	}

	name, ok := animation.ParseName(e.Args[0])
	if !ok {
		return nil, fmt.Errorf("%w: animation %s", cmderr.ErrNotFound, e.Args[0])
	}
	anchor := e.Args[1]

	st := s.deps.State
	pos, ok := st.Graph().Coordinates(anchor)
	if !ok {
		return nil, fmt.Errorf("%w: point %s", cmderr.ErrNotFound, anchor)
	}

	ev := st.Animations().Trigger(name, anchor, pos, st.Now())
	st.Emit(sim.AnimationEvent(core.LifecycleAnimStart, ev))

	return Result{
		Command: e.Command,
		Entity:  string(name),
		Message: fmt.Sprintf("%s at %s for %s", name, anchor, ev.Duration),
	}, nil
}

func (s *Service) handleClearFleet(e dispatcher.Event) (any, error) {
	if err := arity(e, 1, "clear-fleet <type>"); err != nil {
		return nil, err
	}
	selector := e.Args[0]

	st := s.deps.State
	removed := st.Fleet().RemoveWhere(func(v *fleet.Vehicle) bool {
		return strings.EqualFold(fleet.TypePrefix(v.ID), selector)
	})
	for _, v := range removed {
		st.Emit(sim.VehicleEvent(core.LifecycleCleared, v))
	}

	return Result{
		Command: e.Command,
		Removed: len(removed),
		Message: fmt.Sprintf("removed %d %s", len(removed), strings.ToUpper(selector)),
	}, nil
}
