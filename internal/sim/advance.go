package sim

import (
	"math"

	"github.com/apronsim/apronsim/internal/animation"
	"github.com/apronsim/apronsim/internal/fleet"
	"github.com/apronsim/apronsim/pkg/core"
)

// Heading returns the sprite heading in degrees for a movement vector,
// in screen coordinates where y grows downwards.
func Heading(dx, dy float64) float64 {
	return math.Atan2(-dy, dx)*180/math.Pi + 180
}

// Advance moves every vehicle one tick along its route and destroys the
// ones whose lifecycle has ended. Vehicles are visited in registration
// order.
func (s *State) Advance() {
	var doomed []string
	for _, v := range s.fleet.All() {
		if s.step(v) {
			doomed = append(doomed, v.ID)
		}
	}

	for _, id := range doomed {
		v, ok := s.fleet.Remove(id)
		if !ok {
			continue
		}
		s.Emit(VehicleEvent(core.LifecycleDestroyed, v))
	}
}

// step advances one vehicle and reports whether it should be destroyed.
func (s *State) step(v *fleet.Vehicle) bool {
	if v.Idle() {
		return s.finished(v)
	}

	target := v.Route[v.RouteIndex]
	goal, ok := s.graph.Resolve(target)
	if !ok {
		goal = v.Position
	}

	dx := goal.X - v.Position.X
	dy := goal.Y - v.Position.Y
	dist := math.Hypot(dx, dy)
	if dist > 0 {
		v.Heading = Heading(dx, dy)
	}

	if dist > v.Speed {
		v.Position.X += dx / dist * v.Speed
		v.Position.Y += dy / dist * v.Speed
		return false
	}

	v.Position = goal
	v.RouteIndex++
	if ok {
		v.CurrentNode = target
	}

	if v.Kind == fleet.KindAircraft && v.Air.Removing && target == s.cfg.Runway {
		return true
	}
	if v.Idle() {
		s.Emit(VehicleEvent(core.LifecycleArrived, v))
	}
	return false
}

// finished applies the kind-specific rule for an idle vehicle.
func (s *State) finished(v *fleet.Vehicle) bool {
	switch v.Kind {
	case fleet.KindAircraft:
		return v.Air.Removing
	case fleet.KindGround:
		final, ok := v.FinalAnchor()
		return ok && final == v.Ground.SpawnAnchor
	default:
		return false
	}
}

// ExpireAnimations sweeps overlays whose window has closed.
func (s *State) ExpireAnimations() []animation.Event {
	expired := s.anims.Expire(s.now)
	for _, e := range expired {
		s.Emit(AnimationEvent(core.LifecycleAnimEnd, e))
	}
	return expired
}

// AnimationEvent builds a lifecycle event describing an overlay.
func AnimationEvent(kind core.LifecycleKind, e animation.Event) core.LifecycleEvent {
	return core.LifecycleEvent{
		Kind:     kind,
		EntityID: animationEntityID(e.ID),
		Entity:   "animation",
		Model:    string(e.Name),
		Anchor:   e.Anchor,
		Position: core.Position2D{X: e.Position.X, Y: e.Position.Y},
	}
}
