package sim

import (
	"strconv"
	"time"

	"github.com/apronsim/apronsim/internal/animation"
	"github.com/apronsim/apronsim/internal/fleet"
)

// VehicleView is the renderer's view of one vehicle.
type VehicleView struct {
	ID       string  `json:"id" msgpack:"id"`
	Kind     string  `json:"kind" msgpack:"kind"`
	Model    string  `json:"model,omitempty" msgpack:"model,omitempty"`
	Gate     string  `json:"gate,omitempty" msgpack:"gate,omitempty"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Heading  float64 `json:"heading" msgpack:"heading"`
	Node     string  `json:"node,omitempty" msgpack:"node,omitempty"`
	Target   string  `json:"target,omitempty" msgpack:"target,omitempty"`
	Idle     bool    `json:"idle" msgpack:"idle"`
	Removing bool    `json:"removing,omitempty" msgpack:"removing,omitempty"`
}

// AnimationView is the renderer's view of one overlay.
type AnimationView struct {
	ID         uint64  `json:"id" msgpack:"id"`
	Name       string  `json:"name" msgpack:"name"`
	Anchor     string  `json:"anchor" msgpack:"anchor"`
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Frame      int     `json:"frame" msgpack:"frame"`
	FrameCount int     `json:"frameCount" msgpack:"frameCount"`
}

// Snapshot is an immutable copy of the simulation after a tick.
type Snapshot struct {
	Tick       uint64            `json:"tick" msgpack:"tick"`
	Time       time.Time         `json:"time" msgpack:"time"`
	Vehicles   []VehicleView     `json:"vehicles" msgpack:"vehicles"`
	Animations []AnimationView   `json:"animations" msgpack:"animations"`
	Tallies    map[string]int    `json:"tallies" msgpack:"tallies"`
	Gates      map[string]string `json:"gates" msgpack:"gates"`
}

// Snapshot copies the current state for readers on other goroutines.
func (s *State) Snapshot() *Snapshot {
	vehicles := s.fleet.All()
	snap := &Snapshot{
		Tick:       s.tick,
		Time:       s.now,
		Vehicles:   make([]VehicleView, 0, len(vehicles)),
		Animations: make([]AnimationView, 0, s.anims.Len()),
		Tallies:    make(map[string]int),
		Gates:      s.fleet.OccupiedGates(),
	}

	for _, v := range vehicles {
		snap.Vehicles = append(snap.Vehicles, viewOf(v))
	}

	for _, e := range s.anims.Active() {
		count := s.frames.FrameCount(e.Name)
		snap.Animations = append(snap.Animations, AnimationView{
			ID:         e.ID,
			Name:       string(e.Name),
			Anchor:     e.Anchor,
			X:          e.Position.X,
			Y:          e.Position.Y,
			Frame:      animation.FrameIndex(e.Elapsed(s.now), e.Duration, count),
			FrameCount: count,
		})
	}

	for m, n := range s.fleet.Tallies() {
		snap.Tallies[string(m)] = n
	}

	return snap
}

func viewOf(v *fleet.Vehicle) VehicleView {
	view := VehicleView{
		ID:      v.ID,
		Kind:    v.Kind.String(),
		X:       v.Position.X,
		Y:       v.Position.Y,
		Heading: v.Heading,
		Node:    v.CurrentNode,
		Idle:    v.Idle(),
	}
	if target, ok := v.Target(); ok {
		view.Target = target
	}

	switch v.Kind {
	case fleet.KindAircraft:
		view.Gate = v.Air.Gate
		view.Removing = v.Air.Removing
	case fleet.KindGround:
		view.Model = string(v.Ground.Model)
	}
	return view
}

func animationEntityID(id uint64) string {
	return "ANIM-" + strconv.FormatUint(id, 10)
}
