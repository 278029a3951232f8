package fleet

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDuplicateID is returned when adding a vehicle whose id is taken.
var ErrDuplicateID = errors.New("duplicate vehicle id")

// Registry owns every live vehicle and the per-model ground tallies.
type Registry struct {
	vehicles map[string]*Vehicle
	order    []string
	tallies  map[Model]int
}

// NewRegistry creates an empty registry with zeroed tallies.
func NewRegistry() *Registry {
	r := &Registry{
		vehicles: make(map[string]*Vehicle),
		tallies:  make(map[Model]int),
	}
	for _, m := range Models() {
		r.tallies[m] = 0
	}
	return r
}

// Add registers a vehicle and counts it toward its model tally.
func (r *Registry) Add(v *Vehicle) error {
	if _, taken := r.vehicles[v.ID]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateID, v.ID)
	}
	r.vehicles[v.ID] = v
	r.order = append(r.order, v.ID)

	if v.Kind == KindGround {
		r.tallies[v.Ground.Model]++
	}
	return nil
}

// Get looks a vehicle up by id.
func (r *Registry) Get(id string) (*Vehicle, bool) {
	v, ok := r.vehicles[id]
	return v, ok
}

// Remove deletes a vehicle. Ground tallies never drop below zero.
func (r *Registry) Remove(id string) (*Vehicle, bool) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, false
	}
	delete(r.vehicles, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })

	if v.Kind == KindGround && r.tallies[v.Ground.Model] > 0 {
		r.tallies[v.Ground.Model]--
	}
	return v, true
}

// RemoveWhere deletes every vehicle matching pred and returns them in
// registration order.
func (r *Registry) RemoveWhere(pred func(*Vehicle) bool) []*Vehicle {
	var ids []string
	for _, id := range r.order {
		if pred(r.vehicles[id]) {
			ids = append(ids, id)
		}
	}

	removed := make([]*Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := r.Remove(id); ok {
			removed = append(removed, v)
		}
	}
	return removed
}

// All returns the live vehicles in registration order.
func (r *Registry) All() []*Vehicle {
	out := make([]*Vehicle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.vehicles[id])
	}
	return out
}

// Len returns the number of live vehicles.
func (r *Registry) Len() int {
	return len(r.vehicles)
}

// Count returns the number of live vehicles of a kind.
func (r *Registry) Count(k Kind) int {
	n := 0
	for _, v := range r.vehicles {
		if v.Kind == k {
			n++
		}
	}
	return n
}

// Tally returns the number of live ground vehicles of a model.
func (r *Registry) Tally(m Model) int {
	return r.tallies[m]
}

// Tallies returns a copy of every model tally.
func (r *Registry) Tallies() map[Model]int {
	out := make(map[Model]int, len(r.tallies))
	for m, n := range r.tallies {
		out[m] = n
	}
	return out
}

// OccupiedGates maps each held gate to the aircraft holding it.
func (r *Registry) OccupiedGates() map[string]string {
	out := make(map[string]string)
	for _, id := range r.order {
		v := r.vehicles[id]
		if v.Kind == KindAircraft && v.Air.Gate != "" {
			out[v.Air.Gate] = v.ID
		}
	}
	return out
}

// FreeGate returns the first gate in priority order that no aircraft holds.
func (r *Registry) FreeGate(priority []string) (string, bool) {
	occupied := r.OccupiedGates()
	for _, g := range priority {
		if _, held := occupied[g]; !held {
			return g, true
		}
	}
	return "", false
}
