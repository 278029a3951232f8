// Package animation manages short-lived visual overlays anchored at map
// points. Events live in an arena that is swept by elapsed time once per
// tick; nothing else destroys them.
package animation

import (
	"time"

	"github.com/apronsim/apronsim/internal/topology"
)

// DefaultDuration is how long an overlay stays on screen.
const DefaultDuration = 4 * time.Second

// Name identifies an overlay animation.
type Name string

const (
	BaggageMan    Name = "baggage_man"
	BusPassengers Name = "bus_passengers"
	CateringMan   Name = "catering_man"
	FuelMan       Name = "fuel_man"
)

// Names lists every known overlay.
func Names() []Name {
	return []Name{BaggageMan, BusPassengers, CateringMan, FuelMan}
}

// ParseName validates an overlay name.
func ParseName(s string) (Name, bool) {
	for _, n := range Names() {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Event is one live overlay.
type Event struct {
	ID       uint64
	Name     Name
	Anchor   string
	Position topology.Coord
	Start    time.Time
	Duration time.Duration
}

// Elapsed returns the time since the event started, never negative.
func (e Event) Elapsed(now time.Time) time.Duration {
	d := now.Sub(e.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the event's window has closed. The window is
// inclusive of its final instant.
func (e Event) Expired(now time.Time) bool {
	return now.Sub(e.Start) > e.Duration
}

// Manager is the overlay arena. It is owned by the simulation goroutine.
type Manager struct {
	events   []Event
	nextID   uint64
	duration time.Duration
}

// NewManager creates an arena whose events all last duration.
func NewManager(duration time.Duration) *Manager {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Manager{duration: duration}
}

// Duration returns the fixed lifetime given to new events.
func (m *Manager) Duration() time.Duration {
	return m.duration
}

// Trigger starts a new overlay at now. Ids increase monotonically and are
// never reused.
func (m *Manager) Trigger(name Name, anchor string, pos topology.Coord, now time.Time) Event {
	m.nextID++
	e := Event{
		ID:       m.nextID,
		Name:     name,
		Anchor:   anchor,
		Position: pos,
		Start:    now,
		Duration: m.duration,
	}
	m.events = append(m.events, e)
	return e
}

// Expire removes and returns every event whose window closed before now.
func (m *Manager) Expire(now time.Time) []Event {
	var expired []Event
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Expired(now) {
			expired = append(expired, e)
			continue
		}
		kept = append(kept, e)
	}
	clear(m.events[len(kept):])
	m.events = kept
	return expired
}

// Active returns a copy of the live events in trigger order.
func (m *Manager) Active() []Event {
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of live events.
func (m *Manager) Len() int {
	return len(m.events)
}

// FrameIndex maps elapsed time onto a frame of an animation with
// frameCount frames: floor(elapsed/duration*frameCount), clamped to the
// valid range.
func FrameIndex(elapsed, duration time.Duration, frameCount int) int {
	if frameCount <= 0 || duration <= 0 || elapsed <= 0 {
		return 0
	}
	idx := int(float64(elapsed) / float64(duration) * float64(frameCount))
	if idx >= frameCount {
		return frameCount - 1
	}
	return idx
}

// FrameProvider reports how many frames each overlay has. Decoding the
// frames themselves is left to the renderer.
type FrameProvider interface {
	FrameCount(name Name) int
}

// StaticFrames is a FrameProvider backed by a fixed table.
type StaticFrames map[Name]int

// FrameCount returns the table entry for name, or 1 when absent.
func (s StaticFrames) FrameCount(name Name) int {
	if n, ok := s[name]; ok && n > 0 {
		return n
	}
	return 1
}
