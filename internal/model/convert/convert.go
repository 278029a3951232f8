package convert

import (
	"encoding/json"
	"time"

	"github.com/apronsim/apronsim/internal/model"
	"github.com/apronsim/apronsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// pointToPosition2D converts a geom.Point to a core.Position2D
func pointToPosition2D(p geom.Point) core.Position2D {
	xy, ok := p.XY()
	if !ok {
		return core.Position2D{}
	}
	return core.Position2D{X: xy.X, Y: xy.Y}
}

// jsonToStrings decodes a JSON array column, returning nil when empty.
func jsonToStrings(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:           s.ID,
		StartTime:    s.StartTime,
		Topology:     s.Topology,
		Points:       s.Points,
		Ways:         s.Ways,
		TickInterval: time.Duration(s.TickIntervalMs) * time.Millisecond,
		Runway:       s.Runway,
		Gates:        jsonToStrings(s.Gates),
	}
}

// CommandLogToCore converts a GORM CommandLog to a core.CommandRecord.
func CommandLogToCore(c model.CommandLog) core.CommandRecord {
	return core.CommandRecord{
		ID:       c.ID,
		Seq:      c.Seq,
		Tick:     c.Tick,
		Source:   c.Source,
		Line:     c.Line,
		Command:  c.Command,
		Args:     jsonToStrings(c.Args),
		Received: c.Received,
		Applied:  c.Applied,
		Accepted: c.Accepted,
		Category: c.Category,
		Error:    c.Error,
		Result:   c.Result,
	}
}

// LifecycleLogToCore converts a GORM LifecycleLog to a core.LifecycleEvent.
func LifecycleLogToCore(e model.LifecycleLog) core.LifecycleEvent {
	return core.LifecycleEvent{
		ID:       e.ID,
		Tick:     e.Tick,
		Time:     e.Time,
		Kind:     core.LifecycleKind(e.Kind),
		EntityID: e.EntityID,
		Entity:   e.Entity,
		Model:    e.Model,
		Gate:     e.Gate,
		Anchor:   e.Anchor,
		Position: pointToPosition2D(e.Position),
		Route:    jsonToStrings(e.Route),
	}
}
