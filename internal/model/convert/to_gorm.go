// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/apronsim/apronsim/internal/model"
	"github.com/apronsim/apronsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// position2DToPoint converts a core.Position2D to a geom.Point. Positions that
// fail validation (NaN or infinite) are stored as an empty point.
func position2DToPoint(p core.Position2D) geom.Point {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return pt
}

// stringsToJSON converts a []string to datatypes.JSON for DB storage.
func stringsToJSON(values []string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	out := model.Session{
		StartTime:      s.StartTime,
		Topology:       s.Topology,
		Points:         s.Points,
		Ways:           s.Ways,
		TickIntervalMs: s.TickInterval.Milliseconds(),
		Runway:         s.Runway,
		Gates:          stringsToJSON(s.Gates),
	}
	out.ID = s.ID
	return out
}

// CoreToCommandLog converts a core.CommandRecord to a GORM model.CommandLog.
func CoreToCommandLog(c core.CommandRecord) model.CommandLog {
	return model.CommandLog{
		ID:       c.ID,
		Seq:      c.Seq,
		Tick:     c.Tick,
		Source:   c.Source,
		Line:     c.Line,
		Command:  c.Command,
		Args:     stringsToJSON(c.Args),
		Received: c.Received,
		Applied:  c.Applied,
		Accepted: c.Accepted,
		Category: c.Category,
		Error:    c.Error,
		Result:   c.Result,
	}
}

// CoreToLifecycleLog converts a core.LifecycleEvent to a GORM model.LifecycleLog.
func CoreToLifecycleLog(e core.LifecycleEvent) model.LifecycleLog {
	return model.LifecycleLog{
		ID:       e.ID,
		Tick:     e.Tick,
		Time:     e.Time,
		Kind:     string(e.Kind),
		EntityID: e.EntityID,
		Entity:   e.Entity,
		Model:    e.Model,
		Gate:     e.Gate,
		Anchor:   e.Anchor,
		Position: position2DToPoint(e.Position),
		Route:    stringsToJSON(e.Route),
	}
}
