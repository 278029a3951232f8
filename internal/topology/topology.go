// Package topology holds the static airport map: named points, the ways
// connecting them, and the undirected adjacency used for routing.
// A Graph is immutable once built and safe for concurrent readers.
package topology

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peterstace/simplefeatures/geom"
)

// DefaultEdgePrefix marks identifiers that name ways rather than points.
const DefaultEdgePrefix = "E"

// ErrInvalidTopology is returned when points or ways are inconsistent.
var ErrInvalidTopology = errors.New("invalid topology")

// Coord is a logical map coordinate.
type Coord struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Point is a named vertex on the map.
type Point struct {
	ID string
	X  float64
	Y  float64
}

// Coord returns the point's position.
func (p Point) Coord() Coord {
	return Coord{X: p.X, Y: p.Y}
}

// Edge is an undirected way between two points. Its identifier can also be
// used as a route anchor located at the way's midpoint.
type Edge struct {
	ID     string
	P1     string
	P2     string
	Length float64

	mid Coord
}

// Midpoint returns the coordinate halfway between the endpoints.
func (e Edge) Midpoint() Coord {
	return e.mid
}

// Option configures graph construction.
type Option func(*Graph)

// WithEdgePrefix overrides the identifier prefix that marks way anchors.
func WithEdgePrefix(prefix string) Option {
	return func(g *Graph) {
		g.edgePrefix = prefix
	}
}

// Graph is the immutable airport topology.
type Graph struct {
	points     map[string]Point
	edges      map[string]Edge
	adjacency  map[string][]string
	edgeOrder  []string
	edgePrefix string
}

// Build validates points and edges and derives lengths, midpoints and the
// adjacency lists. Neighbor order follows edge order.
func Build(points []Point, edges []Edge, opts ...Option) (*Graph, error) {
	g := &Graph{
		points:     make(map[string]Point, len(points)),
		edges:      make(map[string]Edge, len(edges)),
		adjacency:  make(map[string][]string, len(points)),
		edgePrefix: DefaultEdgePrefix,
	}
	for _, opt := range opts {
		opt(g)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidTopology)
	}

	for _, p := range points {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: point without id", ErrInvalidTopology)
		}
		if _, dup := g.points[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate point %s", ErrInvalidTopology, p.ID)
		}
		g.points[p.ID] = p
	}

	for _, e := range edges {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: way without id", ErrInvalidTopology)
		}
		if _, dup := g.edges[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate way %s", ErrInvalidTopology, e.ID)
		}
		if _, clash := g.points[e.ID]; clash {
			return nil, fmt.Errorf("%w: way %s shadows a point", ErrInvalidTopology, e.ID)
		}
		a, ok := g.points[e.P1]
		if !ok {
			return nil, fmt.Errorf("%w: way %s references unknown point %q", ErrInvalidTopology, e.ID, e.P1)
		}
		b, ok := g.points[e.P2]
		if !ok {
			return nil, fmt.Errorf("%w: way %s references unknown point %q", ErrInvalidTopology, e.ID, e.P2)
		}
		if e.P1 == e.P2 {
			return nil, fmt.Errorf("%w: way %s is a loop on %s", ErrInvalidTopology, e.ID, e.P1)
		}

		length, mid := measure(a, b)
		if e.Length <= 0 {
			e.Length = length
		}
		e.mid = mid

		g.edges[e.ID] = e
		g.edgeOrder = append(g.edgeOrder, e.ID)
		g.adjacency[e.P1] = append(g.adjacency[e.P1], e.P2)
		g.adjacency[e.P2] = append(g.adjacency[e.P2], e.P1)
	}

	return g, nil
}

// measure returns the straight-line length and midpoint of a way.
func measure(a, b Point) (float64, Coord) {
	seq := geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY)
	line, err := geom.NewLineString(seq)
	if err != nil {
		// coincident endpoints do not form a valid line
		return 0, Coord{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	}

	if xy, ok := line.Centroid().XY(); ok {
		return line.Length(), Coord{X: xy.X, Y: xy.Y}
	}
	return line.Length(), Coord{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Neighbors returns the points adjacent to id, in edge order.
func (g *Graph) Neighbors(id string) []string {
	return g.adjacency[id]
}

// HasPoint reports whether id names a point.
func (g *Graph) HasPoint(id string) bool {
	_, ok := g.points[id]
	return ok
}

// HasEdge reports whether id names a way.
func (g *Graph) HasEdge(id string) bool {
	_, ok := g.edges[id]
	return ok
}

// IsEdgeAnchor reports whether id refers to a way. Identifiers carrying the
// way prefix count even when no such way exists, so they can never be used
// as point anchors.
func (g *Graph) IsEdgeAnchor(id string) bool {
	if g.HasEdge(id) {
		return true
	}
	if g.HasPoint(id) {
		return false
	}
	return g.edgePrefix != "" && strings.HasPrefix(id, g.edgePrefix)
}

// Coordinates returns the position of a point.
func (g *Graph) Coordinates(id string) (Coord, bool) {
	p, ok := g.points[id]
	if !ok {
		return Coord{}, false
	}
	return p.Coord(), true
}

// EdgeEndpoints returns the two points a way connects.
func (g *Graph) EdgeEndpoints(id string) (string, string, bool) {
	e, ok := g.edges[id]
	if !ok {
		return "", "", false
	}
	return e.P1, e.P2, true
}

// EdgeMidpoint returns the midpoint of a way.
func (g *Graph) EdgeMidpoint(id string) (Coord, bool) {
	e, ok := g.edges[id]
	if !ok {
		return Coord{}, false
	}
	return e.mid, true
}

// Resolve returns the coordinate of any anchor, point or way.
func (g *Graph) Resolve(anchor string) (Coord, bool) {
	if c, ok := g.Coordinates(anchor); ok {
		return c, true
	}
	return g.EdgeMidpoint(anchor)
}

// Edge returns the way with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// PointCount returns the number of points.
func (g *Graph) PointCount() int {
	return len(g.points)
}

// EdgeCount returns the number of ways.
func (g *Graph) EdgeCount() int {
	return len(g.edgeOrder)
}
