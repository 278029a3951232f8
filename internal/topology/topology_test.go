package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Build(
		[]Point{
			{ID: "RW-0", X: 0, Y: 0},
			{ID: "A", X: 10, Y: 0},
			{ID: "B", X: 10, Y: 10},
			{ID: "P-1", X: 20, Y: 10},
		},
		[]Edge{
			{ID: "E1", P1: "RW-0", P2: "A"},
			{ID: "E2", P1: "A", P2: "B"},
			{ID: "E3", P1: "B", P2: "P-1"},
		},
	)
	require.NoError(t, err)
	return g
}

func TestBuild_AdjacencyIsSymmetric(t *testing.T) {
	g := sampleGraph(t)

	assert.Equal(t, []string{"A"}, g.Neighbors("RW-0"))
	assert.Equal(t, []string{"RW-0", "B"}, g.Neighbors("A"))
	assert.Equal(t, []string{"A", "P-1"}, g.Neighbors("B"))
	assert.Equal(t, []string{"B"}, g.Neighbors("P-1"))
	assert.Empty(t, g.Neighbors("nowhere"))
}

func TestBuild_DerivesLengthAndMidpoint(t *testing.T) {
	g := sampleGraph(t)

	e, ok := g.Edge("E2")
	require.True(t, ok)
	assert.InDelta(t, 10.0, e.Length, 1e-9)

	mid, ok := g.EdgeMidpoint("E2")
	require.True(t, ok)
	assert.InDelta(t, 10.0, mid.X, 1e-9)
	assert.InDelta(t, 5.0, mid.Y, 1e-9)
}

func TestMeasure_CoincidentEndpoints(t *testing.T) {
	length, mid := measure(Point{ID: "A", X: 4, Y: 7}, Point{ID: "B", X: 4, Y: 7})
	assert.Equal(t, 0.0, length)
	assert.Equal(t, Coord{X: 4, Y: 7}, mid)
}

func TestMeasure(t *testing.T) {
	length, mid := measure(Point{ID: "A"}, Point{ID: "B", X: 6, Y: 8})
	assert.InDelta(t, 10.0, length, 1e-9)
	assert.InDelta(t, 3.0, mid.X, 1e-9)
	assert.InDelta(t, 4.0, mid.Y, 1e-9)
}

func TestBuild_KeepsDeclaredLength(t *testing.T) {
	g, err := Build(
		[]Point{{ID: "A"}, {ID: "B", X: 3, Y: 4}},
		[]Edge{{ID: "E1", P1: "A", P2: "B", Length: 42}},
	)
	require.NoError(t, err)

	e, _ := g.Edge("E1")
	assert.Equal(t, 42.0, e.Length)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		edges  []Edge
	}{
		{"no points", nil, nil},
		{"duplicate point", []Point{{ID: "A"}, {ID: "A"}}, nil},
		{"point without id", []Point{{ID: ""}}, nil},
		{"unknown endpoint", []Point{{ID: "A"}}, []Edge{{ID: "E1", P1: "A", P2: "Z"}}},
		{"loop", []Point{{ID: "A"}}, []Edge{{ID: "E1", P1: "A", P2: "A"}}},
		{"duplicate way", []Point{{ID: "A"}, {ID: "B"}}, []Edge{{ID: "E1", P1: "A", P2: "B"}, {ID: "E1", P1: "B", P2: "A"}}},
		{"way shadows point", []Point{{ID: "A"}, {ID: "B"}}, []Edge{{ID: "A", P1: "A", P2: "B"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.points, tt.edges)
			assert.ErrorIs(t, err, ErrInvalidTopology)
		})
	}
}

func TestResolve(t *testing.T) {
	g := sampleGraph(t)

	c, ok := g.Resolve("B")
	require.True(t, ok)
	assert.Equal(t, Coord{X: 10, Y: 10}, c)

	c, ok = g.Resolve("E1")
	require.True(t, ok)
	assert.InDelta(t, 5.0, c.X, 1e-9)
	assert.InDelta(t, 0.0, c.Y, 1e-9)

	_, ok = g.Resolve("missing")
	assert.False(t, ok)
}

func TestIsEdgeAnchor(t *testing.T) {
	g := sampleGraph(t)

	assert.True(t, g.IsEdgeAnchor("E1"))
	assert.True(t, g.IsEdgeAnchor("E99"), "prefixed ids count even if unknown")
	assert.False(t, g.IsEdgeAnchor("A"))
	assert.False(t, g.IsEdgeAnchor("P-1"))
}

func TestIsEdgeAnchor_CustomPrefix(t *testing.T) {
	g, err := Build(
		[]Point{{ID: "EAST"}, {ID: "B"}},
		[]Edge{{ID: "W-1", P1: "EAST", P2: "B"}},
		WithEdgePrefix("W-"),
	)
	require.NoError(t, err)

	assert.False(t, g.IsEdgeAnchor("EAST"))
	assert.True(t, g.IsEdgeAnchor("W-1"))
	assert.True(t, g.IsEdgeAnchor("W-7"))
}

func TestEdgeEndpoints(t *testing.T) {
	g := sampleGraph(t)

	p1, p2, ok := g.EdgeEndpoints("E3")
	require.True(t, ok)
	assert.Equal(t, "B", p1)
	assert.Equal(t, "P-1", p2)

	_, _, ok = g.EdgeEndpoints("A")
	assert.False(t, ok)
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "airport.json")
	content := `{
		"points": [
			{"point": "RW-0", "x": 0, "y": 0},
			{"point": "A", "x": 3, "y": 4}
		],
		"ways": [
			{"way": "E1", "point1": "RW-0", "point2": "A"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	g, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, g.PointCount())
	assert.Equal(t, 1, g.EdgeCount())
	e, ok := g.Edge("E1")
	require.True(t, ok)
	assert.InDelta(t, 5.0, e.Length, 1e-9)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "airport.yaml")
	content := `
points:
  - point: A
    x: 0
    y: 0
  - point: B
    x: 0
    y: 8
ways:
  - way: E1
    p1: A
    p2: B
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, g.Neighbors("A"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading topology file")
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	content := `{"points": [{"point": "A"}], "ways": [{"way": "E1", "p1": "A", "p2": "Z"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidTopology)
}
