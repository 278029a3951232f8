package commands

import (
	"testing"
	"time"

	"github.com/apronsim/apronsim/internal/animation"
	"github.com/apronsim/apronsim/internal/cmderr"
	"github.com/apronsim/apronsim/internal/dispatcher"
	"github.com/apronsim/apronsim/internal/fleet"
	"github.com/apronsim/apronsim/internal/parser"
	"github.com/apronsim/apronsim/internal/pathfind"
	"github.com/apronsim/apronsim/internal/sim"
	"github.com/apronsim/apronsim/internal/topology"
	"github.com/apronsim/apronsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// testAirport is a hub: the runway and every gate hang off taxiway point T.
// ISO is an unconnected point.
func testAirport(t *testing.T) *topology.Graph {
	t.Helper()
	g, err := topology.Build(
		[]topology.Point{
			{ID: "RW-0", X: 0, Y: 0},
			{ID: "T", X: 100, Y: 0},
			{ID: "P-5", X: 100, Y: 50},
			{ID: "P-4", X: 100, Y: -50},
			{ID: "P-3", X: 200, Y: 0},
			{ID: "P-2", X: 150, Y: 50},
			{ID: "P-1", X: 150, Y: -50},
			{ID: "ISO", X: 500, Y: 500},
		},
		[]topology.Edge{
			{ID: "E1", P1: "RW-0", P2: "T"},
			{ID: "E2", P1: "T", P2: "P-5"},
			{ID: "E3", P1: "T", P2: "P-4"},
			{ID: "E4", P1: "T", P2: "P-3"},
			{ID: "E5", P1: "T", P2: "P-2"},
			{ID: "E6", P1: "T", P2: "P-1"},
		},
	)
	require.NoError(t, err)
	return g
}

func newTestService(t *testing.T, cfg sim.Config) (*dispatcher.Dispatcher, *sim.State) {
	t.Helper()
	g := testAirport(t)
	paths, err := pathfind.New(g, 16)
	require.NoError(t, err)

	st := sim.NewState(cfg, sim.Dependencies{
		Graph:      g,
		Paths:      paths,
		Animations: animation.NewManager(4 * time.Second),
	})
	st.BeginTick(time.Unix(100, 0))

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	NewService(Dependencies{State: st}).RegisterHandlers(d)
	return d, st
}

func run(t *testing.T, d *dispatcher.Dispatcher, line string) (Result, error) {
	t.Helper()
	e, err := parser.Parse(line)
	require.NoError(t, err)
	out, err := d.Dispatch(e)
	if err != nil {
		return Result{}, err
	}
	res, ok := out.(Result)
	require.True(t, ok, "handlers return Result")
	return res, nil
}

func mustRun(t *testing.T, d *dispatcher.Dispatcher, line string) Result {
	t.Helper()
	res, err := run(t, d, line)
	require.NoError(t, err, line)
	return res
}

func eventKinds(events []core.LifecycleEvent) []core.LifecycleKind {
	out := make([]core.LifecycleKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestRegisterHandlers(t *testing.T) {
	d, _ := newTestService(t, sim.DefaultConfig())
	for _, c := range parser.Commands() {
		assert.True(t, d.HasHandler(c), c)
	}
}

func TestRouteQuery(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	res := mustRun(t, d, "/way RW-0 P-5")
	assert.Equal(t, []string{"RW-0", "T", "P-5"}, res.Route)
	assert.Equal(t, "RW-0 -> T -> P-5", res.String())

	res = mustRun(t, d, "route-query E2 RW-0")
	assert.Equal(t, []string{"E2", "T", "RW-0"}, res.Route)

	assert.Empty(t, st.TakeEvents(), "route queries do not mutate state")
	assert.Equal(t, 0, st.Fleet().Len())
}

func TestRouteQuery_Rejections(t *testing.T) {
	d, _ := newTestService(t, sim.DefaultConfig())

	tests := []struct {
		line string
		want error
	}{
		{"/way RW-0", cmderr.ErrInvalidArity},
		{"/way RW-0 P-5 P-4", cmderr.ErrInvalidArity},
		{"/way RW-0 NOPE", cmderr.ErrNotFound},
		{"/way E99 RW-0", cmderr.ErrNotFound},
		{"/way RW-0 ISO", cmderr.ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := run(t, d, tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSpawnAircraft_AssignsGatesInPriorityOrder(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	res := mustRun(t, d, "/plane 1")
	assert.Equal(t, "PL-1", res.Entity)
	assert.Equal(t, []string{"RW-0", "T", "P-5"}, res.Route)

	v, ok := st.Fleet().Get("PL-1")
	require.True(t, ok)
	assert.Equal(t, fleet.KindAircraft, v.Kind)
	assert.Equal(t, "P-5", v.Air.Gate)
	assert.Equal(t, "RW-0", v.CurrentNode)
	assert.Equal(t, topology.Coord{X: 0, Y: 0}, v.Position)
	assert.Equal(t, 10.0, v.Speed)
	assert.Equal(t, 1, v.RouteIndex)

	mustRun(t, d, "spawn-aircraft 2")
	v2, _ := st.Fleet().Get("PL-2")
	assert.Equal(t, "P-4", v2.Air.Gate)

	assert.Equal(t, []core.LifecycleKind{core.LifecycleSpawned, core.LifecycleSpawned}, eventKinds(st.TakeEvents()))
}

func TestSpawnAircraft_CapacityExceeded(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	for _, n := range []string{"1", "2", "3", "4", "5"} {
		mustRun(t, d, "/plane "+n)
	}
	gates := st.Fleet().OccupiedGates()
	assert.Len(t, gates, 5, "five aircraft never share a gate")

	_, err := run(t, d, "/plane 6")
	assert.ErrorIs(t, err, cmderr.ErrCapacityExceeded)
	assert.Equal(t, 5, st.Fleet().Count(fleet.KindAircraft))
}

func TestSpawnAircraft_SlotUnavailable(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Gates = []string{"P-5"}
	d, st := newTestService(t, cfg)

	mustRun(t, d, "/plane 1")
	_, err := run(t, d, "/plane 2")
	assert.ErrorIs(t, err, cmderr.ErrSlotUnavailable)
	assert.Equal(t, 1, st.Fleet().Len())
}

func TestSpawnAircraft_GateFreedAfterDestroy(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Gates = []string{"P-5"}
	d, st := newTestService(t, cfg)

	mustRun(t, d, "/plane 1")
	mustRun(t, d, "/clear PL")

	res := mustRun(t, d, "/plane 2")
	assert.Equal(t, []string{"RW-0", "T", "P-5"}, res.Route)
	v, _ := st.Fleet().Get("PL-2")
	assert.Equal(t, "P-5", v.Air.Gate)
}

func TestSpawnAircraft_UnreachableGateLeavesStateUnchanged(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Gates = []string{"ISO"}
	d, st := newTestService(t, cfg)

	_, err := run(t, d, "/plane 1")
	assert.ErrorIs(t, err, cmderr.ErrUnreachable)
	assert.Equal(t, 0, st.Fleet().Len())
	assert.Empty(t, st.TakeEvents())
}

func TestSpawnAircraft_ExistingAircraftDeparts(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	mustRun(t, d, "/plane 1")
	st.TakeEvents()

	v, _ := st.Fleet().Get("PL-1")
	v.Position = topology.Coord{X: 100, Y: 50}
	v.CurrentNode = "P-5"
	v.SetRoute([]string{"P-5"})

	res := mustRun(t, d, "/plane 1")
	assert.Equal(t, []string{"P-5", "T", "RW-0"}, res.Route)
	assert.True(t, v.Air.Removing)
	assert.Equal(t, 1, v.RouteIndex)
	assert.Equal(t, 1, st.Fleet().Count(fleet.KindAircraft), "re-spawning never creates a second aircraft")
	assert.Equal(t, []core.LifecycleKind{core.LifecycleRerouted}, eventKinds(st.TakeEvents()))
}

func TestSpawnAircraft_ExistingAtCapacityStillDeparts(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	for _, n := range []string{"1", "2", "3", "4", "5"} {
		mustRun(t, d, "/plane "+n)
	}

	_, err := run(t, d, "/plane 3")
	require.NoError(t, err)
	v, _ := st.Fleet().Get("PL-3")
	assert.True(t, v.Air.Removing)
}

func TestSpawnAircraft_Rejections(t *testing.T) {
	d, _ := newTestService(t, sim.DefaultConfig())

	_, err := run(t, d, "/plane")
	assert.ErrorIs(t, err, cmderr.ErrInvalidArity)

	_, err = run(t, d, "/plane one")
	assert.ErrorIs(t, err, cmderr.ErrInvalidFormat)

	_, err = run(t, d, "/plane -1")
	assert.ErrorIs(t, err, cmderr.ErrInvalidFormat)
}

func TestInitVehicle(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	mustRun(t, d, "/init BUS-1 P-5")
	bus, ok := st.Fleet().Get("BUS-1")
	require.True(t, ok)
	assert.Equal(t, fleet.KindGround, bus.Kind)
	assert.Equal(t, fleet.ModelBus, bus.Ground.Model)
	assert.Equal(t, "P-5", bus.Ground.SpawnAnchor)
	assert.Equal(t, "P-5", bus.CurrentNode)
	assert.Equal(t, topology.Coord{X: 100, Y: 50}, bus.Position)
	assert.Equal(t, 6.0, bus.Speed)
	assert.True(t, bus.Idle())
	assert.Equal(t, 1, st.Fleet().Tally(fleet.ModelBus))

	mustRun(t, d, "init-vehicle PL-7 T")
	plane, ok := st.Fleet().Get("PL-7")
	require.True(t, ok)
	assert.Equal(t, fleet.KindAircraft, plane.Kind)
	assert.Equal(t, 8.0, plane.Speed)
	assert.Empty(t, plane.Air.Gate)
}

func TestInitVehicle_Rejections(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"arity", "/init BUS-1", cmderr.ErrInvalidArity},
		{"unknown prefix", "/init XX-1 P-5", cmderr.ErrInvalidFormat},
		{"malformed id", "/init BUS1 P-5", cmderr.ErrInvalidFormat},
		{"non-numeric suffix", "/init PL-abc P-5", cmderr.ErrInvalidFormat},
		{"non-numeric ground suffix", "/init BUS-x P-5", cmderr.ErrInvalidFormat},
		{"duplicate in lower case", "/init bg-1 P-4", cmderr.ErrConflict},
		{"duplicate", "/init BG-1 P-4", cmderr.ErrConflict},
		{"edge anchor", "/init FM-1 E1", cmderr.ErrInvalidAnchor},
		{"unknown edge-like anchor", "/init FM-1 E99", cmderr.ErrInvalidAnchor},
		{"unknown point", "/init FM-1 Q-9", cmderr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, st := newTestService(t, sim.DefaultConfig())
			mustRun(t, d, "/init BG-1 P-1")
			st.TakeEvents()

			_, err := run(t, d, tt.line)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, st.Fleet().Len())
			assert.Equal(t, 1, st.Fleet().Tally(fleet.ModelBaggageTractor))
			assert.Empty(t, st.TakeEvents())
		})
	}
}

func TestInitVehicle_AircraftCapacity(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	for _, n := range []string{"1", "2", "3", "4", "5"} {
		mustRun(t, d, "/plane "+n)
	}

	_, err := run(t, d, "/init PL-9 T")
	assert.ErrorIs(t, err, cmderr.ErrCapacityExceeded)

	mustRun(t, d, "/init CT-1 T")
	assert.Equal(t, 6, st.Fleet().Len(), "ground vehicles are not capped")
}

func TestMoveVehicle(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	mustRun(t, d, "/init BUS-1 P-5")
	st.TakeEvents()

	res := mustRun(t, d, "/move BUS-1 P-5 RW-0")
	assert.Equal(t, []string{"P-5", "T", "RW-0"}, res.Route)

	v, _ := st.Fleet().Get("BUS-1")
	assert.Equal(t, []string{"P-5", "T", "RW-0"}, v.Route)
	assert.Equal(t, 1, v.RouteIndex)
	assert.Equal(t, []core.LifecycleKind{core.LifecycleRerouted}, eventKinds(st.TakeEvents()))
}

func TestVehicleIDs_PrefixCaseFolded(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	res := mustRun(t, d, "/init bus-1 P-5")
	assert.Equal(t, "BUS-1", res.Entity)
	v, ok := st.Fleet().Get("BUS-1")
	require.True(t, ok)
	assert.Equal(t, fleet.ModelBus, v.Ground.Model)

	res = mustRun(t, d, "/move Bus-1 P-5 RW-0")
	assert.Equal(t, "BUS-1", res.Entity)
	assert.Equal(t, []string{"P-5", "T", "RW-0"}, v.Route)
}

func TestMoveVehicle_RoutesFromCurrentNode(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	mustRun(t, d, "/init BUS-1 P-5")

	res := mustRun(t, d, "/move BUS-1 P-1 P-3")
	assert.Equal(t, []string{"P-5", "T", "P-3"}, res.Route, "origin argument is validated but the route starts where the vehicle is")

	v, _ := st.Fleet().Get("BUS-1")
	assert.Equal(t, "P-5", v.Route[0])
}

func TestMoveVehicle_ToEdgeMidpoint(t *testing.T) {
	d, _ := newTestService(t, sim.DefaultConfig())
	mustRun(t, d, "/init FM-1 RW-0")

	res := mustRun(t, d, "/move FM-1 RW-0 E4")
	assert.Equal(t, []string{"RW-0", "T", "E4"}, res.Route)
}

func TestMoveVehicle_CancelsAircraftRemoval(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	mustRun(t, d, "/init PL-1 P-5")
	mustRun(t, d, "/plane 1")

	v, _ := st.Fleet().Get("PL-1")
	require.True(t, v.Air.Removing)

	mustRun(t, d, "/move PL-1 P-5 P-3")
	assert.False(t, v.Air.Removing)
}

func TestMoveVehicle_Rejections(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"arity", "/move BUS-1 P-5", cmderr.ErrInvalidArity},
		{"bad prefix", "/move ZZ-1 P-5 T", cmderr.ErrInvalidFormat},
		{"unknown origin", "/move BUS-1 NOPE T", cmderr.ErrNotFound},
		{"unknown destination", "/move BUS-1 P-5 NOPE", cmderr.ErrNotFound},
		{"unknown vehicle", "/move BUS-2 P-5 T", cmderr.ErrNotFound},
		{"unreachable", "/move BUS-1 P-5 ISO", cmderr.ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, st := newTestService(t, sim.DefaultConfig())
			mustRun(t, d, "/init BUS-1 P-5")
			mustRun(t, d, "/move BUS-1 P-5 P-4")
			st.TakeEvents()

			_, err := run(t, d, tt.line)
			assert.ErrorIs(t, err, tt.want)

			v, _ := st.Fleet().Get("BUS-1")
			assert.Equal(t, []string{"P-5", "T", "P-4"}, v.Route, "route is untouched")
			assert.Empty(t, st.TakeEvents())
		})
	}
}

func TestTriggerAnimation(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	res := mustRun(t, d, "/action fuel_man P-3")
	assert.Equal(t, "fuel_man", res.Entity)

	active := st.Animations().Active()
	require.Len(t, active, 1)
	assert.Equal(t, "P-3", active[0].Anchor)
	assert.Equal(t, topology.Coord{X: 200, Y: 0}, active[0].Position)
	assert.Equal(t, st.Now(), active[0].Start)

	events := st.TakeEvents()
	require.Len(t, events, 1)
	assert.Equal(t, core.LifecycleAnimStart, events[0].Kind)
}

func TestTriggerAnimation_Rejections(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())

	_, err := run(t, d, "/action fuel_man")
	assert.ErrorIs(t, err, cmderr.ErrInvalidArity)

	_, err = run(t, d, "/action dancing_man P-3")
	assert.ErrorIs(t, err, cmderr.ErrNotFound)

	_, err = run(t, d, "/action fuel_man NOPE")
	assert.ErrorIs(t, err, cmderr.ErrNotFound)

	_, err = run(t, d, "/action fuel_man E1")
	assert.ErrorIs(t, err, cmderr.ErrNotFound)

	assert.Equal(t, 0, st.Animations().Len())
}

func TestClearFleet(t *testing.T) {
	d, st := newTestService(t, sim.DefaultConfig())
	mustRun(t, d, "/init BUS-1 P-5")
	mustRun(t, d, "/init BUS-2 P-4")
	mustRun(t, d, "/init BG-1 P-3")
	st.TakeEvents()

	res := mustRun(t, d, "/clear bus")
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 0, st.Fleet().Tally(fleet.ModelBus))
	assert.Equal(t, 1, st.Fleet().Tally(fleet.ModelBaggageTractor))

	_, ok := st.Fleet().Get("BG-1")
	assert.True(t, ok)
	assert.Equal(t, []core.LifecycleKind{core.LifecycleCleared, core.LifecycleCleared}, eventKinds(st.TakeEvents()))

	res = mustRun(t, d, "/clear PL")
	assert.Equal(t, 0, res.Removed)

	res = mustRun(t, d, "/clear B")
	assert.Equal(t, 0, res.Removed, "selector matches the whole prefix")
}

func TestClearFleet_Arity(t *testing.T) {
	d, _ := newTestService(t, sim.DefaultConfig())
	_, err := run(t, d, "/clear")
	assert.ErrorIs(t, err, cmderr.ErrInvalidArity)
}
