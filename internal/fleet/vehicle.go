// Package fleet models the simulated vehicles and the registry that owns
// them. The registry is not safe for concurrent use: it belongs to the
// simulation goroutine.
package fleet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/apronsim/apronsim/internal/topology"
)

// ErrUnknownPrefix is returned for ids whose type prefix is not recognized.
var ErrUnknownPrefix = errors.New("unknown vehicle type prefix")

// ErrMalformedID is returned for ids not shaped like TYPE-N.
var ErrMalformedID = errors.New("malformed vehicle id")

// Kind tags the vehicle variant.
type Kind int

const (
	KindAircraft Kind = iota + 1
	KindGround
)

func (k Kind) String() string {
	switch k {
	case KindAircraft:
		return "aircraft"
	case KindGround:
		return "ground"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Model names a ground vehicle type.
type Model string

const (
	ModelBus            Model = "bus"
	ModelBaggageTractor Model = "baggage_tractor"
	ModelCateringTruck  Model = "catering_truck"
	ModelFollowMe       Model = "followme"
	ModelFuelTruck      Model = "fuel_truck"
)

// AircraftPrefix is the id prefix for aircraft.
const AircraftPrefix = "PL"

// groundPrefixes maps id prefixes to ground vehicle models.
var groundPrefixes = map[string]Model{
	"BUS": ModelBus,
	"BG":  ModelBaggageTractor,
	"CT":  ModelCateringTruck,
	"FM":  ModelFollowMe,
	"RT":  ModelFuelTruck,
}

// Models lists every ground vehicle model.
func Models() []Model {
	return []Model{ModelBus, ModelBaggageTractor, ModelCateringTruck, ModelFollowMe, ModelFuelTruck}
}

// TypePrefix returns the part of id before the first dash.
func TypePrefix(id string) string {
	prefix, _, _ := strings.Cut(id, "-")
	return prefix
}

// Classify parses an id of the form TYPE-N and returns its kind, and the
// model for ground vehicles. The prefix is matched case-insensitively and N
// must be a non-negative integer.
func Classify(id string) (Kind, Model, error) {
	prefix, suffix, found := strings.Cut(id, "-")
	if !found || prefix == "" || !validNumber(suffix) {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	prefix = strings.ToUpper(prefix)
	if prefix == AircraftPrefix {
		return KindAircraft, "", nil
	}
	if m, ok := groundPrefixes[prefix]; ok {
		return KindGround, m, nil
	}
	return 0, "", fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
}

// CanonicalID upper-cases the type prefix of id, so bus-1 and BUS-1 name the
// same vehicle.
func CanonicalID(id string) string {
	prefix, suffix, found := strings.Cut(id, "-")
	if !found {
		return id
	}
	return strings.ToUpper(prefix) + "-" + suffix
}

func validNumber(s string) bool {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0
}

// AircraftID builds an aircraft id from its number.
func AircraftID(n int) string {
	return fmt.Sprintf("%s-%d", AircraftPrefix, n)
}

// Movement is the state shared by every vehicle kind.
type Movement struct {
	Position    topology.Coord
	Route       []string
	RouteIndex  int
	Speed       float64
	CurrentNode string
	Heading     float64
}

// AircraftState holds the fields only aircraft carry.
type AircraftState struct {
	// Gate is empty for aircraft placed directly rather than spawned.
	Gate     string
	Removing bool
}

// GroundState holds the fields only ground vehicles carry.
type GroundState struct {
	Model       Model
	SpawnAnchor string
}

// Vehicle is one simulated entity. Air is meaningful only for
// KindAircraft and Ground only for KindGround.
type Vehicle struct {
	ID   string
	Kind Kind
	Movement

	Air    AircraftState
	Ground GroundState
}

// Idle reports whether the vehicle has no remaining route targets.
func (v *Vehicle) Idle() bool {
	return v.RouteIndex >= len(v.Route)
}

// Target returns the anchor the vehicle is currently heading to.
func (v *Vehicle) Target() (string, bool) {
	if v.Idle() {
		return "", false
	}
	return v.Route[v.RouteIndex], true
}

// SetRoute replaces the route. The first anchor is where the vehicle
// already stands, so travel starts at index 1.
func (v *Vehicle) SetRoute(route []string) {
	v.Route = route
	v.RouteIndex = min(1, len(route))
}

// FinalAnchor returns the last anchor of the route.
func (v *Vehicle) FinalAnchor() (string, bool) {
	if len(v.Route) == 0 {
		return "", false
	}
	return v.Route[len(v.Route)-1], true
}
