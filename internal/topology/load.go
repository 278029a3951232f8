package topology

import (
	"fmt"

	"github.com/spf13/viper"
)

// pointRecord is a point entry in a topology file.
type pointRecord struct {
	Point string  `mapstructure:"point"`
	ID    string  `mapstructure:"id"`
	X     float64 `mapstructure:"x"`
	Y     float64 `mapstructure:"y"`
}

// wayRecord is a way entry. Older files spell the endpoints point1/point2.
type wayRecord struct {
	Way    string  `mapstructure:"way"`
	ID     string  `mapstructure:"id"`
	P1     string  `mapstructure:"p1"`
	P2     string  `mapstructure:"p2"`
	Point1 string  `mapstructure:"point1"`
	Point2 string  `mapstructure:"point2"`
	Len    float64 `mapstructure:"len"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Load reads a topology file (JSON, YAML or TOML, chosen by extension)
// holding "points" and "ways" lists, and builds the graph.
func Load(path string, opts ...Option) (*Graph, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading topology file: %w", err)
	}

	var rawPoints []pointRecord
	if err := v.UnmarshalKey("points", &rawPoints); err != nil {
		return nil, fmt.Errorf("%w: decoding points: %v", ErrInvalidTopology, err)
	}
	var rawWays []wayRecord
	if err := v.UnmarshalKey("ways", &rawWays); err != nil {
		return nil, fmt.Errorf("%w: decoding ways: %v", ErrInvalidTopology, err)
	}

	points := make([]Point, 0, len(rawPoints))
	for _, r := range rawPoints {
		points = append(points, Point{
			ID: firstNonEmpty(r.Point, r.ID),
			X:  r.X,
			Y:  r.Y,
		})
	}

	edges := make([]Edge, 0, len(rawWays))
	for _, r := range rawWays {
		edges = append(edges, Edge{
			ID:     firstNonEmpty(r.Way, r.ID),
			P1:     firstNonEmpty(r.P1, r.Point1),
			P2:     firstNonEmpty(r.P2, r.Point2),
			Length: r.Len,
		})
	}

	g, err := Build(points, edges, opts...)
	if err != nil {
		return nil, fmt.Errorf("building topology from %s: %w", path, err)
	}
	return g, nil
}
