// Package pathfind computes fewest-hop routes over the airport topology.
package pathfind

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Graph is the topology view the finder needs.
type Graph interface {
	Neighbors(id string) []string
	HasPoint(id string) bool
	EdgeEndpoints(id string) (string, string, bool)
}

// Finder runs breadth-first searches and memoizes the results. The topology
// never changes after load, so cached routes stay valid for the process
// lifetime.
type Finder struct {
	graph Graph
	cache *lru.Cache[string, []string]
}

// New creates a Finder. A cacheSize of zero or less disables memoization.
func New(g Graph, cacheSize int) (*Finder, error) {
	f := &Finder{graph: g}
	if cacheSize > 0 {
		c, err := lru.New[string, []string](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating route cache: %w", err)
		}
		f.cache = c
	}
	return f, nil
}

// ShortestPath returns the fewest-hop anchor sequence from one anchor to
// another, or nil when either anchor is unknown or no path exists.
//
// A way anchor stands for both of its endpoints. Every start/end endpoint
// pair is searched, p1 before p2 with the start endpoint varying slowest,
// and a later pair only wins with a strictly shorter path. Way anchors used
// in the request are prepended or appended to the result.
func (f *Finder) ShortestPath(from, to string) []string {
	key := from + "\x00" + to
	if f.cache != nil {
		if route, ok := f.cache.Get(key); ok {
			return slices.Clone(route)
		}
	}

	route := f.search(from, to)
	if f.cache != nil {
		f.cache.Add(key, route)
	}
	return slices.Clone(route)
}

// CacheLen returns the number of memoized routes.
func (f *Finder) CacheLen() int {
	if f.cache == nil {
		return 0
	}
	return f.cache.Len()
}

func (f *Finder) search(from, to string) []string {
	starts, fromEdge, ok := f.resolve(from)
	if !ok {
		return nil
	}
	ends, toEdge, ok := f.resolve(to)
	if !ok {
		return nil
	}

	var best []string
	for _, s := range starts {
		for _, e := range ends {
			p := f.bfs(s, e)
			if len(p) == 0 {
				continue
			}
			if best == nil || len(p) < len(best) {
				best = p
			}
		}
	}
	if best == nil {
		return nil
	}

	if fromEdge {
		best = append([]string{from}, best...)
	}
	if toEdge {
		best = append(best, to)
	}
	return best
}

// resolve maps an anchor to the vertices a search may start or end at.
func (f *Finder) resolve(anchor string) (vertices []string, isEdge bool, ok bool) {
	if f.graph.HasPoint(anchor) {
		return []string{anchor}, false, true
	}
	if p1, p2, found := f.graph.EdgeEndpoints(anchor); found {
		return []string{p1, p2}, true, true
	}
	return nil, false, false
}

// bfs returns the fewest-hop vertex path between two points. Neighbors are
// visited in adjacency order, so the first path discovered wins ties.
func (f *Finder) bfs(start, end string) []string {
	if start == end {
		return []string{start}
	}

	prev := map[string]string{start: ""}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == end {
			break
		}
		for _, n := range f.graph.Neighbors(current) {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = current
			queue = append(queue, n)
		}
	}

	if _, reached := prev[end]; !reached {
		return nil
	}

	var path []string
	for cur := end; cur != ""; cur = prev[cur] {
		path = append(path, cur)
		if cur == start {
			break
		}
	}
	slices.Reverse(path)
	return path
}
