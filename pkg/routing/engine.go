// Package routing composes snap.Index and search.Search into the full
// point-to-point routing pipeline: snap two lat/lng points onto the road
// network, run CHSearch between every combination of their edge endpoints,
// and reconstruct geometry for the cheapest combination. Snapping and the
// CH search itself live in their own independent, reusable packages; this
// one is the thin layer that wires them together.
package routing

import (
	"context"
	"errors"
	"math"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/search"
	"github.com/azybler/chroute/pkg/snap"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("routing: no route found")

// LatLng is a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment is one leg of a route result, currently always the whole route —
// kept as a slice to leave room for turn-by-turn splitting later.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	Segments            []Segment
}

// Router answers point-to-point route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// Engine implements Router over a contracted Overlay.
type Engine struct {
	overlay *chgraph.Overlay
	search  *search.Search
	snapper *snap.Index
}

// NewEngine builds a routing Engine. snapper should be built with
// snap.Build(overlay, ...) over the same overlay passed here.
func NewEngine(overlay *chgraph.Overlay, s *search.Search, snapper *snap.Index) *Engine {
	return &Engine{overlay: overlay, search: s, snapper: snapper}
}

// candidateLeg is one (startNode, endNode) combination drawn from the two
// snap results' edge endpoints, with the fixed partial-edge distance that
// must be added on either side of the CH search itself.
type candidateLeg struct {
	startNode, endNode chgraph.NodeID
	startOffset        float64
	endOffset          float64
}

// Route snaps start and end onto the road network, then searches every
// combination of their edge endpoints — the shortest path between two
// points strictly inside two edges equals the minimum, over all four
// endpoint pairings, of (distance to endpoint) + (CH shortest path between
// endpoints) + (distance from endpoint) — and keeps the cheapest.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	startWeight := float64(e.overlay.OrigWeight[startSnap.EdgeIdx])
	endWeight := float64(e.overlay.OrigWeight[endSnap.EdgeIdx])

	legs := []candidateLeg{
		{startSnap.NodeU, endSnap.NodeU, startSnap.Ratio * startWeight, endSnap.Ratio * endWeight},
		{startSnap.NodeU, endSnap.NodeV, startSnap.Ratio * startWeight, (1 - endSnap.Ratio) * endWeight},
		{startSnap.NodeV, endSnap.NodeU, (1 - startSnap.Ratio) * startWeight, endSnap.Ratio * endWeight},
		{startSnap.NodeV, endSnap.NodeV, (1 - startSnap.Ratio) * startWeight, (1 - endSnap.Ratio) * endWeight},
	}

	bestTotal := math.Inf(1)
	var bestNodes []chgraph.NodeID

	for _, leg := range legs {
		if leg.startNode == leg.endNode {
			total := leg.startOffset + leg.endOffset
			if total < bestTotal {
				bestTotal, bestNodes = total, []chgraph.NodeID{leg.startNode}
			}
			continue
		}
		res, ok, err := e.search.Query(ctx, leg.startNode, leg.endNode)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		total := leg.startOffset + float64(res.Weight) + leg.endOffset
		if total < bestTotal {
			bestTotal, bestNodes = total, res.Nodes
		}
	}

	if bestNodes == nil {
		return nil, ErrNoRoute
	}

	geometry := e.buildGeometry(bestNodes)
	geometry = append([]LatLng{start}, geometry...)
	geometry = append(geometry, end)

	// Overlay weights are millimetres (see osmload.RawEdge.Weight).
	meters := bestTotal / 1000
	return &RouteResult{
		TotalDistanceMeters: meters,
		Segments: []Segment{
			{DistanceMeters: meters, Geometry: geometry},
		},
	}, nil
}

// buildGeometry expands a node sequence into lat/lng points, including
// intermediate shape points recorded for each original edge.
func (e *Engine) buildGeometry(nodes []chgraph.NodeID) []LatLng {
	o := e.overlay
	if len(nodes) == 0 {
		return nil
	}

	geom := make([]LatLng, 0, len(nodes)*2)
	geom = append(geom, LatLng{Lat: o.NodeLat[nodes[0]], Lng: o.NodeLon[nodes[0]]})

	for i := 0; i < len(nodes)-1; i++ {
		u, v := nodes[i], nodes[i+1]
		if edgeIdx := o.FindOrigEdge(u, v); edgeIdx != chgraph.NoEdge {
			start, end := o.GeoFirstOut[edgeIdx], o.GeoFirstOut[edgeIdx+1]
			for k := start; k < end; k++ {
				geom = append(geom, LatLng{Lat: o.GeoShapeLat[k], Lng: o.GeoShapeLon[k]})
			}
		}
		geom = append(geom, LatLng{Lat: o.NodeLat[v], Lng: o.NodeLon[v]})
	}
	return geom
}
