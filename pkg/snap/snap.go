// Package snap implements nearest-road snapping: mapping an arbitrary
// lat/lon query point onto the closest original (non-shortcut) edge of a
// chgraph.Overlay, as the first step of every pkg/routing query — the CH
// search itself only ever sees dense node ids.
//
// Built on github.com/tidwall/rtree for the spatial index, giving bounded-
// radius nearest-neighbour queries with proper node pruning instead of a
// fixed-size grid-cell scan.
package snap

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/geo"
)

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("snap: point too far from road")

// DefaultMaxSnapDistMeters is the default cutoff for how far a query point
// may be from a road and still snap onto it.
const DefaultMaxSnapDistMeters = 500.0

// Result is a point snapped onto a road segment.
type Result struct {
	EdgeIdx uint32 // index into the overlay's original-edge CSR tables
	NodeU   chgraph.NodeID
	NodeV   chgraph.NodeID
	Ratio   float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist    float64 // meters from the query point to the snapped point
}

type edgeRef struct {
	edgeIdx uint32
	u, v    chgraph.NodeID
}

// Index is an R-tree spatial index over an Overlay's original edges,
// supporting nearest-road snapping.
type Index struct {
	tree             rtree.RTree
	overlay          *chgraph.Overlay
	maxSnapDistMeter float64
}

// Build indexes every original edge of o. maxSnapDist <= 0 uses
// DefaultMaxSnapDistMeters.
func Build(o *chgraph.Overlay, maxSnapDist float64) *Index {
	if maxSnapDist <= 0 {
		maxSnapDist = DefaultMaxSnapDistMeters
	}
	idx := &Index{overlay: o, maxSnapDistMeter: maxSnapDist}

	for u := uint32(0); u < o.NumNodes; u++ {
		start, end := o.EdgesFromOrig(u)
		for e := start; e < end; e++ {
			v := o.OrigHead[e]
			minLat, minLon, maxLat, maxLon := geo.BoundingBox(
				o.NodeLat[u], o.NodeLon[u], o.NodeLat[v], o.NodeLon[v])
			idx.tree.Insert(
				[2]float64{minLat, minLon},
				[2]float64{maxLat, maxLon},
				edgeRef{edgeIdx: e, u: u, v: v},
			)
		}
	}
	return idx
}

// expandDegrees over-fetches the R-tree query box by this many degrees
// (~1.1km at the equator per 0.01°) beyond the configured max snap
// distance, so segments whose bounding box lies just outside the exact
// point but within snapping range are still considered.
const expandDegrees = 0.01

// Snap finds the nearest original edge to (lat, lon), returning
// ErrPointTooFar if every candidate exceeds the configured max distance.
func (idx *Index) Snap(lat, lon float64) (Result, error) {
	maxDeg := idx.maxSnapDistMeter/111_000.0 + expandDegrees

	bestDist := math.Inf(1)
	var best Result
	found := false

	idx.tree.Search(
		[2]float64{lat - maxDeg, lon - maxDeg},
		[2]float64{lat + maxDeg, lon + maxDeg},
		func(min, max [2]float64, data any) bool {
			ref := data.(edgeRef)
			dist, ratio := geo.PointToSegmentDist(
				lat, lon,
				idx.overlay.NodeLat[ref.u], idx.overlay.NodeLon[ref.u],
				idx.overlay.NodeLat[ref.v], idx.overlay.NodeLon[ref.v],
			)
			if dist < bestDist {
				bestDist = dist
				best = Result{EdgeIdx: ref.edgeIdx, NodeU: ref.u, NodeV: ref.v, Ratio: ratio, Dist: dist}
				found = true
			}
			return true
		},
	)

	if !found || bestDist > idx.maxSnapDistMeter {
		return Result{}, ErrPointTooFar
	}
	return best, nil
}
