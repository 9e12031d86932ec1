package chgraph

import (
	"github.com/paulmach/osm"

	"github.com/azybler/chroute/pkg/osmload"
)

// Build constructs a MutableGraph from parsed OSM edges, deduplicating
// node ids and collapsing parallel edges via AddEdge as it goes. Adjacency
// ends up grouped by source in insertion order, which Freeze later relies
// on for deterministic CSR layout.
func Build(result *osmload.ParseResult) (*MutableGraph, error) {
	g := New()
	if len(result.Edges) == 0 {
		return g, nil
	}

	nodeIdx := make(map[osm.NodeID]NodeID, len(result.NodeLat))
	addNode := func(id osm.NodeID) NodeID {
		if idx, ok := nodeIdx[id]; ok {
			return idx
		}
		idx := g.AddNode(result.NodeLat[id], result.NodeLon[id])
		nodeIdx[id] = idx
		return idx
	}

	for _, e := range result.Edges {
		u := addNode(e.FromNodeID)
		v := addNode(e.ToNodeID)

		id, err := g.AddEdge(u, v, int64(e.Weight))
		if err != nil {
			// Ingestion guarantees non-negative weights that fit in 32 bits
			// (osmload rounds every edge up to at least 1mm), so a failure
			// here means a genuinely malformed extract.
			return nil, err
		}
		if len(e.ShapeLats) > 0 {
			g.SetGeometry(id, e.ShapeLats, e.ShapeLons)
		}
	}

	return g, nil
}
