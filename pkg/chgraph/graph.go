// Package chgraph implements compact, mutable-during-contraction adjacency
// storage that supports efficient forward/reverse iteration plus in-place
// addition of shortcuts and logical removal (disabling) of nodes, frozen
// into an immutable, CSR-backed Overlay once contraction is done
// (pkg/contractor).
//
// MutableGraph merges what would otherwise be two separate representations
// (a CSR graph for queries, a mutable adjacency-list graph for contraction)
// behind one mutation contract, so AddEdge (construction time) and
// AddShortcut (contraction time) share the same parallel-edge-collapse
// logic: a weaker duplicate edge is replaced rather than added alongside.
package chgraph

import "math"

// NodeID identifies a node by its dense, zero-based allocation index.
type NodeID = uint32

// EdgeID identifies an edge (original or shortcut) in the arena.
type EdgeID = uint32

// NoNode is the sentinel NodeID meaning "not a shortcut" / "no such node".
const NoNode = NodeID(math.MaxUint32)

// NoEdge is the sentinel EdgeID meaning "no such edge".
const NoEdge = EdgeID(math.MaxUint32)

const maxWeight = int64(math.MaxUint32)

// Edge describes a single adjacency entry: a directed edge to a neighbour,
// its weight, its own id in the arena, and — for shortcuts — the node it
// was contracted through. Middle == NoNode marks an original edge.
type Edge struct {
	To     NodeID
	Weight uint32
	ID     EdgeID
	Middle NodeID
}

// IsShortcut reports whether this edge summarizes a two-hop path through a
// contracted node rather than an original road segment.
func (e Edge) IsShortcut() bool { return e.Middle != NoNode }

// MutableGraph is the contraction-time graph representation. Nodes and
// their geographic positions are fixed at construction; outgoing/incoming
// adjacency can be extended with AddEdge (construction) and AddShortcut
// (contraction), and nodes can be logically removed with Disable.
type MutableGraph struct {
	nodeLat []float64
	nodeLon []float64

	outAdj [][]Edge
	inAdj  [][]Edge

	disabled []bool

	nextEdgeID EdgeID
	geom       map[EdgeID]edgeGeometry
}

type edgeGeometry struct {
	lats, lons []float64
}

// New creates an empty graph.
func New() *MutableGraph {
	return &MutableGraph{geom: make(map[EdgeID]edgeGeometry)}
}

// NumNodes returns the number of nodes allocated so far.
func (g *MutableGraph) NumNodes() uint32 { return uint32(len(g.outAdj)) }

// AddNode appends a node at the given position and returns its dense id.
func (g *MutableGraph) AddNode(lat, lon float64) NodeID {
	id := NodeID(len(g.outAdj))
	g.nodeLat = append(g.nodeLat, lat)
	g.nodeLon = append(g.nodeLon, lon)
	g.outAdj = append(g.outAdj, nil)
	g.inAdj = append(g.inAdj, nil)
	g.disabled = append(g.disabled, false)
	return id
}

func (g *MutableGraph) valid(u NodeID) bool { return u < g.NumNodes() }

// AddEdge appends a directed original edge u→v of the given weight,
// updating both u's forward adjacency and v's reverse adjacency. If a
// parallel edge u→v already exists, the cheaper of the two survives (and
// its id is returned) rather than both being kept.
func (g *MutableGraph) AddEdge(u, v NodeID, weight int64) (EdgeID, error) {
	return g.upsert(u, v, weight, NoNode)
}

// AddShortcut inserts a shortcut u→w of the given weight representing a
// path u→v→w through contracted node v. Parallel-edge collapse applies
// exactly as in AddEdge.
func (g *MutableGraph) AddShortcut(u, w NodeID, weight uint32, contractedNode NodeID) (EdgeID, error) {
	return g.upsert(u, w, int64(weight), contractedNode)
}

func (g *MutableGraph) upsert(u, v NodeID, weight int64, middle NodeID) (EdgeID, error) {
	if !g.valid(u) || !g.valid(v) {
		return NoEdge, ErrInvalidNodeID
	}
	if weight < 0 || weight > maxWeight {
		return NoEdge, ErrNegativeWeight
	}
	w := uint32(weight)

	if idx, ok := g.findOut(u, v); ok {
		existing := g.outAdj[u][idx]
		if existing.Weight <= w {
			return existing.ID, nil
		}
		g.replace(u, v, existing.ID, w, middle)
		return existing.ID, nil
	}

	id := g.nextEdgeID
	g.nextEdgeID++
	e := Edge{To: v, Weight: w, ID: id, Middle: middle}
	g.outAdj[u] = append(g.outAdj[u], e)
	g.inAdj[v] = append(g.inAdj[v], Edge{To: u, Weight: w, ID: id, Middle: middle})
	return id, nil
}

func (g *MutableGraph) findOut(u, v NodeID) (int, bool) {
	for i, e := range g.outAdj[u] {
		if e.To == v {
			return i, true
		}
	}
	return 0, false
}

func (g *MutableGraph) findInIndex(v, u NodeID, id EdgeID) int {
	for i, e := range g.inAdj[v] {
		if e.To == u && e.ID == id {
			return i
		}
	}
	return -1
}

// replace overwrites the weight/middle of the edge u→v already carrying id,
// on both sides of the adjacency.
func (g *MutableGraph) replace(u, v NodeID, id EdgeID, weight uint32, middle NodeID) {
	for i := range g.outAdj[u] {
		if g.outAdj[u][i].To == v {
			g.outAdj[u][i].Weight = weight
			g.outAdj[u][i].Middle = middle
			break
		}
	}
	if i := g.findInIndex(v, u, id); i >= 0 {
		g.inAdj[v][i].Weight = weight
		g.inAdj[v][i].Middle = middle
	}
	delete(g.geom, id) // a replaced edge no longer carries the old geometry
}

// SetGeometry attaches intermediate shape points to an original edge id
// (used for rendering; the CH core never reads it). No-op for unknown ids.
func (g *MutableGraph) SetGeometry(id EdgeID, lats, lons []float64) {
	if len(lats) == 0 || id >= g.nextEdgeID {
		return
	}
	g.geom[id] = edgeGeometry{lats: lats, lons: lons}
}

// EdgesOut returns the outgoing adjacency of u in insertion order. The
// slice is a live view; callers must not retain it across mutation.
func (g *MutableGraph) EdgesOut(u NodeID) []Edge { return g.outAdj[u] }

// EdgesIn returns the incoming adjacency of u in insertion order.
func (g *MutableGraph) EdgesIn(u NodeID) []Edge { return g.inAdj[u] }

// Disabled reports whether u has been contracted.
func (g *MutableGraph) Disabled(u NodeID) bool { return g.disabled[u] }

// Disable marks u as contracted; subsequent iteration by other callers
// should skip edges incident to u.
func (g *MutableGraph) Disable(u NodeID) error {
	if !g.valid(u) {
		return ErrInvalidNodeID
	}
	g.disabled[u] = true
	return nil
}

// Position returns the geographic position of a node.
func (g *MutableGraph) Position(u NodeID) (lat, lon float64) {
	return g.nodeLat[u], g.nodeLon[u]
}

// NumEdges returns the number of distinct edge ids allocated (original plus
// shortcuts). A replaced edge keeps its id, so this equals the number of
// distinct edges in the graph.
func (g *MutableGraph) NumEdges() uint32 { return g.nextEdgeID }
