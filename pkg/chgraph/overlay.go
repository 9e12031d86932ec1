package chgraph

// Overlay is an immutable, level-aware, read-only view of the graph after
// contraction, laid out as CSR (Compressed Sparse Row) arrays for cache
// locality in the query hot loop (pkg/search). It also retains the
// original (non-shortcut) edges, needed by road snapping and geometry
// rendering, and is the unit persisted by WriteBinary/ReadBinary.
type Overlay struct {
	NumNodes uint32
	NodeLat  []float64
	NodeLon  []float64
	Rank     []uint32 // Rank[u] is u's contraction order (0 = contracted first)

	// Forward upward graph: edge u→v kept here iff Rank[u] < Rank[v].
	FwdFirstOut []uint32
	FwdHead     []uint32
	FwdWeight   []uint32
	FwdMiddle   []int32 // -1 for an original edge, else the contracted node id

	// Backward upward graph: for original edge v→u with Rank[u] < Rank[v],
	// stored here as u→v so a backward search from a target can walk
	// "up" by outgoing adjacency just like the forward search does.
	BwdFirstOut []uint32
	BwdHead     []uint32
	BwdWeight   []uint32
	BwdMiddle   []int32

	// Original (non-shortcut) edges, kept in full (not level-filtered) for
	// snapping and geometry.
	OrigFirstOut []uint32
	OrigHead     []uint32
	OrigWeight   []uint32

	// Geometry aligned 1:1 with OrigHead (index i holds edge i's shape
	// points, exclusive of its two endpoints).
	GeoFirstOut []uint32
	GeoShapeLat []float64
	GeoShapeLon []float64
}

// csrEdge is a scratch edge used while assembling a CSR array.
type csrEdge struct {
	from, to uint32
	weight   uint32
	middle   int32
}

func buildCSR(n uint32, edges []csrEdge) (firstOut, head, weight []uint32, middle []int32) {
	numEdges := uint32(len(edges))
	firstOut = make([]uint32, n+1)
	head = make([]uint32, numEdges)
	weight = make([]uint32, numEdges)
	middle = make([]int32, numEdges)

	for _, e := range edges {
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= n; i++ {
		firstOut[i] += firstOut[i-1]
	}

	pos := make([]uint32, n)
	copy(pos, firstOut[:n])
	for _, e := range edges {
		idx := pos[e.from]
		head[idx] = e.to
		weight[idx] = e.weight
		middle[idx] = e.middle
		pos[e.from]++
	}
	return
}

// Freeze builds the immutable Overlay from the current adjacency and the
// level assignment produced by contraction (pkg/contractor). rank must be
// a bijection onto {0, ..., NumNodes()-1}.
func (g *MutableGraph) Freeze(rank []uint32) *Overlay {
	n := g.NumNodes()

	var fwdEdges, bwdEdges, origEdges []csrEdge

	for u := uint32(0); u < n; u++ {
		for _, e := range g.outAdj[u] {
			if !e.IsShortcut() {
				origEdges = append(origEdges, csrEdge{from: u, to: e.To, weight: e.Weight, middle: -1})
			}
			if rank[u] < rank[e.To] {
				fwdEdges = append(fwdEdges, csrEdge{from: u, to: e.To, weight: e.Weight, middle: middleOf(e)})
			}
		}
		// Backward upward: edge v→u (stored in inAdj[u]) with Rank[u] < Rank[v]
		// becomes an up-edge u→v in the backward table.
		for _, e := range g.inAdj[u] {
			if rank[u] < rank[e.To] {
				bwdEdges = append(bwdEdges, csrEdge{from: u, to: e.To, weight: e.Weight, middle: middleOf(e)})
			}
		}
	}

	// Original-edge geometry, aligned to origEdges' final CSR order.
	// origEdges was appended in increasing-u order by the loop above, which
	// is exactly the order buildCSR assigns slots in (grouped by source,
	// insertion order preserved within a source), so no re-sort is needed.
	geoFirstOut := make([]uint32, len(origEdges)+1)
	var geoLat, geoLon []float64
	edgeIDBySlot := make([]EdgeID, 0, len(origEdges))
	for u := uint32(0); u < n; u++ {
		for _, e := range g.outAdj[u] {
			if e.IsShortcut() {
				continue
			}
			edgeIDBySlot = append(edgeIDBySlot, e.ID)
		}
	}
	for i, id := range edgeIDBySlot {
		geoFirstOut[i] = uint32(len(geoLat))
		if geom, ok := g.geom[id]; ok {
			geoLat = append(geoLat, geom.lats...)
			geoLon = append(geoLon, geom.lons...)
		}
	}
	geoFirstOut[len(origEdges)] = uint32(len(geoLat))

	origFirstOut, origHead, origWeight, _ := buildCSR(n, origEdges)
	fwdFirstOut, fwdHead, fwdWeight, fwdMiddle := buildCSR(n, fwdEdges)
	bwdFirstOut, bwdHead, bwdWeight, bwdMiddle := buildCSR(n, bwdEdges)

	return &Overlay{
		NumNodes:     n,
		NodeLat:      g.nodeLat,
		NodeLon:      g.nodeLon,
		Rank:         rank,
		FwdFirstOut:  fwdFirstOut,
		FwdHead:      fwdHead,
		FwdWeight:    fwdWeight,
		FwdMiddle:    fwdMiddle,
		BwdFirstOut:  bwdFirstOut,
		BwdHead:      bwdHead,
		BwdWeight:    bwdWeight,
		BwdMiddle:    bwdMiddle,
		OrigFirstOut: origFirstOut,
		OrigHead:     origHead,
		OrigWeight:   origWeight,
		GeoFirstOut:  geoFirstOut,
		GeoShapeLat:  geoLat,
		GeoShapeLon:  geoLon,
	}
}

func middleOf(e Edge) int32 {
	if !e.IsShortcut() {
		return -1
	}
	return int32(e.Middle)
}

// EdgesFromFwd returns the range of edge indices for node u's forward
// up-edges, e.g. for ei := start; ei < end; ei++ { v := o.FwdHead[ei] ... }.
func (o *Overlay) EdgesFromFwd(u uint32) (start, end uint32) {
	return o.FwdFirstOut[u], o.FwdFirstOut[u+1]
}

// EdgesFromBwd returns the range of edge indices for node u's backward
// up-edges (original direction v→u becomes stored entry u→v).
func (o *Overlay) EdgesFromBwd(u uint32) (start, end uint32) {
	return o.BwdFirstOut[u], o.BwdFirstOut[u+1]
}

// EdgesFromOrig returns the range of edge indices for node u's original
// outgoing edges (used for snapping and geometry, never by CHSearch).
func (o *Overlay) EdgesFromOrig(u uint32) (start, end uint32) {
	return o.OrigFirstOut[u], o.OrigFirstOut[u+1]
}

// findInCSR returns the edge index of the up-edge u→v in the given table,
// or NoEdge. Used by path unpacking to locate a shortcut's children.
func findInCSR(firstOut, head []uint32, u, v uint32) EdgeID {
	start, end := firstOut[u], firstOut[u+1]
	for e := start; e < end; e++ {
		if head[e] == v {
			return e
		}
	}
	return NoEdge
}

// FindFwdEdge returns the edge index of the up-edge u→v in the forward
// table, or NoEdge.
func (o *Overlay) FindFwdEdge(u, v uint32) EdgeID { return findInCSR(o.FwdFirstOut, o.FwdHead, u, v) }

// FindBwdEdge returns the edge index of the up-edge u→v in the backward
// table, or NoEdge.
func (o *Overlay) FindBwdEdge(u, v uint32) EdgeID { return findInCSR(o.BwdFirstOut, o.BwdHead, u, v) }

// FindOrigEdge returns the edge index of the original edge u→v, or NoEdge.
// Used by geometry reconstruction, never by CHSearch.
func (o *Overlay) FindOrigEdge(u, v uint32) EdgeID {
	return findInCSR(o.OrigFirstOut, o.OrigHead, u, v)
}

// sourceOf returns the source node of an edge index via binary search over
// a CSR FirstOut array.
func sourceOf(firstOut []uint32, edgeIdx uint32) uint32 {
	n := uint32(len(firstOut) - 1)
	lo, hi := uint32(0), n
	for lo < hi {
		mid := (lo + hi) / 2
		if firstOut[mid+1] <= edgeIdx {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// SourceOfFwd returns the source node of a forward-table edge index.
func (o *Overlay) SourceOfFwd(edgeIdx uint32) uint32 { return sourceOf(o.FwdFirstOut, edgeIdx) }

// SourceOfBwd returns the source node of a backward-table edge index.
func (o *Overlay) SourceOfBwd(edgeIdx uint32) uint32 { return sourceOf(o.BwdFirstOut, edgeIdx) }
