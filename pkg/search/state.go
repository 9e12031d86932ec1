package search

import "math"

const noNode = ^uint32(0)
const noEdge = ^uint32(0)

// queryState holds per-query scratch state for bidirectional CH Dijkstra:
// distance arrays, predecessor EDGE indices (sufficient to both walk the
// path back to a seed and unpack the traversed edge directly, without a
// second node-level predecessor table), and the two priority queues.
// Reused across queries via sync.Pool and reset by touched-node list only,
// never a full O(|V|) clear.
type queryState struct {
	distFwd []uint32
	distBwd []uint32

	// predFwdEdge[v] is the Fwd-table edge index that produced the best
	// known distFwd[v]; noEdge marks a forward seed (no predecessor).
	predFwdEdge []uint32
	// predBwdEdge[v] is the Bwd-table edge index that produced the best
	// known distBwd[v]; noEdge marks a backward seed.
	predBwdEdge []uint32

	touched []uint32

	fwdPQ minHeap
	bwdPQ minHeap
}

func newQueryState(n uint32) *queryState {
	distFwd := make([]uint32, n)
	distBwd := make([]uint32, n)
	predFwdEdge := make([]uint32, n)
	predBwdEdge := make([]uint32, n)
	for i := range distFwd {
		distFwd[i] = math.MaxUint32
		distBwd[i] = math.MaxUint32
		predFwdEdge[i] = noEdge
		predBwdEdge[i] = noEdge
	}
	return &queryState{
		distFwd:     distFwd,
		distBwd:     distBwd,
		predFwdEdge: predFwdEdge,
		predBwdEdge: predBwdEdge,
		touched:     make([]uint32, 0, 1024),
		fwdPQ:       minHeap{items: make([]pqItem, 0, 256)},
		bwdPQ:       minHeap{items: make([]pqItem, 0, 256)},
	}
}

// reset clears only the touched entries, keeping reuse cost proportional to
// the last query's footprint rather than the whole overlay's node count.
func (qs *queryState) reset() {
	for _, node := range qs.touched {
		qs.distFwd[node] = math.MaxUint32
		qs.distBwd[node] = math.MaxUint32
		qs.predFwdEdge[node] = noEdge
		qs.predBwdEdge[node] = noEdge
	}
	qs.touched = qs.touched[:0]
	qs.fwdPQ.Reset()
	qs.bwdPQ.Reset()
}

func (qs *queryState) touchFwd(node, dist, edge uint32) {
	if qs.distFwd[node] == math.MaxUint32 && qs.distBwd[node] == math.MaxUint32 {
		qs.touched = append(qs.touched, node)
	}
	qs.distFwd[node] = dist
	qs.predFwdEdge[node] = edge
}

func (qs *queryState) touchBwd(node, dist, edge uint32) {
	if qs.distFwd[node] == math.MaxUint32 && qs.distBwd[node] == math.MaxUint32 {
		qs.touched = append(qs.touched, node)
	}
	qs.distBwd[node] = dist
	qs.predBwdEdge[node] = edge
}
