package contractor

import "github.com/azybler/chroute/pkg/chgraph"

const maxUint32 = ^uint32(0)

// witnessHeapArity is the branching factor of witnessHeap. A witness search
// settles at most MaxSettledNodes (a few hundred) nodes, so the heap stays
// shallow; a 4-ary heap trades a few extra comparisons per sift-down (pop)
// for fewer levels than a binary heap, which makes each sift-up (push)
// cheaper — and pushes outnumber pops here, since one pop can be followed
// by up to a whole node's active degree in pushes.
const witnessHeapArity = 4

// witnessHeapItem is an entry in the witness search min-heap.
type witnessHeapItem struct {
	node uint32
	dist uint32
	hops int
}

// lessWitness orders witness heap entries by distance, then by node id so
// that two searches over equally-weighted edges pop ties in the same order.
func lessWitness(a, b witnessHeapItem) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.node < b.node
}

// witnessHeap is a concrete-typed 4-ary min-heap for witness search — not
// container/heap plus a boxed interface, since this runs once per incoming
// neighbour of every contracted node and the allocation/indirection would
// dominate preprocessing time at road-network scale.
type witnessHeap struct {
	items []witnessHeapItem
}

func (h *witnessHeap) Len() int { return len(h.items) }

func (h *witnessHeap) Push(item witnessHeapItem) {
	h.items = append(h.items, item)
	h.siftUp(len(h.items) - 1)
}

func (h *witnessHeap) Pop() witnessHeapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

func (h *witnessHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / witnessHeapArity
		if !lessWitness(item, h.items[parent]) {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *witnessHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		firstChild := witnessHeapArity*i + 1
		if firstChild >= n {
			break
		}
		lastChild := firstChild + witnessHeapArity
		if lastChild > n {
			lastChild = n
		}
		smallest := firstChild
		for c := firstChild + 1; c < lastChild; c++ {
			if lessWitness(h.items[c], h.items[smallest]) {
				smallest = c
			}
		}
		if !lessWitness(h.items[smallest], item) {
			break
		}
		h.items[i] = h.items[smallest]
		i = smallest
	}
	h.items[i] = item
}

func (h *witnessHeap) Reset() { h.items = h.items[:0] }

// witnessState holds reusable scratch state for batch witness searches, one
// instance per Contractor run. The touched-node list lets reset cost be
// proportional to the last search's footprint rather than |V|, the same
// scratch-reuse trick the query engine applies to its own hot loop.
type witnessState struct {
	dist    []uint32
	touched []uint32
	heap    witnessHeap
}

func newWitnessState(numNodes uint32) *witnessState {
	dist := make([]uint32, numNodes)
	for i := range dist {
		dist[i] = maxUint32
	}
	return &witnessState{dist: dist, heap: witnessHeap{items: make([]witnessHeapItem, 0, 256)}}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = maxUint32
	}
	ws.touched = ws.touched[:0]
	ws.heap.Reset()
}

// batchWitnessSearch runs one bounded Dijkstra from source, excluding the
// node under contraction, and leaves ws.dist populated with the best known
// distance to every node the search reached within the weight/hop/settled
// bounds. One search per incoming neighbour covers every (incoming,
// outgoing) pair at once, instead of running a separate search per pair.
func batchWitnessSearch(ws *witnessState, g *chgraph.MutableGraph, p Params, source, excluded chgraph.NodeID, maxWeight uint32) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Push(witnessHeapItem{node: source, dist: 0, hops: 0})

	settled := 0

	for ws.heap.Len() > 0 {
		cur := ws.heap.Pop()

		if cur.dist > ws.dist[cur.node] {
			continue // stale entry
		}

		settled++
		if settled >= p.MaxSettledNodes {
			break
		}
		if cur.dist > maxWeight {
			continue
		}
		if cur.hops >= p.MaxHops {
			continue
		}

		for _, e := range g.EdgesOut(cur.node) {
			if e.To == excluded || g.Disabled(e.To) {
				continue
			}

			newDist := cur.dist + e.Weight
			if newDist > maxWeight {
				continue
			}
			if newDist < ws.dist[e.To] {
				if ws.dist[e.To] == maxUint32 {
					ws.touched = append(ws.touched, e.To)
				}
				ws.dist[e.To] = newDist
				ws.heap.Push(witnessHeapItem{node: e.To, dist: newDist, hops: cur.hops + 1})
			}
		}
	}
}
