package contractor

import (
	"math"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/osmload"
)

// buildTestGraph builds a small 6-node grid fixture (dense ids as assigned
// by chgraph.Build):
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 5 ---600--- 4
//
// All edges bidirectional.
func buildTestGraph(t *testing.T) *chgraph.MutableGraph {
	t.Helper()
	result := &osmload.ParseResult{
		Edges: []osmload.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
			{FromNodeID: 20, ToNodeID: 10, Weight: 100},
			{FromNodeID: 20, ToNodeID: 30, Weight: 200},
			{FromNodeID: 30, ToNodeID: 20, Weight: 200},
			{FromNodeID: 10, ToNodeID: 40, Weight: 300},
			{FromNodeID: 40, ToNodeID: 10, Weight: 300},
			{FromNodeID: 30, ToNodeID: 60, Weight: 400},
			{FromNodeID: 60, ToNodeID: 30, Weight: 400},
			{FromNodeID: 40, ToNodeID: 50, Weight: 500},
			{FromNodeID: 50, ToNodeID: 40, Weight: 500},
			{FromNodeID: 50, ToNodeID: 60, Weight: 600},
			{FromNodeID: 60, ToNodeID: 50, Weight: 600},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.0, 30: 1.0, 40: 1.1, 50: 1.1, 60: 1.1},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.0, 50: 103.1, 60: 103.2},
	}
	g, err := chgraph.Build(result)
	require.NoError(t, err)
	return g
}

// plainDijkstra runs a reference unidirectional Dijkstra directly over the
// mutable graph, before contraction, as a correctness baseline.
func plainDijkstra(g *chgraph.MutableGraph, source, target chgraph.NodeID) uint32 {
	n := g.NumNodes()
	dist := make([]uint32, n)
	for i := range dist {
		dist[i] = math.MaxUint32
	}
	dist[source] = 0

	type item struct {
		node chgraph.NodeID
		dist uint32
	}
	pq := []item{{source, 0}}

	for len(pq) > 0 {
		minIdx := 0
		for i := 1; i < len(pq); i++ {
			if pq[i].dist < pq[minIdx].dist {
				minIdx = i
			}
		}
		cur := pq[minIdx]
		pq[minIdx] = pq[len(pq)-1]
		pq = pq[:len(pq)-1]

		if cur.dist > dist[cur.node] {
			continue
		}
		if cur.node == target {
			return cur.dist
		}
		for _, e := range g.EdgesOut(cur.node) {
			newDist := cur.dist + e.Weight
			if newDist < dist[e.To] {
				dist[e.To] = newDist
				pq = append(pq, item{e.To, newDist})
			}
		}
	}
	return dist[target]
}

// chDijkstra runs bidirectional upward Dijkstra over a frozen overlay, as a
// minimal correctness oracle independent of pkg/search's production
// implementation (which additionally does stall-on-demand and path
// unpacking — this only checks the meeting-cost invariant holds).
func chDijkstra(o *chgraph.Overlay, source, target chgraph.NodeID) uint32 {
	n := o.NumNodes
	distFwd := make([]uint32, n)
	distBwd := make([]uint32, n)
	for i := range distFwd {
		distFwd[i] = math.MaxUint32
		distBwd[i] = math.MaxUint32
	}
	distFwd[source] = 0
	distBwd[target] = 0

	type item struct {
		node uint32
		dist uint32
	}
	fwdPQ := []item{{source, 0}}
	bwdPQ := []item{{target, 0}}
	mu := uint32(math.MaxUint32)

	popMin := func(pq *[]item) item {
		minIdx := 0
		for i := 1; i < len(*pq); i++ {
			if (*pq)[i].dist < (*pq)[minIdx].dist {
				minIdx = i
			}
		}
		cur := (*pq)[minIdx]
		(*pq)[minIdx] = (*pq)[len(*pq)-1]
		*pq = (*pq)[:len(*pq)-1]
		return cur
	}
	peekMin := func(pq []item) uint32 {
		if len(pq) == 0 {
			return math.MaxUint32
		}
		m := pq[0].dist
		for _, it := range pq[1:] {
			if it.dist < m {
				m = it.dist
			}
		}
		return m
	}

	for len(fwdPQ) > 0 || len(bwdPQ) > 0 {
		if len(fwdPQ) > 0 && peekMin(fwdPQ) < mu {
			cur := popMin(&fwdPQ)
			if cur.dist <= distFwd[cur.node] {
				if distBwd[cur.node] < math.MaxUint32 {
					if cand := cur.dist + distBwd[cur.node]; cand < mu {
						mu = cand
					}
				}
				start, end := o.EdgesFromFwd(cur.node)
				for e := start; e < end; e++ {
					v := o.FwdHead[e]
					if nd := cur.dist + o.FwdWeight[e]; nd < distFwd[v] {
						distFwd[v] = nd
						fwdPQ = append(fwdPQ, item{v, nd})
					}
				}
			}
		}
		if len(bwdPQ) > 0 && peekMin(bwdPQ) < mu {
			cur := popMin(&bwdPQ)
			if cur.dist <= distBwd[cur.node] {
				if distFwd[cur.node] < math.MaxUint32 {
					if cand := distFwd[cur.node] + cur.dist; cand < mu {
						mu = cand
					}
				}
				start, end := o.EdgesFromBwd(cur.node)
				for e := start; e < end; e++ {
					v := o.BwdHead[e]
					if nd := cur.dist + o.BwdWeight[e]; nd < distBwd[v] {
						distBwd[v] = nd
						bwdPQ = append(bwdPQ, item{v, nd})
					}
				}
			}
		}
		if peekMin(fwdPQ) >= mu && peekMin(bwdPQ) >= mu {
			break
		}
	}
	return mu
}

func TestContractSmallGraphRanksArePermutation(t *testing.T) {
	g := buildTestGraph(t)
	require.Equal(t, uint32(6), g.NumNodes())

	o, err := NewContractor(DefaultParams()).Contract(g)
	require.NoError(t, err)
	require.Equal(t, uint32(6), o.NumNodes)

	seen := make(map[uint32]bool)
	for _, r := range o.Rank {
		require.Less(t, r, o.NumNodes)
		seen[r] = true
	}
	require.Len(t, seen, int(o.NumNodes))
}

func TestContractCorrectnessAllPairs(t *testing.T) {
	g := buildTestGraph(t)
	// plainDijkstra must run before contraction mutates g's adjacency.
	n := g.NumNodes()
	want := make(map[[2]uint32]uint32)
	for s := uint32(0); s < n; s++ {
		for d := uint32(0); d < n; d++ {
			if s != d {
				want[[2]uint32{s, d}] = plainDijkstra(g, s, d)
			}
		}
	}

	o, err := NewContractor(DefaultParams()).Contract(g)
	require.NoError(t, err)

	for s := uint32(0); s < n; s++ {
		for d := uint32(0); d < n; d++ {
			if s == d {
				continue
			}
			require.Equal(t, want[[2]uint32{s, d}], chDijkstra(o, s, d), "s=%d d=%d", s, d)
		}
	}
}

func TestContractEmptyGraph(t *testing.T) {
	g := chgraph.New()
	_, err := NewContractor(DefaultParams()).Contract(g)
	require.ErrorIs(t, err, ErrEmptyGraph)
}

func TestContractLinearGraph(t *testing.T) {
	result := &osmload.ParseResult{
		Edges: []osmload.RawEdge{
			{FromNodeID: 1, ToNodeID: 2, Weight: 100},
			{FromNodeID: 2, ToNodeID: 3, Weight: 200},
			{FromNodeID: 3, ToNodeID: 4, Weight: 300},
			{FromNodeID: 4, ToNodeID: 5, Weight: 400},
		},
		NodeLat: map[osm.NodeID]float64{1: 1.0, 2: 1.1, 3: 1.2, 4: 1.3, 5: 1.4},
		NodeLon: map[osm.NodeID]float64{1: 103.0, 2: 103.1, 3: 103.2, 4: 103.3, 5: 103.4},
	}
	g, err := chgraph.Build(result)
	require.NoError(t, err)

	want := plainDijkstra(g, 0, 4)
	o, err := NewContractor(DefaultParams()).Contract(g)
	require.NoError(t, err)
	require.Equal(t, want, chDijkstra(o, 0, 4))
}

// TestContractNeighborLocalUpdateStillCorrect exercises the additional
// update strategy against the same correctness oracle.
func TestContractNeighborLocalUpdateStillCorrect(t *testing.T) {
	g := buildTestGraph(t)
	n := g.NumNodes()
	want := make(map[[2]uint32]uint32)
	for s := uint32(0); s < n; s++ {
		for d := uint32(0); d < n; d++ {
			if s != d {
				want[[2]uint32{s, d}] = plainDijkstra(g, s, d)
			}
		}
	}

	params := DefaultParams()
	params.UpdateStrategy = UpdateNeighborLocal
	o, err := NewContractor(params).Contract(g)
	require.NoError(t, err)

	for s := uint32(0); s < n; s++ {
		for d := uint32(0); d < n; d++ {
			if s == d {
				continue
			}
			require.Equal(t, want[[2]uint32{s, d}], chDijkstra(o, s, d), "s=%d d=%d", s, d)
		}
	}
}

// TestMaxShortcutsPerNodeLeavesCore verifies the supplemented core fallback:
// an aggressively low limit must still leave every node with a distinct,
// in-range rank, even though contraction stops early.
func TestMaxShortcutsPerNodeLeavesCore(t *testing.T) {
	g := buildTestGraph(t)
	params := DefaultParams()
	params.MaxShortcutsPerNode = 0

	o, err := NewContractor(params).Contract(g)
	require.NoError(t, err)

	seen := make(map[uint32]bool)
	for _, r := range o.Rank {
		require.Less(t, r, o.NumNodes)
		seen[r] = true
	}
	require.Len(t, seen, int(o.NumNodes))
}
