package chgraph

// UnionFind implements a disjoint-set data structure with path halving and
// union by rank, used to find the largest weakly connected component of a
// freshly ingested graph before contraction (road extracts routinely
// contain small disconnected islands — ferry-only nodes, data errors —
// which would otherwise waste contraction effort and break queries between
// nodes that were never reachable from each other in the first place).
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient — max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{parent: parent, rank: make([]byte, n), size: size}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node ids of g's largest weakly connected
// component (the directed graph treated as undirected for this purpose).
func LargestComponent(g *MutableGraph) []NodeID {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for u := uint32(0); u < n; u++ {
		for _, e := range g.EdgesOut(u) {
			uf.Union(u, e.To)
		}
	}

	bestRoot, bestSize := uint32(0), uint32(0)
	for i := uint32(0); i < n; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	nodes := make([]NodeID, 0, bestSize)
	for i := uint32(0); i < n; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent builds a new graph containing only the given nodes and
// the original edges fully within that set, remapped to dense ids in the
// same relative order as nodes. Shortcuts never exist at this stage
// (filtering runs before contraction), so only original edges are copied.
func FilterToComponent(g *MutableGraph, nodes []NodeID) *MutableGraph {
	out := New()
	if len(nodes) == 0 {
		return out
	}

	oldToNew := make(map[NodeID]NodeID, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = uint32(newIdx)
		lat, lon := g.Position(oldIdx)
		out.AddNode(lat, lon)
	}

	for _, oldU := range nodes {
		newU := oldToNew[oldU]
		for _, e := range g.EdgesOut(oldU) {
			newV, ok := oldToNew[e.To]
			if !ok {
				continue
			}
			id, _ := out.AddEdge(newU, newV, int64(e.Weight))
			if geom, ok := g.geom[e.ID]; ok {
				out.SetGeometry(id, geom.lats, geom.lons)
			}
		}
	}

	return out
}
