package chgraph

import "testing"

// buildTriangle builds u-v-w-u with the given weights and a rank order
// (ranks[i] is node i's level, lower contracts first).
func buildTriangle(uv, vw, uw uint32) (*MutableGraph, []uint32) {
	g := New()
	u := g.AddNode(0, 0)
	v := g.AddNode(1, 0)
	w := g.AddNode(2, 0)
	g.AddEdge(u, v, int64(uv))
	g.AddEdge(v, w, int64(vw))
	g.AddEdge(u, w, int64(uw))
	// v contracts first (lowest rank), then u, then w.
	return g, []uint32{1, 0, 2}
}

// TestFreezeTwoNode covers boundary scenario S1: a two-node graph with a
// single edge freezes to a trivial overlay with no shortcuts.
func TestFreezeTwoNode(t *testing.T) {
	g := New()
	a := g.AddNode(0, 0)
	b := g.AddNode(1, 1)
	g.AddEdge(a, b, 42)

	o := g.Freeze([]uint32{0, 1})
	if o.NumNodes != 2 {
		t.Fatalf("want 2 nodes, got %d", o.NumNodes)
	}
	start, end := o.EdgesFromFwd(a)
	if end-start != 1 || o.FwdHead[start] != b || o.FwdWeight[start] != 42 {
		t.Fatalf("unexpected forward up-edge for a: start=%d end=%d", start, end)
	}
	if o.FwdMiddle[start] != -1 {
		t.Fatalf("original edge must have middle == -1")
	}
}

// TestFreezeRedundantShortcut covers boundary scenario S2: contracting v in
// a triangle where the direct u-w edge is already cheaper than u-v-w means
// no shortcut is needed (the contractor would not call AddShortcut here;
// this test just verifies Freeze does not fabricate one on its own).
func TestFreezeRedundantShortcut(t *testing.T) {
	g, rank := buildTriangle(1, 1, 1) // u-w direct (1) beats u-v-w (2)
	o := g.Freeze(rank)

	u := NodeID(0)
	start, end := o.EdgesFromFwd(u)
	for e := start; e < end; e++ {
		if o.FwdMiddle[e] != -1 {
			t.Fatalf("no shortcut should exist when none was added")
		}
	}
}

// TestFreezeNeededShortcut covers boundary scenario S3: once the
// contractor inserts a shortcut for u-v-w, Freeze must surface it with the
// correct middle node in the forward up-graph (since rank[u] < rank[w]).
func TestFreezeNeededShortcut(t *testing.T) {
	g, rank := buildTriangle(10, 10, 25) // u-v-w (20) beats direct u-w (25)
	u, v, w := NodeID(0), NodeID(1), NodeID(2)

	if _, err := g.AddShortcut(u, w, 20, v); err != nil {
		t.Fatalf("AddShortcut: %v", err)
	}

	o := g.Freeze(rank)
	id := o.FindFwdEdge(u, w)
	if id == NoEdge {
		t.Fatalf("expected forward up-edge u->w")
	}
	if o.FwdMiddle[id] != int32(v) {
		t.Fatalf("want middle=%d, got %d", v, o.FwdMiddle[id])
	}
	if o.FwdWeight[id] != 20 {
		t.Fatalf("want shortcut weight 20, got %d", o.FwdWeight[id])
	}
}

func TestSourceOfRoundTrips(t *testing.T) {
	g := New()
	n := make([]NodeID, 5)
	for i := range n {
		n[i] = g.AddNode(float64(i), 0)
	}
	for i := 0; i < 4; i++ {
		g.AddEdge(n[i], n[i+1], 1)
	}
	rank := []uint32{0, 1, 2, 3, 4}
	o := g.Freeze(rank)

	for u := uint32(0); u < 4; u++ {
		start, end := o.EdgesFromFwd(u)
		for e := start; e < end; e++ {
			if got := o.SourceOfFwd(e); got != u {
				t.Fatalf("SourceOfFwd(%d) = %d, want %d", e, got, u)
			}
		}
	}
}

func TestOrigEdgesIncludeAllDirectionsRegardlessOfRank(t *testing.T) {
	g := New()
	a := g.AddNode(0, 0)
	b := g.AddNode(1, 0)
	g.AddEdge(a, b, 5)

	// Rank b before a: the forward up-graph from a is empty, but the
	// original-edge table (used for snapping/geometry) must still list it.
	o := g.Freeze([]uint32{1, 0})

	start, end := o.EdgesFromOrig(a)
	if end-start != 1 || o.OrigHead[start] != b {
		t.Fatalf("expected original edge a->b regardless of rank order")
	}
	fStart, fEnd := o.EdgesFromFwd(a)
	if fEnd != fStart {
		t.Fatalf("forward up-graph from higher-ranked a should be empty")
	}
}
