// Package search runs bidirectional, upward-only Dijkstra over an immutable
// chgraph.Overlay, with stall-on-demand pruning and shortcut unpacking.
// Decoupled from geographic snapping — pkg/routing layers that on top, so
// this package's contract is just node-id pair in, optional Result out.
package search

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azybler/chroute/pkg/chgraph"
)

// Recorder receives per-query observable counters: nodes settled and query
// duration. Optional; pkg/telemetry supplies an OTel-backed implementation.
type Recorder interface {
	NodesSettled(n int)
	QueryDuration(d time.Duration)
}

// Result is a found path: the fully unpacked (no-shortcut) node sequence,
// its total weight, and per-query metrics.
type Result struct {
	QueryID      uuid.UUID
	Nodes        []chgraph.NodeID
	Weight       uint32
	NodesSettled uint64
	Duration     time.Duration
}

// Search answers shortest-path queries against a fixed Overlay. Safe for
// concurrent use: each call to Query borrows its own pooled queryState, so
// concurrent queries never share scratch state.
type Search struct {
	overlay  *chgraph.Overlay
	pool     sync.Pool
	Recorder Recorder // optional
}

// NewSearch builds a Search over overlay. overlay must not be nil — use
// chgraph.MutableGraph.Freeze to produce one.
func NewSearch(overlay *chgraph.Overlay) (*Search, error) {
	if overlay == nil {
		return nil, ErrGraphNotContracted
	}
	s := &Search{overlay: overlay}
	s.pool.New = func() any { return newQueryState(overlay.NumNodes) }
	return s, nil
}

// Query runs bidirectional upward Dijkstra from source to target, seeded
// directly at overlay node ids (pkg/routing seeds from snapped edge
// endpoints before calling this). Returns ok == false, not an error, when
// no path exists — ctx cancellation and malformed input are the only error
// cases.
func (s *Search) Query(ctx context.Context, source, target chgraph.NodeID) (Result, bool, error) {
	start := time.Now()
	if source >= s.overlay.NumNodes || target >= s.overlay.NumNodes {
		return Result{}, false, chgraph.ErrInvalidNodeID
	}

	qs := s.pool.Get().(*queryState)
	defer func() {
		qs.reset()
		s.pool.Put(qs)
	}()

	qs.touchFwd(source, 0, noEdge)
	qs.fwdPQ.Push(source, 0)
	qs.touchBwd(target, 0, noEdge)
	qs.bwdPQ.Push(target, 0)

	mu, meetNode, settled, err := s.run(ctx, qs)
	if err != nil {
		return Result{}, false, err
	}

	if s.Recorder != nil {
		s.Recorder.NodesSettled(settled)
		s.Recorder.QueryDuration(time.Since(start))
	}

	if meetNode == noNode || mu == math.MaxUint32 {
		return Result{}, false, nil
	}

	nodes, err := unpackPath(s.overlay, qs, meetNode)
	if err != nil {
		return Result{}, false, err
	}
	return Result{
		QueryID:      uuid.New(),
		Nodes:        nodes,
		Weight:       mu,
		NodesSettled: uint64(settled),
		Duration:     time.Since(start),
	}, true, nil
}

// run executes the main bidirectional loop, with stall-on-demand: before
// relaxing a popped node's upward edges, check whether a lower-cost path
// reaches it via a higher-ranked neighbour across a "down" edge (found
// among this node's own entries in the *other* direction's CSR). If so the node is
// stalled — its own upward relaxation is skipped, since any path
// continuing through it cannot be optimal.
func (s *Search) run(ctx context.Context, qs *queryState) (uint32, uint32, int, error) {
	o := s.overlay
	mu := uint32(math.MaxUint32)
	meetNode := noNode
	settled := 0
	iterations := uint32(0)

	for {
		fwdMin := qs.fwdPQ.PeekDist()
		bwdMin := qs.bwdPQ.PeekDist()
		if fwdMin >= mu && bwdMin >= mu {
			break
		}

		iterations++
		if iterations&255 == 0 {
			if err := ctx.Err(); err != nil {
				return mu, meetNode, settled, err
			}
		}

		if fwdMin < mu {
			item := qs.fwdPQ.Pop()
			u, d := item.node, item.dist
			if d <= qs.distFwd[u] {
				settled++
				if qs.distBwd[u] < math.MaxUint32 {
					if cand := d + qs.distBwd[u]; cand < mu {
						mu, meetNode = cand, u
					}
				}
				if !s.stalledForward(qs, u, d) {
					start, end := o.EdgesFromFwd(u)
					for ei := start; ei < end; ei++ {
						v := o.FwdHead[ei]
						nd := d + o.FwdWeight[ei]
						if nd < qs.distFwd[v] {
							qs.touchFwd(v, nd, ei)
							qs.fwdPQ.Push(v, nd)
						}
					}
				}
			}
		}

		if qs.bwdPQ.PeekDist() < mu {
			item := qs.bwdPQ.Pop()
			u, d := item.node, item.dist
			if d <= qs.distBwd[u] {
				settled++
				if qs.distFwd[u] < math.MaxUint32 {
					if cand := qs.distFwd[u] + d; cand < mu {
						mu, meetNode = cand, u
					}
				}
				if !s.stalledBackward(qs, u, d) {
					start, end := o.EdgesFromBwd(u)
					for ei := start; ei < end; ei++ {
						v := o.BwdHead[ei]
						nd := d + o.BwdWeight[ei]
						if nd < qs.distBwd[v] {
							qs.touchBwd(v, nd, ei)
							qs.bwdPQ.Push(v, nd)
						}
					}
				}
			}
		}
	}

	return mu, meetNode, settled, nil
}

// stalledForward reports whether u (at tentative forward distance d) is
// reachable more cheaply via a higher-ranked predecessor — found by
// scanning u's entries in the Bwd table, which enumerate exactly the
// original edges (x, u) with rank[x] > rank[u].
func (s *Search) stalledForward(qs *queryState, u, d uint32) bool {
	o := s.overlay
	start, end := o.EdgesFromBwd(u)
	for ei := start; ei < end; ei++ {
		x := o.BwdHead[ei]
		w := o.BwdWeight[ei]
		if qs.distFwd[x] != math.MaxUint32 && qs.distFwd[x]+w < d {
			return true
		}
	}
	return false
}

// stalledBackward is stalledForward's mirror image for the backward
// search: u's entries in the Fwd table enumerate the original edges
// (u, x) with rank[x] > rank[u], which are exactly the "down" neighbours
// of u in the reversed graph the backward search traverses.
func (s *Search) stalledBackward(qs *queryState, u, d uint32) bool {
	o := s.overlay
	start, end := o.EdgesFromFwd(u)
	for ei := start; ei < end; ei++ {
		x := o.FwdHead[ei]
		w := o.FwdWeight[ei]
		if qs.distBwd[x] != math.MaxUint32 && qs.distBwd[x]+w < d {
			return true
		}
	}
	return false
}
