package search

import (
	"fmt"

	"github.com/azybler/chroute/pkg/chgraph"
)

// maxUnpackDepth bounds the nesting depth of a single shortcut's expansion.
// Each nested shortcut's middle node was contracted before its parent's, so
// depth is bounded by the number of ranks below a shortcut's endpoints;
// 10,000 comfortably covers the nesting observed on continent-scale road
// hierarchies (which top out in the low hundreds), while still catching a
// genuinely corrupt or cyclic overlay instead of looping forever.
const maxUnpackDepth = 10000

// errUnpackDepthExceeded signals a shortcut nested deeper than
// maxUnpackDepth — either a pathological hierarchy or a corrupt overlay.
// Surfaced as an error rather than silently truncating the path, since a
// truncated route is wrong, not merely incomplete.
var errUnpackDepthExceeded = fmt.Errorf("search: shortcut nesting exceeded depth %d", maxUnpackDepth)

// overlayEdge names one edge in the meeting-point path: which up-graph
// table it came from, and its index.
type overlayEdge struct {
	idx uint32
	fwd bool // true: Fwd table; false: Bwd table
}

// unpackEdge expands one overlay edge (possibly a shortcut) into the
// sequence of original dense node ids it traverses, appended to into.
// Iterative with an explicit stack to avoid recursion depth tracking a
// shortcut's hierarchy level, since shortcuts can nest as deep as the
// contraction order allows. Returns errUnpackDepthExceeded instead of
// truncating the path if any branch exceeds maxUnpackDepth.
func unpackEdge(o *chgraph.Overlay, e overlayEdge, into *[]uint32) error {
	type stackItem struct {
		idx   uint32
		fwd   bool
		depth int
	}
	stack := []stackItem{{e.idx, e.fwd, 0}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.depth > maxUnpackDepth {
			return errUnpackDepthExceeded
		}

		var middle int32
		var head, from uint32
		if item.fwd {
			middle = o.FwdMiddle[item.idx]
			head = o.FwdHead[item.idx]
			from = o.SourceOfFwd(item.idx)
		} else {
			middle = o.BwdMiddle[item.idx]
			head = o.BwdHead[item.idx]
			from = o.SourceOfBwd(item.idx)
		}

		if middle < 0 {
			// A Bwd entry from→head stores the original edge head→from.
			first, next := from, head
			if !item.fwd {
				first, next = head, from
			}
			if len(*into) == 0 {
				*into = append(*into, first)
			}
			*into = append(*into, next)
			continue
		}

		mid := uint32(middle)
		if item.fwd {
			// Shortcut from→mid→head. mid was contracted before both endpoints
			// (rank[mid] < rank[from], rank[head]), so from→mid is stored in the
			// Bwd table as mid→from and mid→head in the Fwd table.
			fromMid := o.FindBwdEdge(mid, from)
			midHead := o.FindFwdEdge(mid, head)
			if fromMid != chgraph.NoEdge && midHead != chgraph.NoEdge {
				stack = append(stack, stackItem{midHead, true, item.depth + 1})
				stack = append(stack, stackItem{fromMid, false, item.depth + 1})
			}
		} else {
			// Backward entry from→head represents original head→mid→from,
			// with rank[mid] below both endpoints: head→mid is stored in the
			// Bwd table as mid→head and mid→from in the Fwd table.
			headMid := o.FindBwdEdge(mid, head)
			midFrom := o.FindFwdEdge(mid, from)
			if headMid != chgraph.NoEdge && midFrom != chgraph.NoEdge {
				stack = append(stack, stackItem{midFrom, true, item.depth + 1})
				stack = append(stack, stackItem{headMid, false, item.depth + 1})
			}
		}
	}
	return nil
}

// unpackPath fully reconstructs the source→target node sequence (original,
// non-shortcut node ids) from queryState's predecessor edges.
func unpackPath(o *chgraph.Overlay, qs *queryState, meetNode uint32) ([]chgraph.NodeID, error) {
	var fwdChain []overlayEdge
	node := meetNode
	for {
		e := qs.predFwdEdge[node]
		if e == noEdge {
			break
		}
		fwdChain = append(fwdChain, overlayEdge{idx: e, fwd: true})
		node = o.SourceOfFwd(e)
	}
	for i, j := 0, len(fwdChain)-1; i < j; i, j = i+1, j-1 {
		fwdChain[i], fwdChain[j] = fwdChain[j], fwdChain[i]
	}

	var bwdChain []overlayEdge
	node = meetNode
	for {
		e := qs.predBwdEdge[node]
		if e == noEdge {
			break
		}
		bwdChain = append(bwdChain, overlayEdge{idx: e, fwd: false})
		node = o.SourceOfBwd(e)
	}

	if len(fwdChain) == 0 && len(bwdChain) == 0 {
		return []chgraph.NodeID{meetNode}, nil
	}

	var nodes []uint32
	for _, oe := range fwdChain {
		if err := unpackEdge(o, oe, &nodes); err != nil {
			return nil, err
		}
	}
	if len(nodes) == 0 {
		nodes = append(nodes, meetNode)
	}
	for _, oe := range bwdChain {
		if err := unpackEdge(o, oe, &nodes); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}
