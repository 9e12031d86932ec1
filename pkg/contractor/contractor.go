package contractor

import (
	"container/heap"
	"log"
	"time"

	"github.com/azybler/chroute/pkg/chgraph"
)

// Recorder receives contraction counters: shortcuts inserted, witness
// searches executed, nodes reached per contracted node's witness searches,
// and total preprocessing duration. Without one, Contract still runs and
// simply records nothing; pkg/telemetry supplies an
// OTel-backed implementation. Kept as a narrow interface here rather than
// importing pkg/telemetry directly, so contractor has no dependency on the
// metrics SDK.
type Recorder interface {
	ShortcutsInserted(n int)
	WitnessSearchExecuted()
	NodesSettled(n int)
	PreprocessingDuration(d time.Duration)
}

// Contractor runs Contraction Hierarchies preprocessing with configured
// Params. The zero value uses DefaultParams.
type Contractor struct {
	Params   Params
	Recorder Recorder // optional

	hasParams bool
}

// NewContractor builds a Contractor with the given Params.
func NewContractor(p Params) *Contractor {
	return &Contractor{Params: p, hasParams: true}
}

func (c *Contractor) params() Params {
	if c.hasParams {
		return c.Params
	}
	return DefaultParams()
}

// Contract runs the main contraction loop: pop the minimum-priority node,
// lazily re-check it's still minimal, find the shortcuts its contraction
// requires via witness search, insert them, disable the node, and assign it
// the next rank. Mutates g in place and returns the frozen Overlay.
func (c *Contractor) Contract(g *chgraph.MutableGraph) (*chgraph.Overlay, error) {
	start := time.Now()
	n := g.NumNodes()
	if n == 0 {
		return nil, ErrEmptyGraph
	}
	p := c.params()

	contractedNeighbors := make([]int, n)
	level := make([]int, n)
	rank := make([]uint32, n)

	pq := make(priorityQueue, n)
	for i := uint32(0); i < n; i++ {
		pq[i] = &pqEntry{
			node:     i,
			priority: computePriority(g, i, contractedNeighbors[i], level[i], p),
			index:    int(i),
		}
	}
	heap.Init(&pq)

	ws := newWitnessState(n)

	log.Printf("contractor: starting contraction of %d nodes", n)

	var totalShortcuts int
	order := uint32(0)
	logInterval := uint32(50000)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node

		if g.Disabled(node) {
			continue
		}

		newPriority := computePriority(g, node, contractedNeighbors[node], level[node], p)
		if newPriority > entry.priority && pq.Len() > 0 && newPriority > pq[0].priority {
			entry.priority = newPriority
			heap.Push(&pq, entry)
			continue
		}

		shortcuts, searches, settled := c.findShortcuts(ws, g, node, p)
		if c.Recorder != nil {
			for i := 0; i < searches; i++ {
				c.Recorder.WitnessSearchExecuted()
			}
			c.Recorder.NodesSettled(settled)
		}

		if len(shortcuts) > p.MaxShortcutsPerNode {
			log.Printf("contractor: stopping contraction: node %d would create %d shortcuts (limit %d); %d nodes remain in core",
				node, len(shortcuts), p.MaxShortcutsPerNode, n-order)
			break
		}

		for _, sc := range shortcuts {
			if _, err := g.AddShortcut(sc.from, sc.to, sc.weight, node); err != nil {
				return nil, err
			}
		}
		if c.Recorder != nil {
			c.Recorder.ShortcutsInserted(len(shortcuts))
		}
		totalShortcuts += len(shortcuts)

		if err := g.Disable(node); err != nil {
			return nil, err
		}
		rank[node] = order
		order++

		touch := func(e chgraph.Edge) {
			if g.Disabled(e.To) {
				return
			}
			contractedNeighbors[e.To]++
			if level[node]+1 > level[e.To] {
				level[e.To] = level[node] + 1
			}
			if p.UpdateStrategy == UpdateNeighborLocal {
				heap.Push(&pq, &pqEntry{
					node:     e.To,
					priority: computePriority(g, e.To, contractedNeighbors[e.To], level[e.To], p),
				})
			}
		}
		for _, e := range g.EdgesOut(node) {
			touch(e)
		}
		for _, e := range g.EdgesIn(node) {
			touch(e)
		}

		remaining := n - order
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		case remaining < 100000:
			logInterval = 10000
		default:
			logInterval = 50000
		}
		if order%logInterval == 0 {
			log.Printf("contractor: contracted %d/%d nodes, %d shortcuts so far", order, n, totalShortcuts)
		}
	}

	coreSize := uint32(0)
	for i := uint32(0); i < n; i++ {
		if !g.Disabled(i) {
			if err := g.Disable(i); err != nil {
				return nil, err
			}
			rank[i] = order
			order++
			coreSize++
		}
	}

	dur := time.Since(start)
	if c.Recorder != nil {
		c.Recorder.PreprocessingDuration(dur)
	}
	log.Printf("contractor: complete in %s: %d shortcuts created, %d core nodes", dur, totalShortcuts, coreSize)

	return g.Freeze(rank), nil
}

// shortcut is a shortcut edge pending insertion.
type shortcut struct {
	from, to chgraph.NodeID
	weight   uint32
}

// findShortcuts determines which shortcuts node's contraction requires,
// using batch witness search: one Dijkstra per incoming neighbour instead
// of one per (incoming, outgoing) pair. Returns the shortcuts plus the
// number of witness searches executed and the total number of nodes those
// searches reached (touched, not only settled), for Recorder.
func (c *Contractor) findShortcuts(ws *witnessState, g *chgraph.MutableGraph, node chgraph.NodeID, p Params) ([]shortcut, int, int) {
	var incoming, outgoing []chgraph.Edge
	for _, e := range g.EdgesIn(node) {
		if !g.Disabled(e.To) {
			incoming = append(incoming, e)
		}
	}
	for _, e := range g.EdgesOut(node) {
		if !g.Disabled(e.To) {
			outgoing = append(outgoing, e)
		}
	}
	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil, 0, 0
	}

	var shortcuts []shortcut
	searches := 0
	settledTotal := 0

	for _, in := range incoming {
		var maxOut uint32
		for _, out := range outgoing {
			if out.To != in.To && out.Weight > maxOut {
				maxOut = out.Weight
			}
		}
		if maxOut == 0 {
			continue
		}

		maxWeight := in.Weight + maxOut
		batchWitnessSearch(ws, g, p, in.To, node, maxWeight)
		searches++
		settledTotal += len(ws.touched)

		for _, out := range outgoing {
			if out.To == in.To {
				continue
			}
			scWeight := in.Weight + out.Weight
			if ws.dist[out.To] > scWeight {
				shortcuts = append(shortcuts, shortcut{from: in.To, to: out.To, weight: scWeight})
			}
		}
	}

	return shortcuts, searches, settledTotal
}

// computePriority returns a node's contraction priority (lower contracts
// first): edge difference plus weighted deleted-neighbours and level terms,
// with configurable coefficients. The edge difference counts every active
// (incoming, outgoing) pair as a shortcut, activeIn*activeOut, minus the
// active edges removed; no witness search is run here, so pairs that a
// witness path would cover are still counted.
func computePriority(g *chgraph.MutableGraph, node chgraph.NodeID, contractedNeighbors, level int, p Params) int {
	activeIn := 0
	for _, e := range g.EdgesIn(node) {
		if !g.Disabled(e.To) {
			activeIn++
		}
	}
	activeOut := 0
	for _, e := range g.EdgesOut(node) {
		if !g.Disabled(e.To) {
			activeOut++
		}
	}

	edgeDifference := activeIn*activeOut - (activeIn + activeOut)
	return p.EdgeDiffCoeff*edgeDifference + p.DeletedNeighborsCoeff*contractedNeighbors + level
}

// Priority queue implementation for contraction ordering.

type pqEntry struct {
	node     chgraph.NodeID
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int { return len(pq) }

// Less breaks ties by node id, so two runs over the same graph contract
// nodes in the same order regardless of map/slice iteration or insertion
// order upstream.
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
