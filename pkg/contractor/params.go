// Package contractor selects a node contraction order by an online
// priority heuristic, runs witness searches to decide which shortcuts are
// genuinely needed, inserts them into the graph in place, and publishes
// the level-annotated overlay.
//
// Contractor generalizes a free-function-plus-constants contraction loop
// into a type configured by Params, so callers can tune or experiment with
// contraction behavior without touching package internals.
package contractor

// UpdateStrategy selects when a popped node's priority is refreshed before
// deciding whether to contract it.
type UpdateStrategy int

const (
	// UpdateLazy recomputes only the popped node's own priority and
	// reinserts it if it's no longer the minimum — the cheapest strategy
	// that still guarantees a correct contraction order.
	UpdateLazy UpdateStrategy = iota
	// UpdateNeighborLocal additionally refreshes the priority of every
	// still-uncontracted neighbour of a just-contracted node, trading extra
	// heap churn for a contraction order closer to a fully eager recompute.
	UpdateNeighborLocal
)

// Params holds the contractor's tunables. The zero value is not valid; use
// DefaultParams for sensible defaults.
type Params struct {
	// MaxSettledNodes bounds nodes settled per witness search.
	MaxSettledNodes int
	// MaxHops bounds hop count per witness search.
	MaxHops int
	// EdgeDiffCoeff weights the edge-difference term in priority.
	EdgeDiffCoeff int
	// DeletedNeighborsCoeff weights the deleted-neighbours term in priority.
	DeletedNeighborsCoeff int
	// UpdateStrategy controls when priorities are refreshed.
	UpdateStrategy UpdateStrategy
	// MaxShortcutsPerNode aborts contraction once a single node's
	// contraction would emit more than this many shortcuts, leaving
	// remaining nodes as an uncontracted core — a load-bearing scalability
	// technique on road-scale graphs, where a handful of nodes can otherwise
	// generate shortcuts quadratic in their degree.
	MaxShortcutsPerNode int
}

// DefaultParams returns empirically reasonable defaults: 500 settled nodes
// and 5 hops per witness search, edge-difference weight 1, deleted-
// neighbours weight 2, lazy updates, and a 1000-shortcut core threshold.
func DefaultParams() Params {
	return Params{
		MaxSettledNodes:       500,
		MaxHops:               5,
		EdgeDiffCoeff:         1,
		DeletedNeighborsCoeff: 2,
		UpdateStrategy:        UpdateLazy,
		MaxShortcutsPerNode:   1000,
	}
}
