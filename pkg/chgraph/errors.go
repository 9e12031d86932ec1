package chgraph

import "errors"

// GraphNotContracted and PathNotFound are surfaced by pkg/search, not this
// package, since only a query against an Overlay can observe them.
var (
	// ErrInvalidNodeID is returned when an operation references a node id
	// that was never allocated by AddNode.
	ErrInvalidNodeID = errors.New("chgraph: invalid node id")

	// ErrNegativeWeight is returned when AddEdge or AddShortcut is given a
	// weight that is negative or does not fit the uint32 cost domain.
	ErrNegativeWeight = errors.New("chgraph: edge weight must be non-negative and fit in 32 bits")
)
