package contractor

import "errors"

// ErrEmptyGraph is returned by Contract when given a graph with no nodes.
var ErrEmptyGraph = errors.New("contractor: graph has no nodes")
