package search

import "errors"

// ErrGraphNotContracted is returned by NewSearch when given a nil overlay.
// An absent route is deliberately NOT an error: Query reports it as an
// absent result (ok == false) instead.
var ErrGraphNotContracted = errors.New("search: graph has not been contracted into an overlay")
