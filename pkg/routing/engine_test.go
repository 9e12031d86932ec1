package routing

import (
	"context"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/require"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/contractor"
	"github.com/azybler/chroute/pkg/osmload"
	"github.com/azybler/chroute/pkg/search"
	"github.com/azybler/chroute/pkg/snap"
)

//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 5 ---600--- 4
//
// All edges bidirectional. Weights in millimeters.
func buildTestEngine(t *testing.T) (*Engine, *chgraph.Overlay) {
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
		NodeLat: map[osm.NodeID]float64{10: 1.300, 20: 1.300, 30: 1.300, 40: 1.301, 50: 1.301, 60: 1.301},
		NodeLon: map[osm.NodeID]float64{10: 103.800, 20: 103.801, 30: 103.802, 40: 103.800, 50: 103.801, 60: 103.802},
	}
	g, err := chgraph.Build(result)
	require.NoError(t, err)

	o, err := contractor.NewContractor(contractor.DefaultParams()).Contract(g)
	require.NoError(t, err)

	s, err := search.NewSearch(o)
	require.NoError(t, err)

	idx := snap.Build(o, 0)
	return NewEngine(o, s, idx), o
}

func TestRouteBetweenExactNodes(t *testing.T) {
	e, o := buildTestEngine(t)

	start := LatLng{Lat: o.NodeLat[0], Lng: o.NodeLon[0]}
	end := LatLng{Lat: o.NodeLat[5], Lng: o.NodeLon[5]}

	res, err := e.Route(context.Background(), start, end)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Greater(t, res.TotalDistanceMeters, 0.0)
	require.Len(t, res.Segments, 1)
	require.GreaterOrEqual(t, len(res.Segments[0].Geometry), 2)
}

func TestRouteMidEdgeSnapsOntoNetwork(t *testing.T) {
	e, o := buildTestEngine(t)

	// A point roughly between nodes 0 and 1.
	midLat := (o.NodeLat[0] + o.NodeLat[1]) / 2
	midLon := (o.NodeLon[0] + o.NodeLon[1]) / 2
	start := LatLng{Lat: midLat, Lng: midLon}
	end := LatLng{Lat: o.NodeLat[5], Lng: o.NodeLon[5]}

	res, err := e.Route(context.Background(), start, end)
	require.NoError(t, err)
	require.Greater(t, res.TotalDistanceMeters, 0.0)
}

func TestRouteSamePointReturnsZeroDistance(t *testing.T) {
	e, o := buildTestEngine(t)
	p := LatLng{Lat: o.NodeLat[2], Lng: o.NodeLon[2]}

	res, err := e.Route(context.Background(), p, p)
	require.NoError(t, err)
	require.InDelta(t, 0.0, res.TotalDistanceMeters, 1e-6)
}

func TestRouteTooFarFromNetworkFails(t *testing.T) {
	e, _ := buildTestEngine(t)
	far := LatLng{Lat: 50, Lng: 50}
	near := LatLng{Lat: 1.300, Lng: 103.800}

	_, err := e.Route(context.Background(), far, near)
	require.ErrorIs(t, err, snap.ErrPointTooFar)
}
