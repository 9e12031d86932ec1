package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/routing"
	"github.com/azybler/chroute/pkg/search"
	"github.com/azybler/chroute/pkg/snap"
)

func newQueryCmd() *cobra.Command {
	var startLat, startLng, endLat, endLng float64

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a single one-off route query against a contracted graph binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(graphPath)
			if err != nil {
				return fmt.Errorf("open graph: %w", err)
			}
			defer f.Close()

			overlay, err := chgraph.ReadBinary(f)
			if err != nil {
				return fmt.Errorf("read graph: %w", err)
			}

			s, err := search.NewSearch(overlay)
			if err != nil {
				return fmt.Errorf("build search: %w", err)
			}
			snapper := snap.Build(overlay, 0)
			engine := routing.NewEngine(overlay, s, snapper)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			result, err := engine.Route(ctx,
				routing.LatLng{Lat: startLat, Lng: startLng},
				routing.LatLng{Lat: endLat, Lng: endLng})
			if err != nil {
				if errors.Is(err, routing.ErrNoRoute) {
					fmt.Println("no route found")
					return nil
				}
				return err
			}

			fmt.Printf("distance: %.1f meters\n", result.TotalDistanceMeters)
			fmt.Printf("points: %d\n", len(result.Segments[0].Geometry))
			return nil
		},
	}

	cmd.Flags().Float64Var(&startLat, "start-lat", 0, "start latitude")
	cmd.Flags().Float64Var(&startLng, "start-lng", 0, "start longitude")
	cmd.Flags().Float64Var(&endLat, "end-lat", 0, "end latitude")
	cmd.Flags().Float64Var(&endLng, "end-lng", 0, "end longitude")

	return cmd
}
