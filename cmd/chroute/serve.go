package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/httpapi"
	"github.com/azybler/chroute/pkg/routing"
	"github.com/azybler/chroute/pkg/search"
	"github.com/azybler/chroute/pkg/snap"
	"github.com/azybler/chroute/pkg/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		port         int
		corsOrigin   string
		metricsAddr  string
		metricsEvery time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a contracted graph binary and serve routes over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			log.Printf("Loading graph from %s...", graphPath)
			f, err := os.Open(graphPath)
			if err != nil {
				return fmt.Errorf("open graph: %w", err)
			}
			overlay, err := chgraph.ReadBinary(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("read graph: %w", err)
			}
			log.Printf("Loaded: %d nodes, %d fwd edges, %d bwd edges",
				overlay.NumNodes, len(overlay.FwdHead), len(overlay.BwdHead))

			log.Println("Building spatial index...")
			snapper := snap.Build(overlay, 0)

			s, err := search.NewSearch(overlay)
			if err != nil {
				return fmt.Errorf("build search: %w", err)
			}

			if metricsAddr != "" {
				m, err := telemetry.NewStdoutMeter(metricsEvery)
				if err != nil {
					return fmt.Errorf("start metrics: %w", err)
				}
				defer m.Shutdown(context.Background())
				s.Recorder = m
			}

			engine := routing.NewEngine(overlay, s, snapper)

			// Reclaim memory from init-time temporaries before serving —
			// without this, the heap retains peak RSS from index
			// construction until the next GC cycle.
			runtime.GC()
			debug.FreeOSMemory()

			log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

			addr := fmt.Sprintf(":%d", port)
			cfg := httpapi.DefaultConfig(addr)
			cfg.CORSOrigin = corsOrigin

			stats := httpapi.StatsResponse{
				NumNodes:    overlay.NumNodes,
				NumFwdEdges: len(overlay.FwdHead),
				NumBwdEdges: len(overlay.BwdHead),
			}

			handlers := httpapi.NewHandlers(engine, stats)
			srv := httpapi.NewServer(cfg, handlers)

			return httpapi.ListenAndServe(srv)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port")
	cmd.Flags().StringVar(&corsOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "non-empty to emit query metrics to stdout")
	cmd.Flags().DurationVar(&metricsEvery, "metrics-interval", 10*time.Second, "metrics export interval")

	return cmd
}
