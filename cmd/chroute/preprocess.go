package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/chroute/pkg/chgraph"
	"github.com/azybler/chroute/pkg/contractor"
	"github.com/azybler/chroute/pkg/osmload"
	"github.com/azybler/chroute/pkg/telemetry"
)

func newPreprocessCmd() *cobra.Command {
	var (
		input        string
		bbox         string
		singapore    bool
		kl           bool
		metricsAddr  string
		metricsEvery time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Parse an OSM extract and write a contracted graph binary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			var opts osmload.ParseOptions
			switch {
			case kl:
				opts.BBox = osmload.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
				log.Println("Using Selangor + KL bounding box filter")
			case singapore:
				opts.BBox = osmload.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
				log.Println("Using Singapore bounding box filter")
			case bbox != "":
				var minLat, minLng, maxLat, maxLng float64
				if _, err := fmt.Sscanf(bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
					return fmt.Errorf("invalid --bbox (expected minLat,minLng,maxLat,maxLng): %w", err)
				}
				opts.BBox = osmload.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
			}

			start := time.Now()

			log.Println("Opening OSM file...")
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			log.Println("Parsing OSM data...")
			parseResult, err := osmload.Parse(context.Background(), f, opts)
			if err != nil {
				return fmt.Errorf("parse OSM data: %w", err)
			}
			log.Printf("Parsed %d edges, %d nodes", len(parseResult.Edges), len(parseResult.NodeLat))

			log.Println("Building graph...")
			g, err := chgraph.Build(parseResult)
			if err != nil {
				return fmt.Errorf("build graph: %w", err)
			}
			log.Printf("Graph: %d nodes", g.NumNodes())

			log.Println("Extracting largest connected component...")
			componentNodes := chgraph.LargestComponent(g)
			log.Printf("Largest component: %d nodes (%.1f%%)",
				len(componentNodes), float64(len(componentNodes))/float64(g.NumNodes())*100)
			g = chgraph.FilterToComponent(g, componentNodes)

			var rec contractor.Recorder
			if metricsAddr != "" {
				m, err := telemetry.NewStdoutMeter(metricsEvery)
				if err != nil {
					return fmt.Errorf("start metrics: %w", err)
				}
				defer m.Shutdown(context.Background())
				rec = m
			}

			log.Println("Running Contraction Hierarchies...")
			c := contractor.NewContractor(contractor.DefaultParams())
			c.Recorder = rec
			overlay, err := c.Contract(g)
			if err != nil {
				return fmt.Errorf("contract graph: %w", err)
			}
			log.Printf("CH complete: %d fwd edges, %d bwd edges", len(overlay.FwdHead), len(overlay.BwdHead))

			log.Printf("Writing binary to %s...", graphPath)
			out, err := os.Create(graphPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer out.Close()
			if err := chgraph.WriteBinary(out, overlay); err != nil {
				return fmt.Errorf("write binary: %w", err)
			}

			info, _ := out.Stat()
			size := float64(0)
			if info != nil {
				size = float64(info.Size()) / (1024 * 1024)
			}
			log.Printf("Done in %s. Output: %s (%.1f MB)", time.Since(start).Round(time.Second), graphPath, size)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to a .osm.pbf file")
	cmd.Flags().StringVar(&bbox, "bbox", "", "bounding box filter: minLat,minLng,maxLat,maxLng")
	cmd.Flags().BoolVar(&singapore, "singapore", false, "shortcut for --bbox 1.15,103.6,1.48,104.1")
	cmd.Flags().BoolVar(&kl, "kl", false, "shortcut for --bbox 2.75,101.2,3.5,102.0")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "non-empty to emit preprocessing metrics to stdout")
	cmd.Flags().DurationVar(&metricsEvery, "metrics-interval", 10*time.Second, "metrics export interval")

	return cmd
}
