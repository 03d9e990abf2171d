package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/archkit/cadcore/pkg/config"
	"github.com/archkit/cadcore/pkg/export"
	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/kernel"
	"github.com/archkit/cadcore/pkg/regen"
	"github.com/archkit/cadcore/pkg/sketch"
)

const version = "1.0.0"

// CLI flags
var (
	configPath = flag.String("config", "", "Path to YAML configuration file (required)")
	graphPath  = flag.String("graph", "", "Path to a persisted feature-graph YAML (default: built-in demo part)")
	outputDir  = flag.String("output", ".", "Output directory for generated files")
	format     = flag.String("format", "json", "Export format: json, svg, or all")
	seedFlag   = flag.Uint64("seed", 0, "Override the seed from config (0 = use config seed)")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
	versionF   = flag.Bool("version", false, "Print version and exit")
	help       = flag.Bool("help", false, "Show help message")
)

func init() {
	kernel.Register("analytic", kernel.NewAnalyticBackend())
}

func main() {
	flag.Parse()

	if *versionF {
		fmt.Printf("cadcore version %s\n", version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		printUsage()
		os.Exit(1)
	}

	validFormats := map[string]bool{"json": true, "svg": true, "all": true}
	if !validFormats[*format] {
		fmt.Fprintf(os.Stderr, "Error: invalid format %q, must be one of: json, svg, all\n", *format)
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, loads or builds the part, regenerates it, and
// exports the requested format(s). With no -graph file it regenerates a
// fixed demonstration part on the kernel backend the config names.
func run() error {
	ctx := context.Background()

	if *verbose {
		fmt.Printf("Loading configuration from %s\n", *configPath)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *seedFlag != 0 {
		if *verbose {
			fmt.Printf("Overriding seed from %d to %d\n", cfg.Seed, *seedFlag)
		}
		cfg.Seed = *seedFlag
	}

	if *verbose {
		fmt.Printf("Using seed: %d\n", cfg.Seed)
		fmt.Printf("Backend: %s\n", cfg.Backend)
		fmt.Printf("Tolerances: linear=%g angular=%g\n", cfg.Tolerances.Linear, cfg.Tolerances.Angular)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	backend, ok := kernel.Get(cfg.Backend)
	if !ok {
		return fmt.Errorf("unknown kernel backend %q", cfg.Backend)
	}

	var graph *feature.Graph
	var sk *sketch.Sketch
	if *graphPath != "" {
		if *verbose {
			fmt.Printf("Loading feature graph from %s\n", *graphPath)
		}
		data, err := os.ReadFile(*graphPath)
		if err != nil {
			return fmt.Errorf("failed to read graph file: %w", err)
		}
		graph, err = feature.FromYAML(data)
		if err != nil {
			return fmt.Errorf("failed to load graph: %w", err)
		}
		sk = firstSketch(graph)
	} else {
		graph, sk = buildDemoGraph()
	}
	orch := regen.NewOrchestrator(backend)

	start := time.Now()
	if *verbose {
		fmt.Println("Regenerating...")
	}

	report, err := orch.Regenerate(ctx, graph)
	if err != nil {
		return fmt.Errorf("regeneration failed: %w", err)
	}
	elapsed := time.Since(start)

	if *verbose {
		fmt.Printf("Regeneration completed in %v\n", elapsed)
		printStats(report)
	}

	baseName := fmt.Sprintf("cadcore_%d", cfg.Seed)

	if *format == "json" || *format == "all" {
		if err := exportManifest(orch, report, baseName); err != nil {
			return err
		}
	}

	if *format == "svg" || *format == "all" {
		if err := exportSVGs(sk, graph, baseName); err != nil {
			return err
		}
	}

	fmt.Printf("Successfully regenerated part (seed=%d) in %v\n", cfg.Seed, elapsed)
	return nil
}

// buildDemoGraph constructs a minimal sketch-then-extrude feature graph: a
// 10x10 square profile extruded 5 units.
func buildDemoGraph() (*feature.Graph, *sketch.Sketch) {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 10, Y: 0}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 0}, geom.Point2D{X: 10, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 10}, geom.Point2D{X: 0, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 10}, geom.Point2D{X: 0, Y: 0}))

	g := feature.New()
	sketchId := identity.FromSeed("demo:sketch-1")
	g.AddFeature(&feature.Feature{
		Id:   sketchId,
		Name: "Sketch1",
		Type: feature.TypeSketch,
		Parameters: map[string]feature.ParameterValue{
			"sketch_data": feature.SketchParam(sk),
		},
	})

	extrudeId := identity.FromSeed("demo:extrude-1")
	g.AddFeature(&feature.Feature{
		Id:           extrudeId,
		Name:         "Extrude1",
		Type:         feature.TypeExtrude,
		Dependencies: []identity.EntityId{sketchId},
		Parameters: map[string]feature.ParameterValue{
			"distance": feature.Float(5),
		},
	})

	return g, sk
}

// firstSketch returns the first sketch (in topological order) of a loaded
// graph, or nil when the graph carries none.
func firstSketch(g *feature.Graph) *sketch.Sketch {
	order, err := g.Sort()
	if err != nil {
		return nil
	}
	for _, id := range order {
		f := g.Nodes[id]
		if f == nil {
			continue
		}
		if v, ok := f.Parameters["sketch_data"]; ok && v.Kind == feature.ParamSketch {
			return v.Sketch
		}
	}
	return nil
}

func exportManifest(orch *regen.Orchestrator, report regen.RegenReport, baseName string) error {
	filename := filepath.Join(*outputDir, baseName+".json")
	if *verbose {
		fmt.Printf("Exporting manifest JSON to %s\n", filename)
	}

	manifest := export.BuildManifest(orch.Registry, report)
	if err := export.SaveManifestJSON(manifest, filename); err != nil {
		return fmt.Errorf("failed to export manifest: %w", err)
	}

	if *verbose {
		info, _ := os.Stat(filename)
		fmt.Printf("  Wrote %d bytes\n", info.Size())
	}
	return nil
}

func exportSVGs(sk *sketch.Sketch, g *feature.Graph, baseName string) error {
	sketchFile := filepath.Join(*outputDir, baseName+"_sketch.svg")
	if sk == nil {
		fmt.Fprintln(os.Stderr, "Warning: graph has no sketch feature, skipping sketch SVG")
	} else {
		if *verbose {
			fmt.Printf("Exporting sketch SVG to %s\n", sketchFile)
		}
		sketchOpts := export.DefaultSketchSVGOptions()
		if err := export.SaveSketchSVG(sk, sketchFile, sketchOpts); err != nil {
			return fmt.Errorf("failed to export sketch SVG: %w", err)
		}
	}

	graphFile := filepath.Join(*outputDir, baseName+"_graph.svg")
	if *verbose {
		fmt.Printf("Exporting feature graph SVG to %s\n", graphFile)
	}
	graphOpts := export.DefaultGraphSVGOptions()
	if err := export.SaveFeatureGraphSVG(g, graphFile, graphOpts); err != nil {
		return fmt.Errorf("failed to export feature graph SVG: %w", err)
	}

	if *verbose {
		for _, f := range []string{sketchFile, graphFile} {
			if info, err := os.Stat(f); err == nil {
				fmt.Printf("  Wrote %s (%d bytes)\n", f, info.Size())
			}
		}
	}
	return nil
}

func printStats(report regen.RegenReport) {
	fmt.Println("\nRegeneration Statistics:")
	fmt.Printf("  Vertices: %d\n", len(report.Mesh.Positions))
	fmt.Printf("  Triangles: %d\n", len(report.Mesh.Triangles))
	fmt.Printf("  Lines: %d\n", len(report.Lines))
	fmt.Printf("  Points: %d\n", len(report.Points))

	if len(report.Zombies) > 0 {
		fmt.Printf("  Zombie references: %d\n", len(report.Zombies))
	}

	for id, result := range report.SolveResults {
		status := "converged"
		if !result.Converged {
			status = "did not converge"
		}
		fmt.Printf("  Sketch %s: %s after %d iterations, dof=%d\n", id, status, result.Iterations, result.Dof)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage: cadcore -config <config.yaml> [options]")
	fmt.Fprintln(os.Stderr, "\nRun 'cadcore -help' for detailed help")
}

func printHelp() {
	fmt.Printf("cadcore version %s\n\n", version)
	fmt.Println("A command-line tool for regenerating a parametric CAD part.")
	fmt.Println("\nUsage:")
	fmt.Println("  cadcore -config <config.yaml> [options]")
	fmt.Println("\nRequired Flags:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML configuration file")
	fmt.Println("\nOptional Flags:")
	fmt.Println("  -graph string")
	fmt.Println("        Path to a persisted feature-graph YAML (default: built-in demo part)")
	fmt.Println("  -output string")
	fmt.Println("        Output directory for generated files (default: current directory)")
	fmt.Println("  -format string")
	fmt.Println("        Export format: json, svg, or all (default: json)")
	fmt.Println("  -seed uint")
	fmt.Println("        Override the seed from config (0 = use config seed) (default: 0)")
	fmt.Println("  -verbose")
	fmt.Println("        Enable verbose output")
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println("\nExamples:")
	fmt.Println("  # Regenerate with default JSON manifest export")
	fmt.Println("  cadcore -config cadcore.yaml")
	fmt.Println("\n  # Regenerate with a custom seed and both export formats")
	fmt.Println("  cadcore -config cadcore.yaml -seed 12345 -format all -output ./out")
	fmt.Println("\n  # Export SVG visualizations with verbose output")
	fmt.Println("  cadcore -config cadcore.yaml -format svg -verbose")
	fmt.Println("\nConfiguration File:")
	fmt.Println("  The YAML configuration file specifies regeneration parameters including:")
	fmt.Println("  - Seed (used in output file names)")
	fmt.Println("  - Tolerances (linear, angular)")
	fmt.Println("  - Solver limits (maxIterations, convergenceEpsilon)")
	fmt.Println("  - Region detection resolution (circleSegments)")
	fmt.Println("  - Backend (the registered kernel implementation to use)")
}
