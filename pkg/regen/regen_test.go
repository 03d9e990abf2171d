package regen_test

import (
	"context"
	"testing"

	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/kernel"
	"github.com/archkit/cadcore/pkg/regen"
	"github.com/archkit/cadcore/pkg/sketch"
	"github.com/archkit/cadcore/pkg/variables"
)

func squareSketch() *sketch.Sketch {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 10, Y: 0}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 0}, geom.Point2D{X: 10, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 10}, geom.Point2D{X: 0, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 10}, geom.Point2D{X: 0, Y: 0}))
	return sk
}

func buildSketchExtrudeGraph(t *testing.T) *feature.Graph {
	t.Helper()
	g := feature.New()
	sketchId := identity.FromSeed("feature:sketch-1")
	g.AddFeature(&feature.Feature{
		Id:   sketchId,
		Name: "Sketch1",
		Type: feature.TypeSketch,
		Parameters: map[string]feature.ParameterValue{
			"sketch_data": feature.SketchParam(squareSketch()),
		},
	})
	extrudeId := identity.FromSeed("feature:extrude-1")
	g.AddFeature(&feature.Feature{
		Id:           extrudeId,
		Name:         "Extrude1",
		Type:         feature.TypeExtrude,
		Dependencies: []identity.EntityId{sketchId},
		Parameters: map[string]feature.ParameterValue{
			"distance": feature.Float(5),
		},
	})
	return g
}

func TestEmitProgram_SketchThenExtrude(t *testing.T) {
	g := buildSketchExtrudeGraph(t)
	if _, err := g.Sort(); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	program := regen.EmitProgram(g)

	var functions []string
	for _, s := range program.Statements {
		if s.Kind == regen.StmtAssign {
			functions = append(functions, s.Function)
		}
	}
	if len(functions) != 2 || functions[0] != "sketch" || functions[1] != "extrude" {
		t.Fatalf("expected [sketch extrude] assign calls, got %v", functions)
	}
}

func TestEmitProgram_SkipsSuppressedFeatures(t *testing.T) {
	g := buildSketchExtrudeGraph(t)
	for _, f := range g.Nodes {
		if f.Type == feature.TypeExtrude {
			f.Suppressed = true
		}
	}
	if _, err := g.Sort(); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	program := regen.EmitProgram(g)
	for _, s := range program.Statements {
		if s.Kind == regen.StmtAssign && s.Function == "extrude" {
			t.Fatal("expected suppressed extrude feature to produce no assign statement")
		}
	}
}

func TestOrchestrator_RegenerateProducesMesh(t *testing.T) {
	g := buildSketchExtrudeGraph(t)
	orch := regen.NewOrchestrator(kernel.NewAnalyticBackend())
	report, err := orch.Regenerate(context.Background(), g)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if len(report.Mesh.Triangles) == 0 {
		t.Fatal("expected a non-empty tessellation")
	}
	if len(report.Zombies) != 0 {
		t.Fatalf("expected no zombie references, got %v", report.Zombies)
	}
}

func TestOrchestrator_RegenerateReportsZombieReference(t *testing.T) {
	g := buildSketchExtrudeGraph(t)
	extrudeId := identity.FromSeed("feature:extrude-1")
	ghostRef := identity.NewTopoId(identity.FromSeed("feature:nonexistent"), 99, identity.RankFace)
	g.Nodes[extrudeId].Parameters["profile_face"] = feature.Reference(ghostRef)

	orch := regen.NewOrchestrator(kernel.NewAnalyticBackend())
	report, err := orch.Regenerate(context.Background(), g)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	found := false
	for _, z := range report.Zombies {
		if z == ghostRef {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the dangling reference to be reported as a zombie")
	}
}

// TestOrchestrator_ResolvesDimensionExpressions checks the variable→sketch
// coupling: a Distance constraint whose style carries "@width * 2" picks up
// the store's value (in base units) during regeneration, before solving.
func TestOrchestrator_ResolvesDimensionExpressions(t *testing.T) {
	g := feature.New()
	if _, err := g.Variables.Add(variables.NewVariable("width", 7, variables.LengthOf(variables.Millimeter))); err != nil {
		t.Fatalf("Add variable: %v", err)
	}

	sk := sketch.New(geom.XYPlane())
	a := sk.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := sk.AddEntity(sketch.Point(geom.Point2D{X: 10, Y: 0}))
	style := sketch.DefaultDimensionStyle()
	style.Expression = "@width * 2"
	sk.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
		Value:  10,
		Style:  &style,
	})

	g.AddFeature(&feature.Feature{
		Id:   identity.FromSeed("feature:dim-sketch"),
		Name: "Sketch1",
		Type: feature.TypeSketch,
		Parameters: map[string]feature.ParameterValue{
			"sketch_data": feature.SketchParam(sk),
		},
	})

	orch := regen.NewOrchestrator(kernel.NewAnalyticBackend())
	if _, err := orch.Regenerate(context.Background(), g); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if got := sk.Constraints[0].Constraint.Value; got != 14 {
		t.Fatalf("expected expression-driven value 14, got %f", got)
	}
}

// Two independent regenerations of the same graph must mint the same
// TopoId set and the same tessellation counts.
func TestOrchestrator_RegenerateIsDeterministic(t *testing.T) {
	runOnce := func() (map[identity.TopoId]bool, int, int) {
		g := buildSketchExtrudeGraph(t)
		orch := regen.NewOrchestrator(kernel.NewAnalyticBackend())
		report, err := orch.Regenerate(context.Background(), g)
		if err != nil {
			t.Fatalf("Regenerate: %v", err)
		}
		ids := make(map[identity.TopoId]bool)
		for _, e := range orch.Registry.All() {
			ids[e.Id] = true
		}
		return ids, len(report.Mesh.Positions), len(report.Mesh.Triangles)
	}

	ids1, v1, t1 := runOnce()
	ids2, v2, t2 := runOnce()
	if v1 != v2 || t1 != t2 {
		t.Fatalf("tessellation counts diverge: (%d,%d) vs (%d,%d)", v1, t1, v2, t2)
	}
	if len(ids1) != len(ids2) {
		t.Fatalf("manifest sizes diverge: %d vs %d", len(ids1), len(ids2))
	}
	for id := range ids1 {
		if !ids2[id] {
			t.Fatalf("TopoId %v minted in one run but not the other", id)
		}
	}
}

func TestOrchestrator_DirectDispatchCubeAndUnion(t *testing.T) {
	g := feature.New()
	orch := regen.NewOrchestrator(kernel.NewAnalyticBackend())
	report, err := orch.Regenerate(context.Background(), g)
	if err != nil {
		t.Fatalf("Regenerate on empty graph: %v", err)
	}
	if len(report.Mesh.Triangles) != 0 {
		t.Fatal("expected an empty tessellation for an empty graph")
	}
}
