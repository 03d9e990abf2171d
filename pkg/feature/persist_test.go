package feature_test

import (
	"testing"

	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/sketch"
	"github.com/archkit/cadcore/pkg/variables"
)

func buildPersistGraph(t *testing.T) *feature.Graph {
	t.Helper()
	g := feature.New()

	if _, err := g.Variables.Add(variables.NewVariable("base_size", 10, variables.LengthOf(variables.Millimeter))); err != nil {
		t.Fatalf("Add variable: %v", err)
	}

	sk := sketch.New(geom.XYPlane())
	a := sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 10, Y: 0}))
	sk.AddConstraint(sketch.Constraint{Kind: sketch.Horizontal, Entity: a})

	sketchId := identity.FromSeed("feature:persist-sketch")
	g.AddFeature(&feature.Feature{
		Id:   sketchId,
		Name: "Sketch1",
		Type: feature.TypeSketch,
		Parameters: map[string]feature.ParameterValue{
			"sketch_data": feature.SketchParam(sk),
		},
	})
	g.AddFeature(&feature.Feature{
		Id:           identity.FromSeed("feature:persist-extrude"),
		Name:         "Extrude1",
		Type:         feature.TypeExtrude,
		Dependencies: []identity.EntityId{sketchId},
		Parameters: map[string]feature.ParameterValue{
			"distance": feature.Float(5),
		},
	})
	return g
}

func TestGraph_YAMLRoundTrip(t *testing.T) {
	g := buildPersistGraph(t)
	data, err := g.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}

	restored, err := feature.FromYAML(data)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if len(restored.Nodes) != len(g.Nodes) {
		t.Fatalf("expected %d features after round trip, got %d", len(g.Nodes), len(restored.Nodes))
	}
	if restored.SortOrder != nil {
		t.Fatal("expected sort order cleared after deserialisation")
	}
	if _, ok := restored.Variables.GetByName("base_size"); !ok {
		t.Fatal("expected variable name index rebuilt after deserialisation")
	}

	orig, err := g.Sort()
	if err != nil {
		t.Fatalf("Sort original: %v", err)
	}
	back, err := restored.Sort()
	if err != nil {
		t.Fatalf("Sort restored: %v", err)
	}
	if len(orig) != len(back) {
		t.Fatalf("sort lengths differ: %d vs %d", len(orig), len(back))
	}
	for i := range orig {
		if orig[i] != back[i] {
			t.Fatalf("sort order diverges at %d: %s vs %s", i, orig[i], back[i])
		}
	}
}

func TestGraph_NormalizeBackfillsSketchHistory(t *testing.T) {
	g := buildPersistGraph(t)
	sketchId := identity.FromSeed("feature:persist-sketch")
	sk := g.Nodes[sketchId].Parameters["sketch_data"].Sketch
	sk.History = nil

	g.Normalize()
	// one AddGeometry + one AddConstraint from the flattened arrays
	if len(sk.History) != 2 {
		t.Fatalf("expected 2 backfilled history operations, got %d", len(sk.History))
	}
}
