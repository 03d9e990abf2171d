package feature_test

import (
	"testing"

	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/identity"
)

func mustIndex(t *testing.T, order []identity.EntityId, id identity.EntityId) int {
	t.Helper()
	for i, o := range order {
		if o == id {
			return i
		}
	}
	t.Fatalf("id %s not found in order", id)
	return -1
}

func TestGraph_SortRespectsDependencies(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:a")
	b := identity.FromSeed("feature:b")
	c := identity.FromSeed("feature:c")

	g.AddFeature(&feature.Feature{Id: a, Name: "Sketch1", Type: feature.TypeSketch})
	g.AddFeature(&feature.Feature{Id: b, Name: "Extrude1", Type: feature.TypeExtrude, Dependencies: []identity.EntityId{a}})
	g.AddFeature(&feature.Feature{Id: c, Name: "Extrude2", Type: feature.TypeExtrude, Dependencies: []identity.EntityId{b}})

	order, err := g.Sort()
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("expected 3 features in order, got %d", len(order))
	}
	if mustIndex(t, order, a) > mustIndex(t, order, b) {
		t.Fatal("expected a before b")
	}
	if mustIndex(t, order, b) > mustIndex(t, order, c) {
		t.Fatal("expected b before c")
	}
}

func TestGraph_SortDetectsCycle(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:cycle-a")
	b := identity.FromSeed("feature:cycle-b")

	g.AddFeature(&feature.Feature{Id: a, Name: "A", Type: feature.TypeSketch, Dependencies: []identity.EntityId{b}})
	g.AddFeature(&feature.Feature{Id: b, Name: "B", Type: feature.TypeExtrude, Dependencies: []identity.EntityId{a}})

	_, err := g.Sort()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cycleErr *feature.CycleError
	if !asCycleError(err, &cycleErr) {
		t.Fatalf("expected *feature.CycleError, got %T", err)
	}
}

func asCycleError(err error, target **feature.CycleError) bool {
	if ce, ok := err.(*feature.CycleError); ok {
		*target = ce
		return true
	}
	return false
}

func TestGraph_SortReportsMissingDependency(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:missing-dep")
	ghost := identity.FromSeed("feature:ghost")
	g.AddFeature(&feature.Feature{Id: a, Name: "A", Type: feature.TypeSketch, Dependencies: []identity.EntityId{ghost}})

	_, err := g.Sort()
	if err == nil {
		t.Fatal("expected missing-dependency error")
	}
}

func TestGraph_MutationInvalidatesSortOrder(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:mut-a")
	g.AddFeature(&feature.Feature{Id: a, Name: "A", Type: feature.TypeSketch})
	if _, err := g.Sort(); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if g.SortOrder == nil {
		t.Fatal("expected a cached sort order")
	}
	b := identity.FromSeed("feature:mut-b")
	g.AddFeature(&feature.Feature{Id: b, Name: "B", Type: feature.TypeExtrude})
	if g.SortOrder != nil {
		t.Fatal("expected AddFeature to invalidate the cached sort order")
	}
}

func TestGraph_ActiveOrderRespectsRollback(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:roll-a")
	b := identity.FromSeed("feature:roll-b")
	c := identity.FromSeed("feature:roll-c")
	g.AddFeature(&feature.Feature{Id: a, Name: "A", Type: feature.TypeSketch})
	g.AddFeature(&feature.Feature{Id: b, Name: "B", Type: feature.TypeExtrude, Dependencies: []identity.EntityId{a}})
	g.AddFeature(&feature.Feature{Id: c, Name: "C", Type: feature.TypeExtrude, Dependencies: []identity.EntityId{b}})
	if _, err := g.Sort(); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	g.SetRollback(&b)
	active := g.ActiveOrder()
	for _, id := range active {
		if id == b || id == c {
			t.Fatalf("expected rollback to exclude %s", id)
		}
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active feature before rollback marker, got %d", len(active))
	}
}

func TestGraph_CollectReferencesSkipsSuppressed(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:ref-a")
	ref := identity.NewTopoId(a, 1, identity.RankFace)

	b := identity.FromSeed("feature:ref-b")
	g.AddFeature(&feature.Feature{
		Id:   b,
		Name: "B",
		Type: feature.TypeExtrude,
		Parameters: map[string]feature.ParameterValue{
			"profile": feature.Reference(ref),
		},
	})
	c := identity.FromSeed("feature:ref-c")
	g.AddFeature(&feature.Feature{
		Id:         c,
		Name:       "C",
		Type:       feature.TypeExtrude,
		Suppressed: true,
		Parameters: map[string]feature.ParameterValue{
			"profile": feature.Reference(identity.NewTopoId(c, 2, identity.RankFace)),
		},
	})
	if _, err := g.Sort(); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	refs := g.CollectReferences()
	if len(refs) != 1 {
		t.Fatalf("expected exactly one collected reference (suppressed feature skipped), got %d", len(refs))
	}
	if refs[0] != ref {
		t.Fatalf("expected the non-suppressed feature's reference, got %v", refs[0])
	}
}

func TestGraph_CollectReferencesWalksLists(t *testing.T) {
	g := feature.New()
	a := identity.FromSeed("feature:list-a")
	r1 := identity.NewTopoId(a, 1, identity.RankEdge)
	r2 := identity.NewTopoId(a, 2, identity.RankEdge)
	g.AddFeature(&feature.Feature{
		Id:   a,
		Name: "A",
		Type: feature.TypeExtrude,
		Parameters: map[string]feature.ParameterValue{
			"edges": feature.List([]feature.ParameterValue{feature.Reference(r1), feature.Reference(r2)}),
		},
	})
	if _, err := g.Sort(); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	refs := g.CollectReferences()
	if len(refs) != 2 {
		t.Fatalf("expected 2 references collected from a list parameter, got %d", len(refs))
	}
}
