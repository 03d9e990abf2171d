package mesh_test

import (
	"testing"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/kernel"
	"github.com/archkit/cadcore/pkg/mesh"
	"github.com/archkit/cadcore/pkg/registry"
)

func TestTranslate_BoxHasSixFaces(t *testing.T) {
	b := kernel.NewAnalyticBackend()
	solid, err := b.CreateBox(10, 10, 10)
	if err != nil {
		t.Fatalf("CreateBox: %v", err)
	}
	reg := registry.New()
	featureId := identity.FromSeed("feature:box-1")
	result := mesh.Translate(solid.Mesh, featureId, "box-1", reg)

	faceSet := make(map[uint32]struct{})
	for _, f := range result.Mesh.FaceIds {
		faceSet[f] = struct{}{}
	}
	if len(faceSet) != 6 {
		t.Fatalf("expected 6 logical faces on a box, got %d", len(faceSet))
	}
	if len(result.Mesh.Normals) != len(result.Mesh.Positions) {
		t.Fatalf("expected one normal per position, got %d normals for %d positions",
			len(result.Mesh.Normals), len(result.Mesh.Positions))
	}
}

func TestTranslate_IsDeterministic(t *testing.T) {
	b := kernel.NewAnalyticBackend()
	solid, _ := b.CreateBox(5, 5, 5)
	featureId := identity.FromSeed("feature:box-det")

	reg1 := registry.New()
	r1 := mesh.Translate(solid.Mesh, featureId, "box-det", reg1)
	reg2 := registry.New()
	r2 := mesh.Translate(solid.Mesh, featureId, "box-det", reg2)

	if len(r1.Lines) != len(r2.Lines) {
		t.Fatalf("expected stable edge count across runs, got %d vs %d", len(r1.Lines), len(r2.Lines))
	}
	for i := range r1.Lines {
		if r1.Lines[i].Id != r2.Lines[i].Id {
			t.Fatalf("expected identical edge TopoId across runs at index %d", i)
		}
	}
	for i := range r1.Points {
		if r1.Points[i].Id != r2.Points[i].Id {
			t.Fatalf("expected identical vertex TopoId across runs at index %d", i)
		}
	}
}

func TestTranslate_RegistersFaceGeometry(t *testing.T) {
	b := kernel.NewAnalyticBackend()
	solid, _ := b.CreateBox(1, 1, 1)
	reg := registry.New()
	featureId := identity.FromSeed("feature:box-reg")
	mesh.Translate(solid.Mesh, featureId, "box-reg", reg)

	if reg.Len() == 0 {
		t.Fatal("expected face/edge/vertex entities registered")
	}
	for _, e := range reg.All() {
		if e.Id.Rank == identity.RankFace && e.Geometry.Kind != geom.KindPlane {
			t.Fatalf("expected face entities to carry plane geometry, got %v", e.Geometry.Kind)
		}
	}
}

func TestTranslate_BoxMintsCornerVertices(t *testing.T) {
	b := kernel.NewAnalyticBackend()
	solid, _ := b.CreateBox(10, 10, 10)
	reg := registry.New()
	featureId := identity.FromSeed("feature:box-corners")
	result := mesh.Translate(solid.Mesh, featureId, "box-corners", reg)

	if len(result.Points) == 0 {
		t.Fatal("expected corner vertices to be minted for a box")
	}
}

func TestTranslate_DifferentBaseNameYieldsDifferentIds(t *testing.T) {
	b := kernel.NewAnalyticBackend()
	solid, _ := b.CreateBox(3, 3, 3)
	featureId := identity.FromSeed("feature:box-name")

	r1 := mesh.Translate(solid.Mesh, featureId, "a", registry.New())
	r2 := mesh.Translate(solid.Mesh, featureId, "b", registry.New())

	if len(r1.Lines) == 0 || len(r2.Lines) == 0 {
		t.Fatal("expected edges in both translations")
	}
	if r1.Lines[0].Id == r2.Lines[0].Id {
		t.Fatal("expected base_name to change the minted edge id")
	}
}
