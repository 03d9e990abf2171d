package regions_test

import (
	"math"
	"testing"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/regions"
	"github.com/archkit/cadcore/pkg/sketch"
)

func squareEntities() []sketch.Entity {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 10, Y: 0}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 0}, geom.Point2D{X: 10, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 10}, geom.Point2D{X: 0, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 10}, geom.Point2D{X: 0, Y: 0}))
	return sk.Entities
}

func TestFindRegions_ClosedSquare(t *testing.T) {
	found := regions.FindRegions(squareEntities())
	if len(found) != 1 {
		t.Fatalf("expected exactly one region for a closed square, got %d", len(found))
	}
	if math.Abs(found[0].Area-100) > 1e-6 {
		t.Fatalf("expected area 100, got %v", found[0].Area)
	}
}

func TestFindRegions_CircleAlone(t *testing.T) {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Circle(geom.Point2D{X: 0, Y: 0}, 5))
	found := regions.FindRegions(sk.Entities)
	if len(found) != 1 {
		t.Fatalf("expected one region for a standalone circle, got %d", len(found))
	}
	expected := math.Pi * 25
	if math.Abs(found[0].Area-expected) > 0.5 {
		t.Fatalf("expected area near %v, got %v", expected, found[0].Area)
	}
}

func TestFindRegions_SquareWithHole(t *testing.T) {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Line(geom.Point2D{X: -10, Y: -10}, geom.Point2D{X: 10, Y: -10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: -10}, geom.Point2D{X: 10, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 10}, geom.Point2D{X: -10, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: -10, Y: 10}, geom.Point2D{X: -10, Y: -10}))
	sk.AddEntity(sketch.Circle(geom.Point2D{X: 0, Y: 0}, 2))

	found := regions.FindRegions(sk.Entities)
	if len(found) != 1 {
		t.Fatalf("expected the circle to nest as a void inside the square, got %d regions", len(found))
	}
	if len(found[0].Voids) != 1 {
		t.Fatalf("expected exactly one nested void, got %d", len(found[0].Voids))
	}
}

func TestFindRegions_NoGeometryIsEmpty(t *testing.T) {
	found := regions.FindRegions(nil)
	if len(found) != 0 {
		t.Fatalf("expected no regions for an empty entity list, got %d", len(found))
	}
}

func TestFindRegions_ConstructionGeometryIgnored(t *testing.T) {
	sk := sketch.New(geom.XYPlane())
	id := sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 10, Y: 10}))
	for i := range sk.Entities {
		if sk.Entities[i].Id == id {
			sk.Entities[i].IsConstruction = true
		}
	}
	found := regions.FindRegions(sk.Entities)
	if len(found) != 0 {
		t.Fatalf("expected construction-only geometry to yield no regions, got %d", len(found))
	}
}

// Two circles of radius 5 at (0,0) and (6,0) overlap: the planar graph
// yields two crescents plus the lens, every region with positive area and a
// distinct id even though the lens and crescents share boundary entities.
func TestFindRegions_TwoOverlappingCircles(t *testing.T) {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Circle(geom.Point2D{X: 0, Y: 0}, 5))
	sk.AddEntity(sketch.Circle(geom.Point2D{X: 6, Y: 0}, 5))

	found := regions.FindRegions(sk.Entities)
	if len(found) != 3 {
		t.Fatalf("expected 3 regions (two crescents + lens), got %d", len(found))
	}
	ids := make(map[string]bool)
	for _, r := range found {
		if r.Area <= 0 {
			t.Fatalf("expected every region to carry positive area, got %v", r.Area)
		}
		ids[r.Id] = true
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 distinct region ids, got %d", len(ids))
	}

	// (0,0) sits in the left crescent only; (3,0) sits in the lens only.
	for _, tc := range []struct {
		p    geom.Point2D
		want int
	}{
		{geom.Point2D{X: 0, Y: 0}, 1},
		{geom.Point2D{X: 3, Y: 0}, 1},
	} {
		containing := 0
		for _, r := range found {
			if regions.PointInRegion(tc.p, r) {
				containing++
			}
		}
		if containing != tc.want {
			t.Fatalf("expected point %+v inside exactly %d region(s), got %d", tc.p, tc.want, containing)
		}
	}
}

// A line dangling inside a closed square is a filament: pruned before face
// extraction, so the square still reads as one region of full area.
func TestFindRegions_FilamentPruned(t *testing.T) {
	sk := sketch.New(geom.XYPlane())
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 10, Y: 0}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 0}, geom.Point2D{X: 10, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 10, Y: 10}, geom.Point2D{X: 0, Y: 10}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 10}, geom.Point2D{X: 0, Y: 0}))
	sk.AddEntity(sketch.Line(geom.Point2D{X: 2, Y: 2}, geom.Point2D{X: 5, Y: 5}))

	found := regions.FindRegions(sk.Entities)
	if len(found) != 1 {
		t.Fatalf("expected 1 region with the filament pruned, got %d", len(found))
	}
	if math.Abs(found[0].Area-100) > 1e-6 {
		t.Fatalf("expected area 100, got %v", found[0].Area)
	}
}

func TestPointInRegion_CenterOfSquare(t *testing.T) {
	found := regions.FindRegions(squareEntities())
	if len(found) != 1 {
		t.Fatalf("expected one region, got %d", len(found))
	}
	if !regions.PointInRegion(geom.Point2D{X: 5, Y: 5}, found[0]) {
		t.Fatal("expected the square's center to lie inside its region")
	}
	if regions.PointInRegion(geom.Point2D{X: 50, Y: 50}, found[0]) {
		t.Fatal("expected a point far outside the square to be rejected")
	}
}
