package geom

import "testing"

func TestVector3D_Normalize_DegenerateDefaultsToZ(t *testing.T) {
	v := Vector3D{}.Normalize()
	if v != (Vector3D{X: 0, Y: 0, Z: 1}) {
		t.Fatalf("expected +Z default, got %+v", v)
	}
}

func TestAnalyticGeometry_Similarity_CrossVariantIsZero(t *testing.T) {
	p := Plane(Point3D{}, Vector3D{X: 0, Y: 0, Z: 1})
	s := Sphere(Point3D{}, 5)
	if got := p.Similarity(s); got != 0 {
		t.Fatalf("cross-variant similarity should be 0, got %v", got)
	}
}

func TestAnalyticGeometry_Similarity_IdenticalPlanesScoreOne(t *testing.T) {
	p1 := Plane(Point3D{X: 1, Y: 2, Z: 3}, Vector3D{X: 0, Y: 0, Z: 1})
	p2 := Plane(Point3D{X: 1, Y: 2, Z: 3}, Vector3D{X: 0, Y: 0, Z: 1})
	if got := p1.Similarity(p2); got < 0.999 {
		t.Fatalf("identical planes should score ~1.0, got %v", got)
	}
}

func TestAnalyticGeometry_Similarity_ParallelOffsetPlaneIsPartial(t *testing.T) {
	p1 := Plane(Point3D{}, Vector3D{X: 0, Y: 0, Z: 1})
	p2 := Plane(Point3D{X: 0, Y: 0, Z: 100}, Vector3D{X: 0, Y: 0, Z: 1})
	got := p1.Similarity(p2)
	if got <= 0 || got >= 1 {
		t.Fatalf("parallel but offset plane should score strictly between 0 and 1, got %v", got)
	}
}
