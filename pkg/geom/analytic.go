package geom

import "math"

// AnalyticKind is the closed tag of an AnalyticGeometry variant.
type AnalyticKind int

const (
	KindPlane AnalyticKind = iota
	KindCylinder
	KindSphere
	KindLine
	KindCircle
	KindMesh
)

// AnalyticGeometry is a lightweight, closed-variant description of the
// geometry behind a KernelEntity — enough to support similarity scoring for
// fallback topological-reference resolution, not a full B-rep surface.
//
// Only one set of fields is meaningful per Kind; callers switch on Kind.
type AnalyticGeometry struct {
	Kind AnalyticKind

	// Plane
	Origin Point3D
	Normal Vector3D

	// Cylinder
	AxisStart Point3D
	AxisDir   Vector3D
	Radius    float64

	// Sphere
	Center Point3D

	// Line
	Start Point3D
	End   Point3D
}

// Plane constructs a Plane-variant geometry.
func Plane(origin Point3D, normal Vector3D) AnalyticGeometry {
	return AnalyticGeometry{Kind: KindPlane, Origin: origin, Normal: normal}
}

// Cylinder constructs a Cylinder-variant geometry.
func Cylinder(axisStart Point3D, axisDir Vector3D, radius float64) AnalyticGeometry {
	return AnalyticGeometry{Kind: KindCylinder, AxisStart: axisStart, AxisDir: axisDir, Radius: radius}
}

// Sphere constructs a Sphere-variant geometry.
func Sphere(center Point3D, radius float64) AnalyticGeometry {
	return AnalyticGeometry{Kind: KindSphere, Center: center, Radius: radius}
}

// Line constructs a Line-variant geometry.
func Line(start, end Point3D) AnalyticGeometry {
	return AnalyticGeometry{Kind: KindLine, Start: start, End: end}
}

// Circle constructs a Circle-variant geometry.
func Circle(center Point3D, normal Vector3D, radius float64) AnalyticGeometry {
	return AnalyticGeometry{Kind: KindCircle, Center: center, Normal: normal, Radius: radius}
}

// Mesh constructs the freeform fallback variant, used when no analytic
// description applies.
func Mesh() AnalyticGeometry {
	return AnalyticGeometry{Kind: KindMesh}
}

// Similarity scores how alike two geometries are, in [0, 1]. Cross-variant
// pairs always score 0. Plane/Cylinder/Sphere pairs of the same variant use
// a weighted blend of orientation/position/size closeness; Line, Circle,
// and Mesh have no defined same-variant formula and also score 0 (fallback
// resolution still works for them via the feature/local-id proximity terms
// in the registry).
func (g AnalyticGeometry) Similarity(other AnalyticGeometry) float64 {
	if g.Kind != other.Kind {
		return 0
	}

	switch g.Kind {
	case KindPlane:
		dot := math.Abs(g.Normal.Dot(other.Normal))
		d := other.Origin.Sub(g.Origin)
		planeDist := math.Abs(d.Dot(g.Normal))
		distSim := 1.0 / (1.0 + planeDist)
		return dot*0.7 + distSim*0.3

	case KindCylinder:
		radiusSim := 1.0 / (1.0 + math.Abs(g.Radius-other.Radius))
		dot := math.Abs(g.AxisDir.Dot(other.AxisDir))
		return radiusSim*0.5 + dot*0.5

	case KindSphere:
		dist := g.Center.Sub(other.Center).Length()
		centerSim := 1.0 / (1.0 + dist)
		radiusSim := 1.0 / (1.0 + math.Abs(g.Radius-other.Radius))
		return centerSim*0.5 + radiusSim*0.5

	default:
		return 0
	}
}
