package kernel

import (
	"fmt"
	"math"

	"github.com/archkit/cadcore/pkg/geom"
)

// AnalyticBackend is the in-memory reference Backend: real analytic
// construction for box/extrude/revolve/union, with the operations a real
// B-rep library is needed for (intersect/subtract, exact fillet/chamfer)
// reported as diagnostics rather than faked. It is the external seam a real
// kernel (e.g. a Truck or OpenCASCADE binding) would plug into, not a
// production solid modeler itself.
type AnalyticBackend struct{}

// NewAnalyticBackend constructs the reference backend.
func NewAnalyticBackend() *AnalyticBackend { return &AnalyticBackend{} }

const revolveSegments = 64

func fail(kind OpErrorKind, format string, args ...any) error {
	return &OpError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// CreateBox builds an axis-aligned box centered at the origin.
func (b *AnalyticBackend) CreateBox(width, height, depth float64) (Solid, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return Solid{}, fail(InvalidGeometry, "box dimensions must be positive, got %g x %g x %g", width, height, depth)
	}
	hw, hh, hd := width/2, height/2, depth/2
	corners := [8]geom.Point3D{
		{X: -hw, Y: -hh, Z: -hd}, {X: hw, Y: -hh, Z: -hd}, {X: hw, Y: hh, Z: -hd}, {X: -hw, Y: hh, Z: -hd},
		{X: -hw, Y: -hh, Z: hd}, {X: hw, Y: -hh, Z: hd}, {X: hw, Y: hh, Z: hd}, {X: -hw, Y: hh, Z: hd},
	}
	// Each face as two CCW (outward-facing) triangles.
	faces := [6][4]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 1, 5, 4}, // -Y
		{1, 2, 6, 5}, // +X
		{2, 3, 7, 6}, // +Y
		{3, 0, 4, 7}, // -X
	}
	var mesh geom.TriangleMesh
	for _, f := range faces {
		i0 := mesh.AddVertex(corners[f[0]])
		i1 := mesh.AddVertex(corners[f[1]])
		i2 := mesh.AddVertex(corners[f[2]])
		i3 := mesh.AddVertex(corners[f[3]])
		mesh.AddTriangle(i0, i1, i2)
		mesh.AddTriangle(i0, i2, i3)
	}
	return Solid{Mesh: mesh}, nil
}

// CreateSphere builds a UV-sphere centered at the origin. The sphere
// syscall requires it, so the backend interface carries it alongside the
// box/extrude/revolve minimum.
func (b *AnalyticBackend) CreateSphere(radius float64) (Solid, error) {
	if radius <= 0 {
		return Solid{}, fail(InvalidGeometry, "sphere radius must be positive, got %g", radius)
	}
	const rings = 16
	const segs = 32
	var mesh geom.TriangleMesh
	grid := make([][]uint32, rings+1)
	for i := 0; i <= rings; i++ {
		phi := math.Pi * float64(i) / float64(rings) // 0..pi from +Z to -Z
		grid[i] = make([]uint32, segs+1)
		for j := 0; j <= segs; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segs)
			x := radius * math.Sin(phi) * math.Cos(theta)
			y := radius * math.Sin(phi) * math.Sin(theta)
			z := radius * math.Cos(phi)
			grid[i][j] = mesh.AddVertex(geom.Point3D{X: x, Y: y, Z: z})
		}
	}
	for i := 0; i < rings; i++ {
		for j := 0; j < segs; j++ {
			a, bI := grid[i][j], grid[i][j+1]
			c, d := grid[i+1][j], grid[i+1][j+1]
			if i != 0 {
				mesh.AddTriangle(a, c, bI)
			}
			if i != rings-1 {
				mesh.AddTriangle(bI, c, d)
			}
		}
	}
	return Solid{Mesh: mesh}, nil
}

// ExtrudePolygon sweeps a (possibly holed) 2D polygon along params.Direction
// by params.Distance, capping both ends. Twist and non-uniform top scale are
// applied to the top cap only, matching a linear extrusion's shape.
func (b *AnalyticBackend) ExtrudePolygon(polygon geom.Polygon2D, params geom.ExtrudeParams) (Solid, error) {
	if len(polygon.Exterior) < 3 {
		return Solid{}, fail(InvalidGeometry, "extrude polygon needs at least 3 exterior points, got %d", len(polygon.Exterior))
	}
	if params.Distance <= 0 {
		return Solid{}, fail(InvalidGeometry, "extrude distance must be positive, got %g", params.Distance)
	}
	dir := params.Direction.Normalize()
	scaleX, scaleY := params.ScaleX, params.ScaleY
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}

	loft := func(p geom.Point2D, z float64, topScale bool) geom.Point3D {
		x, y := p.X, p.Y
		if topScale {
			ct, st := math.Cos(params.Twist), math.Sin(params.Twist)
			x, y = x*scaleX, y*scaleY
			x, y = x*ct-y*st, x*st+y*ct
		}
		base := geom.Point3D{X: x, Y: y, Z: 0}
		return base.Translate(dir.Scale(z))
	}

	var mesh geom.TriangleMesh
	bottomZ := params.StartOffset
	topZ := params.StartOffset + params.Distance

	addRing := func(loop []geom.Point2D, z float64, top bool) []uint32 {
		ids := make([]uint32, len(loop))
		for i, p := range loop {
			ids[i] = mesh.AddVertex(loft(p, z, top))
		}
		return ids
	}

	addWall := func(loop []geom.Point2D, reverse bool) {
		bottom := addRing(loop, bottomZ, false)
		top := addRing(loop, topZ, true)
		n := len(loop)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			b0, b1 := bottom[i], bottom[j]
			t0, t1 := top[i], top[j]
			if reverse {
				mesh.AddTriangle(b0, t0, t1)
				mesh.AddTriangle(b0, t1, b1)
			} else {
				mesh.AddTriangle(b0, b1, t1)
				mesh.AddTriangle(b0, t1, t0)
			}
		}
	}

	addWall(polygon.Exterior, false)
	for _, hole := range polygon.Interiors {
		addWall(hole, true)
	}

	tris := triangulatePolygon(polygon)
	for _, t := range tris {
		b0 := mesh.AddVertex(loft(t[0], bottomZ, false))
		b1 := mesh.AddVertex(loft(t[1], bottomZ, false))
		b2 := mesh.AddVertex(loft(t[2], bottomZ, false))
		mesh.AddTriangle(b0, b2, b1) // bottom cap faces -direction

		t0 := mesh.AddVertex(loft(t[0], topZ, true))
		t1 := mesh.AddVertex(loft(t[1], topZ, true))
		t2 := mesh.AddVertex(loft(t[2], topZ, true))
		mesh.AddTriangle(t0, t1, t2) // top cap faces +direction
	}

	return Solid{Mesh: mesh}, nil
}

// RevolveProfile sweeps a 2D profile (x = radial offset from the axis, y =
// position along the axis) around params.Axis by params.Angle radians.
func (b *AnalyticBackend) RevolveProfile(profile []geom.Point2D, params geom.RevolveParams) (Solid, error) {
	if len(profile) < 2 {
		return Solid{}, fail(InvalidGeometry, "revolve profile needs at least 2 points, got %d", len(profile))
	}
	if params.Angle <= 0 {
		return Solid{}, fail(InvalidGeometry, "revolve angle must be positive, got %g", params.Angle)
	}

	origin, dir := axisFrame(params.Axis)
	dir = dir.Normalize()
	e1, e2 := orthonormalBasis(dir)

	segments := int(math.Round(float64(revolveSegments) * params.Angle / (2 * math.Pi)))
	if segments < 3 {
		segments = 3
	}
	closed := params.Angle >= 2*math.Pi-1e-9

	place := func(p geom.Point2D, theta float64) geom.Point3D {
		axial := origin.Translate(dir.Scale(p.Y))
		radial := e1.Scale(p.X * math.Cos(theta)).Add(e2.Scale(p.X * math.Sin(theta)))
		return axial.Translate(radial)
	}

	var mesh geom.TriangleMesh
	steps := segments
	if !closed {
		steps = segments // segments+1 rings, segments wall bands
	}
	rings := make([][]uint32, steps+1)
	for i := 0; i <= steps; i++ {
		if closed && i == steps {
			rings[i] = rings[0]
			continue
		}
		theta := params.Angle * float64(i) / float64(steps)
		ring := make([]uint32, len(profile))
		for j, p := range profile {
			ring[j] = mesh.AddVertex(place(p, theta))
		}
		rings[i] = ring
	}

	for i := 0; i < steps; i++ {
		a, c := rings[i], rings[i+1]
		for j := 0; j+1 < len(profile); j++ {
			mesh.AddTriangle(a[j], a[j+1], c[j+1])
			mesh.AddTriangle(a[j], c[j+1], c[j])
		}
	}

	if !closed {
		startTris := triangulatePolygon(geom.NewPolygon2D(profile))
		for _, t := range startTris {
			p0 := mesh.AddVertex(place(t[0], 0))
			p1 := mesh.AddVertex(place(t[1], 0))
			p2 := mesh.AddVertex(place(t[2], 0))
			mesh.AddTriangle(p0, p2, p1)

			q0 := mesh.AddVertex(place(t[0], params.Angle))
			q1 := mesh.AddVertex(place(t[1], params.Angle))
			q2 := mesh.AddVertex(place(t[2], params.Angle))
			mesh.AddTriangle(q0, q1, q2)
		}
	}

	return Solid{Mesh: mesh}, nil
}

func axisFrame(axis geom.RevolveAxis) (geom.Point3D, geom.Vector3D) {
	switch axis.Kind {
	case geom.AxisX:
		return geom.Point3D{}, geom.Vector3D{X: 1}
	case geom.AxisY:
		return geom.Point3D{}, geom.Vector3D{Y: 1}
	case geom.AxisZ:
		return geom.Point3D{}, geom.Vector3D{Z: 1}
	default:
		return axis.Origin, axis.Direction
	}
}

// orthonormalBasis picks two unit vectors perpendicular to dir and to each
// other, forming a right-handed frame with dir, independent of any
// map/slice iteration order upstream (the choice only depends on dir).
func orthonormalBasis(dir geom.Vector3D) (geom.Vector3D, geom.Vector3D) {
	ref := geom.Vector3D{X: 0, Y: 0, Z: 1}
	if math.Abs(dir.Dot(ref)) > 0.9 {
		ref = geom.Vector3D{X: 0, Y: 1, Z: 0}
	}
	e1 := dir.Cross(ref).Normalize()
	e2 := dir.Cross(e1).Normalize()
	return e1, e2
}

// Tessellate returns the solid's mesh unchanged: this backend's solids are
// already a triangle mesh, so there is no separate re-sampling step to
// apply a tolerance to (unlike a true B-rep kernel, which would re-tessellate
// its analytic surfaces at the requested chord tolerance).
func (b *AnalyticBackend) Tessellate(solid Solid, tolerance float64) (geom.TriangleMesh, error) {
	if tolerance < 0 {
		return geom.TriangleMesh{}, fail(TessellationFailed, "tolerance must be non-negative, got %g", tolerance)
	}
	return solid.Mesh, nil
}

// BooleanUnion concatenates the two meshes. This is only a correct boolean
// union when the solids do not overlap — true CSG merging needs a real
// B-rep kernel behind this interface; this backend is the adapter seam, not
// that kernel.
func (b *AnalyticBackend) BooleanUnion(a, bSolid Solid) (Solid, error) {
	out := a.Mesh
	offset := uint32(len(out.Positions))
	out.Positions = append(append([]geom.Point3D(nil), out.Positions...), bSolid.Mesh.Positions...)
	for _, tri := range bSolid.Mesh.Triangles {
		out.Triangles = append(out.Triangles, [3]uint32{tri[0] + offset, tri[1] + offset, tri[2] + offset})
	}
	notes := append(append([]string(nil), a.Notes...), bSolid.Notes...)
	return Solid{Mesh: out, Notes: notes}, nil
}

// BooleanIntersect is not implemented by this in-memory backend: true
// intersection requires exact surface-surface computation from a real B-rep
// kernel. A conforming real kernel plugged in behind this interface
// implements it; this adapter reports the limitation instead of faking a
// result.
func (b *AnalyticBackend) BooleanIntersect(a, bSolid Solid) (Solid, error) {
	return Solid{}, fail(OperationFailed, "boolean intersect requires a real B-rep kernel; the in-memory analytic backend does not implement exact solid intersection")
}

// BooleanSubtract has the same limitation as BooleanIntersect.
func (b *AnalyticBackend) BooleanSubtract(a, bSolid Solid) (Solid, error) {
	return Solid{}, fail(OperationFailed, "boolean subtract requires a real B-rep kernel; the in-memory analytic backend does not implement exact solid subtraction")
}

// Fillet is a recognized no-op: it records the requested radius and edge
// selection as a diagnostic note and returns the solid unchanged.
func (b *AnalyticBackend) Fillet(solid Solid, radius float64, edges []string) (Solid, error) {
	note := fmt.Sprintf("fillet(radius=%g, edges=%d): no-op, parameters recorded; this backend has no B-rep fillet", radius, len(edges))
	out := solid
	out.Notes = append(append([]string(nil), solid.Notes...), note)
	return out, nil
}

// Chamfer is the Fillet no-op, mirrored for the distance-based variant.
func (b *AnalyticBackend) Chamfer(solid Solid, distance float64, edges []string) (Solid, error) {
	note := fmt.Sprintf("chamfer(distance=%g, edges=%d): no-op, parameters recorded; this backend has no B-rep chamfer", distance, len(edges))
	out := solid
	out.Notes = append(append([]string(nil), solid.Notes...), note)
	return out, nil
}

// ExportSTEP produces a deterministic, human-readable summary rather than a
// conformant ISO-10303 file: exact B-rep export is out of reach for an
// analytic in-memory backend with no true surface representation.
func (b *AnalyticBackend) ExportSTEP(solid Solid) (string, error) {
	return fmt.Sprintf(
		"ISO-10303-21 (placeholder);\nHEADER;\nENDSEC;\nDATA;\n/* vertices=%d triangles=%d */\nENDSEC;\nEND-ISO-10303-21;\n",
		len(solid.Mesh.Positions), len(solid.Mesh.Triangles),
	), nil
}

// ImportSTEP is not implemented by this in-memory backend: parsing a real
// ISO-10303 file into a B-rep solid needs a true geometry kernel, the same
// limitation as BooleanIntersect/BooleanSubtract. A production backend
// wrapping a real kernel
// implements this; the analytic backend reports the limitation instead of
// faking a result.
func (b *AnalyticBackend) ImportSTEP(text string) (Solid, error) {
	return Solid{}, fail(NotImplemented, "STEP import requires a real B-rep kernel; the in-memory analytic backend cannot parse ISO-10303 text")
}
