// Package regions detects enclosed planar faces in a sketch: it finds every
// pairwise curve intersection, assembles a half-edge graph from the
// resulting splits, walks that graph to extract minimal closed faces, and
// nests faces inside one another to produce voids.
package regions

import (
	"fmt"
	"math"
	"sort"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/sketch"
)

const (
	epsilon              = 1e-6
	circleLoopSegments   = 64
	arcAngularResolution = math.Pi / 16
)

// SketchRegion is one detected enclosed face, possibly with nested voids.
type SketchRegion struct {
	Id                string
	BoundaryEntityIds []identity.EntityId
	BoundaryPoints    []geom.Point2D // CCW
	Voids             [][]geom.Point2D // CW loops
	Centroid          geom.Point2D
	Area              float64
}

func add(a, b geom.Point2D) geom.Point2D    { return geom.Point2D{X: a.X + b.X, Y: a.Y + b.Y} }
func sub(a, b geom.Point2D) geom.Point2D    { return geom.Point2D{X: a.X - b.X, Y: a.Y - b.Y} }
func scale(a geom.Point2D, s float64) geom.Point2D { return geom.Point2D{X: a.X * s, Y: a.Y * s} }
func length(a geom.Point2D) float64         { return math.Hypot(a.X, a.Y) }
func dist(a, b geom.Point2D) float64        { return length(sub(a, b)) }

// leg is a straight sub-segment contributed by an entity: the whole entity
// for a Line, or one discretized slice of an Arc/Ellipse.
type leg struct {
	entityId identity.EntityId
	a, b     geom.Point2D
}

type circlePrim struct {
	entityId identity.EntityId
	center   geom.Point2D
	radius   float64
}

// legsForEntity discretizes an entity's curve into straight legs for
// intersection testing and planar-graph construction. Circle is handled
// separately (kept analytic).
func legsForEntity(e sketch.Entity) []leg {
	switch e.Geometry.Kind {
	case sketch.KindLine:
		return []leg{{entityId: e.Id, a: e.Geometry.Start, b: e.Geometry.End}}

	case sketch.KindArc:
		span := e.Geometry.EndAngle - e.Geometry.StartAngle
		for span <= 0 {
			span += 2 * math.Pi
		}
		n := int(math.Ceil(span / arcAngularResolution))
		if n < 1 {
			n = 1
		}
		return sampleLoop(e.Id, e.Geometry.Center, func(t float64) geom.Point2D {
			angle := e.Geometry.StartAngle + t*span
			return geom.Point2D{
				X: e.Geometry.Center.X + e.Geometry.Radius*math.Cos(angle),
				Y: e.Geometry.Center.Y + e.Geometry.Radius*math.Sin(angle),
			}
		}, n, false)

	case sketch.KindEllipse:
		cosR, sinR := math.Cos(e.Geometry.Rotation), math.Sin(e.Geometry.Rotation)
		return sampleLoop(e.Id, e.Geometry.Center, func(t float64) geom.Point2D {
			angle := t * 2 * math.Pi
			xl := e.Geometry.SemiMajor * math.Cos(angle)
			yl := e.Geometry.SemiMinor * math.Sin(angle)
			return geom.Point2D{
				X: e.Geometry.Center.X + xl*cosR - yl*sinR,
				Y: e.Geometry.Center.Y + xl*sinR + yl*cosR,
			}
		}, circleLoopSegments, true)

	default:
		return nil
	}
}

// sampleLoop samples n+1 (open) or n (closed) points along a parametric
// curve t in [0,1] and chains them into legs.
func sampleLoop(id identity.EntityId, _ geom.Point2D, at func(t float64) geom.Point2D, n int, closed bool) []leg {
	pts := make([]geom.Point2D, 0, n+1)
	count := n
	if !closed {
		count = n + 1
	}
	for i := 0; i < count; i++ {
		pts = append(pts, at(float64(i)/float64(n)))
	}
	var legs []leg
	for i := 0; i+1 < len(pts); i++ {
		legs = append(legs, leg{entityId: id, a: pts[i], b: pts[i+1]})
	}
	if closed {
		legs = append(legs, leg{entityId: id, a: pts[len(pts)-1], b: pts[0]})
	}
	return legs
}

// taggedPoint is one intersection point tagged with the two entities whose
// curves crossed there.
type taggedPoint struct {
	pos        geom.Point2D
	idA, idB   identity.EntityId
}

// FindRegions computes every enclosed face of a sketch's non-construction
// geometry, including nested voids.
func FindRegions(entities []sketch.Entity) []SketchRegion {
	var geomEntities []sketch.Entity
	for _, e := range entities {
		if !e.IsConstruction {
			geomEntities = append(geomEntities, e)
		}
	}
	if len(geomEntities) == 0 {
		return nil
	}

	var legs []leg
	var circles []circlePrim
	legsByEntity := make(map[identity.EntityId][]leg)
	for _, e := range geomEntities {
		if e.Geometry.Kind == sketch.KindCircle {
			circles = append(circles, circlePrim{entityId: e.Id, center: e.Geometry.Center, radius: e.Geometry.Radius})
			continue
		}
		ls := legsForEntity(e)
		legs = append(legs, ls...)
		legsByEntity[e.Id] = ls
	}

	intersections := findAllIntersections(legs, circles)

	vertices, edges := buildPlanarGraph(geomEntities, legsByEntity, circles, intersections)

	var regions []SketchRegion
	if len(vertices) == 0 || len(edges) == 0 {
		for _, e := range geomEntities {
			if r, ok := entityAsRegion(e); ok {
				regions = append(regions, r)
			}
		}
		return nestVoids(regions)
	}

	linkHalfEdges(vertices, edges)
	faces := extractFaces(edges)

	for _, face := range faces {
		r, ok := faceToRegion(face, vertices, edges)
		if !ok {
			continue
		}
		if r.Area < -epsilon {
			reversePoints(r.BoundaryPoints)
			r.Area = -r.Area
			regions = append(regions, r)
		}
	}

	for _, e := range geomEntities {
		if e.Geometry.Kind != sketch.KindCircle && e.Geometry.Kind != sketch.KindEllipse {
			continue
		}
		wasSplit := false
		for _, ed := range edges {
			if ed.entityId == e.Id {
				wasSplit = true
				break
			}
		}
		if !wasSplit {
			if r, ok := entityAsRegion(e); ok {
				regions = append(regions, r)
			}
		}
	}

	return nestVoids(regions)
}

func reversePoints(pts []geom.Point2D) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// findAllIntersections computes every pairwise crossing between distinct
// entities: leg-leg, leg-circle, and circle-circle.
func findAllIntersections(legs []leg, circles []circlePrim) []taggedPoint {
	var out []taggedPoint

	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			if legs[i].entityId == legs[j].entityId {
				continue
			}
			if p, ok := lineLineIntersect(legs[i].a, legs[i].b, legs[j].a, legs[j].b); ok {
				out = append(out, taggedPoint{pos: p, idA: legs[i].entityId, idB: legs[j].entityId})
			}
		}
	}

	for _, l := range legs {
		for _, c := range circles {
			for _, p := range lineCircleIntersect(l.a, l.b, c.center, c.radius) {
				out = append(out, taggedPoint{pos: p, idA: l.entityId, idB: c.entityId})
			}
		}
	}

	for i := 0; i < len(circles); i++ {
		for j := i + 1; j < len(circles); j++ {
			for _, p := range circleCircleIntersect(circles[i].center, circles[i].radius, circles[j].center, circles[j].radius) {
				out = append(out, taggedPoint{pos: p, idA: circles[i].entityId, idB: circles[j].entityId})
			}
		}
	}

	return out
}

// lineLineIntersect finds the intersection of two line segments, if any,
// clamped to both segments' parameter ranges.
func lineLineIntersect(s1, e1, s2, e2 geom.Point2D) (geom.Point2D, bool) {
	d1 := sub(e1, s1)
	d2 := sub(e2, s2)
	denom := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(denom) < epsilon {
		return geom.Point2D{}, false
	}
	diff := sub(s2, s1)
	t := (diff.X*d2.Y - diff.Y*d2.X) / denom
	u := (diff.X*d1.Y - diff.Y*d1.X) / denom
	if t < -epsilon || t > 1+epsilon || u < -epsilon || u > 1+epsilon {
		return geom.Point2D{}, false
	}
	return add(s1, scale(d1, t)), true
}

// lineCircleIntersect finds where a segment crosses a circle, restricted to
// the segment's own parameter range.
func lineCircleIntersect(s, e, center geom.Point2D, r float64) []geom.Point2D {
	d := sub(e, s)
	f := sub(s, center)
	a := d.X*d.X + d.Y*d.Y
	if a < epsilon*epsilon {
		return nil
	}
	b := 2 * (f.X*d.X + f.Y*d.Y)
	c := f.X*f.X + f.Y*f.Y - r*r
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	t1 := (-b - sq) / (2 * a)
	t2 := (-b + sq) / (2 * a)

	var pts []geom.Point2D
	for _, t := range []float64{t1, t2} {
		if t >= -epsilon && t <= 1+epsilon {
			pts = append(pts, add(s, scale(d, t)))
		}
	}
	if len(pts) == 2 && dist(pts[0], pts[1]) < epsilon {
		pts = pts[:1]
	}
	return pts
}

// circleCircleIntersect finds where two circles cross, returning zero, one
// (tangent), or two points.
func circleCircleIntersect(c1 geom.Point2D, r1 float64, c2 geom.Point2D, r2 float64) []geom.Point2D {
	d := dist(c1, c2)
	if d < epsilon || d > r1+r2+epsilon || d < math.Abs(r1-r2)-epsilon {
		return nil
	}
	a := (r1*r1 - r2*r2 + d*d) / (2 * d)
	hSq := r1*r1 - a*a
	if hSq < 0 {
		hSq = 0
	}
	h := math.Sqrt(hSq)
	dir := scale(sub(c2, c1), 1/d)
	mid := add(c1, scale(dir, a))
	perp := geom.Point2D{X: -dir.Y, Y: dir.X}
	if h < epsilon {
		return []geom.Point2D{mid}
	}
	return []geom.Point2D{add(mid, scale(perp, h)), sub(mid, scale(perp, h))}
}

// --- planar graph -----------------------------------------------------

type graphVertex struct {
	pos   geom.Point2D
	edges []int
}

type halfEdge struct {
	start, end int
	entityId   identity.EntityId
	twin       int
	next       int
	hasTwin    bool
	hasNext    bool
	used       bool
}

type graphBuilder struct {
	vertices  []*graphVertex
	posToIdx  map[string]int
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{posToIdx: make(map[string]int)}
}

func posKey(p geom.Point2D) string { return fmt.Sprintf("%.6f,%.6f", p.X, p.Y) }

func (g *graphBuilder) vertexFor(p geom.Point2D) int {
	key := posKey(p)
	if idx, ok := g.posToIdx[key]; ok {
		return idx
	}
	idx := len(g.vertices)
	g.vertices = append(g.vertices, &graphVertex{pos: p})
	g.posToIdx[key] = idx
	return idx
}

func buildPlanarGraph(
	entities []sketch.Entity,
	legsByEntity map[identity.EntityId][]leg,
	circles []circlePrim,
	intersections []taggedPoint,
) ([]*graphVertex, []*halfEdge) {
	g := newGraphBuilder()
	var edges []*halfEdge

	addEdge := func(entityId identity.EntityId, a, b geom.Point2D) {
		if dist(a, b) < epsilon {
			return
		}
		v1 := g.vertexFor(a)
		v2 := g.vertexFor(b)
		e1 := len(edges)
		e2 := e1 + 1
		he1 := &halfEdge{start: v1, end: v2, entityId: entityId, twin: e2, hasTwin: true}
		he2 := &halfEdge{start: v2, end: v1, entityId: entityId, twin: e1, hasTwin: true}
		edges = append(edges, he1, he2)
		g.vertices[v1].edges = append(g.vertices[v1].edges, e1)
		g.vertices[v2].edges = append(g.vertices[v2].edges, e2)
	}

	for _, e := range entities {
		switch e.Geometry.Kind {
		case sketch.KindLine, sketch.KindArc, sketch.KindEllipse:
			legs := legsByEntity[e.Id]
			for _, l := range legs {
				pts := []geom.Point2D{l.a, l.b}
				for _, ip := range intersections {
					if ip.idA == e.Id || ip.idB == e.Id {
						if onSegment(ip.pos, l.a, l.b) {
							pts = append(pts, ip.pos)
						}
					}
				}
				sortAlongSegment(pts, l.a, l.b)
				pts = dedupPoints(pts)
				for i := 0; i+1 < len(pts); i++ {
					addEdge(e.Id, pts[i], pts[i+1])
				}
			}

		case sketch.KindCircle:
			var ptsOnCircle []geom.Point2D
			center := e.Geometry.Center
			radius := e.Geometry.Radius
			for _, ip := range intersections {
				if ip.idA == e.Id || ip.idB == e.Id {
					ptsOnCircle = append(ptsOnCircle, ip.pos)
				}
			}
			if len(ptsOnCircle) == 0 {
				continue // self-contained, handled by the caller's fallback
			}
			sort.Slice(ptsOnCircle, func(i, j int) bool {
				return math.Atan2(ptsOnCircle[i].Y-center.Y, ptsOnCircle[i].X-center.X) <
					math.Atan2(ptsOnCircle[j].Y-center.Y, ptsOnCircle[j].X-center.X)
			})
			n := len(ptsOnCircle)
			for i := 0; i < n; i++ {
				p1 := ptsOnCircle[i]
				p2 := ptsOnCircle[(i+1)%n]
				a1 := math.Atan2(p1.Y-center.Y, p1.X-center.X)
				a2 := math.Atan2(p2.Y-center.Y, p2.X-center.X)
				for a2 <= a1 {
					a2 += 2 * math.Pi
				}
				span := a2 - a1
				segs := int(math.Ceil(span / arcAngularResolution))
				if segs < 1 {
					segs = 1
				}
				prev := p1
				for s := 1; s <= segs; s++ {
					t := float64(s) / float64(segs)
					var pt geom.Point2D
					if s == segs {
						pt = p2
					} else {
						angle := a1 + t*span
						pt = geom.Point2D{X: center.X + radius*math.Cos(angle), Y: center.Y + radius*math.Sin(angle)}
					}
					addEdge(e.Id, prev, pt)
					prev = pt
				}
			}
		}
	}

	pruneFilaments(g.vertices, edges)
	return g.vertices, edges
}

func onSegment(p, a, b geom.Point2D) bool {
	d := sub(b, a)
	l := length(d)
	if l < epsilon {
		return dist(p, a) < epsilon
	}
	t := dotp(sub(p, a), d) / (l * l)
	if t < -epsilon || t > 1+epsilon {
		return false
	}
	proj := add(a, scale(d, t))
	return dist(p, proj) < 1e-4
}

func dotp(a, b geom.Point2D) float64 { return a.X*b.X + a.Y*b.Y }

func sortAlongSegment(pts []geom.Point2D, a, b geom.Point2D) {
	dx, dy := b.X-a.X, b.Y-a.Y
	useX := math.Abs(dx) > math.Abs(dy)
	sort.Slice(pts, func(i, j int) bool {
		var ti, tj float64
		if useX {
			ti, tj = (pts[i].X-a.X)/dx, (pts[j].X-a.X)/dx
		} else {
			ti, tj = (pts[i].Y-a.Y)/dy, (pts[j].Y-a.Y)/dy
		}
		return ti < tj
	})
}

func dedupPoints(pts []geom.Point2D) []geom.Point2D {
	if len(pts) == 0 {
		return pts
	}
	out := []geom.Point2D{pts[0]}
	for _, p := range pts[1:] {
		if dist(p, out[len(out)-1]) >= epsilon {
			out = append(out, p)
		}
	}
	return out
}

// pruneFilaments iteratively removes degree-1 (dead-end) vertices and their
// incident edges, so a dangling line crossing into a closed region doesn't
// split it into spurious faces.
func pruneFilaments(vertices []*graphVertex, edges []*halfEdge) {
	for {
		degree := make([]int, len(vertices))
		active := make([][]int, len(vertices))
		for i, e := range edges {
			if !e.used {
				degree[e.start]++
				active[e.start] = append(active[e.start], i)
			}
		}

		changed := false
		for v, d := range degree {
			if d == 1 {
				idx := active[v][0]
				edges[idx].used = true
				if edges[idx].hasTwin {
					edges[edges[idx].twin].used = true
				}
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, v := range vertices {
		kept := v.edges[:0]
		for _, idx := range v.edges {
			if !edges[idx].used {
				kept = append(kept, idx)
			}
		}
		v.edges = kept
	}
	for _, e := range edges {
		e.used = false
	}
}

// linkHalfEdges sorts each vertex's outgoing edges by angle and wires each
// incoming edge's next to the next outgoing edge counter-clockwise from it,
// so following next pointers traces face boundaries.
func linkHalfEdges(vertices []*graphVertex, edges []*halfEdge) {
	for _, vx := range vertices {
		if len(vx.edges) < 2 {
			continue
		}
		sorted := append([]int(nil), vx.edges...)
		sort.Slice(sorted, func(i, j int) bool {
			ea, eb := edges[sorted[i]], edges[sorted[j]]
			pa, pb := vertices[ea.end].pos, vertices[eb.end].pos
			aa := math.Atan2(pa.Y-vx.pos.Y, pa.X-vx.pos.X)
			ab := math.Atan2(pb.Y-vx.pos.Y, pb.X-vx.pos.X)
			return aa < ab
		})
		for i, outgoing := range sorted {
			nextOutgoing := sorted[(i+1)%len(sorted)]
			if edges[outgoing].hasTwin {
				t := edges[outgoing].twin
				edges[t].next = nextOutgoing
				edges[t].hasNext = true
			}
		}
	}
}

// extractFaces walks unused half-edges along their next chains until each
// returns to its start, producing one face per closed chain.
func extractFaces(edges []*halfEdge) [][]int {
	var faces [][]int
	maxSteps := len(edges) * 2

	for start := range edges {
		if edges[start].used {
			continue
		}
		var face []int
		current := start
		for steps := 0; ; steps++ {
			if edges[current].used {
				break
			}
			edges[current].used = true
			face = append(face, current)
			if !edges[current].hasNext {
				break
			}
			next := edges[current].next
			if next == start {
				faces = append(faces, face)
				break
			}
			current = next
			if steps > maxSteps {
				break
			}
		}
	}
	return faces
}

func faceToRegion(face []int, vertices []*graphVertex, edges []*halfEdge) (SketchRegion, bool) {
	if len(face) < 3 {
		return SketchRegion{}, false
	}
	var boundary []geom.Point2D
	idSet := make(map[identity.EntityId]bool)
	for _, idx := range face {
		e := edges[idx]
		boundary = append(boundary, vertices[e.start].pos)
		idSet[e.entityId] = true
	}

	area, centroid := areaAndCentroid(boundary)

	ids := make([]identity.EntityId, 0, len(idSet))
	strs := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
		strs = append(strs, id.String())
	}
	sort.Strings(strs)

	return SketchRegion{
		Id:                regionId(strs, centroid),
		BoundaryEntityIds: ids,
		BoundaryPoints:    boundary,
		Centroid:          centroid,
		Area:              area,
	}, true
}

func regionId(sortedEntityIds []string, centroid geom.Point2D) string {
	h := uint64(1469598103934665603) // FNV-1a offset basis
	mix := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= 1099511628211
		}
	}
	for _, s := range sortedEntityIds {
		mix(s)
	}
	mix(fmt.Sprintf("%d", int64(centroid.X*10000)))
	mix(fmt.Sprintf("%d", int64(centroid.Y*10000)))
	return fmt.Sprintf("region_%x", h)
}

func areaAndCentroid(pts []geom.Point2D) (float64, geom.Point2D) {
	n := len(pts)
	if n < 3 {
		return 0, geom.Point2D{}
	}
	signedArea, cx, cy := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
		signedArea += cross
		cx += (pts[i].X + pts[j].X) * cross
		cy += (pts[i].Y + pts[j].Y) * cross
	}
	signedArea /= 2
	if math.Abs(signedArea) > epsilon {
		cx /= 6 * signedArea
		cy /= 6 * signedArea
	} else {
		for _, p := range pts {
			cx += p.X
			cy += p.Y
		}
		cx /= float64(n)
		cy /= float64(n)
	}
	return signedArea, geom.Point2D{X: cx, Y: cy}
}

// entityAsRegion converts a self-contained closed curve (a Circle or
// Ellipse untouched by any intersection) directly into a region.
func entityAsRegion(e sketch.Entity) (SketchRegion, bool) {
	switch e.Geometry.Kind {
	case sketch.KindCircle:
		pts := make([]geom.Point2D, circleLoopSegments)
		for i := range pts {
			angle := float64(i) / float64(circleLoopSegments) * 2 * math.Pi
			pts[i] = geom.Point2D{
				X: e.Geometry.Center.X + e.Geometry.Radius*math.Cos(angle),
				Y: e.Geometry.Center.Y + e.Geometry.Radius*math.Sin(angle),
			}
		}
		return SketchRegion{
			Id:                "region_" + e.Id.String(),
			BoundaryEntityIds: []identity.EntityId{e.Id},
			BoundaryPoints:    pts,
			Centroid:          e.Geometry.Center,
			Area:              math.Pi * e.Geometry.Radius * e.Geometry.Radius,
		}, true

	case sketch.KindEllipse:
		cosR, sinR := math.Cos(e.Geometry.Rotation), math.Sin(e.Geometry.Rotation)
		pts := make([]geom.Point2D, circleLoopSegments)
		for i := range pts {
			t := float64(i) / float64(circleLoopSegments) * 2 * math.Pi
			xl := e.Geometry.SemiMajor * math.Cos(t)
			yl := e.Geometry.SemiMinor * math.Sin(t)
			pts[i] = geom.Point2D{
				X: e.Geometry.Center.X + xl*cosR - yl*sinR,
				Y: e.Geometry.Center.Y + xl*sinR + yl*cosR,
			}
		}
		return SketchRegion{
			Id:                "region_" + e.Id.String(),
			BoundaryEntityIds: []identity.EntityId{e.Id},
			BoundaryPoints:    pts,
			Centroid:          e.Geometry.Center,
			Area:              math.Pi * e.Geometry.SemiMajor * e.Geometry.SemiMinor,
		}, true

	default:
		return SketchRegion{}, false
	}
}

// PointInRegion reports whether a point lies inside a region's outer
// boundary, using a standard ray-casting test.
func PointInRegion(p geom.Point2D, r SketchRegion) bool {
	return pointInPolygon(p, r.BoundaryPoints)
}

func pointInPolygon(p geom.Point2D, poly []geom.Point2D) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xIntersect := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// nestVoids sorts regions by descending area and assigns each region's
// immediate children (regions whose centroid falls inside it, picking the
// smallest enclosing parent) as its voids, matching containment by nesting
// depth rather than by raw overlap. Regions at odd nesting depth are holes:
// they appear only as voids of their parent, not as regions of their own.
func nestVoids(regions []SketchRegion) []SketchRegion {
	sort.Slice(regions, func(i, j int) bool { return regions[i].Area > regions[j].Area })

	parents := make([]int, len(regions))
	depth := make([]int, len(regions))
	for i := range parents {
		parents[i] = -1
	}

	for i := range regions {
		bestParent := -1
		minParentArea := math.Inf(1)
		for j := 0; j < i; j++ {
			if len(regions[i].BoundaryPoints) == 0 {
				continue
			}
			if PointInRegion(regions[i].Centroid, regions[j]) {
				if regions[j].Area < minParentArea {
					minParentArea = regions[j].Area
					bestParent = j
				}
			}
		}
		parents[i] = bestParent
		if bestParent >= 0 {
			depth[i] = depth[bestParent] + 1
		}
	}

	final := make([]SketchRegion, 0, len(regions))
	for i := range regions {
		if depth[i]%2 == 1 {
			continue
		}
		r := regions[i]
		for j := i + 1; j < len(regions); j++ {
			if parents[j] == i {
				voidLoop := append([]geom.Point2D(nil), regions[j].BoundaryPoints...)
				reversePoints(voidLoop)
				r.Voids = append(r.Voids, voidLoop)
				r.Area -= regions[j].Area
			}
		}
		final = append(final, r)
	}
	return final
}
