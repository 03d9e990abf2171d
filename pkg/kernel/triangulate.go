package kernel

import "github.com/archkit/cadcore/pkg/geom"

// triangulatePolygon turns a (possibly holed) polygon into a flat list of
// triangles via ear clipping. Holes are first stitched into the exterior
// loop by bridging each one to its nearest exterior vertex (a simplified,
// non-robust visibility test — adequate for the well-behaved, non-pathological
// loops a sketch's region detector produces, not a general-purpose CDT).
func triangulatePolygon(poly geom.Polygon2D) [][3]geom.Point2D {
	ring := append([]geom.Point2D(nil), poly.Exterior...)
	if !isCCW(ring) {
		reverseP(ring)
	}
	for _, hole := range poly.Interiors {
		h := append([]geom.Point2D(nil), hole...)
		if isCCW(h) {
			reverseP(h)
		}
		ring = bridgeHole(ring, h)
	}
	return earClip(ring)
}

func isCCW(pts []geom.Point2D) bool {
	area := 0.0
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return area > 0
}

func reverseP(pts []geom.Point2D) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// bridgeHole splices hole into ring by connecting hole's nearest vertex to
// ring's nearest vertex with a pair of coincident-duplicate bridge edges,
// the standard trick for reducing a polygon-with-hole to a single simple
// loop an ear-clipper can consume.
func bridgeHole(ring, hole []geom.Point2D) []geom.Point2D {
	if len(hole) == 0 {
		return ring
	}
	bestRing, bestHole := 0, 0
	bestDist := -1.0
	for i, rp := range ring {
		for j, hp := range hole {
			d := sqDist(rp, hp)
			if bestDist < 0 || d < bestDist {
				bestDist, bestRing, bestHole = d, i, j
			}
		}
	}
	out := make([]geom.Point2D, 0, len(ring)+len(hole)+2)
	out = append(out, ring[:bestRing+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(bestHole+k)%len(hole)])
	}
	out = append(out, ring[bestRing])
	out = append(out, ring[bestRing+1:]...)
	return out
}

func sqDist(a, b geom.Point2D) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// earClip triangulates a simple CCW polygon (possibly with zero-width
// bridge seams introduced by bridgeHole) in O(n^2).
func earClip(poly []geom.Point2D) [][3]geom.Point2D {
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]geom.Point2D
	guard := 0
	for len(idx) > 2 && guard < 10000 {
		guard++
		earFound := false
		n := len(idx)
		for i := 0; i < n; i++ {
			prev := idx[(i-1+n)%n]
			cur := idx[i]
			next := idx[(i+1)%n]
			a, b, c := poly[prev], poly[cur], poly[next]
			if !isConvex(a, b, c) {
				continue
			}
			if anyPointInside(poly, idx, prev, cur, next, a, b, c) {
				continue
			}
			tris = append(tris, [3]geom.Point2D{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			earFound = true
			break
		}
		if !earFound {
			break
		}
	}
	return tris
}

func isConvex(a, b, c geom.Point2D) bool {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	return cross > 1e-12
}

func anyPointInside(poly []geom.Point2D, idx []int, prev, cur, next int, a, b, c geom.Point2D) bool {
	for _, k := range idx {
		if k == prev || k == cur || k == next {
			continue
		}
		if pointInTriangle(poly[k], a, b, c) {
			return true
		}
	}
	return false
}

func pointInTriangle(p, a, b, c geom.Point2D) bool {
	d1 := sign(p, a, b)
	d2 := sign(p, b, c)
	d3 := sign(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func sign(p, a, b geom.Point2D) float64 {
	return (p.X-b.X)*(a.Y-b.Y) - (a.X-b.X)*(p.Y-b.Y)
}
