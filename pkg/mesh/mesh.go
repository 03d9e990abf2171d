// Package mesh implements the Mesh→Topology Translator: it groups a
// kernel's raw triangle soup into logical faces by dihedral-angle
// union-find, mints stable face/edge/vertex TopoIds through a
// NamingContext, registers their analytic geometry, and computes smoothed
// per-vertex normals for rendering.
package mesh

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/registry"
	"github.com/archkit/cadcore/pkg/rng"
)

// dihedralCosThreshold is cos(40 degrees): two triangles sharing an edge
// belong to the same logical face when their normals are at least this
// aligned.
const dihedralCosThreshold = 0.766044443

// normalQuantStep is the quantisation applied to a face normal before it
// enters a naming seed, so a tolerance-level re-tessellation keeps the id.
const normalQuantStep = 0.01

// LineFeature is a minted edge: the stable id plus its first-witnessed
// world-space endpoints.
type LineFeature struct {
	Id    identity.TopoId
	Start geom.Point3D
	End   geom.Point3D
}

// PointFeature is a minted vertex (a corner or junction; plain edge-interior
// vertices are never minted).
type PointFeature struct {
	Id       identity.TopoId
	Position geom.Point3D
}

// Result is everything the translator produces for one mesh.
type Result struct {
	Mesh   geom.TriangleMesh // positions/triangles unchanged, Normals and FaceIds populated
	Lines  []LineFeature
	Points []PointFeature
}

type edgeKey struct{ a, b uint32 }

func makeEdgeKey(i, j uint32) edgeKey {
	if i > j {
		i, j = j, i
	}
	return edgeKey{i, j}
}

// unionFind is a simple path-compressed, union-by-rank disjoint set over
// triangle indices.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p, rank: make([]int, n)}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

func triangleNormal(mesh geom.TriangleMesh, triIndex int) geom.Vector3D {
	tri := mesh.Triangles[triIndex]
	p0, p1, p2 := mesh.Positions[tri[0]], mesh.Positions[tri[1]], mesh.Positions[tri[2]]
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	n := e1.Cross(e2)
	if n.Length() < 1e-12 {
		return fallbackNormal(triIndex, mesh)
	}
	return n.Normalize()
}

// fallbackNormal deterministically picks an axis-aligned normal for a
// degenerate (near-zero-area) triangle, keyed by the triangle's index and
// the mesh's own content so the choice never depends on wall-clock time or
// process state and is reproducible across runs.
func fallbackNormal(triIndex int, mesh geom.TriangleMesh) geom.Vector3D {
	axes := []geom.Vector3D{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	hash := meshContentHash(mesh)
	r := rng.NewRNG(uint64(triIndex), "mesh.fallback-normal", hash)
	return axes[r.IntRange(0, len(axes)-1)]
}

func meshContentHash(mesh geom.TriangleMesh) []byte {
	h := sha256.New()
	var buf [8]byte
	for _, p := range mesh.Positions {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(p.X))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(p.Y))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(p.Z))
		h.Write(buf[:])
	}
	return h.Sum(nil)
}

func quantize(v float64) float64 {
	return math.Round(v/normalQuantStep) * normalQuantStep
}

func quantizedNormalKey(n geom.Vector3D) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f", quantize(n.X), quantize(n.Y), quantize(n.Z))
}

// Translate groups tri's triangles into logical faces, mints stable TopoIds
// for every face/edge/vertex via a NamingContext scoped to featureId, and
// registers their analytic geometry into reg.
func Translate(tri geom.TriangleMesh, featureId identity.EntityId, baseName string, reg *registry.Registry) Result {
	ctx := identity.NewNamingContext(featureId)
	numTri := len(tri.Triangles)

	normals := make([]geom.Vector3D, numTri)
	for i := range tri.Triangles {
		normals[i] = triangleNormal(tri, i)
	}

	// Vertices at the same position are welded for edge adjacency, so faces
	// built from separate vertex copies still share their boundary edges.
	canon := make([]uint32, len(tri.Positions))
	firstAt := make(map[geom.Point3D]uint32, len(tri.Positions))
	for vi, p := range tri.Positions {
		if first, ok := firstAt[p]; ok {
			canon[vi] = first
		} else {
			firstAt[p] = uint32(vi)
			canon[vi] = uint32(vi)
		}
	}

	edges := make(map[edgeKey][]int)
	for ti, t := range tri.Triangles {
		pairs := [3][2]uint32{{t[0], t[1]}, {t[1], t[2]}, {t[2], t[0]}}
		for _, p := range pairs {
			k := makeEdgeKey(canon[p[0]], canon[p[1]])
			edges[k] = append(edges[k], ti)
		}
	}

	uf := newUnionFind(numTri)
	for _, tris := range edges {
		if len(tris) != 2 {
			continue
		}
		if normals[tris[0]].Dot(normals[tris[1]]) > dihedralCosThreshold {
			uf.union(tris[0], tris[1])
		}
	}

	// Assign compact face indices in deterministic order: by the smallest
	// triangle index belonging to each root.
	rootFirstTri := make(map[int]int)
	for ti := 0; ti < numTri; ti++ {
		root := uf.find(ti)
		if _, ok := rootFirstTri[root]; !ok {
			rootFirstTri[root] = ti
		}
	}
	roots := make([]int, 0, len(rootFirstTri))
	for root := range rootFirstTri {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return rootFirstTri[roots[i]] < rootFirstTri[roots[j]] })
	compactIndex := make(map[int]int, len(roots))
	for i, root := range roots {
		compactIndex[root] = i
	}

	faceIds := make([]uint32, numTri)
	for ti := 0; ti < numTri; ti++ {
		faceIds[ti] = uint32(compactIndex[uf.find(ti)])
	}

	// Mint and register a face TopoId per compact face group, using the
	// first triangle's normal and first vertex as the representative plane.
	faceTopoIds := make([]identity.TopoId, len(roots))
	for groupIdx, root := range roots {
		firstTri := rootFirstTri[root]
		n := normals[firstTri]
		anchor := tri.Positions[tri.Triangles[firstTri][0]]
		seed := fmt.Sprintf("%s:F:%d:%s", baseName, groupIdx, quantizedNormalKey(n))
		id := ctx.Derive(seed, identity.RankFace)
		faceTopoIds[groupIdx] = id
		reg.Register(registry.KernelEntity{Id: id, Geometry: geom.Plane(anchor, n)})
	}

	// Smooth per-vertex normals: average every incident triangle's normal by
	// vertex index. Normals are not stored per (vertex, face group): a vertex
	// index shared by triangles of different face groups (as in
	// ExtrudePolygon's side walls) gets a normal blended across those faces.
	smooth := make([]geom.Vector3D, len(tri.Positions))
	counts := make([]int, len(tri.Positions))
	for ti, t := range tri.Triangles {
		for _, vi := range t {
			smooth[vi] = smooth[vi].Add(normals[ti])
			counts[vi]++
		}
	}
	for i := range smooth {
		if counts[i] > 0 {
			smooth[i] = smooth[i].Normalize()
		}
	}

	// Mint edge TopoIds for every edge whose two adjacent triangles fall in
	// different face groups, or that is a mesh boundary (one adjacent
	// triangle only).
	type edgeInfo struct {
		key   edgeKey
		a, b  int // compact face indices; b == -1 for boundary
		start uint32
		end   uint32
	}
	var edgeInfos []edgeInfo
	for k, tris := range edges {
		switch len(tris) {
		case 1:
			edgeInfos = append(edgeInfos, edgeInfo{key: k, a: int(faceIds[tris[0]]), b: -1, start: k.a, end: k.b})
		case 2:
			fa, fb := int(faceIds[tris[0]]), int(faceIds[tris[1]])
			if fa != fb {
				edgeInfos = append(edgeInfos, edgeInfo{key: k, a: fa, b: fb, start: k.a, end: k.b})
			}
		}
	}
	sort.Slice(edgeInfos, func(i, j int) bool {
		if edgeInfos[i].a != edgeInfos[j].a {
			return edgeInfos[i].a < edgeInfos[j].a
		}
		if edgeInfos[i].b != edgeInfos[j].b {
			return edgeInfos[i].b < edgeInfos[j].b
		}
		if edgeInfos[i].key.a != edgeInfos[j].key.a {
			return edgeInfos[i].key.a < edgeInfos[j].key.a
		}
		return edgeInfos[i].key.b < edgeInfos[j].key.b
	})

	featureDegree := make([]int, len(tri.Positions))
	var lines []LineFeature
	for i, e := range edgeInfos {
		lo, hi := e.a, e.b
		tag := "B"
		if hi >= 0 {
			if lo > hi {
				lo, hi = hi, lo
			}
			tag = fmt.Sprintf("%d", hi)
		}
		seed := fmt.Sprintf("%s:E:%d:%s:%d", baseName, lo, tag, i)
		id := ctx.Derive(seed, identity.RankEdge)
		start := tri.Positions[e.start]
		end := tri.Positions[e.end]
		reg.Register(registry.KernelEntity{Id: id, Geometry: geom.Line(start, end)})
		lines = append(lines, LineFeature{Id: id, Start: start, End: end})
		featureDegree[e.start]++
		featureDegree[e.end]++
	}

	var points []PointFeature
	for vi := range tri.Positions {
		deg := featureDegree[vi]
		if deg > 0 && deg != 2 {
			seed := fmt.Sprintf("%s:V:%d", baseName, vi)
			id := ctx.Derive(seed, identity.RankVertex)
			pos := tri.Positions[vi]
			reg.Register(registry.KernelEntity{Id: id, Geometry: geom.Sphere(pos, 0)})
			points = append(points, PointFeature{Id: id, Position: pos})
		}
	}

	out := tri
	out.Normals = smooth
	out.FaceIds = faceIds
	return Result{Mesh: out, Lines: lines, Points: points}
}
