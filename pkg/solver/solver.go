// Package solver implements the iterative block-relaxation (Gauss-Seidel
// style) sketch constraint solver: one geometric correction per active
// constraint per pass, converging when the worst per-constraint error drops
// below epsilon, plus DOF/conflict/redundancy diagnostics.
package solver

import (
	"fmt"
	"math"
	"sort"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/sketch"
)

const (
	maxIterations = 100
	epsilon       = 1e-6
)

// EntityStatus reports one entity's DOF bookkeeping after a solve.
type EntityStatus struct {
	EntityId           identity.EntityId
	TotalDof           int
	ConstrainedDof      int
	Remaining          int
	IsFullyConstrained bool
	IsOverConstrained  bool
	InvolvedInConflict bool
}

// SolveResult is the diagnostic outcome of Solve.
type SolveResult struct {
	Converged            bool
	Iterations           int
	Dof                  int
	RedundantConstraints []int
	Conflicts            []int
	EntityStatuses       []EntityStatus
}

// ConstraintProgress is the per-constraint detail returned by SolveRelaxed.
type ConstraintProgress struct {
	Error                   float64
	Satisfied               bool
	FirstSatisfiedIteration *int
	ErrorReduction          float64
}

// RelaxedSolveResult extends SolveResult with per-constraint progress,
// intended for live/interactive editing where transient invalidity is
// tolerated.
type RelaxedSolveResult struct {
	SolveResult
	ConstraintResults []ConstraintProgress
	SatisfiedCount    int
	PartialProgress   float64
}

type vec2 struct{ X, Y float64 }

func v(p geom.Point2D) vec2           { return vec2{p.X, p.Y} }
func pt(v vec2) geom.Point2D          { return geom.Point2D{X: v.X, Y: v.Y} }
func (a vec2) add(b vec2) vec2        { return vec2{a.X + b.X, a.Y + b.Y} }
func (a vec2) sub(b vec2) vec2        { return vec2{a.X - b.X, a.Y - b.Y} }
func (a vec2) scale(s float64) vec2   { return vec2{a.X * s, a.Y * s} }
func (a vec2) length() float64        { return math.Hypot(a.X, a.Y) }
func (a vec2) dot(b vec2) float64     { return a.X*b.X + a.Y*b.Y }
func (a vec2) normalize() vec2 {
	l := a.length()
	if l < 1e-12 {
		return vec2{1, 0}
	}
	return vec2{a.X / l, a.Y / l}
}
func (a vec2) rotate(theta float64) vec2 {
	c, s := math.Cos(theta), math.Sin(theta)
	return vec2{a.X*c - a.Y*s, a.X*s + a.Y*c}
}

// workspace adapts a sketch's entities for in-place geometric correction.
type workspace struct {
	s     *sketch.Sketch
	index map[identity.EntityId]int
}

func newWorkspace(s *sketch.Sketch) *workspace {
	idx := make(map[identity.EntityId]int, len(s.Entities))
	for i, e := range s.Entities {
		idx[e.Id] = i
	}
	return &workspace{s: s, index: idx}
}

func (w *workspace) entity(id identity.EntityId) *sketch.Entity {
	i, ok := w.index[id]
	if !ok {
		return nil
	}
	return &w.s.Entities[i]
}

// point reads the 2D location named by a ConstraintPoint.
func (w *workspace) point(cp sketch.ConstraintPoint) vec2 {
	e := w.entity(cp.EntityId)
	if e == nil {
		return vec2{}
	}
	g := e.Geometry
	switch g.Kind {
	case sketch.KindLine:
		if cp.Index == 0 {
			return v(g.Start)
		}
		return v(g.End)
	case sketch.KindCircle:
		return v(g.Center)
	case sketch.KindArc:
		switch cp.Index {
		case 0:
			return v(g.Center)
		case 1:
			return v(g.Center).add(vec2{g.Radius, 0}.rotate(g.StartAngle))
		default:
			return v(g.Center).add(vec2{g.Radius, 0}.rotate(g.EndAngle))
		}
	case sketch.KindEllipse:
		switch cp.Index {
		case 0:
			return v(g.Center)
		case 1:
			return v(g.Center).add(vec2{g.SemiMajor, 0}.rotate(g.Rotation))
		default:
			return v(g.Center).add(vec2{0, g.SemiMinor}.rotate(g.Rotation))
		}
	case sketch.KindPoint:
		return v(g.Pos)
	}
	return vec2{}
}

// setPoint writes a new location back through a ConstraintPoint, adjusting
// the owning entity's parametric fields to match.
func (w *workspace) setPoint(cp sketch.ConstraintPoint, p vec2) {
	e := w.entity(cp.EntityId)
	if e == nil {
		return
	}
	switch e.Geometry.Kind {
	case sketch.KindLine:
		if cp.Index == 0 {
			e.Geometry.Start = pt(p)
		} else {
			e.Geometry.End = pt(p)
		}
	case sketch.KindCircle:
		e.Geometry.Center = pt(p)
	case sketch.KindPoint:
		e.Geometry.Pos = pt(p)
	case sketch.KindArc:
		switch cp.Index {
		case 0:
			e.Geometry.Center = pt(p)
		case 1:
			d := p.sub(v(e.Geometry.Center))
			e.Geometry.Radius = d.length()
			e.Geometry.StartAngle = math.Atan2(d.Y, d.X)
		default:
			d := p.sub(v(e.Geometry.Center))
			e.Geometry.Radius = d.length()
			e.Geometry.EndAngle = math.Atan2(d.Y, d.X)
		}
	case sketch.KindEllipse:
		switch cp.Index {
		case 0:
			e.Geometry.Center = pt(p)
		case 1:
			d := p.sub(v(e.Geometry.Center))
			e.Geometry.SemiMajor = d.length()
			e.Geometry.Rotation = math.Atan2(d.Y, d.X)
		default:
			d := p.sub(v(e.Geometry.Center))
			e.Geometry.SemiMinor = d.length()
			e.Geometry.Rotation = math.Atan2(d.Y, d.X) - math.Pi/2
		}
	}
}

// lineDir returns a line entity's unit direction, oriented start->end.
func (w *workspace) lineDir(id identity.EntityId) vec2 {
	e := w.entity(id)
	if e == nil {
		return vec2{1, 0}
	}
	return v(e.Geometry.End).sub(v(e.Geometry.Start)).normalize()
}

func (w *workspace) lineStartEnd(id identity.EntityId) (vec2, vec2) {
	e := w.entity(id)
	if e == nil {
		return vec2{}, vec2{}
	}
	return v(e.Geometry.Start), v(e.Geometry.End)
}

func (w *workspace) setLine(id identity.EntityId, start, end vec2) {
	e := w.entity(id)
	if e == nil {
		return
	}
	e.Geometry.Start = pt(start)
	e.Geometry.End = pt(end)
}

func (w *workspace) radius(id identity.EntityId) float64 {
	e := w.entity(id)
	if e == nil {
		return 0
	}
	return e.Geometry.Radius
}

func (w *workspace) setRadius(id identity.EntityId, r float64) {
	e := w.entity(id)
	if e != nil {
		e.Geometry.Radius = r
	}
}

// signedDistancePointLine is the signed perpendicular distance of p from the
// infinite line through a with direction dir (unit).
func signedDistancePointLine(p, a, dir vec2) float64 {
	n := vec2{-dir.Y, dir.X}
	return p.sub(a).dot(n)
}

// constraintError computes the current scalar violation of c, used both for
// the convergence check and for relaxed-solve progress reporting.
func (w *workspace) constraintError(c sketch.Constraint) float64 {
	switch c.Kind {
	case sketch.Coincident:
		return w.point(c.Points[0]).sub(w.point(c.Points[1])).length()

	case sketch.Horizontal:
		s, e := w.lineStartEnd(c.Entity)
		return math.Abs(s.Y - e.Y)

	case sketch.Vertical:
		s, e := w.lineStartEnd(c.Entity)
		return math.Abs(s.X - e.X)

	case sketch.Distance:
		d := w.point(c.Points[0]).sub(w.point(c.Points[1])).length()
		return math.Abs(d - c.Value)

	case sketch.HorizontalDistance:
		dx := w.point(c.Points[1]).X - w.point(c.Points[0]).X
		return math.Abs(math.Abs(dx) - c.Value)

	case sketch.VerticalDistance:
		dy := w.point(c.Points[1]).Y - w.point(c.Points[0]).Y
		return math.Abs(math.Abs(dy) - c.Value)

	case sketch.Angle:
		n1 := w.lineDir(c.Lines[0])
		n2 := w.lineDir(c.Lines[1])
		want := n1.rotate(c.Value)
		cos := math.Max(-1, math.Min(1, n2.dot(want)))
		return math.Acos(cos)

	case sketch.Radius:
		return math.Abs(w.radius(c.Entity) - c.Value)

	case sketch.Parallel:
		n1 := w.lineDir(c.Lines[0])
		n2 := w.lineDir(c.Lines[1])
		return 1 - math.Abs(n1.dot(n2))

	case sketch.Perpendicular:
		n1 := w.lineDir(c.Lines[0])
		n2 := w.lineDir(c.Lines[1])
		return math.Abs(n1.dot(n2))

	case sketch.Tangent:
		return w.tangentError(c.Entities[0], c.Entities[1])

	case sketch.Equal:
		a, b := w.equalMeasures(c.Entities[0], c.Entities[1])
		return math.Abs(a - b)

	case sketch.Symmetric:
		p1 := w.point(c.P1)
		p2 := w.point(c.P2)
		refl := w.reflectAcross(c.Axis, p1)
		return p2.sub(refl).length()

	case sketch.Fix:
		return w.point(c.Point).sub(v(c.Position)).length()

	case sketch.DistancePointLine:
		a, _ := w.lineStartEnd(c.Line)
		dir := w.lineDir(c.Line)
		d := signedDistancePointLine(w.point(c.Point), a, dir)
		return math.Abs(math.Abs(d) - c.Value)
	}
	return 0
}

func (w *workspace) tangentError(lineId, circleId identity.EntityId) float64 {
	a, _ := w.lineStartEnd(lineId)
	dir := w.lineDir(lineId)
	center := v(w.entity(circleId).Geometry.Center)
	d := signedDistancePointLine(center, a, dir)
	return math.Abs(math.Abs(d) - w.radius(circleId))
}

// equalMeasures returns the comparable scalar for Equal: line length for
// lines, radius for circles/arcs.
func (w *workspace) equalMeasures(a, b identity.EntityId) (float64, float64) {
	return w.measure(a), w.measure(b)
}

func (w *workspace) measure(id identity.EntityId) float64 {
	e := w.entity(id)
	if e == nil {
		return 0
	}
	switch e.Geometry.Kind {
	case sketch.KindLine:
		return v(e.Geometry.End).sub(v(e.Geometry.Start)).length()
	default:
		return e.Geometry.Radius
	}
}

func (w *workspace) reflectAcross(axisId identity.EntityId, p vec2) vec2 {
	a, _ := w.lineStartEnd(axisId)
	dir := w.lineDir(axisId)
	d := p.sub(a)
	proj := dir.scale(d.dot(dir))
	perp := d.sub(proj)
	return p.sub(perp.scale(2))
}

// applyCorrection nudges the entities referenced by c halfway (or per the
// spec's per-constraint sketch) toward satisfying it.
func (w *workspace) applyCorrection(c sketch.Constraint) {
	switch c.Kind {
	case sketch.Coincident:
		p1 := w.point(c.Points[0])
		p2 := w.point(c.Points[1])
		mid := p1.add(p2).scale(0.5)
		w.setPoint(c.Points[0], mid)
		w.setPoint(c.Points[1], mid)

	case sketch.Horizontal:
		s, e := w.lineStartEnd(c.Entity)
		midY := (s.Y + e.Y) / 2
		w.setLine(c.Entity, vec2{s.X, midY}, vec2{e.X, midY})

	case sketch.Vertical:
		s, e := w.lineStartEnd(c.Entity)
		midX := (s.X + e.X) / 2
		w.setLine(c.Entity, vec2{midX, s.Y}, vec2{midX, e.Y})

	case sketch.Distance:
		p1 := w.point(c.Points[0])
		p2 := w.point(c.Points[1])
		d := p2.sub(p1)
		dist := d.length()
		if dist < 1e-12 {
			return
		}
		dir := d.scale(1 / dist)
		correction := (c.Value - dist) / 2
		w.setPoint(c.Points[0], p1.sub(dir.scale(correction)))
		w.setPoint(c.Points[1], p2.add(dir.scale(correction)))

	case sketch.HorizontalDistance:
		p1 := w.point(c.Points[0])
		p2 := w.point(c.Points[1])
		dx := p2.X - p1.X
		sign := math.Copysign(1, dx)
		correction := (c.Value - math.Abs(dx)) / 2
		p1.X -= correction * sign
		p2.X += correction * sign
		w.setPoint(c.Points[0], p1)
		w.setPoint(c.Points[1], p2)

	case sketch.VerticalDistance:
		p1 := w.point(c.Points[0])
		p2 := w.point(c.Points[1])
		dy := p2.Y - p1.Y
		sign := math.Copysign(1, dy)
		correction := (c.Value - math.Abs(dy)) / 2
		p1.Y -= correction * sign
		p2.Y += correction * sign
		w.setPoint(c.Points[0], p1)
		w.setPoint(c.Points[1], p2)

	case sketch.Parallel:
		n1 := w.lineDir(c.Lines[0])
		n2 := w.lineDir(c.Lines[1])
		if n1.dot(n2) < 0 {
			n2 = n2.scale(-1)
		}
		avg := n1.add(n2).normalize()
		w.rotateLineTo(c.Lines[0], avg)
		w.rotateLineTo(c.Lines[1], avg)

	case sketch.Perpendicular:
		n1 := w.lineDir(c.Lines[0])
		n2 := w.lineDir(c.Lines[1])
		comp := n2.dot(n1)
		corrected := n2.sub(n1.scale(comp))
		w.rotateLineTo(c.Lines[1], corrected.normalize())

	case sketch.Angle:
		n1 := w.lineDir(c.Lines[0])
		target := n1.rotate(c.Value)
		w.rotateLineTo(c.Lines[1], target)

	case sketch.Tangent:
		w.applyTangent(c.Entities[0], c.Entities[1])

	case sketch.Equal:
		a, b := w.equalMeasures(c.Entities[0], c.Entities[1])
		avg := (a + b) / 2
		w.setMeasure(c.Entities[0], avg)
		w.setMeasure(c.Entities[1], avg)

	case sketch.Fix:
		w.setPoint(c.Point, v(c.Position))

	case sketch.Radius:
		w.setRadius(c.Entity, c.Value)

	case sketch.Symmetric:
		p1 := w.point(c.P1)
		p2 := w.point(c.P2)
		reflOfP1 := w.reflectAcross(c.Axis, p1)
		reflOfP2 := w.reflectAcross(c.Axis, p2)
		newP2 := p2.add(reflOfP1).scale(0.5)
		newP1 := p1.add(reflOfP2).scale(0.5)
		w.setPoint(c.P1, newP1)
		w.setPoint(c.P2, newP2)

	case sketch.DistancePointLine:
		a, _ := w.lineStartEnd(c.Line)
		dir := w.lineDir(c.Line)
		n := vec2{-dir.Y, dir.X}
		p := w.point(c.Point)
		d := signedDistancePointLine(p, a, dir)
		sign := math.Copysign(1, d)
		correction := (c.Value - math.Abs(d)) / 2
		w.setPoint(c.Point, p.add(n.scale(correction*sign)))
		s, e := w.lineStartEnd(c.Line)
		w.setLine(c.Line, s.sub(n.scale(correction*sign)), e.sub(n.scale(correction*sign)))
	}
}

func (w *workspace) rotateLineTo(id identity.EntityId, dir vec2) {
	s, e := w.lineStartEnd(id)
	mid := s.add(e).scale(0.5)
	half := e.sub(s).length() / 2
	w.setLine(id, mid.sub(dir.scale(half)), mid.add(dir.scale(half)))
}

func (w *workspace) setMeasure(id identity.EntityId, value float64) {
	e := w.entity(id)
	if e == nil {
		return
	}
	switch e.Geometry.Kind {
	case sketch.KindLine:
		mid := v(e.Geometry.Start).add(v(e.Geometry.End)).scale(0.5)
		dir := v(e.Geometry.End).sub(v(e.Geometry.Start)).normalize()
		e.Geometry.Start = pt(mid.sub(dir.scale(value / 2)))
		e.Geometry.End = pt(mid.add(dir.scale(value / 2)))
	default:
		e.Geometry.Radius = value
	}
}

func (w *workspace) applyTangent(lineId, circleId identity.EntityId) {
	a, _ := w.lineStartEnd(lineId)
	dir := w.lineDir(lineId)
	n := vec2{-dir.Y, dir.X}
	circle := w.entity(circleId)
	center := v(circle.Geometry.Center)
	d := signedDistancePointLine(center, a, dir)
	sign := math.Copysign(1, d)
	correction := (w.radius(circleId) - math.Abs(d)) / 2 * sign
	circle.Geometry.Center = pt(center.add(n.scale(correction)))
}

// referencedEntities lists every entity id a constraint touches, for DOF
// distribution and conflict-sharing detection.
func referencedEntities(c sketch.Constraint) []identity.EntityId {
	switch c.Kind {
	case sketch.Coincident:
		return []identity.EntityId{c.Points[0].EntityId, c.Points[1].EntityId}
	case sketch.Horizontal, sketch.Vertical, sketch.Radius:
		return []identity.EntityId{c.Entity}
	case sketch.Distance, sketch.HorizontalDistance, sketch.VerticalDistance:
		return []identity.EntityId{c.Points[0].EntityId, c.Points[1].EntityId}
	case sketch.Angle, sketch.Parallel, sketch.Perpendicular:
		return []identity.EntityId{c.Lines[0], c.Lines[1]}
	case sketch.Tangent, sketch.Equal:
		return []identity.EntityId{c.Entities[0], c.Entities[1]}
	case sketch.Symmetric:
		return []identity.EntityId{c.P1.EntityId, c.P2.EntityId, c.Axis}
	case sketch.Fix:
		return []identity.EntityId{c.Point.EntityId}
	case sketch.DistancePointLine:
		return []identity.EntityId{c.Point.EntityId, c.Line}
	}
	return nil
}

// signature builds a normalised, order-independent fingerprint for
// duplicate-constraint detection: kind, sorted referenced entity ids, and
// the value rounded to 6 decimals.
func signature(c sketch.Constraint) string {
	ids := referencedEntities(c)
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	sort.Strings(strs)
	rounded := math.Round(c.Value*1e6) / 1e6
	return fmt.Sprintf("%d|%v|%g", c.Kind, strs, rounded)
}

// Solve runs the solver to convergence or the iteration cap, returning
// structural diagnostics only (no per-constraint progress).
func Solve(s *sketch.Sketch) SolveResult {
	res, _ := solveCommon(s, false)
	return res
}

// SolveRelaxed runs the same solve but additionally tracks per-constraint
// error curves, for interactive editing where transient invalidity is
// tolerated.
func SolveRelaxed(s *sketch.Sketch) RelaxedSolveResult {
	res, progress := solveCommon(s, true)
	satisfied := 0
	for _, p := range progress {
		if p.Satisfied {
			satisfied++
		}
	}
	partial := 1.0
	if len(progress) > 0 {
		partial = float64(satisfied) / float64(len(progress))
	}
	return RelaxedSolveResult{
		SolveResult:       res,
		ConstraintResults: progress,
		SatisfiedCount:    satisfied,
		PartialProgress:   partial,
	}
}

func solveCommon(s *sketch.Sketch, trackProgress bool) (SolveResult, []ConstraintProgress) {
	w := newWorkspace(s)

	var active []activeConstraint
	for i, entry := range s.Constraints {
		if !entry.Suppressed {
			active = append(active, activeConstraint{index: i, c: entry.Constraint})
		}
	}

	var progress []ConstraintProgress
	var initialErrors []float64
	if trackProgress {
		progress = make([]ConstraintProgress, len(active))
		initialErrors = make([]float64, len(active))
		for i, ac := range active {
			initialErrors[i] = w.constraintError(ac.c)
			progress[i].Error = initialErrors[i]
		}
	}

	converged := false
	iterations := 0
	for iter := 0; iter < maxIterations; iter++ {
		maxErr := 0.0
		for i, ac := range active {
			errBefore := w.constraintError(ac.c)
			if errBefore > maxErr {
				maxErr = errBefore
			}
			w.applyCorrection(ac.c)
			if trackProgress {
				errAfter := w.constraintError(ac.c)
				progress[i].Error = errAfter
				if errAfter < epsilon {
					if progress[i].FirstSatisfiedIteration == nil {
						it := iter
						progress[i].FirstSatisfiedIteration = &it
					}
					progress[i].Satisfied = true
				}
			}
		}
		iterations = iter + 1
		if maxErr < epsilon {
			converged = true
			break
		}
	}

	if trackProgress {
		for i, ac := range active {
			final := w.constraintError(ac.c)
			progress[i].ErrorReduction = initialErrors[i] - final
		}
	}

	dof := computeDof(s)
	redundant := computeRedundant(s, active)
	conflicts := computeConflicts(s, active, converged, w)
	statuses := computeEntityStatuses(s, active, conflicts)

	return SolveResult{
		Converged:            converged,
		Iterations:           iterations,
		Dof:                  dof,
		RedundantConstraints: redundant,
		Conflicts:            conflicts,
		EntityStatuses:       statuses,
	}, progress
}

func computeDof(s *sketch.Sketch) int {
	total := 0
	for _, e := range s.Entities {
		total += e.Geometry.Kind.Dof()
	}
	for _, entry := range s.Constraints {
		if !entry.Suppressed {
			total -= entry.Constraint.Kind.Dof()
		}
	}
	return total
}

// activeConstraint pairs a constraint with its index in the sketch's
// Constraints slice, the index used by diagnostics to refer back to it.
type activeConstraint struct {
	index int
	c     sketch.Constraint
}

func computeRedundant(s *sketch.Sketch, active []activeConstraint) []int {
	seen := make(map[string]int)
	var redundant []int
	for _, ac := range active {
		sig := signature(ac.c)
		if _, dup := seen[sig]; dup {
			redundant = append(redundant, ac.index)
		} else {
			seen[sig] = ac.index
		}
	}

	redundant = append(redundant, transitivelyImpliedCoincidents(active)...)
	sort.Ints(redundant)
	return dedupInts(redundant)
}

// transitivelyImpliedCoincidents flags a Coincident constraint as redundant
// when its two points are already joined through Coincidents that come
// before it, so only the closing constraint of each cycle is flagged.
func transitivelyImpliedCoincidents(active []activeConstraint) []int {
	var coincidents []activeConstraint
	for _, ac := range active {
		if ac.c.Kind == sketch.Coincident {
			coincidents = append(coincidents, ac)
		}
	}

	// Process in the order the constraints were added. A Coincident is
	// redundant exactly when the two points it joins are already connected
	// through constraints seen so far - the classic cycle-edge-is-redundant
	// rule, applied incrementally so a triangle of three mutually coincident
	// points flags only the closing edge, not all three.
	var redundant []int
	uf := newUnionFind()
	for _, ac := range coincidents {
		a := ac.c.Points[0].EntityId.String() + ":" + fmt.Sprint(ac.c.Points[0].Index)
		b := ac.c.Points[1].EntityId.String() + ":" + fmt.Sprint(ac.c.Points[1].Index)
		if uf.connected(a, b) {
			redundant = append(redundant, ac.index)
			continue
		}
		uf.union(a, b)
	}
	return redundant
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind { return &unionFind{parent: make(map[string]string)} }

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func (u *unionFind) connected(a, b string) bool {
	if _, ok := u.parent[a]; !ok {
		return false
	}
	if _, ok := u.parent[b]; !ok {
		return false
	}
	return u.find(a) == u.find(b)
}

func dedupInts(xs []int) []int {
	out := xs[:0:0]
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func computeConflicts(s *sketch.Sketch, active []activeConstraint, converged bool, w *workspace) []int {
	if converged {
		return nil
	}

	unsatisfied := make(map[int]sketch.Constraint)
	for _, ac := range active {
		if w.constraintError(ac.c) >= epsilon {
			unsatisfied[ac.index] = ac.c
		}
	}

	conflictSet := make(map[int]bool)

	entityOf := func(c sketch.Constraint) []identity.EntityId { return referencedEntities(c) }

	idxs := make([]int, 0, len(unsatisfied))
	for i := range unsatisfied {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	for i := 0; i < len(idxs); i++ {
		for j := i + 1; j < len(idxs); j++ {
			ci, cj := unsatisfied[idxs[i]], unsatisfied[idxs[j]]
			if sharesEntity(entityOf(ci), entityOf(cj)) {
				conflictSet[idxs[i]] = true
				conflictSet[idxs[j]] = true
			}
		}
	}

	// hard-coded pair: Horizontal + Vertical on the same entity. A line
	// collapsed to a single point satisfies both simultaneously (shared
	// coordinate trivially equal), so only flag when at least one is still
	// unsatisfied.
	for _, a := range active {
		if a.c.Kind != sketch.Horizontal {
			continue
		}
		for _, b := range active {
			if b.c.Kind == sketch.Vertical && b.c.Entity == a.c.Entity {
				if w.constraintError(a.c) >= epsilon || w.constraintError(b.c) >= epsilon {
					conflictSet[a.index] = true
					conflictSet[b.index] = true
				}
			}
		}
	}

	// hard-coded pair: two Distance constraints on the same pair, differing values
	for i := 0; i < len(active); i++ {
		if active[i].c.Kind != sketch.Distance {
			continue
		}
		for j := i + 1; j < len(active); j++ {
			if active[j].c.Kind != sketch.Distance {
				continue
			}
			if samePointPair(active[i].c.Points, active[j].c.Points) && active[i].c.Value != active[j].c.Value {
				conflictSet[active[i].index] = true
				conflictSet[active[j].index] = true
			}
		}
	}

	out := make([]int, 0, len(conflictSet))
	for i := range conflictSet {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func sharesEntity(a, b []identity.EntityId) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func samePointPair(a, b [2]sketch.ConstraintPoint) bool {
	same := func(p, q sketch.ConstraintPoint) bool { return p.EntityId == q.EntityId && p.Index == q.Index }
	return (same(a[0], b[0]) && same(a[1], b[1])) || (same(a[0], b[1]) && same(a[1], b[0]))
}

func computeEntityStatuses(s *sketch.Sketch, active []activeConstraint, conflicts []int) []EntityStatus {
	conflictIdx := make(map[int]bool, len(conflicts))
	for _, i := range conflicts {
		conflictIdx[i] = true
	}

	constrainedDof := make(map[identity.EntityId]int)
	inConflict := make(map[identity.EntityId]bool)

	for _, ac := range active {
		ids := referencedEntities(ac.c)
		switch ac.c.Kind {
		case sketch.Fix:
			constrainedDof[ac.c.Point.EntityId] += 2
		case sketch.Symmetric:
			constrainedDof[ac.c.P1.EntityId] += 2
			constrainedDof[ac.c.P2.EntityId] += 2
		default:
			for _, id := range ids {
				constrainedDof[id] += 1
			}
		}
		if conflictIdx[ac.index] {
			for _, id := range ids {
				inConflict[id] = true
			}
		}
	}

	statuses := make([]EntityStatus, 0, len(s.Entities))
	for _, e := range s.Entities {
		total := e.Geometry.Kind.Dof()
		constrained := constrainedDof[e.Id]
		remaining := total - constrained
		statuses = append(statuses, EntityStatus{
			EntityId:           e.Id,
			TotalDof:           total,
			ConstrainedDof:     constrained,
			Remaining:          remaining,
			IsFullyConstrained: remaining == 0,
			IsOverConstrained:  remaining < 0,
			InvolvedInConflict: inConflict[e.Id],
		})
	}
	return statuses
}
