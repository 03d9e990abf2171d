package solver

import (
	"math"
	"testing"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/sketch"
)

func closeEnough(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestSolve_CoincidentConverges(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 10, Y: 10}))
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
	})

	res := Solve(s)
	if !res.Converged {
		t.Fatalf("expected convergence, got %+v", res)
	}

	pa := findEntity(s, a).Geometry.Pos
	pb := findEntity(s, b).Geometry.Pos
	if !closeEnough(pa.X, pb.X) || !closeEnough(pa.Y, pb.Y) {
		t.Fatalf("expected coincident points, got %+v and %+v", pa, pb)
	}
}

// TestSolve_RectangleConverges exercises the literal end-to-end scenario: a
// rectangle sketch built from four lines, four coincident corner
// constraints, two horizontal and two vertical constraints, and a distance
// (width) and a distance (height) constraint, should converge with no
// conflicts (the rectangle keeps two translational degrees of freedom).
func TestSolve_RectangleConverges(t *testing.T) {
	s := sketch.New(geom.XYPlane())

	bottom := s.AddEntity(sketch.Line(geom.Point2D{X: 0, Y: 0}, geom.Point2D{X: 9, Y: 1}))
	right := s.AddEntity(sketch.Line(geom.Point2D{X: 9, Y: 1}, geom.Point2D{X: 11, Y: 6}))
	top := s.AddEntity(sketch.Line(geom.Point2D{X: 11, Y: 6}, geom.Point2D{X: 1, Y: 4}))
	left := s.AddEntity(sketch.Line(geom.Point2D{X: 1, Y: 4}, geom.Point2D{X: 0, Y: 0}))

	s.AddConstraint(sketch.Constraint{Kind: sketch.Horizontal, Entity: bottom})
	s.AddConstraint(sketch.Constraint{Kind: sketch.Horizontal, Entity: top})
	s.AddConstraint(sketch.Constraint{Kind: sketch.Vertical, Entity: right})
	s.AddConstraint(sketch.Constraint{Kind: sketch.Vertical, Entity: left})

	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: bottom, Index: 1}, {EntityId: right, Index: 0}},
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: right, Index: 1}, {EntityId: top, Index: 0}},
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: top, Index: 1}, {EntityId: left, Index: 0}},
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: left, Index: 1}, {EntityId: bottom, Index: 0}},
	})

	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: bottom, Index: 0}, {EntityId: bottom, Index: 1}},
		Value:  10,
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: bottom, Index: 0}, {EntityId: left, Index: 0}},
		Value:  5,
	})

	res := Solve(s)
	if !res.Converged {
		t.Fatalf("expected rectangle to converge, got %+v", res)
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", res.Conflicts)
	}
}

func TestSolve_DistanceConstraint(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 1, Y: 0}))
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
		Value:  5,
	})

	res := Solve(s)
	if !res.Converged {
		t.Fatalf("expected convergence, got %+v", res)
	}

	pa := findEntity(s, a).Geometry.Pos
	pb := findEntity(s, b).Geometry.Pos
	dist := math.Hypot(pb.X-pa.X, pb.Y-pa.Y)
	if !closeEnough(dist, 5) {
		t.Fatalf("expected distance 5, got %v", dist)
	}
}

// TestSolve_RedundantCoincidentLoop mirrors the boundary case of three
// points pairwise coincident (A-B, B-C, A-C): the third constraint is
// implied by the first two and should be flagged redundant.
func TestSolve_RedundantCoincidentLoop(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 1, Y: 1}))
	c := s.AddEntity(sketch.Point(geom.Point2D{X: 2, Y: 2}))

	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: b, Index: 0}, {EntityId: c, Index: 0}},
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: c, Index: 0}},
	})

	res := Solve(s)
	if len(res.RedundantConstraints) != 1 || res.RedundantConstraints[0] != 2 {
		t.Fatalf("expected constraint index 2 (A-C) flagged redundant, got %v", res.RedundantConstraints)
	}
}

// TestSolve_ConflictingDistances covers two Distance constraints on the same
// point pair with differing values: they can never both be satisfied.
func TestSolve_ConflictingDistances(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 1, Y: 0}))

	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
		Value:  5,
	})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
		Value:  9,
	})

	res := Solve(s)
	if res.Converged {
		t.Fatalf("expected non-convergence with conflicting distances")
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("expected both constraints flagged as conflicting, got %v", res.Conflicts)
	}
}

// TestSolve_HorizontalVerticalCollapseNotConflict covers the edge case where
// a line's Horizontal and Vertical constraints both reduce it to a single
// point: trivially satisfiable together, so must not be reported as a
// conflict even though nothing else pins the point down.
func TestSolve_HorizontalVerticalCollapseNotConflict(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	line := s.AddEntity(sketch.Line(geom.Point2D{X: 3, Y: 3}, geom.Point2D{X: 3, Y: 3}))
	s.AddConstraint(sketch.Constraint{Kind: sketch.Horizontal, Entity: line})
	s.AddConstraint(sketch.Constraint{Kind: sketch.Vertical, Entity: line})

	res := Solve(s)
	if !res.Converged {
		t.Fatalf("expected a degenerate point line to satisfy both H and V, got %+v", res)
	}
	for _, c := range res.Conflicts {
		if c == 0 || c == 1 {
			t.Fatalf("collapsed-to-point H+V must not be flagged as a conflict, got %v", res.Conflicts)
		}
	}
}

func TestSolve_RadiusConstraint(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	circ := s.AddEntity(sketch.Circle(geom.Point2D{X: 0, Y: 0}, 1))
	s.AddConstraint(sketch.Constraint{Kind: sketch.Radius, Entity: circ, Value: 7})

	res := Solve(s)
	if !res.Converged {
		t.Fatalf("expected convergence, got %+v", res)
	}
	if !closeEnough(findEntity(s, circ).Geometry.Radius, 7) {
		t.Fatalf("expected radius 7, got %v", findEntity(s, circ).Geometry.Radius)
	}
}

func TestSolve_SuppressedConstraintIgnored(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 5, Y: 5}))
	s.AddConstraintWithSuppression(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
	}, true)

	res := Solve(s)
	if !res.Converged {
		t.Fatalf("a sketch with only a suppressed constraint should trivially converge, got %+v", res)
	}
	pb := findEntity(s, b).Geometry.Pos
	if !closeEnough(pb.X, 5) || !closeEnough(pb.Y, 5) {
		t.Fatalf("suppressed constraint must not move entities, got %+v", pb)
	}
}

func TestSolveRelaxed_TracksPerConstraintProgress(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 10, Y: 0}))
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Coincident,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
	})

	res := SolveRelaxed(s)
	if len(res.ConstraintResults) != 1 {
		t.Fatalf("expected one tracked constraint, got %d", len(res.ConstraintResults))
	}
	cr := res.ConstraintResults[0]
	if !cr.Satisfied || cr.FirstSatisfiedIteration == nil {
		t.Fatalf("expected the sole constraint to be satisfied with a recorded iteration, got %+v", cr)
	}
	if cr.ErrorReduction <= 0 {
		t.Fatalf("expected positive error reduction, got %v", cr.ErrorReduction)
	}
	if res.SatisfiedCount != 1 || res.PartialProgress != 1 {
		t.Fatalf("expected full progress, got %+v", res)
	}
}

func TestSolve_DofAccounting(t *testing.T) {
	s := sketch.New(geom.XYPlane())
	a := s.AddEntity(sketch.Point(geom.Point2D{X: 0, Y: 0}))
	b := s.AddEntity(sketch.Point(geom.Point2D{X: 1, Y: 1}))
	// 4 dof total (2 points x 2 dof), minus 2 for Fix on a, minus 1 for
	// Distance between a and b = 1 dof remaining.
	s.AddConstraint(sketch.Constraint{Kind: sketch.Fix, Point: sketch.ConstraintPoint{EntityId: a, Index: 0}, Position: geom.Point2D{X: 0, Y: 0}})
	s.AddConstraint(sketch.Constraint{
		Kind:   sketch.Distance,
		Points: [2]sketch.ConstraintPoint{{EntityId: a, Index: 0}, {EntityId: b, Index: 0}},
		Value:  3,
	})

	res := Solve(s)
	if res.Dof != 1 {
		t.Fatalf("expected 1 remaining dof, got %d", res.Dof)
	}
}

func findEntity(s *sketch.Sketch, id identity.EntityId) sketch.Entity {
	for _, e := range s.Entities {
		if e.Id == id {
			return e
		}
	}
	return sketch.Entity{}
}
