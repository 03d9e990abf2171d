package sketch

import (
	"testing"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/variables"
)

func TestSketch_EnsureHistory_BackfillsFromFlatArrays(t *testing.T) {
	s := New(geom.XYPlane())
	s.Entities = append(s.Entities, Entity{Id: identity.New(), Geometry: Point(geom.Point2D{})})
	s.Constraints = append(s.Constraints, ConstraintEntry{Constraint: Constraint{Kind: Fix}})

	s.EnsureHistory()

	if len(s.History) != 2 {
		t.Fatalf("expected 2 backfilled history entries, got %d", len(s.History))
	}
	if s.History[0].Kind != OpAddGeometry || s.History[1].Kind != OpAddConstraint {
		t.Fatalf("expected geometry then constraint ops, got %+v", s.History)
	}
}

func TestSketch_EnsureHistory_NoOpWhenAlreadyPresent(t *testing.T) {
	s := New(geom.XYPlane())
	s.AddEntity(Point(geom.Point2D{}))
	before := len(s.History)
	s.EnsureHistory()
	if len(s.History) != before {
		t.Fatalf("ensure_history must not duplicate existing entries")
	}
}

func TestSketch_ActiveConstraints_SkipsSuppressed(t *testing.T) {
	s := New(geom.XYPlane())
	s.AddConstraint(Constraint{Kind: Horizontal})
	s.AddConstraintWithSuppression(Constraint{Kind: Vertical}, true)

	active := s.ActiveConstraints()
	if len(active) != 1 || active[0].Kind != Horizontal {
		t.Fatalf("expected only the non-suppressed Horizontal constraint, got %+v", active)
	}
}

func TestSketch_ToggleConstraintSuppression_Involutive(t *testing.T) {
	s := New(geom.XYPlane())
	s.AddConstraint(Constraint{Kind: Horizontal})

	first := s.ToggleConstraintSuppression(0)
	second := s.ToggleConstraintSuppression(0)
	if !first || second {
		t.Fatalf("toggling twice should return to the original (non-suppressed) state")
	}
}

func TestSketch_ResolveExpressions_FailureLeavesValueIntact(t *testing.T) {
	s := New(geom.XYPlane())
	s.AddConstraint(Constraint{
		Kind:  Radius,
		Value: 5,
		Style: &DimensionStyle{Expression: "@missing"},
	})

	store := variables.NewStore()
	resolved := s.ResolveExpressions(store)

	if resolved != 0 {
		t.Fatalf("expected 0 resolved expressions, got %d", resolved)
	}
	if s.Constraints[0].Constraint.Value != 5 {
		t.Fatalf("failed resolution must leave the previous value intact, got %v", s.Constraints[0].Constraint.Value)
	}
}

func TestSketch_ResolveExpressions_WritesBackValue(t *testing.T) {
	s := New(geom.XYPlane())
	s.AddConstraint(Constraint{
		Kind:  Radius,
		Value: 0,
		Style: &DimensionStyle{Expression: "2 + 3"},
	})

	store := variables.NewStore()
	resolved := s.ResolveExpressions(store)

	if resolved != 1 {
		t.Fatalf("expected 1 resolved expression, got %d", resolved)
	}
	if s.Constraints[0].Constraint.Value != 5 {
		t.Fatalf("expected resolved value 5, got %v", s.Constraints[0].Constraint.Value)
	}
}
