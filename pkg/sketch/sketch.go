// Package sketch holds the 2D sketch data model: entities, constraints with
// suppression, and an append-only operation history used to rebuild that
// history after loading a pre-history snapshot.
package sketch

import (
	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/variables"
)

// GeometryKind tags the variant of a Geometry value.
type GeometryKind int

const (
	KindLine GeometryKind = iota
	KindCircle
	KindArc
	KindPoint
	KindEllipse
)

// Geometry is a closed-variant 2D sketch primitive. Only the fields for Kind
// are meaningful.
type Geometry struct {
	Kind GeometryKind `yaml:"kind" json:"kind"`

	Start      geom.Point2D `yaml:"start,omitempty" json:"start,omitempty"` // Line
	End        geom.Point2D `yaml:"end,omitempty" json:"end,omitempty"`     // Line
	Center     geom.Point2D `yaml:"center,omitempty" json:"center,omitempty"` // Circle, Arc, Ellipse
	Radius     float64      `yaml:"radius,omitempty" json:"radius,omitempty"` // Circle, Arc
	StartAngle float64      `yaml:"startAngle,omitempty" json:"startAngle,omitempty"` // Arc, radians
	EndAngle   float64      `yaml:"endAngle,omitempty" json:"endAngle,omitempty"`     // Arc, radians
	Pos        geom.Point2D `yaml:"pos,omitempty" json:"pos,omitempty"`               // Point
	SemiMajor  float64      `yaml:"semiMajor,omitempty" json:"semiMajor,omitempty"`   // Ellipse
	SemiMinor  float64      `yaml:"semiMinor,omitempty" json:"semiMinor,omitempty"`   // Ellipse
	Rotation   float64      `yaml:"rotation,omitempty" json:"rotation,omitempty"`     // Ellipse, radians
}

func Line(start, end geom.Point2D) Geometry { return Geometry{Kind: KindLine, Start: start, End: end} }
func Circle(center geom.Point2D, radius float64) Geometry {
	return Geometry{Kind: KindCircle, Center: center, Radius: radius}
}
func Arc(center geom.Point2D, radius, startAngle, endAngle float64) Geometry {
	return Geometry{Kind: KindArc, Center: center, Radius: radius, StartAngle: startAngle, EndAngle: endAngle}
}
func Point(pos geom.Point2D) Geometry { return Geometry{Kind: KindPoint, Pos: pos} }
func Ellipse(center geom.Point2D, semiMajor, semiMinor, rotation float64) Geometry {
	return Geometry{Kind: KindEllipse, Center: center, SemiMajor: semiMajor, SemiMinor: semiMinor, Rotation: rotation}
}

// Dof is the degrees of freedom contributed by one entity of this kind.
func (k GeometryKind) Dof() int {
	switch k {
	case KindPoint:
		return 2
	case KindLine:
		return 4
	case KindCircle:
		return 3
	case KindArc:
		return 5
	case KindEllipse:
		return 5
	default:
		return 0
	}
}

// Entity is one piece of sketch geometry, optionally a construction-only
// reference that the solver still sees but the region detector skips, so it
// never becomes a boundary.
type Entity struct {
	Id             identity.EntityId `yaml:"id" json:"id"`
	Geometry       Geometry          `yaml:"geometry" json:"geometry"`
	IsConstruction bool              `yaml:"isConstruction,omitempty" json:"isConstruction,omitempty"`
}

// ConstraintPoint names an anchor on an entity: for Line 0=start/1=end; Arc
// 0=center/1=start/2=end; Ellipse 0=center/1=major-tip/2=minor-tip; Circle
// 0=center; Point 0=pos. The sketch-origin sentinel uses identity.Nil.
type ConstraintPoint struct {
	EntityId identity.EntityId `yaml:"entityId" json:"entityId"`
	Index    uint8             `yaml:"index" json:"index"`
}

// DimensionStyle is the presentation and live-expression binding of a
// dimensional constraint.
type DimensionStyle struct {
	Driven     bool         `yaml:"driven,omitempty" json:"driven,omitempty"`
	Offset     geom.Point2D `yaml:"offset,omitempty" json:"offset,omitempty"`
	Expression string       `yaml:"expression,omitempty" json:"expression,omitempty"` // empty means "no live expression"
}

// DefaultDimensionStyle mirrors the reference offset above the dimension
// line, driving (not reference-only) by default.
func DefaultDimensionStyle() DimensionStyle {
	return DimensionStyle{Offset: geom.Point2D{X: 0, Y: 0.5}}
}

// ConstraintKind is the closed, 15-member set of constraint variants.
type ConstraintKind int

const (
	Coincident ConstraintKind = iota
	Horizontal
	Vertical
	Distance
	HorizontalDistance
	VerticalDistance
	Angle
	Radius
	Parallel
	Perpendicular
	Tangent
	Equal
	Symmetric
	Fix
	DistancePointLine
)

// Dof is the DOF cost a constraint of this kind removes when active.
func (k ConstraintKind) Dof() int {
	switch k {
	case Coincident, Fix, Symmetric:
		return 2
	default:
		return 1
	}
}

// Constraint is a closed-variant sketch constraint. Only the fields
// relevant to Kind are populated.
type Constraint struct {
	Kind ConstraintKind `yaml:"kind" json:"kind"`

	Points   [2]ConstraintPoint    `yaml:"points,omitempty" json:"points,omitempty"`     // Coincident
	Entity   identity.EntityId     `yaml:"entity,omitempty" json:"entity,omitempty"`     // Horizontal, Vertical, Radius
	Lines    [2]identity.EntityId  `yaml:"lines,omitempty" json:"lines,omitempty"`
	Entities [2]identity.EntityId  `yaml:"entities,omitempty" json:"entities,omitempty"` // Tangent, Equal

	Value float64         `yaml:"value,omitempty" json:"value,omitempty"`
	Style *DimensionStyle `yaml:"style,omitempty" json:"style,omitempty"`

	P1   ConstraintPoint   `yaml:"p1,omitempty" json:"p1,omitempty"`     // Symmetric
	P2   ConstraintPoint   `yaml:"p2,omitempty" json:"p2,omitempty"`     // Symmetric
	Axis identity.EntityId `yaml:"axis,omitempty" json:"axis,omitempty"` // Symmetric

	Point    ConstraintPoint `yaml:"point,omitempty" json:"point,omitempty"` // Fix, DistancePointLine
	Position geom.Point2D    `yaml:"position,omitempty" json:"position,omitempty"` // Fix

	Line identity.EntityId `yaml:"line,omitempty" json:"line,omitempty"` // DistancePointLine
}

// ConstraintEntry wraps a constraint with its suppression state.
type ConstraintEntry struct {
	Constraint Constraint `yaml:"constraint" json:"constraint"`
	Suppressed bool       `yaml:"suppressed,omitempty" json:"suppressed,omitempty"`
}

// OperationKind tags a history entry.
type OperationKind int

const (
	OpAddGeometry OperationKind = iota
	OpAddConstraint
)

// Operation is one append-only history entry.
type Operation struct {
	Kind       OperationKind     `yaml:"kind" json:"kind"`
	EntityId   identity.EntityId `yaml:"entityId,omitempty" json:"entityId,omitempty"` // AddGeometry
	Geometry   Geometry          `yaml:"geometry,omitempty" json:"geometry,omitempty"` // AddGeometry
	Constraint Constraint        `yaml:"constraint,omitempty" json:"constraint,omitempty"` // AddConstraint
}

// Sketch is a 2D sketch: its plane, entities, constraints, an append-only
// history, and external references bound to 3D topology that was projected
// into it.
type Sketch struct {
	Plane              geom.SketchPlane                       `yaml:"plane" json:"plane"`
	Entities           []Entity                               `yaml:"entities,omitempty" json:"entities,omitempty"`
	Constraints        []ConstraintEntry                      `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	History            []Operation                            `yaml:"history,omitempty" json:"history,omitempty"`
	ExternalReferences map[identity.EntityId]identity.TopoId `yaml:"externalReferences,omitempty" json:"externalReferences,omitempty"`
}

// New creates an empty sketch on the given plane.
func New(plane geom.SketchPlane) *Sketch {
	return &Sketch{
		Plane:              plane,
		ExternalReferences: make(map[identity.EntityId]identity.TopoId),
	}
}

// AddEntity appends a new entity and its AddGeometry history entry.
func (s *Sketch) AddEntity(g Geometry) identity.EntityId {
	id := identity.New()
	s.Entities = append(s.Entities, Entity{Id: id, Geometry: g})
	s.History = append(s.History, Operation{Kind: OpAddGeometry, EntityId: id, Geometry: g})
	return id
}

// AddConstraint appends an active constraint and its history entry.
func (s *Sketch) AddConstraint(c Constraint) {
	s.Constraints = append(s.Constraints, ConstraintEntry{Constraint: c})
	s.History = append(s.History, Operation{Kind: OpAddConstraint, Constraint: c})
}

// AddConstraintWithSuppression appends a constraint with an explicit initial
// suppression state.
func (s *Sketch) AddConstraintWithSuppression(c Constraint, suppressed bool) {
	s.Constraints = append(s.Constraints, ConstraintEntry{Constraint: c, Suppressed: suppressed})
	s.History = append(s.History, Operation{Kind: OpAddConstraint, Constraint: c})
}

// ToggleConstraintSuppression flips a constraint's suppression by index,
// returning the new state.
func (s *Sketch) ToggleConstraintSuppression(index int) bool {
	if index < 0 || index >= len(s.Constraints) {
		return false
	}
	s.Constraints[index].Suppressed = !s.Constraints[index].Suppressed
	return s.Constraints[index].Suppressed
}

// SetConstraintSuppression sets a constraint's suppression by index.
func (s *Sketch) SetConstraintSuppression(index int, suppressed bool) {
	if index < 0 || index >= len(s.Constraints) {
		return
	}
	s.Constraints[index].Suppressed = suppressed
}

// ActiveConstraints returns every non-suppressed constraint.
func (s *Sketch) ActiveConstraints() []Constraint {
	out := make([]Constraint, 0, len(s.Constraints))
	for _, e := range s.Constraints {
		if !e.Suppressed {
			out = append(out, e.Constraint)
		}
	}
	return out
}

// EnsureHistory backfills history from the current entities/constraints
// arrays when history is empty, migrating a pre-history snapshot.
func (s *Sketch) EnsureHistory() {
	if len(s.History) > 0 {
		return
	}
	if len(s.Entities) == 0 && len(s.Constraints) == 0 {
		return
	}
	for _, e := range s.Entities {
		s.History = append(s.History, Operation{Kind: OpAddGeometry, EntityId: e.Id, Geometry: e.Geometry})
	}
	for _, c := range s.Constraints {
		s.History = append(s.History, Operation{Kind: OpAddConstraint, Constraint: c.Constraint})
	}
}

// ResolveExpressions re-evaluates every active constraint's style expression
// against store and writes the result back into Value. A failed or absent
// expression leaves the previous value untouched and does not count toward
// the returned resolved count.
func (s *Sketch) ResolveExpressions(store *variables.Store) int {
	resolved := 0
	for i := range s.Constraints {
		entry := &s.Constraints[i]
		if entry.Suppressed || entry.Constraint.Style == nil || entry.Constraint.Style.Expression == "" {
			continue
		}
		value, err := variables.Evaluate(entry.Constraint.Style.Expression, store)
		if err != nil {
			continue
		}
		entry.Constraint.Value = value
		resolved++
	}
	return resolved
}
