// Package feature holds the Feature Graph: a DAG of parametric features,
// its topological sort, suppression, a rollback pointer, and reference
// collection for zombie detection. Parameters are a closed tagged-variant
// value, mirroring the other domain packages' ParameterValue-style types.
package feature

import (
	"fmt"
	"sort"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/sketch"
	"github.com/archkit/cadcore/pkg/variables"
)

// FeatureType is the closed set of feature kinds the graph can hold.
type FeatureType int

const (
	TypeSketch FeatureType = iota
	TypeExtrude
	TypeRevolve
	TypeCut
	TypePlane
	TypeAxis
	TypePoint
)

func (t FeatureType) String() string {
	switch t {
	case TypeSketch:
		return "Sketch"
	case TypeExtrude:
		return "Extrude"
	case TypeRevolve:
		return "Revolve"
	case TypeCut:
		return "Cut"
	case TypePlane:
		return "Plane"
	case TypeAxis:
		return "Axis"
	case TypePoint:
		return "Point"
	default:
		return "Unknown"
	}
}

// ParameterKind tags a ParameterValue's active variant.
type ParameterKind int

const (
	ParamFloat ParameterKind = iota
	ParamString
	ParamBool
	ParamSketch
	ParamReference
	ParamList
	ParamProfileRegions
)

// ParameterValue is a closed-variant feature parameter. Only the fields for
// Kind are meaningful.
type ParameterValue struct {
	Kind ParameterKind `yaml:"kind" json:"kind"`

	Float  float64 `yaml:"float,omitempty" json:"float,omitempty"`
	String string  `yaml:"string,omitempty" json:"string,omitempty"`
	Bool   bool    `yaml:"bool,omitempty" json:"bool,omitempty"`

	Sketch *sketch.Sketch `yaml:"sketch,omitempty" json:"sketch,omitempty"`

	Reference identity.TopoId `yaml:"reference,omitempty" json:"reference,omitempty"`

	List []ParameterValue `yaml:"list,omitempty" json:"list,omitempty"`

	ProfileRegions [][][]geom.Point2D `yaml:"profileRegions,omitempty" json:"profileRegions,omitempty"`
}

func Float(v float64) ParameterValue  { return ParameterValue{Kind: ParamFloat, Float: v} }
func String(v string) ParameterValue  { return ParameterValue{Kind: ParamString, String: v} }
func Bool(v bool) ParameterValue      { return ParameterValue{Kind: ParamBool, Bool: v} }
func SketchParam(s *sketch.Sketch) ParameterValue {
	return ParameterValue{Kind: ParamSketch, Sketch: s}
}
func Reference(id identity.TopoId) ParameterValue {
	return ParameterValue{Kind: ParamReference, Reference: id}
}
func List(items []ParameterValue) ParameterValue { return ParameterValue{Kind: ParamList, List: items} }
func ProfileRegions(regions [][][]geom.Point2D) ParameterValue {
	return ParameterValue{Kind: ParamProfileRegions, ProfileRegions: regions}
}

// Feature is one node of the graph.
type Feature struct {
	Id           identity.EntityId         `yaml:"id" json:"id"`
	Name         string                    `yaml:"name" json:"name"`
	Type         FeatureType               `yaml:"type" json:"type"`
	Parameters   map[string]ParameterValue `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Dependencies []identity.EntityId       `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Suppressed   bool                      `yaml:"suppressed,omitempty" json:"suppressed,omitempty"`
}

// CycleError reports a cycle found during topological sort, carrying the
// full cyclic path for diagnostics.
type CycleError struct {
	Path []identity.EntityId
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("feature: cycle detected in feature graph (%d features in cycle)", len(e.Path))
}

// MissingDependencyError reports a feature referencing a dependency id with
// no corresponding node.
type MissingDependencyError struct {
	Feature    identity.EntityId
	Dependency identity.EntityId
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("feature: %s depends on missing feature %s", e.Feature, e.Dependency)
}

// Graph is the Feature Graph: (nodes, sort_order). When SortOrder is
// non-empty it is guaranteed to be a valid topological order of Nodes;
// AddFeature, RemoveFeature and SetDependencies invalidate it, while
// SetSuppressed and SetRollback leave it in place.
type Graph struct {
	Nodes      map[identity.EntityId]*Feature `yaml:"nodes" json:"nodes"`
	SortOrder  []identity.EntityId            `yaml:"sortOrder,omitempty" json:"sortOrder,omitempty"`
	RollbackAt *identity.EntityId             `yaml:"rollbackAt,omitempty" json:"rollbackAt,omitempty"`
	Variables  *variables.Store               `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// New creates an empty feature graph with an empty embedded variable store.
func New() *Graph {
	return &Graph{
		Nodes:     make(map[identity.EntityId]*Feature),
		Variables: variables.NewStore(),
	}
}

// AddFeature inserts f, invalidating the cached sort order.
func (g *Graph) AddFeature(f *Feature) {
	g.Nodes[f.Id] = f
	g.SortOrder = nil
}

// RemoveFeature deletes a feature by id, invalidating the cached sort order.
func (g *Graph) RemoveFeature(id identity.EntityId) {
	delete(g.Nodes, id)
	g.SortOrder = nil
}

// SetDependencies replaces a feature's dependency list, invalidating the
// cached sort order.
func (g *Graph) SetDependencies(id identity.EntityId, deps []identity.EntityId) {
	if f, ok := g.Nodes[id]; ok {
		f.Dependencies = deps
		g.SortOrder = nil
	}
}

// SetSuppressed toggles a feature's suppression flag.
func (g *Graph) SetSuppressed(id identity.EntityId, suppressed bool) {
	if f, ok := g.Nodes[id]; ok {
		f.Suppressed = suppressed
	}
}

// SetRollback sets or clears the rollback marker.
func (g *Graph) SetRollback(id *identity.EntityId) {
	g.RollbackAt = id
}

// dfsColor is a tri-color DFS mark.
type dfsColor int

const (
	white dfsColor = iota
	gray
	black
)

// Sort computes a topological order over every node via depth-first search
// with temporary (gray) and permanent (black) marks, raising a *CycleError
// if the graph is not a DAG. Nodes are visited in ascending EntityId string
// order so the result never depends on map iteration order. The result is
// cached in SortOrder.
func (g *Graph) Sort() ([]identity.EntityId, error) {
	color := make(map[identity.EntityId]dfsColor, len(g.Nodes))
	var order []identity.EntityId
	var path []identity.EntityId

	ids := make([]identity.EntityId, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var visit func(id identity.EntityId) error
	visit = func(id identity.EntityId) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			cyclePath := append([]identity.EntityId(nil), path...)
			cyclePath = append(cyclePath, id)
			return &CycleError{Path: cyclePath}
		}

		f, ok := g.Nodes[id]
		if !ok {
			return nil
		}

		color[id] = gray
		path = append(path, id)

		deps := append([]identity.EntityId(nil), f.Dependencies...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].String() < deps[j].String() })
		for _, dep := range deps {
			if _, ok := g.Nodes[dep]; !ok {
				return &MissingDependencyError{Feature: id, Dependency: dep}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	g.SortOrder = order
	return order, nil
}

// ActiveOrder returns the cached sort order with every feature at or past
// the rollback marker removed, treating them as non-existent for
// regeneration, selection validation, and rendering.
func (g *Graph) ActiveOrder() []identity.EntityId {
	if g.RollbackAt == nil {
		return g.SortOrder
	}
	out := make([]identity.EntityId, 0, len(g.SortOrder))
	for _, id := range g.SortOrder {
		if id == *g.RollbackAt {
			break
		}
		out = append(out, id)
	}
	return out
}

// CollectReferences walks every non-suppressed, non-rolled-back feature's
// parameters (recursively through List) and returns every referenced
// TopoId, in feature-sort order then parameter-name order.
func (g *Graph) CollectReferences() []identity.TopoId {
	var refs []identity.TopoId
	for _, id := range g.ActiveOrder() {
		f, ok := g.Nodes[id]
		if !ok || f.Suppressed {
			continue
		}
		names := make([]string, 0, len(f.Parameters))
		for name := range f.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			collectFromValue(f.Parameters[name], &refs)
		}
	}
	return refs
}

func collectFromValue(v ParameterValue, refs *[]identity.TopoId) {
	switch v.Kind {
	case ParamReference:
		*refs = append(*refs, v.Reference)
	case ParamList:
		for _, item := range v.List {
			collectFromValue(item, refs)
		}
	}
}
