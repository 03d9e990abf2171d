package feature

import (
	"fmt"

	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/variables"

	"gopkg.in/yaml.v3"
)

// ToYAML serialises the whole graph — features, embedded sketches, and the
// variable store — as canonical YAML.
func (g *Graph) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("feature: marshal graph: %w", err)
	}
	return data, nil
}

// FromYAML deserialises a graph snapshot and normalises it for use: the
// variable store's name index is rebuilt, the cached sort order is cleared
// (regenerated on first Sort), and every embedded sketch with an empty
// history gets one backfilled from its flattened entity/constraint arrays.
func FromYAML(data []byte) (*Graph, error) {
	g := New()
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("feature: unmarshal graph: %w", err)
	}
	g.Normalize()
	return g, nil
}

// Normalize restores the invariants a freshly deserialised graph may lack.
// Safe to call on any graph; it never changes regeneration semantics.
func (g *Graph) Normalize() {
	if g.Nodes == nil {
		g.Nodes = make(map[identity.EntityId]*Feature)
	}
	if g.Variables == nil {
		g.Variables = variables.NewStore()
	}
	g.Variables.RebuildIndex()
	g.SortOrder = nil
	for _, f := range g.Nodes {
		for _, p := range f.Parameters {
			if p.Kind == ParamSketch && p.Sketch != nil {
				p.Sketch.EnsureHistory()
			}
		}
	}
}
