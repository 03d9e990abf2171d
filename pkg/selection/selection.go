// Package selection tracks which topological entities a user (or a
// downstream tool) currently has picked, grouped by rank filter, and
// validates that selection against a registry after regeneration.
package selection

import (
	"sort"

	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/registry"
)

// Filter restricts Select to entities of a given rank, or any rank.
type Filter int

const (
	FilterAny Filter = iota
	FilterFace
	FilterEdge
	FilterVertex
	FilterBody
)

func (f Filter) matches(id identity.TopoId) bool {
	switch f {
	case FilterAny:
		return true
	case FilterFace:
		return id.Rank == identity.RankFace
	case FilterEdge:
		return id.Rank == identity.RankEdge
	case FilterVertex:
		return id.Rank == identity.RankVertex
	case FilterBody:
		switch id.Rank {
		case identity.RankSolid, identity.RankShell, identity.RankCompSolid, identity.RankCompound:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// Group is a named, saved snapshot of a selection.
type Group struct {
	Name  string
	Items map[identity.TopoId]struct{}
}

// Report is the outcome of validating a selection against a registry: the
// ids that still resolve, and the ids that have gone missing.
type Report struct {
	Kept []identity.TopoId
	Lost []identity.TopoId
}

// State holds the current selection, the active filter, and any saved
// groups. The zero value is ready to use.
type State struct {
	Selected     map[identity.TopoId]struct{}
	ActiveFilter Filter
	Groups       map[string]Group
}

// New returns an empty selection state with no filter restriction.
func New() *State {
	return &State{
		Selected:     make(map[identity.TopoId]struct{}),
		ActiveFilter: FilterAny,
		Groups:       make(map[string]Group),
	}
}

// SetFilter changes which ranks Select will accept. It does not affect
// entities already selected under a different filter.
func (s *State) SetFilter(f Filter) {
	s.ActiveFilter = f
}

// Select adds id to the selection if it matches the active filter. When
// multiSelect is false, any prior selection is cleared first.
func (s *State) Select(id identity.TopoId, multiSelect bool) {
	if !s.ActiveFilter.matches(id) {
		return
	}
	if !multiSelect {
		s.Clear()
	}
	s.Selected[id] = struct{}{}
}

// Deselect removes id from the selection, if present.
func (s *State) Deselect(id identity.TopoId) {
	delete(s.Selected, id)
}

// Clear empties the selection.
func (s *State) Clear() {
	s.Selected = make(map[identity.TopoId]struct{})
}

// CreateGroup snapshots the current selection under name, overwriting any
// existing group of the same name.
func (s *State) CreateGroup(name string) {
	items := make(map[identity.TopoId]struct{}, len(s.Selected))
	for id := range s.Selected {
		items[id] = struct{}{}
	}
	s.Groups[name] = Group{Name: name, Items: items}
}

// RestoreGroup replaces the current selection with the named group's saved
// snapshot. Reports whether the group exists.
func (s *State) RestoreGroup(name string) bool {
	g, ok := s.Groups[name]
	if !ok {
		return false
	}
	s.Selected = make(map[identity.TopoId]struct{}, len(g.Items))
	for id := range g.Items {
		s.Selected[id] = struct{}{}
	}
	return true
}

// DeleteGroup removes the named group, reporting whether it existed.
func (s *State) DeleteGroup(name string) bool {
	if _, ok := s.Groups[name]; !ok {
		return false
	}
	delete(s.Groups, name)
	return true
}

// GroupNames lists saved group names in ascending order.
func (s *State) GroupNames() []string {
	names := make([]string, 0, len(s.Groups))
	for name := range s.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ids returns the current selection in stable ascending order.
func (s *State) Ids() []identity.TopoId {
	return sortedIds(s.Selected)
}

// Validate checks every currently selected id against reg, dropping any
// that no longer resolve and reporting what was kept and what was lost.
func (s *State) Validate(reg *registry.Registry) Report {
	var report Report
	for _, id := range sortedIds(s.Selected) {
		if _, ok := reg.Resolve(id); ok {
			report.Kept = append(report.Kept, id)
		} else {
			delete(s.Selected, id)
			report.Lost = append(report.Lost, id)
		}
	}
	return report
}

func sortedIds(m map[identity.TopoId]struct{}) []identity.TopoId {
	out := make([]identity.TopoId, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FeatureId.String() != b.FeatureId.String() {
			return a.FeatureId.String() < b.FeatureId.String()
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.LocalId < b.LocalId
	})
	return out
}
