// Package registry holds the current generation's kernel entities and
// resolves TopoIds back to them — exactly, via a similarity-scored
// fallback, or reports them broken with ranked suggestions. Its contents
// live for exactly one regeneration cycle.
package registry

import (
	"sort"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
)

// KernelEntity pairs a stable TopoId with the analytic geometry description
// behind it, as reported by the mesh translator or kernel adapter.
type KernelEntity struct {
	Id       identity.TopoId
	Geometry geom.AnalyticGeometry
}

// Suggestion is a candidate returned for a broken reference: the candidate
// id, its confidence score, and a human-readable reason string.
type Suggestion struct {
	Id         identity.TopoId
	Confidence float64
	Reason     string
}

// Verdict is the closed outcome of resolving a TopoId with fallback.
type Verdict int

const (
	VerdictExact Verdict = iota
	VerdictFallback
	VerdictBroken
)

// ResolveResult is the outcome of Registry.ResolveWithFallback.
type ResolveResult struct {
	Verdict     Verdict
	Entity      *KernelEntity // set for Exact and Fallback
	Confidence  float64       // set for Fallback
	Reason      string        // set for Fallback
	Suggestions []Suggestion  // set for Broken, at most 3
}

// Registry holds everything the kernel produced for the current
// regeneration cycle, plus the set of TopoIds that were expected (by a
// feature parameter, constraint, or selection) but turned out to be
// missing — the "zombies".
type Registry struct {
	active  map[identity.TopoId]KernelEntity
	zombies map[identity.TopoId]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		active:  make(map[identity.TopoId]KernelEntity),
		zombies: make(map[identity.TopoId]struct{}),
	}
}

// Clear resets the registry for a new regeneration cycle.
func (r *Registry) Clear() {
	r.active = make(map[identity.TopoId]KernelEntity)
	r.zombies = make(map[identity.TopoId]struct{})
}

// Register records a newly produced kernel entity.
func (r *Registry) Register(entity KernelEntity) {
	r.active[entity.Id] = entity
}

// Resolve performs an exact lookup only.
func (r *Registry) Resolve(id identity.TopoId) (KernelEntity, bool) {
	e, ok := r.active[id]
	return e, ok
}

// Len reports how many entities are currently registered.
func (r *Registry) Len() int {
	return len(r.active)
}

// All returns every registered entity in ascending TopoId order (stable,
// map-iteration-independent — the core's determinism contract applies to
// any consumer that walks the full registry, e.g. export or diagnostics).
func (r *Registry) All() []KernelEntity {
	out := make([]KernelEntity, 0, len(r.active))
	for _, e := range r.active {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return lessTopoId(out[i].Id, out[j].Id) })
	return out
}

func lessTopoId(a, b identity.TopoId) bool {
	if a.FeatureId.String() != b.FeatureId.String() {
		return a.FeatureId.String() < b.FeatureId.String()
	}
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.LocalId < b.LocalId
}

// ValidateReferences checks a batch of required TopoIds against the active
// set. Every id not found is recorded as a zombie and returned.
func (r *Registry) ValidateReferences(required []identity.TopoId) []identity.TopoId {
	var missing []identity.TopoId
	for _, id := range required {
		if _, ok := r.active[id]; !ok {
			r.zombies[id] = struct{}{}
			missing = append(missing, id)
		}
	}
	return missing
}

// IsZombie reports whether id has been recorded missing this cycle.
func (r *Registry) IsZombie(id identity.TopoId) bool {
	_, ok := r.zombies[id]
	return ok
}

// Zombies returns every id recorded missing this cycle, in a stable order.
func (r *Registry) Zombies() []identity.TopoId {
	out := make([]identity.TopoId, 0, len(r.zombies))
	for id := range r.zombies {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessTopoId(out[i], out[j]) })
	return out
}

// candidateMinScore is the floor below which a fallback candidate is not
// worth reporting even as a suggestion.
const candidateMinScore = 0.3

// fallbackThreshold is the confidence at or above which a candidate is
// accepted as a Fallback verdict rather than merely a Broken suggestion.
const fallbackThreshold = 0.6

// ResolveWithFallback resolves id, trying an exact match first, then
// scoring every same-rank candidate in the registry:
//   - +0.4 if the candidate shares id's feature_id
//   - + up to 0.2 more for local_id proximity (|Δ| <= 5, linearly decaying)
//   - + similarity*0.4 if originalGeometry is supplied and similarity > 0.3
//
// The best candidate at or above fallbackThreshold wins as a Fallback;
// otherwise the top 3 candidates (by score, score > candidateMinScore) are
// returned as Broken suggestions.
func (r *Registry) ResolveWithFallback(id identity.TopoId, originalGeometry *geom.AnalyticGeometry) ResolveResult {
	if e, ok := r.active[id]; ok {
		entity := e
		return ResolveResult{Verdict: VerdictExact, Entity: &entity}
	}

	type scored struct {
		entity KernelEntity
		score  float64
		reason string
	}
	var candidates []scored

	for _, entity := range r.active {
		if entity.Id.Rank != id.Rank {
			continue
		}

		score := 0.0
		reason := ""

		if entity.Id.FeatureId == id.FeatureId {
			score += 0.4
			reason += "same_feature "

			diff := int64(entity.Id.LocalId) - int64(id.LocalId)
			if diff < 0 {
				diff = -diff
			}
			if diff <= 5 {
				score += 0.2 * (1.0 - float64(diff)/5.0)
				reason += "adjacent_id "
			}
		}

		if originalGeometry != nil {
			sim := originalGeometry.Similarity(entity.Geometry)
			if sim > candidateMinScore {
				score += sim * 0.4
				reason += "geom_sim "
			}
		}

		if score > candidateMinScore {
			candidates = append(candidates, scored{entity: entity, score: score, reason: trimSpace(reason)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return lessTopoId(candidates[i].entity.Id, candidates[j].entity.Id)
	})

	if len(candidates) > 0 && candidates[0].score >= fallbackThreshold {
		best := candidates[0]
		entity := best.entity
		return ResolveResult{Verdict: VerdictFallback, Entity: &entity, Confidence: best.score, Reason: best.reason}
	}

	n := len(candidates)
	if n > 3 {
		n = 3
	}
	suggestions := make([]Suggestion, 0, n)
	for _, c := range candidates[:n] {
		suggestions = append(suggestions, Suggestion{Id: c.entity.Id, Confidence: c.score, Reason: c.reason})
	}
	return ResolveResult{Verdict: VerdictBroken, Suggestions: suggestions}
}

func trimSpace(s string) string {
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}
