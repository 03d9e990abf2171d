package identity

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// TopoRank totally orders the kinds of topological entity a kernel can
// produce, from the most atomic to the most composite.
type TopoRank int

const (
	RankVertex TopoRank = iota
	RankEdge
	RankWire
	RankFace
	RankShell
	RankSolid
	RankCompSolid
	RankCompound
)

// String renders the rank the way diagnostics and SVG legends want it.
func (r TopoRank) String() string {
	switch r {
	case RankVertex:
		return "Vertex"
	case RankEdge:
		return "Edge"
	case RankWire:
		return "Wire"
	case RankFace:
		return "Face"
	case RankShell:
		return "Shell"
	case RankSolid:
		return "Solid"
	case RankCompSolid:
		return "CompSolid"
	case RankCompound:
		return "Compound"
	default:
		return "Unknown"
	}
}

// TopoId is the stable identity of a B-rep entity within a regeneration
// cycle: which feature produced it, a deterministic local discriminator,
// and its rank. Two TopoIds are equal iff all three fields match.
type TopoId struct {
	FeatureId EntityId
	LocalId   uint64
	Rank      TopoRank
}

// NewTopoId constructs a TopoId directly, e.g. when restoring from storage.
func NewTopoId(featureId EntityId, localId uint64, rank TopoRank) TopoId {
	return TopoId{FeatureId: featureId, LocalId: localId, Rank: rank}
}

// NamingContext derives deterministic TopoIds for every entity minted while
// evaluating a single feature. All derivations within a context share the
// context's feature id; the local_id comes from hashing the caller-supplied
// seed, which must already encode enough of the topological neighbourhood
// (see the face/edge/vertex seed formulas in the mesh package) to survive
// minor re-tessellation.
type NamingContext struct {
	featureId EntityId
}

// NewNamingContext scopes naming to the given feature.
func NewNamingContext(featureId EntityId) NamingContext {
	return NamingContext{featureId: featureId}
}

// FeatureId returns the feature this context mints TopoIds for.
func (n NamingContext) FeatureId() EntityId {
	return n.featureId
}

// Derive produces a stable TopoId from a seed string and rank. Uses UUID v5
// (SHA-1) of the OID namespace, truncated to the first 8 bytes as a
// big-endian uint64 — stable across platforms and independent of map or
// slice iteration order upstream.
func (n NamingContext) Derive(seed string, rank TopoRank) TopoId {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
	localId := binary.BigEndian.Uint64(u[:8])
	return TopoId{FeatureId: n.featureId, LocalId: localId, Rank: rank}
}
