package export

import (
	"encoding/json"
	"os"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/regen"
	"github.com/archkit/cadcore/pkg/registry"
)

// TopoEntry is one registered kernel entity in a topology manifest.
type TopoEntry struct {
	FeatureId identity.EntityId `json:"featureId"`
	LocalId   uint64            `json:"localId"`
	Rank      string            `json:"rank"`
	Geometry  string            `json:"geometryKind"`
}

// Manifest is the JSON-serializable summary of one regeneration cycle: the
// full set of surviving kernel entities, any dangling (zombie) references,
// and a vertex/triangle count for the tessellation.
type Manifest struct {
	Entities      []TopoEntry       `json:"entities"`
	Zombies       []identity.TopoId `json:"zombies,omitempty"`
	VertexCount   int               `json:"vertexCount"`
	TriangleCount int               `json:"triangleCount"`
	LineCount     int               `json:"lineCount"`
	PointCount    int               `json:"pointCount"`
}

// BuildManifest assembles a Manifest from a registry and a regeneration
// report, in deterministic registry order.
func BuildManifest(reg *registry.Registry, report regen.RegenReport) Manifest {
	entries := make([]TopoEntry, 0, reg.Len())
	for _, e := range reg.All() {
		entries = append(entries, TopoEntry{
			FeatureId: e.Id.FeatureId,
			LocalId:   e.Id.LocalId,
			Rank:      e.Id.Rank.String(),
			Geometry:  analyticKindName(e.Geometry.Kind),
		})
	}

	return Manifest{
		Entities:      entries,
		Zombies:       reg.Zombies(),
		VertexCount:   len(report.Mesh.Positions),
		TriangleCount: len(report.Mesh.Triangles),
		LineCount:     len(report.Lines),
		PointCount:    len(report.Points),
	}
}

func analyticKindName(k geom.AnalyticKind) string {
	switch k {
	case geom.KindPlane:
		return "Plane"
	case geom.KindCylinder:
		return "Cylinder"
	case geom.KindSphere:
		return "Sphere"
	case geom.KindLine:
		return "Line"
	case geom.KindCircle:
		return "Circle"
	case geom.KindMesh:
		return "Mesh"
	default:
		return "Unknown"
	}
}

// ExportManifestJSON serializes a manifest to indented JSON.
func ExportManifestJSON(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ExportManifestJSONCompact serializes a manifest to compact JSON.
func ExportManifestJSONCompact(m Manifest) ([]byte, error) {
	return json.Marshal(m)
}

// SaveManifestJSON writes an indented JSON manifest to a file.
func SaveManifestJSON(m Manifest, path string) error {
	data, err := ExportManifestJSON(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
