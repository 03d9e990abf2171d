package selection_test

import (
	"testing"

	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/registry"
	"github.com/archkit/cadcore/pkg/selection"
)

func testIds() (face, edge, vertex identity.TopoId) {
	featureA := identity.FromSeed("feature:a")
	return identity.NewTopoId(featureA, 1, identity.RankFace),
		identity.NewTopoId(featureA, 2, identity.RankEdge),
		identity.NewTopoId(featureA, 3, identity.RankVertex)
}

func TestSelect_RespectsFilter(t *testing.T) {
	face, edge, _ := testIds()
	s := selection.New()
	s.SetFilter(selection.FilterFace)

	s.Select(edge, true)
	if len(s.Selected) != 0 {
		t.Fatal("expected edge selection to be rejected under a face filter")
	}

	s.Select(face, true)
	if _, ok := s.Selected[face]; !ok {
		t.Fatal("expected face selection to succeed under a face filter")
	}
}

func TestSelect_SingleSelectReplacesSelection(t *testing.T) {
	face, edge, _ := testIds()
	s := selection.New()
	s.Select(face, true)
	s.Select(edge, false)
	if len(s.Selected) != 1 {
		t.Fatalf("expected single-select to clear prior selection, got %d items", len(s.Selected))
	}
	if _, ok := s.Selected[edge]; !ok {
		t.Fatal("expected edge to be the sole surviving selection")
	}
}

func TestSelect_MultiSelectAccumulates(t *testing.T) {
	face, edge, vertex := testIds()
	s := selection.New()
	s.Select(face, true)
	s.Select(edge, true)
	s.Select(vertex, true)
	if len(s.Selected) != 3 {
		t.Fatalf("expected 3 items accumulated via multi-select, got %d", len(s.Selected))
	}
}

func TestDeselectAndClear(t *testing.T) {
	face, edge, _ := testIds()
	s := selection.New()
	s.Select(face, true)
	s.Select(edge, true)

	s.Deselect(face)
	if _, ok := s.Selected[face]; ok {
		t.Fatal("expected face to be deselected")
	}
	if len(s.Selected) != 1 {
		t.Fatalf("expected 1 item remaining, got %d", len(s.Selected))
	}

	s.Clear()
	if len(s.Selected) != 0 {
		t.Fatal("expected Clear to empty the selection")
	}
}

func TestCreateGroup_SnapshotsCurrentSelection(t *testing.T) {
	face, edge, _ := testIds()
	s := selection.New()
	s.Select(face, true)
	s.Select(edge, true)
	s.CreateGroup("both")

	s.Clear()
	s.Select(face, true)

	group, ok := s.Groups["both"]
	if !ok {
		t.Fatal("expected group 'both' to exist")
	}
	if len(group.Items) != 2 {
		t.Fatalf("expected the group snapshot to retain 2 items regardless of later mutation, got %d", len(group.Items))
	}
}

func TestValidate_DropsZombiesAndReportsThem(t *testing.T) {
	face, edge, _ := testIds()
	s := selection.New()
	s.Select(face, true)
	s.Select(edge, true)

	reg := registry.New()
	reg.Register(registry.KernelEntity{Id: face, Geometry: geom.Sphere(geom.Point3D{}, 1)})

	report := s.Validate(reg)
	if len(report.Kept) != 1 || report.Kept[0] != face {
		t.Fatalf("expected face to be kept, got %v", report.Kept)
	}
	if len(report.Lost) != 1 || report.Lost[0] != edge {
		t.Fatalf("expected edge to be reported lost, got %v", report.Lost)
	}
	if _, stillSelected := s.Selected[edge]; stillSelected {
		t.Fatal("expected the zombie id to be removed from the live selection")
	}
	if _, stillSelected := s.Selected[face]; !stillSelected {
		t.Fatal("expected the resolving id to remain selected")
	}
}

func TestIds_ReturnsStableOrder(t *testing.T) {
	face, edge, vertex := testIds()
	s := selection.New()
	s.Select(vertex, true)
	s.Select(face, true)
	s.Select(edge, true)

	first := s.Ids()
	second := s.Ids()
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 ids, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("expected Ids to return a stable order across calls")
		}
	}
}
