// Package core is the command surface of the modeler: a closed Command
// variant dispatched by a single Apply method, producing a stream of typed
// Update messages. The transport layer (out of scope here) decodes wire
// requests into Commands and encodes Updates back out; everything on this
// side of that seam is synchronous and serialised under one lock.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/kernel"
	"github.com/archkit/cadcore/pkg/regen"
	"github.com/archkit/cadcore/pkg/regions"
	"github.com/archkit/cadcore/pkg/selection"
	"github.com/archkit/cadcore/pkg/sketch"
	"github.com/archkit/cadcore/pkg/variables"
)

// CommandKind tags the active variant of a Command.
type CommandKind int

const (
	CmdRegen CommandKind = iota
	CmdSelect
	CmdSetFilter
	CmdClearSelection
	CmdCreateFeature
	CmdUpdateFeature
	CmdDeleteFeature
	CmdVariableAdd
	CmdVariableUpdate
	CmdVariableDelete
	CmdVariableReorder
	CmdGetRegions
	CmdGroupCreate
	CmdGroupRestore
	CmdGroupDelete
	CmdGroupList
	CmdToggleSuppression
	CmdSetRollback
)

// SelectModifier controls how a Select command combines with the current
// selection.
type SelectModifier int

const (
	ModifierReplace SelectModifier = iota
	ModifierAdd
	ModifierRemove
)

// Command is the closed request variant. Only the fields relevant to Kind
// are read; the rest stay zero.
type Command struct {
	Kind CommandKind

	Topo     identity.TopoId // Select
	Modifier SelectModifier  // Select
	Filter   selection.Filter

	FeatureId   identity.EntityId // Update/Delete/ToggleSuppression/GetRegions
	FeatureType feature.FeatureType
	Name        string // CreateFeature, Group*, VariableAdd
	Deps        []identity.EntityId
	Parameters  map[string]feature.ParameterValue

	Variable   variables.Variable // VariableAdd
	VariableId identity.EntityId  // VariableUpdate/Delete/Reorder
	Expression string             // VariableUpdate
	NewIndex   int                // VariableReorder

	Rollback *identity.EntityId // SetRollback (nil clears)
}

// UpdateKind tags an outgoing Update message.
type UpdateKind int

const (
	GraphUpdate UpdateKind = iota
	RenderUpdate
	SelectionUpdate
	SelectionGroupsUpdate
	SketchStatus
	RegionsUpdate
	ZombieUpdate
	ErrorUpdate
)

// Prefix is the wire prefix a transport prepends to the payload JSON.
func (k UpdateKind) Prefix() string {
	switch k {
	case GraphUpdate:
		return "GRAPH_UPDATE"
	case RenderUpdate:
		return "RENDER_UPDATE"
	case SelectionUpdate:
		return "SELECTION_UPDATE"
	case SelectionGroupsUpdate:
		return "SELECTION_GROUPS_UPDATE"
	case SketchStatus:
		return "SKETCH_STATUS"
	case RegionsUpdate:
		return "REGIONS_UPDATE"
	case ZombieUpdate:
		return "ZOMBIE_UPDATE"
	case ErrorUpdate:
		return "ERROR_UPDATE"
	default:
		return "UNKNOWN"
	}
}

// Severity grades an ErrorUpdate.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	default:
		return "error"
	}
}

// MarshalJSON encodes Severity as its lowercase name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Update is one outgoing message: a kind plus a JSON-serialisable payload.
type Update struct {
	Kind    UpdateKind
	Payload interface{}
}

// Encode renders the wire form "PREFIX:{json}".
func (u Update) Encode() (string, error) {
	data, err := json.Marshal(u.Payload)
	if err != nil {
		return "", fmt.Errorf("core: encode %s: %w", u.Kind.Prefix(), err)
	}
	return u.Kind.Prefix() + ":" + string(data), nil
}

// GraphPayload summarises the feature graph after a structural change.
type GraphPayload struct {
	Features   []FeatureSummary `json:"features"`
	RollbackAt string           `json:"rollbackAt,omitempty"`
}

// FeatureSummary is one feature's wire view.
type FeatureSummary struct {
	Id           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Dependencies []string `json:"dependencies,omitempty"`
	Suppressed   bool     `json:"suppressed,omitempty"`
}

// RenderPayload carries tessellation counts for the renderer collaborator.
type RenderPayload struct {
	VertexCount   int `json:"vertexCount"`
	TriangleCount int `json:"triangleCount"`
	LineCount     int `json:"lineCount"`
	PointCount    int `json:"pointCount"`
}

// SelectionPayload lists the current pick set.
type SelectionPayload struct {
	Selected []TopoRef `json:"selected"`
}

// TopoRef is a TopoId's wire view.
type TopoRef struct {
	FeatureId string `json:"featureId"`
	LocalId   uint64 `json:"localId"`
	Rank      string `json:"rank"`
}

func topoRef(id identity.TopoId) TopoRef {
	return TopoRef{FeatureId: id.FeatureId.String(), LocalId: id.LocalId, Rank: id.Rank.String()}
}

// GroupsPayload lists saved selection group names.
type GroupsPayload struct {
	Groups []string `json:"groups"`
}

// SketchStatusPayload surfaces solver diagnostics for one sketch feature.
type SketchStatusPayload struct {
	FeatureId  string `json:"featureId"`
	Converged  bool   `json:"converged"`
	Iterations int    `json:"iterations"`
	Dof        int    `json:"dof"`
	Redundant  []int  `json:"redundant,omitempty"`
	Conflicts  []int  `json:"conflicts,omitempty"`
}

// RegionSummary is one detected region's wire view.
type RegionSummary struct {
	Id        string  `json:"id"`
	Area      float64 `json:"area"`
	CentroidX float64 `json:"centroidX"`
	CentroidY float64 `json:"centroidY"`
	VoidCount int     `json:"voidCount"`
}

// RegionsPayload lists the detected regions of one sketch feature.
type RegionsPayload struct {
	SketchId string          `json:"sketchId"`
	Regions  []RegionSummary `json:"regions"`
}

// ZombiePayload lists unresolved references; empty denotes a clean model.
type ZombiePayload struct {
	Zombies []TopoRef `json:"zombies"`
}

// ErrorPayload reports a command or regeneration failure.
type ErrorPayload struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Core owns the feature graph (with its embedded variable store), the
// selection state, and the regeneration orchestrator. All mutations go
// through Apply under a single writer-exclusive lock; concurrent readers of
// committed state are the caller's concern.
type Core struct {
	mu           sync.Mutex
	Graph        *feature.Graph
	Selection    *selection.State
	Orchestrator *regen.Orchestrator
}

// New creates a core bound to a kernel backend.
func New(backend kernel.Backend) *Core {
	return &Core{
		Graph:        feature.New(),
		Selection:    selection.New(),
		Orchestrator: regen.NewOrchestrator(backend),
	}
}

// Apply dispatches one command, returning the updates it produced. A
// command that fails returns the error alongside an ErrorUpdate so a
// transport can surface it without inspecting the error value.
func (c *Core) Apply(ctx context.Context, cmd Command) ([]Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd.Kind {
	case CmdRegen:
		return c.regenerate(ctx)

	case CmdSelect:
		switch cmd.Modifier {
		case ModifierAdd:
			c.Selection.Select(cmd.Topo, true)
		case ModifierRemove:
			c.Selection.Deselect(cmd.Topo)
		default:
			c.Selection.Select(cmd.Topo, false)
		}
		return []Update{c.selectionUpdate()}, nil

	case CmdSetFilter:
		c.Selection.SetFilter(cmd.Filter)
		return []Update{c.selectionUpdate()}, nil

	case CmdClearSelection:
		c.Selection.Clear()
		return []Update{c.selectionUpdate()}, nil

	case CmdCreateFeature:
		for _, dep := range cmd.Deps {
			if _, ok := c.Graph.Nodes[dep]; !ok {
				err := &feature.MissingDependencyError{Dependency: dep}
				return []Update{errorUpdate("MISSING_DEPENDENCY", err.Error(), SeverityError)}, err
			}
		}
		f := &feature.Feature{
			Id:           identity.New(),
			Name:         cmd.Name,
			Type:         cmd.FeatureType,
			Parameters:   cmd.Parameters,
			Dependencies: cmd.Deps,
		}
		if f.Parameters == nil {
			f.Parameters = make(map[string]feature.ParameterValue)
		}
		c.Graph.AddFeature(f)
		return []Update{c.graphUpdate()}, nil

	case CmdUpdateFeature:
		f, ok := c.Graph.Nodes[cmd.FeatureId]
		if !ok {
			return c.unknownFeature(cmd.FeatureId)
		}
		for name, value := range cmd.Parameters {
			f.Parameters[name] = value
		}
		c.Graph.SortOrder = nil
		return []Update{c.graphUpdate()}, nil

	case CmdDeleteFeature:
		if _, ok := c.Graph.Nodes[cmd.FeatureId]; !ok {
			return c.unknownFeature(cmd.FeatureId)
		}
		c.Graph.RemoveFeature(cmd.FeatureId)
		return []Update{c.graphUpdate()}, nil

	case CmdVariableAdd:
		if _, err := c.Graph.Variables.Add(cmd.Variable); err != nil {
			return []Update{errorUpdate("VARIABLE_ADD", err.Error(), SeverityError)}, err
		}
		return []Update{c.graphUpdate()}, nil

	case CmdVariableUpdate:
		if err := c.Graph.Variables.UpdateExpression(cmd.VariableId, cmd.Expression); err != nil {
			return []Update{errorUpdate("VARIABLE_UPDATE", err.Error(), SeverityError)}, err
		}
		return []Update{c.graphUpdate()}, nil

	case CmdVariableDelete:
		c.Graph.Variables.Remove(cmd.VariableId)
		return []Update{c.graphUpdate()}, nil

	case CmdVariableReorder:
		if err := c.Graph.Variables.Reorder(cmd.VariableId, cmd.NewIndex); err != nil {
			return []Update{errorUpdate("VARIABLE_REORDER", err.Error(), SeverityError)}, err
		}
		return []Update{c.graphUpdate()}, nil

	case CmdGetRegions:
		f, ok := c.Graph.Nodes[cmd.FeatureId]
		if !ok {
			return c.unknownFeature(cmd.FeatureId)
		}
		sk := sketchOf(f)
		if sk == nil {
			err := fmt.Errorf("core: feature %s carries no sketch", cmd.FeatureId)
			return []Update{errorUpdate("NO_SKETCH", err.Error(), SeverityError)}, err
		}
		found := regions.FindRegions(sk.Entities)
		summaries := make([]RegionSummary, 0, len(found))
		for _, r := range found {
			summaries = append(summaries, RegionSummary{
				Id:        r.Id,
				Area:      r.Area,
				CentroidX: r.Centroid.X,
				CentroidY: r.Centroid.Y,
				VoidCount: len(r.Voids),
			})
		}
		payload := RegionsPayload{SketchId: cmd.FeatureId.String(), Regions: summaries}
		return []Update{{Kind: RegionsUpdate, Payload: payload}}, nil

	case CmdGroupCreate:
		c.Selection.CreateGroup(cmd.Name)
		return []Update{c.groupsUpdate()}, nil

	case CmdGroupRestore:
		if !c.Selection.RestoreGroup(cmd.Name) {
			return c.unknownGroup(cmd.Name)
		}
		return []Update{c.selectionUpdate()}, nil

	case CmdGroupDelete:
		if !c.Selection.DeleteGroup(cmd.Name) {
			return c.unknownGroup(cmd.Name)
		}
		return []Update{c.groupsUpdate()}, nil

	case CmdGroupList:
		return []Update{c.groupsUpdate()}, nil

	case CmdToggleSuppression:
		f, ok := c.Graph.Nodes[cmd.FeatureId]
		if !ok {
			return c.unknownFeature(cmd.FeatureId)
		}
		c.Graph.SetSuppressed(cmd.FeatureId, !f.Suppressed)
		return []Update{c.graphUpdate()}, nil

	case CmdSetRollback:
		c.Graph.SetRollback(cmd.Rollback)
		return []Update{c.graphUpdate()}, nil

	default:
		err := fmt.Errorf("core: unknown command kind %d", cmd.Kind)
		return []Update{errorUpdate("UNKNOWN_COMMAND", err.Error(), SeverityError)}, err
	}
}

// regenerate runs one full cycle and emits the resulting update fan-out:
// render counts, per-sketch solver status, the zombie list (always, empty
// meaning clean), and the post-validation selection.
func (c *Core) regenerate(ctx context.Context) ([]Update, error) {
	report, err := c.Orchestrator.Regenerate(ctx, c.Graph)
	if err != nil {
		return []Update{errorUpdate("REGEN_FAILED", err.Error(), SeverityError)}, err
	}

	var updates []Update
	updates = append(updates, Update{Kind: RenderUpdate, Payload: RenderPayload{
		VertexCount:   len(report.Mesh.Positions),
		TriangleCount: len(report.Mesh.Triangles),
		LineCount:     len(report.Lines),
		PointCount:    len(report.Points),
	}})

	for _, id := range c.Graph.ActiveOrder() {
		// Regen keys solve results by the naming-context feature id, which is
		// derived from the feature's own id string.
		result, ok := report.SolveResults[identity.FromSeed(id.String())]
		if !ok {
			continue
		}
		updates = append(updates, Update{Kind: SketchStatus, Payload: SketchStatusPayload{
			FeatureId:  id.String(),
			Converged:  result.Converged,
			Iterations: result.Iterations,
			Dof:        result.Dof,
			Redundant:  result.RedundantConstraints,
			Conflicts:  result.Conflicts,
		}})
		if !result.Converged {
			updates = append(updates, errorUpdate("SOLVER_DIVERGED",
				fmt.Sprintf("sketch %s did not converge after %d iterations", id, result.Iterations),
				SeverityWarn))
		}
	}

	zombies := make([]TopoRef, 0, len(report.Zombies))
	for _, id := range report.Zombies {
		zombies = append(zombies, topoRef(id))
	}
	updates = append(updates, Update{Kind: ZombieUpdate, Payload: ZombiePayload{Zombies: zombies}})

	c.Selection.Validate(c.Orchestrator.Registry)
	updates = append(updates, c.selectionUpdate())
	return updates, nil
}

func (c *Core) graphUpdate() Update {
	order, err := c.Graph.Sort()
	if err != nil {
		order = nil
	}
	seen := make(map[identity.EntityId]bool, len(order))
	summaries := make([]FeatureSummary, 0, len(c.Graph.Nodes))
	appendSummary := func(f *feature.Feature) {
		deps := make([]string, 0, len(f.Dependencies))
		for _, d := range f.Dependencies {
			deps = append(deps, d.String())
		}
		summaries = append(summaries, FeatureSummary{
			Id:           f.Id.String(),
			Name:         f.Name,
			Type:         f.Type.String(),
			Dependencies: deps,
			Suppressed:   f.Suppressed,
		})
	}
	for _, id := range order {
		if f, ok := c.Graph.Nodes[id]; ok {
			seen[id] = true
			appendSummary(f)
		}
	}
	// A cyclic graph still reports its nodes, just unordered.
	if len(seen) < len(c.Graph.Nodes) {
		for _, f := range c.Graph.Nodes {
			if !seen[f.Id] {
				appendSummary(f)
			}
		}
	}
	payload := GraphPayload{Features: summaries}
	if c.Graph.RollbackAt != nil {
		payload.RollbackAt = c.Graph.RollbackAt.String()
	}
	return Update{Kind: GraphUpdate, Payload: payload}
}

func (c *Core) selectionUpdate() Update {
	ids := c.Selection.Ids()
	refs := make([]TopoRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, topoRef(id))
	}
	return Update{Kind: SelectionUpdate, Payload: SelectionPayload{Selected: refs}}
}

func (c *Core) groupsUpdate() Update {
	return Update{Kind: SelectionGroupsUpdate, Payload: GroupsPayload{Groups: c.Selection.GroupNames()}}
}

func (c *Core) unknownFeature(id identity.EntityId) ([]Update, error) {
	err := fmt.Errorf("core: unknown feature %s", id)
	return []Update{errorUpdate("UNKNOWN_FEATURE", err.Error(), SeverityError)}, err
}

func (c *Core) unknownGroup(name string) ([]Update, error) {
	err := fmt.Errorf("core: unknown selection group %q", name)
	return []Update{errorUpdate("UNKNOWN_GROUP", err.Error(), SeverityError)}, err
}

func errorUpdate(code, message string, severity Severity) Update {
	return Update{Kind: ErrorUpdate, Payload: ErrorPayload{Code: code, Message: message, Severity: severity}}
}

func sketchOf(f *feature.Feature) *sketch.Sketch {
	if v, ok := f.Parameters["sketch_data"]; ok && v.Kind == feature.ParamSketch {
		return v.Sketch
	}
	return nil
}
