// Package regen is the Regeneration Orchestrator: it walks a feature graph
// in topological order, emits a linear program of context-switch and
// assignment statements, evaluates that program against a kernel backend,
// mints topology into a registry, and reports zombie references and solver
// diagnostics — never aborting the whole module on a non-fatal condition,
// only on a genuine evaluation failure.
package regen

import (
	"context"
	"fmt"

	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/identity"
	"github.com/archkit/cadcore/pkg/kernel"
	"github.com/archkit/cadcore/pkg/mesh"
	"github.com/archkit/cadcore/pkg/registry"
	"github.com/archkit/cadcore/pkg/regions"
	"github.com/archkit/cadcore/pkg/sketch"
	"github.com/archkit/cadcore/pkg/solver"
	"github.com/archkit/cadcore/pkg/variables"
)

// StatementKind tags a Statement's role in the linear program.
type StatementKind int

const (
	StmtSetContext StatementKind = iota
	StmtAssign
)

// Statement is one entry of the linear program emitted from a feature graph.
type Statement struct {
	Kind StatementKind

	ContextSeed string // SetContext

	VarName  string // Assign
	Function string // Assign
	Args     []interface{}
}

// Program is an ordered list of statements, ready for sequential evaluation.
type Program struct {
	Statements []Statement
}

// Defaults substituted when a feature's parameters omit the value.
const (
	defaultExtrudeDistance  = 10.0
	defaultExtrudeOperation = "Add"
	defaultRevolveAngle     = 360.0
	defaultRevolveAxis      = "X"
)

func sketchParam(f *feature.Feature, name string) *sketch.Sketch {
	if f == nil {
		return nil
	}
	if v, ok := f.Parameters[name]; ok && v.Kind == feature.ParamSketch {
		return v.Sketch
	}
	return nil
}

func floatParam(f *feature.Feature, name string, def float64) float64 {
	if v, ok := f.Parameters[name]; ok && v.Kind == feature.ParamFloat {
		return v.Float
	}
	return def
}

func stringParam(f *feature.Feature, name string, def string) string {
	if v, ok := f.Parameters[name]; ok && v.Kind == feature.ParamString {
		return v.String
	}
	return def
}

// EmitProgram walks graph.ActiveOrder() (requires a fresh Sort beforehand)
// and emits a SetContext before every non-suppressed feature, followed by an
// Assign statement for feature types that produce a call (Sketch, Extrude,
// Revolve). Cut/Plane/Axis/Point carry no kernel call of their own; only
// their context switch is emitted.
func EmitProgram(g *feature.Graph) Program {
	var program Program
	for _, id := range g.ActiveOrder() {
		f, ok := g.Nodes[id]
		if !ok || f.Suppressed {
			continue
		}

		program.Statements = append(program.Statements, Statement{
			Kind:        StmtSetContext,
			ContextSeed: f.Id.String(),
		})

		var stmt *Statement
		switch f.Type {
		case feature.TypeSketch:
			stmt = &Statement{
				Kind:     StmtAssign,
				VarName:  "feat_" + f.Id.String(),
				Function: "sketch",
				Args:     []interface{}{sketchParam(f, "sketch_data")},
			}
		case feature.TypeExtrude:
			var profile *sketch.Sketch
			if len(f.Dependencies) > 0 {
				if dep, ok := g.Nodes[f.Dependencies[0]]; ok {
					profile = sketchParam(dep, "sketch_data")
				}
			}
			stmt = &Statement{
				Kind:     StmtAssign,
				VarName:  "feat_" + f.Id.String(),
				Function: "extrude",
				Args: []interface{}{
					profile,
					floatParam(f, "distance", defaultExtrudeDistance),
					stringParam(f, "operation", defaultExtrudeOperation),
				},
			}
		case feature.TypeRevolve:
			var profile *sketch.Sketch
			if len(f.Dependencies) > 0 {
				if dep, ok := g.Nodes[f.Dependencies[0]]; ok {
					profile = sketchParam(dep, "sketch_data")
				}
			}
			stmt = &Statement{
				Kind:     StmtAssign,
				VarName:  "feat_" + f.Id.String(),
				Function: "revolve",
				Args: []interface{}{
					profile,
					floatParam(f, "angle", defaultRevolveAngle),
					stringParam(f, "axis", defaultRevolveAxis),
				},
			}
		}
		if stmt != nil {
			program.Statements = append(program.Statements, *stmt)
		}
	}
	return program
}

// ValueKind tags the active variant of an evaluator-bound Value.
type ValueKind int

const (
	ValueSketch ValueKind = iota
	ValueSolid
	ValueText
)

// Value is what a program variable ("feat_<id>") binds to.
type Value struct {
	Kind   ValueKind
	Sketch *sketch.Sketch
	Solid  kernel.Solid
	Text   string
}

// RegenReport aggregates everything a regeneration cycle produced: the
// combined tessellation, minted lines/points, solver diagnostics per
// evaluated sketch, and the zombie references left after validation.
type RegenReport struct {
	Mesh          geom.TriangleMesh
	Lines         []mesh.LineFeature
	Points        []mesh.PointFeature
	SolveResults  map[identity.EntityId]solver.SolveResult
	Zombies       []identity.TopoId
	Logs          []string
}

// Orchestrator evaluates a Program against a kernel backend, minting
// topology into reg as it goes.
type Orchestrator struct {
	Backend  kernel.Backend
	Registry *registry.Registry

	// store is the active cycle's variable store, set by Regenerate so the
	// sketch syscall can resolve dimension expressions before solving.
	store *variables.Store
}

// NewOrchestrator creates an orchestrator bound to a kernel backend and a
// fresh registry.
func NewOrchestrator(backend kernel.Backend) *Orchestrator {
	return &Orchestrator{Backend: backend, Registry: registry.New()}
}

// Regenerate emits and evaluates a full program for graph, checking ctx
// between statements so a caller can cancel cooperatively. A failing
// sub-evaluation aborts the cycle; the registry is cleared at the start of
// every call so a partial cycle never leaks prior-cycle state.
func (o *Orchestrator) Regenerate(ctx context.Context, g *feature.Graph) (RegenReport, error) {
	if _, err := g.Sort(); err != nil {
		return RegenReport{}, fmt.Errorf("regen: sort: %w", err)
	}

	if g.Variables != nil {
		variables.EvaluateAll(g.Variables)
	}

	o.Registry.Clear()
	report := RegenReport{SolveResults: make(map[identity.EntityId]solver.SolveResult)}
	vars := make(map[string]Value)
	var namingCtx identity.NamingContext
	o.store = g.Variables

	program := EmitProgram(g)
	for _, stmt := range program.Statements {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		switch stmt.Kind {
		case StmtSetContext:
			namingCtx = identity.NewNamingContext(identity.FromSeed(stmt.ContextSeed))
		case StmtAssign:
			value, err := o.dispatch(stmt.Function, stmt.Args, namingCtx, vars, &report)
			if err != nil {
				return report, fmt.Errorf("regen: %s: %w", stmt.Function, err)
			}
			vars[stmt.VarName] = value
		}
	}

	refs := g.CollectReferences()
	report.Zombies = o.Registry.ValidateReferences(refs)
	return report, nil
}

// dispatch implements the syscall vocabulary. Anything not listed here is
// NotImplemented, matching the kernel's own error taxonomy.
func (o *Orchestrator) dispatch(function string, args []interface{}, ctx identity.NamingContext, vars map[string]Value, report *RegenReport) (Value, error) {
	switch function {
	case "cube":
		size := argFloat(args, 0, 10)
		solid, err := o.Backend.CreateBox(size, size, size)
		if err != nil {
			return Value{}, err
		}
		return o.tessellateInto(solid, ctx, "cube", report)

	case "sphere":
		size := argFloat(args, 0, 10)
		solid, err := o.Backend.CreateSphere(size / 2)
		if err != nil {
			return Value{}, err
		}
		return o.tessellateInto(solid, ctx, "sphere", report)

	case "sketch":
		sk := argSketch(args, 0)
		if sk == nil {
			return Value{Kind: ValueSketch}, nil
		}
		projectExternalReferences(sk, o.Registry)
		if o.store != nil {
			sk.ResolveExpressions(o.store)
		}
		result := solver.Solve(sk)
		report.SolveResults[ctx.FeatureId()] = result
		report.Logs = append(report.Logs, fmt.Sprintf("sketch solve converged=%v iterations=%d", result.Converged, result.Iterations))
		registerSketchTopology(sk, o.Registry)
		return Value{Kind: ValueSketch, Sketch: sk}, nil

	case "extrude":
		profile := argSketch(args, 0)
		distance := argFloat(args, 1, defaultExtrudeDistance)
		operation := argString(args, 2, defaultExtrudeOperation)
		if profile == nil {
			return Value{}, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: "extrude: no profile sketch available"}
		}
		polygon, err := profileToPolygon(profile)
		if err != nil {
			return Value{}, err
		}
		params := geom.ExtrudeParams{Distance: distance, Direction: profile.Plane.Normal, ScaleX: 1, ScaleY: 1}
		solid, err := o.Backend.ExtrudePolygon(polygon, params)
		if err != nil {
			return Value{}, err
		}
		solid.Notes = append(solid.Notes, "operation="+operation)
		return o.tessellateInto(solid, ctx, "extrude", report)

	case "revolve":
		profile := argSketch(args, 0)
		angleDeg := argFloat(args, 1, defaultRevolveAngle)
		axisName := argString(args, 2, defaultRevolveAxis)
		if profile == nil {
			return Value{}, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: "revolve: no profile sketch available"}
		}
		points, err := profileToPoints(profile)
		if err != nil {
			return Value{}, err
		}
		params := geom.RevolveParams{Angle: angleDeg * (3.141592653589793 / 180), Axis: axisFromName(axisName)}
		solid, err := o.Backend.RevolveProfile(points, params)
		if err != nil {
			return Value{}, err
		}
		return o.tessellateInto(solid, ctx, "revolve", report)

	case "union", "intersect", "subtract":
		a, err := argSolid(vars, args, 0)
		if err != nil {
			return Value{}, err
		}
		b, err := argSolid(vars, args, 1)
		if err != nil {
			return Value{}, err
		}
		var solid kernel.Solid
		switch function {
		case "union":
			solid, err = o.Backend.BooleanUnion(a, b)
		case "intersect":
			solid, err = o.Backend.BooleanIntersect(a, b)
		case "subtract":
			solid, err = o.Backend.BooleanSubtract(a, b)
		}
		if err != nil {
			return Value{}, err
		}
		return o.tessellateInto(solid, ctx, function, report)

	case "fillet", "chamfer":
		a, err := argSolid(vars, args, 0)
		if err != nil {
			return Value{}, err
		}
		amount := argFloat(args, 1, 0)
		edges := argStringSlice(args, 2)
		var solid kernel.Solid
		if function == "fillet" {
			solid, err = o.Backend.Fillet(a, amount, edges)
		} else {
			solid, err = o.Backend.Chamfer(a, amount, edges)
		}
		if err != nil {
			return Value{}, err
		}
		report.Logs = append(report.Logs, solid.Notes...)
		return o.tessellateInto(solid, ctx, function, report)

	case "export":
		a, err := argSolid(vars, args, 0)
		if err != nil {
			return Value{}, err
		}
		text, err := o.Backend.ExportSTEP(a)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueText, Text: text}, nil

	case "import":
		text := argString(args, 1, argString(args, 0, ""))
		solid, err := o.Backend.ImportSTEP(text)
		if err != nil {
			return Value{}, err
		}
		return o.tessellateInto(solid, ctx, "import", report)

	default:
		return Value{}, &kernel.OpError{Kind: kernel.NotImplemented, Message: fmt.Sprintf("unknown syscall %q", function)}
	}
}

func (o *Orchestrator) tessellateInto(solid kernel.Solid, ctx identity.NamingContext, baseName string, report *RegenReport) (Value, error) {
	result := mesh.Translate(solid.Mesh, ctx.FeatureId(), baseName, o.Registry)
	offset := uint32(len(report.Mesh.Positions))
	report.Mesh.Positions = append(report.Mesh.Positions, result.Mesh.Positions...)
	report.Mesh.Normals = append(report.Mesh.Normals, result.Mesh.Normals...)
	for _, tri := range result.Mesh.Triangles {
		report.Mesh.Triangles = append(report.Mesh.Triangles, [3]uint32{tri[0] + offset, tri[1] + offset, tri[2] + offset})
	}
	report.Mesh.FaceIds = append(report.Mesh.FaceIds, result.Mesh.FaceIds...)
	report.Lines = append(report.Lines, result.Lines...)
	report.Points = append(report.Points, result.Points...)
	return Value{Kind: ValueSolid, Solid: solid}, nil
}

func argFloat(args []interface{}, i int, def float64) float64 {
	if i >= len(args) || args[i] == nil {
		return def
	}
	if f, ok := args[i].(float64); ok {
		return f
	}
	return def
}

func argString(args []interface{}, i int, def string) string {
	if i >= len(args) || args[i] == nil {
		return def
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return def
}

func argStringSlice(args []interface{}, i int) []string {
	if i >= len(args) || args[i] == nil {
		return nil
	}
	if s, ok := args[i].([]string); ok {
		return s
	}
	return nil
}

func argSketch(args []interface{}, i int) *sketch.Sketch {
	if i >= len(args) || args[i] == nil {
		return nil
	}
	if s, ok := args[i].(*sketch.Sketch); ok {
		return s
	}
	return nil
}

func argSolid(vars map[string]Value, args []interface{}, i int) (kernel.Solid, error) {
	if i >= len(args) {
		return kernel.Solid{}, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: "missing solid argument"}
	}
	name, ok := args[i].(string)
	if !ok {
		return kernel.Solid{}, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: "solid argument must be a variable name"}
	}
	v, ok := vars[name]
	if !ok || v.Kind != ValueSolid {
		return kernel.Solid{}, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: fmt.Sprintf("unknown solid variable %q", name)}
	}
	return v.Solid, nil
}

func axisFromName(name string) geom.RevolveAxis {
	switch name {
	case "Y":
		return geom.RevolveAxis{Kind: geom.AxisY}
	case "Z":
		return geom.RevolveAxis{Kind: geom.AxisZ}
	default:
		return geom.RevolveAxis{Kind: geom.AxisX}
	}
}

// profileToPolygon runs region detection over a sketch and flattens every
// detected region into one polygon-with-holes. Disconnected regions are
// unioned via the exterior-ring union of their boundary points when more
// than one region is found; a sketch with no closed region is an
// InvalidGeometry error.
func profileToPolygon(sk *sketch.Sketch) (geom.Polygon2D, error) {
	found := regions.FindRegions(sk.Entities)
	if len(found) == 0 {
		return geom.Polygon2D{}, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: "sketch has no closed profile region"}
	}
	r := found[0]
	return geom.Polygon2D{Exterior: r.BoundaryPoints, Interiors: r.Voids}, nil
}

// profileToPoints extracts a revolve profile as an ordered point list from
// the first detected region's boundary.
func profileToPoints(sk *sketch.Sketch) ([]geom.Point2D, error) {
	found := regions.FindRegions(sk.Entities)
	if len(found) == 0 {
		return nil, &kernel.OpError{Kind: kernel.InvalidGeometry, Message: "sketch has no closed profile region"}
	}
	return found[0].BoundaryPoints, nil
}

// projectExternalReferences refreshes a sketch's external-reference
// entities from the registry's current-cycle geometry, mirroring how a
// sketch projected onto 3D topology re-derives its 2D shape every
// regeneration rather than caching a stale projection.
func projectExternalReferences(sk *sketch.Sketch, reg *registry.Registry) {
	for entityId, topoId := range sk.ExternalReferences {
		entity, ok := reg.Resolve(topoId)
		if !ok || entity.Geometry.Kind != geom.KindLine {
			continue
		}
		start := projectToPlane(sk.Plane, entity.Geometry.Start)
		end := projectToPlane(sk.Plane, entity.Geometry.End)
		for i := range sk.Entities {
			if sk.Entities[i].Id == entityId {
				sk.Entities[i].Geometry = sketch.Line(start, end)
			}
		}
	}
}

func projectToPlane(plane geom.SketchPlane, p geom.Point3D) geom.Point2D {
	v := p.Sub(plane.Origin)
	return geom.Point2D{X: v.Dot(plane.XAxis), Y: v.Dot(plane.YAxis)}
}

// registerSketchTopology mints an edge TopoId per line/circle entity and a
// vertex TopoId per endpoint, scoped by the entity's own EntityId (the
// entity is its own naming feature, since sketch entities persist across
// regenerations independently of the owning feature's context).
func registerSketchTopology(sk *sketch.Sketch, reg *registry.Registry) {
	for _, e := range sk.Entities {
		ctx := identity.NewNamingContext(identity.FromUUID(e.Id.UUID()))
		switch e.Geometry.Kind {
		case sketch.KindLine:
			start := sk.Plane.ToWorld(e.Geometry.Start)
			end := sk.Plane.ToWorld(e.Geometry.End)
			edgeId := ctx.Derive("edge", identity.RankEdge)
			reg.Register(registry.KernelEntity{Id: edgeId, Geometry: geom.Line(start, end)})
			reg.Register(registry.KernelEntity{Id: ctx.Derive("start", identity.RankVertex), Geometry: geom.Sphere(start, 0)})
			reg.Register(registry.KernelEntity{Id: ctx.Derive("end", identity.RankVertex), Geometry: geom.Sphere(end, 0)})
		case sketch.KindCircle:
			center := sk.Plane.ToWorld(e.Geometry.Center)
			edgeId := ctx.Derive("edge", identity.RankEdge)
			reg.Register(registry.KernelEntity{Id: edgeId, Geometry: geom.Circle(center, sk.Plane.Normal, e.Geometry.Radius)})
			reg.Register(registry.KernelEntity{Id: ctx.Derive("center", identity.RankVertex), Geometry: geom.Sphere(center, 0)})
		case sketch.KindPoint:
			pos := sk.Plane.ToWorld(e.Geometry.Pos)
			reg.Register(registry.KernelEntity{Id: ctx.Derive("pos", identity.RankVertex), Geometry: geom.Sphere(pos, 0)})
		}
	}
}
