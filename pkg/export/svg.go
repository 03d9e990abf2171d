package export

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/archkit/cadcore/pkg/feature"
	"github.com/archkit/cadcore/pkg/geom"
	"github.com/archkit/cadcore/pkg/regions"
	"github.com/archkit/cadcore/pkg/sketch"
)

// SketchSVGOptions configures a sketch's SVG visualization.
type SketchSVGOptions struct {
	Width        int     // Canvas width in pixels
	Height       int     // Canvas height in pixels
	Scale        float64 // Sketch-units-to-pixels scale factor
	Margin       int     // Canvas margin in pixels
	ShowRegions  bool    // Fill detected regions
	ShowVoids    bool    // Render nested voids as holes (requires ShowRegions)
	ShowAxes     bool    // Draw the sketch plane's origin axes
	Title        string  // Optional title
}

// DefaultSketchSVGOptions returns sensible default sketch export options.
func DefaultSketchSVGOptions() SketchSVGOptions {
	return SketchSVGOptions{
		Width:       900,
		Height:      700,
		Scale:       10,
		Margin:      40,
		ShowRegions: true,
		ShowVoids:   true,
		ShowAxes:    true,
		Title:       "Sketch",
	}
}

// ExportSketchSVG renders a sketch's entities, construction geometry, and
// (optionally) its detected regions.
func ExportSketchSVG(sk *sketch.Sketch, opts SketchSVGOptions) ([]byte, error) {
	if sk == nil {
		return nil, fmt.Errorf("sketch cannot be nil")
	}
	opts = normalizeSketchOpts(opts)

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:#1a1a2e")

	originX, originY := opts.Width/2, opts.Height/2

	if opts.ShowAxes {
		canvas.Line(0, originY, opts.Width, originY, "stroke:#4a5568;stroke-width:1")
		canvas.Line(originX, 0, originX, opts.Height, "stroke:#4a5568;stroke-width:1")
	}

	toCanvas := func(p geom.Point2D) (int, int) {
		return originX + int(p.X*opts.Scale), originY - int(p.Y*opts.Scale)
	}

	if opts.ShowRegions {
		found := regions.FindRegions(sk.Entities)
		drawRegions(canvas, found, toCanvas, opts)
	}

	drawSketchEntities(canvas, sk.Entities, toCanvas, opts.Scale)

	if opts.Title != "" {
		canvas.Text(opts.Width/2, 25, opts.Title,
			"text-anchor:middle;font-size:18px;font-weight:bold;fill:#e2e8f0;font-family:sans-serif")
	}

	canvas.End()
	return buf.Bytes(), nil
}

// SaveSketchSVG renders a sketch to SVG and writes it to a file.
func SaveSketchSVG(sk *sketch.Sketch, path string, opts SketchSVGOptions) error {
	data, err := ExportSketchSVG(sk, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func normalizeSketchOpts(opts SketchSVGOptions) SketchSVGOptions {
	if opts.Width <= 0 {
		opts.Width = 900
	}
	if opts.Height <= 0 {
		opts.Height = 700
	}
	if opts.Scale <= 0 {
		opts.Scale = 10
	}
	if opts.Margin <= 0 {
		opts.Margin = 40
	}
	return opts
}

func drawRegions(canvas *svg.SVG, found []regions.SketchRegion, toCanvas func(geom.Point2D) (int, int), opts SketchSVGOptions) {
	sort.Slice(found, func(i, j int) bool { return found[i].Id < found[j].Id })

	for _, r := range found {
		xs := make([]int, 0, len(r.BoundaryPoints))
		ys := make([]int, 0, len(r.BoundaryPoints))
		for _, p := range r.BoundaryPoints {
			x, y := toCanvas(p)
			xs = append(xs, x)
			ys = append(ys, y)
		}
		if len(xs) < 3 {
			continue
		}
		canvas.Polygon(xs, ys, "fill:#4299e1;fill-opacity:0.25;stroke:none")

		if opts.ShowVoids {
			for _, void := range r.Voids {
				vxs := make([]int, 0, len(void))
				vys := make([]int, 0, len(void))
				for _, p := range void {
					x, y := toCanvas(p)
					vxs = append(vxs, x)
					vys = append(vys, y)
				}
				if len(vxs) >= 3 {
					canvas.Polygon(vxs, vys, "fill:#1a1a2e;fill-opacity:0.9;stroke:none")
				}
			}
		}
	}
}

func drawSketchEntities(canvas *svg.SVG, entities []sketch.Entity, toCanvas func(geom.Point2D) (int, int), scale float64) {
	ids := make([]int, len(entities))
	for i := range entities {
		ids[i] = i
	}
	sort.Slice(ids, func(i, j int) bool { return entities[ids[i]].Id.String() < entities[ids[j]].Id.String() })

	for _, i := range ids {
		e := entities[i]
		style := "stroke:#e2e8f0;stroke-width:2"
		if e.IsConstruction {
			style = "stroke:#718096;stroke-width:1;stroke-dasharray:4,4"
		}

		switch e.Geometry.Kind {
		case sketch.KindLine:
			x1, y1 := toCanvas(e.Geometry.Start)
			x2, y2 := toCanvas(e.Geometry.End)
			canvas.Line(x1, y1, x2, y2, style)
		case sketch.KindCircle:
			cx, cy := toCanvas(e.Geometry.Center)
			canvas.Circle(cx, cy, int(e.Geometry.Radius*scale), "fill:none;"+style)
		case sketch.KindArc:
			drawArcEntity(canvas, e, toCanvas, style)
		case sketch.KindPoint:
			px, py := toCanvas(e.Geometry.Pos)
			canvas.Circle(px, py, 3, "fill:#e2e8f0;stroke:none")
		case sketch.KindEllipse:
			cx, cy := toCanvas(e.Geometry.Center)
			canvas.Ellipse(cx, cy, int(e.Geometry.SemiMajor*scale), int(e.Geometry.SemiMinor*scale), style)
		}
	}
}

func drawArcEntity(canvas *svg.SVG, e sketch.Entity, toCanvas func(geom.Point2D) (int, int), style string) {
	const segments = 32
	span := e.Geometry.EndAngle - e.Geometry.StartAngle
	var prevX, prevY int
	for i := 0; i <= segments; i++ {
		t := e.Geometry.StartAngle + span*float64(i)/float64(segments)
		p := geom.Point2D{
			X: e.Geometry.Center.X + e.Geometry.Radius*math.Cos(t),
			Y: e.Geometry.Center.Y + e.Geometry.Radius*math.Sin(t),
		}
		x, y := toCanvas(p)
		if i > 0 {
			canvas.Line(prevX, prevY, x, y, style)
		}
		prevX, prevY = x, y
	}
}

// GraphSVGOptions configures a feature graph's SVG visualization.
type GraphSVGOptions struct {
	Width      int
	Height     int
	NodeWidth  int
	NodeHeight int
	Margin     int
	Title      string
}

// DefaultGraphSVGOptions returns sensible default feature-graph export
// options.
func DefaultGraphSVGOptions() GraphSVGOptions {
	return GraphSVGOptions{
		Width:      1000,
		Height:     300,
		NodeWidth:  140,
		NodeHeight: 50,
		Margin:     40,
		Title:      "Feature Graph",
	}
}

// ExportFeatureGraphSVG renders a feature graph's topological order as a
// left-to-right chain of boxes, color coded by feature type, with
// suppressed features drawn dimmed.
func ExportFeatureGraphSVG(g *feature.Graph, opts GraphSVGOptions) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}
	if opts.Width <= 0 {
		opts.Width = 1000
	}
	if opts.Height <= 0 {
		opts.Height = 300
	}
	if opts.NodeWidth <= 0 {
		opts.NodeWidth = 140
	}
	if opts.NodeHeight <= 0 {
		opts.NodeHeight = 50
	}
	if opts.Margin <= 0 {
		opts.Margin = 40
	}

	order, err := g.Sort()
	if err != nil {
		order = g.ActiveOrder()
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:#1a1a2e")

	if opts.Title != "" {
		canvas.Text(opts.Width/2, 25, opts.Title,
			"text-anchor:middle;font-size:18px;font-weight:bold;fill:#e2e8f0;font-family:sans-serif")
	}

	y := opts.Height / 2
	step := opts.NodeWidth + opts.Margin
	x := opts.Margin

	centers := make(map[int]int, len(order))
	for i, id := range order {
		f := g.Nodes[id]
		if f == nil {
			continue
		}
		nodeX := x + i*step
		centers[i] = nodeX + opts.NodeWidth/2

		if i > 0 {
			prevCenter := centers[i-1] + opts.NodeWidth/2
			canvas.Line(prevCenter, y, nodeX, y, "stroke:#4a5568;stroke-width:2")
		}

		fill := featureTypeColor(f.Type)
		opacity := "1"
		if f.Suppressed {
			opacity = "0.35"
		}
		canvas.Rect(nodeX, y-opts.NodeHeight/2, opts.NodeWidth, opts.NodeHeight,
			fmt.Sprintf("fill:%s;fill-opacity:%s;stroke:#e2e8f0;stroke-width:1;rx:6", fill, opacity))
		canvas.Text(nodeX+opts.NodeWidth/2, y-4, f.Name,
			"text-anchor:middle;font-size:12px;fill:#e2e8f0;font-family:monospace")
		canvas.Text(nodeX+opts.NodeWidth/2, y+14, f.Type.String(),
			"text-anchor:middle;font-size:10px;fill:#cbd5e0;font-family:monospace")
	}

	canvas.End()
	return buf.Bytes(), nil
}

// SaveFeatureGraphSVG renders a feature graph to SVG and writes it to a
// file.
func SaveFeatureGraphSVG(g *feature.Graph, path string, opts GraphSVGOptions) error {
	data, err := ExportFeatureGraphSVG(g, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func featureTypeColor(t feature.FeatureType) string {
	switch t {
	case feature.TypeSketch:
		return "#4299e1"
	case feature.TypeExtrude:
		return "#48bb78"
	case feature.TypeRevolve:
		return "#9f7aea"
	case feature.TypeCut:
		return "#f56565"
	case feature.TypePlane:
		return "#ed8936"
	case feature.TypeAxis:
		return "#ecc94b"
	case feature.TypePoint:
		return "#718096"
	default:
		return "#4a5568"
	}
}
