package mapper

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// ============================================================
// Renderer
// ============================================================

const (
	renderPadding      = 50.0
	outlineSimplifyTol = 0.5
)

// Plan: коллекции, которые читает рендерер. Реализуется document.Document.
type Plan interface {
	Walls(floors ...string) []models.ResolvedWall
	Openings() []models.Opening
	Rooms(floors ...string) []models.Room
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render собирает отладочный SVG плана: стены, комнаты с подписями, проемы.
func (r *Renderer) Render(plan Plan, floors ...string) (string, error) {
	if plan == nil {
		return "", fmt.Errorf("plan is nil")
	}

	walls := plan.Walls(floors...)
	wallByID := make(map[models.WallID]models.ResolvedWall, len(walls))
	for _, w := range walls {
		wallByID[w.ID] = w
	}

	minX, minY, width, height := r.sceneBounds(walls)

	var elements []string
	elements = append(elements, r.renderRooms(plan.Rooms(floors...))...)
	elements = append(elements, r.renderWalls(walls)...)
	elements = append(elements, r.renderOpenings(plan.Openings(), wallByID)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="%s %s %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(minX), formatFloat(minY), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Sizing
// ============================================================

func (r *Renderer) sceneBounds(walls []models.ResolvedWall) (float64, float64, float64, float64) {
	if len(walls) == 0 {
		return 0, 0, 1000, 1000
	}

	bound := orb.Bound{Min: walls[0].A.Orb(), Max: walls[0].A.Orb()}
	for _, w := range walls {
		for _, p := range wallPoints(w) {
			bound = bound.Extend(p.Orb())
		}
	}
	bound = bound.Pad(renderPadding)

	width := bound.Max[0] - bound.Min[0]
	height := bound.Max[1] - bound.Min[1]
	return bound.Min[0], bound.Min[1], width, height
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderWalls(walls []models.ResolvedWall) []string {
	var out []string

	for _, w := range walls {
		if w.IsDegenerate() {
			continue
		}
		id := fmt.Sprintf("wall-%d", w.ID)

		if w.IsArc {
			out = append(out, fmt.Sprintf(`<path id="%s" d="M %s C %s, %s, %s" fill="none" stroke="#000" stroke-width="%s" />`,
				id, formatPoint(w.A), formatPoint(*w.ArcControl1), formatPoint(*w.ArcControl2), formatPoint(w.B),
				formatFloat(w.Thickness)))
			continue
		}

		stroke := "#000"
		switch w.Type {
		case models.WallHalf:
			stroke = "#7f7f7f"
		case models.WallBalcony:
			stroke = "#2ca02c"
		case models.WallGlass:
			stroke = "#17becf"
		}
		corners := bandCorners(w.A, w.B, 0, w.Length(), w.Thickness)
		out = append(out, polygonPath(id, corners, "none", stroke))
	}

	return out
}

func (r *Renderer) renderOpenings(openings []models.Opening, walls map[models.WallID]models.ResolvedWall) []string {
	var out []string

	for _, o := range openings {
		w, ok := walls[o.WallID]
		if !ok || w.IsDegenerate() {
			continue
		}

		stroke := "#1f77b4"
		switch o.Kind {
		case models.KindDoor:
			stroke = "#d62728"
		case models.KindVent:
			stroke = "#9467bd"
		}

		span := o.Span()
		corners := bandCorners(w.A, w.B, span.Start, span.End, w.Thickness)
		out = append(out, polygonPath(fmt.Sprintf("%s-%d", o.Kind, o.ID), corners, "#fff", stroke))
	}

	return out
}

func (r *Renderer) renderRooms(rooms []models.Room) []string {
	var out []string

	for _, room := range rooms {
		if len(room.Polygon) == 0 {
			continue
		}
		outline := simplifyRing(room.Polygon[0])
		if len(outline) < 4 {
			continue
		}

		points := make([]models.Point, 0, len(outline)-1)
		for _, p := range outline[:len(outline)-1] {
			points = append(points, models.FromOrb(p))
		}
		out = append(out, polygonPath("room-"+room.ID, points, "#f5f5f5", "#888"))

		out = append(out, fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" font-size="14">%s</text>`,
			formatFloat(room.Center.X), formatFloat(room.Center.Y), html.EscapeString(room.Name)))
		out = append(out, fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" font-size="11">%s m²</text>`,
			formatFloat(room.Center.X), formatFloat(room.Center.Y+16), strconv.FormatFloat(room.Area, 'f', 2, 64)))
	}

	return out
}

// ============================================================
// Geometry helpers
// ============================================================

func simplifyRing(ring orb.Ring) orb.Ring {
	ls := orb.LineString(ring)
	simplified, ok := simplify.DouglasPeucker(outlineSimplifyTol).Simplify(ls.Clone()).(orb.LineString)
	if !ok {
		return ring
	}
	return orb.Ring(simplified)
}

// bandCorners: прямоугольник вдоль оси ab от from до to (расстояния от a) шириной thickness.
func bandCorners(a, b models.Point, from, to, thickness float64) []models.Point {
	length := geometry.Distance(a, b)
	if length == 0 {
		return nil
	}
	ux, uy := (b.X-a.X)/length, (b.Y-a.Y)/length
	nx, ny := -uy*thickness/2, ux*thickness/2

	p1 := models.Point{X: a.X + ux*from, Y: a.Y + uy*from}
	p2 := models.Point{X: a.X + ux*to, Y: a.Y + uy*to}
	return []models.Point{
		{X: p1.X + nx, Y: p1.Y + ny},
		{X: p2.X + nx, Y: p2.Y + ny},
		{X: p2.X - nx, Y: p2.Y - ny},
		{X: p1.X - nx, Y: p1.Y - ny},
	}
}

func polygonPath(id string, points []models.Point, fill, stroke string) string {
	if len(points) == 0 {
		return ""
	}
	var path strings.Builder
	path.WriteString(`<path id="`)
	path.WriteString(html.EscapeString(id))
	path.WriteString(`" d="M `)
	path.WriteString(formatPoint(points[0]))
	for _, p := range points[1:] {
		path.WriteString(" L ")
		path.WriteString(formatPoint(p))
	}
	path.WriteString(fmt.Sprintf(` Z" fill="%s" stroke="%s" />`, fill, stroke))
	return path.String()
}

func wallPoints(w models.ResolvedWall) []models.Point {
	if w.IsArc && w.ArcControl1 != nil && w.ArcControl2 != nil {
		return geometry.SampleArc(w.A, *w.ArcControl1, *w.ArcControl2, w.B, models.ArcSamples)
	}
	return []models.Point{w.A, w.B}
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	if math.Abs(val) < 1e-9 {
		val = 0
	}
	return strconv.FormatFloat(math.Round(val*1000)/1000, 'f', -1, 64)
}

func formatPoint(p models.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
