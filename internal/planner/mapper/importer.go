package mapper

import (
	"fmt"
	"io"
	"log"
	"math"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/graph"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/parser"
)

// ============================================================
// Importer
// ============================================================

const connectTolerance = 15.0 // допуск продления оси стены до пересечения с соседней

// Target: то, во что импортируются элементы плана. Реализуется document.Document.
type Target interface {
	Batch(fn func() error) error
	AddWall(a, b models.Point, opts graph.WallOptions) (models.WallID, error)
	PlaceOpening(kind models.OpeningKind, p models.Point, floorID string) (models.Opening, bool)
	ResizeOpening(id models.OpeningID, width float64) (bool, error)
	Rooms(floors ...string) []models.Room
	RenameRoom(id, name string) error
}

type Importer struct {
	target  Target
	floorID string
}

// Report: итог импорта: сколько элементов принято и какие отклонены.
type Report struct {
	Walls     int      `json:"walls"`
	Openings  int      `json:"openings"`
	Rooms     int      `json:"rooms"`
	Labeled   int      `json:"labeled"`
	Rejected  []string `json:"rejected"`
	Arcs      int      `json:"arcs"`
	Resized   int      `json:"resized"`
	Unmatched []string `json:"unmatched"`
}

func NewImporter(target Target, floorID string) *Importer {
	return &Importer{target: target, floorID: floorID}
}

type wallLine struct {
	id        string
	p1, p2    models.Point
	thickness float64
	wallType  models.WallType
	c1, c2    *models.Point
}

func (w wallLine) isArc() bool {
	return w.c1 != nil && w.c2 != nil
}

// Import читает SVG и переносит стены, проемы и подписи комнат в документ.
func (im *Importer) Import(r io.Reader) (Report, error) {
	elements, err := parser.ParseSVG(r)
	if err != nil {
		return Report{}, fmt.Errorf("parse SVG: %w", err)
	}

	// Разделяем элементы по типам
	var walls []wallLine
	var openings, labels []parser.Element
	report := Report{Rejected: []string{}, Unmatched: []string{}}
	for _, elem := range elements {
		switch {
		case elem.IsWall():
			lines, err := wallLines(elem)
			if err != nil {
				log.Printf("[IMPORT] wall %s: %v", elem.ID, err)
				report.Rejected = append(report.Rejected, elem.ID)
				continue
			}
			walls = append(walls, lines...)
		case elem.Kind == parser.KindRoom:
			labels = append(labels, elem)
		default:
			openings = append(openings, elem)
		}
	}

	connectWalls(walls)

	err = im.target.Batch(func() error {
		for _, w := range walls {
			opts := graph.WallOptions{
				Thickness:   w.thickness,
				Type:        w.wallType,
				FloorID:     im.floorID,
				IsArc:       w.isArc(),
				ArcControl1: w.c1,
				ArcControl2: w.c2,
			}
			if _, err := im.target.AddWall(w.p1, w.p2, opts); err != nil {
				log.Printf("[IMPORT] wall %s rejected: %v", w.id, err)
				report.Rejected = append(report.Rejected, w.id)
				continue
			}
			report.Walls++
			if w.isArc() {
				report.Arcs++
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	// подписи до проемов: имя комнаты задает ширину окна санузла
	for _, label := range labels {
		if im.labelRoom(label) {
			report.Labeled++
		} else {
			report.Unmatched = append(report.Unmatched, label.ID)
		}
	}

	err = im.target.Batch(func() error {
		for _, elem := range openings {
			placed, resized := im.placeOpening(elem)
			if !placed {
				report.Rejected = append(report.Rejected, elem.ID)
				continue
			}
			report.Openings++
			if resized {
				report.Resized++
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	report.Rooms = len(im.target.Rooms(im.floorID))
	log.Printf("[IMPORT] walls=%d openings=%d rooms=%d rejected=%d",
		report.Walls, report.Openings, report.Rooms, len(report.Rejected))
	return report, nil
}

// placeOpening ставит проем по центру элемента; нарисованная ширина применяется как ручная, если помещается.
func (im *Importer) placeOpening(elem parser.Element) (bool, bool) {
	kind := openingKind(elem.Kind)
	if kind == "" {
		return false, false
	}
	center, ok := elementCenter(elem)
	if !ok {
		return false, false
	}

	o, ok := im.target.PlaceOpening(kind, center, im.floorID)
	if !ok {
		log.Printf("[IMPORT] %s %s: no space on nearest wall", kind, elem.ID)
		return false, false
	}

	width := drawnWidth(elem)
	if width < models.MinItemWidth || math.Abs(width-o.Width) < 1e-6 {
		return true, false
	}
	resized, err := im.target.ResizeOpening(o.ID, width)
	if err != nil {
		return true, false
	}
	return true, resized
}

func (im *Importer) labelRoom(label parser.Element) bool {
	if label.Label == "" {
		return false
	}
	center, ok := elementCenter(label)
	if !ok {
		return false
	}
	for _, room := range im.target.Rooms(im.floorID) {
		if geometry.PointInPolygon(center, room.Polygon) {
			return im.target.RenameRoom(room.ID, label.Label) == nil
		}
	}
	return false
}

func openingKind(kind parser.ElementKind) models.OpeningKind {
	switch kind {
	case parser.KindDoor:
		return models.KindDoor
	case parser.KindWindow:
		return models.KindWindow
	case parser.KindVent:
		return models.KindVent
	}
	return ""
}

func wallType(kind parser.ElementKind) models.WallType {
	switch kind {
	case parser.KindHalfWall:
		return models.WallHalf
	case parser.KindBalcony:
		return models.WallBalcony
	case parser.KindGlass:
		return models.WallGlass
	}
	return models.WallNormal
}

// ============================================================
// Wall geometry
// ============================================================

func wallLines(elem parser.Element) ([]wallLine, error) {
	switch geom := elem.Geometry.(type) {
	case parser.RectGeometry:
		return []wallLine{rectWall(elem.ID, wallType(elem.Kind), geom)}, nil
	case parser.PathGeometry:
		return pathWalls(elem.ID, wallType(elem.Kind), geom)
	}
	return nil, fmt.Errorf("unknown geometry type")
}

// rectWall: ось по длинной стороне, толщина: короткая сторона.
func rectWall(id string, t models.WallType, rect parser.RectGeometry) wallLine {
	w := wallLine{id: id, wallType: t, thickness: math.Min(rect.Width, rect.Height)}
	if rect.Width > rect.Height {
		// Горизонтальная линия
		w.p1 = models.Point{X: rect.X, Y: rect.Y + rect.Height/2}
		w.p2 = models.Point{X: rect.X + rect.Width, Y: rect.Y + rect.Height/2}
	} else {
		// Вертикальная линия
		w.p1 = models.Point{X: rect.X + rect.Width/2, Y: rect.Y}
		w.p2 = models.Point{X: rect.X + rect.Width/2, Y: rect.Y + rect.Height}
	}
	return w
}

// pathWalls: кривая (C) дает дуговую стену по оси с толщиной stroke-width,
// замкнутый контур без кривых трактуется как прямоугольник стены по bbox.
func pathWalls(id string, t models.WallType, path parser.PathGeometry) ([]wallLine, error) {
	segments, err := parser.ParseSegments(path.D)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("path has no segments")
	}

	thickness := path.StrokeWidth
	if thickness <= 0 {
		thickness = models.DefaultThickness
	}

	hasCubic := false
	for _, s := range segments {
		if s.IsCubic() {
			hasCubic = true
			break
		}
	}

	if !hasCubic && isClosed(segments) {
		return []wallLine{bboxWall(id, t, segments)}, nil
	}

	out := make([]wallLine, 0, len(segments))
	for i, s := range segments {
		w := wallLine{
			id:        fmt.Sprintf("%s_%d", id, i+1),
			p1:        s.From,
			p2:        s.To,
			thickness: thickness,
			wallType:  t,
		}
		if len(segments) == 1 {
			w.id = id
		}
		if s.IsCubic() {
			c1, c2 := *s.C1, *s.C2
			w.c1, w.c2 = &c1, &c2
		}
		out = append(out, w)
	}
	return out, nil
}

func isClosed(segments []parser.Segment) bool {
	first := segments[0].From
	last := segments[len(segments)-1].To
	return len(segments) > 2 && geometry.Distance(first, last) < 1e-6
}

// bboxWall: как у прямоугольника: центр длинной стороны bounding box.
func bboxWall(id string, t models.WallType, segments []parser.Segment) wallLine {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, s := range segments {
		for _, p := range []models.Point{s.From, s.To} {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return rectWall(id, t, parser.RectGeometry{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY})
}

// connectWalls продлевает или подрезает оси прямых стен до точки пересечения с соседней
// стеной, если концы разошлись не больше чем на connectTolerance (углы из прямоугольников).
func connectWalls(walls []wallLine) {
	for i := range walls {
		for j := range walls {
			if i == j || walls[i].isArc() || walls[j].isArc() {
				continue
			}
			a, b := &walls[i], &walls[j]
			p, ok := geometry.LineIntersection(a.p1, a.p2, b.p1, b.p2)
			if !ok {
				continue
			}
			if geometry.DistanceToSegment(p, b.p1, b.p2) > connectTolerance {
				continue
			}
			switch {
			case geometry.Distance(a.p1, p) <= connectTolerance:
				a.p1 = p
			case geometry.Distance(a.p2, p) <= connectTolerance:
				a.p2 = p
			}
		}
	}
}

// ============================================================
// Geometry helpers
// ============================================================

func elementCenter(elem parser.Element) (models.Point, bool) {
	switch geom := elem.Geometry.(type) {
	case parser.RectGeometry:
		return models.Point{
			X: geom.X + geom.Width/2,
			Y: geom.Y + geom.Height/2,
		}, true
	case parser.PathGeometry:
		points, err := parser.ParsePath(geom.D)
		if err != nil || len(points) == 0 {
			return models.Point{}, false
		}
		// убираем дубль замыкания
		if len(points) > 1 && points[0] == points[len(points)-1] {
			points = points[:len(points)-1]
		}
		// Центр = средняя точка
		var sumX, sumY float64
		for _, p := range points {
			sumX += p.X
			sumY += p.Y
		}
		return models.Point{
			X: sumX / float64(len(points)),
			Y: sumY / float64(len(points)),
		}, true
	}
	return models.Point{}, false
}

// drawnWidth: длинная сторона элемента проема.
func drawnWidth(elem parser.Element) float64 {
	switch geom := elem.Geometry.(type) {
	case parser.RectGeometry:
		return math.Max(geom.Width, geom.Height)
	case parser.PathGeometry:
		points, err := parser.ParsePath(geom.D)
		if err != nil || len(points) == 0 {
			return 0
		}
		minX, minY := points[0].X, points[0].Y
		maxX, maxY := minX, minY
		for _, p := range points {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
		return math.Max(maxX-minX, maxY-minY)
	}
	return 0
}
