package rooms

import (
	"errors"
	"fmt"
	"log"
	"math"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ============================================================
// Room Detection
// ============================================================

var (
	ErrEmptyPolygon = errors.New("empty polygon")
	ErrInvalidArea  = errors.New("invalid polygon area")
	errNotPolygonal = errors.New("feature is not a polygon")
)

// замкнутому контуру нужно минимум три ребра
const minValidWalls = 3

// Polygonizer: внешняя процедура построения полигонов из сети отрезков.
type Polygonizer interface {
	Polygonize(lines []orb.LineString) (*geojson.FeatureCollection, error)
	PointOnSurface(poly orb.Polygon) orb.Point
}

type Detector struct {
	polygonizer Polygonizer
	newID       func() string
}

func NewDetector(p Polygonizer) *Detector {
	return &Detector{polygonizer: p, newID: uuid.NewString}
}

// wallSegment: прямой участок стены (дуги дают несколько) с этажом стены.
type wallSegment struct {
	a, b    models.Point
	floorID string
}

// Detect полностью пересчитывает список комнат по стенам.
// Имя, якорь и ID переносятся из previous по попаданию старого центра в новый полигон.
// Ошибки не возвращаются: при сбое полигонизации список пуст.
func (d *Detector) Detect(walls []models.ResolvedWall, previous []models.Room) []models.Room {
	valid := make([]models.ResolvedWall, 0, len(walls))
	for _, w := range walls {
		if w.IsDegenerate() || !arcFinite(w) {
			continue
		}
		valid = append(valid, w)
	}
	if len(valid) < minValidWalls {
		return []models.Room{}
	}

	lines, segs := toLines(valid)

	fc, err := d.polygonizer.Polygonize(lines)
	if err != nil {
		log.Printf("[ROOMS] polygonize error, clearing rooms: %v", err)
		return []models.Room{}
	}

	rooms := make([]models.Room, 0, len(fc.Features))
	usedIDs := make(map[string]bool)
	for i, f := range fc.Features {
		for _, poly := range polygonsOf(f) {
			room, ok, err := d.buildRoom(poly, previous, segs, usedIDs)
			if err != nil {
				log.Printf("[ROOMS] skip polygon %d: %v", i, err)
				continue
			}
			if !ok {
				continue
			}
			usedIDs[room.ID] = true
			rooms = append(rooms, room)
		}
	}
	return rooms
}

func arcFinite(w models.ResolvedWall) bool {
	if !w.IsArc {
		return true
	}
	return w.ArcControl1 != nil && w.ArcControl2 != nil && w.ArcControl1.IsFinite() && w.ArcControl2.IsFinite()
}

func toLines(walls []models.ResolvedWall) ([]orb.LineString, []wallSegment) {
	lines := make([]orb.LineString, 0, len(walls))
	var segs []wallSegment
	for _, w := range walls {
		points := []models.Point{w.A, w.B}
		if w.IsArc {
			points = geometry.SampleArc(w.A, *w.ArcControl1, *w.ArcControl2, w.B, models.ArcSamples)
		}
		ls := make(orb.LineString, 0, len(points))
		for i, p := range points {
			ls = append(ls, p.Orb())
			if i > 0 {
				segs = append(segs, wallSegment{a: points[i-1], b: p, floorID: w.FloorID})
			}
		}
		lines = append(lines, ls)
	}
	return lines, segs
}

func polygonsOf(f *geojson.Feature) []orb.Polygon {
	if f == nil {
		return nil
	}
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	}
	return []orb.Polygon{nil}
}

func (d *Detector) buildRoom(poly orb.Polygon, previous []models.Room, segs []wallSegment, usedIDs map[string]bool) (models.Room, bool, error) {
	if poly == nil {
		return models.Room{}, false, errNotPolygonal
	}
	if len(poly) == 0 || len(poly[0]) < 4 {
		return models.Room{}, false, ErrEmptyPolygon
	}

	areaCm2 := geometry.RingArea(poly[0])
	if math.IsNaN(areaCm2) || math.IsInf(areaCm2, 0) {
		return models.Room{}, false, ErrInvalidArea
	}
	if areaCm2 < models.MinRoomAreaCm2 {
		return models.Room{}, false, nil
	}

	room := models.Room{
		Polygon:      poly,
		Area:         areaCm2 / models.CmPerM2,
		Name:         models.DefaultRoomName,
		CenterOffset: models.DefaultCenterOffset(),
	}

	if prev, ok := inherit(poly, previous); ok {
		room.Name = prev.Name
		room.CenterOffset = prev.CenterOffset
		if !usedIDs[prev.ID] {
			room.ID = prev.ID
		}
	}
	if room.ID == "" {
		room.ID = d.newID()
	}

	bound := geometry.BoundingBox(poly)
	room.Center = centerFromOffset(bound, room.CenterOffset)
	if !geometry.PointInPolygon(room.Center, poly) {
		inside := models.FromOrb(d.polygonizer.PointOnSurface(poly))
		if !inside.IsFinite() {
			return models.Room{}, false, fmt.Errorf("interior point: %w", ErrInvalidArea)
		}
		room.Center = inside
		room.CenterOffset = offsetFromCenter(bound, inside)
	}

	room.FloorID = floorOf(poly[0], segs)
	return room, true, nil
}

// inherit выбирает из старых комнат, чей центр попал в полигон, комнату с наибольшей площадью.
// При равенстве площадей побеждает встретившаяся раньше.
func inherit(poly orb.Polygon, previous []models.Room) (models.Room, bool) {
	var best models.Room
	found := false
	for _, prev := range previous {
		if !geometry.PointInPolygon(prev.Center, poly) {
			continue
		}
		if !found || prev.Area > best.Area {
			best = prev
			found = true
		}
	}
	return best, found
}

func centerFromOffset(b orb.Bound, offset models.Point) models.Point {
	return models.Point{
		X: b.Min[0] + (b.Max[0]-b.Min[0])*offset.X,
		Y: b.Min[1] + (b.Max[1]-b.Min[1])*offset.Y,
	}
}

func offsetFromCenter(b orb.Bound, p models.Point) models.Point {
	offset := models.DefaultCenterOffset()
	if w := b.Max[0] - b.Min[0]; w > 0 {
		offset.X = (p.X - b.Min[0]) / w
	}
	if h := b.Max[1] - b.Min[1]; h > 0 {
		offset.Y = (p.Y - b.Min[1]) / h
	}
	return offset
}

// floorOf сопоставляет ребра контура со стенами: сначала по совпадению концов,
// затем по лежанию ребра на части стены.
func floorOf(ring orb.Ring, segs []wallSegment) string {
	for i := 0; i+1 < len(ring); i++ {
		a, b := models.FromOrb(ring[i]), models.FromOrb(ring[i+1])
		for _, s := range segs {
			if endpointsMatch(a, b, s) {
				return s.floorID
			}
		}
	}
	for i := 0; i+1 < len(ring); i++ {
		a, b := models.FromOrb(ring[i]), models.FromOrb(ring[i+1])
		for _, s := range segs {
			if geometry.DistanceToSegment(a, s.a, s.b) <= models.EdgeMatchTol &&
				geometry.DistanceToSegment(b, s.a, s.b) <= models.EdgeMatchTol {
				return s.floorID
			}
		}
	}
	return ""
}

func endpointsMatch(a, b models.Point, s wallSegment) bool {
	tol := models.EdgeMatchTol
	return (geometry.Distance(a, s.a) <= tol && geometry.Distance(b, s.b) <= tol) ||
		(geometry.Distance(a, s.b) <= tol && geometry.Distance(b, s.a) <= tol)
}
