package rooms

import (
	"math"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"
)

// sideProbe: на сколько отступать от оси стены, проверяя, какая комната по каждую сторону.
const sideProbe = 1.0

// Sides возвращает комнаты слева и справа от середины стены (по направлению p1→p2).
func Sides(rooms []models.Room, w models.ResolvedWall) (left, right *models.Room) {
	mid, nx, ny, ok := midNormal(w)
	if !ok {
		return nil, nil
	}
	left = At(rooms, models.Point{X: mid.X + nx*sideProbe, Y: mid.Y + ny*sideProbe}, w.FloorID)
	right = At(rooms, models.Point{X: mid.X - nx*sideProbe, Y: mid.Y - ny*sideProbe}, w.FloorID)
	return left, right
}

// NameForWall: имя комнаты, примыкающей к стене. Сначала проверяется левая сторона.
func NameForWall(rooms []models.Room, w models.ResolvedWall) string {
	left, right := Sides(rooms, w)
	switch {
	case left != nil:
		return left.Name
	case right != nil:
		return right.Name
	}
	return ""
}

// ExteriorWalls: стены контура комнаты, по другую сторону которых нет другой комнаты.
func ExteriorWalls(room models.Room, rooms []models.Room, walls []models.ResolvedWall) []models.ResolvedWall {
	var out []models.ResolvedWall
	for _, w := range walls {
		left, right := Sides(rooms, w)
		switch {
		case left != nil && left.ID == room.ID && right == nil:
			out = append(out, w)
		case right != nil && right.ID == room.ID && left == nil:
			out = append(out, w)
		}
	}
	return out
}

// At: первая комната этажа, содержащая точку.
func At(rooms []models.Room, p models.Point, floorID string) *models.Room {
	for i := range rooms {
		if rooms[i].FloorID != floorID {
			continue
		}
		if geometry.PointInPolygon(p, rooms[i].Polygon) {
			return &rooms[i]
		}
	}
	return nil
}

func midNormal(w models.ResolvedWall) (models.Point, float64, float64, bool) {
	if w.IsDegenerate() {
		return models.Point{}, 0, 0, false
	}
	a, b := w.A, w.B
	mid := geometry.Lerp(a, b, 0.5)
	if w.IsArc && w.ArcControl1 != nil && w.ArcControl2 != nil {
		mid = geometry.CubicBezier(w.A, *w.ArcControl1, *w.ArcControl2, w.B, 0.5)
		a = geometry.CubicBezier(w.A, *w.ArcControl1, *w.ArcControl2, w.B, 0.45)
		b = geometry.CubicBezier(w.A, *w.ArcControl1, *w.ArcControl2, w.B, 0.55)
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return models.Point{}, 0, 0, false
	}
	return mid, -dy / length, dx / length, true
}

func Contains(room models.Room, p models.Point) bool {
	return geometry.PointInPolygon(p, room.Polygon)
}

// OffsetIn переводит точку в долю bbox комнаты (centerOffset).
func OffsetIn(room models.Room, p models.Point) models.Point {
	return offsetFromCenter(geometry.BoundingBox(room.Polygon), p)
}
