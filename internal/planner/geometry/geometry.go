package geometry

import (
	"math"

	"floorplan/internal/planner/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ============================================================
// Distances & projections
// ============================================================

const eps = 1e-9

func Distance(a, b models.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ProjectOnSegment возвращает параметр t ∈ [0,1] ближайшей точки отрезка ab.
func ProjectOnSegment(p, a, b models.Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	return clamp(t, 0, 1)
}

// DistanceToSegment: расстояние от точки до отрезка ab.
func DistanceToSegment(p, a, b models.Point) float64 {
	return planar.DistanceFromSegment(a.Orb(), b.Orb(), p.Orb())
}

func Lerp(a, b models.Point, t float64) models.Point {
	return models.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// ============================================================
// Intersections
// ============================================================

// SegmentIntersection ищет общую точку отрезков a1a2 и b1b2.
// Касание концами считается пересечением; коллинеарные отрезки: нет.
func SegmentIntersection(a1, a2, b1, b2 models.Point) (models.Point, bool) {
	p, ta, tb, ok := lineParams(a1, a2, b1, b2)
	if !ok {
		return models.Point{}, false
	}
	if ta < -eps || ta > 1+eps || tb < -eps || tb > 1+eps {
		return models.Point{}, false
	}
	return p, true
}

// LineIntersection пересекает бесконечные прямые через a1a2 и b1b2.
func LineIntersection(a1, a2, b1, b2 models.Point) (models.Point, bool) {
	p, _, _, ok := lineParams(a1, a2, b1, b2)
	return p, ok
}

func lineParams(a1, a2, b1, b2 models.Point) (models.Point, float64, float64, bool) {
	rx, ry := a2.X-a1.X, a2.Y-a1.Y
	sx, sy := b2.X-b1.X, b2.Y-b1.Y
	denom := rx*sy - ry*sx
	if math.Abs(denom) < eps {
		return models.Point{}, 0, 0, false
	}
	qx, qy := b1.X-a1.X, b1.Y-a1.Y
	ta := (qx*sy - qy*sx) / denom
	tb := (qx*ry - qy*rx) / denom
	return models.Point{X: a1.X + ta*rx, Y: a1.Y + ta*ry}, ta, tb, true
}

// ============================================================
// Angle snapping
// ============================================================

const DefaultSnapStep = 15.0

// SnapAngle поворачивает to вокруг from к ближайшему кратному stepDeg углу, сохраняя длину.
func SnapAngle(from, to models.Point, stepDeg float64) models.Point {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)
	if length == 0 || stepDeg <= 0 {
		return to
	}
	step := stepDeg * math.Pi / 180
	angle := math.Round(math.Atan2(dy, dx)/step) * step
	return models.Point{
		X: from.X + length*math.Cos(angle),
		Y: from.Y + length*math.Sin(angle),
	}
}

// ============================================================
// Arc walls
// ============================================================

// CubicBezier вычисляет точку кубической кривой Безье при параметре t.
func CubicBezier(p0, c1, c2, p3 models.Point, t float64) models.Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return models.Point{
		X: a*p0.X + b*c1.X + c*c2.X + d*p3.X,
		Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p3.Y,
	}
}

// SampleArc разбивает дугу на n прямых участков (n+1 точка, концы совпадают с p0/p3).
func SampleArc(p0, c1, c2, p3 models.Point, n int) []models.Point {
	if n < 1 {
		n = 1
	}
	points := make([]models.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		points = append(points, CubicBezier(p0, c1, c2, p3, float64(i)/float64(n)))
	}
	points[0] = p0
	points[n] = p3
	return points
}

// ============================================================
// Polygons
// ============================================================

// ShoelaceArea: удвоенная знаковая площадь кольца (формула шнурования).
func ShoelaceArea(ring orb.Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum
}

// RingArea: абсолютная площадь кольца в исходных единицах.
func RingArea(ring orb.Ring) float64 {
	return math.Abs(ShoelaceArea(ring)) / 2
}

func PointInPolygon(p models.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	return planar.PolygonContains(poly, p.Orb())
}

func BoundingBox(poly orb.Polygon) orb.Bound {
	if len(poly) == 0 {
		return orb.Bound{}
	}
	return poly[0].Bound()
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
