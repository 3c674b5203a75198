package polygonize

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var scanFractions = []float64{0.5, 0.25, 0.75, 0.375, 0.625, 0.125, 0.875}

// PointOnSurface возвращает точку, гарантированно лежащую внутри полигона:
// середину самого широкого внутреннего отрезка горизонтальной секущей.
func (p *Polygonizer) PointOnSurface(poly orb.Polygon) orb.Point {
	return PointOnSurface(poly)
}

func PointOnSurface(poly orb.Polygon) orb.Point {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return orb.Point{}
	}
	bound := poly.Bound()
	height := bound.Max[1] - bound.Min[1]

	for _, f := range scanFractions {
		y := bound.Min[1] + height*f
		if pt, ok := widestSpan(poly, y); ok {
			return pt
		}
	}

	centroid, _ := planar.CentroidArea(poly)
	return centroid
}

func widestSpan(poly orb.Polygon, y float64) (orb.Point, bool) {
	var xs []float64
	for _, ring := range poly {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] <= y && y < b[1]) || (b[1] <= y && y < a[1]) {
				xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
			}
		}
	}
	if len(xs) < 2 {
		return orb.Point{}, false
	}
	sort.Float64s(xs)

	best := -1.0
	var mid float64
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > best {
			best = w
			mid = (xs[i] + xs[i+1]) / 2
		}
	}
	if best <= 0 || math.IsNaN(mid) {
		return orb.Point{}, false
	}
	return orb.Point{mid, y}, true
}
