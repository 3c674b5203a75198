package polygonize

import (
	"math"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rectLines(x0, y0, x1, y1 float64) []orb.LineString {
	return []orb.LineString{
		{{x0, y0}, {x1, y0}},
		{{x1, y0}, {x1, y1}},
		{{x1, y1}, {x0, y1}},
		{{x0, y1}, {x0, y0}},
	}
}

type lineNetworkPolygonizer interface {
	Polygonize(lines []orb.LineString) (*geojson.FeatureCollection, error)
}

// planFixtures: эталонные сети стен и площади внешних контуров граней.
// Годятся для любой реализации полигонизации.
var planFixtures = []struct {
	name  string
	lines []orb.LineString
	areas []float64
}{
	{"rectangle", rectLines(0, 0, 400, 300), []float64{120000}},
	{"shared wall", append(rectLines(0, 0, 400, 300), orb.LineString{{200, 0}, {200, 300}}), []float64{60000, 60000}},
	{"crossing lines", append(rectLines(0, 0, 400, 300),
		orb.LineString{{200, -50}, {200, 350}},
		orb.LineString{{-50, 150}, {450, 150}},
	), []float64{30000, 30000, 30000, 30000}},
	{"dangles", append(rectLines(0, 0, 400, 300),
		orb.LineString{{200, 0}, {200, 100}},
		orb.LineString{{50, 200}, {120, 250}},
	), []float64{120000}},
	{"open path", []orb.LineString{
		{{0, 0}, {400, 0}},
		{{400, 0}, {400, 300}},
		{{400, 300}, {0, 300}},
	}, nil},
	{"nested block", append(rectLines(0, 0, 1000, 1000), rectLines(400, 400, 600, 600)...), []float64{40000, 1000000}},
	{"empty", nil, nil},
}

func checkPlanFixtures(t *testing.T, p lineNetworkPolygonizer) {
	t.Helper()
	for _, tt := range planFixtures {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.areas, areasOf(t, p, tt.lines), 1e-6)
		})
	}
}

func TestPolygonize_PlanFixtures(t *testing.T) {
	checkPlanFixtures(t, New())
}

func polygonAreas(t *testing.T, lines []orb.LineString) []float64 {
	t.Helper()
	return areasOf(t, New(), lines)
}

func areasOf(t *testing.T, p lineNetworkPolygonizer, lines []orb.LineString) []float64 {
	t.Helper()
	fc, err := p.Polygonize(lines)
	require.NoError(t, err)

	var areas []float64
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		require.True(t, ok)
		areas = append(areas, math.Abs(planar.Area(poly[0])))
	}
	sort.Float64s(areas)
	return areas
}

func TestPolygonize_Rectangle(t *testing.T) {
	areas := polygonAreas(t, rectLines(0, 0, 400, 300))
	require.Len(t, areas, 1)
	assert.InDelta(t, 120000, areas[0], 1e-6)
}

func TestPolygonize_SharedWall(t *testing.T) {
	lines := append(rectLines(0, 0, 400, 300), orb.LineString{{200, 0}, {200, 300}})

	areas := polygonAreas(t, lines)
	require.Len(t, areas, 2)
	assert.InDelta(t, 60000, areas[0], 1e-6)
	assert.InDelta(t, 60000, areas[1], 1e-6)
}

func TestPolygonize_CrossingLines(t *testing.T) {
	lines := append(rectLines(0, 0, 400, 300),
		orb.LineString{{200, -50}, {200, 350}},
		orb.LineString{{-50, 150}, {450, 150}},
	)

	areas := polygonAreas(t, lines)
	require.Len(t, areas, 4)
	for _, a := range areas {
		assert.InDelta(t, 30000, a, 1e-6)
	}
}

func TestPolygonize_DropsDangles(t *testing.T) {
	lines := append(rectLines(0, 0, 400, 300),
		orb.LineString{{200, 0}, {200, 100}},
		orb.LineString{{50, 200}, {120, 250}},
	)

	areas := polygonAreas(t, lines)
	require.Len(t, areas, 1)
	assert.InDelta(t, 120000, areas[0], 1e-6)
}

func TestPolygonize_DropsBridges(t *testing.T) {
	lines := append(rectLines(0, 0, 100, 100), rectLines(300, 0, 400, 100)...)
	lines = append(lines, orb.LineString{{100, 50}, {300, 50}})

	areas := polygonAreas(t, lines)
	require.Len(t, areas, 2)
	assert.InDelta(t, 10000, areas[0], 1e-6)
	assert.InDelta(t, 10000, areas[1], 1e-6)
}

func TestPolygonize_OpenPath(t *testing.T) {
	lines := []orb.LineString{
		{{0, 0}, {400, 0}},
		{{400, 0}, {400, 300}},
		{{400, 300}, {0, 300}},
	}
	assert.Empty(t, polygonAreas(t, lines))
}

func TestPolygonize_SnapsNearEndpoints(t *testing.T) {
	lines := []orb.LineString{
		{{0, 0}, {400, 0}},
		{{400, 0.00005}, {400, 300}},
		{{400, 300}, {0, 300}},
		{{0, 300}, {0.00005, 0}},
	}
	areas := polygonAreas(t, lines)
	require.Len(t, areas, 1)
	assert.InDelta(t, 120000, areas[0], 0.1)
}

func TestPolygonize_NestedComponentBecomesHole(t *testing.T) {
	lines := append(rectLines(0, 0, 1000, 1000), rectLines(400, 400, 600, 600)...)

	fc, err := New().Polygonize(lines)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	var outer, inner orb.Polygon
	for _, f := range fc.Features {
		poly := f.Geometry.(orb.Polygon)
		if math.Abs(planar.Area(poly[0])) > 500000 {
			outer = poly
		} else {
			inner = poly
		}
	}
	require.Len(t, outer, 2, "outer room keeps the inner block as a hole")
	assert.InDelta(t, 40000, math.Abs(planar.Area(outer[1])), 1e-6)
	assert.Len(t, inner, 1)
}

func TestPolygonize_NonFinite(t *testing.T) {
	_, err := New().Polygonize([]orb.LineString{{{0, 0}, {math.NaN(), 10}}})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestPolygonize_Empty(t *testing.T) {
	fc, err := New().Polygonize(nil)
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}

func TestPointOnSurface(t *testing.T) {
	// U-shape: the centroid falls into the notch
	u := orb.Polygon{{
		{0, 0}, {300, 0}, {300, 300}, {200, 300}, {200, 100},
		{100, 100}, {100, 300}, {0, 300}, {0, 0},
	}}
	centroid, _ := planar.CentroidArea(u)
	require.False(t, planar.PolygonContains(u, centroid))

	p := PointOnSurface(u)
	assert.True(t, planar.PolygonContains(u, p))

	square := orb.Polygon{{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0}}}
	assert.Equal(t, orb.Point{50, 50}, New().PointOnSurface(square))

	assert.Equal(t, orb.Point{}, PointOnSurface(nil))
}
