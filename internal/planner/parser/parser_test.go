package parser

import (
	"strings"
	"testing"

	"floorplan/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="500" height="400">
  <rect id="Wall_1" x="0" y="0" width="400" height="20" />
  <rect id="Background" x="0" y="0" width="500" height="400" />
  <path id="Half_Wall_1" d="M 0 0 L 0 300" stroke-width="10px" />
  <g id="openings">
    <rect id="Door_1" x="100" y="0" width="70" height="20" />
    <g id="nested">
      <path id="Window_3" d="M 200 0 H 350" />
      <rect id="Room_MUTFAK_2" x="190" y="140" width="20" height="20" />
    </g>
  </g>
  <rect id="Glass_Wall_1" x="390" y="0" width="20" height="300" />
  <rect id="Balcony_1" x="0" y="300" width="400" height="10" />
  <rect id="Vent_1" x="50" y="290" width="40" height="20" />
</svg>`

func TestParseSVG_ClassifiesByID(t *testing.T) {
	elements, err := ParseSVG(strings.NewReader(planSVG))
	require.NoError(t, err)

	kinds := make(map[string]ElementKind, len(elements))
	for _, e := range elements {
		kinds[e.ID] = e.Kind
	}
	assert.Equal(t, map[string]ElementKind{
		"Wall_1":        KindWall,
		"Half_Wall_1":   KindHalfWall,
		"Door_1":        KindDoor,
		"Window_3":      KindWindow,
		"Room_MUTFAK_2": KindRoom,
		"Glass_Wall_1":  KindGlass,
		"Balcony_1":     KindBalcony,
		"Vent_1":        KindVent,
	}, kinds)
}

func TestParseSVG_Geometry(t *testing.T) {
	elements, err := ParseSVG(strings.NewReader(planSVG))
	require.NoError(t, err)

	byID := make(map[string]Element, len(elements))
	for _, e := range elements {
		byID[e.ID] = e
	}

	assert.Equal(t, RectGeometry{X: 0, Y: 0, Width: 400, Height: 20}, byID["Wall_1"].Geometry)
	assert.Equal(t, PathGeometry{D: "M 0 0 L 0 300", StrokeWidth: 10}, byID["Half_Wall_1"].Geometry)
	assert.Equal(t, "MUTFAK", byID["Room_MUTFAK_2"].Label)
	assert.True(t, byID["Balcony_1"].IsWall())
	assert.False(t, byID["Door_1"].IsWall())
}

func TestParseSVG_Invalid(t *testing.T) {
	_, err := ParseSVG(strings.NewReader("<svg><rect"))
	assert.Error(t, err)
}

func TestRoomLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"MUTFAK_2", "MUTFAK"},
		{"salon", "SALON"},
		{"YATAK_ODASI_1_3", "YATAK ODASI"},
		{"WC", "WC"},
		{"2", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, roomLabel(tt.raw))
		})
	}
}

func TestParseSegments(t *testing.T) {
	p := func(x, y float64) models.Point { return models.Point{X: x, Y: y} }

	tests := []struct {
		name string
		d    string
		want []models.Point // концы участков: From первого, затем To каждого
	}{
		{"absolute", "M 0 0 L 100 0 L 100 50", []models.Point{p(0, 0), p(100, 0), p(100, 50)}},
		{"implicit lineto after move", "M0,0 100,0 100,100", []models.Point{p(0, 0), p(100, 0), p(100, 100)}},
		{"repeated lineto", "M 0 0 L 10 0 10 10", []models.Point{p(0, 0), p(10, 0), p(10, 10)}},
		{"relative", "m 10 10 l 20 0 l 0 20", []models.Point{p(10, 10), p(30, 10), p(30, 30)}},
		{"horizontal and vertical", "M 0 0 H 50 V 40 h -10 v -10", []models.Point{p(0, 0), p(50, 0), p(50, 40), p(40, 40), p(40, 30)}},
		{"close", "M 0 0 L 100 0 L 100 100 Z", []models.Point{p(0, 0), p(100, 0), p(100, 100), p(0, 0)}},
		{"compact numbers", "M0-5L10-5", []models.Point{p(0, -5), p(10, -5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := ParsePath(tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, points)
		})
	}
}

func TestParseSegments_Cubic(t *testing.T) {
	segments, err := ParseSegments("M 0 0 C 0 -100 400 -100 400 0 c 0 50 0 50 0 100")
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.True(t, segments[0].IsCubic())
	assert.Equal(t, models.Point{X: 0, Y: -100}, *segments[0].C1)
	assert.Equal(t, models.Point{X: 400, Y: -100}, *segments[0].C2)
	assert.Equal(t, models.Point{X: 400, Y: 0}, segments[0].To)

	// relative controls are measured from the segment start
	assert.Equal(t, models.Point{X: 400, Y: 50}, *segments[1].C1)
	assert.Equal(t, models.Point{X: 400, Y: 100}, segments[1].To)
}

func TestParseSegments_CloseAlreadyAtStart(t *testing.T) {
	segments, err := ParseSegments("M 0 0 L 10 0 L 10 10 L 0 0 Z")
	require.NoError(t, err)
	assert.Len(t, segments, 3)
	assert.False(t, segments[0].IsCubic())
}

func TestParsePath_SinglePoint(t *testing.T) {
	points, err := ParsePath("M 5 7")
	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 5, Y: 7}}, points)

	_, err = ParsePath("   ")
	assert.Error(t, err)
}
