package mapper

import (
	"strings"
	"testing"

	"floorplan/internal/planner/document"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roomSVG: комната 400x300 из прямоугольников стен, дверь, окно и подпись.
const roomSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <g id="walls">
    <rect id="Wall_1" x="0" y="-10" width="400" height="20" />
    <rect id="Wall_2" x="390" y="0" width="20" height="300" />
    <rect id="Wall_3" x="0" y="290" width="400" height="20" />
    <rect id="Wall_4" x="-10" y="0" width="20" height="300" />
  </g>
  <rect id="Door_1" x="100" y="-10" width="70" height="20" />
  <rect id="Window_1" x="150" y="290" width="100" height="20" />
  <rect id="Room_SALON_1" x="190" y="140" width="20" height="20" />
  <rect id="Room_DEPO" x="990" y="990" width="20" height="20" />
</svg>`

func TestImport_RectWalls(t *testing.T) {
	doc := document.New(models.SnapRadius)

	report, err := NewImporter(doc, "").Import(strings.NewReader(roomSVG))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Walls)
	assert.Equal(t, 2, report.Openings)
	assert.Equal(t, 1, report.Rooms)
	assert.Equal(t, 1, report.Labeled)
	assert.Equal(t, 1, report.Resized)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, []string{"Room_DEPO"}, report.Unmatched)

	rooms := doc.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "SALON", rooms[0].Name)
	assert.InDelta(t, 12, rooms[0].Area, 1e-9)

	byKind := map[models.OpeningKind]models.Opening{}
	for _, o := range doc.Openings() {
		byKind[o.Kind] = o
	}
	door := byKind[models.KindDoor]
	assert.InDelta(t, 135, door.Pos, 1e-9)
	assert.InDelta(t, models.DefaultDoorWidth, door.Width, 1e-9)
	assert.False(t, door.IsWidthManuallySet)

	window := byKind[models.KindWindow]
	assert.InDelta(t, 100, window.Width, 1e-9)
	assert.True(t, window.IsWidthManuallySet)
	assert.Equal(t, "SALON", window.RoomName)
}

func TestImport_PathWalls(t *testing.T) {
	svg := `<svg>
  <path id="Wall_1" d="M 0 0 L 400 0 L 400 300 L 0 300" stroke-width="20" />
  <path id="Wall_2" d="M 0 300 C -100 300 -100 0 0 0" stroke-width="20" />
</svg>`
	doc := document.New(models.SnapRadius)

	report, err := NewImporter(doc, "ground").Import(strings.NewReader(svg))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Walls)
	assert.Equal(t, 1, report.Arcs)
	require.Len(t, doc.Rooms("ground"), 1)
	assert.Greater(t, doc.Rooms("ground")[0].Area, 12.0)
	assert.Equal(t, []string{"ground"}, doc.Floors())
}

func TestImport_RejectsBrokenWall(t *testing.T) {
	svg := `<svg>
  <path id="Wall_1" d="" />
  <rect id="Wall_2" x="0" y="0" width="0" height="0" />
</svg>`
	doc := document.New(models.SnapRadius)

	report, err := NewImporter(doc, "").Import(strings.NewReader(svg))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Walls)
	assert.ElementsMatch(t, []string{"Wall_1", "Wall_2"}, report.Rejected)
}

func TestImport_InvalidSVG(t *testing.T) {
	_, err := NewImporter(document.New(models.SnapRadius), "").Import(strings.NewReader("not xml"))
	assert.Error(t, err)
}

func TestPathWalls_ClosedOutlineUsesBBox(t *testing.T) {
	lines, err := pathWalls("Wall_9", models.WallNormal, parser.PathGeometry{D: "M 0 -10 L 400 -10 L 400 10 L 0 10 Z"})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, models.Point{X: 0, Y: 0}, lines[0].p1)
	assert.Equal(t, models.Point{X: 400, Y: 0}, lines[0].p2)
	assert.InDelta(t, 20, lines[0].thickness, 1e-9)
}

func TestConnectWalls_ClosesGapAtCorner(t *testing.T) {
	walls := []wallLine{
		{id: "a", p1: models.Point{X: 0, Y: 0}, p2: models.Point{X: 390, Y: 0}},
		{id: "b", p1: models.Point{X: 400, Y: 10}, p2: models.Point{X: 400, Y: 300}},
	}
	connectWalls(walls)

	assert.Equal(t, models.Point{X: 400, Y: 0}, walls[0].p2)
	assert.Equal(t, models.Point{X: 400, Y: 0}, walls[1].p1)
}

func TestRender(t *testing.T) {
	doc := document.New(models.SnapRadius)
	_, err := NewImporter(doc, "").Import(strings.NewReader(roomSVG))
	require.NoError(t, err)

	out, err := NewRenderer().Render(doc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<?xml`))
	assert.True(t, strings.HasSuffix(out, `</svg>`))
	assert.Equal(t, 4, strings.Count(out, `id="wall-`))
	assert.Contains(t, out, `id="door-`)
	assert.Contains(t, out, `id="window-`)
	assert.Contains(t, out, `>SALON</text>`)
	assert.Contains(t, out, `12.00 m²`)
	assert.Contains(t, out, `viewBox="-50 -50 500 400"`)
}

func TestRender_Empty(t *testing.T) {
	out, err := NewRenderer().Render(document.New(models.SnapRadius))
	require.NoError(t, err)
	assert.Contains(t, out, `viewBox="0 0 1000 1000"`)

	_, err = NewRenderer().Render(nil)
	assert.Error(t, err)
}
