package openings

import (
	"testing"

	"floorplan/internal/planner/graph"
	"floorplan/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRooms map[models.WallID]string

func (r staticRooms) RoomNameForWall(wall models.WallID) string {
	return r[wall]
}

// newWallEngine строит движок с одной прямой стеной (0,0)-(length,0).
func newWallEngine(t *testing.T, length, thickness float64) (*Engine, *graph.Graph, models.WallID) {
	t.Helper()
	g := graph.New(models.SnapRadius)
	a := g.GetOrCreateNode(0, 0)
	b := g.GetOrCreateNode(length, 0)
	id, err := g.AddWall(a, b, graph.WallOptions{Thickness: thickness, FloorID: "f1"})
	require.NoError(t, err)
	return NewEngine(g, NewTable()), g, id
}

func TestPlace_DoorCentered(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)

	o, ok := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	require.True(t, ok)
	assert.Equal(t, 150.0, o.Pos)
	assert.Equal(t, models.DefaultDoorWidth, o.Width)
	assert.Equal(t, "f1", o.FloorID)
	assert.False(t, o.IsWidthManuallySet)
}

func TestPlace_WindowOnOccupiedSpot(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)
	_, ok := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	require.True(t, ok)

	_, ok = e.Place(models.KindWindow, wall, models.Point{X: 150, Y: 0})
	assert.False(t, ok)
	assert.Equal(t, 1, e.Table().Len())
}

func TestPlace_ShrinksToSegment(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)
	_, ok := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	require.True(t, ok)

	// free segment [15, 114.9] is narrower than the default window
	o, ok := e.Place(models.KindWindow, wall, models.Point{X: 60, Y: 0})
	require.True(t, ok)
	assert.InDelta(t, 99.9, o.Width, 1e-9)
	assert.InDelta(t, 64.95, o.Pos, 1e-9)
	assert.False(t, o.IsWidthManuallySet)
}

func TestPlace_ClampsNearEnd(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)

	o, ok := e.Place(models.KindDoor, wall, models.Point{X: 20, Y: 10})
	require.True(t, ok)
	assert.InDelta(t, 50, o.Pos, 1e-9)

	// inside the end margin there is no free segment to start from
	_, ok = e.Place(models.KindDoor, wall, models.Point{X: 295, Y: 0})
	assert.False(t, ok)
}

func TestPlace_ShortWall(t *testing.T) {
	e, _, wall := newWallEngine(t, 40, 20)

	_, ok := e.Place(models.KindDoor, wall, models.Point{X: 20, Y: 0})
	assert.False(t, ok)
	q, ok := e.Query(wall, 0)
	require.True(t, ok)
	assert.Empty(t, q.Free())
}

func TestPlace_BathroomWindow(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)
	e.SetRoomResolver(staticRooms{wall: "BANYO"})

	o, ok := e.Place(models.KindWindow, wall, models.Point{X: 150, Y: 0})
	require.True(t, ok)
	assert.Equal(t, models.BathroomWindowWidth, o.Width)
	assert.Equal(t, "BANYO", o.RoomName)

	v, ok := e.Place(models.KindVent, wall, models.Point{X: 250, Y: 0})
	require.True(t, ok)
	assert.Equal(t, models.DefaultVentWidth, v.Width)
	assert.Empty(t, v.RoomName)
}

func TestIsSpaceFor(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)
	door, ok := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	require.True(t, ok)

	tests := []struct {
		name string
		o    models.Opening
		want bool
	}{
		{"touching end margin", models.Opening{Kind: models.KindWindow, WallID: wall, Pos: 35, Width: 40}, true},
		{"inside end margin", models.Opening{Kind: models.KindWindow, WallID: wall, Pos: 30, Width: 40}, false},
		{"exact min gap", models.Opening{Kind: models.KindWindow, WallID: wall, Pos: 94.9, Width: 40}, true},
		{"below min gap", models.Opening{Kind: models.KindWindow, WallID: wall, Pos: 95, Width: 40}, false},
		{"overlap", models.Opening{Kind: models.KindWindow, WallID: wall, Pos: 160, Width: 40}, false},
		{"unknown wall", models.Opening{Kind: models.KindWindow, WallID: 99, Pos: 50, Width: 40}, false},
		{"zero width", models.Opening{Kind: models.KindWindow, WallID: wall, Pos: 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.IsSpaceFor(tt.o))
		})
	}

	// an opening never collides with itself
	assert.True(t, e.IsSpaceFor(door))
	assert.True(t, e.IsSpaceForDoor(door))
	assert.False(t, e.IsSpaceForWindow(door))
	assert.False(t, e.IsSpaceForVent(door))
}

func TestResize(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)
	door, _ := e.Place(models.KindDoor, wall, models.Point{X: 100, Y: 0})
	_, ok := e.Place(models.KindVent, wall, models.Point{X: 250, Y: 0})
	require.True(t, ok)

	assert.False(t, e.Resize(door.ID, 10), "below minimum width")
	assert.False(t, e.Resize(door.ID, 400), "does not fit")

	got, _ := e.Table().Get(door.ID)
	assert.Equal(t, models.DefaultDoorWidth, got.Width)
	assert.False(t, got.IsWidthManuallySet)

	require.True(t, e.Resize(door.ID, 90))
	got, _ = e.Table().Get(door.ID)
	assert.Equal(t, 90.0, got.Width)
	assert.True(t, got.IsWidthManuallySet)

	assert.False(t, e.Resize(77, 50))
}

func TestReconcile_AutoWidthShrinks(t *testing.T) {
	e, g, wall := newWallEngine(t, 300, 20)
	door, _ := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	w, _ := g.Wall(wall)

	require.NoError(t, g.MoveNode(w.P2, models.Point{X: 80, Y: 0}))
	assert.Empty(t, e.Reconcile(wall))

	got, _ := e.Table().Get(door.ID)
	assert.InDelta(t, 50, got.Width, 1e-9)
	assert.InDelta(t, 40, got.Pos, 1e-9)
	assert.False(t, got.IsWidthManuallySet)
}

func TestReconcile_ShiftsIntoSegment(t *testing.T) {
	e, g, wall := newWallEngine(t, 300, 20)
	door, _ := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	w, _ := g.Wall(wall)

	require.NoError(t, g.MoveNode(w.P2, models.Point{X: 100, Y: 0}))
	assert.Empty(t, e.Reconcile(wall))

	got, _ := e.Table().Get(door.ID)
	assert.InDelta(t, 70, got.Width, 1e-9)
	assert.InDelta(t, 50, got.Pos, 1e-9)
}

func TestReconcile_ManualWidthInvalid(t *testing.T) {
	e, g, wall := newWallEngine(t, 300, 20)
	door, _ := e.Place(models.KindDoor, wall, models.Point{X: 150, Y: 0})
	require.True(t, e.Resize(door.ID, 70))
	w, _ := g.Wall(wall)

	require.NoError(t, g.MoveNode(w.P2, models.Point{X: 80, Y: 0}))
	assert.Equal(t, []models.OpeningID{door.ID}, e.Reconcile(wall))
}

func TestAutoPlaceWindow(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)
	e.Place(models.KindDoor, wall, models.Point{X: 60, Y: 0})

	o, ok := e.AutoPlaceWindow(wall, "SALON")
	require.True(t, ok)
	// largest free segment is [95.1, 285]
	assert.InDelta(t, 190.05, o.Pos, 1e-9)
	assert.Equal(t, models.DefaultWindowWidth, o.Width)
	assert.Equal(t, "SALON", o.RoomName)

	short, _, shortWall := newWallEngine(t, 100, 20)
	o, ok = short.AutoPlaceWindow(shortWall, "")
	require.True(t, ok)
	assert.InDelta(t, 70, o.Width, 1e-9)
	assert.InDelta(t, 50, o.Pos, 1e-9)
}

func TestPlaceExact(t *testing.T) {
	e, _, wall := newWallEngine(t, 300, 20)

	o, ok := e.PlaceExact(models.Opening{ID: 50, Kind: models.KindDoor, WallID: wall, Pos: 100, Width: 80, IsWidthManuallySet: true})
	require.True(t, ok)
	assert.Equal(t, models.OpeningID(1), o.ID)
	assert.Equal(t, "f1", o.FloorID)

	_, ok = e.PlaceExact(models.Opening{Kind: models.KindDoor, WallID: wall, Pos: 120, Width: 80})
	assert.False(t, ok)
}
