package openings

import (
	"bytes"
	"log"
	"os"
	"testing"

	"floorplan/internal/planner/graph"
	"floorplan/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTwoWallEngine: стена A (0,0)-(300,0) и стена B (0,200)-(300,200), дверь по центру A.
func newTwoWallEngine(t *testing.T) (*Engine, *graph.Graph, models.WallID, models.WallID, models.Opening) {
	t.Helper()
	e, g, wallA := newWallEngine(t, 300, 20)
	c := g.GetOrCreateNode(0, 200)
	d := g.GetOrCreateNode(300, 200)
	wallB, err := g.AddWall(c, d, graph.WallOptions{Thickness: 20, FloorID: "f1"})
	require.NoError(t, err)

	door, ok := e.Place(models.KindDoor, wallA, models.Point{X: 150, Y: 0})
	require.True(t, ok)
	return e, g, wallA, wallB, door
}

func TestDrag_MoveAlongWall(t *testing.T) {
	e, _, wallA, _, door := newTwoWallEngine(t)

	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)
	assert.Equal(t, DragDragging, state.Phase)

	p, state := e.Step(state, models.Point{X: 80, Y: 3})
	require.True(t, p.Snapped)
	require.True(t, p.Valid)
	assert.Equal(t, wallA, p.WallID)
	assert.InDelta(t, 80, p.Pos, 1e-9)
	assert.Equal(t, models.DefaultDoorWidth, p.Width)

	// Step alone never mutates the opening
	got, _ := e.Table().Get(door.ID)
	assert.Equal(t, 150.0, got.Pos)

	require.True(t, e.Apply(state, p))
	committed, state, err := e.EndDrag(state)
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, DragIdle, state.Phase)

	got, _ = e.Table().Get(door.ID)
	assert.InDelta(t, 80, got.Pos, 1e-9)
}

func TestDrag_StepIsRepeatable(t *testing.T) {
	e, _, _, _, door := newTwoWallEngine(t)
	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	first, _ := e.Step(state, models.Point{X: 120, Y: 5})
	second, _ := e.Step(state, models.Point{X: 120, Y: 5})
	assert.Equal(t, first, second)
}

func TestDrag_CrossWall(t *testing.T) {
	e, _, wallA, wallB, door := newTwoWallEngine(t)
	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	p, state := e.Step(state, models.Point{X: 100, Y: 195})
	require.True(t, p.Valid)
	assert.Equal(t, wallB, p.WallID)
	require.True(t, e.Apply(state, p))

	assert.Empty(t, e.Table().OnWall(wallA))
	on := e.Table().OnWall(wallB)
	require.Len(t, on, 1)
	assert.Equal(t, door.ID, on[0].ID)
	assert.InDelta(t, 100, on[0].Pos, 1e-9)

	committed, _, err := e.EndDrag(state)
	require.NoError(t, err)
	assert.True(t, committed)
}

func TestDrag_NotSnapped(t *testing.T) {
	e, _, _, _, door := newTwoWallEngine(t)
	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	p, state := e.Step(state, models.Point{X: 150, Y: 100})
	assert.False(t, p.Snapped)
	assert.False(t, e.Apply(state, p))
}

func TestDrag_EndWhileFreeDragging(t *testing.T) {
	e, _, wallA, _, door := newTwoWallEngine(t)
	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	p, state := e.Step(state, models.Point{X: 250, Y: 2})
	require.True(t, e.Apply(state, p))
	assert.False(t, state.FreeDragging)

	p, state = e.Step(state, models.Point{X: 150, Y: 100})
	assert.False(t, p.Snapped)
	assert.True(t, state.FreeDragging)

	committed, state, err := e.EndDrag(state)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, DragIdle, state.Phase)

	got, _ := e.Table().Get(door.ID)
	assert.Equal(t, wallA, got.WallID)
	assert.Equal(t, 150.0, got.Pos)
}

func TestDrag_NoSpaceProposal(t *testing.T) {
	e, _, wallA, wallB, door := newTwoWallEngine(t)
	// fill wall B with a manual-width window
	win, ok := e.Place(models.KindWindow, wallB, models.Point{X: 150, Y: 200})
	require.True(t, ok)
	require.True(t, e.Resize(win.ID, 270))

	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	p, _ := e.Step(state, models.Point{X: 150, Y: 198})
	assert.True(t, p.Snapped)
	assert.False(t, p.Valid)
	assert.Equal(t, wallB, p.WallID)

	got, _ := e.Table().Get(door.ID)
	assert.Equal(t, wallA, got.WallID)
}

func TestDrag_RollbackOnInvalidEnd(t *testing.T) {
	e, g, wallA, _, door := newTwoWallEngine(t)
	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	p, state := e.Step(state, models.Point{X: 40, Y: 3})
	require.True(t, p.Valid)
	assert.InDelta(t, 50, p.Pos, 1e-9)
	require.True(t, e.Apply(state, p))

	// a thicker wall pushes the end margin over the dragged door
	require.NoError(t, g.SetThickness(wallA, 60))

	committed, state, err := e.EndDrag(state)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, DragIdle, state.Phase)

	got, _ := e.Table().Get(door.ID)
	assert.Equal(t, door, got)
}

func TestDrag_Cancel(t *testing.T) {
	e, _, wallA, _, door := newTwoWallEngine(t)
	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)

	p, state := e.Step(state, models.Point{X: 100, Y: 195})
	require.True(t, e.Apply(state, p))

	state, err = e.CancelDrag(state)
	require.NoError(t, err)
	assert.Equal(t, DragIdle, state.Phase)

	got, _ := e.Table().Get(door.ID)
	assert.Equal(t, wallA, got.WallID)
	assert.Equal(t, 150.0, got.Pos)
	assert.Len(t, e.Table().OnWall(wallA), 1)
}

func TestDrag_KeepsManualWidth(t *testing.T) {
	e, _, _, _, door := newTwoWallEngine(t)
	require.True(t, e.Resize(door.ID, 100))

	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)
	p, state := e.Step(state, models.Point{X: 200, Y: 2})
	require.True(t, p.Valid)
	assert.Equal(t, 100.0, p.Width)
	require.True(t, e.Apply(state, p))

	got, _ := e.Table().Get(door.ID)
	assert.True(t, got.IsWidthManuallySet)
}

func TestDrag_StateErrors(t *testing.T) {
	e, _, _, _, door := newTwoWallEngine(t)

	_, err := e.BeginDrag(DragState{}, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	state, err := e.BeginDrag(DragState{}, door.ID)
	require.NoError(t, err)
	_, err = e.BeginDrag(state, door.ID)
	assert.ErrorIs(t, err, ErrDragActive)

	_, _, err = e.EndDrag(DragState{})
	assert.ErrorIs(t, err, ErrNotDragging)
	_, err = e.CancelDrag(DragState{})
	assert.ErrorIs(t, err, ErrNotDragging)
}

func TestDrag_RollbackOfRemovedOpeningIsLogged(t *testing.T) {
	e, _, _, _, door := newTwoWallEngine(t)
	require.True(t, e.Table().Remove(door.ID))

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	e.rollback(door)
	assert.Contains(t, buf.String(), "[PLANNER] rollback opening")
	_, ok := e.Table().Get(door.ID)
	assert.False(t, ok)
}
