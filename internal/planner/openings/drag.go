package openings

import (
	"errors"
	"log"

	"floorplan/internal/planner/models"
)

// ============================================================
// Drag state machine
// ============================================================

var (
	ErrDragActive  = errors.New("drag already in progress")
	ErrNotDragging = errors.New("no drag in progress")
)

type DragPhase int

const (
	DragIdle DragPhase = iota
	DragDragging
)

// DragState: состояние жеста. Before хранит проем до начала перетаскивания для отката.
// FreeDragging: последнее положение курсора было вне досягаемости стен.
type DragState struct {
	Phase        DragPhase
	OpeningID    models.OpeningID
	Before       models.Opening
	FreeDragging bool
}

// Proposal: результат пересчета по текущему положению курсора.
// Snapped=false: курсор не у стены; Valid=false, у стены, но места нет.
type Proposal struct {
	Snapped  bool          `json:"snapped"`
	Valid    bool          `json:"valid"`
	WallID   models.WallID `json:"wallId,omitempty"`
	Pos      float64       `json:"pos,omitempty"`
	Width    float64       `json:"width,omitempty"`
	RoomName string        `json:"roomName,omitempty"`
}

// BeginDrag запоминает снимок проема.
func (e *Engine) BeginDrag(state DragState, id models.OpeningID) (DragState, error) {
	if state.Phase == DragDragging {
		return state, ErrDragActive
	}
	o, ok := e.table.Get(id)
	if !ok {
		return state, ErrNotFound
	}
	return DragState{Phase: DragDragging, OpeningID: id, Before: o}, nil
}

// Step пересчитывает предложение по положению курсора. Проемы и стены не меняет:
// каждое событие считается с нуля, поэтому вызов можно повторять.
func (e *Engine) Step(state DragState, pointer models.Point) (Proposal, DragState) {
	if state.Phase != DragDragging {
		return Proposal{}, state
	}
	if _, ok := e.table.Get(state.OpeningID); !ok {
		return Proposal{}, DragState{}
	}

	wall, ok := e.graph.NearestWall(pointer, state.Before.FloorID)
	state.FreeDragging = !ok
	if !ok {
		return Proposal{}, state
	}

	var roomName string
	if state.Before.Kind == models.KindWindow {
		roomName = e.roomName(wall)
	}

	intended := models.DefaultWidth(state.Before.Kind, roomName)
	if state.Before.IsWidthManuallySet {
		intended = state.Before.Width
	}

	p, ok := e.Candidate(wall, pointer, intended, state.OpeningID)
	if !ok {
		return Proposal{Snapped: true, WallID: wall, RoomName: roomName}, state
	}
	return Proposal{
		Snapped:  true,
		Valid:    true,
		WallID:   p.WallID,
		Pos:      p.Pos,
		Width:    p.Width,
		RoomName: roomName,
	}, state
}

// Apply переносит предложение на проем. Временное сужение не помечается как ручное.
func (e *Engine) Apply(state DragState, p Proposal) bool {
	if state.Phase != DragDragging || !p.Snapped || !p.Valid {
		return false
	}
	o, ok := e.table.Get(state.OpeningID)
	if !ok {
		return false
	}
	w, ok := e.graph.Wall(p.WallID)
	if !ok {
		return false
	}

	if o.WallID != p.WallID {
		e.table.MoveToWall(o.ID, p.WallID)
		o.WallID = p.WallID
		o.FloorID = w.FloorID
	}
	if o.Kind == models.KindWindow {
		o.RoomName = p.RoomName
	}
	o.Pos = p.Pos
	o.Width = p.Width
	o.IsWidthManuallySet = state.Before.IsWidthManuallySet
	return e.table.Update(o) == nil
}

// EndDrag фиксирует результат, если он проходит проверку и жест закончился у стены,
// иначе откатывает к снимку.
func (e *Engine) EndDrag(state DragState) (bool, DragState, error) {
	if state.Phase != DragDragging {
		return false, state, ErrNotDragging
	}
	o, ok := e.table.Get(state.OpeningID)
	if !ok {
		return false, DragState{}, nil
	}
	if !state.FreeDragging && e.IsSpaceFor(o) {
		return true, DragState{}, nil
	}
	e.rollback(state.Before)
	return false, DragState{}, nil
}

// CancelDrag всегда откатывает проем к снимку.
func (e *Engine) CancelDrag(state DragState) (DragState, error) {
	if state.Phase != DragDragging {
		return state, ErrNotDragging
	}
	if _, ok := e.table.Get(state.OpeningID); ok {
		e.rollback(state.Before)
	}
	return DragState{}, nil
}

func (e *Engine) rollback(before models.Opening) {
	if _, ok := e.graph.Wall(before.WallID); !ok {
		return
	}
	if err := e.table.Update(before); err != nil {
		log.Printf("[PLANNER] rollback opening %d: %v", before.ID, err)
	}
}
