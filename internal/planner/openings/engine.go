package openings

import (
	"log"
	"math"
	"sort"

	"floorplan/internal/planner/graph"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/segments"
)

// ============================================================
// Placement & Validation Engine
// ============================================================

const eps = 1e-9

// RoomResolver сообщает имя комнаты, к которой примыкает стена (нужно окнам).
type RoomResolver interface {
	RoomNameForWall(wall models.WallID) string
}

type Engine struct {
	graph *graph.Graph
	table *Table
	rooms RoomResolver
}

// Placement: рассчитанная позиция и ширина проема на стене.
type Placement struct {
	WallID models.WallID `json:"wallId"`
	Pos    float64       `json:"pos"`
	Width  float64       `json:"width"`
}

func NewEngine(g *graph.Graph, t *Table) *Engine {
	return &Engine{graph: g, table: t}
}

func (e *Engine) SetRoomResolver(r RoomResolver) {
	e.rooms = r
}

func (e *Engine) Table() *Table {
	return e.table
}

func (e *Engine) roomName(wall models.WallID) string {
	if e.rooms == nil {
		return ""
	}
	return e.rooms.RoomNameForWall(wall)
}

// Query собирает запрос доступности для стены.
func (e *Engine) Query(wall models.WallID, exclude models.OpeningID) (segments.Query, bool) {
	rw, ok := e.graph.Resolve(wall)
	if !ok || rw.IsDegenerate() {
		return segments.Query{}, false
	}
	return segments.Query{
		Length:    rw.Length(),
		Thickness: rw.Thickness,
		Openings:  e.table.OnWall(wall),
		Exclude:   exclude,
	}, true
}

// Candidate проецирует точку на стену и подбирает позицию/ширину в свободном участке.
// width: желаемая ширина; если участок меньше, проем сужается до его длины.
func (e *Engine) Candidate(wall models.WallID, point models.Point, width float64, exclude models.OpeningID) (Placement, bool) {
	q, ok := e.Query(wall, exclude)
	if !ok {
		return Placement{}, false
	}
	pos, _ := e.graph.Project(wall, point)

	seg, ok := q.At(pos)
	if !ok {
		return Placement{}, false
	}
	pos, width, ok = fit(seg, pos, width)
	if !ok {
		return Placement{}, false
	}
	return Placement{WallID: wall, Pos: pos, Width: width}, true
}

func fit(seg models.Interval, pos, width float64) (float64, float64, bool) {
	switch {
	case seg.Length() >= width:
		return clamp(pos, seg.Start+width/2, seg.End-width/2), width, true
	case seg.Length() >= models.MinItemWidth:
		return seg.Start + seg.Length()/2, seg.Length(), true
	}
	return 0, 0, false
}

// Place создает проем вида kind в точке point на стене wall шириной по умолчанию.
// false означает "места нет": это не ошибка, вызывающий код просто ничего не делает.
func (e *Engine) Place(kind models.OpeningKind, wall models.WallID, point models.Point) (models.Opening, bool) {
	w, ok := e.graph.Wall(wall)
	if !ok {
		return models.Opening{}, false
	}

	var roomName string
	if kind == models.KindWindow {
		roomName = e.roomName(wall)
	}

	p, ok := e.Candidate(wall, point, models.DefaultWidth(kind, roomName), 0)
	if !ok {
		return models.Opening{}, false
	}

	o := models.Opening{
		Kind:     kind,
		WallID:   wall,
		Pos:      p.Pos,
		Width:    p.Width,
		FloorID:  w.FloorID,
		RoomName: roomName,
	}
	if !e.IsSpaceFor(o) {
		return models.Opening{}, false
	}
	return e.table.Add(o), true
}

// PlaceExact добавляет полностью заданный проем, если он проходит проверку.
func (e *Engine) PlaceExact(o models.Opening) (models.Opening, bool) {
	w, ok := e.graph.Wall(o.WallID)
	if !ok || o.Width <= 0 {
		return models.Opening{}, false
	}
	o.ID = 0
	o.FloorID = w.FloorID
	if o.Kind == models.KindWindow && o.RoomName == "" {
		o.RoomName = e.roomName(o.WallID)
	}
	if !e.IsSpaceFor(o) {
		return models.Opening{}, false
	}
	return e.table.Add(o), true
}

// ============================================================
// Validation
// ============================================================

// IsSpaceFor проверяет отступы от торцов и зазоры со всеми проемами стены.
func (e *Engine) IsSpaceFor(o models.Opening) bool {
	rw, ok := e.graph.Resolve(o.WallID)
	if !ok || rw.IsDegenerate() || o.Width <= 0 {
		return false
	}

	span := o.Span()
	margin := rw.EndMargin()
	if span.Start < margin-eps || span.End > rw.Length()-margin+eps {
		return false
	}

	for _, other := range e.table.OnWall(o.WallID) {
		if other.ID == o.ID {
			continue
		}
		os := other.Span()
		if os.Start-span.End >= models.MinGap-eps || span.Start-os.End >= models.MinGap-eps {
			continue
		}
		return false
	}
	return true
}

func (e *Engine) IsSpaceForDoor(o models.Opening) bool {
	return o.Kind == models.KindDoor && e.IsSpaceFor(o)
}

func (e *Engine) IsSpaceForWindow(o models.Opening) bool {
	return o.Kind == models.KindWindow && e.IsSpaceFor(o)
}

func (e *Engine) IsSpaceForVent(o models.Opening) bool {
	return o.Kind == models.KindVent && e.IsSpaceFor(o)
}

// ============================================================
// Resize & reconcile
// ============================================================

// Resize задает ширину вручную. При нарушении инвариантов изменение откатывается.
func (e *Engine) Resize(id models.OpeningID, width float64) bool {
	o, ok := e.table.Get(id)
	if !ok || width < models.MinItemWidth {
		return false
	}
	o.Width = width
	o.IsWidthManuallySet = true
	if !e.IsSpaceFor(o) {
		return false
	}
	return e.table.Update(o) == nil
}

// Reconcile возвращает проемы стены в допустимое состояние после ее изменения.
// Автоматические ширины можно сузить, ручные: только сдвинуть.
// Возвращает проемы, которые привести в порядок не удалось.
func (e *Engine) Reconcile(wall models.WallID) []models.OpeningID {
	rw, ok := e.graph.Resolve(wall)
	if !ok {
		return nil
	}

	ops := e.table.OnWall(wall)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Pos < ops[j].Pos })

	var invalid []models.OpeningID
	for _, o := range ops {
		if e.IsSpaceFor(o) {
			continue
		}

		q, ok := e.Query(wall, o.ID)
		if !ok {
			invalid = append(invalid, o.ID)
			continue
		}
		pos := clamp(o.Pos, 0, rw.Length())
		seg, ok := nearestSegment(q, pos)
		if !ok {
			invalid = append(invalid, o.ID)
			continue
		}

		if o.IsWidthManuallySet {
			if seg.Length() < o.Width {
				invalid = append(invalid, o.ID)
				continue
			}
			o.Pos = clamp(pos, seg.Start+o.Width/2, seg.End-o.Width/2)
		} else {
			intended := models.DefaultWidth(o.Kind, o.RoomName)
			newPos, newWidth, ok := fit(seg, pos, intended)
			if !ok {
				invalid = append(invalid, o.ID)
				continue
			}
			o.Pos, o.Width = newPos, newWidth
		}

		if !e.IsSpaceFor(o) {
			invalid = append(invalid, o.ID)
			continue
		}
		if err := e.table.Update(o); err != nil {
			log.Printf("[PLANNER] reconcile opening %d: %v", o.ID, err)
		}
	}
	return invalid
}

func nearestSegment(q segments.Query, pos float64) (models.Interval, bool) {
	if seg, ok := q.At(pos); ok {
		return seg, true
	}
	var best models.Interval
	bestDist := math.MaxFloat64
	for _, seg := range q.Free() {
		d := math.Min(math.Abs(seg.Start-pos), math.Abs(seg.End-pos))
		if d < bestDist {
			best = seg
			bestDist = d
		}
	}
	return best, bestDist < math.MaxFloat64
}

// ============================================================
// Batch placement
// ============================================================

// LargestSegment: самый длинный свободный участок стены.
func (e *Engine) LargestSegment(wall models.WallID) (models.Interval, bool) {
	q, ok := e.Query(wall, 0)
	if !ok {
		return models.Interval{}, false
	}
	return q.Largest()
}

// AutoPlaceWindow ставит окно в центр самого длинного свободного участка стены.
func (e *Engine) AutoPlaceWindow(wall models.WallID, roomName string) (models.Opening, bool) {
	w, ok := e.graph.Wall(wall)
	if !ok {
		return models.Opening{}, false
	}
	seg, ok := e.LargestSegment(wall)
	if !ok {
		return models.Opening{}, false
	}

	width := math.Min(models.DefaultWidth(models.KindWindow, roomName), seg.Length())
	o := models.Opening{
		Kind:     models.KindWindow,
		WallID:   wall,
		Pos:      seg.Start + seg.Length()/2,
		Width:    width,
		FloorID:  w.FloorID,
		RoomName: roomName,
	}
	if !e.IsSpaceFor(o) {
		return models.Opening{}, false
	}
	return e.table.Add(o), true
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
