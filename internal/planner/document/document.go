// Package document: агрегат редактируемого плана: граф стен, проемы, комнаты
// и активный жест перетаскивания. Каждая структурная правка завершается ProcessWalls.
//
// Document не потокобезопасен; последовательный доступ обеспечивает вызывающий код.
package document

import (
	"errors"
	"fmt"
	"log"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/graph"
	"floorplan/internal/planner/models"
	"floorplan/internal/planner/openings"
	"floorplan/internal/planner/polygonize"
	"floorplan/internal/planner/rooms"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrLabelOutside = errors.New("label point outside room")
	ErrEmptyName    = errors.New("room name is empty")
)

type Document struct {
	graph    *graph.Graph
	table    *openings.Table
	engine   *openings.Engine
	detector *rooms.Detector
	rooms    []models.Room
	drag     openings.DragState
	batching int
}

// New создает пустой документ со встроенным полигонизатором.
func New(snapRadius float64) *Document {
	return NewWithPolygonizer(snapRadius, polygonize.New())
}

func NewWithPolygonizer(snapRadius float64, p rooms.Polygonizer) *Document {
	d := &Document{
		graph:    graph.New(snapRadius),
		detector: rooms.NewDetector(p),
		rooms:    []models.Room{},
	}
	d.resetOpenings()
	return d
}

func (d *Document) resetOpenings() {
	d.table = openings.NewTable()
	d.engine = openings.NewEngine(d.graph, d.table)
	d.engine.SetRoomResolver(d)
}

// ============================================================
// Readers
// ============================================================

func (d *Document) Nodes() []models.Node {
	return d.graph.Nodes()
}

func (d *Document) Walls(floors ...string) []models.ResolvedWall {
	return d.graph.ResolvedWalls(floors...)
}

func (d *Document) Wall(id models.WallID) (models.ResolvedWall, bool) {
	return d.graph.Resolve(id)
}

func (d *Document) Floors() []string {
	return d.graph.Floors()
}

func (d *Document) Openings() []models.Opening {
	return d.table.All()
}

func (d *Document) Opening(id models.OpeningID) (models.Opening, bool) {
	return d.table.Get(id)
}

func (d *Document) OpeningsOnWall(wall models.WallID, kinds ...models.OpeningKind) []models.Opening {
	return d.table.OnWall(wall, kinds...)
}

func (d *Document) Doors(floors ...string) []models.Opening {
	return d.table.Doors(floors...)
}

// Rooms возвращает копию текущего списка комнат; floors фильтрует по этажу.
func (d *Document) Rooms(floors ...string) []models.Room {
	out := make([]models.Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		if len(floors) > 0 && !contains(floors, r.FloorID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (d *Document) Room(id string) (models.Room, bool) {
	for _, r := range d.rooms {
		if r.ID == id {
			return r, true
		}
	}
	return models.Room{}, false
}

func (d *Document) IsPointOnWallBody(p models.Point) bool {
	return d.graph.IsPointOnWallBody(p)
}

// RoomNameForWall: имя комнаты, к которой примыкает стена.
func (d *Document) RoomNameForWall(wall models.WallID) string {
	rw, ok := d.graph.Resolve(wall)
	if !ok {
		return ""
	}
	return rooms.NameForWall(d.rooms, rw)
}

// ============================================================
// Walls & nodes
// ============================================================

// AddWall рисует стену от a до b. Концы склеиваются с узлами того же этажа,
// а конец, попавший на тело другой стены, делит ее (Т-образный стык).
// Отклоненная стена граф не меняет.
func (d *Document) AddWall(a, b models.Point, opts graph.WallOptions) (models.WallID, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return 0, graph.ErrDegenerateWall
	}

	ea := d.planEndpoint(a, opts.FloorID)
	eb := d.planEndpoint(b, opts.FloorID)
	if err := d.checkWall(ea, eb); err != nil {
		return 0, fmt.Errorf("add wall: %w", err)
	}

	na, err := d.resolveEndpoint(ea, opts.FloorID)
	if err != nil {
		d.ProcessWalls()
		return 0, err
	}
	nb, err := d.resolveEndpoint(eb, opts.FloorID)
	if err != nil {
		d.ProcessWalls()
		return 0, err
	}

	id, err := d.graph.AddWall(na, nb, opts)
	if err != nil {
		d.graph.Prune()
		d.ProcessWalls()
		return 0, fmt.Errorf("add wall: %w", err)
	}
	d.ProcessWalls()
	return id, nil
}

// endpoint: во что превратится конец новой стены, пока граф не тронут.
type endpoint struct {
	node  models.NodeID // существующий узел
	split models.WallID // стена, которую придется разделить
	at    models.Point
}

func (e endpoint) fresh() bool {
	return e.node == 0 && e.split == 0
}

func (d *Document) planEndpoint(p models.Point, floorID string) endpoint {
	if id, ok := d.graph.FindFloorNode(p, []string{floorID}); ok {
		n, _ := d.graph.Node(id)
		return endpoint{node: id, at: n.Point()}
	}
	if wall, ok := d.graph.WallBodyAt(p, floorID); ok {
		if at, _, err := d.graph.SplitPoint(wall, p); err == nil {
			return endpoint{split: wall, at: at}
		}
	}
	return endpoint{at: p}
}

// checkWall отсекает стены, которые граф все равно отклонит: вырожденные
// и совпадающие с уже существующей стеной (или ее участком).
func (d *Document) checkWall(a, b endpoint) error {
	length := geometry.Distance(a.at, b.at)
	if length < models.MinWallLength {
		return graph.ErrDegenerateWall
	}
	// свежий узел приклеится к другому концу
	if (a.fresh() || b.fresh()) && length <= d.graph.SnapRadius() {
		return graph.ErrDegenerateWall
	}
	if a.node != 0 && b.node != 0 && d.graph.WallExists(a.node, b.node) {
		return graph.ErrWallExists
	}
	if a.split != 0 && a.split == b.split {
		return graph.ErrWallExists
	}
	if d.splitsOwnWall(a, b) || d.splitsOwnWall(b, a) {
		return graph.ErrWallExists
	}
	return nil
}

// splitsOwnWall: конец s делит стену, которая и так идет от узла n.
func (d *Document) splitsOwnWall(s, n endpoint) bool {
	if s.split == 0 || n.node == 0 {
		return false
	}
	w, ok := d.graph.Wall(s.split)
	return ok && (w.P1 == n.node || w.P2 == n.node)
}

func (d *Document) resolveEndpoint(e endpoint, floorID string) (models.NodeID, error) {
	if e.node != 0 {
		return e.node, nil
	}
	if e.split != 0 {
		return d.splitWall(e.split, e.at)
	}
	return d.graph.GetOrCreateNode(e.at.X, e.at.Y, floorID), nil
}

// splitWall делит стену и раскладывает ее проемы по половинам.
func (d *Document) splitWall(wall models.WallID, p models.Point) (models.NodeID, error) {
	ops := d.table.OnWall(wall)
	mid, halves, splitPos, err := d.graph.SplitWall(wall, p)
	if err != nil {
		return 0, err
	}

	for _, o := range ops {
		if o.Pos < splitPos {
			continue
		}
		o.WallID = halves[1]
		o.Pos -= splitPos
		if err := d.table.Update(o); err != nil {
			log.Printf("[PLANNER] move opening %d to wall %d: %v", o.ID, halves[1], err)
		}
	}
	for _, h := range halves {
		d.dropInvalid(h)
	}
	return mid, nil
}

// MoveNode переносит узел вместе со всеми его стенами. Если узел оказался в радиусе
// склейки другого узла, они сливаются. Возвращает проемы, удаленные из-за нехватки места.
func (d *Document) MoveNode(id models.NodeID, p models.Point) ([]models.OpeningID, error) {
	if !p.IsFinite() {
		return nil, fmt.Errorf("move node %d: %w", id, graph.ErrDegenerateWall)
	}
	if err := d.graph.MoveNode(id, p); err != nil {
		return nil, err
	}

	var removed []models.OpeningID
	keep := id
	if other, ok := d.graph.FindFloorNode(p, d.graph.NodeFloors(id), id); ok {
		collapsed, err := d.graph.MergeNodes(other, id)
		if err != nil {
			return nil, err
		}
		for _, w := range collapsed {
			removed = append(removed, d.table.RemoveWall(w)...)
		}
		keep = other
	}

	for _, w := range d.graph.WallsAt(keep) {
		removed = append(removed, d.dropInvalid(w)...)
	}
	d.ProcessWalls()
	return removed, nil
}

// RemoveWall удаляет стену вместе со всеми ее проемами.
func (d *Document) RemoveWall(id models.WallID) ([]models.OpeningID, error) {
	if _, ok := d.graph.Wall(id); !ok {
		return nil, fmt.Errorf("remove wall %d: %w", id, graph.ErrWallNotFound)
	}
	if d.drag.Phase == openings.DragDragging {
		if o, ok := d.table.Get(d.drag.OpeningID); ok && o.WallID == id {
			d.drag = openings.DragState{}
		}
	}
	removed := d.table.RemoveWall(id)
	if err := d.graph.RemoveWall(id); err != nil {
		return removed, err
	}
	d.ProcessWalls()
	return removed, nil
}

func (d *Document) SetWallThickness(id models.WallID, thickness float64) ([]models.OpeningID, error) {
	if err := d.graph.SetThickness(id, thickness); err != nil {
		return nil, err
	}
	removed := d.dropInvalid(id)
	d.ProcessWalls()
	return removed, nil
}

// dropInvalid приводит проемы стены в порядок, а те, что не помещаются, удаляет.
func (d *Document) dropInvalid(wall models.WallID) []models.OpeningID {
	invalid := d.engine.Reconcile(wall)
	for _, id := range invalid {
		log.Printf("[PLANNER] opening %d no longer fits wall %d, removed", id, wall)
		d.table.Remove(id)
	}
	return invalid
}

// ============================================================
// Openings
// ============================================================

// PlaceOpening ставит проем на ближайшую к точке стену. false: места нет.
func (d *Document) PlaceOpening(kind models.OpeningKind, p models.Point, floorID string) (models.Opening, bool) {
	var floors []string
	if floorID != "" {
		floors = append(floors, floorID)
	}
	wall, ok := d.graph.NearestWall(p, floors...)
	if !ok {
		return models.Opening{}, false
	}
	return d.PlaceOpeningOnWall(kind, wall, p)
}

func (d *Document) PlaceOpeningOnWall(kind models.OpeningKind, wall models.WallID, p models.Point) (models.Opening, bool) {
	o, ok := d.engine.Place(kind, wall, p)
	if !ok {
		return models.Opening{}, false
	}
	d.ProcessWalls()
	return o, true
}

// ResizeOpening задает ширину вручную; false: новая ширина не помещается.
func (d *Document) ResizeOpening(id models.OpeningID, width float64) (bool, error) {
	if _, ok := d.table.Get(id); !ok {
		return false, fmt.Errorf("resize opening %d: %w", id, openings.ErrNotFound)
	}
	return d.engine.Resize(id, width), nil
}

func (d *Document) DeleteOpening(id models.OpeningID) error {
	if !d.table.Remove(id) {
		return fmt.Errorf("delete opening %d: %w", id, openings.ErrNotFound)
	}
	if d.drag.OpeningID == id {
		d.drag = openings.DragState{}
	}
	d.ProcessWalls()
	return nil
}

// FreeSegments: свободные участки стены для нового проема.
func (d *Document) FreeSegments(wall models.WallID) []models.Interval {
	q, ok := d.engine.Query(wall, 0)
	if !ok {
		return nil
	}
	return q.Free()
}

// ============================================================
// Drag
// ============================================================

func (d *Document) BeginDrag(id models.OpeningID) error {
	state, err := d.engine.BeginDrag(d.drag, id)
	if err != nil {
		return err
	}
	d.drag = state
	return nil
}

// DragTo пересчитывает положение проема по курсору и применяет допустимое предложение.
func (d *Document) DragTo(p models.Point) openings.Proposal {
	proposal, state := d.engine.Step(d.drag, p)
	d.drag = state
	d.engine.Apply(d.drag, proposal)
	return proposal
}

// EndDrag фиксирует жест; false: результат отклонен и проем возвращен на место.
func (d *Document) EndDrag() (bool, error) {
	committed, state, err := d.engine.EndDrag(d.drag)
	if err != nil {
		return false, err
	}
	d.drag = state
	d.ProcessWalls()
	return committed, nil
}

func (d *Document) CancelDrag() error {
	state, err := d.engine.CancelDrag(d.drag)
	if err != nil {
		return err
	}
	d.drag = state
	return nil
}

func (d *Document) Dragging() (models.OpeningID, bool) {
	return d.drag.OpeningID, d.drag.Phase == openings.DragDragging
}

// ============================================================
// Rooms
// ============================================================

// Batch выполняет fn без промежуточных пересчетов комнат; пересчет один, в конце.
func (d *Document) Batch(fn func() error) error {
	d.batching++
	defer func() {
		d.batching--
		if d.batching == 0 {
			d.ProcessWalls()
		}
	}()
	return fn()
}

// ProcessWalls пересчитывает комнаты по каждому этажу и обновляет roomName окон.
func (d *Document) ProcessWalls() {
	if d.batching > 0 {
		return
	}
	next := make([]models.Room, 0, len(d.rooms))
	for _, floor := range d.graph.Floors() {
		previous := d.Rooms(floor)
		for _, r := range d.detector.Detect(d.graph.ResolvedWalls(floor), previous) {
			if r.FloorID == "" {
				r.FloorID = floor
			}
			next = append(next, r)
		}
	}
	d.rooms = next
	d.refreshWindowRooms()
}

func (d *Document) refreshWindowRooms() {
	for _, o := range d.table.All() {
		if o.Kind != models.KindWindow {
			continue
		}
		name := d.RoomNameForWall(o.WallID)
		if name == o.RoomName {
			continue
		}
		o.RoomName = name
		if err := d.table.Update(o); err != nil {
			log.Printf("[PLANNER] window %d room name: %v", o.ID, err)
		}
	}
}

func (d *Document) RenameRoom(id, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	i, ok := d.roomIndex(id)
	if !ok {
		return fmt.Errorf("rename room %s: %w", id, ErrRoomNotFound)
	}
	d.rooms[i].Name = name
	d.refreshWindowRooms()
	return nil
}

// MoveRoomLabel переносит подпись комнаты; точка должна лежать внутри комнаты.
func (d *Document) MoveRoomLabel(id string, p models.Point) error {
	i, ok := d.roomIndex(id)
	if !ok {
		return fmt.Errorf("move room label %s: %w", id, ErrRoomNotFound)
	}
	room := d.rooms[i]
	if !rooms.Contains(room, p) {
		return ErrLabelOutside
	}
	d.rooms[i].Center = p
	d.rooms[i].CenterOffset = rooms.OffsetIn(room, p)
	return nil
}

// AutoPlaceWindows ставит по окну на каждую внешнюю стену комнаты, где окон еще нет.
func (d *Document) AutoPlaceWindows(roomID string) ([]models.Opening, error) {
	room, ok := d.Room(roomID)
	if !ok {
		return nil, fmt.Errorf("auto place windows %s: %w", roomID, ErrRoomNotFound)
	}

	var placed []models.Opening
	for _, w := range rooms.ExteriorWalls(room, d.rooms, d.graph.ResolvedWalls(room.FloorID)) {
		if len(d.table.OnWall(w.ID, models.KindWindow)) > 0 {
			continue
		}
		if o, ok := d.engine.AutoPlaceWindow(w.ID, room.Name); ok {
			placed = append(placed, o)
		}
	}
	if len(placed) > 0 {
		d.ProcessWalls()
	}
	return placed, nil
}

func (d *Document) roomIndex(id string) (int, bool) {
	for i := range d.rooms {
		if d.rooms[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
