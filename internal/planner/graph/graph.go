package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"

	"github.com/dhconnelly/rtreego"
)

// ============================================================
// Wall Graph
// ============================================================

var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrWallNotFound   = errors.New("wall not found")
	ErrDegenerateWall = errors.New("degenerate wall")
	ErrWallExists     = errors.New("wall already exists")
	ErrArcWall        = errors.New("operation not supported on arc walls")
)

const (
	indexMinChildren = 25
	indexMaxChildren = 50
	nodeRectTol      = 0.01
)

type nodeRecord struct {
	node  models.Node
	walls []models.WallID
	entry *spatialEntry
}

type wallRecord struct {
	wall  models.Wall
	entry *spatialEntry
}

// Graph хранит узлы и стены в арене со стабильными целочисленными ключами.
// Стены ссылаются на узлы только по NodeID, поэтому перемещение узла двигает все его стены.
type Graph struct {
	snapRadius float64
	nodes      map[models.NodeID]*nodeRecord
	walls      map[models.WallID]*wallRecord
	nodeIndex  *rtreego.Rtree
	wallIndex  *rtreego.Rtree
	nextNode   models.NodeID
	nextWall   models.WallID
}

// WallOptions: свойства новой стены.
type WallOptions struct {
	Thickness   float64
	Type        models.WallType
	FloorID     string
	IsArc       bool
	ArcControl1 *models.Point
	ArcControl2 *models.Point
}

func New(snapRadius float64) *Graph {
	if snapRadius <= 0 {
		snapRadius = models.SnapRadius
	}
	return &Graph{
		snapRadius: snapRadius,
		nodes:      make(map[models.NodeID]*nodeRecord),
		walls:      make(map[models.WallID]*wallRecord),
		nodeIndex:  rtreego.NewTree(2, indexMinChildren, indexMaxChildren),
		wallIndex:  rtreego.NewTree(2, indexMinChildren, indexMaxChildren),
	}
}

func (g *Graph) SnapRadius() float64 {
	return g.snapRadius
}

// ============================================================
// Nodes
// ============================================================

// GetOrCreateNode возвращает узел в пределах радиуса склейки или создает новый.
// floors ограничивает склейку узлами этих этажей; узлы разных этажей не делятся.
func (g *Graph) GetOrCreateNode(x, y float64, floors ...string) models.NodeID {
	p := models.Point{X: x, Y: y}
	if id, ok := g.nearestNode(p, g.snapRadius, floors, nil); ok {
		return id
	}

	g.nextNode++
	rec := &nodeRecord{node: models.Node{ID: g.nextNode, X: x, Y: y}}
	g.nodes[rec.node.ID] = rec
	g.indexNode(rec)
	return rec.node.ID
}

// FindNode ищет ближайший узел в пределах радиуса склейки, не создавая новый.
func (g *Graph) FindNode(p models.Point, exclude ...models.NodeID) (models.NodeID, bool) {
	return g.nearestNode(p, g.snapRadius, nil, exclude)
}

// FindFloorNode: как FindNode, но только среди узлов указанных этажей.
func (g *Graph) FindFloorNode(p models.Point, floors []string, exclude ...models.NodeID) (models.NodeID, bool) {
	return g.nearestNode(p, g.snapRadius, floors, exclude)
}

// NodeFloors возвращает этажи стен, опирающихся на узел.
func (g *Graph) NodeFloors(id models.NodeID) []string {
	rec, ok := g.nodes[id]
	if !ok {
		return nil
	}
	var out []string
	for _, wid := range rec.walls {
		if w, ok := g.walls[wid]; ok && !contains(out, w.wall.FloorID) {
			out = append(out, w.wall.FloorID)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) nearestNode(p models.Point, radius float64, floors []string, exclude []models.NodeID) (models.NodeID, bool) {
	query := rtreego.Point{p.X, p.Y}.ToRect(radius)

	best := models.NodeID(0)
	bestDist := math.MaxFloat64
	for _, s := range g.nodeIndex.SearchIntersect(query) {
		entry := s.(*spatialEntry)
		rec, ok := g.nodes[entry.node]
		if !ok || excluded(entry.node, exclude) || !g.nodeOnFloor(rec, floors) {
			continue
		}
		d := geometry.Distance(p, rec.node.Point())
		if d > radius {
			continue
		}
		if d < bestDist || (d == bestDist && rec.node.ID < best) {
			best = rec.node.ID
			bestDist = d
		}
	}
	return best, best != 0
}

// nodeOnFloor: узел без стен подходит любому этажу.
func (g *Graph) nodeOnFloor(rec *nodeRecord, floors []string) bool {
	if len(floors) == 0 || len(rec.walls) == 0 {
		return true
	}
	for _, wid := range rec.walls {
		if w, ok := g.walls[wid]; ok && onFloor(w.wall.FloorID, floors) {
			return true
		}
	}
	return false
}

func (g *Graph) Node(id models.NodeID) (models.Node, bool) {
	rec, ok := g.nodes[id]
	if !ok {
		return models.Node{}, false
	}
	return rec.node, true
}

// Nodes возвращает все узлы, упорядоченные по ID.
func (g *Graph) Nodes() []models.Node {
	out := make([]models.Node, 0, len(g.nodes))
	for _, rec := range g.nodes {
		out = append(out, rec.node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WallsAt возвращает стены, опирающиеся на узел.
func (g *Graph) WallsAt(id models.NodeID) []models.WallID {
	rec, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := append([]models.WallID{}, rec.walls...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MoveNode переносит узел; все стены, которые на него ссылаются, следуют за ним.
func (g *Graph) MoveNode(id models.NodeID, p models.Point) error {
	rec, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("move node %d: %w", id, ErrNodeNotFound)
	}

	g.nodeIndex.Delete(rec.entry)
	rec.node.X = p.X
	rec.node.Y = p.Y
	g.indexNode(rec)

	for _, wid := range rec.walls {
		if w, ok := g.walls[wid]; ok {
			g.reindexWall(w)
		}
	}
	return nil
}

// Prune удаляет узлы, на которые не ссылается ни одна стена.
func (g *Graph) Prune() int {
	removed := 0
	for id, rec := range g.nodes {
		if len(rec.walls) > 0 {
			continue
		}
		g.nodeIndex.Delete(rec.entry)
		delete(g.nodes, id)
		removed++
	}
	return removed
}

// MergeNodes переводит все стены узла drop на узел keep.
// Стены, схлопнувшиеся в точку или дублирующие существующие, удаляются и возвращаются.
func (g *Graph) MergeNodes(keep, drop models.NodeID) ([]models.WallID, error) {
	if keep == drop {
		return nil, nil
	}
	keepRec, ok := g.nodes[keep]
	if !ok {
		return nil, fmt.Errorf("merge nodes: keep %d: %w", keep, ErrNodeNotFound)
	}
	dropRec, ok := g.nodes[drop]
	if !ok {
		return nil, fmt.Errorf("merge nodes: drop %d: %w", drop, ErrNodeNotFound)
	}

	var removed []models.WallID
	for _, wid := range append([]models.WallID{}, dropRec.walls...) {
		w := g.walls[wid]
		other := w.wall.P1
		if other == drop {
			other = w.wall.P2
		}
		if other == keep || other == drop || g.WallExists(keep, other) {
			g.removeWall(wid)
			removed = append(removed, wid)
			// removeWall drops keep once its last wall is gone
			if _, ok := g.nodes[keep]; !ok {
				g.nodes[keep] = keepRec
				g.indexNode(keepRec)
			}
			continue
		}

		if w.wall.P1 == drop {
			w.wall.P1 = keep
		}
		if w.wall.P2 == drop {
			w.wall.P2 = keep
		}
		keepRec.walls = appendUnique(keepRec.walls, wid)
		g.reindexWall(w)
	}

	dropRec.walls = nil
	g.nodeIndex.Delete(dropRec.entry)
	delete(g.nodes, drop)

	if len(keepRec.walls) == 0 {
		g.nodeIndex.Delete(keepRec.entry)
		delete(g.nodes, keep)
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed, nil
}

// ============================================================
// Walls
// ============================================================

// AddWall соединяет два узла новой стеной.
func (g *Graph) AddWall(a, b models.NodeID, opts WallOptions) (models.WallID, error) {
	na, ok := g.nodes[a]
	if !ok {
		return 0, fmt.Errorf("add wall: node %d: %w", a, ErrNodeNotFound)
	}
	nb, ok := g.nodes[b]
	if !ok {
		return 0, fmt.Errorf("add wall: node %d: %w", b, ErrNodeNotFound)
	}
	if a == b || geometry.Distance(na.node.Point(), nb.node.Point()) < models.MinWallLength {
		return 0, ErrDegenerateWall
	}
	if g.WallExists(a, b) {
		return 0, ErrWallExists
	}

	thickness := opts.Thickness
	if thickness <= 0 {
		thickness = models.DefaultThickness
	}
	wallType := opts.Type
	if wallType == "" {
		wallType = models.WallNormal
	}

	g.nextWall++
	rec := &wallRecord{wall: models.Wall{
		ID:          g.nextWall,
		P1:          a,
		P2:          b,
		Thickness:   thickness,
		Type:        wallType,
		FloorID:     opts.FloorID,
		IsArc:       opts.IsArc && opts.ArcControl1 != nil && opts.ArcControl2 != nil,
		ArcControl1: copyPoint(opts.ArcControl1),
		ArcControl2: copyPoint(opts.ArcControl2),
	}}
	if !rec.wall.IsArc {
		rec.wall.ArcControl1, rec.wall.ArcControl2 = nil, nil
	}

	g.walls[rec.wall.ID] = rec
	na.walls = appendUnique(na.walls, rec.wall.ID)
	nb.walls = appendUnique(nb.walls, rec.wall.ID)
	g.reindexWall(rec)
	return rec.wall.ID, nil
}

// RemoveWall удаляет стену и осиротевшие узлы. Проемы стены должен убрать вызывающий код.
func (g *Graph) RemoveWall(id models.WallID) error {
	if _, ok := g.walls[id]; !ok {
		return fmt.Errorf("remove wall %d: %w", id, ErrWallNotFound)
	}
	g.removeWall(id)
	return nil
}

func (g *Graph) removeWall(id models.WallID) {
	rec := g.walls[id]
	if rec.entry != nil {
		g.wallIndex.Delete(rec.entry)
	}
	delete(g.walls, id)

	for _, nid := range []models.NodeID{rec.wall.P1, rec.wall.P2} {
		n, ok := g.nodes[nid]
		if !ok {
			continue
		}
		n.walls = removeID(n.walls, id)
		if len(n.walls) == 0 {
			g.nodeIndex.Delete(n.entry)
			delete(g.nodes, nid)
		}
	}
}

// SetThickness меняет толщину стены (и, как следствие, отступ проемов от торцов).
func (g *Graph) SetThickness(id models.WallID, thickness float64) error {
	rec, ok := g.walls[id]
	if !ok {
		return fmt.Errorf("set thickness %d: %w", id, ErrWallNotFound)
	}
	if thickness <= 0 {
		thickness = models.DefaultThickness
	}
	rec.wall.Thickness = thickness
	g.reindexWall(rec)
	return nil
}

// SplitPoint возвращает точку деления стены в проекции p, ничего не меняя.
func (g *Graph) SplitPoint(id models.WallID, p models.Point) (models.Point, float64, error) {
	rec, ok := g.walls[id]
	if !ok {
		return models.Point{}, 0, fmt.Errorf("split wall %d: %w", id, ErrWallNotFound)
	}
	if rec.wall.IsArc {
		return models.Point{}, 0, ErrArcWall
	}

	rw, _ := g.Resolve(id)
	t := geometry.ProjectOnSegment(p, rw.A, rw.B)
	splitPos := t * rw.Length()
	if splitPos < models.MinWallLength || rw.Length()-splitPos < models.MinWallLength {
		return models.Point{}, 0, ErrDegenerateWall
	}
	return geometry.Lerp(rw.A, rw.B, t), splitPos, nil
}

// SplitWall делит прямую стену в проекции точки p. Возвращает общий узел,
// обе половины и расстояние от p1 до точки деления.
func (g *Graph) SplitWall(id models.WallID, p models.Point) (models.NodeID, [2]models.WallID, float64, error) {
	at, splitPos, err := g.SplitPoint(id, p)
	if err != nil {
		return 0, [2]models.WallID{}, 0, err
	}
	rec := g.walls[id]

	// mid-node is created directly so that it is not snapped onto an endpoint
	g.nextNode++
	mid := &nodeRecord{node: models.Node{ID: g.nextNode, X: at.X, Y: at.Y}}
	g.nodes[mid.node.ID] = mid
	g.indexNode(mid)

	oldP2 := rec.wall.P2
	if n, ok := g.nodes[oldP2]; ok {
		n.walls = removeID(n.walls, id)
	}
	rec.wall.P2 = mid.node.ID
	mid.walls = appendUnique(mid.walls, id)
	g.reindexWall(rec)

	secondID, err := g.AddWall(mid.node.ID, oldP2, WallOptions{
		Thickness: rec.wall.Thickness,
		Type:      rec.wall.Type,
		FloorID:   rec.wall.FloorID,
	})
	if err != nil {
		return 0, [2]models.WallID{}, 0, fmt.Errorf("split wall %d: %w", id, err)
	}
	return mid.node.ID, [2]models.WallID{id, secondID}, splitPos, nil
}

func (g *Graph) Wall(id models.WallID) (models.Wall, bool) {
	rec, ok := g.walls[id]
	if !ok {
		return models.Wall{}, false
	}
	return rec.wall, true
}

// Walls возвращает стены по возрастанию ID; при указании этажей: только стены этих этажей.
func (g *Graph) Walls(floors ...string) []models.Wall {
	out := make([]models.Wall, 0, len(g.walls))
	for _, rec := range g.walls {
		if !onFloor(rec.wall.FloorID, floors) {
			continue
		}
		out = append(out, rec.wall)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResolvedWalls: как Walls, но вместе с координатами концов.
func (g *Graph) ResolvedWalls(floors ...string) []models.ResolvedWall {
	walls := g.Walls(floors...)
	out := make([]models.ResolvedWall, 0, len(walls))
	for _, w := range walls {
		if rw, ok := g.Resolve(w.ID); ok {
			out = append(out, rw)
		}
	}
	return out
}

func (g *Graph) Resolve(id models.WallID) (models.ResolvedWall, bool) {
	rec, ok := g.walls[id]
	if !ok {
		return models.ResolvedWall{}, false
	}
	a, okA := g.nodes[rec.wall.P1]
	b, okB := g.nodes[rec.wall.P2]
	if !okA || !okB {
		return models.ResolvedWall{}, false
	}
	return models.ResolvedWall{Wall: rec.wall, A: a.node.Point(), B: b.node.Point()}, true
}

// Floors возвращает отсортированный список этажей, на которых есть стены.
func (g *Graph) Floors() []string {
	seen := make(map[string]struct{})
	for _, rec := range g.walls {
		seen[rec.wall.FloorID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WallExists сообщает, соединены ли узлы a и b стеной (в любом направлении).
func (g *Graph) WallExists(a, b models.NodeID) bool {
	rec, ok := g.nodes[a]
	if !ok {
		return false
	}
	for _, wid := range rec.walls {
		w := g.walls[wid].wall
		if (w.P1 == a && w.P2 == b) || (w.P1 == b && w.P2 == a) {
			return true
		}
	}
	return false
}

// ============================================================
// Wall queries
// ============================================================

// IsPointOnWallBody: точка лежит на теле какой-либо стены, а не на стыке.
func (g *Graph) IsPointOnWallBody(p models.Point) bool {
	_, ok := g.WallBodyAt(p)
	return ok
}

// WallBodyAt возвращает стену, на теле которой лежит точка.
func (g *Graph) WallBodyAt(p models.Point, floors ...string) (models.WallID, bool) {
	for _, id := range g.candidates(p, floors) {
		rw, ok := g.Resolve(id)
		if !ok || rw.IsDegenerate() {
			continue
		}
		if geometry.DistanceToSegment(p, rw.A, rw.B) > models.WallBodyTolerance {
			continue
		}
		if geometry.Distance(p, rw.A) <= models.JointClearance || geometry.Distance(p, rw.B) <= models.JointClearance {
			continue
		}
		return id, true
	}
	return 0, false
}

// NearestWall ищет ближайшую стену, к которой может "прилипнуть" курсор
// (не дальше удвоенной толщины стены).
func (g *Graph) NearestWall(p models.Point, floors ...string) (models.WallID, bool) {
	best := models.WallID(0)
	bestDist := math.MaxFloat64
	for _, id := range g.candidates(p, floors) {
		rw, ok := g.Resolve(id)
		if !ok || rw.IsDegenerate() {
			continue
		}
		d := distanceToWall(p, rw)
		if d > models.SnapDistance(rw.Thickness) {
			continue
		}
		if d < bestDist {
			best = id
			bestDist = d
		}
	}
	return best, best != 0
}

// Project проецирует точку на линию стены; результат: расстояние от p1, зажатое в [0, L].
func (g *Graph) Project(id models.WallID, p models.Point) (float64, bool) {
	rw, ok := g.Resolve(id)
	if !ok {
		return 0, false
	}
	t := geometry.ProjectOnSegment(p, rw.A, rw.B)
	return t * rw.Length(), true
}

// PointAt возвращает точку на стене на расстоянии pos от p1.
func (g *Graph) PointAt(id models.WallID, pos float64) (models.Point, bool) {
	rw, ok := g.Resolve(id)
	if !ok {
		return models.Point{}, false
	}
	length := rw.Length()
	if length == 0 {
		return rw.A, true
	}
	return geometry.Lerp(rw.A, rw.B, pos/length), true
}

func (g *Graph) candidates(p models.Point, floors []string) []models.WallID {
	query := rtreego.Point{p.X, p.Y}.ToRect(nodeRectTol)
	var ids []models.WallID
	for _, s := range g.wallIndex.SearchIntersect(query) {
		entry := s.(*spatialEntry)
		rec, ok := g.walls[entry.wall]
		if !ok || !onFloor(rec.wall.FloorID, floors) {
			continue
		}
		ids = append(ids, entry.wall)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func distanceToWall(p models.Point, rw models.ResolvedWall) float64 {
	if !rw.IsArc {
		return geometry.DistanceToSegment(p, rw.A, rw.B)
	}
	pts := geometry.SampleArc(rw.A, *rw.ArcControl1, *rw.ArcControl2, rw.B, models.ArcSamples)
	best := math.MaxFloat64
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, geometry.DistanceToSegment(p, pts[i-1], pts[i]))
	}
	return best
}

// ============================================================
// Helpers
// ============================================================

func onFloor(floorID string, floors []string) bool {
	if len(floors) == 0 {
		return true
	}
	for _, f := range floors {
		if f == floorID {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func excluded(id models.NodeID, list []models.NodeID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func appendUnique(dst []models.WallID, id models.WallID) []models.WallID {
	for _, v := range dst {
		if v == id {
			return dst
		}
	}
	return append(dst, id)
}

func removeID(list []models.WallID, id models.WallID) []models.WallID {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func copyPoint(p *models.Point) *models.Point {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
