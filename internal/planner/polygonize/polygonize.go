// Package polygonize строит минимальные замкнутые полигоны из набора отрезков.
//
// Алгоритм: узлы в точках пересечений, склейка близких вершин, удаление
// висячих ребер и мостов, обход граней по полуребрам. Грани с положительной
// площадью становятся полигонами, внешние контуры вложенных компонент: их дырами.
package polygonize

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const DefaultTolerance = 1e-4

var ErrNonFinite = errors.New("non-finite coordinate")

// Polygonizer: без состояния, можно переиспользовать.
type Polygonizer struct {
	Tolerance float64
}

func New() *Polygonizer {
	return &Polygonizer{Tolerance: DefaultTolerance}
}

// Polygonize возвращает FeatureCollection из orb.Polygon, по одному на грань.
func (p *Polygonizer) Polygonize(lines []orb.LineString) (*geojson.FeatureCollection, error) {
	tol := p.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	segs, err := collectSegments(lines, tol)
	if err != nil {
		return nil, err
	}

	a := newArrangement(tol)
	a.node(segs)
	a.prune()

	fc := geojson.NewFeatureCollection()
	for _, poly := range a.polygons() {
		fc.Append(geojson.NewFeature(poly))
	}
	return fc, nil
}

type segment struct {
	a, b orb.Point
}

func collectSegments(lines []orb.LineString, tol float64) ([]segment, error) {
	var out []segment
	for i, ls := range lines {
		for j := 1; j < len(ls); j++ {
			a, b := ls[j-1], ls[j]
			if !finite(a) || !finite(b) {
				return nil, fmt.Errorf("polygonize line %d: %w", i, ErrNonFinite)
			}
			if planar.Distance(a, b) <= tol {
				continue
			}
			out = append(out, segment{a: a, b: b})
		}
	}
	return out, nil
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ============================================================
// Arrangement
// ============================================================

type cellKey struct {
	x, y int64
}

type edgeKey struct {
	u, v int
}

type arrangement struct {
	tol      float64
	vertices []orb.Point
	grid     map[cellKey][]int
	edges    []edgeKey
	seen     map[edgeKey]bool
	removed  []bool
}

func newArrangement(tol float64) *arrangement {
	return &arrangement{
		tol:  tol,
		grid: make(map[cellKey][]int),
		seen: make(map[edgeKey]bool),
	}
}

// vertex возвращает индекс существующей вершины в пределах tol или регистрирует новую.
func (a *arrangement) vertex(p orb.Point) int {
	cx := int64(math.Floor(p[0] / a.tol))
	cy := int64(math.Floor(p[1] / a.tol))
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, idx := range a.grid[cellKey{cx + dx, cy + dy}] {
				if planar.Distance(a.vertices[idx], p) <= a.tol {
					return idx
				}
			}
		}
	}
	idx := len(a.vertices)
	a.vertices = append(a.vertices, p)
	a.grid[cellKey{cx, cy}] = append(a.grid[cellKey{cx, cy}], idx)
	return idx
}

func (a *arrangement) addEdge(u, v int) {
	if u == v {
		return
	}
	k := edgeKey{u, v}
	if u > v {
		k = edgeKey{v, u}
	}
	if a.seen[k] {
		return
	}
	a.seen[k] = true
	a.edges = append(a.edges, k)
	a.removed = append(a.removed, false)
}

// node разбивает отрезки во всех точках пересечения и касания.
func (a *arrangement) node(segs []segment) {
	for i, s := range segs {
		params := []float64{0, 1}
		for j, o := range segs {
			if i == j {
				continue
			}
			if t, ok := crossing(s, o, a.tol); ok {
				params = append(params, t)
			}
			for _, end := range []orb.Point{o.a, o.b} {
				if t, ok := touch(s, end, a.tol); ok {
					params = append(params, t)
				}
			}
		}
		sort.Float64s(params)

		prev := -1
		for _, t := range params {
			idx := a.vertex(interpolate(s.a, s.b, t))
			if prev >= 0 {
				a.addEdge(prev, idx)
			}
			prev = idx
		}
	}
}

func crossing(s, o segment, tol float64) (float64, bool) {
	rx, ry := s.b[0]-s.a[0], s.b[1]-s.a[1]
	sx, sy := o.b[0]-o.a[0], o.b[1]-o.a[1]
	denom := rx*sy - ry*sx
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	qx, qy := o.a[0]-s.a[0], o.a[1]-s.a[1]
	t := (qx*sy - qy*sx) / denom
	u := (qx*ry - qy*rx) / denom

	lenS := math.Hypot(rx, ry)
	lenO := math.Hypot(sx, sy)
	if t*lenS < -tol || (t-1)*lenS > tol || u*lenO < -tol || (u-1)*lenO > tol {
		return 0, false
	}
	return math.Max(0, math.Min(1, t)), true
}

func touch(s segment, p orb.Point, tol float64) (float64, bool) {
	if planar.DistanceFromSegment(s.a, s.b, p) > tol {
		return 0, false
	}
	dx, dy := s.b[0]-s.a[0], s.b[1]-s.a[1]
	t := ((p[0]-s.a[0])*dx + (p[1]-s.a[1])*dy) / (dx*dx + dy*dy)
	return math.Max(0, math.Min(1, t)), true
}

func interpolate(a, b orb.Point, t float64) orb.Point {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// ============================================================
// Pruning
// ============================================================

func (a *arrangement) degrees() []int {
	deg := make([]int, len(a.vertices))
	for i, e := range a.edges {
		if a.removed[i] {
			continue
		}
		deg[e.u]++
		deg[e.v]++
	}
	return deg
}

// prune удаляет висячие ребра, затем мосты, пока граф не стабилизируется.
func (a *arrangement) prune() {
	for {
		a.removeDangles()
		if !a.removeBridges() {
			return
		}
	}
}

func (a *arrangement) removeDangles() {
	for {
		deg := a.degrees()
		changed := false
		for i, e := range a.edges {
			if a.removed[i] {
				continue
			}
			if deg[e.u] < 2 || deg[e.v] < 2 {
				a.removed[i] = true
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// removeBridges убирает ребра, у которых обе стороны принадлежат одной грани.
func (a *arrangement) removeBridges() bool {
	h := a.halfEdges()
	face := h.faces()
	changed := false
	for he := 0; he < len(h.from); he += 2 {
		if !h.alive[he] {
			continue
		}
		if face[he] == face[he+1] {
			a.removed[he/2] = true
			changed = true
		}
	}
	return changed
}

// ============================================================
// Half-edges
// ============================================================

type halfEdges struct {
	vertices []orb.Point
	from, to []int
	alive    []bool
	out      [][]int
	pos      []int
}

// halfEdges: ребро i дает полуребра 2i (u→v) и 2i+1 (v→u).
func (a *arrangement) halfEdges() *halfEdges {
	n := len(a.edges) * 2
	h := &halfEdges{
		vertices: a.vertices,
		from:     make([]int, n),
		to:       make([]int, n),
		alive:    make([]bool, n),
		out:      make([][]int, len(a.vertices)),
		pos:      make([]int, n),
	}
	for i, e := range a.edges {
		h.from[2*i], h.to[2*i] = e.u, e.v
		h.from[2*i+1], h.to[2*i+1] = e.v, e.u
		if a.removed[i] {
			continue
		}
		h.alive[2*i], h.alive[2*i+1] = true, true
		h.out[e.u] = append(h.out[e.u], 2*i)
		h.out[e.v] = append(h.out[e.v], 2*i+1)
	}
	for v, list := range h.out {
		origin := a.vertices[v]
		sort.SliceStable(list, func(i, j int) bool {
			return angle(origin, a.vertices[h.to[list[i]]]) < angle(origin, a.vertices[h.to[list[j]]])
		})
		for i, he := range list {
			h.pos[he] = i
		}
	}
	return h
}

func angle(from, to orb.Point) float64 {
	return math.Atan2(to[1]-from[1], to[0]-from[0])
}

// next: следующее полуребро грани слева: у вершины назначения берется
// исходящее ребро, предшествующее обратному по часовой стрелке.
func (h *halfEdges) next(he int) int {
	twin := he ^ 1
	list := h.out[h.to[he]]
	i := h.pos[twin] - 1
	if i < 0 {
		i = len(list) - 1
	}
	return list[i]
}

// faces присваивает каждому живому полуребру номер его грани.
func (h *halfEdges) faces() []int {
	face := make([]int, len(h.from))
	for i := range face {
		face[i] = -1
	}
	id := 0
	for start := range h.from {
		if !h.alive[start] || face[start] >= 0 {
			continue
		}
		for he := start; face[he] < 0; he = h.next(he) {
			face[he] = id
		}
		id++
	}
	return face
}

func (h *halfEdges) ring(start int) orb.Ring {
	var ring orb.Ring
	he := start
	for {
		ring = append(ring, h.vertices[h.from[he]])
		he = h.next(he)
		if he == start {
			break
		}
	}
	return append(ring, ring[0])
}

// ============================================================
// Faces → polygons
// ============================================================

type faceRing struct {
	ring      orb.Ring
	area      float64
	component int
}

func (a *arrangement) polygons() []orb.Polygon {
	h := a.halfEdges()
	face := h.faces()
	comp := a.components()

	var shells, outers []faceRing
	done := make(map[int]bool)
	for he := range h.from {
		if !h.alive[he] || done[face[he]] {
			continue
		}
		done[face[he]] = true

		ring := h.ring(he)
		area := signedArea(ring)
		fr := faceRing{ring: ring, area: area, component: comp[h.from[he]]}
		switch {
		case area > a.tol*a.tol:
			shells = append(shells, fr)
		case area < -a.tol*a.tol:
			outers = append(outers, fr)
		}
	}

	polys := make([]orb.Polygon, len(shells))
	for i, s := range shells {
		polys[i] = orb.Polygon{s.ring}
	}

	// внешний контур компоненты становится дырой наименьшей охватывающей грани другой компоненты
	for _, o := range outers {
		best := -1
		for i, s := range shells {
			if s.component == o.component || !planar.RingContains(s.ring, o.ring[0]) {
				continue
			}
			if best < 0 || s.area < shells[best].area {
				best = i
			}
		}
		if best >= 0 {
			polys[best] = append(polys[best], o.ring)
		}
	}
	return polys
}

func (a *arrangement) components() []int {
	parent := make([]int, len(a.vertices))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i, e := range a.edges {
		if a.removed[i] {
			continue
		}
		parent[find(e.u)] = find(e.v)
	}
	out := make([]int, len(a.vertices))
	for i := range out {
		out[i] = find(i)
	}
	return out
}

func signedArea(ring orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
