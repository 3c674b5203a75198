package graph

import (
	"math"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"

	"github.com/dhconnelly/rtreego"
)

// ============================================================
// Spatial index
// ============================================================

// spatialEntry хранит прямоугольник на момент вставки: rtreego ищет удаляемый
// объект по его текущим Bounds, поэтому координаты берутся не из живого узла.
type spatialEntry struct {
	rect rtreego.Rect
	node models.NodeID
	wall models.WallID
}

func (e *spatialEntry) Bounds() rtreego.Rect {
	return e.rect
}

func (g *Graph) indexNode(rec *nodeRecord) {
	rec.entry = &spatialEntry{
		rect: rtreego.Point{rec.node.X, rec.node.Y}.ToRect(nodeRectTol),
		node: rec.node.ID,
	}
	g.nodeIndex.Insert(rec.entry)
}

func (g *Graph) reindexWall(rec *wallRecord) {
	if rec.entry != nil {
		g.wallIndex.Delete(rec.entry)
		rec.entry = nil
	}

	rw, ok := g.Resolve(rec.wall.ID)
	if !ok {
		return
	}

	points := []models.Point{rw.A, rw.B}
	if rw.IsArc {
		points = geometry.SampleArc(rw.A, *rw.ArcControl1, *rw.ArcControl2, rw.B, models.ArcSamples)
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	// pad by the widest query radius used against walls
	pad := math.Max(models.SnapDistance(rw.Thickness), models.JointClearance) + nodeRectTol
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{minX - pad, minY - pad},
		rtreego.Point{maxX + pad, maxY + pad},
	)
	if err != nil {
		return
	}

	rec.entry = &spatialEntry{rect: rect, wall: rec.wall.ID}
	g.wallIndex.Insert(rec.entry)
}
