package graph

import (
	"fmt"

	"floorplan/internal/planner/models"
)

// ============================================================
// Restore
// ============================================================

// Restore заменяет содержимое графа узлами и стенами из снимка, сохраняя их ID.
func (g *Graph) Restore(nodes []models.Node, walls []models.Wall) error {
	fresh := New(g.snapRadius)

	for _, n := range nodes {
		if _, dup := fresh.nodes[n.ID]; dup || n.ID <= 0 {
			return fmt.Errorf("restore: invalid node id %d", n.ID)
		}
		rec := &nodeRecord{node: n}
		fresh.nodes[n.ID] = rec
		fresh.indexNode(rec)
		if n.ID > fresh.nextNode {
			fresh.nextNode = n.ID
		}
	}

	for _, w := range walls {
		if _, dup := fresh.walls[w.ID]; dup || w.ID <= 0 {
			return fmt.Errorf("restore: invalid wall id %d", w.ID)
		}
		a, okA := fresh.nodes[w.P1]
		b, okB := fresh.nodes[w.P2]
		if !okA || !okB {
			return fmt.Errorf("restore wall %d: %w", w.ID, ErrNodeNotFound)
		}
		if w.IsArc && (w.ArcControl1 == nil || w.ArcControl2 == nil) {
			w.IsArc = false
		}
		rec := &wallRecord{wall: w}
		fresh.walls[w.ID] = rec
		a.walls = appendUnique(a.walls, w.ID)
		b.walls = appendUnique(b.walls, w.ID)
		fresh.reindexWall(rec)
		if w.ID > fresh.nextWall {
			fresh.nextWall = w.ID
		}
	}

	*g = *fresh
	return nil
}
