package document

import (
	"encoding/json"
	"fmt"

	"floorplan/internal/planner/models"
	"floorplan/internal/planner/openings"
)

// Snapshot: полное состояние документа для истории правок и хранения.
type Snapshot struct {
	Nodes    []models.Node    `json:"nodes"`
	Walls    []models.Wall    `json:"walls"`
	Openings []models.Opening `json:"openings"`
	Rooms    []models.Room    `json:"rooms"`
}

func (d *Document) Snapshot() Snapshot {
	return Snapshot{
		Nodes:    d.graph.Nodes(),
		Walls:    d.graph.Walls(),
		Openings: d.table.All(),
		Rooms:    d.Rooms(),
	}
}

// Restore заменяет состояние документа снимком. Комнаты пересчитываются,
// а имена и якоря берутся из комнат снимка.
func (d *Document) Restore(s Snapshot) error {
	walls := make(map[models.WallID]bool, len(s.Walls))
	for _, w := range s.Walls {
		walls[w.ID] = true
	}
	for _, o := range s.Openings {
		if !walls[o.WallID] {
			return fmt.Errorf("restore opening %d: wall %d missing", o.ID, o.WallID)
		}
	}

	if err := d.graph.Restore(s.Nodes, s.Walls); err != nil {
		return err
	}

	d.resetOpenings()
	d.drag = openings.DragState{}
	for _, o := range s.Openings {
		d.table.Add(o)
	}

	d.rooms = append([]models.Room{}, s.Rooms...)
	d.ProcessWalls()
	return nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Snapshot())
}

// Load восстанавливает документ из JSON-снимка.
func (d *Document) Load(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return d.Restore(s)
}
