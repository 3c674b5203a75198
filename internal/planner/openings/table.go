package openings

import (
	"errors"
	"sort"

	"floorplan/internal/planner/models"
)

// ============================================================
// Opening Table
// ============================================================

var ErrNotFound = errors.New("opening not found")

// Table: единственный владелец всех проемов. Проемы проиндексированы по стене
// (порядок вставки сохраняется), двери дополнительно: глобальным списком.
type Table struct {
	nextID models.OpeningID
	items  map[models.OpeningID]*models.Opening
	byWall map[models.WallID][]models.OpeningID
	doors  []models.OpeningID
}

func NewTable() *Table {
	return &Table{
		items:  make(map[models.OpeningID]*models.Opening),
		byWall: make(map[models.WallID][]models.OpeningID),
	}
}

// Add регистрирует проем и присваивает ему ID (если ID не задан).
func (t *Table) Add(o models.Opening) models.Opening {
	if o.ID == 0 {
		t.nextID++
		o.ID = t.nextID
	} else if o.ID > t.nextID {
		t.nextID = o.ID
	}

	item := o
	t.items[o.ID] = &item
	t.byWall[o.WallID] = append(t.byWall[o.WallID], o.ID)
	if o.Kind == models.KindDoor {
		t.doors = append(t.doors, o.ID)
	}
	return item
}

func (t *Table) Get(id models.OpeningID) (models.Opening, bool) {
	o, ok := t.items[id]
	if !ok {
		return models.Opening{}, false
	}
	return *o, true
}

// Update перезаписывает позицию/ширину/флаги проема. Смена стены идет через MoveToWall.
func (t *Table) Update(o models.Opening) error {
	cur, ok := t.items[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.WallID != o.WallID {
		t.MoveToWall(o.ID, o.WallID)
	}
	kind := cur.Kind
	*cur = o
	cur.Kind = kind
	return nil
}

func (t *Table) Remove(id models.OpeningID) bool {
	o, ok := t.items[id]
	if !ok {
		return false
	}
	t.byWall[o.WallID] = removeOpening(t.byWall[o.WallID], id)
	if len(t.byWall[o.WallID]) == 0 {
		delete(t.byWall, o.WallID)
	}
	if o.Kind == models.KindDoor {
		t.doors = removeOpening(t.doors, id)
	}
	delete(t.items, id)
	return true
}

// MoveToWall убирает проем из списка старой стены и добавляет в конец списка новой.
func (t *Table) MoveToWall(id models.OpeningID, wall models.WallID) bool {
	o, ok := t.items[id]
	if !ok {
		return false
	}
	if o.WallID == wall {
		return true
	}
	t.byWall[o.WallID] = removeOpening(t.byWall[o.WallID], id)
	if len(t.byWall[o.WallID]) == 0 {
		delete(t.byWall, o.WallID)
	}
	o.WallID = wall
	t.byWall[wall] = append(t.byWall[wall], id)
	return true
}

// OnWall возвращает копии проемов стены; kinds ограничивает выборку видами проемов.
func (t *Table) OnWall(wall models.WallID, kinds ...models.OpeningKind) []models.Opening {
	ids := t.byWall[wall]
	out := make([]models.Opening, 0, len(ids))
	for _, id := range ids {
		o := t.items[id]
		if len(kinds) > 0 && !hasKind(kinds, o.Kind) {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// RemoveWall каскадно удаляет все проемы стены.
func (t *Table) RemoveWall(wall models.WallID) []models.OpeningID {
	ids := append([]models.OpeningID{}, t.byWall[wall]...)
	for _, id := range ids {
		t.Remove(id)
	}
	return ids
}

// Doors возвращает двери (глобальный индекс); floors фильтрует по этажу.
func (t *Table) Doors(floors ...string) []models.Opening {
	out := make([]models.Opening, 0, len(t.doors))
	for _, id := range t.doors {
		o := t.items[id]
		if len(floors) > 0 && !hasFloor(floors, o.FloorID) {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// All возвращает все проемы по возрастанию ID.
func (t *Table) All() []models.Opening {
	out := make([]models.Opening, 0, len(t.items))
	for _, o := range t.items {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Table) Len() int {
	return len(t.items)
}

func removeOpening(list []models.OpeningID, id models.OpeningID) []models.OpeningID {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func hasKind(kinds []models.OpeningKind, k models.OpeningKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func hasFloor(floors []string, f string) bool {
	for _, v := range floors {
		if v == f {
			return true
		}
	}
	return false
}
