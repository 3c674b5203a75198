// Package segments считает свободные участки стены, куда можно поставить проем.
package segments

import (
	"sort"

	"floorplan/internal/planner/models"
)

// Query описывает одну стену и проемы на ней. Все методы чистые: состояние не меняется,
// поэтому повторный запрос при неизменных данных дает тот же результат.
type Query struct {
	Length    float64
	Thickness float64
	Openings  []models.Opening
	Exclude   models.OpeningID
}

const lengthTieTol = 1e-9

func (q Query) margin() float64 {
	return q.Thickness/2 + models.EndClearanceExtra
}

// Occupied возвращает занятые интервалы с зазором MinGap по обе стороны, по возрастанию начала.
func (q Query) Occupied() []models.Interval {
	out := make([]models.Interval, 0, len(q.Openings))
	for _, o := range q.Openings {
		if q.Exclude != 0 && o.ID == q.Exclude {
			continue
		}
		span := o.Span()
		out = append(out, models.Interval{
			Start: span.Start - models.MinGap,
			End:   span.End + models.MinGap,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Free возвращает свободные интервалы [UM, L-UM] за вычетом занятых.
// Участки короче MinItemWidth не могут принять проем и не возвращаются.
func (q Query) Free() []models.Interval {
	if q.Length < models.MinItemWidth {
		return nil
	}
	lo := q.margin()
	hi := q.Length - q.margin()
	if hi-lo < models.MinItemWidth {
		return nil
	}

	var out []models.Interval
	cursor := lo
	for _, occ := range q.Occupied() {
		if occ.End <= cursor {
			continue
		}
		if occ.Start >= hi {
			break
		}
		if occ.Start > cursor {
			out = appendUsable(out, models.Interval{Start: cursor, End: occ.Start})
		}
		if occ.End > cursor {
			cursor = occ.End
		}
	}
	if cursor < hi {
		out = appendUsable(out, models.Interval{Start: cursor, End: hi})
	}
	return out
}

// At возвращает свободный интервал, содержащий pos.
func (q Query) At(pos float64) (models.Interval, bool) {
	for _, seg := range q.Free() {
		if seg.Contains(pos) {
			return seg, true
		}
	}
	return models.Interval{}, false
}

// Largest возвращает самый длинный свободный интервал; при равенстве (с точностью
// lengthTieTol): интервал с меньшим началом.
func (q Query) Largest() (models.Interval, bool) {
	var best models.Interval
	found := false
	for _, seg := range q.Free() {
		if !found || seg.Length() > best.Length()+lengthTieTol {
			best = seg
			found = true
		}
	}
	return best, found
}

func appendUsable(out []models.Interval, seg models.Interval) []models.Interval {
	if seg.Length() < models.MinItemWidth {
		return out
	}
	return append(out, seg)
}
