package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"floorplan/internal/planner/models"
)

// ============================================================
// Path Parser
// ============================================================

var commandRe = regexp.MustCompile(`([MmLlHhVvCcZz])([^MmLlHhVvCcZz]*)`)

// Segment: участок пути. C1/C2 заданы только у кубических кривых.
type Segment struct {
	From models.Point
	To   models.Point
	C1   *models.Point
	C2   *models.Point
}

func (s Segment) IsCubic() bool {
	return s.C1 != nil && s.C2 != nil
}

// ParseSegments разбирает команды M, L, H, V, C, Z (и относительные варианты).
// Повторяющиеся группы координат после команды трактуются как ее повтор.
func ParseSegments(d string) ([]Segment, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, fmt.Errorf("empty path")
	}

	var segments []Segment
	var cur, start models.Point
	started := false

	for _, match := range commandRe.FindAllStringSubmatch(d, -1) {
		cmd := match[1]
		coords, err := parseCoords(match[2])
		if err != nil {
			return nil, fmt.Errorf("path command %s: %w", cmd, err)
		}
		relative := strings.ToLower(cmd) == cmd

		offset := func(x, y float64) models.Point {
			if relative {
				return models.Point{X: cur.X + x, Y: cur.Y + y}
			}
			return models.Point{X: x, Y: y}
		}

		switch strings.ToUpper(cmd) {
		case "M":
			for i := 0; i+1 < len(coords); i += 2 {
				p := offset(coords[i], coords[i+1])
				if i == 0 {
					start = p
					started = true
				} else {
					// implicit LineTo after the first pair
					segments = append(segments, Segment{From: cur, To: p})
				}
				cur = p
			}

		case "L":
			for i := 0; i+1 < len(coords); i += 2 {
				p := offset(coords[i], coords[i+1])
				segments = append(segments, Segment{From: cur, To: p})
				cur = p
			}

		case "H":
			for _, x := range coords {
				p := models.Point{X: x, Y: cur.Y}
				if relative {
					p.X = cur.X + x
				}
				segments = append(segments, Segment{From: cur, To: p})
				cur = p
			}

		case "V":
			for _, y := range coords {
				p := models.Point{X: cur.X, Y: y}
				if relative {
					p.Y = cur.Y + y
				}
				segments = append(segments, Segment{From: cur, To: p})
				cur = p
			}

		case "C":
			for i := 0; i+5 < len(coords); i += 6 {
				c1 := offset(coords[i], coords[i+1])
				c2 := offset(coords[i+2], coords[i+3])
				p := offset(coords[i+4], coords[i+5])
				segments = append(segments, Segment{From: cur, To: p, C1: &c1, C2: &c2})
				cur = p
			}

		case "Z":
			if started && (cur.X != start.X || cur.Y != start.Y) {
				segments = append(segments, Segment{From: cur, To: start})
			}
			cur = start
		}
	}

	return segments, nil
}

// ParsePath парсит SVG path в список точек (концы участков, без контрольных точек кривых).
func ParsePath(d string) ([]models.Point, error) {
	segments, err := ParseSegments(d)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		m := commandRe.FindStringSubmatch(strings.TrimSpace(d))
		if m == nil {
			return nil, fmt.Errorf("no path commands")
		}
		coords, err := parseCoords(m[2])
		if err != nil || len(coords) < 2 {
			return nil, fmt.Errorf("no path points")
		}
		return []models.Point{{X: coords[0], Y: coords[1]}}, nil
	}

	points := []models.Point{segments[0].From}
	for _, s := range segments {
		points = append(points, s.To)
	}
	return points, nil
}

var numberRe = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

func parseCoords(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var coords []float64
	for _, part := range numberRe.FindAllString(s, -1) {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		coords = append(coords, val)
	}
	return coords, nil
}
