package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ============================================================
// XML Structures
// ============================================================

type SVG struct {
	XMLName xml.Name `xml:"svg"`
	Rects   []Rect   `xml:"rect"`
	Paths   []Path   `xml:"path"`
	Groups  []Group  `xml:"g"`
}

// Group: <g>; редакторы часто кладут слои плана в группы.
type Group struct {
	ID     string  `xml:"id,attr"`
	Rects  []Rect  `xml:"rect"`
	Paths  []Path  `xml:"path"`
	Groups []Group `xml:"g"`
}

type Rect struct {
	ID     string  `xml:"id,attr"`
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type Path struct {
	ID          string `xml:"id,attr"`
	D           string `xml:"d,attr"`
	StrokeWidth string `xml:"stroke-width,attr"`
}

// ============================================================
// Elements
// ============================================================

type ElementKind string

const (
	KindWall     ElementKind = "wall"
	KindHalfWall ElementKind = "half_wall"
	KindBalcony  ElementKind = "balcony"
	KindGlass    ElementKind = "glass_wall"
	KindDoor     ElementKind = "door"
	KindWindow   ElementKind = "window"
	KindVent     ElementKind = "vent"
	KindRoom     ElementKind = "room"
)

// Element: классифицированный элемент плана. Label заполняется только у подписей комнат.
type Element struct {
	ID       string
	Kind     ElementKind
	Label    string
	Geometry any
}

type RectGeometry struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type PathGeometry struct {
	D           string
	StrokeWidth float64
}

// IsWall сообщает, задает ли элемент стену (любого типа).
func (e Element) IsWall() bool {
	switch e.Kind {
	case KindWall, KindHalfWall, KindBalcony, KindGlass:
		return true
	}
	return false
}

// ============================================================
// Parser
// ============================================================

func ParseSVG(r io.Reader) ([]Element, error) {
	var svg SVG
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&svg); err != nil {
		return nil, fmt.Errorf("decode svg: %w", err)
	}

	var elements []Element
	elements = appendRects(elements, svg.Rects)
	elements = appendPaths(elements, svg.Paths)
	for _, g := range svg.Groups {
		elements = appendGroup(elements, g)
	}
	return elements, nil
}

func appendGroup(elements []Element, g Group) []Element {
	elements = appendRects(elements, g.Rects)
	elements = appendPaths(elements, g.Paths)
	for _, child := range g.Groups {
		elements = appendGroup(elements, child)
	}
	return elements
}

func appendRects(elements []Element, rects []Rect) []Element {
	for _, rect := range rects {
		kind, label := classifyElementByID(rect.ID)
		if kind == "" {
			continue
		}
		elements = append(elements, Element{
			ID:    rect.ID,
			Kind:  kind,
			Label: label,
			Geometry: RectGeometry{
				X:      rect.X,
				Y:      rect.Y,
				Width:  rect.Width,
				Height: rect.Height,
			},
		})
	}
	return elements
}

func appendPaths(elements []Element, paths []Path) []Element {
	for _, path := range paths {
		kind, label := classifyElementByID(path.ID)
		if kind == "" {
			continue
		}
		stroke, _ := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(path.StrokeWidth), "px"), 64)
		elements = append(elements, Element{
			ID:    path.ID,
			Kind:  kind,
			Label: label,
			Geometry: PathGeometry{
				D:           path.D,
				StrokeWidth: stroke,
			},
		})
	}
	return elements
}

// classifyElementByID определяет тип по префиксу id. Для Room_<NAME> возвращает имя комнаты.
func classifyElementByID(id string) (ElementKind, string) {
	switch {
	case strings.HasPrefix(id, "Half_Wall_"):
		return KindHalfWall, ""
	case strings.HasPrefix(id, "Glass_Wall_"):
		return KindGlass, ""
	case strings.HasPrefix(id, "Wall_"):
		return KindWall, ""
	case strings.HasPrefix(id, "Balcony_"):
		return KindBalcony, ""
	case strings.HasPrefix(id, "Door_"):
		return KindDoor, ""
	case strings.HasPrefix(id, "Window_"):
		return KindWindow, ""
	case strings.HasPrefix(id, "Vent_"):
		return KindVent, ""
	case strings.HasPrefix(id, "Room_"):
		return KindRoom, roomLabel(strings.TrimPrefix(id, "Room_"))
	}
	return "", ""
}

// roomLabel: "Room_MUTFAK_2" → "MUTFAK". Числовой хвост: номер копии в редакторе.
func roomLabel(raw string) string {
	parts := strings.Split(raw, "_")
	for len(parts) > 1 {
		if _, err := strconv.Atoi(parts[len(parts)-1]); err != nil {
			break
		}
		parts = parts[:len(parts)-1]
	}
	return strings.ToUpper(strings.Join(parts, " "))
}
