package models

import (
	"math"

	"github.com/paulmach/orb"
)

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

func FromOrb(p orb.Point) Point {
	return Point{X: p[0], Y: p[1]}
}

func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Interval: отрезок вдоль стены, в единицах расстояния от p1.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (i Interval) Length() float64 {
	return i.End - i.Start
}

func (i Interval) Contains(v float64) bool {
	return v >= i.Start && v <= i.End
}

// ============================================================
// Wall graph
// ============================================================

type NodeID int

type WallID int

type Node struct {
	ID NodeID  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (n Node) Point() Point {
	return Point{X: n.X, Y: n.Y}
}

type WallType string

const (
	WallNormal  WallType = "normal"
	WallHalf    WallType = "half"
	WallBalcony WallType = "balcony"
	WallGlass   WallType = "glass"
)

type Wall struct {
	ID          WallID   `json:"id"`
	P1          NodeID   `json:"p1"`
	P2          NodeID   `json:"p2"`
	Thickness   float64  `json:"thickness"`
	Type        WallType `json:"wallType"`
	FloorID     string   `json:"floorId"`
	IsArc       bool     `json:"isArc"`
	ArcControl1 *Point   `json:"arcControl1,omitempty"`
	ArcControl2 *Point   `json:"arcControl2,omitempty"`
}

// EndMargin: минимальный отступ проема от торцов стены (UM).
func (w Wall) EndMargin() float64 {
	return w.Thickness/2 + EndClearanceExtra
}

// ResolvedWall: стена вместе с координатами ее узлов.
type ResolvedWall struct {
	Wall
	A Point `json:"a"`
	B Point `json:"b"`
}

func (w ResolvedWall) Length() float64 {
	return math.Hypot(w.B.X-w.A.X, w.B.Y-w.A.Y)
}

func (w ResolvedWall) IsDegenerate() bool {
	if !w.A.IsFinite() || !w.B.IsFinite() {
		return true
	}
	return w.Length() < MinWallLength
}

// ============================================================
// Openings
// ============================================================

type OpeningID int

type OpeningKind string

const (
	KindDoor   OpeningKind = "door"
	KindWindow OpeningKind = "window"
	KindVent   OpeningKind = "vent"
)

type Opening struct {
	ID                 OpeningID   `json:"id"`
	Kind               OpeningKind `json:"kind"`
	WallID             WallID      `json:"wallId"`
	Pos                float64     `json:"pos"`
	Width              float64     `json:"width"`
	IsWidthManuallySet bool        `json:"isWidthManuallySet"`
	FloorID            string      `json:"floorId"`
	RoomName           string      `json:"roomName,omitempty"`
}

// Span: интервал, занимаемый проемом на стене (без зазора).
func (o Opening) Span() Interval {
	return Interval{Start: o.Pos - o.Width/2, End: o.Pos + o.Width/2}
}

// ============================================================
// Rooms
// ============================================================

type Room struct {
	ID           string      `json:"id"`
	Polygon      orb.Polygon `json:"polygon"`
	Area         float64     `json:"area"`
	Center       Point       `json:"center"`
	Name         string      `json:"name"`
	CenterOffset Point       `json:"centerOffset"`
	FloorID      string      `json:"floorId"`
}
