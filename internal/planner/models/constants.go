package models

import "strings"

// ============================================================
// Constants
// ============================================================

const (
	SnapRadius        = 6.0   // радиус склейки узлов при создании
	MinGap            = 0.1   // минимальный зазор между проемами
	MinItemWidth      = 20.0  // минимальная ширина проема
	MinWallLength     = 0.1   // стены короче считаются вырожденными
	EndClearanceExtra = 5.0   // добавка к половине толщины для отступа от торцов
	WallBodyTolerance = 0.1   // допуск "точка на стене"
	JointClearance    = 1.0   // точка ближе к торцу считается стыком
	ArcSamples        = 20    // число шагов дискретизации дуги
	DefaultThickness  = 20.0  // толщина стены по умолчанию
	MinRoomAreaCm2    = 1.0   // полигоны меньшей площади: шум
	CmPerM2           = 10000 // см² в м²
	EdgeMatchTol      = 1.0   // допуск сопоставления ребра комнаты со стеной
)

const (
	DefaultDoorWidth     = 70.0
	DefaultWindowWidth   = 150.0
	BathroomWindowWidth  = 50.0
	DefaultVentWidth     = 40.0
	DefaultRoomName      = "MAHAL"
	wallSnapFactor       = 2.0
	defaultCenterOffsetV = 0.5
)

var bathroomNames = []string{"BANYO", "WC", "DUŞ", "DUS", "LAVABO", "BATHROOM", "TOILET"}

// DefaultCenterOffset: якорь подписи в центре bbox.
func DefaultCenterOffset() Point {
	return Point{X: defaultCenterOffsetV, Y: defaultCenterOffsetV}
}

// SnapDistance: насколько близко к стене должен быть курсор, чтобы проем "прилип".
func SnapDistance(thickness float64) float64 {
	return thickness * wallSnapFactor
}

// IsBathroom сообщает, относится ли имя комнаты к санузлам.
func IsBathroom(roomName string) bool {
	name := strings.ToUpper(strings.TrimSpace(roomName))
	if name == "" {
		return false
	}
	for _, b := range bathroomNames {
		if strings.Contains(name, b) {
			return true
		}
	}
	return false
}

// DefaultWidth возвращает ширину проема по умолчанию.
func DefaultWidth(kind OpeningKind, roomName string) float64 {
	switch kind {
	case KindDoor:
		return DefaultDoorWidth
	case KindWindow:
		if IsBathroom(roomName) {
			return BathroomWindowWidth
		}
		return DefaultWindowWidth
	case KindVent:
		return DefaultVentWidth
	}
	return DefaultDoorWidth
}
