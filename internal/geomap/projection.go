// Package geomap вычисляет состояние отрисовки геопространственной
// схемы сети. Чистая функция: топология + текущий алерт + риски +
// режим просмотра на входе, готовые стили фич на выходе. Пиксели
// рисует фронтенд, мы отдаем нормализованную модель.
package geomap

import (
	"strings"

	"github.com/xela07ax/pipewatch-console/internal/domain"
)

// Палитра совпадает с фронтендом (tailwind-цвета дашборда).
const (
	ColorSegmentNormal = "#3b82f6" // синий, спокойный участок
	ColorAlert         = "#ef4444" // красный
	ColorRiskWarning   = "#f97316" // оранжевый
	ColorRiskHealthy   = "#10b981" // зеленый

	weightNormal  = 6
	weightAlerted = 10
)

// FeatureKind — тип фичи в терминах сети, а не геометрии.
type FeatureKind string

const (
	KindNode    FeatureKind = "node"    // Point
	KindSegment FeatureKind = "segment" // LineString
)

// RenderState — готовое состояние отрисовки одной фичи.
type RenderState struct {
	Kind        FeatureKind       `json:"kind"`
	ID          string            `json:"id"`
	Coordinates interface{}       `json:"coordinates"`
	Alerted     bool              `json:"alerted"`
	Color       string            `json:"color,omitempty"`
	Weight      int               `json:"weight,omitempty"`
	Dashed      bool              `json:"dashed"`
	Risk        domain.RiskStatus `json:"risk,omitempty"`
}

// Project — проекция карты для текущего кадра.
// currentAlert берется самым свежим из журнала (nil — алертов нет).
// Неизвестные типы геометрии молча пропускаются: это не ошибка.
func Project(topology domain.Topology, currentAlert *domain.Alert, risk domain.RiskAssessment, mode domain.ViewMode) []RenderState {
	out := make([]RenderState, 0, len(topology.Features))

	location := ""
	if currentAlert != nil {
		location = currentAlert.Location
	}

	for _, f := range topology.Features {
		switch f.Geometry.Type {
		case domain.GeometryPoint:
			out = append(out, projectNode(f, location))
		case domain.GeometryLineString:
			out = append(out, projectSegment(f, location, risk, mode))
		}
	}
	return out
}

func projectNode(f domain.GeoFeature, location string) RenderState {
	return RenderState{
		Kind:        KindNode,
		ID:          f.Properties.ID,
		Coordinates: f.Geometry.Coordinates,
		Alerted:     nodeMatchesAlert(location, f.Properties.ID),
	}
}

func projectSegment(f domain.GeoFeature, location string, risk domain.RiskAssessment, mode domain.ViewMode) RenderState {
	segmentID := f.Properties.Segment
	alerted := segmentMatchesAlert(location, segmentID)

	state := RenderState{
		Kind:        KindSegment,
		ID:          segmentID,
		Coordinates: f.Geometry.Coordinates,
		Alerted:     alerted,
		Color:       ColorSegmentNormal,
		Weight:      weightNormal,
	}

	if mode == domain.ViewRisk {
		// Риск-оверлей: цвет только от категории риска,
		// текущий алерт на него не влияет
		status := risk[segmentID].Status
		state.Risk = status
		switch status {
		case domain.RiskCritical:
			state.Color = ColorAlert
		case domain.RiskWarning:
			state.Color = ColorRiskWarning
		default:
			state.Color = ColorRiskHealthy
		}
		return state
	}

	if alerted {
		state.Color = ColorAlert
		state.Weight = weightAlerted
		state.Dashed = true
	}
	return state
}

// Два РАЗНЫХ правила сопоставления — это наблюдаемый контракт,
// их нельзя унифицировать.

// nodeMatchesAlert: локация алерта — дефисный составной идентификатор
// ("N1-N2"); узел задет, если его id входит в НАБОР токенов.
func nodeMatchesAlert(location, nodeID string) bool {
	if location == "" || nodeID == "" {
		return false
	}
	for _, token := range strings.Split(location, "-") {
		if token == nodeID {
			return true
		}
	}
	return false
}

// segmentMatchesAlert: участок задет только при ТОЧНОМ совпадении всей
// строки локации с id сегмента (не токенное членство, как у узлов).
func segmentMatchesAlert(location, segmentID string) bool {
	return segmentID != "" && location == segmentID
}
