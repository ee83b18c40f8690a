package geomap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/pipewatch-console/internal/domain"
)

func node(id string) domain.GeoFeature {
	var f domain.GeoFeature
	f.Geometry.Type = domain.GeometryPoint
	f.Geometry.Coordinates = []float64{30.1, 59.9}
	f.Properties.ID = id
	return f
}

func segment(id string) domain.GeoFeature {
	var f domain.GeoFeature
	f.Geometry.Type = domain.GeometryLineString
	f.Geometry.Coordinates = [][]float64{{30.1, 59.9}, {30.2, 59.8}}
	f.Properties.Segment = id
	return f
}

func testTopology() domain.Topology {
	return domain.Topology{Features: []domain.GeoFeature{
		node("N1"), node("N2"), node("N3"),
		segment("N1-N2"), segment("N2-N3"),
	}}
}

func byID(t *testing.T, states []RenderState, id string) RenderState {
	t.Helper()
	for _, s := range states {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("feature %s not projected", id)
	return RenderState{}
}

func TestProjectQuietNetwork(t *testing.T) {
	states := Project(testTopology(), nil, nil, domain.ViewLive)
	require.Len(t, states, 5)

	for _, s := range states {
		assert.False(t, s.Alerted, s.ID)
		assert.False(t, s.Dashed, s.ID)
	}
	seg := byID(t, states, "N1-N2")
	assert.Equal(t, ColorSegmentNormal, seg.Color)
	assert.Equal(t, 6, seg.Weight)
}

func TestProjectLiveAlertHighlight(t *testing.T) {
	alert := &domain.Alert{ID: "1", Location: "N1-N2"}
	states := Project(testTopology(), alert, nil, domain.ViewLive)

	// Узлы матчатся по членству в наборе токенов локации
	assert.True(t, byID(t, states, "N1").Alerted)
	assert.True(t, byID(t, states, "N2").Alerted)
	assert.False(t, byID(t, states, "N3").Alerted)

	// Сегмент — только по точному совпадению всей строки
	hit := byID(t, states, "N1-N2")
	assert.True(t, hit.Alerted)
	assert.Equal(t, ColorAlert, hit.Color)
	assert.Equal(t, 10, hit.Weight)
	assert.True(t, hit.Dashed)

	miss := byID(t, states, "N2-N3")
	assert.False(t, miss.Alerted)
	assert.Equal(t, ColorSegmentNormal, miss.Color)
}

func TestNodeAndSegmentMatchingAreAsymmetric(t *testing.T) {
	// Локация — одиночный узел: сегмент "N2-N3" содержит "N2" как
	// токен, но сегментное правило требует точного равенства строки
	alert := &domain.Alert{ID: "1", Location: "N2"}
	states := Project(testTopology(), alert, nil, domain.ViewLive)

	assert.True(t, byID(t, states, "N2").Alerted)
	assert.False(t, byID(t, states, "N1-N2").Alerted)
	assert.False(t, byID(t, states, "N2-N3").Alerted)
}

func TestProjectRiskOverlayIgnoresLiveAlert(t *testing.T) {
	alert := &domain.Alert{ID: "1", Location: "N1-N2"}
	risk := domain.RiskAssessment{
		"N1-N2": {Status: domain.RiskNormal},
		"N2-N3": {Status: domain.RiskCritical},
	}
	states := Project(testTopology(), alert, risk, domain.ViewRisk)

	// Риск-оверлей красит по категории риска, живой алерт не влияет
	calm := byID(t, states, "N1-N2")
	assert.Equal(t, ColorRiskHealthy, calm.Color)
	assert.Equal(t, domain.RiskNormal, calm.Risk)

	hot := byID(t, states, "N2-N3")
	assert.Equal(t, ColorAlert, hot.Color)
	assert.Equal(t, domain.RiskCritical, hot.Risk)
}

func TestProjectRiskWarningAndMissingEntries(t *testing.T) {
	risk := domain.RiskAssessment{"N1-N2": {Status: domain.RiskWarning}}
	states := Project(testTopology(), nil, risk, domain.ViewRisk)

	assert.Equal(t, ColorRiskWarning, byID(t, states, "N1-N2").Color)
	// Сегмент без записи в оценке рисков считается здоровым
	assert.Equal(t, ColorRiskHealthy, byID(t, states, "N2-N3").Color)
}

func TestProjectSkipsUnknownGeometry(t *testing.T) {
	var exotic domain.GeoFeature
	exotic.Geometry.Type = "MultiPolygon"

	topo := domain.Topology{Features: []domain.GeoFeature{node("N1"), exotic}}
	states := Project(topo, nil, nil, domain.ViewLive)
	require.Len(t, states, 1)
	assert.Equal(t, KindNode, states[0].Kind)
}
