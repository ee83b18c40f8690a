package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"github.com/xela07ax/pipewatch-console/internal/engine"
	"go.uber.org/zap"
)

type staticActions struct{}

func (staticActions) EligibleActions(alertID domain.FlexID) []string {
	return []string{"create"}
}

func newDashboardFixture() (*DashboardHandler, *engine.ViewModel) {
	vm := engine.NewViewModel(30, 10)
	return NewDashboardHandler(vm, staticActions{}, zap.NewNop()), vm
}

func TestSnapshotIncludesStatsAndActions(t *testing.T) {
	h, vm := newDashboardFixture()
	vm.AppendSample(domain.TelemetrySample{Pressure: 3.9, FlowRate: 115, Mode: domain.ModeNormal, Timestamp: time.Now()})
	vm.AppendSample(domain.TelemetrySample{Pressure: 4.1, FlowRate: 118, Mode: domain.ModeNormal, Timestamp: time.Now()})
	vm.PrependAlert(domain.Alert{ID: "7", Severity: domain.SeverityMajor, Location: "S1"})

	rec := httptest.NewRecorder()
	h.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Window []domain.TelemetrySample `json:"window"`
		Alerts []domain.Alert           `json:"alerts"`
		Stats  struct {
			Pressure float64 `json:"pressure"`
			FlowRate float64 `json:"flow_rate"`
		} `json:"stats"`
		EligibleActions map[string][]string `json:"eligible_actions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Len(t, body.Window, 2)
	// Карточки статов — последняя точка окна
	assert.Equal(t, 4.1, body.Stats.Pressure)
	assert.Equal(t, []string{"create"}, body.EligibleActions["7"])
}

func TestSnapshotOnEmptyState(t *testing.T) {
	h, _ := newDashboardFixture()
	rec := httptest.NewRecorder()
	h.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMapWithoutTopology(t *testing.T) {
	h, _ := newDashboardFixture()
	rec := httptest.NewRecorder()
	h.GetMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ViewMode domain.ViewMode   `json:"view_mode"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.ViewLive, body.ViewMode)
	assert.Empty(t, body.Features)
}

func TestGetMapProjectsCurrentAlert(t *testing.T) {
	h, vm := newDashboardFixture()

	var seg domain.GeoFeature
	seg.Geometry.Type = domain.GeometryLineString
	seg.Properties.Segment = "N1-N2"
	vm.SetTopology(domain.Topology{Features: []domain.GeoFeature{seg}})
	vm.PrependAlert(domain.Alert{ID: "1", Location: "N1-N2"})

	rec := httptest.NewRecorder()
	h.GetMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	var body struct {
		Features []struct {
			ID      string `json:"id"`
			Alerted bool   `json:"alerted"`
			Dashed  bool   `json:"dashed"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Features, 1)
	assert.True(t, body.Features[0].Alerted)
	assert.True(t, body.Features[0].Dashed)
}

func TestSetViewMode(t *testing.T) {
	h, vm := newDashboardFixture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/view-mode", strings.NewReader(`{"mode": "risk"}`))
	h.SetViewMode(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ViewRisk, vm.Snapshot().ViewMode)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/view-mode", strings.NewReader(`{"mode": "satellite"}`))
	h.SetViewMode(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Отклоненный режим не перезаписал текущий
	assert.Equal(t, domain.ViewRisk, vm.Snapshot().ViewMode)
}
