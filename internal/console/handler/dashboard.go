package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/xela07ax/pipewatch-console/internal/domain"
	"github.com/xela07ax/pipewatch-console/internal/engine"
	"github.com/xela07ax/pipewatch-console/internal/geomap"
	"go.uber.org/zap"
)

// ActionResolver вычисляет доступные оператору действия по алерту.
type ActionResolver interface {
	EligibleActions(alertID domain.FlexID) []string
}

type DashboardHandler struct {
	vm      *engine.ViewModel
	actions ActionResolver
	logger  *zap.Logger
}

func NewDashboardHandler(vm *engine.ViewModel, actions ActionResolver, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{vm: vm, actions: actions, logger: logger.Named("dashboard-api")}
}

// currentStats — верхние карточки дашборда: последняя точка телеметрии.
type currentStats struct {
	Pressure float64               `json:"pressure"`
	FlowRate float64               `json:"flow_rate"`
	Mode     domain.SimulationMode `json:"mode"`
	At       *time.Time            `json:"at,omitempty"`
}

type snapshotResponse struct {
	engine.Snapshot
	Stats           currentStats        `json:"stats"`
	EligibleActions map[string][]string `json:"eligible_actions"`
}

// GetSnapshot отдает полный снимок view model плюс производные данные
// для рендера: текущие показатели и доступные действия по каждому алерту.
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.vm.Snapshot()

	resp := snapshotResponse{
		Snapshot:        snap,
		EligibleActions: make(map[string][]string, len(snap.Alerts)),
	}
	if n := len(snap.Window); n > 0 {
		last := snap.Window[n-1]
		resp.Stats = currentStats{
			Pressure: last.Pressure,
			FlowRate: last.FlowRate,
			Mode:     last.Mode,
			At:       &last.Timestamp,
		}
	}
	for _, alert := range snap.Alerts {
		resp.EligibleActions[alert.ID.String()] = h.actions.EligibleActions(alert.ID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetMap отдает просчитанную проекцию карты для текущего режима.
// Пока топология не загружена — пустой список фич, не ошибка.
func (h *DashboardHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	snap := h.vm.Snapshot()

	var topology domain.Topology
	if snap.Topology != nil {
		topology = *snap.Topology
	}
	var current *domain.Alert
	if len(snap.Alerts) > 0 {
		current = &snap.Alerts[0]
	}

	features := geomap.Project(topology, current, snap.Risk, snap.ViewMode)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"view_mode": snap.ViewMode,
		"features":  features,
	})
}

// SetViewMode переключает live/risk. Окно, журнал и тикеты не трогаются.
func (h *DashboardHandler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode domain.ViewMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !h.vm.SetViewMode(req.Mode) {
		http.Error(w, "view mode must be 'live' or 'risk'", http.StatusBadRequest)
		return
	}
	h.logger.Debug("view mode switched", zap.String("mode", string(req.Mode)))
	writeJSON(w, http.StatusOK, map[string]domain.ViewMode{"view_mode": req.Mode})
}
