package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
)

// ModeService — команды управления симулятором.
type ModeService interface {
	SetMode(ctx context.Context, mode domain.SimulationMode) error
	Calibrate(ctx context.Context) error
}

type ModeHandler struct {
	service ModeService
	logger  *zap.Logger
}

func NewModeHandler(service ModeService, logger *zap.Logger) *ModeHandler {
	return &ModeHandler{service: service, logger: logger.Named("mode-api")}
}

// SetMode — POST /api/v1/simulation/mode/{mode}.
// Подтвержденный режим обновится только после успеха round-trip.
func (h *ModeHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	mode := domain.SimulationMode(chi.URLParam(r, "mode"))
	if !mode.Valid() {
		http.Error(w, "unknown simulation mode", http.StatusBadRequest)
		return
	}

	if err := h.service.SetMode(r.Context(), mode); err != nil {
		h.logger.Warn("mode change failed", zap.String("mode", string(mode)), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, domain.BackendError{Detail: "mode change rejected by backend"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.SimulationMode{"mode": mode})
}

// Calibrate — POST /api/v1/detection/calibrate (проброс train-simulated).
func (h *ModeHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Calibrate(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, domain.BackendError{Detail: "calibration request failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "calibration requested"})
}
