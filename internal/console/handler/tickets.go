package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"github.com/xela07ax/pipewatch-console/internal/engine"
	"go.uber.org/zap"
)

// TicketService — операции жизненного цикла тикетов.
type TicketService interface {
	CreateTicket(ctx context.Context, alertID domain.FlexID, notes string) (domain.Ticket, error)
	Transition(ctx context.Context, ticketID domain.FlexID, newStatus string) error
}

type TicketHandler struct {
	service TicketService
	logger  *zap.Logger
}

func NewTicketHandler(service TicketService, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{service: service, logger: logger.Named("ticket-api")}
}

// Create — POST /api/v1/tickets {alert_id, notes}.
// Конфликт (тикет уже есть) отдаем 409 без похода на бэкенд.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlertID domain.FlexID `json:"alert_id"`
		Notes   string        `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AlertID == "" {
		http.Error(w, "alert_id is required", http.StatusBadRequest)
		return
	}
	if req.Notes == "" {
		req.Notes = "Created from operator console"
	}

	ticket, err := h.service.CreateTicket(r.Context(), req.AlertID, req.Notes)
	if err != nil {
		h.writeTicketError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// Transition — POST /api/v1/tickets/{id}/transition {status}.
// Недопустимый переход отсекается локально: 422 без сетевого вызова.
func (h *TicketHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ticketID := domain.FlexID(chi.URLParam(r, "id"))

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Transition(r.Context(), ticketID, req.Status); err != nil {
		h.writeTicketError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *TicketHandler) writeTicketError(w http.ResponseWriter, err error) {
	var conflictErr *engine.ConflictError
	var transitionErr *engine.InvalidTransitionError
	var statusErr *backend.StatusError

	switch {
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, domain.BackendError{Detail: conflictErr.Error()})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusUnprocessableEntity, domain.BackendError{Detail: transitionErr.Error()})
	case errors.As(err, &statusErr):
		// Сервер — финальный авторитет: его отказ транслируем как есть
		writeJSON(w, statusErr.Code, domain.BackendError{Detail: statusErr.Detail})
	default:
		h.logger.Warn("ticket operation failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, domain.BackendError{Detail: "maintenance backend unavailable"})
	}
}
