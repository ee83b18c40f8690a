package engine

import (
	"context"
	"fmt"

	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
)

// ConflictError — локальный guard: тикет для этого алерта уже есть.
// Проверка клиентская (UX), финальное слово всегда за сервером.
type ConflictError struct {
	AlertID domain.FlexID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ticket for alert %s already exists", e.AlertID)
}

// InvalidTransitionError — запрошенный переход запрещен жизненным циклом.
// Отсекается локально ДО сетевого вызова.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %q -> %q is not allowed", e.From, e.To)
}

// TicketAPI — что менеджеру нужно от клиента бэкенда техобслуживания.
type TicketAPI interface {
	Tickets(ctx context.Context) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, body domain.TicketCreateRequest) (domain.Ticket, error)
	UpdateTicket(ctx context.Context, id string, body domain.TicketUpdateRequest) (domain.Ticket, error)
}

// Возможные действия оператора по алерту (вычисляются для рендера).
const (
	ActionCreate   = "create"   // тикета еще нет
	ActionDispatch = "dispatch" // Open -> In Progress
	ActionResolve  = "resolve"  // In Progress -> Resolved
)

// TicketManager коррелирует алерты с тикетами и ведет их жизненный цикл.
// Каждая успешная мутация перечитывает ПОЛНЫЙ список с сервера вместо
// локального патча: консистентность важнее экономии round-trip'а,
// статусы server-authoritative.
type TicketManager struct {
	api     TicketAPI
	vm      *ViewModel
	metrics *Metrics
	logger  *zap.Logger
}

func NewTicketManager(api TicketAPI, vm *ViewModel, metrics *Metrics, logger *zap.Logger) *TicketManager {
	return &TicketManager{
		api:     api,
		vm:      vm,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "tickets")),
	}
}

// FindForAlert — тикет по алерту в текущем снимке. Точное строковое
// сравнение, первый найденный побеждает (id ожидаются уникальными).
func (m *TicketManager) FindForAlert(alertID domain.FlexID) (domain.Ticket, bool) {
	for _, t := range m.vm.Tickets() {
		if t.AlertID == alertID {
			return t, true
		}
	}
	return domain.Ticket{}, false
}

// EligibleActions — какие действия показывать оператору по алерту.
// Нарушение guard'а не бросается в оператора: недоступное действие
// просто не предлагается.
func (m *TicketManager) EligibleActions(alertID domain.FlexID) []string {
	ticket, ok := m.FindForAlert(alertID)
	if !ok {
		return []string{ActionCreate}
	}
	switch ticket.Status {
	case domain.TicketOpen:
		return []string{ActionDispatch}
	case domain.TicketInProgress:
		return []string{ActionResolve}
	}
	return []string{}
}

// CreateTicket создает наряд по алерту.
// ConflictError до сетевого вызова, если тикет уже есть в снимке.
func (m *TicketManager) CreateTicket(ctx context.Context, alertID domain.FlexID, notes string) (domain.Ticket, error) {
	if existing, ok := m.FindForAlert(alertID); ok {
		m.metrics.TicketMutations.WithLabelValues("create", "conflict").Inc()
		m.logger.Warn("ticket create rejected locally: already exists",
			zap.String("alert_id", alertID.String()),
			zap.String("ticket_id", existing.ID.String()))
		return domain.Ticket{}, &ConflictError{AlertID: alertID}
	}

	created, err := m.api.CreateTicket(ctx, domain.TicketCreateRequest{AlertID: alertID, Notes: notes})
	if err != nil {
		m.metrics.TicketMutations.WithLabelValues("create", "error").Inc()
		return domain.Ticket{}, err
	}
	m.metrics.TicketMutations.WithLabelValues("create", "ok").Inc()
	m.logger.Info("ticket created",
		zap.String("ticket_id", created.ID.String()),
		zap.String("alert_id", alertID.String()))

	m.resyncTickets(ctx)
	return created, nil
}

// Transition переводит тикет по статусу.
// Разрешено только Open -> In Progress и In Progress -> Resolved;
// все прочее — InvalidTransitionError без сетевого вызова.
func (m *TicketManager) Transition(ctx context.Context, ticketID domain.FlexID, newStatus string) error {
	current, ok := m.findByID(ticketID)
	if !ok {
		m.metrics.TicketMutations.WithLabelValues("transition", "not_found").Inc()
		return fmt.Errorf("ticket %s not found in current snapshot", ticketID)
	}

	if !domain.AllowedTransition(current.Status, newStatus) {
		m.metrics.TicketMutations.WithLabelValues("transition", "invalid").Inc()
		return &InvalidTransitionError{From: current.Status, To: newStatus}
	}

	if _, err := m.api.UpdateTicket(ctx, ticketID.String(), domain.TicketUpdateRequest{Status: newStatus}); err != nil {
		m.metrics.TicketMutations.WithLabelValues("transition", "error").Inc()
		return err
	}
	m.metrics.TicketMutations.WithLabelValues("transition", "ok").Inc()
	m.logger.Info("ticket transitioned",
		zap.String("ticket_id", ticketID.String()),
		zap.String("to", newStatus))

	m.resyncTickets(ctx)
	return nil
}

func (m *TicketManager) findByID(id domain.FlexID) (domain.Ticket, bool) {
	for _, t := range m.vm.Tickets() {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Ticket{}, false
}

// resyncTickets — полный refetch списка после мутации.
// Отказ refetch'а не отменяет саму мутацию: сервер уже применил ее,
// список догонит следующий рефреш агрегатора.
func (m *TicketManager) resyncTickets(ctx context.Context) {
	fresh, err := m.api.Tickets(ctx)
	if err != nil {
		m.logger.Warn("ticket list resync failed", zap.Error(err))
		return
	}
	m.vm.SetTickets(fresh)
}
