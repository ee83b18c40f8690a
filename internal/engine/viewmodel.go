package engine

import (
	"sync"

	"github.com/xela07ax/pipewatch-console/internal/domain"
)

// ViewModel — единственный агрегат состояния, который видит рендер.
// Single-writer: мутируют его только компоненты движка, и каждая мутация
// сериализована одним мьютексом. Потребители получают read-only снимки.
type ViewModel struct {
	mu sync.RWMutex

	windowCap int
	alertCap  int

	window   []domain.TelemetrySample
	alerts   []domain.Alert // most-recent-first
	tickets  []domain.Ticket
	summary  *domain.AnalyticsSummary
	trends   []domain.TrendPoint
	topology *domain.Topology
	risk     domain.RiskAssessment

	viewMode domain.ViewMode
	simMode  domain.SimulationMode
	wsState  StreamState
}

// Snapshot — read-only копия состояния для потребителей.
// Слайсы и мапа скопированы: держатель снимка не увидит последующих мутаций.
type Snapshot struct {
	Window         []domain.TelemetrySample `json:"window"`
	Alerts         []domain.Alert           `json:"alerts"`
	Tickets        []domain.Ticket          `json:"tickets"`
	Summary        *domain.AnalyticsSummary `json:"summary,omitempty"`
	Trends         []domain.TrendPoint      `json:"trends"`
	Topology       *domain.Topology         `json:"topology,omitempty"`
	Risk           domain.RiskAssessment    `json:"risk,omitempty"`
	ViewMode       domain.ViewMode          `json:"view_mode"`
	SimulationMode domain.SimulationMode    `json:"simulation_mode"`
	StreamState    StreamState              `json:"stream_state"`
}

func NewViewModel(windowCap, alertCap int) *ViewModel {
	if windowCap <= 0 {
		windowCap = 30
	}
	if alertCap <= 0 {
		alertCap = 10
	}
	return &ViewModel{
		windowCap: windowCap,
		alertCap:  alertCap,
		viewMode:  domain.ViewLive,
		simMode:   domain.ModeNormal,
		wsState:   StreamDisconnected,
	}
}

// AppendSample добавляет сэмпл в конец окна, вытесняя старейший при
// переполнении (FIFO). Порядок — порядок ЗАВЕРШЕНИЯ фетчей, не порядок
// их запуска: перекрывающиеся опросы могут дописать более ранний
// таймстемп позже. Это принятая слабая упорядоченность, не дефект.
func (vm *ViewModel) AppendSample(s domain.TelemetrySample) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.window = append(vm.window, s)
	if len(vm.window) > vm.windowCap {
		vm.window = vm.window[len(vm.window)-vm.windowCap:]
	}
}

// PrependAlert кладет алерт в голову журнала (most-recent-first),
// обрезая хвост за пределами емкости.
func (vm *ViewModel) PrependAlert(a domain.Alert) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.alerts = append([]domain.Alert{a}, vm.alerts...)
	if len(vm.alerts) > vm.alertCap {
		vm.alerts = vm.alerts[:vm.alertCap]
	}
}

// CurrentAlert — самый свежий алерт (для проекции карты).
func (vm *ViewModel) CurrentAlert() (domain.Alert, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if len(vm.alerts) == 0 {
		return domain.Alert{}, false
	}
	return vm.alerts[0], true
}

// SetTickets заменяет снимок тикетов целиком (консистентность важнее
// инкрементальных патчей — список всегда приходит с сервера полностью).
func (vm *ViewModel) SetTickets(tickets []domain.Ticket) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.tickets = tickets
}

func (vm *ViewModel) SetSummary(s domain.AnalyticsSummary) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.summary = &s
}

func (vm *ViewModel) SetTrends(points []domain.TrendPoint) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.trends = points
}

func (vm *ViewModel) SetTopology(t domain.Topology) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.topology = &t
}

func (vm *ViewModel) SetRisk(r domain.RiskAssessment) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.risk = r
}

// SetViewMode переключает режим карты. Никакие другие поля не трогаем.
func (vm *ViewModel) SetViewMode(m domain.ViewMode) bool {
	if !m.Valid() {
		return false
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.viewMode = m
	return true
}

// SetSimulationMode фиксирует ПОДТВЕРЖДЕННЫЙ бэкендом режим.
// Вызывается только после успешного round-trip (см. ModeController).
func (vm *ViewModel) SetSimulationMode(m domain.SimulationMode) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.simMode = m
}

func (vm *ViewModel) setStreamState(s StreamState) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.wsState = s
}

// Reset очищает сессионное состояние при логауте.
// Режим просмотра и подтвержденный режим симуляции переживают логаут:
// это настройки оператора, а не данные бэкенда.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.window = nil
	vm.alerts = nil
	vm.tickets = nil
	vm.summary = nil
	vm.trends = nil
	vm.topology = nil
	vm.risk = nil
	vm.wsState = StreamDisconnected
}

// Tickets — копия текущего снимка тикетов (для корреляции).
func (vm *ViewModel) Tickets() []domain.Ticket {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]domain.Ticket, len(vm.tickets))
	copy(out, vm.tickets)
	return out
}

// Snapshot отдает полную копию состояния.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	snap := Snapshot{
		Window:         make([]domain.TelemetrySample, len(vm.window)),
		Alerts:         make([]domain.Alert, len(vm.alerts)),
		Tickets:        make([]domain.Ticket, len(vm.tickets)),
		Trends:         make([]domain.TrendPoint, len(vm.trends)),
		ViewMode:       vm.viewMode,
		SimulationMode: vm.simMode,
		StreamState:    vm.wsState,
	}
	copy(snap.Window, vm.window)
	copy(snap.Alerts, vm.alerts)
	copy(snap.Tickets, vm.tickets)
	copy(snap.Trends, vm.trends)

	if vm.summary != nil {
		s := *vm.summary
		snap.Summary = &s
	}
	if vm.topology != nil {
		t := domain.Topology{Features: make([]domain.GeoFeature, len(vm.topology.Features))}
		copy(t.Features, vm.topology.Features)
		snap.Topology = &t
	}
	if vm.risk != nil {
		snap.Risk = make(domain.RiskAssessment, len(vm.risk))
		for k, v := range vm.risk {
			snap.Risk[k] = v
		}
	}
	return snap
}
