package engine

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/infra"
	"go.uber.org/zap"
)

// Engine — сборка ядра синхронизации состояния: один ViewModel и
// компоненты, которые его наполняют. Жизненным циклом управляет
// Session Gate: старт сессии поднимает сэмплер и push-канал и делает
// первичный рефреш аналитики, логаут все это гасит.
type Engine struct {
	VM         *ViewModel
	Sampler    *Sampler
	Stream     *StreamClient
	Aggregator *Aggregator
	Tickets    *TicketManager
	Modes      *ModeController
	Metrics    *Metrics

	logger *zap.Logger
}

// New собирает движок поверх готового клиента бэкенда.
func New(cfg *infra.Config, client *backend.Client, rdb *redis.Client, metrics *Metrics, logger *zap.Logger) *Engine {
	vm := NewViewModel(cfg.Engine.WindowSize, cfg.Engine.AlertLogSize)

	// Идемпотентные GET-ы аналитики ходят через цепочку защиты;
	// состояние предохранителя выносим в метрику
	guard := backend.NewReliabilityWrapper(func(_, to gobreaker.State) {
		if to == gobreaker.StateOpen {
			metrics.CircuitBreakerState.Set(1)
		} else {
			metrics.CircuitBreakerState.Set(0)
		}
	})

	aggregator := NewAggregator(client, guard, vm, metrics, logger, cfg.Backend.FetchTimeout)

	return &Engine{
		VM:         vm,
		Sampler:    NewSampler(client, vm, metrics, logger, cfg.Engine.PollInterval),
		Stream:     NewStreamClient(client.AlertsStreamURL(), vm, aggregator, metrics, logger, cfg.Engine.ReconnectDelay),
		Aggregator: aggregator,
		Tickets:    NewTicketManager(client, vm, metrics, logger),
		Modes:      NewModeController(client, vm, rdb, logger),
		Metrics:    metrics,
		logger:     logger.Named("engine"),
	}
}

// startComponents поднимает фоновые циклы текущего поколения сессии.
func (e *Engine) startComponents(ctx context.Context) {
	e.Sampler.Start(ctx)
	e.Stream.Start(ctx)
	// Первичная загрузка аналитики — тем же коалесируемым сигналом,
	// что и рефреш по алерту
	e.Aggregator.RequestRefresh(ctx)
	e.logger.Info("engine components started")
}

// stopComponents останавливает фоновые циклы. Идемпотентен.
func (e *Engine) stopComponents() {
	e.Sampler.Stop()
	e.Stream.Stop()
	e.logger.Info("engine components stopped")
}

// Shutdown гасит фоновые циклы при выключении процесса. В отличие от
// Session.Clear сессию не закрывает: токен остается в хранилище.
func (e *Engine) Shutdown() {
	e.stopComponents()
}
