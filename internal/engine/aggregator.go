package engine

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AnalyticsAPI — пять независимых ресурсов, которые сливает агрегатор.
type AnalyticsAPI interface {
	AnalyticsSummary(ctx context.Context) (domain.AnalyticsSummary, error)
	AnalyticsTrends(ctx context.Context) ([]domain.TrendPoint, error)
	Topology(ctx context.Context) (domain.Topology, error)
	Tickets(ctx context.Context) ([]domain.Ticket, error)
	RiskAssessment(ctx context.Context) (domain.RiskAssessment, error)
}

// Aggregator выполняет пятистороннюю параллельную выборку аналитики.
// Это merge, а не атомарный swap: каждый ресурс оценивается независимо,
// успешный замещает свой слот во ViewModel, упавший оставляет прежний
// снимок нетронутым. Порядок завершения пятерки не гарантирован и не важен.
type Aggregator struct {
	api     AnalyticsAPI
	guard   *backend.ReliabilityWrapper
	vm      *ViewModel
	metrics *Metrics
	logger  *zap.Logger
	timeout time.Duration

	// Коалесинг: N быстрых триггеров во время бегущего рефреша
	// схлопываются ровно в один догоняющий прогон. Контекст последнего
	// триггера запоминаем: догоняющий прогон идет от имени СВЕЖЕГО
	// поколения сессии, даже если бегущий стартовал от уже погашенного.
	mu         sync.Mutex
	inFlight   bool
	pending    bool
	pendingCtx context.Context
}

func NewAggregator(api AnalyticsAPI, guard *backend.ReliabilityWrapper, vm *ViewModel, metrics *Metrics, logger *zap.Logger, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		api:     api,
		guard:   guard,
		vm:      vm,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "aggregator")),
		timeout: timeout,
	}
}

// RequestRefresh — неблокирующий сигнал "нужен рефреш".
// Безопасен из любого обработчика: алерт пришел — дернули и забыли.
func (a *Aggregator) RequestRefresh(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight {
		a.pending = true
		a.pendingCtx = ctx
		return
	}
	a.inFlight = true
	go a.runLoop(ctx)
}

func (a *Aggregator) runLoop(ctx context.Context) {
	for {
		a.Refresh(ctx)

		a.mu.Lock()
		if !a.pending {
			a.inFlight = false
			a.mu.Unlock()
			return
		}
		a.pending = false
		ctx = a.pendingCtx
		a.pendingCtx = nil
		a.mu.Unlock()
	}
}

// Refresh — синхронный пятисторонний фетч. Ошибка одного ресурса не
// влияет на остальные четыре и никогда не всплывает оператору как
// блокирующая: худший случай — прежний (или пустой) снимок.
func (a *Aggregator) Refresh(ctx context.Context) {
	g := new(errgroup.Group)

	g.Go(func() error {
		return a.fetch(ctx, "summary", func(ctx context.Context) error {
			out, err := a.api.AnalyticsSummary(ctx)
			if err != nil {
				return err
			}
			a.vm.SetSummary(out)
			return nil
		})
	})

	g.Go(func() error {
		return a.fetch(ctx, "trends", func(ctx context.Context) error {
			out, err := a.api.AnalyticsTrends(ctx)
			if err != nil {
				return err
			}
			a.vm.SetTrends(out)
			return nil
		})
	})

	g.Go(func() error {
		return a.fetch(ctx, "topology", func(ctx context.Context) error {
			out, err := a.api.Topology(ctx)
			if err != nil {
				return err
			}
			a.vm.SetTopology(out)
			return nil
		})
	})

	g.Go(func() error {
		return a.fetch(ctx, "tickets", func(ctx context.Context) error {
			out, err := a.api.Tickets(ctx)
			if err != nil {
				return err
			}
			a.vm.SetTickets(out)
			return nil
		})
	})

	g.Go(func() error {
		return a.fetch(ctx, "risk", func(ctx context.Context) error {
			out, err := a.api.RiskAssessment(ctx)
			if err != nil {
				return err
			}
			a.vm.SetRisk(out)
			return nil
		})
	})

	// Wait без отмены собратьев: изоляция частичных отказов важнее
	// ранней остановки. Сама ошибка уже залогирована по месту.
	_ = g.Wait()
}

// fetch прогоняет один ресурс через цепочку защиты и фиксирует исход.
func (a *Aggregator) fetch(ctx context.Context, resource string, op func(ctx context.Context) error) error {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.guard.Do(fetchCtx, op)
	if err != nil {
		a.metrics.RefreshFetches.WithLabelValues(resource, "error").Inc()
		a.logger.Warn("analytics fetch failed, keeping previous snapshot",
			zap.String("resource", resource), zap.Error(err))
		return err
	}
	a.metrics.RefreshFetches.WithLabelValues(resource, "ok").Inc()
	return nil
}
