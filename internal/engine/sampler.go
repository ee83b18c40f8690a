package engine

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
)

// TelemetryFetcher — то, что сэмплеру нужно от клиента бэкенда.
type TelemetryFetcher interface {
	SimulationData(ctx context.Context) (domain.TelemetryWire, error)
}

// Sampler опрашивает точку телеметрии на фиксированном интервале
// (wall-clock, без коррекции дрейфа) и ведет скользящее окно.
// Ошибка тика логируется и пропускается: ретрай — это следующий тик.
type Sampler struct {
	client   TelemetryFetcher
	vm       *ViewModel
	metrics  *Metrics
	logger   *zap.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSampler(client TelemetryFetcher, vm *ViewModel, metrics *Metrics, logger *zap.Logger, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{
		client:   client,
		vm:       vm,
		metrics:  metrics,
		logger:   logger.With(zap.String("mod", "sampler")),
		interval: interval,
	}
}

// Start запускает цикл опроса. Повторный Start без Stop — no-op.
func (s *Sampler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(runCtx)
	s.logger.Info("sampler started", zap.Duration("interval", s.interval))
}

// Stop останавливает таймер. Идемпотентен, безопасен без Start.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.logger.Info("sampler stopped")
}

func (s *Sampler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Каждый тик — независимый фетч. Если фетч переживает тик,
			// перекрытие допустимо: побеждает порядок завершения.
			go s.poll(ctx)
		}
	}
}

func (s *Sampler) poll(ctx context.Context) {
	wire, err := s.client.SimulationData(ctx)
	if err != nil {
		// Без ретрая внутри тика: следующий тик и есть ретрай
		s.metrics.SampleTicks.WithLabelValues("error").Inc()
		s.logger.Warn("telemetry tick failed", zap.Error(err))
		return
	}

	// Страховка от дописывания после Stop(): завершенный контекст
	// означает, что сессия уже закрыта
	if ctx.Err() != nil {
		return
	}

	sample := wire.Sample(time.Now())
	s.vm.AppendSample(sample)
	s.metrics.SampleTicks.WithLabelValues("ok").Inc()
	s.metrics.WindowFill.Set(float64(len(s.vm.Snapshot().Window)))
}
