package backend

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ReliabilityWrapper защищает идемпотентные GET-вызовы агрегатора:
// Rate Limiter -> Circuit Breaker -> Retry. Сэмплер им НЕ пользуется:
// для тика опроса повтор — это следующий тик, а не ретрай внутри тика.
type ReliabilityWrapper struct {
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewReliabilityWrapper настраивает предохранитель.
// onStateChange опционален — движок вешает сюда прометеевский gauge.
func NewReliabilityWrapper(onStateChange func(from, to gobreaker.State)) *ReliabilityWrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pipewatch-backend",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onStateChange != nil {
				onStateChange(from, to)
			}
		},
	})

	// Пять ресурсов на refresh + хвост от прошлых — 20 rps за глаза
	limiter := rate.NewLimiter(rate.Limit(20), 10)

	return &ReliabilityWrapper{cb: cb, limiter: limiter}
}

// Do прогоняет операцию через всю цепочку защиты.
// Ошибки StatusError с кодом 4xx не ретраим: повтор не изменит ответ сервера.
func (w *ReliabilityWrapper) Do(ctx context.Context, op func(ctx context.Context) error) error {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: "rate-limit", Cause: err}
	}

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(2),
			retry.RetryIf(func(err error) bool {
				var statusErr *StatusError
				if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
					return false
				}
				return true
			}),
		)
		return nil, r.Do(func() error {
			return op(ctx)
		})
	})
	return err
}
