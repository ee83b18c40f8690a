package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
)

// StreamState — состояние конечного автомата push-канала.
type StreamState string

const (
	StreamDisconnected StreamState = "disconnected"
	StreamConnecting   StreamState = "connecting"
	StreamConnected    StreamState = "connected"
)

// RefreshTrigger — сигнал "нужен рефреш аналитики" (fire-and-forget).
// Реализуется агрегатором; ошибки рефреша не влияют на доставку алертов.
type RefreshTrigger interface {
	RequestRefresh(ctx context.Context)
}

// StreamClient держит постоянное push-соединение /ws/alerts.
// Жизненный цикл: Disconnected -> Connecting -> Connected -> (обрыв) ->
// Disconnected -> пауза 3с -> Connecting -> ... и так бесконечно, без
// роста бэкоффа и лимита попыток: предполагаем, что бэкенд вернется.
// Stop() гасит канал через отмену контекста сессии и принудительное
// закрытие сокета — отмененный контекст не даст протухшему таймеру
// реанимировать закрытую сессию.
type StreamClient struct {
	url     string
	dialer  *websocket.Dialer
	vm      *ViewModel
	refresh RefreshTrigger
	metrics *Metrics
	logger  *zap.Logger
	delay   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	conn   *websocket.Conn
}

func NewStreamClient(url string, vm *ViewModel, refresh RefreshTrigger, metrics *Metrics, logger *zap.Logger, delay time.Duration) *StreamClient {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &StreamClient{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		vm:      vm,
		refresh: refresh,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "alert-stream")),
		delay:   delay,
	}
}

// Start запускает цикл подключения. Повторный Start без Stop — no-op.
func (c *StreamClient) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.run(runCtx)
}

// Stop принудительно закрывает сокет и подавляет запланированный реконнект.
// Идемпотентен.
func (c *StreamClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	if c.conn != nil {
		// Разблокируем застрявший ReadMessage
		c.conn.Close()
		c.conn = nil
	}
	c.vm.setStreamState(StreamDisconnected)
	c.logger.Info("alert stream stopped")
}

// run — "живучий" цикл в духе подписки на сигналы:
// подключение, вычитка до обрыва, фиксированная пауза, заново.
func (c *StreamClient) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		c.vm.setStreamState(StreamConnecting)
		c.metrics.ConnectAttempts.Inc()

		conn, resp, err := c.dialer.DialContext(ctx, c.url, http.Header{})
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			c.vm.setStreamState(StreamDisconnected)
			c.logger.Warn("alert stream dial failed", zap.Error(err))
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		stopped := ctx.Err() != nil
		if stopped {
			// Stop() успел пройти между рукопожатием и регистрацией
			// сокета: ему нечего было закрывать, закрываем сами
			c.conn = nil
		}
		c.mu.Unlock()
		if stopped {
			conn.Close()
			return
		}

		c.vm.setStreamState(StreamConnected)
		c.logger.Info("alert stream connected", zap.String("url", c.url))

		c.readLoop(ctx, conn)

		// Обрыв по любой причине — локально восстанавливаемся сами,
		// оператору это не ошибка
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		c.vm.setStreamState(StreamDisconnected)
		if !c.sleep(ctx) {
			return
		}
	}
}

// readLoop вычитывает сообщения до первого сетевого сбоя.
func (c *StreamClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("alert stream closed", zap.Error(err))
			}
			return
		}

		// Битый payload — отбрасываем с логом, состояние канала не меняем
		var alert domain.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			c.metrics.AlertsDropped.Inc()
			c.logger.Error("malformed alert payload dropped", zap.Error(err))
			continue
		}
		if alert.Timestamp.IsZero() {
			alert.Timestamp = time.Now()
		}
		alert.Severity = alert.Severity.Normalize()

		// ReadMessage не знает про контекст: живой сокет может отдать
		// сообщение уже после закрытия сессии — его не применяем
		if ctx.Err() != nil {
			return
		}

		c.vm.PrependAlert(alert)
		c.metrics.AlertsReceived.Inc()
		c.metrics.AlertLogFill.Set(float64(len(c.vm.Snapshot().Alerts)))
		c.logger.Info("alert received",
			zap.String("id", alert.ID.String()),
			zap.String("severity", string(alert.Severity)),
			zap.String("location", alert.Location))

		// Каждый валидный алерт перезапрашивает аналитику (fire-and-forget)
		c.refresh.RequestRefresh(ctx)
	}
}

// sleep ждет фиксированную паузу реконнекта; false — сессия закрыта.
func (c *StreamClient) sleep(ctx context.Context) bool {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
