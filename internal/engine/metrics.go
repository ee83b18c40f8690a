package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: тики опроса телеметрии по исходу
	SampleTicks *prometheus.CounterVec

	// Saturation: заполненность окна телеметрии и журнала алертов
	WindowFill   prometheus.Gauge
	AlertLogFill prometheus.Gauge

	// Алерты из push-канала: принятые и отброшенные (битый payload)
	AlertsReceived prometheus.Counter
	AlertsDropped  prometheus.Counter

	// Liveness: попытки подключения push-канала (включая самую первую)
	ConnectAttempts prometheus.Counter

	// Aggregator: фетчи по ресурсу и исходу
	RefreshFetches *prometheus.CounterVec

	// Состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState prometheus.Gauge

	// Мутации тикетов по операции и исходу
	TicketMutations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SampleTicks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pipewatch_sample_ticks_total",
			Help: "Telemetry poll ticks by outcome.",
		}, []string{"status"}), // статусы: ok, error

		WindowFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pipewatch_telemetry_window_fill",
			Help: "Current number of samples in the telemetry window.",
		}),

		AlertLogFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pipewatch_alert_log_fill",
			Help: "Current number of alerts in the alert log.",
		}),

		AlertsReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pipewatch_alerts_received_total",
			Help: "Alerts accepted from the push channel.",
		}),

		AlertsDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pipewatch_alerts_dropped_total",
			Help: "Malformed push payloads dropped.",
		}),

		ConnectAttempts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pipewatch_stream_connect_attempts_total",
			Help: "Push channel connection attempts, the initial one included.",
		}),

		RefreshFetches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pipewatch_refresh_fetches_total",
			Help: "Analytics aggregator fetches by resource and outcome.",
		}, []string{"resource", "status"}),

		CircuitBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pipewatch_circuit_breaker_state",
			Help: "Current state of the backend circuit breaker (0=closed, 1=open).",
		}),

		TicketMutations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pipewatch_ticket_mutations_total",
			Help: "Ticket lifecycle mutations by operation and outcome.",
		}, []string{"op", "status"}),
	}
}
