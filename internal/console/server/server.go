package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/pipewatch-console/internal/console/handler"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Gate решает, открыт ли защищенный периметр для фронтенда
	gate handler.SessionGate

	// Обработчики бизнес-доменов
	sessionHandler *handler.SessionHandler   // /auth/*
	dashHandler    *handler.DashboardHandler // /api/v1/snapshot, /api/v1/map
	ticketHandler  *handler.TicketHandler    // /api/v1/tickets
	modeHandler    *handler.ModeHandler      // /api/v1/simulation, /api/v1/detection

	// Registry для /metrics; nil — эндпоинт отключен
	registry *prometheus.Registry
}

// NewConsoleServer инициализирует локальный API консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	gate handler.SessionGate,
	sessionH *handler.SessionHandler,
	dashH *handler.DashboardHandler,
	ticketH *handler.TicketHandler,
	modeH *handler.ModeHandler,
	registry *prometheus.Registry,
) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		gate:           gate,
		sessionHandler: sessionH,
		dashHandler:    dashH,
		ticketHandler:  ticketH,
		modeHandler:    modeH,
		registry:       registry,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)
	r.Use(s.logRequests)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты до логина) ---
	r.Group(func(r chi.Router) {
		// Логин должен работать без активной сессии
		r.Post("/auth/login", s.sessionHandler.Login)
		r.Post("/auth/logout", s.sessionHandler.Logout)
		r.Get("/auth/status", s.sessionHandler.Status)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		if s.registry != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требует активной сессии) ---
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		// Снимок состояния и карта
		r.Get("/api/v1/snapshot", s.dashHandler.GetSnapshot)
		r.Get("/api/v1/map", s.dashHandler.GetMap)
		r.Post("/api/v1/view-mode", s.dashHandler.SetViewMode)

		// Управление симулятором и детектором
		r.Post("/api/v1/simulation/mode/{mode}", s.modeHandler.SetMode)
		r.Post("/api/v1/detection/calibrate", s.modeHandler.Calibrate)

		// Тикеты обслуживания
		r.Route("/api/v1/tickets", func(r chi.Router) {
			r.Post("/", s.ticketHandler.Create)
			r.Post("/{id}/transition", s.ticketHandler.Transition)
		})
	})
}

// logRequests пишет каждый запрос с его trace_id, чтобы лог консоли
// склеивался с X-Trace-ID, который видит фронтенд.
func (s *ConsoleServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("trace_id", traceID(r.Context())),
			zap.Duration("took", time.Since(start)))
	})
}

// requireSession отсекает запросы без открытой сессии. Токен бэкенда
// фронтенду не выдается: подпись исходящих запросов — забота движка.
func (s *ConsoleServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.Authenticated() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "active session required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
