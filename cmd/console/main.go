package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/console/handler"
	"github.com/xela07ax/pipewatch-console/internal/console/server"
	"github.com/xela07ax/pipewatch-console/internal/engine"
	"github.com/xela07ax/pipewatch-console/internal/infra"
	"go.uber.org/zap"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Sync()

	// 2. Инициализация ресурсов
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Redis для нас не критичен: без него теряется только
		// восстановление сессии между перезапусками
		logger.Warn("redis unreachable, session will not survive restarts", zap.Error(err))
	}
	cancel()

	// 3. Сборка слоев (Dependency Injection)
	store := engine.NewRedisTokenStore(rdb)
	session := engine.NewSession(store, logger)
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.WSURL, cfg.Backend.FetchTimeout, session)

	registry := prometheus.NewRegistry()
	metrics := engine.NewMetrics(registry)

	eng := engine.New(cfg, client, rdb, metrics, logger)
	session.AttachEngine(eng)

	// 4. Восстановление состояния прошлого запуска
	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	eng.Modes.RestoreAckedMode(startCtx)
	if session.Resume(startCtx) {
		logger.Info("session resumed from persisted token")
	}
	startCancel()

	// 5. Локальный API для рендер-фронтенда
	sessionH := handler.NewSessionHandler(session, client, logger)
	dashH := handler.NewDashboardHandler(eng.VM, eng.Tickets, logger)
	ticketH := handler.NewTicketHandler(eng.Tickets, logger)
	modeH := handler.NewModeHandler(eng.Modes, logger)

	api := server.NewConsoleServer(logger, session, sessionH, dashH, ticketH, modeH, registry)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("console API crashed", zap.Error(err))
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}

	// Гасим фоновые циклы движка; токен в Redis НЕ трогаем,
	// чтобы сессия пережила перезапуск
	eng.Shutdown()
	logger.Info("console stopped")
}
