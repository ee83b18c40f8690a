package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"github.com/xela07ax/pipewatch-console/internal/infra"
	"go.uber.org/zap"
)

// ModeAPI — команды симулятора, нужные контроллеру режима.
type ModeAPI interface {
	SetSimulationMode(ctx context.Context, mode domain.SimulationMode) error
	TrainSimulated(ctx context.Context) error
}

// ModeController отправляет команды смены режима симуляции.
// Подтвержденный режим обновляется СТРОГО после успешного round-trip:
// оптимистичного апдейта нет, чтобы не показывать режим, который бэкенд
// отверг.
type ModeController struct {
	api    ModeAPI
	vm     *ViewModel
	rdb    *redis.Client
	logger *zap.Logger
}

func NewModeController(api ModeAPI, vm *ViewModel, rdb *redis.Client, logger *zap.Logger) *ModeController {
	return &ModeController{
		api:    api,
		vm:     vm,
		rdb:    rdb,
		logger: logger.With(zap.String("mod", "mode-ctl")),
	}
}

// SetMode валидирует и отправляет команду смены режима.
func (c *ModeController) SetMode(ctx context.Context, mode domain.SimulationMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown simulation mode %q", mode)
	}

	if err := c.api.SetSimulationMode(ctx, mode); err != nil {
		c.logger.Warn("mode change rejected, keeping previous acknowledged mode",
			zap.String("requested", string(mode)), zap.Error(err))
		return err
	}

	c.vm.SetSimulationMode(mode)
	c.logger.Info("simulation mode acknowledged", zap.String("mode", string(mode)))

	// Персистим подтвержденный режим best-effort: перезапуск консоли
	// покажет последний подтвержденный режим, а не дефолт
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, infra.RedisKeyAckedMode, string(mode), 0).Err(); err != nil {
			c.logger.Warn("acked mode not persisted", zap.Error(err))
		}
	}
	return nil
}

// RestoreAckedMode поднимает последний подтвержденный режим из Redis.
// Отсутствие ключа или недоступный Redis — не ошибка, остаемся на дефолте.
func (c *ModeController) RestoreAckedMode(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	val, err := c.rdb.Get(ctx, infra.RedisKeyAckedMode).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("acked mode restore failed", zap.Error(err))
		}
		return
	}
	mode := domain.SimulationMode(val)
	if mode.Valid() {
		c.vm.SetSimulationMode(mode)
	}
}

// Calibrate — перекалибровка модели детектора (fire-and-forget для UI,
// но исход логируем).
func (c *ModeController) Calibrate(ctx context.Context) error {
	if err := c.api.TrainSimulated(ctx); err != nil {
		c.logger.Warn("detector calibration failed", zap.Error(err))
		return err
	}
	c.logger.Info("detector calibration requested")
	return nil
}
