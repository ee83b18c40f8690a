package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
)

type fakeModeAPI struct {
	reject   bool
	modeSets int
	trains   int
}

func (f *fakeModeAPI) SetSimulationMode(ctx context.Context, mode domain.SimulationMode) error {
	f.modeSets++
	if f.reject {
		return &backend.StatusError{Op: "simulation.mode", Code: 422, Detail: "mode not supported"}
	}
	return nil
}

func (f *fakeModeAPI) TrainSimulated(ctx context.Context) error {
	f.trains++
	if f.reject {
		return &backend.StatusError{Op: "detection.train", Code: 500}
	}
	return nil
}

func TestSetModeAcknowledgedOnlyAfterSuccess(t *testing.T) {
	vm := NewViewModel(30, 10)
	api := &fakeModeAPI{}
	c := NewModeController(api, vm, nil, zap.NewNop())

	require.NoError(t, c.SetMode(context.Background(), domain.ModeMajorBurst))
	assert.Equal(t, domain.ModeMajorBurst, vm.Snapshot().SimulationMode)
}

func TestSetModeRejectionKeepsPreviousMode(t *testing.T) {
	vm := NewViewModel(30, 10)
	api := &fakeModeAPI{reject: true}
	c := NewModeController(api, vm, nil, zap.NewNop())

	err := c.SetMode(context.Background(), domain.ModeValveFault)

	require.Error(t, err)
	// Оптимистичного апдейта нет: отказ бэкенда оставляет прежний режим
	assert.Equal(t, domain.ModeNormal, vm.Snapshot().SimulationMode)
	assert.Equal(t, 1, api.modeSets)
}

func TestSetModeValidatesBeforeNetwork(t *testing.T) {
	vm := NewViewModel(30, 10)
	api := &fakeModeAPI{}
	c := NewModeController(api, vm, nil, zap.NewNop())

	err := c.SetMode(context.Background(), domain.SimulationMode("tsunami"))

	require.Error(t, err)
	assert.Zero(t, api.modeSets)
	assert.Equal(t, domain.ModeNormal, vm.Snapshot().SimulationMode)
}

func TestCalibratePropagatesFailure(t *testing.T) {
	vm := NewViewModel(30, 10)
	api := &fakeModeAPI{}
	c := NewModeController(api, vm, nil, zap.NewNop())

	require.NoError(t, c.Calibrate(context.Background()))
	assert.Equal(t, 1, api.trains)

	api.reject = true
	assert.Error(t, c.Calibrate(context.Background()))
}
