package domain

import "time"

// SimulationMode — режим работы симулятора сети на бэкенде.
type SimulationMode string

const (
	ModeNormal       SimulationMode = "normal"
	ModeSmallLeak    SimulationMode = "small_leak"
	ModeMajorBurst   SimulationMode = "major_burst"
	ModeIntermittent SimulationMode = "intermittent"
	ModeValveFault   SimulationMode = "valve_fault"
)

// KnownModes — полный список режимов, которые принимает бэкенд.
// Используется для валидации команды оператора до сетевого вызова.
var KnownModes = []SimulationMode{
	ModeNormal, ModeSmallLeak, ModeMajorBurst, ModeIntermittent, ModeValveFault,
}

func (m SimulationMode) Valid() bool {
	for _, known := range KnownModes {
		if m == known {
			return true
		}
	}
	return false
}

// TelemetrySample — одна точка телеметрии из GET /api/v1/simulation/data.
// После попадания в окно сэмпл неизменяем.
type TelemetrySample struct {
	Pressure  float64        `json:"pressure"`
	FlowRate  float64        `json:"flow_rate"`
	Mode      SimulationMode `json:"mode"`
	Timestamp time.Time      `json:"timestamp"`
}

// TelemetryWire — сырой ответ бэкенда. Timestamp может отсутствовать
// или быть нечитаемым — тогда подставляем локальное время наблюдения.
type TelemetryWire struct {
	Pressure  float64        `json:"pressure"`
	FlowRate  float64        `json:"flow_rate"`
	Mode      SimulationMode `json:"mode"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Sample конвертирует сырой ответ в доменный сэмпл.
// observedAt — локальное время получения ответа (fallback для таймстемпа).
func (w TelemetryWire) Sample(observedAt time.Time) TelemetrySample {
	ts := observedAt
	if w.Timestamp != "" {
		// Бэкенд отдает ISO8601; битое значение молча игнорируем
		if parsed, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
			ts = parsed
		}
	}
	return TelemetrySample{
		Pressure:  w.Pressure,
		FlowRate:  w.FlowRate,
		Mode:      w.Mode,
		Timestamp: ts,
	}
}
