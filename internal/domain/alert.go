package domain

import "time"

// AlertSeverity — категория тяжести инцидента, как ее отдает детектор.
type AlertSeverity string

const (
	SeverityMinor    AlertSeverity = "Minor"
	SeverityMajor    AlertSeverity = "Major"
	SeverityCritical AlertSeverity = "Critical"
	SeverityUnknown  AlertSeverity = "Unknown"
)

// Normalize приводит произвольную строку бэкенда к известной категории.
// Неизвестные значения не отбрасываем — алерт важнее классификации.
func (s AlertSeverity) Normalize() AlertSeverity {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return s
	default:
		return SeverityUnknown
	}
}

// Alert — уведомление об аномалии из push-канала /ws/alerts.
// Location — идентификатор сегмента или узла, возможно составной
// ("N1-N2" для пары узлов). Неизменяем после получения.
type Alert struct {
	ID            FlexID        `json:"id"`
	Severity      AlertSeverity `json:"severity"`
	SeverityScore float64       `json:"severity_score"`
	Location      string        `json:"location"`
	Analysis      string        `json:"analysis"`
	Timestamp     time.Time     `json:"timestamp"`
}
