package domain

// AnalyticsSummary — агрегат из GET /api/v1/analytics/summary.
// Снимок read-only: заменяется целиком при удачном фетче,
// при ошибке остается предыдущее значение (никогда не обнуляем).
type AnalyticsSummary struct {
	Summary struct {
		TotalIncidents        int     `json:"total_incidents"`
		CriticalIncidents     int     `json:"critical_incidents"`
		TotalWaterLossLiters  float64 `json:"total_water_loss_liters"`
		TotalFinancialLossUSD float64 `json:"total_financial_loss_usd"`
	} `json:"summary"`
}

// TrendPoint — точка временного ряда инцидентов (time-ascending).
type TrendPoint struct {
	Timestamp string `json:"timestamp"`
	Incidents int    `json:"incidents"`
}

// RiskStatus — категориальный риск сегмента, независимый от живых алертов.
type RiskStatus string

const (
	RiskNormal   RiskStatus = "Normal"
	RiskWarning  RiskStatus = "Warning"
	RiskCritical RiskStatus = "Critical"
)

// SegmentRisk — элемент ответа GET /api/v1/analytics/risk-assessment.
type SegmentRisk struct {
	Status RiskStatus `json:"status"`
}

// RiskAssessment — segment_id -> риск.
type RiskAssessment map[string]SegmentRisk
