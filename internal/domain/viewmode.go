package domain

// ViewMode — режим отображения карты: живые алерты или риск-оверлей.
// Переключение режима никогда не трогает окно, журнал алертов и тикеты.
type ViewMode string

const (
	ViewLive ViewMode = "live"
	ViewRisk ViewMode = "risk"
)

func (m ViewMode) Valid() bool {
	return m == ViewLive || m == ViewRisk
}
