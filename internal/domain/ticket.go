package domain

import "encoding/json"

// Статусы тикета. "In Progress" и "Resolved" совпадают с wire-форматом
// бэкенда техобслуживания; свежесозданный наряд бэкенд отдает как
// "Pending" — на входе он нормализуется в Open (см. UnmarshalJSON).
const (
	TicketOpen       = "Open"
	TicketInProgress = "In Progress"
	TicketResolved   = "Resolved"
)

// Ticket — наряд на обслуживание, привязанный к алерту по AlertID.
// Создается и переводится по статусам ТОЛЬКО на стороне сервера:
// клиент никогда не меняет Status локально без round-trip.
type Ticket struct {
	ID      FlexID `json:"id"`
	AlertID FlexID `json:"alert_id"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

func (t *Ticket) UnmarshalJSON(data []byte) error {
	type wire Ticket
	var raw wire
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Status == "Pending" {
		raw.Status = TicketOpen
	}
	*t = Ticket(raw)
	return nil
}

// TicketCreateRequest — тело POST /api/v1/maintenance/.
type TicketCreateRequest struct {
	AlertID FlexID `json:"alert_id"`
	Notes   string `json:"notes"`
}

// TicketUpdateRequest — тело PATCH /api/v1/maintenance/{id}.
type TicketUpdateRequest struct {
	Status string `json:"status"`
}

// AllowedTransition проверяет разрешенный переход жизненного цикла.
// Open -> In Progress -> Resolved, остальное запрещено локально.
func AllowedTransition(from, to string) bool {
	switch {
	case from == TicketOpen && to == TicketInProgress:
		return true
	case from == TicketInProgress && to == TicketResolved:
		return true
	}
	return false
}
