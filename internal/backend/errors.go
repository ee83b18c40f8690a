package backend

import "fmt"

// NetworkError — запрос не дошел или не вернулся (отказ сети, таймаут).
// Для владельца вызова это обычный "fetch failed": лог + прежний снимок.
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure on %s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// StatusError — бэкенд ответил, но не успехом (non-2xx).
// Detail — человекочитаемое тело в стиле FastAPI, если удалось прочитать.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: backend rejected with %d: %s", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: backend rejected with %d", e.Op, e.Code)
}

// ParseError — ответ пришел успешным, но JSON не разобрался в схему.
type ParseError struct {
	Op    string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed payload on %s: %v", e.Op, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
