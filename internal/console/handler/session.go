package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"go.uber.org/zap"
)

// SessionGate — что хэндлеру нужно от Session Gate движка.
type SessionGate interface {
	Authenticate(ctx context.Context, token string)
	Clear(ctx context.Context)
	Authenticated() bool
	ExpiresAt() (time.Time, bool)
}

// LoginAPI — проброс учетных данных на бэкенд.
type LoginAPI interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type SessionHandler struct {
	gate   SessionGate
	api    LoginAPI
	logger *zap.Logger
}

func NewSessionHandler(gate SessionGate, api LoginAPI, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{gate: gate, api: api, logger: logger.Named("session-api")}
}

// Login пробрасывает учетные данные на бэкенд и при успехе открывает
// сессию. Ошибка аутентификации — ЕДИНСТВЕННАЯ, которую оператор видит
// напрямую: detail бэкенда отдаем как есть.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	token, err := h.api.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed", zap.Error(err))
		writeLoginError(w, err)
		return
	}

	h.gate.Authenticate(r.Context(), token)

	resp := map[string]interface{}{"authenticated": true}
	if expiry, ok := h.gate.ExpiresAt(); ok {
		resp["expires_at"] = expiry
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout чистит сессию и гасит движок. Всегда 200: повторный логаут — no-op.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.gate.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

// Status — проверка сессии для фронтенда при старте.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"authenticated": h.gate.Authenticated()}
	if expiry, ok := h.gate.ExpiresAt(); ok {
		resp["expires_at"] = expiry
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeLoginError переводит таксономию клиента бэкенда в ответ фронту.
func writeLoginError(w http.ResponseWriter, err error) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		detail := statusErr.Detail
		if detail == "" {
			detail = "Authentication failed"
		}
		writeJSON(w, http.StatusUnauthorized, domain.BackendError{Detail: detail})
		return
	}
	// Сетевой или парсинговый сбой: бэкенд недоступен
	writeJSON(w, http.StatusBadGateway, domain.BackendError{Detail: "Server connection failed"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
