package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xela07ax/pipewatch-console/internal/domain"
)

// TokenSource отдает текущий bearer-токен сессии (пустая строка = нет сессии).
// Реализуется Session Gate; клиент сам токены не хранит.
type TokenSource interface {
	Token() string
}

// Client — типизированный HTTP-клиент бэкенда обнаружения утечек.
// Один метод = один контракт из API v1. Ошибки всегда одного из трех
// типов: NetworkError, StatusError, ParseError.
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL, wsURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsURL:   strings.TrimRight(wsURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// AlertsStreamURL — адрес push-канала для Alert Stream Client.
func (c *Client) AlertsStreamURL() string {
	return c.wsURL + "/ws/alerts"
}

// Login обменивает учетные данные на bearer-токен.
// Единственный form-encoded вызов во всем контракте.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "auth.login"

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &NetworkError{Op: op, Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token domain.TokenResponse
	if err := c.do(op, req, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", &ParseError{Op: op, Cause: fmt.Errorf("empty access_token in response")}
	}
	return token.AccessToken, nil
}

// SimulationData — одна точка телеметрии. Сырой ответ, без подстановки
// локального времени: это забота сэмплера, который знает момент наблюдения.
func (c *Client) SimulationData(ctx context.Context) (domain.TelemetryWire, error) {
	var wire domain.TelemetryWire
	err := c.getJSON(ctx, "simulation.data", "/api/v1/simulation/data", &wire)
	return wire, err
}

// SetSimulationMode — команда смены режима симуляции.
func (c *Client) SetSimulationMode(ctx context.Context, mode domain.SimulationMode) error {
	return c.postJSON(ctx, "simulation.mode", "/api/v1/simulation/mode/"+string(mode), nil, nil)
}

// TrainSimulated — перекалибровка модели детектора (fire-and-forget команда).
func (c *Client) TrainSimulated(ctx context.Context) error {
	return c.postJSON(ctx, "detection.train", "/api/v1/detection/train-simulated", nil, nil)
}

func (c *Client) AnalyticsSummary(ctx context.Context) (domain.AnalyticsSummary, error) {
	var out domain.AnalyticsSummary
	err := c.getJSON(ctx, "analytics.summary", "/api/v1/analytics/summary", &out)
	return out, err
}

func (c *Client) AnalyticsTrends(ctx context.Context) ([]domain.TrendPoint, error) {
	var out []domain.TrendPoint
	err := c.getJSON(ctx, "analytics.trends", "/api/v1/analytics/trends", &out)
	return out, err
}

func (c *Client) Topology(ctx context.Context) (domain.Topology, error) {
	var out domain.Topology
	err := c.getJSON(ctx, "localization.geo", "/api/v1/localization/geo-json", &out)
	return out, err
}

func (c *Client) RiskAssessment(ctx context.Context) (domain.RiskAssessment, error) {
	var out domain.RiskAssessment
	err := c.getJSON(ctx, "analytics.risk", "/api/v1/analytics/risk-assessment", &out)
	return out, err
}

func (c *Client) Tickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := c.getJSON(ctx, "maintenance.list", "/api/v1/maintenance/", &out)
	return out, err
}

func (c *Client) CreateTicket(ctx context.Context, body domain.TicketCreateRequest) (domain.Ticket, error) {
	var out domain.Ticket
	err := c.postJSON(ctx, "maintenance.create", "/api/v1/maintenance/", body, &out)
	return out, err
}

func (c *Client) UpdateTicket(ctx context.Context, id string, body domain.TicketUpdateRequest) (domain.Ticket, error) {
	var out domain.Ticket
	err := c.patchJSON(ctx, "maintenance.update", "/api/v1/maintenance/"+id, body, &out)
	return out, err
}

// --- транспортные хелперы ---

func (c *Client) getJSON(ctx context.Context, op, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &NetworkError{Op: op, Cause: err}
	}
	return c.do(op, req, dst)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, dst interface{}) error {
	return c.writeJSON(ctx, op, http.MethodPost, path, body, dst)
}

func (c *Client) patchJSON(ctx context.Context, op, path string, body, dst interface{}) error {
	return c.writeJSON(ctx, op, http.MethodPatch, path, body, dst)
}

func (c *Client) writeJSON(ctx context.Context, op, method, path string, body, dst interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &ParseError{Op: op, Cause: err}
		}
		reader = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &NetworkError{Op: op, Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, dst)
}

// do выполняет запрос и раскладывает исход по таксономии ошибок.
// 1. Транспортная ошибка (включая таймаут клиента) -> NetworkError
// 2. non-2xx -> StatusError (c detail, если бэкенд его прислал)
// 3. Битый JSON при 2xx -> ParseError
func (c *Client) do(op string, req *http.Request, dst interface{}) error {
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Op: op, Code: resp.StatusCode}
		// Detail — best effort, тело может быть и не JSON
		var backendErr domain.BackendError
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(raw, &backendErr) == nil {
				statusErr.Detail = backendErr.Detail
			}
		}
		return statusErr
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &ParseError{Op: op, Cause: err}
	}
	return nil
}
