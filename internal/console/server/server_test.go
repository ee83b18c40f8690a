package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/pipewatch-console/internal/console/handler"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"github.com/xela07ax/pipewatch-console/internal/engine"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubGate struct {
	open bool
}

func (g *stubGate) Authenticate(ctx context.Context, token string) { g.open = true }
func (g *stubGate) Clear(ctx context.Context)                      { g.open = false }
func (g *stubGate) Authenticated() bool                            { return g.open }
func (g *stubGate) ExpiresAt() (time.Time, bool)                   { return time.Time{}, false }

type stubLogin struct{}

func (stubLogin) Login(ctx context.Context, username, password string) (string, error) {
	return "tok-1", nil
}

type stubTickets struct{}

func (stubTickets) CreateTicket(ctx context.Context, alertID domain.FlexID, notes string) (domain.Ticket, error) {
	return domain.Ticket{ID: "t1", AlertID: alertID, Status: domain.TicketOpen}, nil
}

func (stubTickets) Transition(ctx context.Context, ticketID domain.FlexID, newStatus string) error {
	return nil
}

type stubModes struct{}

func (stubModes) SetMode(ctx context.Context, mode domain.SimulationMode) error { return nil }
func (stubModes) Calibrate(ctx context.Context) error                           { return nil }

type noActions struct{}

func (noActions) EligibleActions(alertID domain.FlexID) []string { return nil }

func newTestServer(gate *stubGate) *ConsoleServer {
	return newTestServerWithLogger(gate, zap.NewNop())
}

func newTestServerWithLogger(gate *stubGate, logger *zap.Logger) *ConsoleServer {
	vm := engine.NewViewModel(30, 10)
	return NewConsoleServer(
		logger,
		gate,
		handler.NewSessionHandler(gate, stubLogin{}, logger),
		handler.NewDashboardHandler(vm, noActions{}, logger),
		handler.NewTicketHandler(stubTickets{}, logger),
		handler.NewModeHandler(stubModes{}, logger),
		prometheus.NewRegistry(),
	)
}

func TestProtectedPerimeterRequiresSession(t *testing.T) {
	srv := newTestServer(&stubGate{})

	protected := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/snapshot"},
		{http.MethodGet, "/api/v1/map"},
		{http.MethodPost, "/api/v1/view-mode"},
		{http.MethodPost, "/api/v1/simulation/mode/normal"},
		{http.MethodPost, "/api/v1/detection/calibrate"},
		{http.MethodPost, "/api/v1/tickets"},
		{http.MethodPost, "/api/v1/tickets/1/transition"},
	}
	for _, route := range protected {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestPublicRoutesOpenWithoutSession(t *testing.T) {
	srv := newTestServer(&stubGate{})

	for _, path := range []string{"/health", "/auth/status", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestLoginThenSnapshot(t *testing.T) {
	gate := &stubGate{}
	srv := newTestServer(gate)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username": "operator", "password": "s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gate.Authenticated())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTraceIDAttachedToResponses(t *testing.T) {
	srv := newTestServer(&stubGate{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	// Своего ID клиента не лишаем
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "trace-from-frontend")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "trace-from-frontend", rec.Header().Get("X-Trace-ID"))
}

func TestRequestLogCarriesTraceID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := newTestServerWithLogger(&stubGate{}, zap.New(core))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "trace-42")
	srv.ServeHTTP(rec, req)

	entries := logs.FilterMessage("request handled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "trace-42", entries[0].ContextMap()["trace_id"])
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
}

func TestUnknownSimulationModeRejected(t *testing.T) {
	gate := &stubGate{open: true}
	srv := newTestServer(gate)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/simulation/mode/tsunami", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
