package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/pipewatch-console/internal/backend"
	"github.com/xela07ax/pipewatch-console/internal/domain"
	"github.com/xela07ax/pipewatch-console/internal/infra"
	"go.uber.org/zap"
)

type memoryTokenStore struct {
	token string
	fail  bool
}

func (s *memoryTokenStore) SaveToken(ctx context.Context, token string) error {
	if s.fail {
		return errors.New("store unavailable")
	}
	s.token = token
	return nil
}

func (s *memoryTokenStore) LoadToken(ctx context.Context) (string, error) {
	if s.fail {
		return "", errors.New("store unavailable")
	}
	return s.token, nil
}

func (s *memoryTokenStore) DeleteToken(ctx context.Context) error {
	s.token = ""
	return nil
}

// newSessionFixture собирает сессию с настоящим движком на холостом
// ходу: интервалы в час, чтобы фон не создавал трафика в тесте.
func newSessionFixture(store TokenStore) *Session {
	cfg := &infra.Config{
		Backend: infra.BackendConfig{FetchTimeout: time.Second},
		Engine: infra.EngineConfig{
			PollInterval:   time.Hour,
			ReconnectDelay: time.Hour,
			WindowSize:     30,
			AlertLogSize:   10,
		},
	}
	session := NewSession(store, zap.NewNop())
	client := backend.NewClient("http://127.0.0.1:1", "ws://127.0.0.1:1", time.Second, session)
	session.AttachEngine(New(cfg, client, nil, NewMetrics(nil), zap.NewNop()))
	return session
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAuthenticatePersistsTokenAndOpensGate(t *testing.T) {
	store := &memoryTokenStore{}
	s := newSessionFixture(store)
	defer s.Clear(context.Background())

	assert.False(t, s.Authenticated())

	token := signedToken(t, time.Now().Add(time.Hour))
	s.Authenticate(context.Background(), token)

	assert.True(t, s.Authenticated())
	assert.Equal(t, token, s.Token())
	assert.Equal(t, token, store.token)

	expiry, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)
}

func TestAuthenticateSurvivesStoreFailure(t *testing.T) {
	store := &memoryTokenStore{fail: true}
	s := newSessionFixture(store)
	defer s.Clear(context.Background())

	// Недоступное хранилище не блокирует сессию: работаем in-memory
	s.Authenticate(context.Background(), "opaque-token")
	assert.True(t, s.Authenticated())
}

func TestResumeRestoresStoredSession(t *testing.T) {
	store := &memoryTokenStore{token: signedToken(t, time.Now().Add(time.Hour))}
	s := newSessionFixture(store)
	defer s.Clear(context.Background())

	assert.True(t, s.Resume(context.Background()))
	assert.True(t, s.Authenticated())
}

func TestResumeDiscardsExpiredToken(t *testing.T) {
	store := &memoryTokenStore{token: signedToken(t, time.Now().Add(-time.Minute))}
	s := newSessionFixture(store)

	assert.False(t, s.Resume(context.Background()))
	assert.False(t, s.Authenticated())
	// Протухший токен вычищен из хранилища
	assert.Empty(t, store.token)
}

func TestResumeWithEmptyStore(t *testing.T) {
	s := newSessionFixture(&memoryTokenStore{})
	assert.False(t, s.Resume(context.Background()))
}

func TestClearResetsViewModelAndStore(t *testing.T) {
	store := &memoryTokenStore{}
	s := newSessionFixture(store)

	s.Authenticate(context.Background(), signedToken(t, time.Now().Add(time.Hour)))
	s.engine.VM.AppendSample(domain.TelemetrySample{Pressure: 1})
	s.engine.VM.PrependAlert(domain.Alert{ID: "1"})

	s.Clear(context.Background())

	assert.False(t, s.Authenticated())
	assert.Empty(t, store.token)
	snap := s.engine.VM.Snapshot()
	assert.Empty(t, snap.Window)
	assert.Empty(t, snap.Alerts)

	// Повторный Clear — no-op
	s.Clear(context.Background())
}

func TestOpaqueTokenHasNoExpiry(t *testing.T) {
	s := newSessionFixture(&memoryTokenStore{})
	defer s.Clear(context.Background())

	// Не-JWT токен считается бессрочным, а не ошибкой
	s.Authenticate(context.Background(), "not-a-jwt")
	assert.True(t, s.Authenticated())
	_, ok := s.ExpiresAt()
	assert.False(t, ok)
}
