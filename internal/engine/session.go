package engine

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/pipewatch-console/internal/infra"
	"go.uber.org/zap"
)

// TokenStore — персистентное клиентское хранилище токена сессии.
// Наличие токена — единственный сигнал, запускающий движок.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
	DeleteToken(ctx context.Context) error
}

// RedisTokenStore хранит токен в Redis, переживая перезапуск консоли.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) SaveToken(ctx context.Context, token string) error {
	return s.rdb.Set(ctx, infra.RedisKeySessionToken, token, 0).Err()
}

func (s *RedisTokenStore) LoadToken(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, infra.RedisKeySessionToken).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *RedisTokenStore) DeleteToken(ctx context.Context) error {
	return s.rdb.Del(ctx, infra.RedisKeySessionToken).Err()
}

// Session — гейт сессии. Держит bearer-токен и по его наличию
// включает/выключает весь движок. Каждый запуск получает новое
// поколение: контекст поколения — это cancellation token, который
// не дает протухшим таймерам и in-flight фетчам мутировать состояние
// после Clear().
type Session struct {
	engine *Engine
	store  TokenStore
	logger *zap.Logger

	mu         sync.Mutex
	token      string
	generation uint64
	cancelRun  context.CancelFunc
}

// NewSession создает гейт без движка: клиент бэкенда берет токены из
// сессии, движок строится поверх клиента, поэтому движок привязывается
// вторым шагом через AttachEngine (разрыв циклической зависимости).
func NewSession(store TokenStore, logger *zap.Logger) *Session {
	return &Session{
		store:  store,
		logger: logger.With(zap.String("mod", "session")),
	}
}

// AttachEngine привязывает собранный движок. Вызывается один раз до
// Resume/Authenticate.
func (s *Session) AttachEngine(engine *Engine) {
	s.engine = engine
}

// Token реализует backend.TokenSource. Пустая строка — сессии нет.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// ExpiresAt — exp из токена БЕЗ проверки подписи: валидирует токен
// бэкенд, клиенту claims нужны только для отображения и авто-логаута.
func (s *Session) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	return tokenExpiry(token)
}

// Authenticate принимает свежевыданный токен, персистит его и
// запускает движок. Ошибка персиста не блокирует сессию: работаем
// in-memory с предупреждением.
func (s *Session) Authenticate(ctx context.Context, token string) {
	s.mu.Lock()
	if s.cancelRun != nil {
		// Повторный логин поверх живой сессии: старое поколение гасим
		s.cancelRun()
		s.cancelRun = nil
		s.engine.stopComponents()
	}
	s.token = token
	s.generation++
	gen := s.generation

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.mu.Unlock()

	if err := s.store.SaveToken(ctx, token); err != nil {
		s.logger.Warn("session token not persisted, in-memory only", zap.Error(err))
	}

	s.logger.Info("session started", zap.Uint64("generation", gen))
	s.engine.startComponents(runCtx)
}

// Resume пытается поднять сессию из персистентного хранилища при старте
// процесса. Протухший по exp токен не реанимируем — чистим и ждем логина.
func (s *Session) Resume(ctx context.Context) bool {
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		s.logger.Warn("stored session unavailable", zap.Error(err))
		return false
	}
	if token == "" {
		return false
	}

	if expiry, ok := tokenExpiry(token); ok && time.Now().After(expiry) {
		s.logger.Info("stored session token expired, discarding")
		if err := s.store.DeleteToken(ctx); err != nil {
			s.logger.Warn("expired token cleanup failed", zap.Error(err))
		}
		return false
	}

	s.logger.Info("resuming stored session")
	s.Authenticate(ctx, token)
	return true
}

// Clear — логаут: гасим поколение, закрываем push-канал, чистим
// хранилище и view model. Идемпотентен.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	if s.token == "" && s.cancelRun == nil {
		s.mu.Unlock()
		return
	}
	s.token = ""
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	gen := s.generation
	s.mu.Unlock()

	s.engine.stopComponents()
	if err := s.store.DeleteToken(ctx); err != nil {
		s.logger.Warn("stored token cleanup failed", zap.Error(err))
	}
	s.engine.VM.Reset()
	s.logger.Info("session cleared", zap.Uint64("generation", gen))
}

// tokenExpiry разбирает exp без проверки подписи.
// Не-JWT токен (или без exp) — это нормально: считаем бессрочным.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
