package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации консоли мониторинга.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// ServerConfig описывает локальный HTTP-сервер для рендер-фронтенда.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// BackendConfig — адреса и таймауты бэкенда обнаружения утечек.
type BackendConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	WSURL        string        `mapstructure:"ws_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// EngineConfig — специфичные настройки движка синхронизации состояния.
type EngineConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`   // период опроса телеметрии
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"` // фиксированная пауза реконнекта WS
	WindowSize     int           `mapstructure:"window_size"`     // емкость окна телеметрии
	AlertLogSize   int           `mapstructure:"alert_log_size"`  // емкость журнала алертов
}

// RedisConfig описывает подключение к Redis (персистентное хранилище сессии).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: BACKEND_BASE_URL=... перекроет backend.base_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}
	// WS-адрес по умолчанию выводим из HTTP-адреса
	if cfg.Backend.WSURL == "" {
		cfg.Backend.WSURL = deriveWSURL(cfg.Backend.BaseURL)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	// Пустые дефолты делают ключи видимыми для ENV-переопределения
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.ws_url", "")
	v.SetDefault("backend.fetch_timeout", 10*time.Second)
	v.SetDefault("engine.poll_interval", 1*time.Second)
	v.SetDefault("engine.reconnect_delay", 3*time.Second)
	v.SetDefault("engine.window_size", 30)
	v.SetDefault("engine.alert_log_size", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

// deriveWSURL превращает http(s)://host в ws(s)://host.
func deriveWSURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}
