// Пакет config — загрузка и валидация конфигурации сервиса учёта
// жилого фонда из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы хранилища.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Реализации блокировок по дому.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище ---

	// Драйвер хранилища: postgres или memory (только для разработки)
	StorageDriver string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальное число соединений в пуле
	DBMaxConns int

	// --- Блокировки ---

	// Реализация блокировок по дому: local или redis
	LockBackend string
	// TTL распределённой блокировки
	LockTTL time.Duration
	// Сколько ждать освобождения блокировки
	LockWait time.Duration
	// Адрес Redis (host:port)
	RedisAddr string
	// Пароль Redis
	RedisPassword string
	// Номер базы Redis
	RedisDB int

	// --- JWT ---

	// Issuer выдаваемых токенов
	JWTIssuer string
	// Время жизни токена
	JWTTTL time.Duration
	// Путь к PEM-файлу закрытого RSA-ключа (пусто — ключ генерируется при старте)
	JWTPrivateKeyPath string
	// Идентификатор ключа (kid) в JWKS
	JWTKeyID string
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration

	// --- Кэш пользователей ---

	// Максимальное количество пользователей в кэше авторизации
	UserCacheSize int
	// Время жизни записи в кэше авторизации
	UserCacheTTL time.Duration

	// --- Начальный администратор ---

	// Логин администратора, создаваемого при старте
	BootstrapAdminUsername string
	// Пароль администратора, создаваемого при старте
	BootstrapAdminPassword string

	// --- Сверка статусов ---

	// Период фонового пересчёта статусов всех домов (0 — отключено)
	StatusSyncInterval time.Duration

	// --- topologymetrics ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Группа сервиса в метриках topologymetrics
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// ACC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("ACC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("ACC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ACC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// ACC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ACC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ACC_LOG_LEVEL: %w", err)
	}

	// ACC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ACC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ACC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище ---

	// ACC_STORAGE_DRIVER — postgres (по умолчанию) или memory
	cfg.StorageDriver = getEnvDefault("ACC_STORAGE_DRIVER", StoragePostgres)
	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		return nil, fmt.Errorf("ACC_STORAGE_DRIVER: недопустимое значение %q, допустимые: postgres, memory", cfg.StorageDriver)
	}

	// --- PostgreSQL ---

	if cfg.StorageDriver == StoragePostgres {
		if err := loadPostgres(cfg); err != nil {
			return nil, err
		}
	}

	// --- Блокировки ---

	// ACC_LOCK_BACKEND — local (по умолчанию) или redis
	cfg.LockBackend = getEnvDefault("ACC_LOCK_BACKEND", LockLocal)
	if cfg.LockBackend != LockLocal && cfg.LockBackend != LockRedis {
		return nil, fmt.Errorf("ACC_LOCK_BACKEND: недопустимое значение %q, допустимые: local, redis", cfg.LockBackend)
	}

	// ACC_LOCK_TTL — TTL распределённой блокировки (по умолчанию 30s)
	cfg.LockTTL, err = getEnvDuration("ACC_LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACC_LOCK_TTL: %w", err)
	}

	// ACC_LOCK_WAIT — ожидание блокировки (по умолчанию 5s)
	cfg.LockWait, err = getEnvDuration("ACC_LOCK_WAIT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACC_LOCK_WAIT: %w", err)
	}

	if cfg.LockBackend == LockRedis {
		// ACC_REDIS_ADDR — обязателен для redis
		cfg.RedisAddr, err = getEnvRequired("ACC_REDIS_ADDR")
		if err != nil {
			return nil, err
		}
		cfg.RedisPassword = getEnvDefault("ACC_REDIS_PASSWORD", "")
		cfg.RedisDB, err = getEnvInt("ACC_REDIS_DB", 0)
		if err != nil {
			return nil, fmt.Errorf("ACC_REDIS_DB: %w", err)
		}
	}

	// --- JWT ---

	// ACC_JWT_ISSUER — issuer токенов
	cfg.JWTIssuer = getEnvDefault("ACC_JWT_ISSUER", "accommodation")

	// ACC_JWT_TTL — время жизни токена (по умолчанию 8h)
	cfg.JWTTTL, err = getEnvDuration("ACC_JWT_TTL", 8*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ACC_JWT_TTL: %w", err)
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("ACC_JWT_TTL: должно быть больше нуля")
	}

	// ACC_JWT_PRIVATE_KEY_PATH — путь к PEM (опционально)
	cfg.JWTPrivateKeyPath = getEnvDefault("ACC_JWT_PRIVATE_KEY_PATH", "")

	// ACC_JWT_KEY_ID — kid ключа (по умолчанию accommodation-1)
	cfg.JWTKeyID = getEnvDefault("ACC_JWT_KEY_ID", "accommodation-1")

	// ACC_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("ACC_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACC_JWT_LEEWAY: %w", err)
	}

	// --- Кэш пользователей ---

	cfg.UserCacheSize, err = getEnvInt("ACC_USER_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("ACC_USER_CACHE_SIZE: %w", err)
	}
	if cfg.UserCacheSize < 1 {
		return nil, fmt.Errorf("ACC_USER_CACHE_SIZE: значение %d должно быть больше нуля", cfg.UserCacheSize)
	}

	cfg.UserCacheTTL, err = getEnvDuration("ACC_USER_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ACC_USER_CACHE_TTL: %w", err)
	}

	// --- Начальный администратор ---

	cfg.BootstrapAdminUsername = getEnvDefault("ACC_BOOTSTRAP_ADMIN_USERNAME", "")
	cfg.BootstrapAdminPassword = getEnvDefault("ACC_BOOTSTRAP_ADMIN_PASSWORD", "")
	if (cfg.BootstrapAdminUsername == "") != (cfg.BootstrapAdminPassword == "") {
		return nil, fmt.Errorf("ACC_BOOTSTRAP_ADMIN_USERNAME и ACC_BOOTSTRAP_ADMIN_PASSWORD задаются только вместе")
	}

	// --- Сверка статусов ---

	// ACC_STATUS_SYNC_INTERVAL — период сверки статусов домов (по умолчанию 1h, 0 — отключено)
	cfg.StatusSyncInterval, err = getEnvDuration("ACC_STATUS_SYNC_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ACC_STATUS_SYNC_INTERVAL: %w", err)
	}
	if cfg.StatusSyncInterval < 0 {
		return nil, fmt.Errorf("ACC_STATUS_SYNC_INTERVAL: значение не может быть отрицательным")
	}

	// --- topologymetrics ---

	cfg.DephealthCheckInterval, err = getEnvDuration("ACC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("ACC_DEPHEALTH_GROUP", "accommodation")

	// --- Graceful shutdown ---

	// ACC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ACC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadPostgres читает параметры подключения к PostgreSQL.
func loadPostgres(cfg *Config) error {
	var err error

	// ACC_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("ACC_DB_HOST")
	if err != nil {
		return err
	}

	// ACC_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("ACC_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("ACC_DB_PORT: %w", err)
	}

	// ACC_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("ACC_DB_NAME")
	if err != nil {
		return err
	}

	// ACC_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("ACC_DB_USER")
	if err != nil {
		return err
	}

	// ACC_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("ACC_DB_PASSWORD")
	if err != nil {
		return err
	}

	// ACC_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("ACC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("ACC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// ACC_DB_MAX_CONNS — размер пула (по умолчанию 10)
	cfg.DBMaxConns, err = getEnvInt("ACC_DB_MAX_CONNS", 10)
	if err != nil {
		return fmt.Errorf("ACC_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return fmt.Errorf("ACC_DB_MAX_CONNS: значение %d должно быть больше нуля", cfg.DBMaxConns)
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode, c.DBMaxConns,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для метрик topologymetrics).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(c.DBUser),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
