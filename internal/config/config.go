// Пакет config — загрузка и валидация конфигурации store-service
// и retail-file-service из переменных окружения.
// Каждый сервис читает переменные со своим префиксом (SS_, RF_).
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

// Префиксы переменных окружения сервисов.
const (
	StoreServicePrefix      = "SS_"
	RetailFileServicePrefix = "RF_"
)

// Имена сервисов (используются в логах, health и topologymetrics).
const (
	StoreServiceName      = "store-service"
	RetailFileServiceName = "retail-file-service"
)

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Имя сервиса (store-service, retail-file-service)
	ServiceName string
	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальный размер пула подключений (0 — значение pgxpool по умолчанию)
	DBMaxConns int

	// --- JWT (опционально: пустой JWKS URL отключает аутентификацию) ---

	// URL JWKS endpoint
	JWTJWKSURL string
	// Допустимое отклонение времени при проверке exp/nbf
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Путь к CA-сертификату для исходящих TLS-соединений (опционально)
	CACertPath string
	// Пропускать проверку TLS-сертификатов JWKS endpoint
	TLSSkipVerify bool

	// --- topologymetrics ---

	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Добавлять лейбл isentry=yes (DEPHEALTH_ISENTRY)
	DephealthIsEntry bool

	// --- Store Service (только retail-file-service) ---

	// Базовый URL store-service
	StoreServiceURL string
	// Таймаут запросов к store-service
	StoreServiceTimeout time.Duration
	// Token endpoint (client_credentials), пустой — без авторизации
	StoreTokenURL string
	// Client ID / Secret для client_credentials
	StoreClientID     string
	StoreClientSecret string
	// Размер кэша идентификаторов магазинов (0 — кэш отключён)
	StoreCacheSize int
	// Время жизни записи кэша
	StoreCacheTTL time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// префикс переменных окружения, из которого загружена конфигурация
	prefix string
}

// LoadStoreService загружает конфигурацию store-service (префикс SS_).
func LoadStoreService() (*Config, error) {
	return load(StoreServicePrefix, StoreServiceName, 8080)
}

// LoadRetailFileService загружает конфигурацию retail-file-service (префикс RF_).
// Дополнительно читает параметры клиента store-service.
func LoadRetailFileService() (*Config, error) {
	cfg, err := load(RetailFileServicePrefix, RetailFileServiceName, 8081)
	if err != nil {
		return nil, err
	}
	if err := loadStoreClient(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load загружает общие для обоих сервисов параметры.
func load(prefix, serviceName string, defaultPort int) (*Config, error) {
	cfg := &Config{prefix: prefix}
	var err error

	// --- Сервер ---

	// <P>SERVICE_NAME — имя сервиса (по умолчанию store-service / retail-file-service)
	cfg.ServiceName = getEnvDefault(prefix+"SERVICE_NAME", serviceName)

	cfg.Port, err = getEnvInt(prefix+"PORT", defaultPort)
	if err != nil {
		return nil, fmt.Errorf("%sPORT: %w", prefix, err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%sPORT: значение %d вне допустимого диапазона 1-65535", prefix, cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault(prefix+"LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("%sLOG_LEVEL: %w", prefix, err)
	}

	cfg.LogFormat = getEnvDefault(prefix+"LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("%sLOG_FORMAT: недопустимое значение %q, допустимые: json, text", prefix, cfg.LogFormat)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration(prefix+"HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sHTTP_READ_TIMEOUT: %w", prefix, err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration(prefix+"HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sHTTP_WRITE_TIMEOUT: %w", prefix, err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration(prefix+"HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sHTTP_IDLE_TIMEOUT: %w", prefix, err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired(prefix + "DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt(prefix+"DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%sDB_PORT: %w", prefix, err)
	}
	if cfg.DBName, err = getEnvRequired(prefix + "DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired(prefix + "DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired(prefix + "DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault(prefix+"DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("%sDB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", prefix, cfg.DBSSLMode)
	}

	cfg.DBMaxConns, err = getEnvInt(prefix+"DB_MAX_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("%sDB_MAX_CONNS: %w", prefix, err)
	}
	if cfg.DBMaxConns < 0 {
		return nil, fmt.Errorf("%sDB_MAX_CONNS: значение не может быть отрицательным", prefix)
	}

	// --- JWT ---

	cfg.JWTJWKSURL = getEnvDefault(prefix+"JWT_JWKS_URL", "")
	cfg.JWTLeeway, err = getEnvDuration(prefix+"JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sJWT_LEEWAY: %w", prefix, err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration(prefix+"JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%sJWKS_REFRESH_INTERVAL: %w", prefix, err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration(prefix+"JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sJWKS_CLIENT_TIMEOUT: %w", prefix, err)
	}
	cfg.CACertPath = getEnvDefault(prefix+"CA_CERT_PATH", "")
	cfg.TLSSkipVerify, err = getEnvBool(prefix+"TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("%sTLS_SKIP_VERIFY: %w", prefix, err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault(prefix+"DEPHEALTH_GROUP", "product-watch")
	cfg.DephealthCheckInterval, err = getEnvDuration(prefix+"DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sDEPHEALTH_CHECK_INTERVAL: %w", prefix, err)
	}
	// DEPHEALTH_ISENTRY — общий для всех сервисов, без префикса
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration(prefix+"SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", prefix, err)
	}

	return cfg, nil
}

// loadStoreClient читает параметры клиента store-service.
func loadStoreClient(cfg *Config) error {
	p := cfg.prefix
	var err error

	// <P>STORE_SERVICE_URL — обязательный
	if cfg.StoreServiceURL, err = getEnvRequired(p + "STORE_SERVICE_URL"); err != nil {
		return err
	}
	cfg.StoreServiceURL = strings.TrimRight(cfg.StoreServiceURL, "/")
	if u, perr := url.Parse(cfg.StoreServiceURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%sSTORE_SERVICE_URL: некорректный URL %q", p, cfg.StoreServiceURL)
	}

	cfg.StoreServiceTimeout, err = getEnvDuration(p+"STORE_SERVICE_TIMEOUT", 10*time.Second)
	if err != nil {
		return fmt.Errorf("%sSTORE_SERVICE_TIMEOUT: %w", p, err)
	}

	cfg.StoreTokenURL = getEnvDefault(p+"STORE_TOKEN_URL", "")
	cfg.StoreClientID = getEnvDefault(p+"STORE_CLIENT_ID", "")
	cfg.StoreClientSecret = getEnvDefault(p+"STORE_CLIENT_SECRET", "")
	if cfg.StoreTokenURL != "" && (cfg.StoreClientID == "" || cfg.StoreClientSecret == "") {
		return fmt.Errorf("%sSTORE_TOKEN_URL задан, но %sSTORE_CLIENT_ID или %sSTORE_CLIENT_SECRET пусты", p, p, p)
	}

	cfg.StoreCacheSize, err = getEnvInt(p+"STORE_CACHE_SIZE", 1000)
	if err != nil {
		return fmt.Errorf("%sSTORE_CACHE_SIZE: %w", p, err)
	}
	if cfg.StoreCacheSize < 0 {
		return fmt.Errorf("%sSTORE_CACHE_SIZE: значение не может быть отрицательным", p)
	}

	cfg.StoreCacheTTL, err = getEnvDuration(p+"STORE_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return fmt.Errorf("%sSTORE_CACHE_TTL: %w", p, err)
	}

	return nil
}

// Prefix возвращает префикс переменных окружения сервиса.
func (c *Config) Prefix() string {
	return c.prefix
}

// JWTAuthEnabled сообщает, включена ли JWT-аутентификация.
func (c *Config) JWTAuthEnabled() bool {
	return c.JWTJWKSURL != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля.
// Используется в лейблах topologymetrics, не для подключения.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
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

	logger := slog.New(handler).With(slog.String("service", cfg.ServiceName))
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

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
