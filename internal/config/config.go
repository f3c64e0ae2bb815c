// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища учетных данных.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrInvalidConfig — конфигурация прочитана, но не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры сессий и проверки паролей.
type AuthConfig struct {
	// SessionTTL — срок жизни session-токена с момента выпуска.
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	// PasswordCost — стоимость bcrypt; 0 — bcrypt.DefaultCost.
	PasswordCost int `yaml:"password_cost" env:"PASSWORD_COST" env-default:"10"`
	// LoginMaxFailures — сколько неудачных входов подряд допускается до блокировки.
	LoginMaxFailures int `yaml:"login_max_failures" env:"LOGIN_MAX_FAILURES" env-default:"5"`
	// LoginLockout — окно подсчёта неудачных входов и длительность блокировки.
	LoginLockout time.Duration `yaml:"login_lockout" env:"LOGIN_LOCKOUT" env-default:"15m"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	Driver          string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL     string `yaml:"db_url" env:"DATABASE_URL"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
	ConnectAttempts uint64 `yaml:"connect_attempts" env:"DB_CONNECT_ATTEMPTS" env-default:"5"`
}

// RedisConfig — настройки ограничителя попыток входа. Пустой URL отключает его.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"lostfound:login:"`
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.DB.DatabaseURL) == "" {
			return fmt.Errorf("%w: db.db_url is required for driver %q", ErrInvalidConfig, DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown db.driver %q", ErrInvalidConfig, c.DB.Driver)
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("%w: auth.session_ttl must be positive", ErrInvalidConfig)
	}

	if c.Timeouts.Service <= 0 {
		return fmt.Errorf("%w: timeouts.service must be positive", ErrInvalidConfig)
	}

	if c.HTTP.BasePath != "" && !strings.HasPrefix(c.HTTP.BasePath, "/") {
		return fmt.Errorf("%w: http.base_path must start with '/'", ErrInvalidConfig)
	}

	if c.Redis.RedisURL != "" && (c.Auth.LoginMaxFailures <= 0 || c.Auth.LoginLockout <= 0) {
		return fmt.Errorf("%w: auth.login_max_failures and auth.login_lockout must be positive when redis is enabled", ErrInvalidConfig)
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV + проверка.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file does not exist: %s", p)
			}

			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
