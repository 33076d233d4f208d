// Package config содержит логику чтения конфигурации сервиса учебного зала.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultTimezone   = "Asia/Kolkata"
)

// ErrNoBackend возвращается, если не задано ни подключение к базе, ни адрес хранилища.
var ErrNoBackend = errors.New("neither DATABASE_URI nor STORE_URL is set")

// Config содержит параметры конфигурации сервиса учебного зала.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	StoreURL    string `env:"STORE_URL"`
	StoreKey    string `env:"STORE_KEY"`
	SecretKey   string `env:"SECRET_KEY"`
	Timezone    string `env:"TIMEZONE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.StoreURL, "s", "", "REST data store base URL")
	flag.StringVar(&cfg.StoreKey, "k", "", "REST data store API key")
	flag.StringVar(&cfg.SecretKey, "secret", "", "cookie signing secret")
	flag.StringVar(&cfg.Timezone, "tz", defaultTimezone, "timezone for calendar days in reports")

	flag.Parse()

	override(&cfg.RunAddress, fromEnv.RunAddress)
	override(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	override(&cfg.StoreURL, fromEnv.StoreURL)
	override(&cfg.StoreKey, fromEnv.StoreKey)
	override(&cfg.SecretKey, fromEnv.SecretKey)
	override(&cfg.Timezone, fromEnv.Timezone)

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}

	return cfg, nil
}

func override(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}

// UsePostgres сообщает, что хранилищем служит PostgreSQL. Иначе используется REST-хранилище.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURI != ""
}

// Validate проверяет, что задано хотя бы одно хранилище.
func (c *Config) Validate() error {
	if c.DatabaseURI == "" && c.StoreURL == "" {
		return ErrNoBackend
	}
	return nil
}

// Location загружает часовой пояс для расчёта календарных дней.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
