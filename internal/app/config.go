package app

import (
	"fmt"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/google/uuid"
)

// Config описывает настройки приложения. Загружается из переменных
// окружения с префиксом ORDERS_ и флагов командной строки.
type Config struct {
	Brokers     []string `usage:"Адреса брокеров Kafka (пусто — режим без шины, с mock-сервисами)"`
	GroupID     string   `default:"orders-ms" usage:"Kafka consumer group" flag:"group-id"`
	ReplyTopic  string   `usage:"Топик для ответов request/reply (пусто — генерируется на инстанс)" flag:"reply-topic"`
	MetricsAddr string   `default:":9090" usage:"Адрес HTTP-сервера метрик и health checks" flag:"metrics-addr"`
	Currency    string   `default:"usd" usage:"Валюта платёжных сессий"`

	RequestTimeout time.Duration `default:"5s" usage:"Таймаут request/reply запросов к удалённым сервисам" flag:"request-timeout"`

	Storage StorageConfig
}

// StorageConfig выбирает реализацию хранилища.
type StorageConfig struct {
	Driver      string `default:"memory" usage:"Хранилище: memory или postgres"`
	DSN         string `usage:"PostgreSQL DSN (обязателен при driver=postgres)"`
	AutoMigrate bool   `default:"true" usage:"Применять миграции при старте" flag:"auto-migrate"`
}

// LoadConfig загружает конфигурацию из окружения и флагов.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
	})
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage DSN is required: set ORDERS_STORAGE_DSN")
	}
	return nil
}

// applyDefaults дополняет загруженную конфигурацию значениями,
// зависящими от инстанса.
func (c *Config) applyDefaults() {
	if c.ReplyTopic == "" {
		// Каждому инстансу свой reply-топик, чтобы ответы не
		// расходились между репликами.
		c.ReplyTopic = "orders.reply." + uuid.NewString()
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}
