package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"local"`
	OrderStore string `yaml:"order_store" env:"ORDER_STORE"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	HTTPServer `yaml:"server"`
	AWS        `yaml:"aws"`
	Tables     `yaml:"tables"`
	Gateway    `yaml:"gateway"`
	Auth       `yaml:"auth"`

	PendingMarkerTTL time.Duration `yaml:"pending_marker_ttl" env:"PENDING_MARKER_TTL" env-default:"1h"`
}

type HTTPServer struct {
	Addr          string `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
}

type AWS struct {
	Region           string `yaml:"region" env:"AWS_REGION"`
	EndpointOverride string `yaml:"endpoint_override" env:"AWS_ENDPOINT_OVERRIDE"`
	EventsQueueURL   string `yaml:"events_queue_url" env:"ORDER_EVENTS_QUEUE_URL"`
	MetricsNamespace string `yaml:"metrics_namespace" env:"METRICS_NAMESPACE" env-default:"Storefront/Payments"`
}

type Tables struct {
	Orders           string `yaml:"orders" env:"ORDERS_TABLE" env-default:"orders"`
	CallbackReceipts string `yaml:"callback_receipts" env:"CALLBACK_RECEIPTS_TABLE" env-default:"callback-receipts"`
	PendingPayments  string `yaml:"pending_payments" env:"PENDING_PAYMENTS_TABLE" env-default:"pending-payments"`
	Carts            string `yaml:"carts" env:"CARTS_TABLE" env-default:"carts"`
}

type Gateway struct {
	BaseURL      string        `yaml:"base_url" env:"GATEWAY_BASE_URL" env-default:"https://dev.toyyibpay.com"`
	SecretKey    string        `yaml:"secret_key" env:"GATEWAY_SECRET_KEY"`
	CategoryCode string        `yaml:"category_code" env:"GATEWAY_CATEGORY_CODE"`
	Timeout      time.Duration `yaml:"timeout" env:"GATEWAY_TIMEOUT" env-default:"10s"`
	Retries      int           `yaml:"retries" env:"GATEWAY_RETRIES" env-default:"1"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Load reads configuration from path when it is set, otherwise from the
// environment alone. Environment variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if cfg.OrderStore != "" && cfg.OrderStore != StoreMemory && cfg.OrderStore != StoreDynamoDB {
		return nil, fmt.Errorf("unknown ORDER_STORE %q", cfg.OrderStore)
	}
	if cfg.Gateway.Retries < 0 {
		return nil, fmt.Errorf("GATEWAY_RETRIES must be >= 0, got %d", cfg.Gateway.Retries)
	}

	return &cfg, nil
}

// StoreBackend reports which persistence backend the stores use: an explicit
// ORDER_STORE wins, otherwise local runs use memory.
func (c *Config) StoreBackend() string {
	if c.OrderStore != "" {
		return c.OrderStore
	}
	if c.Env == "local" {
		return StoreMemory
	}
	return StoreDynamoDB
}

func (c *Config) ReturnURL() string {
	return c.HTTPServer.PublicBaseURL + "/payment/status"
}

func (c *Config) CallbackURL() string {
	return c.HTTPServer.PublicBaseURL + "/api/payment/callback"
}
