package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseURL string   `env:"DATABASE_URL"`
	Postgres    Postgres `envPrefix:"POSTGRES_"`

	JWTSecret string `env:"JWT_SECRET"`

	GoEnv     string `env:"GO_ENV" envDefault:"dev"`
	APIDomain string `env:"API_DOMAIN"`
	FEURL     string `env:"FE_URL"`

	//決済通貨（ISO 4217）
	Currency string `env:"CHECKOUT_CURRENCY" envDefault:"USD"`

	Paypal Paypal `envPrefix:"PAYPAL_"`
}

type Postgres struct {
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	DB       string `env:"DB"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	//決済完了/キャンセル時にゲートウェイが戻すURL
	ReturnURL string `env:"RETURN_URL"`
	CancelURL string `env:"CANCEL_URL"`
}

// Loadは環境変数から設定を読み込む
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	//必須チェック
	if cfg.DatabaseURL == "" {
		if cfg.Postgres.User == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.Postgres.Password == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.Postgres.DB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Paypal.BaseApiURL == "" {
		return Config{}, fmt.Errorf("PAYPAL_BASE_API_URL is required")
	}
	if cfg.Paypal.ClientID == "" {
		return Config{}, fmt.Errorf("PAYPAL_CLIENT_ID is required")
	}
	if cfg.Paypal.ClientSecret == "" {
		return Config{}, fmt.Errorf("PAYPAL_CLIENT_SECRET is required")
	}

	return cfg, nil
}
