package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN           string `env:"DATABASE_DSN,required=true"`
	RedisURL              string `env:"REDIS_URL,required=true"`
	APIPort               int    `env:"API_PORT,default=8080"`
	LogLevel              string `env:"LOG_LEVEL,default=info"`
	ShopDomain            string `env:"SHOP_DOMAIN"`
	ShopAPIToken          string `env:"SHOP_API_TOKEN"`
	ShopAPIVersion        string `env:"SHOP_API_VERSION,default=2024-10"`
	UploadRateLimitPerSec int    `env:"UPLOAD_RATE_LIMIT_PER_SEC,default=2"`
	BatchWebhookURL       string `env:"BATCH_WEBHOOK_URL"`
	RetentionDays         int    `env:"RETENTION_DAYS,default=30"`
	RetentionScanMinutes  int    `env:"RETENTION_SCAN_INTERVAL_MINUTES,default=60"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// HasBootstrapStore reports whether env carries credentials to seed an
// initial store configuration on startup.
func (c *Config) HasBootstrapStore() bool {
	return c.ShopDomain != "" && c.ShopAPIToken != ""
}
