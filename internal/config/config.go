package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL,required,notEmpty"`

	// AuthSecret signs short-lived chat tokens. Token issuance fails with a
	// configuration error when it is empty, so demo-only deployments may omit it.
	AuthSecret string `env:"AUTH_SECRET"`

	GatewayURL   string `env:"OPENCLAW_GATEWAY_URL"`
	GatewayToken string `env:"OPENCLAW_GATEWAY_TOKEN"`
	GatewayWSURL string `env:"OPENCLAW_GATEWAY_WS_URL"`

	TelegramBotUsername   string `env:"TELEGRAM_BOT_USERNAME" envDefault:"YOUR_BOT_USERNAME"`
	TelegramWebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GatewayConfigured reports whether the remote gateway can be reached at all.
// When false the directory provisions placeholder agents only.
func (c *Config) GatewayConfigured() bool {
	return c.GatewayURL != "" && c.GatewayToken != ""
}

func (c *Config) Validate(isProduction bool) error {
	if isProduction {
		if err := validateSecret("AUTH_SECRET", c.AuthSecret); err != nil {
			return err
		}

		if c.TelegramWebhookSecret == "" {
			log.Warn().Msg("TELEGRAM_WEBHOOK_SECRET is empty in production: webhook authentication disabled")
		}
		if !c.GatewayConfigured() {
			log.Warn().Msg("OPENCLAW_GATEWAY_URL/TOKEN unset in production: agents will be demo placeholders")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
