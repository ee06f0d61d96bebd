package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the storefront service reads at startup.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"` // "sqlite" or "postgres"
	DatabaseDSN    string `mapstructure:"DATABASE_DSN"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	AccessTokenTTL   time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL  time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	CheckoutDraftTTL time.Duration `mapstructure:"CHECKOUT_DRAFT_TTL"`

	PaymentDelay time.Duration `mapstructure:"PAYMENT_DELAY"`

	// CartStore and GuardStore select the persistence strategy: memory, redis or database.
	CartStore  string `mapstructure:"CART_STORE"`
	GuardStore string `mapstructure:"GUARD_STORE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	ShippingStandard int64  `mapstructure:"SHIPPING_STANDARD"`
	ShippingExpress  int64  `mapstructure:"SHIPPING_EXPRESS"`
	Currency         string `mapstructure:"CURRENCY"`

	SeedData bool `mapstructure:"SEED_DATA"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:haldor.db?cache=shared")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("CHECKOUT_DRAFT_TTL", "30m")
	v.SetDefault("PAYMENT_DELAY", "1200ms")
	v.SetDefault("CART_STORE", "database")
	v.SetDefault("GUARD_STORE", "database")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SHIPPING_STANDARD", 3990)
	v.SetDefault("SHIPPING_EXPRESS", 6990)
	v.SetDefault("CURRENCY", "CLP")
	v.SetDefault("SEED_DATA", true)
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes an already populated viper instance into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for key, val := range map[string]string{"CART_STORE": c.CartStore, "GUARD_STORE": c.GuardStore} {
		switch strings.ToLower(val) {
		case "memory", "redis", "database":
		default:
			return fmt.Errorf("invalid %s %q: want memory, redis or database", key, val)
		}
	}
	if (strings.EqualFold(c.CartStore, "redis") || strings.EqualFold(c.GuardStore, "redis")) && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when a store uses redis")
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	return nil
}
