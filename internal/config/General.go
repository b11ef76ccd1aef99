package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// AppConfig holds all application configuration loaded from environment variables.
// It is populated once at startup by LoadConfig and passed explicitly afterwards.
type AppConfig struct {
	Endpoints

	// Chain is the chain slug used for pool ids and price keys.
	Chain string `envconfig:"CHAIN" default:"hyperliquid"`

	// RPCTimeout bounds every eth_call (or aggregate3 batch).
	RPCTimeout time.Duration `envconfig:"RPC_TIMEOUT" default:"30s"`
	// PriceTimeout bounds every price API request.
	PriceTimeout time.Duration `envconfig:"PRICE_TIMEOUT" default:"30s"`

	// MaxConcurrency caps the number of in-flight market fetches per protocol.
	MaxConcurrency int `envconfig:"MAX_CONCURRENCY" default:"8"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// WebPort is the port the HTTP API listens on.
	WebPort int `envconfig:"WEB_PORT" default:"8080"`

	// ProtocolsFile overrides the embedded protocol table when set.
	ProtocolsFile string `envconfig:"PROTOCOLS_FILE"`
}

// LoadConfig loads a .env file when one exists and then reads the configuration from
// environment variables. RPC_URL is required; everything else has a default.
func LoadConfig() (AppConfig, error) {
	log.Info().Msg("Loading application configuration from environment variables...")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	cfg.Endpoints.logLoaded()
	log.Debug().
		Str("Chain", cfg.Chain).
		Dur("RPCTimeout", cfg.RPCTimeout).
		Dur("PriceTimeout", cfg.PriceTimeout).
		Int("MaxConcurrency", cfg.MaxConcurrency).
		Int("WebPort", cfg.WebPort).
		Str("ProtocolsFile", cfg.ProtocolsFile).
		Msg("Configuration loaded successfully.")

	return cfg, nil
}

// Validate checks value ranges envconfig cannot express.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("%w: RPC_URL must not be empty", ErrInvalidConfig)
	}
	if c.Chain == "" {
		return fmt.Errorf("%w: CHAIN must not be empty", ErrInvalidConfig)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENCY must be positive, got %d", ErrInvalidConfig, c.MaxConcurrency)
	}
	if c.RPCTimeout < 0 || c.PriceTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("%w: WEB_PORT out of range: %d", ErrInvalidConfig, c.WebPort)
	}
	return nil
}
