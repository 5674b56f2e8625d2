// Package config loads service configuration from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// maxConfirmTimeout caps how long any operation may wait for a terminal
// receipt.
const maxConfirmTimeout = 10 * time.Minute

// Config is the full service configuration.
type Config struct {
	// Chain
	RPCEndpoint      string        `env:"STARKNET_RPC_ENDPOINT,required"`
	WSEndpoint       string        `env:"STARKNET_WS_ENDPOINT"`
	AccountClassHash string        `env:"ACCOUNT_CLASS_HASH,required"`
	ConfirmTimeout   time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"3m"`

	// Custody. Hex-encoded process-wide key material; never logged.
	CustodyKeyHex string `env:"CUSTODY_KEY,required,unset"`
	CustodyIVHex  string `env:"CUSTODY_IV,required,unset"`

	// Deployment
	DeployFeeMultiplier int64 `env:"DEPLOY_FEE_MULTIPLIER" envDefault:"50"`

	// External services
	AggregatorURL string `env:"AGGREGATOR_URL" envDefault:"https://starknet.api.avnu.fi"`
	BridgeURL     string `env:"BRIDGE_URL" envDefault:"https://api.orbiter.finance"`
	OpenAIKey     string `env:"OPENAI_API_KEY,unset"`
	OpenAIModel   string `env:"OPENAI_MODEL"`

	// Storage. Empty Postgres DSN selects the in-memory store.
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// Server
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	key, err := hex.DecodeString(c.CustodyKeyHex)
	if err != nil {
		return fmt.Errorf("CUSTODY_KEY: not hex")
	}
	if len(key) != 32 {
		return fmt.Errorf("CUSTODY_KEY: want 32 bytes, got %d", len(key))
	}
	iv, err := hex.DecodeString(c.CustodyIVHex)
	if err != nil {
		return fmt.Errorf("CUSTODY_IV: not hex")
	}
	if len(iv) != 12 {
		return fmt.Errorf("CUSTODY_IV: want 12 bytes, got %d", len(iv))
	}
	if c.DeployFeeMultiplier <= 0 {
		return fmt.Errorf("DEPLOY_FEE_MULTIPLIER: must be positive")
	}
	if c.ConfirmTimeout <= 0 || c.ConfirmTimeout > maxConfirmTimeout {
		return fmt.Errorf("CONFIRM_TIMEOUT: must be in (0, %s]", maxConfirmTimeout)
	}
	return nil
}

// CustodyKey returns the decoded custody key.
func (c *Config) CustodyKey() []byte {
	key, _ := hex.DecodeString(c.CustodyKeyHex)
	return key
}

// CustodyIV returns the decoded custody IV.
func (c *Config) CustodyIV() []byte {
	iv, _ := hex.DecodeString(c.CustodyIVHex)
	return iv
}
