package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	Indexer  IndexerConfig  `koanf:"indexer"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release

	// ReplaySecret protects the replay trigger endpoint. Empty disables
	// the endpoint entirely rather than leaving it open.
	ReplaySecret string `koanf:"replay_secret"`
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type LedgerConfig struct {
	RPCURL string `koanf:"rpc_url"`

	// ProgramID is the base58 address of the on-chain program to mirror.
	// Empty means the sync engine cannot run; the query surface still can.
	ProgramID string `koanf:"program_id"`

	// IDLPath points at the program interface schema (Anchor IDL JSON).
	IDLPath string `koanf:"idl_path"`

	// RequestTimeout bounds every single RPC call to the ledger.
	RequestTimeout string `koanf:"request_timeout"`
}

type IndexerConfig struct {
	Enabled       bool   `koanf:"enabled"`
	PollInterval  string `koanf:"poll_interval"`
	LookbackLimit int    `koanf:"lookback_limit"`
	Commitment    string `koanf:"commitment"` // processed | confirmed | finalized
	StreamKey     string `koanf:"stream_key"`
}

func (c LedgerConfig) EffectiveRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if strings.TrimSpace(c.Ledger.RPCURL) == "" {
		return fmt.Errorf("ledger.rpc_url is required")
	}
	if c.Indexer.Enabled && strings.TrimSpace(c.Ledger.ProgramID) == "" {
		return fmt.Errorf("ledger.program_id is required when indexer.enabled is true")
	}
	if c.Ledger.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.Ledger.RequestTimeout); err != nil {
			return fmt.Errorf("invalid ledger.request_timeout %q: %w", c.Ledger.RequestTimeout, err)
		}
	}

	interval, err := time.ParseDuration(c.Indexer.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid indexer.poll_interval %q: %w", c.Indexer.PollInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("indexer.poll_interval must be > 0")
	}
	if c.Indexer.LookbackLimit <= 0 || c.Indexer.LookbackLimit > 1000 {
		return fmt.Errorf("indexer.lookback_limit must be 1-1000")
	}
	switch c.Indexer.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid indexer.commitment %q (must be processed, confirmed or finalized)", c.Indexer.Commitment)
	}
	if strings.TrimSpace(c.Indexer.StreamKey) == "" {
		return fmt.Errorf("indexer.stream_key is required")
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.mode":             "release",
		"server.replay_secret":    "",
		"database.dsn":            "postgres://localhost:5432/heliograph?sslmode=disable",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"ledger.rpc_url":          "https://api.devnet.solana.com",
		"ledger.program_id":       "",
		"ledger.idl_path":         "./idl/heliograph.json",
		"ledger.request_timeout":  "15s",
		"indexer.enabled":         true,
		"indexer.poll_interval":   "15s",
		"indexer.lookback_limit":  100,
		"indexer.commitment":      "confirmed",
		"indexer.stream_key":      "default",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("HELIOGRAPH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "HELIOGRAPH_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
