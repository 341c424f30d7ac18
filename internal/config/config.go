// Package config loads the scout YAML configuration and overlays secrets
// from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"runner-scout/internal/alert"
	"runner-scout/internal/domain"
	"runner-scout/internal/enrich"
	"runner-scout/internal/filter"
	"runner-scout/internal/provider"
	"runner-scout/internal/scoring"
	"runner-scout/internal/seen"
)

// Default configuration values.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultFetchLimit   = 20
	DefaultServerAddr   = ":9090"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultRedisPrefix  = "scout:meta:"
	DefaultHolderLimit  = 1000
)

// Environment variables read by ApplyEnv.
const (
	EnvHeliusAPIKey  = "HELIUS_API_KEY"
	EnvAlchemyAPIKey = "ALCHEMY_API_KEY"
	EnvBirdeyeAPIKey = "BIRDEYE_API_KEY"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvKafkaBrokers  = "KAFKA_BROKERS"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete scout configuration.
type Config struct {
	PollInterval      time.Duration  `yaml:"poll_interval"`
	Cooldown          time.Duration  `yaml:"cooldown"`
	FetchLimit        int            `yaml:"fetch_limit"`
	AlwaysRunFallback bool           `yaml:"always_run_fallback"`
	Sources           []SourceConfig `yaml:"sources"`
	Scoring           ScoringConfig  `yaml:"scoring"`
	Filter            FilterConfig   `yaml:"filter"`
	Enrich            EnrichConfig   `yaml:"enrich"`
	Sinks             SinksConfig    `yaml:"sinks"`
	Server            ServerConfig   `yaml:"server"`
	Log               LogConfig      `yaml:"log"`
}

// BreakerConfig tunes a source circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// SourceConfig describes one upstream source.
type SourceConfig struct {
	Name           string              `yaml:"name"`
	Kind           provider.SourceKind `yaml:"kind"`
	Group          domain.SourceGroup  `yaml:"group"`
	Chain          domain.Chain        `yaml:"chain"`
	Query          string              `yaml:"query"`
	BaseURL        string              `yaml:"base_url"`
	APIURL         string              `yaml:"api_url"`
	Endpoints      []string            `yaml:"endpoints"`
	Limit          int                 `yaml:"limit"`
	Timeout        time.Duration       `yaml:"timeout"`
	RPS            float64             `yaml:"rps"`
	Burst          int                 `yaml:"burst"`
	Breaker        BreakerConfig       `yaml:"breaker"`
	Enabled        *bool               `yaml:"enabled"`
	MaxMarketCap   float64             `yaml:"max_market_cap"`
	DefaultHolders int                 `yaml:"default_holders"`
	Headers        map[string]string   `yaml:"headers"`
}

// IsEnabled reports whether the source runs; sources are enabled unless
// explicitly disabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ScoringConfig holds per-chain policy overrides. Lists left empty keep the
// built-in values.
type ScoringConfig struct {
	Chains map[domain.Chain]scoring.Policy `yaml:"chains"`
}

// FilterConfig configures the filter stage.
type FilterConfig struct {
	HighScoreCutoff float64                                 `yaml:"high_score_cutoff"`
	Narrative       string                                  `yaml:"narrative"`
	Chains          map[domain.Chain]filter.ChainThresholds `yaml:"chains"`
}

// EnrichConfig configures metadata enrichment.
type EnrichConfig struct {
	SolanaRPCURL  string        `yaml:"solana_rpc_url"`
	AlchemyURL    string        `yaml:"alchemy_url"`
	MaxPerCycle   int           `yaml:"max_per_cycle"`
	HolderLimit   int           `yaml:"holder_limit"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

// Enabled reports whether any metadata source is configured.
func (e EnrichConfig) Enabled() bool {
	return e.SolanaRPCURL != "" || e.AlchemyURL != ""
}

// KafkaConfig configures the Kafka alert sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SinksConfig selects alert and observation sinks.
type SinksConfig struct {
	Log           bool        `yaml:"log"`
	EmitEmpty     bool        `yaml:"emit_empty"`
	Kafka         KafkaConfig `yaml:"kafka"`
	PostgresDSN   string      `yaml:"postgres_dsn"`
	ClickhouseDSN string      `yaml:"clickhouse_dsn"`
	MemoryAlerts  int         `yaml:"memory_alerts"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled reports whether the status server runs.
func (s ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path, applies defaults and the environment, and validates the
// result. An empty path yields the built-in configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Cooldown == 0 {
		c.Cooldown = seen.DefaultCooldown
	}
	if c.FetchLimit == 0 {
		c.FetchLimit = DefaultFetchLimit
	}
	if len(c.Sources) == 0 {
		c.Sources = DefaultSources()
	}
	for i := range c.Sources {
		if c.Sources[i].Group == "" {
			c.Sources[i].Group = domain.GroupPreferred
		}
	}
	if c.Filter.HighScoreCutoff == 0 {
		c.Filter.HighScoreCutoff = filter.DefaultHighScoreCutoff
	}
	chains := filter.DefaultChainThresholds()
	for chain, th := range c.Filter.Chains {
		chains[chain] = th
	}
	c.Filter.Chains = chains

	if c.Enrich.MaxPerCycle == 0 {
		c.Enrich.MaxPerCycle = enrich.DefaultMaxPerCycle
	}
	if c.Enrich.CacheTTL == 0 {
		c.Enrich.CacheTTL = enrich.DefaultTTL
	}
	if c.Enrich.HolderLimit == 0 {
		c.Enrich.HolderLimit = DefaultHolderLimit
	}
	if c.Enrich.RedisPrefix == "" {
		c.Enrich.RedisPrefix = DefaultRedisPrefix
	}
	if c.Sinks.Kafka.Topic == "" {
		c.Sinks.Kafka.Topic = alert.DefaultKafkaTopic
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// ApplyEnv overlays secrets and endpoints from getenv. Values already set
// in the file win, except API keys which only ever come from the
// environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if key := getenv(EnvHeliusAPIKey); key != "" && c.Enrich.SolanaRPCURL == "" {
		c.Enrich.SolanaRPCURL = "https://mainnet.helius-rpc.com/?api-key=" + key
	}
	if key := getenv(EnvAlchemyAPIKey); key != "" && c.Enrich.AlchemyURL == "" {
		c.Enrich.AlchemyURL = "https://eth-mainnet.g.alchemy.com/v2/" + key
	}
	if key := getenv(EnvBirdeyeAPIKey); key != "" {
		for i := range c.Sources {
			if c.Sources[i].Kind != provider.SourceBirdeye {
				continue
			}
			if c.Sources[i].Headers == nil {
				c.Sources[i].Headers = make(map[string]string)
			}
			c.Sources[i].Headers["X-API-KEY"] = key
		}
	}
	if v := getenv(EnvPostgresDSN); v != "" && c.Sinks.PostgresDSN == "" {
		c.Sinks.PostgresDSN = v
	}
	if v := getenv(EnvClickhouseDSN); v != "" && c.Sinks.ClickhouseDSN == "" {
		c.Sinks.ClickhouseDSN = v
	}
	if v := getenv(EnvRedisAddr); v != "" && c.Enrich.RedisAddr == "" {
		c.Enrich.RedisAddr = v
	}
	if v := getenv(EnvKafkaBrokers); v != "" && len(c.Sinks.Kafka.Brokers) == 0 {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Sinks.Kafka.Brokers = append(c.Sinks.Kafka.Brokers, b)
			}
		}
	}
}

// Validate checks the configuration for startup errors.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("%w: cooldown must be positive", ErrInvalidConfig)
	}
	if c.FetchLimit < 0 {
		return fmt.Errorf("%w: fetch_limit must be non-negative", ErrInvalidConfig)
	}

	names := make(map[string]bool)
	enabled := 0
	for i, s := range c.Sources {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: sources[%d]: %v", ErrInvalidConfig, i, err)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, s.Name)
		}
		names[s.Name] = true
		if s.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w: no enabled sources", ErrInvalidConfig)
	}

	for chain, p := range c.Scoring.Chains {
		if !chain.IsValid() {
			return fmt.Errorf("%w: scoring: unknown chain %q", ErrInvalidConfig, chain)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: scoring %s: %v", ErrInvalidConfig, chain, err)
		}
	}

	if c.Filter.HighScoreCutoff < 0 || c.Filter.HighScoreCutoff > scoring.MaxScore {
		return fmt.Errorf("%w: filter: high_score_cutoff %v out of range", ErrInvalidConfig, c.Filter.HighScoreCutoff)
	}
	if _, err := regexp.Compile("(?i)" + c.Filter.Narrative); err != nil {
		return fmt.Errorf("%w: filter: narrative: %v", ErrInvalidConfig, err)
	}
	for chain, th := range c.Filter.Chains {
		if !chain.IsValid() {
			return fmt.Errorf("%w: filter: unknown chain %q", ErrInvalidConfig, chain)
		}
		if err := th.Strict.Validate(); err != nil {
			return fmt.Errorf("%w: filter %s strict: %v", ErrInvalidConfig, chain, err)
		}
		if err := th.Relaxed.Validate(); err != nil {
			return fmt.Errorf("%w: filter %s relaxed: %v", ErrInvalidConfig, chain, err)
		}
	}

	if c.Enrich.MaxPerCycle < 0 || c.Enrich.CacheTTL < 0 {
		return fmt.Errorf("%w: enrich: negative limit or ttl", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func (s SourceConfig) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("%s: unknown kind %q", s.Name, s.Kind)
	}
	if !s.Group.IsValid() {
		return fmt.Errorf("%s: unknown group %q", s.Name, s.Group)
	}
	if s.Chain != "" && !s.Chain.IsValid() {
		return fmt.Errorf("%s: unknown chain %q", s.Name, s.Chain)
	}
	if s.Kind == provider.SourceDexScreenerSearch && s.Query == "" {
		return fmt.Errorf("%s: query is required", s.Name)
	}
	if s.Kind == provider.SourceDexScreenerLatest && s.Chain == "" {
		return fmt.Errorf("%s: chain is required", s.Name)
	}
	if s.Limit < 0 || s.Timeout < 0 || s.RPS < 0 || s.Burst < 0 || s.MaxMarketCap < 0 || s.DefaultHolders < 0 {
		return fmt.Errorf("%s: negative value", s.Name)
	}
	return nil
}

// Policies returns the scoring tables with overrides applied.
func (c *Config) Policies() scoring.Policies {
	p := scoring.DefaultPolicies()
	for chain, override := range c.Scoring.Chains {
		p.ByChain[chain] = mergePolicy(p.For(chain), override)
	}
	return p
}

func mergePolicy(base, o scoring.Policy) scoring.Policy {
	if len(o.MarketCap) > 0 {
		base.MarketCap = o.MarketCap
	}
	if len(o.Liquidity) > 0 {
		base.Liquidity = o.Liquidity
	}
	if len(o.Freshness) > 0 {
		base.Freshness = o.Freshness
	}
	if len(o.Momentum) > 0 {
		base.Momentum = o.Momentum
	}
	if o.MomentumCap > 0 {
		base.MomentumCap = o.MomentumCap
	}
	if len(o.VolumeRatio) > 0 {
		base.VolumeRatio = o.VolumeRatio
	}
	if len(o.Acceleration) > 0 {
		base.Acceleration = o.Acceleration
	}
	if len(o.BuyPressure) > 0 {
		base.BuyPressure = o.BuyPressure
	}
	if o.MinTxnsForPressure > 0 {
		base.MinTxnsForPressure = o.MinTxnsForPressure
	}
	return base
}

// ProviderSpec converts a source entry into an adapter spec.
func (s SourceConfig) ProviderSpec() provider.Spec {
	return provider.Spec{
		Name:           s.Name,
		Kind:           s.Kind,
		Chain:          s.Chain,
		Query:          s.Query,
		BaseURL:        s.BaseURL,
		APIURL:         s.APIURL,
		Endpoints:      s.Endpoints,
		DefaultHolders: s.DefaultHolders,
		Client: provider.ClientOptions{
			Timeout:         s.Timeout,
			RPS:             s.RPS,
			Burst:           s.Burst,
			BreakerFailures: s.Breaker.ConsecutiveFailures,
			BreakerTimeout:  s.Breaker.OpenTimeout,
			Headers:         s.Headers,
		},
	}
}
