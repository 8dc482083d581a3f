// Package config loads agent-nexus settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lcgani/agent-nexus/discovery"
)

// EnvPrefix prefixes every environment override, e.g. NEXUS_STORE_BACKEND.
const EnvPrefix = "NEXUS"

// Store backends.
const (
	BackendMemory        = "memory"
	BackendBolt          = "bolt"
	BackendElasticsearch = "elasticsearch"
)

// Embedding caches.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Embedding providers.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Search    SearchConfig    `mapstructure:"search"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type StoreConfig struct {
	Backend       string              `mapstructure:"backend"`
	BoltPath      string              `mapstructure:"boltPath"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type ElasticsearchConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"apiKey"`
}

type EmbeddingConfig struct {
	// Provider is hash (offline feature hashing) or openai (any
	// OpenAI-compatible /embeddings endpoint).
	Provider       string      `mapstructure:"provider"`
	BaseURL        string      `mapstructure:"baseURL"`
	APIKey         string      `mapstructure:"apiKey"`
	TimeoutSeconds int         `mapstructure:"timeoutSeconds"`
	Model          string      `mapstructure:"model"`
	Dimensions     int         `mapstructure:"dimensions"`
	Cache          string      `mapstructure:"cache"`
	Redis          RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttlSeconds"`
}

// TTL returns the cache entry lifetime.
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

type DiscoveryConfig struct {
	ProbeDepth          string `mapstructure:"probeDepth"`
	SpecTimeoutSeconds  int    `mapstructure:"specTimeoutSeconds"`
	ProbeTimeoutSeconds int    `mapstructure:"probeTimeoutSeconds"`
	MaxRedirects        int    `mapstructure:"maxRedirects"`
}

// Options maps the settings onto discovery options. Zero timeouts keep
// the probe depth defaults.
func (d DiscoveryConfig) Options() (discovery.Options, error) {
	depth, err := discovery.ParseProbeDepth(d.ProbeDepth)
	if err != nil {
		return discovery.Options{}, err
	}
	return discovery.Options{
		Depth:        depth,
		SpecTimeout:  time.Duration(d.SpecTimeoutSeconds) * time.Second,
		ProbeTimeout: time.Duration(d.ProbeTimeoutSeconds) * time.Second,
		MaxRedirects: d.MaxRedirects,
	}, nil
}

type SearchConfig struct {
	NumCandidates int `mapstructure:"numCandidates"`
	TopK          int `mapstructure:"topK"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

// Load reads configFile when given, otherwise agent-nexus.yaml from the
// working directory or ~/.agent-nexus when present. Environment variables
// override file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("agent-nexus")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.agent-nexus")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindCompatEnv(v); err != nil {
		return nil, err
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Store.BoltPath = expandHome(cfg.Store.BoltPath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindCompatEnv accepts the unprefixed variable names used by earlier
// deployments. Prefixed variables win when both are set.
func bindCompatEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"store.elasticsearch.url":    "ELASTICSEARCH_URL",
		"store.elasticsearch.apiKey": "ELASTICSEARCH_API_KEY",
		"embedding.model":            "EMBEDDING_MODEL",
		"embedding.apiKey":           "OPENAI_API_KEY",
	}
	for key, env := range bindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendBolt)
	v.SetDefault("store.boltPath", "~/.agent-nexus/catalog.db")
	v.SetDefault("store.elasticsearch.url", "http://localhost:9200")
	v.SetDefault("store.elasticsearch.apiKey", "")

	v.SetDefault("embedding.provider", ProviderHash)
	v.SetDefault("embedding.baseURL", "https://api.openai.com/v1")
	v.SetDefault("embedding.apiKey", "")
	v.SetDefault("embedding.timeoutSeconds", 30)
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.cache", CacheMemory)
	v.SetDefault("embedding.redis.addr", "localhost:6379")
	v.SetDefault("embedding.redis.password", "")
	v.SetDefault("embedding.redis.db", 0)
	v.SetDefault("embedding.redis.ttlSeconds", 86400)

	v.SetDefault("discovery.probeDepth", string(discovery.DepthFast))
	v.SetDefault("discovery.specTimeoutSeconds", 0)
	v.SetDefault("discovery.probeTimeoutSeconds", 0)
	v.SetDefault("discovery.maxRedirects", 5)

	v.SetDefault("search.numCandidates", 100)
	v.SetDefault("search.topK", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.listenAddress", "")
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendBolt, BackendElasticsearch:
	default:
		return fmt.Errorf("%w: store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.Backend == BackendBolt && c.Store.BoltPath == "" {
		return fmt.Errorf("%w: store.boltPath is required for the bolt backend", ErrInvalidConfig)
	}
	if c.Store.Backend == BackendElasticsearch && c.Store.Elasticsearch.URL == "" {
		return fmt.Errorf("%w: store.elasticsearch.url is required", ErrInvalidConfig)
	}

	switch c.Embedding.Provider {
	case ProviderHash:
	case ProviderOpenAI:
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("%w: embedding.baseURL is required for the openai provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: embedding.provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: embedding.timeoutSeconds must not be negative", ErrInvalidConfig)
	}

	switch c.Embedding.Cache {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("%w: embedding.cache %q", ErrInvalidConfig, c.Embedding.Cache)
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidConfig)
	}

	if _, err := discovery.ParseProbeDepth(c.Discovery.ProbeDepth); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Discovery.SpecTimeoutSeconds < 0 || c.Discovery.ProbeTimeoutSeconds < 0 || c.Discovery.MaxRedirects < 0 {
		return fmt.Errorf("%w: discovery timeouts and maxRedirects must not be negative", ErrInvalidConfig)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("%w: search.topK must be at least 1", ErrInvalidConfig)
	}
	if c.Search.NumCandidates < 1 {
		return fmt.Errorf("%w: search.numCandidates must be at least 1", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
