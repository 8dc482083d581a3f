package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/catalog"
	"github.com/lcgani/agent-nexus/internal/config"
	"github.com/lcgani/agent-nexus/internal/telemetry"
	"github.com/lcgani/agent-nexus/semantic"
	"github.com/lcgani/agent-nexus/store"
)

const version = "0.1.0"

type cliOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	backend    string
	jsonOutput bool

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *telemetry.PrometheusMetrics
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "agentnexus",
		Short:         "Turn any HTTP API into a searchable agent tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default ./agent-nexus.yaml or ~/.agent-nexus/agent-nexus.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format override (console, json)")
	flags.StringVar(&opts.backend, "store", "", "store backend override (memory, bolt, elasticsearch)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newSetupCmd(opts),
		newDiscoverCmd(opts),
		newGenerateCmd(opts),
		newSearchCmd(opts),
		newPlanCmd(opts),
		newUsageCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func (o *cliOptions) load() error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.backend != "" {
		cfg.Store.Backend = o.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	o.registry = prometheus.NewRegistry()
	o.metrics = telemetry.NewPrometheusMetrics(o.registry)
	return nil
}

// openStore opens the configured backend. The returned closer is never nil.
func (o *cliOptions) openStore() (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch o.cfg.Store.Backend {
	case config.BackendBolt:
		if err := os.MkdirAll(filepath.Dir(o.cfg.Store.BoltPath), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create store directory: %w", err)
		}
		st, err := store.OpenBoltStore(o.cfg.Store.BoltPath)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case config.BackendElasticsearch:
		st, err := store.NewElasticStore(store.ElasticConfig{
			Addresses: []string{o.cfg.Store.Elasticsearch.URL},
			APIKey:    o.cfg.Store.Elasticsearch.APIKey,
		})
		if err != nil {
			return nil, noop, err
		}
		return st, noop, nil
	default:
		o.logger.Debug("using the in-memory store; nothing persists after exit")
		return store.NewMemoryStore(), noop, nil
	}
}

// baseEmbedder builds the configured embedding provider.
func (o *cliOptions) baseEmbedder() (semantic.Embedder, error) {
	emb := o.cfg.Embedding
	if emb.Provider != config.ProviderOpenAI {
		return semantic.NewHashEmbedder(emb.Dimensions), nil
	}
	remote, err := semantic.NewOpenAIEmbedder(semantic.OpenAIConfig{
		BaseURL: emb.BaseURL,
		APIKey:  emb.APIKey,
		Model:   emb.Model,
		Timeout: time.Duration(emb.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return semantic.NewEinoEmbedder(remote, emb.Dimensions)
}

// embedder wraps the configured provider with the configured cache.
func (o *cliOptions) embedder(ctx context.Context) (semantic.Embedder, func() error, error) {
	noop := func() error { return nil }
	base, err := o.baseEmbedder()
	if err != nil {
		return nil, noop, err
	}
	emb := o.cfg.Embedding

	var (
		cache  semantic.Cache
		closer = noop
	)
	switch emb.Cache {
	case config.CacheNone:
		return base, noop, nil
	case config.CacheRedis:
		rc, err := semantic.NewRedisCache(ctx, emb.Redis.Addr, emb.Redis.Password, emb.Redis.DB, emb.Redis.TTL())
		if err != nil {
			return nil, noop, err
		}
		cache, closer = rc, rc.Close
	default:
		cache = semantic.NewMemoryCache(10000)
	}
	cached, err := semantic.NewCachedEmbedder(base, cache, emb.Model, o.logger.Named("embedding"))
	if err != nil {
		_ = closer()
		return nil, noop, err
	}
	return cached, closer, nil
}

// service builds the catalog service. Call the returned function when done.
func (o *cliOptions) service(ctx context.Context, skipIndex bool) (*catalog.Service, func(), error) {
	st, closeStore, err := o.openStore()
	if err != nil {
		return nil, func() {}, err
	}
	emb, closeEmbedder, err := o.embedder(ctx)
	if err != nil {
		_ = closeStore()
		return nil, func() {}, err
	}
	dopts, err := o.cfg.Discovery.Options()
	if err != nil {
		_ = closeEmbedder()
		_ = closeStore()
		return nil, func() {}, err
	}

	svc, err := catalog.New(catalog.Options{
		Store:         st,
		Embedder:      emb,
		Dimensions:    o.cfg.Embedding.Dimensions,
		Discovery:     dopts,
		NumCandidates: o.cfg.Search.NumCandidates,
		SkipIndex:     skipIndex,
		Logger:        o.logger,
		Metrics:       o.metrics,
	})
	if err != nil {
		_ = closeEmbedder()
		_ = closeStore()
		return nil, func() {}, err
	}
	cleanup := func() {
		for _, c := range []func() error{svc.Close, closeEmbedder, closeStore} {
			if err := c(); err != nil {
				o.logger.Warn("cleanup failed", zap.Error(err))
			}
		}
	}
	return svc, cleanup, nil
}
