package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reelscout/discovery-cli/internal/analytics"
	"github.com/reelscout/discovery-cli/internal/cache"
	"github.com/reelscout/discovery-cli/internal/config"
	"github.com/reelscout/discovery-cli/internal/fanout"
	"github.com/reelscout/discovery-cli/internal/fusion"
	"github.com/reelscout/discovery-cli/internal/health"
	"github.com/reelscout/discovery-cli/internal/hub"
	"github.com/reelscout/discovery-cli/internal/registry"
	"github.com/reelscout/discovery-cli/internal/source"
	"github.com/reelscout/discovery-cli/internal/store"
)

// hubEnv holds the wired hub plus the collaborators commands need direct
// access to. Callers should defer env.Close().
type hubEnv struct {
	Hub      *hub.Hub
	Registry *registry.Registry
	Adapters *source.Set
	Monitor  *health.Monitor
	Store    store.Store
}

// Close releases resources held by the environment.
func (e *hubEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initHub loads the source catalog, builds an adapter per source, and wires
// the hub with its registry, executor, ranker, cache, and store.
func initHub(ctx context.Context) (*hubEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	cat, err := config.LoadSources(cfg.Sources.Path)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	reg := registry.New(registry.DefaultTuning())
	adapters := source.NewSet()

	for _, spec := range cat.Sources {
		err := reg.Register(registry.Source{
			ID:             spec.ID,
			Name:           spec.Name,
			Type:           registry.SourceType(spec.Type),
			Endpoint:       spec.Endpoint,
			Reliability:    spec.Reliability,
			CostPerRequest: spec.CostPerRequest,
			DailyLimit:     spec.DailyLimit,
			Priority:       spec.Priority,
			Capabilities:   spec.Capabilities,
			Regions:        spec.Regions,
		})
		if err != nil {
			_ = st.Close()
			return nil, err
		}

		if spec.Endpoint == "" {
			zap.L().Warn("source has no endpoint, skipping adapter", zap.String("source", spec.ID))
			continue
		}
		adapters.Register(source.NewHTTPAdapter(spec.ID, spec.Endpoint, source.HTTPOptions{
			UserAgent: "discovery-cli",
			APIKey:    spec.APIKey,
			Timeout:   time.Duration(cfg.Search.FanOutTimeoutMs) * time.Millisecond,
			RateLimit: rate.Limit(spec.RateLimit),
			Burst:     spec.Burst,
		}))
	}

	recorder := analytics.NewRecorder()
	executor := fanout.New(reg, adapters, recorder, time.Duration(cfg.Search.FanOutTimeoutMs)*time.Millisecond)

	weights := fusion.DefaultWeights()
	weights.Popularity = cfg.Fusion.Popularity
	weights.Rating = cfg.Fusion.Rating
	weights.Confidence = cfg.Fusion.Confidence
	weights.CulturalRelevance = cfg.Fusion.CulturalRelevance
	weights.Trending = cfg.Fusion.Trending
	ranker := fusion.New(weights, cfg.Search.ResultLimit)

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewMemory()
	}

	h := hub.New(reg, adapters, executor, ranker, recorder, c, st, hub.Options{
		CacheTTL:    time.Duration(cfg.Cache.TTLSecs) * time.Second,
		ResultLimit: cfg.Search.ResultLimit,
	})

	mon := health.NewMonitor(reg, adapters, health.Options{
		ProbeInterval: time.Duration(cfg.Health.ProbeIntervalSecs) * time.Second,
		ProbeTimeout:  time.Duration(cfg.Health.ProbeTimeoutSecs) * time.Second,
	})

	zap.L().Info("hub initialized",
		zap.Int("sources", len(cat.Sources)),
		zap.String("store", cfg.Store.Driver))

	return &hubEnv{
		Hub:      h,
		Registry: reg,
		Adapters: adapters,
		Monitor:  mon,
		Store:    st,
	}, nil
}
