package injector

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/zeusync/forge/internal/config"
	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/events/bus"
	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/internal/core/observability/metrics"
	"github.com/zeusync/forge/pkg/concurrent"
)

// ProviderSet builds every long-lived engine service from a Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideReporter,
	ProvideEventBus,
	ProvideWorld,
	ProvidePool,
	ProvideRedisSource,
	ProvideLoader,
	wire.Struct(new(Runtime), "*"),
)

// Runtime bundles the services a game needs before registering systems.
type Runtime struct {
	Config   config.Config
	Logger   log.Log
	Reporter metrics.Reporter
	Bus      bus.EventBus
	World    *ecs.World
	Pool     *concurrent.Pool
	Loader   *asset.Loader
}

func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.Level())
}

// ProvideReporter connects to statsd when an address is configured.
func ProvideReporter(cfg config.Config, logger log.Log) (metrics.Reporter, func(), error) {
	if cfg.StatsdAddr == "" {
		return metrics.Nop{}, func() {}, nil
	}
	r, err := metrics.NewStatsd(cfg.StatsdAddr, cfg.StatsdNamespace)
	if err != nil {
		return nil, nil, err
	}
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Warn("statsd close failed", log.Error(err))
		}
	}, nil
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideWorld(cfg config.Config, logger log.Log, b bus.EventBus) *ecs.World {
	return ecs.NewWorld(
		ecs.WithLogger(logger),
		ecs.WithEventBus(b),
		ecs.WithDefaultStrategy(cfg.Strategy()),
		ecs.WithHashShards(cfg.HashShards),
	)
}

// ProvidePool starts the loader's worker pool.
func ProvidePool(cfg config.Config, logger log.Log) (*concurrent.Pool, func()) {
	pool := concurrent.NewPool(cfg.LoaderWorkers, concurrent.WithPanicHandler(func(r any) {
		logger.Error("asset worker panicked", log.Any("value", r))
	}))
	return pool, pool.Close
}

// RedisSource is the optional Redis asset source; nil when no address is
// configured.
type RedisSource struct {
	*asset.Redis
}

func ProvideRedisSource(cfg config.Config) (RedisSource, func()) {
	if cfg.RedisAddr == "" {
		return RedisSource{}, func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return RedisSource{Redis: asset.NewRedis(client, asset.WithKeyPrefix(cfg.RedisPrefix))}, func() {
		_ = client.Close()
	}
}

// ProvideLoader reads from AssetRoot by default and from Redis as "redis"
// when configured.
func ProvideLoader(cfg config.Config, pool *concurrent.Pool, logger log.Log, b bus.EventBus, rs RedisSource) *asset.Loader {
	opts := []asset.LoaderOption{
		asset.WithDefaultSource(asset.NewDirectory(cfg.AssetRoot)),
		asset.WithLogger(logger),
		asset.WithEventBus(b),
	}
	if rs.Redis != nil {
		opts = append(opts, asset.WithSource("redis", rs.Redis))
	}
	return asset.NewLoader(pool, opts...)
}
