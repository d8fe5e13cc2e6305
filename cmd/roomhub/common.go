package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/odvcencio/roomhub/internal/config"
	"github.com/odvcencio/roomhub/internal/generation"
	"github.com/odvcencio/roomhub/internal/persistence"
	"github.com/odvcencio/roomhub/internal/queue"
	"github.com/odvcencio/roomhub/internal/telemetry"
	"github.com/odvcencio/roomhub/internal/validation"
)

// openDB mirrors gothub's cmd/gothub openDB switch, generalized to
// roomhub's persistence package.
func openDB(cfg *config.Config) (persistence.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return persistence.OpenSQLite(cfg.Database.DSN)
	case "postgres":
		return persistence.OpenPostgres(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// openQueueStore honors --queue-driver: "redis" talks to cfg.Queue.RedisAddr,
// "memory" uses the in-process Store that also backs this package's tests,
// the same posture the teacher gives its sqlite-vs-postgres DB switch.
func openQueueStore(cfg *config.Config, driver string) (queue.Store, error) {
	switch driver {
	case "memory":
		return queue.NewMemStore(), nil
	case "redis":
		if cfg.Queue.RedisAddr == "" {
			return nil, fmt.Errorf("queue.redis_addr must be configured for --queue-driver=redis")
		}
		rdb := goredis.NewClient(&goredis.Options{
			Addr: cfg.Queue.RedisAddr,
			DB:   cfg.Queue.RedisDB,
		})
		return queue.NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported queue driver: %s", driver)
	}
}

// queues bundles both typed queues and their prometheus gauges, the unit
// both serve and worker construct at startup.
type queues struct {
	Validation        *queue.Queue[validation.Params, validation.Result]
	ValidationMetrics *queue.Metrics
	Generation        *queue.Queue[generation.Params, generation.Result]
	GenerationMetrics *queue.Metrics
}

// bootQueues builds both typed queues wired with claim TTL and
// prometheus metrics, ready for either serve's reclaim daemons or
// worker's claim loops.
func bootQueues(cfg *config.Config, store queue.Store, reg prometheus.Registerer) *queues {
	vq := queue.New[validation.Params, validation.Result]("validation", store, queue.WithClaimTTL[validation.Params, validation.Result](cfg.Queue.ClaimTTL))
	gq := queue.New[generation.Params, generation.Result]("generation", store, queue.WithClaimTTL[generation.Params, generation.Result](cfg.Queue.ClaimTTL))
	return &queues{
		Validation:        vq,
		ValidationMetrics: queue.NewMetrics(reg, "validation"),
		Generation:        gq,
		GenerationMetrics: queue.NewMetrics(reg, "generation"),
	}
}

// runMetricsLoops starts one RunMetricsLoop goroutine per queue, returning
// once ctx is cancelled.
func (q *queues) runMetricsLoops(ctx context.Context, log *slog.Logger) {
	go queue.RunMetricsLoop(ctx, q.Validation, q.ValidationMetrics, 15*time.Second, log)
	go queue.RunMetricsLoop(ctx, q.Generation, q.GenerationMetrics, 15*time.Second, log)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	return telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
}

func loggerFor(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

const defaultShutdownGrace = 10 * time.Second
