package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"idmcore/internal/platform/config"
	"idmcore/internal/platform/database"
	"idmcore/internal/platform/kafka"
	"idmcore/internal/platform/kafka/producer"
	platformredis "idmcore/internal/platform/redis"
)

// infra holds the optional backing services. Each is nil when not
// configured and the in-memory equivalent is used instead.
type infra struct {
	db       *database.Pool
	redis    *platformredis.Client
	producer *producer.Producer
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	in.db = db

	rc, err := platformredis.New(ctx, platformredis.Config{URL: cfg.RedisURL})
	if err != nil {
		in.Close(log)
		return nil, fmt.Errorf("redis: %w", err)
	}
	in.redis = rc

	if len(cfg.KafkaBrokers) > 0 {
		p, err := producer.New(kafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		if err != nil {
			in.Close(log)
			return nil, fmt.Errorf("kafka: %w", err)
		}
		in.producer = p
	}
	return in, nil
}

func (in *infra) Close(log *slog.Logger) {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			log.Warn("closing kafka producer", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Warn("closing redis client", "error", err)
		}
	}
	if err := in.db.Close(); err != nil {
		log.Warn("closing postgres pool", "error", err)
	}
}

// collectors returns the pool collectors of the configured services.
func (in *infra) collectors() []prometheus.Collector {
	var cs []prometheus.Collector
	if in.db != nil {
		cs = append(cs, in.db.Collector())
	}
	if in.redis != nil {
		cs = append(cs, in.redis.Collector())
	}
	return cs
}
