// Package integration spins up the real infrastructure (Postgres,
// Redis, Kafka) in containers for end-to-end saga tests. Tests that
// use it must be guarded so unit runs stay container-free.
package integration

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type Env struct {
	PG    *postgres.PostgresContainer
	Redis *tcredis.RedisContainer
	Kafka *kafka.KafkaContainer

	PGURL     string
	RedisAddr string
	Brokers   []string

	cancel context.CancelFunc
}

func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)

	env := &Env{cancel: cancel}
	fail := func(err error) (*Env, error) {
		env.Teardown(context.Background())
		return nil, err
	}

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("orderflow"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	if err != nil {
		return fail(err)
	}
	env.PG = pgC
	if env.PGURL, err = pgC.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return fail(err)
	}

	redisC, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return fail(err)
	}
	env.Redis = redisC
	redisURL, err := redisC.ConnectionString(ctx)
	if err != nil {
		return fail(err)
	}
	// redis.Run reports a redis:// URL; the client wants host:port.
	env.RedisAddr = trimScheme(redisURL)

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("orderflow-test"),
	)
	if err != nil {
		return fail(err)
	}
	env.Kafka = kafkaC
	if env.Brokers, err = kafkaC.Brokers(ctx); err != nil {
		return fail(err)
	}

	return env, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.Redis != nil {
		_ = e.Redis.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
	e.cancel()
}

func trimScheme(u string) string {
	const scheme = "redis://"
	if len(u) > len(scheme) && u[:len(scheme)] == scheme {
		return u[len(scheme):]
	}
	return u
}
