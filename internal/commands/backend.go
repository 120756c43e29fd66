package commands

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tarantool/go-tarantool/v2"
	"github.com/tarantool/go-tarantool/v2/pool"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/playhouse-bot/go-storage"
	"github.com/playhouse-bot/go-storage/driver"
	"github.com/playhouse-bot/go-storage/driver/dummy"
	"github.com/playhouse-bot/go-storage/driver/etcd"
	"github.com/playhouse-bot/go-storage/driver/redis"
	"github.com/playhouse-bot/go-storage/driver/tkv"
	"github.com/playhouse-bot/go-storage/internal/config"
)

// openStorage connects the configured backend. The returned func closes the
// underlying client.
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Storage, func() error, error) {
	drv, closer, err := openDriver(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("storage backend opened", zap.String("backend", cfg.Backend), zap.Strings("endpoints", cfg.Endpoints))

	return storage.NewStorage(drv, storage.WithLogger(logger.Named("storage"))), closer, nil
}

func openDriver(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (driver.Driver, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return dummy.New(), func() error { return nil }, nil

	case config.BackendEtcd:
		client, err := clientv3.New(clientv3.Config{ //nolint:exhaustruct
			Endpoints:   cfg.Endpoints,
			Username:    cfg.Username,
			Password:    cfg.Password,
			DialTimeout: cfg.Timeout,
			Logger:      logger.Named("etcd-client"),
			Context:     ctx,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}

		return etcd.New(client, etcd.WithLogger(logger.Named("etcd"))), client.Close, nil

	case config.BackendRedis:
		client := goredis.NewUniversalClient(&goredis.UniversalOptions{ //nolint:exhaustruct
			Addrs:       cfg.Endpoints,
			Username:    cfg.Username,
			Password:    cfg.Password,
			DialTimeout: cfg.Timeout,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		drv := redis.New(client, redis.WithNamespace(cfg.Namespace), redis.WithLogger(logger.Named("redis")))

		return drv, client.Close, nil

	case config.BackendTarantool:
		instances := make([]pool.Instance, 0, len(cfg.Endpoints))
		for i, addr := range cfg.Endpoints {
			instances = append(instances, pool.Instance{
				Name: "instance-" + strconv.Itoa(i),
				Dialer: &tarantool.NetDialer{ //nolint:exhaustruct
					Address:  addr,
					User:     cfg.Username,
					Password: cfg.Password,
				},
				Opts: tarantool.Opts{Timeout: cfg.Timeout}, //nolint:exhaustruct
			})
		}

		conn, err := pool.Connect(ctx, instances)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to tarantool pool: %w", err)
		}

		return tkv.New(pool.NewConnectorAdapter(conn, pool.RW)), func() error {
			if errs := conn.Close(); len(errs) > 0 {
				return fmt.Errorf("failed to close tarantool pool: %v", errs)
			}

			return nil
		}, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
}
