package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/port"
)

// Stores bundles the repositories a process needs.
type Stores struct {
	Orders  port.OrderRepository
	Catalog port.CatalogRepository
	Cache   port.CacheRepository

	closers []func() error
}

func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the configured storage driver, applies migrations and seeds
// the catalog when it is empty.
func Open(ctx context.Context, cfg *config.Config, logger *gecho.Logger) (*Stores, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return &Stores{
			Orders:  NewMemoryOrderRepository(),
			Catalog: NewMemoryCatalog(),
			Cache:   NewMemoryCache(),
		}, nil
	}

	s := &Stores{}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	s.closers = append(s.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	logger.Info("Connected to MySQL")

	gdb, err := OpenGorm(db)
	if err != nil {
		s.Close()
		return nil, err
	}
	catalog := NewGormCatalog(gdb)
	if err := catalog.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if cfg.MySQL.Seed {
		if err := catalog.Seed(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	orders := NewMySQLAdapter(db)
	if err := orders.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	s.closers = append(s.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Connected to Redis", gecho.Field("addr", cfg.Redis.Addr))

	s.Orders = orders
	s.Catalog = catalog
	s.Cache = NewRedisAdapter(rdb)
	return s, nil
}
