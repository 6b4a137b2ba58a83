package main

import (
	"fmt"

	"storefront/internal/adapter/memory"
	"storefront/internal/adapter/postgres"
	"storefront/internal/adapter/redis"
	"storefront/internal/config"
	"storefront/internal/domain"
)

// store is a backend holding both carts and session entries.
type store interface {
	domain.CartRepository
	domain.SessionRepository
}

// openStore opens the configured backend. The postgres backend runs its
// migrations while opening.
func openStore(c config.StoreConfig) (store, func() error, error) {
	switch c.Kind {
	case config.StorePostgres:
		db, err := postgres.Open(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		return db, db.Close, nil
	case config.StoreRedis:
		rs, err := redis.Open(c.RedisAddr, c.RedisPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("redis open: %w", err)
		}
		return rs, rs.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}
