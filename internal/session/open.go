package session

import (
	"fmt"

	"quickref/internal/config"
	"quickref/internal/redis"
	"quickref/internal/storage"
)

// Open builds the store selected by cfg.Session.Backend.
func Open(cfg *config.Config) (Store, error) {
	ttl := cfg.SessionTTL()
	switch backend := cfg.Session.Backend; backend {
	case "", "memory":
		return NewMemoryStore(ttl, cfg.Session.Capacity), nil
	case "redis":
		client, err := redis.NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		return NewRedisStore(client, ttl), nil
	case "sqlite", "sqlite3", "mysql":
		db, err := storage.Open(backend, cfg)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(db, backend); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLStore(db, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", backend)
	}
}
