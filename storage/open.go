package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jrsteele09/trivia-director/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Open returns the store selected by the configured driver.
func Open(ctx context.Context, c config.StorageConfig) (Store, error) {
	switch c.GetStorageDriver() {
	case config.StorageDriverMemory:
		return NewMemoryStore(), nil
	case config.StorageDriverSqlite:
		path := c.GetSqlitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "[storage.Open] creating data folder")
		}
		return OpenSqlite(path, 0)
	case config.StorageDriverRedis:
		return OpenRedis(ctx, &redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		}, "trivia:")
	default:
		return nil, errors.Errorf("[storage.Open] unknown driver %q", c.GetStorageDriver())
	}
}
