package config

import "path/filepath"

const (
	StorageDriverMemory = "memory"
	StorageDriverSqlite = "sqlite"
	StorageDriverRedis  = "redis"
)

type Storage struct {
	src *source
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageDriver() string {
	return s.src.lookup("STORAGE_DRIVER", "storage.driver", StorageDriverSqlite)
}

func (s Storage) GetSqlitePath() string {
	folder := EnvVars(s).GetDataFolder()
	return s.src.lookup("SQLITE_PATH", "storage.sqlite_path", filepath.Join(folder, "trivia.db"))
}

func (s Storage) GetRedisAddr() string {
	return s.src.lookup("REDIS_ADDR", "storage.redis_addr", "localhost:6379")
}

func (s Storage) GetRedisPassword() string {
	return s.src.lookup("REDIS_PASSWORD", "storage.redis_password", "")
}

func (s Storage) GetRedisDB() int {
	return s.src.lookupInt("REDIS_DB", "storage.redis_db", 0)
}
