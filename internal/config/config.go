package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	CredentialConfig
	SecurityConfig
	StorageConfig
	SyncConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetLogFile() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetSmtpRecipient() string
	GetSystemAdminUser() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type StorageConfig interface {
	GetStorageDriver() string
	GetSqlitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type SyncConfig interface {
	GetSyncChannelPrefix() string
	GetSyncBufferSize() int
	GetHeartbeatInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Credentials
	Security
	Storage
	Sync
}

// New returns a configuration backed by environment variables and defaults.
func New() Config {
	return newMainConfig(nil)
}

// Load returns a configuration backed by environment variables, then the
// YAML file at path, then defaults. An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "[config.Load] reading %s", path)
	}
	return newMainConfig(&source{k: k}), nil
}

func newMainConfig(src *source) mainConfig {
	return mainConfig{
		EnvVars:     EnvVars{src: src},
		Cors:        Cors{src: src},
		Credentials: Credentials{src: src},
		Security:    Security{src: src},
		Storage:     Storage{src: src},
		Sync:        Sync{src: src},
	}
}
