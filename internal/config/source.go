package config

import (
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/v2"
)

// source resolves a setting from the environment, then the optional
// config file, then the supplied default.
type source struct {
	k *koanf.Koanf
}

func (s *source) lookup(envVar, key, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if s != nil && s.k != nil && s.k.Exists(key) {
		if value := s.k.String(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func (s *source) lookupInt(envVar, key string, defaultValue int) int {
	value, err := strconv.Atoi(s.lookup(envVar, key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *source) lookupDuration(envVar, key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(s.lookup(envVar, key, defaultValue.String()))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
