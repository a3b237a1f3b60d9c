package config

import "time"

type SecurityConfig interface {
	GetSessionTTL() time.Duration
	GetRateLimitWindow() time.Duration
	GetRateLimitMaxAttempts() int
	GetRequestLimitPerDevice() int
	GetRequestLimitWindow() time.Duration
	GetAuditLogCap() int
}

type Security struct {
	src *source
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionTTL() time.Duration {
	return s.src.lookupDuration("SESSION_TTL", "security.session_ttl", 30*time.Minute)
}

func (s Security) GetRateLimitWindow() time.Duration {
	return s.src.lookupDuration("RATE_LIMIT_WINDOW", "security.rate_limit_window", time.Minute)
}

func (s Security) GetRateLimitMaxAttempts() int {
	return s.src.lookupInt("RATE_LIMIT_MAX", "security.rate_limit_max", 5)
}

func (s Security) GetRequestLimitPerDevice() int {
	return s.src.lookupInt("REQUEST_LIMIT_PER_DEVICE", "security.request_limit_per_device", 3)
}

func (s Security) GetRequestLimitWindow() time.Duration {
	return s.src.lookupDuration("REQUEST_LIMIT_WINDOW", "security.request_limit_window", 24*time.Hour)
}

func (s Security) GetAuditLogCap() int {
	return s.src.lookupInt("AUDIT_LOG_CAP", "security.audit_log_cap", 100)
}
