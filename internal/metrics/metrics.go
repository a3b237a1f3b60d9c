// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	SessionsRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "sessions_revoked_total",
		Help:      "Sessions removed by reason.",
	}, []string{"reason"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "rate_limited_total",
		Help:      "Attempts rejected by the sliding window limiter.",
	}, []string{"key"})

	TokenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "token_requests_total",
		Help:      "Public token request submissions by outcome.",
	}, []string{"outcome"})

	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "broadcast_messages_total",
		Help:      "Broadcast envelopes published by type.",
	}, []string{"type"})

	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "broadcast_dropped_total",
		Help:      "Envelopes dropped because a subscriber queue was full.",
	})

	ConnectedWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia",
		Name:      "connected_windows",
		Help:      "Windows attached through the websocket bridge.",
	})
)
