// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chainbadge"

var (
	// EndpointAttempts counts RPC endpoint attempts by chain and outcome
	// (ok, error, throttled).
	EndpointAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "endpoint_attempts_total",
		Help:      "RPC endpoint attempts by chain and outcome.",
	}, []string{"chain", "outcome"})

	EndpointAttemptSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "endpoint_attempt_seconds",
		Help:      "Latency of individual RPC endpoint attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain"})

	DirectoryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_refresh_total",
		Help:      "Chain directory refreshes by outcome.",
	}, []string{"outcome"})

	// CacheLookups counts response cache lookups by source (cache, rpc, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_cache_lookups_total",
		Help:      "Balance response cache lookups by source.",
	}, []string{"source"})

	BitcoinRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bitcoin_requests_total",
		Help:      "Bitcoin explorer requests by network and outcome.",
	}, []string{"network", "outcome"})
)
