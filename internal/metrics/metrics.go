// Package metrics holds the prometheus collectors shared across the
// relayer's packages, registered at init the way
// beacon-chain/cache/sync_committee.go registers its hit/miss counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsForwarded counts packets successfully enqueued to a subscriber.
	PacketsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_packets_forwarded_total",
		Help: "Number of packets successfully queued to a subscriber.",
	}, []string{"validator"})

	// PacketsDropped counts packets dropped because a subscriber's queue was
	// full, or, under the "block-engine" label, because the block-engine
	// queue was full.
	PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_packets_dropped_total",
		Help: "Number of packets dropped because the subscriber (or block-engine) queue was full.",
	}, []string{"validator"})

	// SubscriberCount tracks the number of currently connected subscribers.
	SubscriberCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_subscriber_count",
		Help: "Number of validators currently subscribed to the packet stream.",
	})

	// SubscriptionEvents counts new vs. duplicate subscription attempts.
	SubscriptionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_subscription_events_total",
		Help: "Number of subscribe events, labeled by whether they replaced an existing stream.",
	}, []string{"kind"})

	// BatchLatency histograms the delay between upstream reception and core dispatch.
	BatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relayer_batch_latency_seconds",
		Help:    "Seconds between upstream reception and the packet arm processing a batch.",
		Buckets: prometheus.DefBuckets,
	})

	// DenylistHits counts packets suppressed by the denylist filter.
	DenylistHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayer_denylist_hits_total",
		Help: "Number of packets suppressed because a referenced address was denied.",
	})

	// UpstreamSlot tracks the latest published slot per upstream source.
	UpstreamSlot = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relayer_upstream_slot",
		Help: "Latest observed slot per upstream source.",
	}, []string{"source"})

	// UpstreamReconnects counts reconnect attempts per upstream source.
	UpstreamReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_upstream_reconnects_total",
		Help: "Number of times an upstream event subscription was torn down and reconnected.",
	}, []string{"source"})

	// HealthState is 1 when Healthy, 0 when Unhealthy.
	HealthState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_health_state",
		Help: "1 if the relayer considers itself healthy, 0 otherwise.",
	})

	// ChallengesIssued counts challenge issuance calls, labeled by outcome.
	ChallengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_auth_challenges_issued_total",
		Help: "Number of GenerateAuthChallenge calls, labeled by outcome.",
	}, []string{"outcome"})

	// TokensMinted counts successful token mint operations.
	TokensMinted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_auth_tokens_minted_total",
		Help: "Number of successful token mint operations (generate mints an access/refresh pair, refresh mints an access token), labeled by path.",
	}, []string{"path"})

	// TableCacheSize tracks the number of tables currently cached.
	TableCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_table_cache_size",
		Help: "Number of address lookup tables currently cached.",
	})
)
