package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cosigner"

var (
	broadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_bonded_broadcasts_total",
			Help:      "Aggregate bonded broadcasts by outcome.",
		},
		[]string{"outcome"},
	)
	broadcastDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_bonded_broadcast_duration_seconds",
			Help:      "Time elapsed between hash lock announcement and outcome.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)
	cosignaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cosignatures_total",
			Help:      "Cosignature requests by outcome.",
		},
		[]string{"outcome"},
	)
	graphResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "multisig_graph_resolutions_total",
			Help:      "Multisig graph resolutions by outcome.",
		},
		[]string{"outcome"},
	)
	listenerReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_reconnects_total",
			Help:      "Listener reconnection attempts by outcome.",
		},
		[]string{"outcome"},
	)
	listenerMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_messages_total",
			Help:      "Messages received from the node by topic.",
		},
		[]string{"topic"},
	)
	nodeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_request_duration_seconds",
			Help:      "Duration of the requests sent to the node REST gateway.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	watchedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_accounts",
			Help:      "Accounts currently watched by the notification feed.",
		},
	)
)

func BroadcastCompleted(outcome string, elapsed time.Duration) {
	broadcastsTotal.WithLabelValues(outcome).Inc()
	broadcastDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func CosignatureCompleted(outcome string) {
	cosignaturesTotal.WithLabelValues(outcome).Inc()
}

func GraphResolved(outcome string) {
	graphResolutionsTotal.WithLabelValues(outcome).Inc()
}

func ListenerReconnect(outcome string) {
	listenerReconnectsTotal.WithLabelValues(outcome).Inc()
}

func ListenerMessage(topic string) {
	listenerMessagesTotal.WithLabelValues(topic).Inc()
}

// NodeRequestTimer starts timing a request to the node. Call ObserveDuration
// on the returned timer once the request completes.
func NodeRequestTimer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		nodeRequestDuration.WithLabelValues(operation).Observe(v)
	}))
}

func WatchedAccountsInc() {
	watchedAccounts.Inc()
}

func WatchedAccountsDec() {
	watchedAccounts.Dec()
}
