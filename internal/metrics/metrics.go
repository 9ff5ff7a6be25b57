package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shopifyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_shopify_requests_total",
			Help: "Shopify Admin API requests by method and response status.",
		},
		[]string{"method", "status"},
	)

	shopifyRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storesync_shopify_retries_total",
			Help: "Shopify Admin API requests retried after a transient failure.",
		},
	)

	customersSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_customers_synced_total",
			Help: "Customer records processed by result.",
		},
		[]string{"result"},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_webhooks_received_total",
			Help: "Inbound Shopify webhooks by topic and outcome.",
		},
		[]string{"topic", "outcome"},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_jobs_processed_total",
			Help: "Background jobs executed by method and status.",
		},
		[]string{"method", "status"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storesync_customer_sync_duration_seconds",
			Help:    "Duration of full customer imports.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6), // 1s .. ~17m
		},
	)
)

func ObserveShopifyRequest(method string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	shopifyRequests.WithLabelValues(method, label).Inc()
}

func IncShopifyRetry() {
	shopifyRetries.Inc()
}

func IncCustomerSynced(ok bool) {
	if ok {
		customersSynced.WithLabelValues("imported").Inc()
		return
	}
	customersSynced.WithLabelValues("failed").Inc()
}

func IncWebhookReceived(topic, outcome string) {
	webhooksReceived.WithLabelValues(topic, outcome).Inc()
}

func IncJobProcessed(method string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	jobsProcessed.WithLabelValues(method, status).Inc()
}

func ObserveSyncDuration(seconds float64) {
	syncDuration.Observe(seconds)
}
