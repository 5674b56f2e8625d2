// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec

	// Wallet metrics
	WalletsCreated    prometheus.Counter
	AccountsDeployed  prometheus.Counter
	DeploymentRetries prometheus.Counter

	// Chain metrics
	RPCCallLatency        *prometheus.HistogramVec
	TransactionsSubmitted *prometheus.CounterVec
	ConfirmationDuration  prometheus.Histogram

	// External service metrics
	QuotesFetched  prometheus.Counter
	QuotesExpired  prometheus.Counter
	BridgeRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stark_wallet"
	}

	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Total number of wallet operations by type and outcome",
		}, []string{"operation", "status"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operation_duration_seconds",
			Help:      "Wallet operation duration including chain confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"operation"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operation_errors_total",
			Help:      "Total number of failed wallet operations by type and error class",
		}, []string{"operation", "error"}),

		WalletsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "wallets_created_total",
			Help:      "Total number of wallets created",
		}),
		AccountsDeployed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "accounts_deployed_total",
			Help:      "Total number of account contracts deployed",
		}),
		DeploymentRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "deployment_retries_total",
			Help:      "Total number of deployments re-attempted after a failed request",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Node RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		TransactionsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "transactions_submitted_total",
			Help:      "Total number of transactions submitted by type",
		}, []string{"type"}),
		ConfirmationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "confirmation_duration_seconds",
			Help:      "Time from submission to terminal receipt",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),

		QuotesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "quotes_fetched_total",
			Help:      "Total number of quote requests sent to the aggregator",
		}),
		QuotesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "quotes_expired_total",
			Help:      "Total number of swaps rejected with an expired quote",
		}),
		BridgeRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Total number of bridge router requests by endpoint",
		}, []string{"endpoint"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records a completed wallet operation.
func RecordOperation(operation, status string, durationSeconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, status).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordOperationError records a failed wallet operation.
func RecordOperationError(operation, errorClass string) {
	DefaultMetrics.OperationErrors.WithLabelValues(operation, errorClass).Inc()
}

// RecordWalletCreated increments the wallets created counter.
func RecordWalletCreated() {
	DefaultMetrics.WalletsCreated.Inc()
}

// RecordAccountDeployed increments the accounts deployed counter.
func RecordAccountDeployed() {
	DefaultMetrics.AccountsDeployed.Inc()
}

// RecordDeploymentRetry increments the deployment retries counter.
func RecordDeploymentRetry() {
	DefaultMetrics.DeploymentRetries.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordSubmission records a submitted transaction by type.
func RecordSubmission(txType string) {
	DefaultMetrics.TransactionsSubmitted.WithLabelValues(txType).Inc()
}

// RecordConfirmation records time from submission to terminal receipt.
func RecordConfirmation(seconds float64) {
	DefaultMetrics.ConfirmationDuration.Observe(seconds)
}

// RecordBridgeRequest counts one bridge router request by endpoint.
func RecordBridgeRequest(endpoint string) {
	DefaultMetrics.BridgeRequests.WithLabelValues(endpoint).Inc()
}

// RecordQuoteFetched increments the quotes fetched counter.
func RecordQuoteFetched() {
	DefaultMetrics.QuotesFetched.Inc()
}

// RecordQuoteExpired increments the quotes expired counter.
func RecordQuoteExpired() {
	DefaultMetrics.QuotesExpired.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
