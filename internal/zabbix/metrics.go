package zabbix

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values for rpcRequestsTotal.
const (
	outcomeOK        = "ok"
	outcomeAPIError  = "api_error"
	outcomeTransport = "transport_error"
)

var (
	rpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zabbix_rpc_requests_total",
			Help: "Total number of Zabbix JSON-RPC requests by method and outcome.",
		},
		[]string{"method", "outcome"},
	)
	rpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zabbix_rpc_request_duration_seconds",
			Help:    "Zabbix JSON-RPC round-trip duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(rpcRequestsTotal)
	prometheus.MustRegister(rpcRequestDuration)
}
