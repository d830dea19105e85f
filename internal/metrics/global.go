package metrics

import "github.com/prometheus/client_golang/prometheus"

// Package-level metric handles for call sites that have no access to the
// wired Metrics instance (the oracle adapter's retry path). They stay nil
// until InitGlobal runs; recorders nil-check before use.
var (
	OracleTotal    *prometheus.CounterVec
	OracleDuration *prometheus.HistogramVec
	OracleFallback *prometheus.CounterVec
	OracleTokens   *prometheus.CounterVec
)

// InitGlobal publishes the oracle metric handles of m.
func InitGlobal(m *Metrics) {
	OracleTotal = m.OracleRequestsTotal
	OracleDuration = m.OracleRequestDuration
	OracleFallback = m.OracleFallbackTotal
	OracleTokens = m.OracleTokensTotal
}

// RecordOracleSuccess counts a successful oracle call.
func RecordOracleSuccess(op, provider string, seconds float64) {
	if OracleTotal == nil || OracleDuration == nil {
		return
	}
	OracleTotal.WithLabelValues(op, provider, "success").Inc()
	OracleDuration.WithLabelValues(op, provider).Observe(seconds)
}

// RecordOracleError counts a failed oracle call with its outcome label.
func RecordOracleError(op, provider, outcome string) {
	if OracleTotal == nil {
		return
	}
	OracleTotal.WithLabelValues(op, provider, outcome).Inc()
}

// RecordOracleFallback counts a provider fallback attempt.
func RecordOracleFallback(from, to string) {
	if OracleFallback == nil {
		return
	}
	OracleFallback.WithLabelValues(from, to).Inc()
}

// RecordOracleTokens counts token usage for a provider.
func RecordOracleTokens(provider string, prompt, completion int64) {
	if OracleTokens == nil {
		return
	}
	if prompt > 0 {
		OracleTokens.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		OracleTokens.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}
