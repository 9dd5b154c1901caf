// Package backend is the mock HTTP backend for the periodic-table feature.
//
// It serves the embedded elements fixture at GET /periodic-table, a health
// probe at GET /healthz and Prometheus metrics at GET /metrics. Requests
// pass through three middlewares, outermost first:
//
//	logging -> metrics -> per-client rate limit
//
// A client over its token bucket gets 429, which the periodic-table
// repository treats as retryable.
package backend
