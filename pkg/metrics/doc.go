// Package metrics exposes Prometheus metrics for the HTTP API and the
// search service.
package metrics
