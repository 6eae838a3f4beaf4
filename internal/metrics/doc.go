// Package metrics exposes Prometheus metrics for update checks, registry
// writes and HTTP requests on a dedicated registry.
package metrics
