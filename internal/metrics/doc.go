// Package metrics exposes the hand-off core through Prometheus collectors
// registered on a private registry.
package metrics
