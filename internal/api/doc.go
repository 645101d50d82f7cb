// Package api exposes the optional admin HTTP surface of the hand-off core:
// liveness, a JSON snapshot of queue, gate and loop state, a manual producer
// trigger and the Prometheus scrape endpoint.
package api
