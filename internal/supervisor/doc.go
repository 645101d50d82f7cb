// Package supervisor owns the lifecycle of the producer and consumer loops:
// it spawns both, hands back a Handle per loop, and stops them on request.
package supervisor
