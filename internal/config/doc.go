// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the producer, task and admin settings while keeping configuration
// details separate from the hand-off logic.
package config
