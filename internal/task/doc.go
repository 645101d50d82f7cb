// Package task implements the hand-off between a single producer and a single
// consumer: a mutex-guarded FIFO of named tasks, the signal gate the consumer
// suspends on, and the two loops that drive them.
//
// The consumer arms the gate before it checks the queue. A wake the producer
// sends after that point is never lost, even when it lands between the check
// and the suspension.
package task
