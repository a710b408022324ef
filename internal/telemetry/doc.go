// Package telemetry is the inbound message pipeline: broker callback
// to durable state.
//
// # Architecture
//
//	Ingestor:   non-blocking FIFO queue with a single worker
//	Pipeline:   per-kind processors (sensor, actuator echo, status, heartbeat)
//	Repository: append-only sensor reading store
//
// The broker callback calls Ingestor.Enqueue and returns immediately;
// the worker drains the queue in arrival order and runs one Pipeline
// Process call at a time, including any rule evaluation it triggers.
// Sequential processing is what gives rule cooldowns a well-defined
// order without locks.
//
// Telemetry is lossy. Malformed topics and payloads, and messages for
// deployments that are not provisioned yet, are logged and dropped;
// nothing is retried.
package telemetry
