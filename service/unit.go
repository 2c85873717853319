/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs long-lived parts of a process (periodic cache flushing, command loops)
// as units with an explicit start/stop lifecycle bound to OS signals.
package service

// Unit is a component of a service with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may return right after initialization or block for the whole lifetime of the unit.
	// A unit reports a failure by writing exactly one error to fatalErr before Start returns,
	// and must not use the channel afterwards. Successful units write nothing.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	// With gracefully set, the unit finishes its current work before returning.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
