package influxdb

import "errors"

// Sentinel errors for the time-series mirror, checkable with errors.Is.
// Write failures never appear here: the async WriteAPI reports them
// through the error callback, and readings are already safe in SQLite.
var (
	// ErrNotConnected indicates the client has been closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial ping or health probe failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates the mirror is switched off in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
