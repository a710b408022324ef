package telemetry

import "errors"

// Sentinel errors for the telemetry package.
// Callers should use errors.Is() to check against these values.
var (
	ErrMalformedPayload = errors.New("telemetry: malformed payload")
	ErrReadingNotFound  = errors.New("telemetry: reading not found")
)
