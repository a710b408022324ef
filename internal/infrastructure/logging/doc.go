// Package logging wraps log/slog with FarmHub's conventions.
//
// Every component in the binary shares one Logger configured from
// config.yaml: the ingest worker, the automation engine, the monitor
// sweeps, and the HTTP layer all emit through it, so an operator can
// follow a reading from MQTT arrival to rule trigger in a single
// stream.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json for collectors, text for a terminal
//	  output: "stdout"   # stdout, stderr
//
// JSON output carries service and version fields on every entry.
// Debug level is chatty (one line per reading) and is meant for bench
// commissioning of a new device, not for a running greenhouse.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("device online", "device", "esp32-A1")
//
// Never log secrets: the JWT secret, the admin password, MQTT or
// InfluxDB credentials. Device identifiers and sensor values are not
// sensitive here and may appear freely.
package logging
