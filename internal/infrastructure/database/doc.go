// Package database opens and migrates the SQLite system of record.
//
// FarmHub keeps everything that matters in one SQLite file: devices,
// the component catalog and deployments, sensor readings, actuator
// command history, automation rules, and alerts. The InfluxDB mirror
// is write-only and disposable; if it disappears, no data is lost.
//
// The connection is opened in WAL mode so API reads do not block the
// ingest worker's writes, with STRICT tables and foreign keys on. The
// pool is pinned to a single open connection, which serialises the
// ingest worker, the monitor sweeps, and API writes without any
// locking code of our own.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded into the binary by the top-level migrations
// package, so an on-site install needs only the executable and a
// writable data directory. Each migration has an .up.sql and a
// .down.sql, and changes are additive: new columns are nullable or
// defaulted, and nothing is dropped or renamed.
//
// All queries use parameterised statements, and the database file is
// created with 0600 permissions.
package database
