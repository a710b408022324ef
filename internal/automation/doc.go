// Package automation implements threshold rules over sensor readings.
//
// A rule watches a single sensor deployment and compares each incoming
// reading against a threshold (gt, lt, gte, lte, eq, neq). When the
// condition matches and the rule is outside its cooldown window, the
// rule fires either an actuator command or a persisted alert.
//
// # Architecture
//
//	Registry:   cached rule store; CRUD with category validation
//	Engine:     per-reading evaluation and action dispatch
//	Repository: SQLite persistence for rules and alerts
//
// The ingest pipeline calls Engine.Evaluate synchronously from its
// single worker, so rule evaluation for one reading completes before
// the next reading is processed. Cooldown state lives in both the
// database and the registry cache; the engine stamps it whenever a
// rule fires, even when the action fails.
package automation
