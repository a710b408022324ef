// Package monitor owns the offline side of fleet liveness.
//
// Message processors bring devices and deployments online the moment
// traffic arrives; this package runs the periodic sweep that notices
// silence and demotes them again, and derives a weighted health score
// from the resulting counts. Keeping both directions in separate
// owners means a status can never flap inside a single message.
package monitor
