// Package queue persists archive requests in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-item recovery, and status transitions.
// Each item records the offer being archived, the issue that asked for it,
// and the outcome (archive URL or error) so the workflow and API can
// coordinate without additional state.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
