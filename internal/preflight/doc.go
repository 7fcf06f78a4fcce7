// Package preflight provides readiness checks for the filesystem paths and
// external services the archivist depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failing check so a
//     misconfigured bucket or token is visible before the first archive.
//   - The CLI "archivist status" command renders the same results.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
