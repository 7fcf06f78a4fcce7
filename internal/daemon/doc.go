// Package daemon coordinates the long-running archivist process.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// On start it returns items interrupted by a previous run to the queue,
// launches the worker, and serves the HTTP API used to enqueue and inspect
// archive requests. Requests are authenticated with a bearer token when
// paths.api_token is set.
//
// Keep orchestration logic here: archiving itself lives in the archive and
// workflow packages while the daemon focuses on startup, shutdown, and the
// queue-facing API.
package daemon
