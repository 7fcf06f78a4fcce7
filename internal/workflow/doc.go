// Package workflow drives queued archive requests to completion.
//
// The Manager polls the queue for pending items, claims one at a time,
// archives it under a heartbeat and an overall deadline, and persists the
// outcome. Completed and failed items are reported back to the requesting
// issue and to ntfy. Stale items whose heartbeat stopped are reclaimed on
// every poll so a crashed daemon never strands work in the archiving state.
package workflow
