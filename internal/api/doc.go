// Package api defines wire-format types and converters for the HTTP API and
// the CLI. It translates internal queue models into transport-friendly DTOs
// so consumers can render them without coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of an archive request with its
// progress, archive URL, and failure message.
//
// WorkflowStatus: worker running state, queue stats, and last item.
//
// DaemonStatus: aggregated runtime information including storage details.
//
// EnqueueRequest/EnqueueResult: the payload accepted by POST /api/queue and
// `archivist queue add`.
//
// # Actions
//
// Enqueue resolves the offer hash and destination prefix, deduplicates
// against in-flight or completed requests for the same offer, and inserts a
// pending item. RetryItemsByID moves failed or rejected items back to
// pending with a per-ID outcome.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. queue.Status values are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds.
package api
