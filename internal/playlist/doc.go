// Package playlist parses and rewrites the line-oriented text of HLS (M3U8)
// manifests.
//
// A manifest is processed one line at a time. Lines are classified by
// Classify, directive tags are decoded with ParseTag and re-encoded with
// Tag.String, and relative references are resolved against the manifest's
// own URL with Canonicalize.
package playlist
