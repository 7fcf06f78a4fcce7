// Package archive copies HLS playlists, and every file they reference, into
// the object store.
//
// ArchiveManifest walks a manifest tree depth-first. Child manifests are
// archived synchronously so manifest sequence numbers are deterministic,
// while media segments, keys, and other leaf files are transferred
// concurrently. Each manifest is rewritten so its references point at the
// archived copies and uploaded once all of its leaf transfers succeed.
//
// Stored object layout under a destination prefix:
//
//	playlist.m3u8                   root manifest (sequence 0)
//	{n}.m3u8                        child manifest n
//	{NNNN}-EXT-{KEY}-{uuid}{ext}    file named by a tag URI attribute
//	{NNNN}-FILE-{uuid}{ext}         file named by a bare reference line
//
// where NNNN is the zero-padded sequence of the manifest that referenced it.
package archive
