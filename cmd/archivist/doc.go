// Command archivist is the CLI for the video archivist: it runs the daemon,
// archives single URLs in the foreground, and inspects or edits the archive
// queue.
package main
