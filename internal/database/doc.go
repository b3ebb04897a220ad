// Package database provides SQLite-based storage for coursecrawl.
//
// The URLStore keeps, per source:
//   - the latest URL set produced by a crawl (after prefiltering)
//   - a summary row for every pipeline run, for the history command
//
// A stored URL set lets later runs skip the crawl entirely unless a refresh
// is requested. The database is a single file in the XDG data directory,
// opened through the CGO-free modernc.org/sqlite driver in WAL mode with a
// single connection, so there is exactly one writer.
package database
