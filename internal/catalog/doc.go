// Package catalog persists the scan manifest, per-group keep/remove
// decisions, and consolidation run state in SQLite.
//
// The catalog is the authoritative store for the pipeline. The text
// manifest and group reports written alongside it are export artifacts
// for checksum tools and the review UI; they are never re-parsed as
// input. All mutation goes through a single Store so concurrent scanner
// workers funnel writes through one serialized connection.
package catalog
