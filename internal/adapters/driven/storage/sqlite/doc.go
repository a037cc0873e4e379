// Package sqlite provides the SQLite-backed analytics query log.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements driven.QueryLogStore.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Privacy
//
// Raw query text is never stored. Entries carry the query length, a handful of
// stop-word filtered keywords and the ids of the records surfaced.
//
// # Data Location
//
// By default, the database is stored at ~/.pocfinder/data/analytics.db
package sqlite
