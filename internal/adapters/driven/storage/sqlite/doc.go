// Package sqlite provides a SQLite-backed passage store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Store implements driven.PassageStore and
// therefore also serves as the pipeline's driven.CandidateSource.
//
// # Retrieval
//
// Embeddings are stored as little-endian float32 blobs. Retrieve scans every
// passage, scores it by cosine similarity with the query and returns the top k.
// Passages with equal similarity keep insertion order.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.refrag/data/passages.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
