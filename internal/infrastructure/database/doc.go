// Package database opens the SQLite file backing the device registry
// mirror.
//
// Its only consumer is the optional registry repository; the schema is
// created by the repository itself on first use. The wrapper applies
// Homewire's pragmas (WAL, busy timeout, foreign keys), pins the pool to a
// single connection since SQLite takes a single writer anyway, and keeps
// the file owner-only.
//
// Queries always go through parameterised statements.
package database
