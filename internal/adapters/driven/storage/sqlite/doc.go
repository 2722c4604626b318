// Package sqlite provides a SQLite-backed implementation of the engine's
// storage ports. A single database file holds document records and
// version chains; chain mutations run inside transactions so the
// latest-member invariant holds for every reader.
package sqlite
