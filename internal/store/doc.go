// Package store executes compiled statements against a database.
//
// Store is the thin executor behind querysql: it takes a Statement (SQL
// text with $N placeholders plus ordered arguments) and runs it through
// database/sql. It never builds SQL itself and never retries.
//
// # Drivers
//
//   - PostgreSQL: OpenPostgres uses the pgx stdlib driver ("pgx").
//   - SQLite: OpenSQLite uses go-sqlite3 with a NOW() function registered
//     on every connection, so statements compiled for PostgreSQL run
//     unchanged in tests. SQLite reads $1..$N as named parameters and
//     numbers them by first appearance, which matches the compiler's
//     numbering.
//
// # SQLite configuration
//
//   - WAL mode: Concurrent reads during writes
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Full-text predicates use PostgreSQL functions and only run on PostgreSQL.
package store
