// Package schema describes the tables that query plans compile against.
//
// An Entity is the static description of one table: its columns and their
// semantic kinds, the joins it declares to other entities, its deletion
// policy and the timestamp markers written on create and update. Entities
// are plain values. They can be written by hand, loaded from CUE
// (internal/cueschema) or generated as Go source (internal/codegen).
//
// Nothing in this package touches SQL text beyond storing it verbatim. The
// querysql package decides how column text, join templates and markers are
// assembled into a statement.
package schema
