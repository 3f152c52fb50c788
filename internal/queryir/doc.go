// Package queryir is the typed intermediate representation of a single SQL
// statement: a filter expression tree, sort order, declared join paths,
// pagination and per-operation payloads, bundled into a Plan.
//
// ARCHITECTURE:
//
// Callers never build SQL text. They describe what they want with typed
// values and the querysql package turns the result into one parameterized
// statement:
//
//	[schema.Entity] + [Expr, SortSpec, JoinPath, Pagination]
//	        → [ReadBuilder | InsertBuilder | UpdateBuilder | DeleteBuilder]
//	        → Build() → [Plan]
//	        → querysql.Compile → Statement{SQL, Args}
//
// EXPRESSIONS:
//
// Expr is a sealed interface using the marker method pattern. The closed set
// of node types is:
//   - And, Or: parenthesised groups of sub-expressions
//   - Predicate: one column compared with zero, one or two bound values
//   - FullText: websearch query against the entity's search document
//   - Aggregate: COUNT/SUM/AVG/MIN/MAX comparison, valid only in Having
//
// Predicates are created through typed field handles so that the operator
// set matches the column's semantic kind at compile time:
//
//	queryir.Text("name").Eq("bolt")                 // name = $1
//	queryir.Numeric[int64]("qty").Between(1, 10)    // qty BETWEEN $1 AND $2
//	queryir.Bool("active").IsTrue()                 // active = TRUE
//	queryir.Temporal("created_at").IsNull()         // created_at IS NULL
//
// Handles for request decoders that only know the kind at runtime go
// through NewPredicate; Build validates kind, operator and arity for both.
//
// JOIN PATHS:
//
// A JoinPath is an ordered list of schema.JoinDescriptor hops starting at
// the plan's entity. Its alias is the concatenation of "<relation>__" per
// hop, so the alias of a prefix is a literal prefix of the deeper alias and
// two paths of different depth never share one. A predicate, sort term or
// aggregate may only reference a path that is declared on the read plan or
// is a prefix of a declared path.
//
// BUILD:
//
// Builders accumulate inputs and validate them all at Build time. Every
// violated precondition is reported as a *PlanError and the errors are
// combined with errors.Join, so one Build call surfaces every problem.
// MustBuild panics instead and suits static queries.
//
// Plans are immutable once built: compiling one twice yields identical text
// and arguments, and a plan may be shared across goroutines.
package queryir
