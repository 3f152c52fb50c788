// Package harness runs request scenarios against the compiler and compares
// the statements they produce with expectations and golden snapshots.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: item_search
//	description: "Full-text search across the material join"
//	schema: ../schema            # CUE directory, relative to this file
//	request:                     # a request document (see package request)
//	  entity: Item
//	  joins: [material]
//	  search: steel
//	expect:
//	  sql: "SELECT * FROM item ..."
//	  args: [steel]
//	  error: UNDECLARED_JOIN     # expected PlanError code instead of sql
//	setup:                       # optional SQL run on a fresh SQLite database
//	  - CREATE TABLE item (...)
//	assertions:
//	  - type: sql_contains
//	    text: websearch_to_tsquery
//	  - type: row_count
//	    count: 2
//
// # Assertion Types
//
//   - sql_contains / sql_not_contains: substring checks on the statement
//   - arg_count: number of bound arguments
//   - row_count: rows returned when the statement is executed
//   - affected_count: rows affected when the statement is executed
//
// The last two need a setup section. Execution uses an isolated in-memory
// SQLite database per scenario (see store.OpenSQLite), so scenarios stay
// deterministic and independent.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/item_search.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.NewRunner().Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
//
// In tests, RunWithGolden additionally snapshots the statement under
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
