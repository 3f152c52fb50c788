package request

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/querysql"
	"github.com/roach88/sqlplan/internal/testutil"
)

func compileDoc(t *testing.T, src string) querysql.Statement {
	t.Helper()
	plan, err := Decode([]byte(src), testutil.Catalog())
	require.NoError(t, err)
	stmt, err := querysql.Compile(plan)
	require.NoError(t, err)
	return stmt
}

func TestDecode_Statements(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000007")

	tests := []struct {
		name     string
		src      string
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "mapping is an AND",
			src: `
entity: Item
filter:
  name: {like: "%x%"}
  price: {gt: 10}
`,
			wantSQL:  "SELECT * FROM item WHERE (name LIKE $1 AND price > $2)",
			wantArgs: []any{"%x%", float64(10)},
		},
		{
			name:     "json or group",
			src:      `{"entity": "Item", "filter": {"or": [{"name": {"eq": "a"}}, {"name": {"eq": "b"}}]}}`,
			wantSQL:  "SELECT * FROM item WHERE (name = $1 OR name = $2)",
			wantArgs: []any{"a", "b"},
		},
		{
			name: "joined field",
			src: `
entity: Item
joins: [material]
filter:
  material.name: {eq: steel}
`,
			wantSQL:  `SELECT * FROM item INNER JOIN material AS "material__" ON item.material_id = "material__".id WHERE "material__".name = $1`,
			wantArgs: []any{"steel"},
		},
		{
			name: "sort and page",
			src: `
entity: Item
sort:
  - price: desc
  - name: asc
page: {pageSize: 50, pageNo: 2}
`,
			wantSQL:  "SELECT * FROM item ORDER BY price DESC, name ASC LIMIT $1 OFFSET $2",
			wantArgs: []any{int64(50), int64(100)},
		},
		{
			name: "unary and range operators",
			src: `
entity: Item
filter:
  - material_id: {isNull: true}
  - price: {between: [1, 5]}
`,
			wantSQL:  "SELECT * FROM item WHERE (material_id IS NULL AND price BETWEEN $1 AND $2)",
			wantArgs: []any{float64(1), float64(5)},
		},
		{
			name: "temporal date",
			src: `
entity: Item
filter:
  created_at: {gte: 2024-01-02}
`,
			wantSQL:  "SELECT * FROM item WHERE created_at >= $1",
			wantArgs: []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		},
		{
			name: "exists",
			src: `
entity: Item
mode: exists
filter: {qty: {eq: 3}}
`,
			wantSQL:  "SELECT EXISTS(SELECT 1 FROM item WHERE qty = $1 LIMIT $2 OFFSET $3)",
			wantArgs: []any{int64(3), int64(1), int64(0)},
		},
		{
			name: "having",
			src: `
entity: Item
having:
  qty: {sum: {gte: 20}}
`,
			wantSQL:  "SELECT * FROM item WHERE item.id IN (SELECT item.id FROM item GROUP BY item.id HAVING SUM(item.qty) >= $1)",
			wantArgs: []any{int64(20)},
		},
		{
			name: "soft delete",
			src: `
entity: SoftItem
operation: delete
filter: {name: {eq: x}}
`,
			wantSQL:  "UPDATE soft_item SET deleted_at = NOW() WHERE name = $1",
			wantArgs: []any{"x"},
		},
		{
			name: "purge",
			src: `
entity: SoftItem
operation: delete
purge: true
`,
			wantSQL:  "DELETE FROM soft_item",
			wantArgs: []any{},
		},
		{
			name: "insert",
			src: `
entity: Item
operation: insert
values: {qty: 3, name: bolt}
`,
			wantSQL:  "INSERT INTO item (name, qty, created_at) VALUES ($1, $2, NOW()) RETURNING *",
			wantArgs: []any{"bolt", int64(3)},
		},
		{
			name: "update returning",
			src: `
entity: Item
operation: update
values: {name: nut}
filter: {id: {eq: 00000000-0000-0000-0000-000000000007}}
returning: [id]
`,
			wantSQL:  "UPDATE item SET updated_at = NOW(), name = $1 WHERE id = $2 RETURNING id",
			wantArgs: []any{"nut", id},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := compileDoc(t, tt.src)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Args)
		})
	}
}

func TestDecode_SearchJoinsFilter(t *testing.T) {
	stmt := compileDoc(t, `
entity: Item
joins: [material]
filter: {active: {isTrue: true}}
search: "  steel bolt "
`)
	assert.Contains(t, stmt.SQL, "active = TRUE AND ")
	assert.Contains(t, stmt.SQL, "websearch_to_tsquery('english', $1)")
	assert.Equal(t, []any{"steel bolt"}, stmt.Args)
}

func TestDecode_PlanErrorsPassThrough(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code queryir.PlanErrorCode
	}{
		{
			name: "undeclared join",
			src:  "entity: Item\nfilter: {material.name: {eq: x}}\n",
			code: queryir.ErrCodeUndeclaredJoin,
		},
		{
			name: "join in write",
			src:  "entity: Item\noperation: update\nvalues: {name: x}\nfilter: {material.name: {eq: x}}\n",
			code: queryir.ErrCodeJoinNotAllowed,
		},
		{
			name: "operator unsupported by kind",
			src:  "entity: Item\nfilter: {active: {gt: true}}\n",
			code: queryir.ErrCodeUnsupportedOperator,
		},
		{
			name: "insert without values",
			src:  "entity: Item\noperation: insert\n",
			code: queryir.ErrCodeMissingValues,
		},
		{
			name: "excluded update column",
			src:  "entity: Item\noperation: update\nvalues: {created_at: 2024-01-01}\n",
			code: queryir.ErrCodeExcludedColumn,
		},
		{
			name: "bad page",
			src:  "entity: Item\npage: {pageSize: 0, pageNo: 0}\n",
			code: queryir.ErrCodeBadPagination,
		},
		{
			name: "select list with exists",
			src:  "entity: Item\nmode: exists\nselect: [id]\n",
			code: queryir.ErrCodeConflictingMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), testutil.Catalog())
			require.Error(t, err)
			assert.True(t, queryir.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestDecode_DecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"empty", "", "empty document"},
		{"no entity", "filter: {}\n", "entity is required"},
		{"unknown key", "entity: Item\nwhere: {}\n", "field where not found"},
		{"unknown entity", "entity: Ghost\n", `unknown entity "Ghost"`},
		{"unknown operation", "entity: Item\noperation: upsert\n", `unknown operation "upsert"`},
		{"unknown mode", "entity: Item\nmode: count\n", `unknown mode "count"`},
		{"unknown field", "entity: Item\nfilter: {colour: {eq: red}}\n", `no field "colour"`},
		{"unknown relation", "entity: Item\njoins: [supplier]\n", `no relation "supplier"`},
		{"unknown operator", "entity: Item\nfilter: {name: {matches: x}}\n", `unknown operator "matches"`},
		{"bad uuid", "entity: Item\nfilter: {id: {eq: nope}}\n", `invalid uuid "nope"`},
		{"bad integer", "entity: Item\nfilter: {qty: {eq: many}}\n", "expected an integer"},
		{"bad range", "entity: Item\nfilter: {price: {between: 3}}\n", "list of two values"},
		{"bad date", "entity: Item\nfilter: {created_at: {eq: yesterday}}\n", "RFC 3339"},
		{"bad direction", "entity: Item\nsort: [{name: up}]\n", "asc or desc"},
		{"two sort keys", "entity: Item\nsort: [{name: asc, price: desc}]\n", "exactly one field"},
		{"unknown aggregate", "entity: Item\nhaving: {qty: {median: {gt: 1}}}\n", `unknown aggregate function "median"`},
		{"scalar filter", "entity: Item\nfilter: name\n", "expected a mapping or a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), testutil.Catalog())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeError_Line(t *testing.T) {
	_, err := Decode([]byte("entity: Item\nfilter:\n  name: {matches: x}\n"), testutil.Catalog())
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 3, de.Line)
	assert.Equal(t, "filter", de.Field)
}

func TestDecode_CountStar(t *testing.T) {
	plan, err := Decode([]byte("entity: Supplier\njoins: [materials]\nhaving: {\"*\": {count: {gt: 2}}}\n"), testutil.Catalog())
	require.NoError(t, err)

	read := plan.(*queryir.Read)
	agg, ok := read.Having.(queryir.Aggregate)
	require.True(t, ok)
	assert.Equal(t, queryir.AggCount, agg.Func)
	assert.Empty(t, agg.Column)
	assert.Equal(t, []any{int64(2)}, agg.Values)
}
