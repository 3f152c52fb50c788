package querysql

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/schema"
	"github.com/roach88/sqlplan/internal/testutil"
)

func TestCompile_PaginationOffset(t *testing.T) {
	plan := queryir.NewRead(testutil.Item()).Page(queryir.Page(2, 50)).MustBuild()

	stmt, err := Compile(plan)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM item LIMIT $1 OFFSET $2", stmt.SQL)
	assert.Equal(t, []any{int64(50), int64(100)}, stmt.Args)
}

func TestCompile_SoftDeleteRewrite(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000042")
	plan := queryir.NewDelete(testutil.SoftItem()).
		Where(queryir.Opaque[uuid.UUID]("id").Eq(id)).
		MustBuild()

	stmt, err := Compile(plan)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE soft_item SET deleted_at = NOW() WHERE id = $1", stmt.SQL)
	assert.Equal(t, []any{id}, stmt.Args)
}

func TestCompile_PrefixJoinAlias(t *testing.T) {
	material := queryir.PathOf(testutil.ItemMaterial)
	supplier := material.Then(testutil.MaterialSupplier)

	alias, err := EnsureJoinAlias([]queryir.JoinPath{supplier}, material, "name")
	require.NoError(t, err)
	assert.Equal(t, "material__", alias)
	assert.Equal(t, supplier.Alias()[:len(alias)], alias)
}

func TestCompile_UpdateMarkerFirst(t *testing.T) {
	plan := queryir.NewUpdate(testutil.Item()).
		Set(map[string]any{"name": "nut"}).
		MustBuild()

	stmt, err := Compile(plan)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE item SET updated_at = NOW(), name = $1", stmt.SQL)
	assert.Equal(t, []any{"nut"}, stmt.Args)
}

func TestCompile_Read(t *testing.T) {
	item := testutil.Item()
	material := queryir.PathOf(testutil.ItemMaterial)
	supplier := material.Then(testutil.MaterialSupplier)

	const joins = ` INNER JOIN material AS "material__" ON item.material_id = "material__".id` +
		` LEFT JOIN supplier AS "material__supplier__" ON "material__".supplier_id = "material__supplier__".id`

	testCases := []struct {
		name string
		plan *queryir.ReadBuilder
		sql  string
		args []any
	}{
		{
			name: "select all",
			plan: queryir.NewRead(item),
			sql:  "SELECT * FROM item",
			args: []any{},
		},
		{
			name: "select columns",
			plan: queryir.NewRead(item).Select("id", "name"),
			sql:  "SELECT id, name FROM item",
			args: []any{},
		},
		{
			name: "with total",
			plan: queryir.NewRead(item).WithTotal().Page(queryir.Page(0, 10)),
			sql:  "SELECT *, COUNT(*) OVER() AS total_count FROM item LIMIT $1 OFFSET $2",
			args: []any{int64(10), int64(0)},
		},
		{
			name: "exists",
			plan: queryir.NewRead(item).Exists().Where(queryir.Text("name").Eq("bolt")),
			sql:  "SELECT EXISTS(SELECT 1 FROM item WHERE name = $1 LIMIT $2 OFFSET $3)",
			args: []any{"bolt", int64(1), int64(0)},
		},
		{
			name: "filter sort page",
			plan: queryir.NewRead(item).
				Where(queryir.AllOf(queryir.Bool("active").IsTrue(), queryir.Numeric[float64]("price").Lte(9.5))).
				OrderBy(queryir.Numeric[float64]("price").Desc(), queryir.Text("name").Asc(), queryir.Text("name").Desc()).
				Page(queryir.Page(1, 20)),
			sql:  "SELECT * FROM item WHERE (active = TRUE AND price <= $1) ORDER BY price DESC, name ASC, name DESC LIMIT $2 OFFSET $3",
			args: []any{9.5, int64(20), int64(20)},
		},
		{
			name: "nested joins",
			plan: queryir.NewRead(item).
				Join(supplier).
				Where(queryir.AllOf(
					queryir.Text("name").Via(material).Eq("steel"),
					queryir.Text("country").Via(supplier).Eq("DE"),
				)).
				OrderBy(queryir.Text("name").Via(supplier).Asc()),
			sql:  "SELECT * FROM item" + joins + ` WHERE ("material__".name = $1 AND "material__supplier__".country = $2) ORDER BY "material__supplier__".name ASC`,
			args: []any{"steel", "DE"},
		},
		{
			name: "root columns qualified once joined",
			plan: queryir.NewRead(item).
				Join(material).
				Select("id", "name").
				Where(queryir.Text("name").Eq("bolt")).
				OrderBy(queryir.Text("name").Asc()),
			sql: `SELECT item.id, item.name FROM item INNER JOIN material AS "material__" ON item.material_id = "material__".id` +
				` WHERE item.name = $1 ORDER BY item.name ASC`,
			args: []any{"bolt"},
		},
		{
			name: "soft delete guard qualified once joined",
			plan: queryir.NewRead(testutil.Supplier()).Join(queryir.PathOf(testutil.SupplierMaterials)),
			sql:  `SELECT * FROM supplier LEFT JOIN material AS "materials__" ON "materials__".supplier_id = supplier.id WHERE supplier.deleted_at IS NULL`,
			args: []any{},
		},
		{
			name: "shared prefix emitted once",
			plan: queryir.NewRead(item).Join(material, supplier),
			sql:  "SELECT * FROM item" + joins,
			args: []any{},
		},
		{
			name: "soft delete guard first",
			plan: queryir.NewRead(testutil.SoftItem()).Where(queryir.Text("name").Eq("a")),
			sql:  "SELECT * FROM soft_item WHERE deleted_at IS NULL AND (name = $1)",
			args: []any{"a"},
		},
		{
			name: "soft delete without filter",
			plan: queryir.NewRead(testutil.SoftItem()),
			sql:  "SELECT * FROM soft_item WHERE deleted_at IS NULL",
			args: []any{},
		},
		{
			name: "include deleted",
			plan: queryir.NewRead(testutil.SoftItem()).IncludeDeleted(),
			sql:  "SELECT * FROM soft_item",
			args: []any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := tc.plan.Build()
			require.NoError(t, err)
			stmt, err := Compile(plan)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, stmt.SQL)
			assert.Equal(t, tc.args, stmt.Args)
		})
	}
}

func TestCompile_FullText(t *testing.T) {
	material := queryir.PathOf(testutil.ItemMaterial)
	plan := queryir.NewRead(testutil.Item()).
		Join(material).
		Where(queryir.AllOf(queryir.Bool("active").IsTrue(), queryir.Search("  hex bolt "))).
		MustBuild()

	stmt, err := Compile(plan)
	require.NoError(t, err)

	want := `SELECT * FROM item INNER JOIN material AS "material__" ON item.material_id = "material__".id` +
		` WHERE (item.active = TRUE AND (setweight(to_tsvector('english', coalesce(item.name, '')), 'A')` +
		` || setweight(to_tsvector('english', coalesce("material__".name, '')), 'B'))` +
		` @@ websearch_to_tsquery('english', $1))`
	assert.Equal(t, want, stmt.SQL)
	assert.Equal(t, []any{"hex bolt"}, stmt.Args)
}

func TestCompile_HavingSubquery(t *testing.T) {
	materials := queryir.PathOf(testutil.SupplierMaterials)
	plan := queryir.NewRead(testutil.Supplier()).
		Join(materials).
		Where(queryir.Text("country").Eq("DE")).
		Having(queryir.Count("id").Via(materials).Gte(2)).
		Page(queryir.Page(0, 5)).
		MustBuild()

	stmt, err := Compile(plan)
	require.NoError(t, err)

	const join = ` LEFT JOIN material AS "materials__" ON "materials__".supplier_id = supplier.id`
	want := `SELECT * FROM supplier` + join +
		` WHERE supplier.deleted_at IS NULL AND ((supplier.country = $1 AND supplier.id IN (SELECT supplier.id FROM supplier` + join +
		` WHERE supplier.deleted_at IS NULL AND (supplier.country = $2) GROUP BY supplier.id HAVING COUNT("materials__".id) >= $3)))` +
		` LIMIT $4 OFFSET $5`
	assert.Equal(t, want, stmt.SQL)
	assert.Equal(t, []any{"DE", "DE", 2, int64(5), int64(0)}, stmt.Args)
}

func TestCompile_HavingWithoutFilter(t *testing.T) {
	plan := queryir.NewRead(testutil.Item()).
		Having(queryir.Sum("qty").Gt(10)).
		MustBuild()

	stmt, err := Compile(plan)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM item WHERE item.id IN (SELECT item.id FROM item GROUP BY item.id HAVING SUM(item.qty) > $1)",
		stmt.SQL)
	assert.Equal(t, []any{10}, stmt.Args)
}

func TestCompile_Insert(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	testCases := []struct {
		name string
		plan *queryir.InsertBuilder
		sql  string
		args []any
	}{
		{
			name: "declaration order and marker",
			plan: queryir.NewInsert(testutil.Item()).Values(map[string]any{"price": 1.5, "id": id, "name": "bolt"}),
			sql:  "INSERT INTO item (id, name, price, created_at) VALUES ($1, $2, $3, NOW()) RETURNING *",
			args: []any{id, "bolt", 1.5},
		},
		{
			name: "only marker",
			plan: queryir.NewInsert(testutil.Item()).Values(map[string]any{}).Returning("id"),
			sql:  "INSERT INTO item (created_at) VALUES (NOW()) RETURNING id",
			args: []any{},
		},
		{
			name: "no marker",
			plan: queryir.NewInsert(testutil.SoftItem()).Values(map[string]any{"name": "x"}),
			sql:  "INSERT INTO soft_item (name) VALUES ($1) RETURNING *",
			args: []any{"x"},
		},
		{
			name: "default values",
			plan: queryir.NewInsert(testutil.SoftItem()).Values(nil).Returning("id", "name"),
			sql:  "INSERT INTO soft_item DEFAULT VALUES RETURNING id, name",
			args: []any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := Compile(tc.plan.MustBuild())
			require.NoError(t, err)
			assert.Equal(t, tc.sql, stmt.SQL)
			assert.Equal(t, tc.args, stmt.Args)
		})
	}
}

func TestCompile_Update(t *testing.T) {
	testCases := []struct {
		name string
		plan *queryir.UpdateBuilder
		sql  string
		args []any
	}{
		{
			name: "patch with filter and returning",
			plan: queryir.NewUpdate(testutil.Item()).
				Set(map[string]any{"qty": int64(4), "name": "nut"}).
				Where(queryir.Text("name").Eq("bolt")).
				Returning(),
			sql:  "UPDATE item SET updated_at = NOW(), name = $1, qty = $2 WHERE name = $3 RETURNING *",
			args: []any{"nut", int64(4), "bolt"},
		},
		{
			name: "touch only",
			plan: queryir.NewUpdate(testutil.Item()).Set(map[string]any{}),
			sql:  "UPDATE item SET updated_at = NOW()",
			args: []any{},
		},
		{
			name: "no marker",
			plan: queryir.NewUpdate(testutil.SoftItem()).Set(map[string]any{"name": "x"}).Returning("id"),
			sql:  "UPDATE soft_item SET name = $1 RETURNING id",
			args: []any{"x"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := Compile(tc.plan.MustBuild())
			require.NoError(t, err)
			assert.Equal(t, tc.sql, stmt.SQL)
			assert.Equal(t, tc.args, stmt.Args)
		})
	}
}

func TestCompile_Delete(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		plan *queryir.DeleteBuilder
		sql  string
		args []any
	}{
		{
			name: "hard",
			plan: queryir.NewDelete(testutil.Item()).Where(queryir.Temporal("created_at").Lt(cutoff)).Returning("id"),
			sql:  "DELETE FROM item WHERE created_at < $1 RETURNING id",
			args: []any{cutoff},
		},
		{
			name: "soft without filter",
			plan: queryir.NewDelete(testutil.SoftItem()).Returning(),
			sql:  "UPDATE soft_item SET deleted_at = NOW() RETURNING *",
			args: []any{},
		},
		{
			name: "purge soft entity",
			plan: queryir.NewDelete(testutil.SoftItem()).Purge().Where(queryir.Temporal("deleted_at").IsNotNull()),
			sql:  "DELETE FROM soft_item WHERE deleted_at IS NOT NULL",
			args: []any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := Compile(tc.plan.MustBuild())
			require.NoError(t, err)
			assert.Equal(t, tc.sql, stmt.SQL)
			assert.Equal(t, tc.args, stmt.Args)
		})
	}
}

func TestCompile_GlobalBindNumbering(t *testing.T) {
	materials := queryir.PathOf(testutil.SupplierMaterials)
	plan := queryir.NewRead(testutil.Supplier()).
		Join(materials).
		Where(queryir.AnyOf(queryir.Text("country").Eq("DE"), queryir.Text("country").Eq("FR"))).
		Having(queryir.AllOf(queryir.Count("").Gt(1), queryir.Max("name").Via(materials).Neq("x"))).
		MustBuild()

	stmt := MustCompile(plan)
	for i := 1; i <= len(stmt.Args); i++ {
		assert.Contains(t, stmt.SQL, "$"+strconv.Itoa(i))
	}
	assert.NotContains(t, stmt.SQL, "$"+strconv.Itoa(len(stmt.Args)+1))
	assert.Len(t, stmt.Args, 6)
}

func TestCompile_IsPureAndConcurrent(t *testing.T) {
	plan := queryir.NewRead(testutil.Item()).
		Where(queryir.Text("name").Like("%a%")).
		Page(queryir.Page(3, 10)).
		MustBuild()

	first := MustCompile(plan)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := Compile(plan)
			assert.NoError(t, err)
			assert.Equal(t, first, again)
		}()
	}
	wg.Wait()
}

func TestCompile_HandBuiltPlanErrors(t *testing.T) {
	plan := &queryir.Read{
		Entity: testutil.Item(),
		Filter: queryir.Text("name").Via(queryir.PathOf(testutil.ItemMaterial)).Eq("x"),
	}
	_, err := Compile(plan)
	require.Error(t, err)
	assert.True(t, queryir.HasCode(err, queryir.ErrCodeUndeclaredJoin))

	_, err = Compile(nil)
	assert.Error(t, err)
}

func TestCompile_SchemaColumnText(t *testing.T) {
	e := &schema.Entity{
		Name:  "Item",
		Table: `"inventory"."item"`,
		Fields: []schema.Field{
			{Name: "id", Kind: schema.KindOpaque, Column: `"item"."id"`},
			{Name: "name", Kind: schema.KindText, Column: `"item"."name"`},
		},
	}
	plan := queryir.NewRead(e).Select("id").Where(queryir.Text("name").Eq("a")).MustBuild()
	stmt := MustCompile(plan)
	assert.Equal(t, `SELECT "item"."id" FROM "inventory"."item" WHERE "item"."name" = $1`, stmt.SQL)
}

