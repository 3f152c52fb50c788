package querysql

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/roach88/sqlplan/internal/queryir"
)

// EnsureJoinAlias returns the alias under which required is joined. The
// first declared path equal to required, or extending it, wins; for an
// extension the declared alias is truncated to required's depth. label
// names the referencing column in the error.
func EnsureJoinAlias(declared []queryir.JoinPath, required queryir.JoinPath, label string) (string, error) {
	if len(required) == 0 {
		return "", nil
	}
	for _, d := range declared {
		if d.HasPrefix(required) {
			alias := d.Alias()
			return alias[:len(required.Alias())], nil
		}
	}
	return "", &queryir.PlanError{
		Code:    queryir.ErrCodeUndeclaredJoin,
		Message: fmt.Sprintf("%s references join %q which is not declared", label, required),
	}
}

// NestedJoinPaths returns the declared paths strictly deeper than prefix
// that start with it, in declaration order.
func NestedJoinPaths(declared []queryir.JoinPath, prefix queryir.JoinPath) []queryir.JoinPath {
	var out []queryir.JoinPath
	for _, d := range declared {
		if len(d) > len(prefix) && d.HasPrefix(prefix) {
			out = append(out, d)
		}
	}
	return out
}

// JoinClauses renders the declared paths as join clauses, depth first, each
// distinct hop once:
//
//	INNER JOIN material AS "material__" ON item.material_id = "material__".id
//	LEFT JOIN supplier AS "material__supplier__" ON "material__".supplier_id = "material__supplier__".id
//
// Each clause starts with a space so they can be appended as they are.
func JoinClauses(table string, declared []queryir.JoinPath) []string {
	var out []string
	emitted := make(map[string]bool)

	var walk func(prefix queryir.JoinPath, left string)
	walk = func(prefix queryir.JoinPath, left string) {
		for _, d := range NestedJoinPaths(declared, prefix) {
			hop := d[:len(prefix)+1]
			alias := hop.Alias()
			if emitted[alias] {
				continue
			}
			emitted[alias] = true

			desc := hop[len(hop)-1]
			right := pq.QuoteIdentifier(alias)
			out = append(out, fmt.Sprintf(" %s %s AS %s ON %s", desc.Kind.SQL(), desc.Table, right, desc.RenderOn(left, right)))
			walk(hop, right)
		}
	}
	walk(nil, table)
	return out
}
