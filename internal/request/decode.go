package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/schema"
)

// decoder resolves names in one document against the catalog.
type decoder struct {
	cat  *schema.Catalog
	root *schema.Entity
}

// ref is a resolved "relation.relation.column" reference.
type ref struct {
	path  queryir.JoinPath
	field schema.Field
}

// resolve splits dotted at its last dot into a relation path and a column
// and looks the column up on the entity the path ends at.
func (dec *decoder) resolve(dotted string, n *yaml.Node, section string) (ref, error) {
	rel, column := "", dotted
	if i := strings.LastIndex(dotted, "."); i >= 0 {
		rel, column = dotted[:i], dotted[i+1:]
	}
	path, target, err := queryir.ResolvePath(dec.cat, dec.root, rel)
	if err != nil {
		return ref{}, errorf(section, n, "%v", err)
	}
	f, ok := target.Field(column)
	if !ok {
		return ref{}, errorf(section, n, "entity %s has no field %q", target.Name, column)
	}
	return ref{path: path, field: f}, nil
}

// filter combines the filter tree with the top-level search string.
func (dec *decoder) filter(d *Document) (queryir.Expr, error) {
	e, err := dec.expr(&d.Filter, "filter", false)
	if err != nil {
		return nil, err
	}
	if d.Search == "" {
		return e, nil
	}
	search := queryir.Search(d.Search)
	if e == nil {
		return search, nil
	}
	return queryir.AllOf(e, search), nil
}

// expr decodes a filter or having tree. A mapping is the AND of its keys,
// a sequence the AND of its items; "and" and "or" keys open groups.
func (dec *decoder) expr(n *yaml.Node, section string, having bool) (queryir.Expr, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return nil, errorf(section, n, "expected a mapping or a list, got %q", n.Value)
	case yaml.SequenceNode:
		parts, err := dec.list(n, section, having)
		if err != nil {
			return nil, err
		}
		return single(queryir.AllOf(parts...)), nil
	case yaml.MappingNode:
		var parts []queryir.Expr
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			switch key.Value {
			case "and", "or":
				if val.Kind != yaml.SequenceNode {
					return nil, errorf(section, val, "%q expects a list", key.Value)
				}
				children, err := dec.list(val, section, having)
				if err != nil {
					return nil, err
				}
				if key.Value == "and" {
					parts = append(parts, queryir.AllOf(children...))
				} else {
					parts = append(parts, queryir.AnyOf(children...))
				}
			default:
				var leaves []queryir.Expr
				var err error
				if having {
					leaves, err = dec.aggregates(key, val)
				} else {
					leaves, err = dec.predicates(key, val)
				}
				if err != nil {
					return nil, err
				}
				parts = append(parts, leaves...)
			}
		}
		if len(parts) == 0 {
			return nil, nil
		}
		return single(queryir.AllOf(parts...)), nil
	}
	return nil, errorf(section, n, "unsupported node")
}

func (dec *decoder) list(n *yaml.Node, section string, having bool) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, 0, len(n.Content))
	for _, item := range n.Content {
		e, err := dec.expr(item, section, having)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// single unwraps a one-element AND so a lone predicate is not grouped.
// Empty groups are kept so Build can report them.
func single(a queryir.And) queryir.Expr {
	if len(a.Exprs) == 1 {
		return a.Exprs[0]
	}
	return a
}

// predicates decodes `field: {op: value, ...}`.
func (dec *decoder) predicates(key, val *yaml.Node) ([]queryir.Expr, error) {
	r, err := dec.resolve(key.Value, key, "filter")
	if err != nil {
		return nil, err
	}
	if val.Kind != yaml.MappingNode {
		return nil, errorf("filter", val, "field %q expects a mapping of operators", key.Value)
	}
	var out []queryir.Expr
	for i := 0; i+1 < len(val.Content); i += 2 {
		opNode, arg := val.Content[i], val.Content[i+1]
		op, err := queryir.ParseOp(opNode.Value)
		if err != nil {
			return nil, errorf("filter", opNode, "%v", err)
		}
		values, err := dec.args(r.field, op, arg)
		if err != nil {
			return nil, err
		}
		out = append(out, queryir.NewPredicate(r.field.Kind, r.field.Name, op, values...).Via(r.path))
	}
	return out, nil
}

// aggregates decodes `field: {func: {op: value}}`. The field "*" stands
// for COUNT(*).
func (dec *decoder) aggregates(key, val *yaml.Node) ([]queryir.Expr, error) {
	var r ref
	if key.Value != "*" {
		var err error
		if r, err = dec.resolve(key.Value, key, "having"); err != nil {
			return nil, err
		}
	}
	if val.Kind != yaml.MappingNode {
		return nil, errorf("having", val, "field %q expects a mapping of aggregate functions", key.Value)
	}
	var out []queryir.Expr
	for i := 0; i+1 < len(val.Content); i += 2 {
		fnNode, ops := val.Content[i], val.Content[i+1]
		fn, ok := queryir.ParseAggFunc(fnNode.Value)
		if !ok {
			return nil, errorf("having", fnNode, "unknown aggregate function %q", fnNode.Value)
		}
		if ops.Kind != yaml.MappingNode {
			return nil, errorf("having", ops, "aggregate %q expects a mapping of operators", fnNode.Value)
		}
		agg := queryir.AggregateField{Func: fn, Column: r.field.Name}.Via(r.path)

		// Counts are integers whatever the column; other aggregates keep
		// the column's kind.
		argField := r.field
		if fn == queryir.AggCount || fn == queryir.AggCountDistinct || key.Value == "*" {
			argField = schema.Field{Kind: schema.KindNumeric, Type: "int64"}
		}
		for j := 0; j+1 < len(ops.Content); j += 2 {
			opNode, arg := ops.Content[j], ops.Content[j+1]
			op, err := queryir.ParseOp(opNode.Value)
			if err != nil {
				return nil, errorf("having", opNode, "%v", err)
			}
			values, err := dec.args(argField, op, arg)
			if err != nil {
				return nil, err
			}
			out = append(out, agg.Compare(op, values...))
		}
	}
	return out, nil
}

// args converts an operator's argument node: nothing for unary operators,
// a scalar for binary ones, a two-item list for ranges.
func (dec *decoder) args(f schema.Field, op queryir.Op, n *yaml.Node) ([]any, error) {
	switch op.Arity() {
	case 0:
		return nil, nil
	case 2:
		if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
			return nil, errorf("filter", n, "%s expects a list of two values", op)
		}
		lo, err := convert(f, n.Content[0])
		if err != nil {
			return nil, err
		}
		hi, err := convert(f, n.Content[1])
		if err != nil {
			return nil, err
		}
		return []any{lo, hi}, nil
	}
	v, err := convert(f, n)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func (dec *decoder) sort(items []map[string]string) ([]queryir.SortTerm, error) {
	var terms []queryir.SortTerm
	for _, item := range items {
		if len(item) != 1 {
			return nil, &DecodeError{Field: "sort", Message: "each sort item must have exactly one field"}
		}
		for field, dir := range item {
			r, err := dec.resolve(field, nil, "sort")
			if err != nil {
				return nil, err
			}
			term := queryir.SortTerm{Column: r.field.Name, Path: r.path}
			switch strings.ToLower(dir) {
			case "", "asc":
				term.Direction = queryir.Asc
			case "desc":
				term.Direction = queryir.Desc
			default:
				return nil, &DecodeError{Field: "sort", Message: fmt.Sprintf("direction must be asc or desc, got %q", dir)}
			}
			terms = append(terms, term)
		}
	}
	return terms, nil
}

// values converts insert/update values by root field. Unknown columns are
// passed through undecoded so the builder reports them.
func (dec *decoder) values(in map[string]yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for name, node := range in {
		f, ok := dec.root.Field(name)
		if !ok {
			var raw any
			if err := node.Decode(&raw); err != nil {
				return nil, errorf("values", &node, "%v", err)
			}
			out[name] = raw
			continue
		}
		v, err := convert(f, &node)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// convert decodes a scalar into the Go value the field's column expects.
// A null scalar is nil.
func convert(f schema.Field, n *yaml.Node) (any, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, errorf(f.Name, n, "expected a scalar value")
	}

	switch f.Kind {
	case schema.KindText:
		return n.Value, nil
	case schema.KindBoolean:
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errorf(f.Name, n, "expected a boolean, got %q", n.Value)
		}
		return b, nil
	case schema.KindNumeric:
		if isIntType(f.Type) {
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, errorf(f.Name, n, "expected an integer, got %q", n.Value)
			}
			return i, nil
		}
		var x float64
		if err := n.Decode(&x); err != nil {
			return nil, errorf(f.Name, n, "expected a number, got %q", n.Value)
		}
		return x, nil
	case schema.KindOpaque:
		switch {
		case f.Type == "uuid.UUID":
			id, err := uuid.Parse(n.Value)
			if err != nil {
				return nil, errorf(f.Name, n, "invalid uuid %q", n.Value)
			}
			return id, nil
		case isIntType(f.Type):
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, errorf(f.Name, n, "expected an integer id, got %q", n.Value)
			}
			return i, nil
		}
		return n.Value, nil
	case schema.KindTemporal:
		return parseTime(f, n)
	}
	return nil, errorf(f.Name, n, "unsupported kind %s", f.Kind)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}

func parseTime(f schema.Field, n *yaml.Node) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, n.Value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errorf(f.Name, n, "expected an RFC 3339 timestamp or date, got %q", n.Value)
}

func isIntType(t string) bool {
	switch t {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}
