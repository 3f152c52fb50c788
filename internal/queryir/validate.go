package queryir

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/sqlplan/internal/schema"
)

// exprContext says where an expression appears, which decides the leaves
// it may contain.
type exprContext int

const (
	inFilter      exprContext = iota // read WHERE: predicates, full text
	inHaving                         // read HAVING: aggregates
	inWriteFilter                    // update/delete WHERE: root predicates
)

func (c exprContext) String() string {
	switch c {
	case inHaving:
		return "having"
	case inWriteFilter:
		return "write filter"
	default:
		return "filter"
	}
}

// validator accumulates plan errors during Build.
type validator struct {
	entity     *schema.Entity
	joins      []JoinPath
	allowJoins bool
	errs       []error
}

func newValidator(entity *schema.Entity, joins []JoinPath, allowJoins bool) *validator {
	return &validator{entity: entity, joins: joins, allowJoins: allowJoins}
}

// add appends a plan error for the validator's entity.
func (v *validator) add(code PlanErrorCode, format string, args ...any) {
	name := ""
	if v.entity != nil {
		name = v.entity.Name
	}
	v.errs = append(v.errs, newPlanError(code, name, format, args...))
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}

// checkEntity fails the build early when there is nothing to validate
// against.
func (v *validator) checkEntity() bool {
	if v.entity == nil {
		v.add(ErrCodeNoEntity, "plan has no entity")
		return false
	}
	return true
}

// follow walks path from the root entity. Each hop must be a relation
// declared on the entity before it. It returns the entity at the end of
// the path, or nil once a target cannot be looked up because the root
// entity belongs to no catalog; hops past that point are not checked.
func (v *validator) follow(path JoinPath) (*schema.Entity, error) {
	cat := v.entity.Catalog()
	cur := v.entity
	for _, hop := range path {
		if cur == nil {
			return nil, nil
		}
		if d, ok := cur.Join(hop.Relation); !ok || d != hop {
			return nil, fmt.Errorf("join %q: %q is not a relation declared on %s", path, hop.Relation, cur.Name)
		}
		cur = nil
		if cat != nil {
			if next, ok := cat.Entity(hop.Target); ok {
				cur = next
			}
		}
	}
	return cur, nil
}

// checkJoins verifies declared paths chain relations from the entity and
// that no alias is claimed by two different hop sequences.
func (v *validator) checkJoins() {
	seen := make(map[string]JoinPath)
	for _, p := range v.joins {
		if len(p) == 0 {
			v.add(ErrCodeConflictingJoin, "empty join path")
			continue
		}
		if _, err := v.follow(p); err != nil {
			v.add(ErrCodeConflictingJoin, "%v", err)
			continue
		}
		for i := range p {
			prefix := p[:i+1]
			alias := prefix.Alias()
			if prev, ok := seen[alias]; ok && !prev.Equal(prefix) {
				v.add(ErrCodeConflictingJoin, "alias %q is declared with different hops", alias)
				break
			}
			seen[alias] = prefix
		}
	}
}

// checkPath verifies a referenced path is reachable from the declared joins.
func (v *validator) checkPath(path JoinPath, label string) bool {
	if len(path) == 0 {
		return true
	}
	if !v.allowJoins {
		v.add(ErrCodeJoinNotAllowed, "%s references joined path %q; joins are only allowed on reads", label, path)
		return false
	}
	if _, ok := MatchPath(v.joins, path); !ok {
		v.add(ErrCodeUndeclaredJoin, "%s references join %q which is not declared", label, path)
		return false
	}
	return true
}

// checkColumn verifies a root column against the entity's fields.
func (v *validator) checkColumn(column string, kind schema.Kind, label string) {
	v.checkField(v.entity, column, kind, label, true)
}

// checkField verifies column against e's fields, by name or, when byRef
// is set, by column text. Entities without a field list accept any column.
// kind is checked unless invalid.
func (v *validator) checkField(e *schema.Entity, column string, kind schema.Kind, label string, byRef bool) {
	if len(e.Fields) == 0 {
		return
	}
	f, ok := e.Field(column)
	if !ok && byRef {
		f, ok = e.FieldByRef(column)
	}
	if !ok {
		v.add(ErrCodeUnknownColumn, "%s: %q is not a field of %s", label, column, e.Name)
		return
	}
	if kind != schema.KindInvalid && f.Kind != kind {
		v.add(ErrCodeKindMismatch, "%s: %q is %s, not %s", label, column, f.Kind, kind)
	}
}

// checkRef checks a column reference that may sit on a joined path. Joined
// columns are written alias.name, so they are looked up by name on the
// path's target.
func (v *validator) checkRef(column string, path JoinPath, kind schema.Kind, label string) {
	if len(path) == 0 {
		v.checkColumn(column, kind, label)
		return
	}
	if !v.checkPath(path, label) {
		return
	}
	// A bad hop is reported once by checkJoins.
	if target, err := v.follow(path); err == nil && target != nil {
		v.checkField(target, column, kind, label, false)
	}
}

// checkExpr recursively validates an expression node.
func (v *validator) checkExpr(e Expr, ctx exprContext) {
	switch node := e.(type) {
	case nil:
		v.add(ErrCodeEmptyGroup, "nil expression in %s", ctx)
	case And:
		v.checkGroup("AND", node.Exprs, ctx)
	case *And:
		v.checkGroup("AND", node.Exprs, ctx)
	case Or:
		v.checkGroup("OR", node.Exprs, ctx)
	case *Or:
		v.checkGroup("OR", node.Exprs, ctx)
	case Predicate:
		v.checkPredicate(node, ctx)
	case *Predicate:
		v.checkPredicate(*node, ctx)
	case FullText:
		v.checkFullText(node, ctx)
	case *FullText:
		v.checkFullText(*node, ctx)
	case Aggregate:
		v.checkAggregate(node, ctx)
	case *Aggregate:
		v.checkAggregate(*node, ctx)
	default:
		v.add(ErrCodeUnsupportedFilter, "unknown expression type %T", e)
	}
}

func (v *validator) checkGroup(op string, children []Expr, ctx exprContext) {
	if len(children) == 0 {
		v.add(ErrCodeEmptyGroup, "%s group without children in %s", op, ctx)
		return
	}
	for _, child := range children {
		v.checkExpr(child, ctx)
	}
}

func (v *validator) checkPredicate(p Predicate, ctx exprContext) {
	label := fmt.Sprintf("predicate on %q", p.Column)
	if ctx == inHaving {
		v.add(ErrCodeUnsupportedFilter, "%s: only aggregates are allowed in having", label)
		return
	}
	if !Supports(p.Kind, p.Op) {
		v.add(ErrCodeUnsupportedOperator, "%s: operator %s is not defined for %s columns", label, p.Op, p.Kind)
	} else if len(p.Values) != p.Op.Arity() {
		v.add(ErrCodeBadArity, "%s: operator %s takes %d value(s), got %d", label, p.Op, p.Op.Arity(), len(p.Values))
	}
	v.checkRef(p.Column, p.Path, p.Kind, label)
}

func (v *validator) checkFullText(f FullText, ctx exprContext) {
	if ctx != inFilter {
		v.add(ErrCodeUnsupportedFilter, "full-text search is only allowed in read filters")
		return
	}
	if v.entity.Search == nil || len(v.entity.Search.Columns) == 0 {
		v.add(ErrCodeNoSearch, "entity %s has no search columns", v.entity.Name)
		return
	}
	if f.Query == "" {
		v.add(ErrCodeBadArity, "full-text query is empty")
	}
	for _, c := range v.entity.Search.Columns {
		if c.Path == "" {
			continue
		}
		path, ok := MatchNames(v.joins, c.Path)
		if !ok {
			v.add(ErrCodeUndeclaredJoin, "search column %s.%s needs join %q which is not declared", c.Path, c.Column, c.Path)
			continue
		}
		if target, err := v.follow(path); err == nil && target != nil {
			v.checkField(target, c.Column, schema.KindInvalid, "search column "+c.Path+"."+c.Column, false)
		}
	}
}

func (v *validator) checkAggregate(a Aggregate, ctx exprContext) {
	label := fmt.Sprintf("%s(%s)", a.Func, a.Column)
	if ctx != inHaving {
		v.add(ErrCodeUnsupportedFilter, "%s: aggregates are only allowed in having", label)
		return
	}
	if _, ok := aggNames[a.Func]; !ok {
		v.add(ErrCodeUnsupportedOperator, "unknown aggregate function %d", int(a.Func))
		return
	}
	if !aggregateSupports(a.Op) {
		v.add(ErrCodeUnsupportedOperator, "%s: operator %s is not defined for aggregates", label, a.Op)
	} else if len(a.Values) != a.Op.Arity() {
		v.add(ErrCodeBadArity, "%s: operator %s takes %d value(s), got %d", label, a.Op, a.Op.Arity(), len(a.Values))
	}
	if a.Column == "" {
		if a.Func != AggCount {
			v.add(ErrCodeUnknownColumn, "%s needs a column", a.Func)
		}
		return
	}
	v.checkRef(a.Column, a.Path, schema.KindInvalid, label)
}

// checkSort validates each sort term's column and path.
func (v *validator) checkSort(spec SortSpec) {
	for _, t := range spec {
		v.checkRef(t.Column, t.Path, schema.KindInvalid, "sort")
	}
}

// checkReturning validates explicit RETURNING columns.
func (v *validator) checkReturning(columns []string) {
	for _, c := range columns {
		v.checkColumn(c, schema.KindInvalid, "returning")
	}
}

// assignments turns a field → value map into assignments in schema
// declaration order, rejecting unknown, excluded and marker columns.
func (v *validator) assignments(values map[string]any, policy schema.WritePolicy, op string) []Assignment {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Assignment
	for _, name := range names {
		f, ok := v.entity.Field(name)
		switch {
		case !ok:
			v.add(ErrCodeUnknownColumn, "%s: %q is not a field of %s", op, name, v.entity.Name)
		case policy.Excludes(name):
			v.add(ErrCodeExcludedColumn, "%s: %q may not be written", op, name)
		case name == policy.Marker:
			v.add(ErrCodeExcludedColumn, "%s: %q is set by the statement", op, name)
		default:
			out = append(out, Assignment{Column: f.Name, Value: values[name]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return v.entity.FieldIndex(out[i].Column) < v.entity.FieldIndex(out[j].Column)
	})
	return out
}
