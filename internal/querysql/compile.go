package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlplan/internal/queryir"
)

// Compile converts a built plan to one parameterized statement.
//
// Compile is pure: the same plan always yields the same text and
// arguments. Plans from the queryir builders never fail; the error return
// covers plans assembled by hand that reference undeclared joins or carry
// malformed predicates.
func Compile(plan queryir.Plan) (stmt Statement, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*queryir.PlanError)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("compile %T: %w", plan, pe)
		}
	}()

	switch p := plan.(type) {
	case nil:
		return Statement{}, fmt.Errorf("cannot compile nil plan")
	case *queryir.Read:
		return compileRead(p), nil
	case queryir.Read:
		return compileRead(&p), nil
	case *queryir.Insert:
		return compileInsert(p), nil
	case queryir.Insert:
		return compileInsert(&p), nil
	case *queryir.Update:
		return compileUpdate(p), nil
	case queryir.Update:
		return compileUpdate(&p), nil
	case *queryir.Delete:
		return compileDelete(p), nil
	case queryir.Delete:
		return compileDelete(&p), nil
	default:
		return Statement{}, fmt.Errorf("unsupported plan type: %T", plan)
	}
}

// MustCompile is Compile for plans known to be valid; it panics on error.
func MustCompile(plan queryir.Plan) Statement {
	stmt, err := Compile(plan)
	if err != nil {
		panic(err)
	}
	return stmt
}

// compileRead writes head, joins, where, sort and pagination in that order.
func compileRead(r *queryir.Read) Statement {
	table := r.Entity.Table
	w := NewWriter(r.Entity, r.Joins...)

	switch r.Mode {
	case queryir.SelectColumns:
		cols := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			cols[i] = w.rootColumn(c)
		}
		w.Push("SELECT " + strings.Join(cols, ", ") + " FROM " + table)
	case queryir.SelectWithTotal:
		w.Push("SELECT *, COUNT(*) OVER() AS total_count FROM " + table)
	case queryir.SelectExists:
		w.Push("SELECT EXISTS(SELECT 1 FROM " + table)
	default:
		w.Push("SELECT * FROM " + table)
	}

	w.PushJoins(JoinClauses(table, r.Joins))
	pushReadFilter(w, r, true)
	w.PushSort(r.Sort)
	if r.Page != nil {
		w.PushPagination(*r.Page)
	}
	if r.Mode == queryir.SelectExists {
		w.Push(")")
	}
	return w.Finish()
}

// pushReadFilter writes the WHERE clause of a read: the soft-delete guard
// first, then the caller's filter and the aggregate subquery as one
// condition.
func pushReadFilter(w *Writer, r *queryir.Read, withHaving bool) {
	cond := readCondition(r, withHaving)
	if r.Entity.Deletion.Soft() && !r.IncludeDeleted {
		w.pushSoftDeleteWith(r.Entity.Deletion.Marker(), cond)
		return
	}
	if cond != nil {
		w.pushWhereWith(cond)
	}
}

func readCondition(r *queryir.Read, withHaving bool) func(*Writer) {
	var parts []func(*Writer)
	if r.Filter != nil {
		parts = append(parts, func(w *Writer) { w.writeExpr(r.Filter) })
	}
	if withHaving && r.Having != nil {
		parts = append(parts, func(w *Writer) { writeHavingSubquery(w, r) })
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	return func(w *Writer) {
		w.sql.WriteString("(")
		for i, part := range parts {
			if i > 0 {
				w.sql.WriteString(" AND ")
			}
			part(w)
		}
		w.sql.WriteString(")")
	}
}

// writeHavingSubquery restricts the outer rows to primary keys whose
// grouped rows satisfy the aggregate expression:
//
//	item.id IN (SELECT item.id FROM item <joins> [WHERE <filter>] GROUP BY item.id HAVING <aggregates>)
//
// The subquery repeats joins and filters so aggregates see the same rows.
func writeHavingSubquery(w *Writer, r *queryir.Read) {
	table := r.Entity.Table
	pk := table + "." + r.Entity.PK()

	w.sql.WriteString(pk + " IN (SELECT " + pk + " FROM " + table)
	inner := w.sub()
	inner.PushJoins(JoinClauses(table, r.Joins))
	pushReadFilter(inner, r, false)
	inner.Push(" GROUP BY " + pk + " HAVING ")
	inner.writeExpr(r.Having)
	w.sql.WriteString(inner.sql.String())
	w.sql.WriteString(")")
}

func compileInsert(ins *queryir.Insert) Statement {
	e := ins.Entity
	w := NewWriter(e)

	cols := make([]string, 0, len(ins.Values)+1)
	for _, a := range ins.Values {
		cols = append(cols, a.Column)
	}
	if e.Create.Marker != "" {
		cols = append(cols, e.Create.Marker)
	}

	if len(cols) == 0 {
		w.Push("INSERT INTO " + e.Table + " DEFAULT VALUES")
	} else {
		w.Push("INSERT INTO " + e.Table + " (" + strings.Join(cols, ", ") + ") VALUES (")
		for i, a := range ins.Values {
			if i > 0 {
				w.Push(", ")
			}
			w.Bind(a.Value)
		}
		if e.Create.Marker != "" {
			if len(ins.Values) > 0 {
				w.Push(", ")
			}
			w.Push("NOW()")
		}
		w.Push(")")
	}

	r := ins.Returning
	w.pushReturning(&r)
	return w.Finish()
}

// compileUpdate writes the update marker first, then the supplied fields.
func compileUpdate(u *queryir.Update) Statement {
	e := u.Entity
	w := NewWriter(e)
	w.Push("UPDATE " + e.Table + " SET ")

	first := true
	if e.Update.Marker != "" {
		w.Push(e.Update.Marker + " = NOW()")
		first = false
	}
	for _, a := range u.Set {
		if !first {
			w.Push(", ")
		}
		first = false
		w.Push(a.Column + " = ")
		w.Bind(a.Value)
	}

	w.PushWhere(u.Filter)
	w.pushReturning(u.Returning)
	return w.Finish()
}

// compileDelete dispatches on the plan's deletion mode. The soft form stamps
// the marker without an IS NULL guard, so deleting twice moves the stamp.
func compileDelete(d *queryir.Delete) Statement {
	e := d.Entity
	w := NewWriter(e)
	if d.Soft {
		w.Push("UPDATE " + e.Table + " SET " + e.Deletion.Marker() + " = NOW()")
	} else {
		w.Push("DELETE FROM " + e.Table)
	}
	w.PushWhere(d.Filter)
	w.pushReturning(d.Returning)
	return w.Finish()
}
