package queryir

import (
	"maps"
	"slices"

	"github.com/roach88/sqlplan/internal/schema"
)

// ReadBuilder accumulates the inputs of a SELECT plan.
type ReadBuilder struct {
	read  Read
	page  *Pagination
	modes []SelectMode
}

// NewRead starts a read plan on entity. Without further calls it compiles
// to SELECT * FROM <table>, filtered by the soft-delete marker if any.
func NewRead(entity *schema.Entity) *ReadBuilder {
	return &ReadBuilder{read: Read{Entity: entity}}
}

// Select restricts the result to the given root columns. Select, WithTotal
// and Exists are exclusive; mixing them fails at Build.
func (b *ReadBuilder) Select(columns ...string) *ReadBuilder {
	b.setMode(SelectColumns)
	b.read.Columns = append(b.read.Columns, columns...)
	return b
}

// WithTotal adds a windowed total_count column to SELECT *.
func (b *ReadBuilder) WithTotal() *ReadBuilder {
	b.setMode(SelectWithTotal)
	return b
}

// Exists turns the read into SELECT EXISTS(...) over at most one row.
func (b *ReadBuilder) Exists() *ReadBuilder {
	b.setMode(SelectExists)
	return b
}

func (b *ReadBuilder) setMode(m SelectMode) {
	b.modes = append(b.modes, m)
	b.read.Mode = m
}

// Join declares join paths. Columns on a path are usable only when the path
// or one of its extensions is declared here.
func (b *ReadBuilder) Join(paths ...JoinPath) *ReadBuilder {
	b.read.Joins = append(b.read.Joins, paths...)
	return b
}

// Where sets the filter. Repeated calls are combined with AND.
func (b *ReadBuilder) Where(e Expr) *ReadBuilder {
	b.read.Filter = combine(b.read.Filter, e)
	return b
}

// Having sets the aggregate filter. Repeated calls are combined with AND.
func (b *ReadBuilder) Having(e Expr) *ReadBuilder {
	b.read.Having = combine(b.read.Having, e)
	return b
}

// OrderBy appends sort terms.
func (b *ReadBuilder) OrderBy(terms ...SortTerm) *ReadBuilder {
	b.read.Sort = append(b.read.Sort, terms...)
	return b
}

// Page sets pagination. Ignored for Exists, which always reads one row.
func (b *ReadBuilder) Page(p Pagination) *ReadBuilder {
	b.page = &p
	return b
}

// IncludeDeleted disables the soft-delete filter. The entity must be soft
// deletable.
func (b *ReadBuilder) IncludeDeleted() *ReadBuilder {
	b.read.IncludeDeleted = true
	return b
}

// Build validates the inputs and returns an immutable plan.
func (b *ReadBuilder) Build() (*Read, error) {
	r := b.read
	r.Columns = slices.Clone(r.Columns)
	r.Joins = slices.Clone(r.Joins)
	r.Sort = slices.Clone(r.Sort)
	if r.Mode == SelectExists {
		p := Page(0, 1)
		r.Page = &p
	} else if b.page != nil {
		p := *b.page
		r.Page = &p
	}

	v := newValidator(r.Entity, r.Joins, true)
	if !v.checkEntity() {
		return nil, v.err()
	}
	v.checkJoins()
	for _, m := range b.modes {
		if m != r.Mode {
			v.add(ErrCodeConflictingMode, "read asks for both %s and %s", m, r.Mode)
			break
		}
	}
	if r.Mode == SelectColumns {
		if len(r.Columns) == 0 {
			v.add(ErrCodeUnknownColumn, "select needs at least one column")
		}
		for _, c := range r.Columns {
			v.checkColumn(c, schema.KindInvalid, "select")
		}
	}
	if r.Filter != nil {
		v.checkExpr(r.Filter, inFilter)
	}
	if r.Having != nil {
		v.checkExpr(r.Having, inHaving)
	}
	v.checkSort(r.Sort)
	if r.Page != nil {
		if err := r.Page.Validate(); err != nil {
			v.errs = append(v.errs, err)
		}
	}
	if r.IncludeDeleted && !r.Entity.Deletion.Soft() {
		v.add(ErrCodeNoSoftDelete, "include-deleted requested but %s has no deletion marker", r.Entity.Name)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// MustBuild is Build for static plans; it panics on error.
func (b *ReadBuilder) MustBuild() *Read {
	return must(b.Build())
}

// InsertBuilder accumulates the inputs of an INSERT plan.
type InsertBuilder struct {
	entity    *schema.Entity
	values    map[string]any
	returning []string
}

// NewInsert starts an insert plan on entity.
func NewInsert(entity *schema.Entity) *InsertBuilder {
	return &InsertBuilder{entity: entity}
}

// Values supplies field name → value. Required, may be empty.
func (b *InsertBuilder) Values(values map[string]any) *InsertBuilder {
	b.values = maps.Clone(values)
	if b.values == nil {
		b.values = map[string]any{}
	}
	return b
}

// Returning restricts RETURNING to the given columns; the default is "*".
func (b *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	b.returning = append(b.returning, columns...)
	return b
}

func (b *InsertBuilder) Build() (*Insert, error) {
	v := newValidator(b.entity, nil, false)
	if !v.checkEntity() {
		return nil, v.err()
	}
	if b.values == nil {
		v.add(ErrCodeMissingValues, "insert requires a value map")
		return nil, v.err()
	}
	ins := &Insert{
		Entity:    b.entity,
		Values:    v.assignments(b.values, b.entity.Create, "insert"),
		Returning: Returning{Columns: slices.Clone(b.returning)},
	}
	v.checkReturning(b.returning)
	if err := v.err(); err != nil {
		return nil, err
	}
	return ins, nil
}

func (b *InsertBuilder) MustBuild() *Insert {
	return must(b.Build())
}

// UpdateBuilder accumulates the inputs of an UPDATE plan.
type UpdateBuilder struct {
	entity    *schema.Entity
	values    map[string]any
	filter    Expr
	returning *Returning
}

// NewUpdate starts an update plan on entity.
func NewUpdate(entity *schema.Entity) *UpdateBuilder {
	return &UpdateBuilder{entity: entity}
}

// Set supplies the patch: only the fields present are assigned.
func (b *UpdateBuilder) Set(values map[string]any) *UpdateBuilder {
	b.values = maps.Clone(values)
	if b.values == nil {
		b.values = map[string]any{}
	}
	return b
}

// Where sets the filter. Repeated calls are combined with AND.
func (b *UpdateBuilder) Where(e Expr) *UpdateBuilder {
	b.filter = combine(b.filter, e)
	return b
}

// Returning adds a RETURNING clause; no columns means "*".
func (b *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	b.returning = appendReturning(b.returning, columns)
	return b
}

func (b *UpdateBuilder) Build() (*Update, error) {
	v := newValidator(b.entity, nil, false)
	if !v.checkEntity() {
		return nil, v.err()
	}
	if b.values == nil {
		v.add(ErrCodeMissingValues, "update requires a value map")
		return nil, v.err()
	}
	u := &Update{
		Entity:    b.entity,
		Set:       v.assignments(b.values, b.entity.Update, "update"),
		Filter:    b.filter,
		Returning: cloneReturning(b.returning),
	}
	if len(u.Set) == 0 && b.entity.Update.Marker == "" && len(v.errs) == 0 {
		v.add(ErrCodeEmptyUpdate, "update assigns nothing and %s has no update marker", b.entity.Name)
	}
	if u.Filter != nil {
		v.checkExpr(u.Filter, inWriteFilter)
	}
	if u.Returning != nil {
		v.checkReturning(u.Returning.Columns)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return u, nil
}

func (b *UpdateBuilder) MustBuild() *Update {
	return must(b.Build())
}

type deleteMode int

const (
	deleteByPolicy deleteMode = iota
	deleteSoft
	deleteHard
)

// DeleteBuilder accumulates the inputs of a DELETE plan.
type DeleteBuilder struct {
	entity    *schema.Entity
	mode      deleteMode
	filter    Expr
	returning *Returning
}

// NewDelete starts a delete plan on entity. The entity's deletion policy
// decides between DELETE FROM and stamping the deletion marker.
func NewDelete(entity *schema.Entity) *DeleteBuilder {
	return &DeleteBuilder{entity: entity}
}

// Soft requires the soft rewrite; Build fails on hard-delete entities.
func (b *DeleteBuilder) Soft() *DeleteBuilder {
	b.mode = deleteSoft
	return b
}

// Purge removes rows with DELETE FROM even on a soft-delete entity.
func (b *DeleteBuilder) Purge() *DeleteBuilder {
	b.mode = deleteHard
	return b
}

// Where sets the filter. Repeated calls are combined with AND.
func (b *DeleteBuilder) Where(e Expr) *DeleteBuilder {
	b.filter = combine(b.filter, e)
	return b
}

// Returning adds a RETURNING clause; no columns means "*".
func (b *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	b.returning = appendReturning(b.returning, columns)
	return b
}

func (b *DeleteBuilder) Build() (*Delete, error) {
	v := newValidator(b.entity, nil, false)
	if !v.checkEntity() {
		return nil, v.err()
	}
	soft := b.entity.Deletion.Soft()
	switch b.mode {
	case deleteSoft:
		if !soft {
			v.add(ErrCodeNoSoftDelete, "soft delete requested but %s has no deletion marker", b.entity.Name)
		}
	case deleteHard:
		soft = false
	}
	d := &Delete{
		Entity:    b.entity,
		Soft:      soft,
		Filter:    b.filter,
		Returning: cloneReturning(b.returning),
	}
	if d.Filter != nil {
		v.checkExpr(d.Filter, inWriteFilter)
	}
	if d.Returning != nil {
		v.checkReturning(d.Returning.Columns)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return d, nil
}

func (b *DeleteBuilder) MustBuild() *Delete {
	return must(b.Build())
}

func combine(prev, next Expr) Expr {
	if prev == nil {
		return next
	}
	return AllOf(prev, next)
}

func appendReturning(r *Returning, columns []string) *Returning {
	if r == nil {
		r = &Returning{}
	}
	r.Columns = append(r.Columns, columns...)
	return r
}

func cloneReturning(r *Returning) *Returning {
	if r == nil {
		return nil
	}
	return &Returning{Columns: slices.Clone(r.Columns)}
}

func must[P Plan](p P, err error) P {
	if err != nil {
		panic(err)
	}
	return p
}
