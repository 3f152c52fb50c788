package queryir

import (
	"fmt"

	"github.com/roach88/sqlplan/internal/schema"
)

// Plan is a validated, immutable description of one statement.
//
// This is a sealed interface - only Read, Insert, Update and Delete
// implement it, and only the builders in this package produce them.
type Plan interface {
	planNode() // Marker method - seals interface to this package
	// Target is the entity the statement operates on.
	Target() *schema.Entity
}

// SelectMode chooses the head of a read statement.
type SelectMode int

const (
	// SelectAll: SELECT * FROM t
	SelectAll SelectMode = iota
	// SelectColumns: SELECT a, b FROM t
	SelectColumns
	// SelectWithTotal: SELECT *, COUNT(*) OVER() AS total_count FROM t
	SelectWithTotal
	// SelectExists: SELECT EXISTS(SELECT 1 FROM t ... LIMIT 1 OFFSET 0)
	SelectExists
)

var modeNames = map[SelectMode]string{
	SelectAll:       "all",
	SelectColumns:   "columns",
	SelectWithTotal: "total",
	SelectExists:    "exists",
}

func (m SelectMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SelectMode(%d)", int(m))
}

// Returning is the RETURNING clause of a write. No columns means "*".
type Returning struct {
	Columns []string
}

// Assignment is one column = value pair of an insert or update.
type Assignment struct {
	Column string
	Value  any
}

// Read is a SELECT plan.
type Read struct {
	Entity         *schema.Entity
	Mode           SelectMode
	Columns        []string // SelectColumns only
	Joins          []JoinPath
	Filter         Expr // nil = no filter
	Having         Expr // aggregate expression; nil = none
	Sort           SortSpec
	Page           *Pagination
	IncludeDeleted bool
}

func (Read) planNode() {}

func (r Read) Target() *schema.Entity { return r.Entity }

// Insert is an INSERT plan. Values are in schema declaration order.
type Insert struct {
	Entity    *schema.Entity
	Values    []Assignment
	Returning Returning
}

func (Insert) planNode() {}

func (i Insert) Target() *schema.Entity { return i.Entity }

// Update is an UPDATE plan. Set holds the supplied fields in schema
// declaration order; the entity's update marker is not part of Set.
type Update struct {
	Entity    *schema.Entity
	Set       []Assignment
	Filter    Expr
	Returning *Returning
}

func (Update) planNode() {}

func (u Update) Target() *schema.Entity { return u.Entity }

// Delete is a DELETE plan. Soft is true when the statement stamps the
// entity's deletion marker instead of removing rows.
type Delete struct {
	Entity    *schema.Entity
	Soft      bool
	Filter    Expr
	Returning *Returning
}

func (Delete) planNode() {}

func (d Delete) Target() *schema.Entity { return d.Entity }
