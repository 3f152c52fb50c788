package schema

import "slices"

// Field is one column of an entity.
type Field struct {
	// Name is the bare SQL column name. Requests refer to fields by it and
	// joined references are written "<alias>".<Name>.
	Name string
	Kind Kind
	// Column is the text written for root-entity references, usually the
	// table-qualified column. Empty means Name.
	Column string
	// Type is an optional Go type hint used by code generation and request
	// decoding ("uuid.UUID", "int64", "float64", "string", "time.Time", "bool").
	Type string
}

// Ref returns the text used when the field is referenced on the root entity.
func (f Field) Ref() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Deletion is the delete policy of an entity: hard delete, or soft delete
// through a nullable timestamp marker column. The zero value is HardDelete.
type Deletion struct {
	marker string
}

// HardDelete removes rows with DELETE FROM.
var HardDelete = Deletion{}

// SoftDelete stamps marker with the current time instead of removing rows;
// reads then hide rows where marker is not null.
func SoftDelete(marker string) Deletion {
	return Deletion{marker: marker}
}

// Soft reports whether the policy is soft delete.
func (d Deletion) Soft() bool { return d.marker != "" }

// Marker returns the soft-delete marker column, or "" for hard delete.
func (d Deletion) Marker() string { return d.marker }

// WritePolicy configures how inserts or updates treat an entity's columns.
type WritePolicy struct {
	// Marker is a timestamp column set to NOW() by the statement itself.
	Marker string
	// Excluded columns may never be written by the caller.
	Excluded []string
}

// Excludes reports whether column is excluded from caller-supplied values.
func (p WritePolicy) Excludes(column string) bool {
	return slices.Contains(p.Excluded, column)
}

// WeightedColumn is one column feeding the full-text document.
type WeightedColumn struct {
	Path   string // dotted relation path from the entity; "" for its own columns
	Column string // bare column name when Path is set, else root column text
	Weight string // "A".."D"
}

// SearchConfig enables full-text search on an entity.
type SearchConfig struct {
	Language string // text search configuration, e.g. "english"
	Columns  []WeightedColumn
}

// Entity is the static description of one table.
type Entity struct {
	Name       string
	Table      string
	PrimaryKey string // bare column name; "" means "id"
	Fields     []Field
	Joins      []JoinDescriptor
	Deletion   Deletion
	Create     WritePolicy
	Update     WritePolicy
	Search     *SearchConfig

	catalog *Catalog
}

// Catalog returns the catalog the entity was last registered in, or nil.
// Join targets of an entity outside a catalog cannot be looked up.
func (e *Entity) Catalog() *Catalog {
	return e.catalog
}

// PK returns the primary key column name.
func (e *Entity) PK() string {
	if e.PrimaryKey == "" {
		return "id"
	}
	return e.PrimaryKey
}

// Field looks up a field by its column name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByRef looks up a field by its root reference text.
func (e *Entity) FieldByRef(ref string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Ref() == ref {
			return f, true
		}
	}
	return Field{}, false
}

// Join looks up a declared join by relation name.
func (e *Entity) Join(relation string) (JoinDescriptor, bool) {
	for _, j := range e.Joins {
		if j.Relation == relation {
			return j, true
		}
	}
	return JoinDescriptor{}, false
}

// FieldIndex returns the declaration position of a field, or -1.
func (e *Entity) FieldIndex(name string) int {
	return slices.IndexFunc(e.Fields, func(f Field) bool { return f.Name == name })
}
