package schema

import "strings"

// JoinKind selects the SQL join keyword for one hop.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// SQL returns the join keyword, e.g. "INNER JOIN".
func (k JoinKind) SQL() string {
	if k == LeftJoin {
		return "LEFT JOIN"
	}
	return "INNER JOIN"
}

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "left"
	}
	return "inner"
}

// JoinDescriptor is one statically declared hop from an entity to a related
// entity.
//
// On is an ON-condition template. "{left}" is replaced by the reference of
// the table the hop starts from (the root table name or the quoted alias of
// the previous hop) and "{right}" by the quoted alias of this hop:
//
//	JoinDescriptor{
//	  Relation: "material",
//	  Table:    "material",
//	  Target:   "Material",
//	  On:       "{left}.material_id = {right}.id",
//	}
//
// Descriptors are compared by value, so two paths through the same
// relations are equal no matter where they were constructed.
type JoinDescriptor struct {
	Relation string   // relation name, unique per source entity
	Kind     JoinKind // INNER or LEFT
	Table    string   // target table text, written verbatim
	Target   string   // target entity name in the catalog
	On       string   // ON template with {left} / {right}
}

// RenderOn substitutes the left and right table references into On.
func (d JoinDescriptor) RenderOn(left, right string) string {
	return strings.NewReplacer("{left}", left, "{right}", right).Replace(d.On)
}
